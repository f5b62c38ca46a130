// Package icons stages the indicator icons on disk, so that tray hosts can
// load them by name from an icon theme path.
package icons

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Icon names.
const (
	OK    = "ok"
	Stale = "stale"
	Err   = "err"
)

// Extension of the staged icon files.
const Extension = ".png"

//go:embed assets/*.png
var assets embed.FS

// Theme is a directory with the staged icons.
type Theme struct {
	dir string
}

// Stage writes the icons into a new temporary directory.
//
// The directory must be removed with [Theme.Close].
func Stage() (*Theme, error) {
	dir, err := os.MkdirTemp("", "systemd-status-icons-")
	if err != nil {
		return nil, fmt.Errorf("icons: failed to create directory: %w", err)
	}

	theme := &Theme{dir: dir}

	for _, name := range theme.Names() {
		if err := theme.write(name); err != nil {
			_ = theme.Close()
			return nil, fmt.Errorf("icons: %w", err)
		}
	}

	return theme, nil
}

// Dir returns path to the directory with icons.
func (t *Theme) Dir() string {
	return t.dir
}

// Names returns names of the staged icons.
func (t *Theme) Names() []string {
	return []string{OK, Stale, Err}
}

// Path returns path to the icon file with the given name.
func (t *Theme) Path(name string) (string, error) {
	if !slices.Contains(t.Names(), name) {
		return "", fmt.Errorf("icons: unknown icon %q", name)
	}

	return filepath.Join(t.dir, name+Extension), nil
}

// Close removes the directory with icons.
func (t *Theme) Close() error {
	return os.RemoveAll(t.dir)
}

func (t *Theme) write(name string) error {
	data, err := assets.ReadFile("assets/" + name + Extension)
	if err != nil {
		return fmt.Errorf("failed to read icon %s: %w", name, err)
	}

	path := filepath.Join(t.dir, name+Extension)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write icon %s: %w", name, err)
	}

	return nil
}
