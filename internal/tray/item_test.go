package tray

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelepuginivan/systemd-status/internal/icons"
	"github.com/shelepuginivan/systemd-status/internal/indicator"
)

func TestNewItem_Defaults(t *testing.T) {
	item := NewItem(nil, indicator.NewState(), Options{})

	assert.Equal(t, DefaultID, item.opts.ID)
	assert.Equal(t, DefaultID, item.opts.Title)
	assert.Regexp(t, `^[a-z]+(\.[a-z0-9]+)+\.systemd-status$`, item.opts.ID)
	assert.NotNil(t, item.logger)
	assert.Regexp(t, `^org\.kde\.StatusNotifierItem-\d+-1$`, item.Name())
}

func TestItem_RefreshBeforeListen(t *testing.T) {
	state := indicator.NewState()
	item := NewItem(nil, state, Options{})

	// Must not touch the connection.
	assert.NotPanics(t, item.Refresh)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, ItemStatusActive, statusOf(indicator.SignalStale))
	assert.Equal(t, ItemStatusActive, statusOf(indicator.SignalOK))
	assert.Equal(t, ItemStatusNeedsAttention, statusOf(indicator.SignalErr))
}

func TestTooltip(t *testing.T) {
	item := NewItem(nil, indicator.NewState(), Options{Title: "Systemd"})

	stale := item.tooltip(indicator.NewState().Snapshot())
	assert.Equal(t, "stale", stale.IconName)
	assert.Equal(t, "Systemd", stale.Title)
	assert.Equal(t, "Service manager is unreachable", stale.Description)

	failed := stateWith("foo.service", "bar.service")
	assert.Equal(t, "Failed units: 2", item.tooltip(failed.Snapshot()).Description)

	failed.MarkStale()
	assert.Equal(t, "Service manager is unreachable, last known failed units: 2", item.tooltip(failed.Snapshot()).Description)

	assert.Equal(t, "No failed units", item.tooltip(stateWith().Snapshot()).Description)
}

func TestLoadPixmaps(t *testing.T) {
	theme, err := icons.Stage()
	require.NoError(t, err)
	t.Cleanup(func() { _ = theme.Close() })

	item := NewItem(nil, indicator.NewState(), Options{
		IconThemePath: theme.Dir(),
		IconPath:      theme.Path,
	})
	item.loadPixmaps()

	for _, signal := range []indicator.Signal{indicator.SignalOK, indicator.SignalStale, indicator.SignalErr} {
		icon := item.pixmaps[signal]
		require.NotNil(t, icon, "pixmap for %s", signal)
		assert.Len(t, icon.Bytes, int(icon.Width*icon.Height*4))
	}
}

func TestLoadPixmaps_MissingFiles(t *testing.T) {
	dir := t.TempDir()

	item := NewItem(nil, indicator.NewState(), Options{
		IconThemePath: dir,
		IconPath: func(name string) (string, error) {
			return filepath.Join(dir, name+icons.Extension), nil
		},
	})
	item.loadPixmaps()

	assert.Empty(t, item.pixmaps)
	assert.Equal(t, []pixmap{}, item.pixmaps[indicator.SignalOK].toDBus())
}

func TestLoadPixmaps_UnresolvedIcons(t *testing.T) {
	theme, err := icons.Stage()
	require.NoError(t, err)
	t.Cleanup(func() { _ = theme.Close() })

	var requested []string

	item := NewItem(nil, indicator.NewState(), Options{
		IconThemePath: theme.Dir(),
		IconPath: func(name string) (string, error) {
			requested = append(requested, name)
			if name == icons.Err {
				return "", errors.New("unknown icon")
			}
			return theme.Path(name)
		},
	})
	item.loadPixmaps()

	assert.ElementsMatch(t, []string{icons.OK, icons.Stale, icons.Err}, requested)
	assert.NotNil(t, item.pixmaps[indicator.SignalOK])
	assert.NotNil(t, item.pixmaps[indicator.SignalStale])
	assert.Nil(t, item.pixmaps[indicator.SignalErr])
}

func TestLoadPixmaps_NoResolver(t *testing.T) {
	theme, err := icons.Stage()
	require.NoError(t, err)
	t.Cleanup(func() { _ = theme.Close() })

	item := NewItem(nil, indicator.NewState(), Options{IconThemePath: theme.Dir()})
	item.loadPixmaps()

	assert.Empty(t, item.pixmaps)
}

func TestNewIconFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff})
	img.Set(1, 0, color.NRGBA{})

	icon := NewIconFromImage(img)

	assert.Equal(t, int32(2), icon.Width)
	assert.Equal(t, int32(1), icon.Height)
	assert.Equal(t, []byte{0xff, 0x10, 0x20, 0x30, 0, 0, 0, 0}, icon.Bytes)
}

func TestNewIconFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.png")

	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	img.Set(1, 1, color.NRGBA{R: 0xff, A: 0xff})

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	icon, err := NewIconFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int32(3), icon.Width)
	assert.Equal(t, []byte{0xff, 0xff, 0, 0}, icon.Bytes[16:20])

	_, err = NewIconFromFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestIsWatcherStarted(t *testing.T) {
	tests := []struct {
		name   string
		signal *dbus.Signal
		want   bool
	}{
		{
			name: "watcher started",
			signal: &dbus.Signal{
				Name: "org.freedesktop.DBus.NameOwnerChanged",
				Body: []any{StatusNotifierWatcherInterface, "", ":1.42"},
			},
			want: true,
		},
		{
			name: "watcher stopped",
			signal: &dbus.Signal{
				Name: "org.freedesktop.DBus.NameOwnerChanged",
				Body: []any{StatusNotifierWatcherInterface, ":1.42", ""},
			},
			want: false,
		},
		{
			name: "other name",
			signal: &dbus.Signal{
				Name: "org.freedesktop.DBus.NameOwnerChanged",
				Body: []any{"org.example.Foo", "", ":1.7"},
			},
			want: false,
		},
		{
			name: "other signal",
			signal: &dbus.Signal{
				Name: MenuInterface + ".LayoutUpdated",
				Body: []any{uint32(1), int32(0)},
			},
			want: false,
		},
		{
			name: "short body",
			signal: &dbus.Signal{
				Name: "org.freedesktop.DBus.NameOwnerChanged",
				Body: []any{StatusNotifierWatcherInterface},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isWatcherStarted(tt.signal))
		})
	}
}
