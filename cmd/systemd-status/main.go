// Package main is the entry point of the systemd-status tray indicator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "systemd-status",
		Short: "Show failed systemd units in the system tray",
		Long: `systemd-status polls the system service manager once a minute and shows
a tray icon: green when no units failed, red when some did, and grey when the
manager could not be reached. The menu lists names of the failed units.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}
