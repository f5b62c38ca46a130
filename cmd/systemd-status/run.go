package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/systemd-status/internal/icons"
	"github.com/shelepuginivan/systemd-status/internal/indicator"
	"github.com/shelepuginivan/systemd-status/internal/logging"
	"github.com/shelepuginivan/systemd-status/internal/systemd"
	"github.com/shelepuginivan/systemd-status/internal/tray"
)

// run sets up the indicator and polls until the process is terminated. Any
// error returned by run happened during setup.
func run(ctx context.Context) error {
	logger := logging.New(os.Stderr, slog.LevelInfo)
	slog.SetDefault(logger)

	system, err := connectSystemBus()
	if err != nil {
		return err
	}
	defer system.Close()

	session, err := connectSessionBus()
	if err != nil {
		return err
	}
	defer session.Close()

	theme, err := icons.Stage()
	if err != nil {
		return fmt.Errorf("failed to stage icons: %w", err)
	}
	defer func() {
		if err := theme.Close(); err != nil {
			logger.Warn("Failed to remove icons", "dir", theme.Dir(), "error", err)
		}
	}()

	state := indicator.NewState()

	item := tray.NewItem(session, state, tray.Options{
		ID:            tray.DefaultID,
		Title:         "Systemd status",
		IconThemePath: theme.Dir(),
		IconPath:      theme.Path,
		Logger:        logger,
	})

	state.OnUpdate(item.Refresh)

	if err := item.Listen(); err != nil {
		return fmt.Errorf("failed to create tray: %w", err)
	}
	defer func() {
		if err := item.Close(); err != nil {
			logger.Warn("Failed to close tray item", "error", err)
		}
	}()

	reconciler, err := indicator.NewReconciler(state, systemd.NewManager(system), logger, indicator.Config{
		Interval: indicator.DefaultInterval,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Indicator started", "item", item.Name(), "icons", theme.Dir())

	reconciler.Run(ctx)

	logger.Info("Indicator stopped")

	return nil
}

// connectSystemBus connects to the bus of the service manager. The address
// can be overridden with DBUS_SYSTEM_BUS_ADDRESS.
func connectSystemBus() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	return conn, nil
}

// connectSessionBus connects to the bus of the tray host. The address can be
// overridden with DBUS_SESSION_BUS_ADDRESS.
func connectSessionBus() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	return conn, nil
}
