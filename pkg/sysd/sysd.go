/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package sysd manages node services through the systemd D-Bus API.
package sysd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coreos/go-systemd/v22/dbus"
)

// ActiveStateActive is the systemd ActiveState for a running unit.
const ActiveStateActive = "active"

// Manager controls a node's service state. The production implementation
// talks to systemd; tests substitute fakes.
type Manager interface {
	// GetActiveState returns the unit's ActiveState ("active", "inactive",
	// "failed", ...).
	GetActiveState(ctx context.Context, unit string) (string, error)

	// Start starts the unit and waits for the job to finish.
	Start(ctx context.Context, unit string) error

	// Restart restarts the unit and waits for the job to finish.
	Restart(ctx context.Context, unit string) error
}

// DBusManager implements Manager over the system D-Bus.
type DBusManager struct {
	conn *dbus.Conn
}

// NewDBusManager connects to the system bus. The caller owns the connection
// and should Close it when the run finishes.
func NewDBusManager(ctx context.Context) (*DBusManager, error) {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &DBusManager{conn: conn}, nil
}

// Close releases the D-Bus connection.
func (m *DBusManager) Close() {
	m.conn.Close()
}

// GetActiveState implements Manager.
func (m *DBusManager) GetActiveState(ctx context.Context, unit string) (string, error) {
	prop, err := m.conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
	if err != nil {
		return "", fmt.Errorf("failed to query ActiveState of %q: %w", unit, err)
	}

	state, ok := prop.Value.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected ActiveState type %T for %q", prop.Value.Value(), unit)
	}
	return state, nil
}

// Start implements Manager.
func (m *DBusManager) Start(ctx context.Context, unit string) error {
	return m.runJob(ctx, unit, "start", m.conn.StartUnitContext)
}

// Restart implements Manager.
func (m *DBusManager) Restart(ctx context.Context, unit string) error {
	return m.runJob(ctx, unit, "restart", m.conn.RestartUnitContext)
}

type jobFunc func(ctx context.Context, name, mode string, ch chan<- string) (int, error)

func (m *DBusManager) runJob(ctx context.Context, unit, verb string, job jobFunc) error {
	done := make(chan string, 1)
	if _, err := job(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("failed to %s %q: %w", verb, unit, err)
	}

	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("%s of %q finished with result %q", verb, unit, result)
		}
		slog.Debug("systemd job finished", slog.String("unit", unit), slog.String("verb", verb))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
