// Package systemd installs and controls the init-system units of an
// attachment point: the OpenVPN service instance and the periodic
// update-generator timer.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/juagargi/scion-box/internal/shared/logger"
)

// Conn is the subset of the systemd D-Bus connection the installer needs.
// *dbus.Conn satisfies it; tests provide fakes.
type Conn interface {
	StartUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	EnableUnitFilesContext(ctx context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error)
	DisableUnitFilesContext(ctx context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error)
	ReloadContext(ctx context.Context) error
	ResetFailedUnitContext(ctx context.Context, name string) error
	Close()
}

// Connect opens a connection to the system bus
func Connect(ctx context.Context) (Conn, error) {
	conn, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return conn, nil
}

// Manager drives unit installation and service control
type Manager struct {
	conn    Conn
	unitDir string
	logger  *logger.Logger
}

// NewManager creates a manager installing units into unitDir
func NewManager(conn Conn, unitDir string, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDevelopment("systemd")
	}
	return &Manager{conn: conn, unitDir: unitDir, logger: log}
}

// RestartService stops the unit if it runs and starts it again. A failing
// stop only means the unit was not running and is ignored; a failing start
// is fatal.
func (m *Manager) RestartService(ctx context.Context, unit string) error {
	_, _ = m.conn.StopUnitContext(ctx, unit, "replace", nil)

	return m.start(ctx, unit)
}

// EnableService enables the unit so it starts on boot
func (m *Manager) EnableService(ctx context.Context, unit string) error {
	_, _, err := m.conn.EnableUnitFilesContext(ctx, []string{unit}, false, true)
	if err != nil {
		return fmt.Errorf("failed to enable %s: %w", unit, err)
	}
	return nil
}

// Reload asks systemd to re-read unit files
func (m *Manager) Reload(ctx context.Context) error {
	if err := m.conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon-reload failed: %w", err)
	}
	return nil
}

// EnableAndStartTimer enables the named timer unit and starts it
func (m *Manager) EnableAndStartTimer(ctx context.Context, base string) error {
	timer := base + ".timer"

	if err := m.EnableService(ctx, timer); err != nil {
		return err
	}
	return m.start(ctx, timer)
}

// RemoveLegacyJob removes a previously installed periodic job by its unit
// base name. Everything here is best-effort: a host that never had the
// legacy job must not fail provisioning. Reports whether any unit file was
// removed.
func (m *Manager) RemoveLegacyJob(ctx context.Context, base string) bool {
	units := []string{base + ".timer", base + ".service"}

	for _, unit := range units {
		_, _ = m.conn.StopUnitContext(ctx, unit, "replace", nil)
		_ = m.conn.ResetFailedUnitContext(ctx, unit)
	}
	_, _ = m.conn.DisableUnitFilesContext(ctx, units, false)

	removed := false
	for _, unit := range units {
		path := filepath.Join(m.unitDir, unit)
		if err := os.Remove(path); err == nil {
			removed = true
			m.logger.DebugContext(ctx, "removed legacy unit file", slog.String("path", path))
		}
	}

	return removed
}

func (m *Manager) start(ctx context.Context, unit string) error {
	done := make(chan string, 1)
	if _, err := m.conn.StartUnitContext(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("failed to start %s: %w", unit, err)
	}

	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("start job for %s finished with result %q", unit, result)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	m.logger.DebugContext(ctx, "unit started", slog.String("unit", unit))
	return nil
}
