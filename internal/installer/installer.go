// Package installer implements the attachment-point provisioning procedure
// as an ordered pipeline of idempotent steps. A run either completes every
// step or aborts at the first failure; re-invocation is the recovery
// mechanism.
package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/juagargi/scion-box/internal/ap/config"
	"github.com/juagargi/scion-box/internal/ap/history"
	"github.com/juagargi/scion-box/internal/ap/pkgmgr"
	"github.com/juagargi/scion-box/internal/ap/state"
	"github.com/juagargi/scion-box/internal/ap/systemd"
	"github.com/juagargi/scion-box/internal/ap/updater"
	sharederrors "github.com/juagargi/scion-box/internal/shared/errors"
	"github.com/juagargi/scion-box/internal/shared/logger"
	"github.com/juagargi/scion-box/pkg/events"
)

// Installer provisions the local host as a SCIONLab attachment point
type Installer struct {
	params *config.Params
	paths  config.Paths
	logger *logger.Logger
	bus    *events.Bus

	apt            *pkgmgr.Apt
	history        *history.Store
	connectSystemd func(ctx context.Context) (systemd.Conn, error)
	pythonPath     func() (string, error)
}

// Option customizes an Installer, mostly for tests
type Option func(*Installer)

// WithAptRunner replaces the command runner driving apt and pip
func WithAptRunner(runner pkgmgr.Runner) Option {
	return func(i *Installer) {
		i.apt = pkgmgr.NewAptWithRunner(runner, i.logger.WithComponent("pkgmgr"))
	}
}

// WithSystemdConnector replaces the systemd connection factory
func WithSystemdConnector(connect func(ctx context.Context) (systemd.Conn, error)) Option {
	return func(i *Installer) { i.connectSystemd = connect }
}

// WithHistory records runs into the given history store
func WithHistory(store *history.Store) Option {
	return func(i *Installer) { i.history = store }
}

// WithPythonPath overrides runtime discovery for the unit templates
func WithPythonPath(path string) Option {
	return func(i *Installer) {
		i.pythonPath = func() (string, error) { return path, nil }
	}
}

// New creates an installer for the given parameters
func New(params *config.Params, paths config.Paths, log *logger.Logger, bus *events.Bus, opts ...Option) *Installer {
	if log == nil {
		log = logger.NewDevelopment("installer")
	}

	inst := &Installer{
		params:         params,
		paths:          paths,
		logger:         log,
		bus:            bus,
		apt:            pkgmgr.NewApt(log.WithComponent("pkgmgr")),
		connectSystemd: systemd.Connect,
		pythonPath:     updater.PythonPath,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// Run executes the provisioning procedure. The precondition check runs
// before any mutation: a missing input file fails the run with the complete
// list of missing paths. Steps then execute strictly in order, aborting on
// the first failure without rollback.
func (i *Installer) Run(ctx context.Context) error {
	runID := uuid.New().String()
	ctx = logger.WithRunID(ctx, runID)
	ctx = logger.WithASID(ctx, i.params.IA)

	lock := flock.New(i.paths.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire provisioning lock: %w", err)
	}
	if !locked {
		return sharederrors.ErrAlreadyRunning
	}
	defer lock.Unlock()

	if err := Preflight(i.paths, i.params); err != nil {
		return err
	}

	deps := stepDeps{
		params: i.params,
		paths:  i.paths,
		apt:    i.apt,
		state:  state.NewStore(i.paths.StateDir),
		stager: updater.NewStager(i.paths.BinDir, i.params.CoordinatorURL, i.logger.WithComponent("updater")),
	}

	needSystemd := i.params.VPNRequired() || !i.params.Container
	if needSystemd {
		conn, err := i.connectSystemd(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		deps.sysd = systemd.NewManager(conn, i.paths.SystemdDir, i.logger.WithComponent("systemd"))
	}

	if !i.params.Container {
		deps.pythonPath, err = i.pythonPath()
		if err != nil {
			return err
		}
	}

	startedAt := time.Now()
	i.recordRunStart(ctx, runID, startedAt)
	i.publish(ctx, events.NewEvent(events.TypeRunStarted, runID, ""))

	pipeline := NewPipeline(runID, i.logger, i.bus)
	pipeline.Add(buildSteps(deps)...)

	results, runErr := pipeline.Run(ctx)

	i.recordRunEnd(ctx, runID, results, runErr)

	if runErr != nil {
		e := events.NewEvent(events.TypeRunFailed, runID, "")
		e.Err = runErr
		i.publish(ctx, e)
		return runErr
	}

	i.publish(ctx, events.NewEvent(events.TypeRunCompleted, runID, ""))
	i.logger.InfoContext(ctx, "attachment point provisioned",
		slog.String("service", i.params.ServiceName),
		slog.Int("steps", len(results)),
		slog.Duration("elapsed", time.Since(startedAt)))
	return nil
}

// History bookkeeping is best-effort: the run must not fail because the
// audit database is unavailable.

func (i *Installer) recordRunStart(ctx context.Context, runID string, startedAt time.Time) {
	if i.history == nil {
		return
	}
	err := i.history.BeginRun(ctx, history.Run{
		ID:          runID,
		IA:          i.params.IA,
		ServiceName: i.params.ServiceName,
		StartedAt:   startedAt,
	})
	if err != nil {
		i.logger.WarnContext(ctx, "failed to record run start", "error", err)
	}
}

func (i *Installer) recordRunEnd(ctx context.Context, runID string, results []StepResult, runErr error) {
	if i.history == nil {
		return
	}

	for seq, res := range results {
		rec := history.StepRecord{
			RunID:  runID,
			Seq:    seq + 1,
			Step:   res.Step,
			Status: history.StepNoop,
			Detail: res.Outcome.Detail,
		}
		if res.Err != nil {
			rec.Status = history.StepFailed
			rec.Detail = res.Err.Error()
		} else if res.Outcome.Changed {
			rec.Status = history.StepChanged
		}
		if err := i.history.RecordStep(ctx, rec); err != nil {
			i.logger.WarnContext(ctx, "failed to record step outcome", "error", err)
		}
	}

	status := history.StatusSucceeded
	if runErr != nil {
		status = history.StatusFailed
	}
	if err := i.history.FinishRun(ctx, runID, status, time.Now()); err != nil {
		i.logger.WarnContext(ctx, "failed to record run end", "error", err)
	}
}

func (i *Installer) publish(ctx context.Context, e events.Event) {
	if i.bus == nil {
		return
	}
	if err := i.bus.Publish(ctx, e); err != nil {
		i.logger.WarnContext(ctx, "failed to publish run event", "error", err)
	}
}

// EnsureLockDir creates the parent directory of the lock file. Callers on
// hosts without /var/lock (containers mostly) run this before Run.
func EnsureLockDir(paths config.Paths) error {
	if err := os.MkdirAll(filepath.Dir(paths.LockFile), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	return nil
}
