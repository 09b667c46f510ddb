// Package pkgmgr wraps the host package managers (apt/dpkg for system
// packages, pip for the updater runtime) behind a small interface so
// provisioning steps can be tested without touching the host.
package pkgmgr

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/juagargi/scion-box/internal/shared/logger"
)

// Runner executes an external command and returns its combined output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec
type ExecRunner struct{}

// Run executes the command and returns stdout and stderr combined
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Apt manages Debian packages and the pip-based updater runtime
type Apt struct {
	runner Runner
	logger *logger.Logger
}

// NewApt creates a package manager using the real exec runner
func NewApt(log *logger.Logger) *Apt {
	return NewAptWithRunner(ExecRunner{}, log)
}

// NewAptWithRunner creates a package manager with a custom runner, used in tests
func NewAptWithRunner(runner Runner, log *logger.Logger) *Apt {
	if log == nil {
		log = logger.NewDevelopment("pkgmgr")
	}
	return &Apt{runner: runner, logger: log}
}

// Installed reports whether the package is installed according to dpkg.
// dpkg-query exits non-zero for unknown packages, which simply means "not
// installed" here.
func (a *Apt) Installed(ctx context.Context, pkg string) (bool, error) {
	out, err := a.runner.Run(ctx, "dpkg-query", "-W", "-f=${Status}", pkg)
	if err != nil {
		return false, nil
	}
	return strings.Contains(string(out), "install ok installed"), nil
}

// Install installs the package non-interactively
func (a *Apt) Install(ctx context.Context, pkg string) error {
	a.logger.InfoContext(ctx, "installing package", slog.String("package", pkg))

	out, err := a.runner.Run(ctx, "apt-get", "install", "-y", pkg)
	if err != nil {
		return fmt.Errorf("apt-get install %s failed: %w, output: %s", pkg, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// EnsureInstalled installs the package when missing and reports whether an
// installation happened.
func (a *Apt) EnsureInstalled(ctx context.Context, pkg string) (bool, error) {
	installed, err := a.Installed(ctx, pkg)
	if err != nil {
		return false, err
	}
	if installed {
		a.logger.DebugContext(ctx, "package already installed", slog.String("package", pkg))
		return false, nil
	}

	if err := a.Install(ctx, pkg); err != nil {
		return false, err
	}
	return true, nil
}

// InstallPipRequirements installs the updater runtime dependency manifest for
// the invoking user.
func (a *Apt) InstallPipRequirements(ctx context.Context, requirementsPath string) error {
	a.logger.InfoContext(ctx, "installing updater runtime requirements",
		slog.String("requirements", requirementsPath))

	out, err := a.runner.Run(ctx, "python3", "-m", "pip", "install", "--user", "-r", requirementsPath)
	if err != nil {
		return fmt.Errorf("pip install failed: %w, output: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
