// Package updater stages the periodic update-generator program onto the
// host. The program itself is opaque to the installer; only its location and
// the coordinator endpoint baked into it matter here.
package updater

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/juagargi/scion-box/internal/ap/tokens"
	"github.com/juagargi/scion-box/internal/shared/logger"
)

// TokenCoordinatorURL is the placeholder for the coordinator endpoint inside
// the updater program files.
const TokenCoordinatorURL = "_COORDINATOR_URL_"

// Stager copies updater program files into the user's local bin directory
type Stager struct {
	binDir         string
	coordinatorURL string
	logger         *logger.Logger
}

// NewStager creates a stager installing into binDir
func NewStager(binDir, coordinatorURL string, log *logger.Logger) *Stager {
	if log == nil {
		log = logger.NewDevelopment("updater")
	}
	return &Stager{
		binDir:         binDir,
		coordinatorURL: coordinatorURL,
		logger:         log,
	}
}

// Stage copies each program file into the bin directory, substituting the
// coordinator URL token. Program files that do not carry the token are
// copied as-is; other token-looking text inside the program is none of our
// business. Returns whether any file actually changed.
func (s *Stager) Stage(files []string) (bool, error) {
	if err := os.MkdirAll(s.binDir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create bin directory: %w", err)
	}

	changed := false
	for _, src := range files {
		raw, err := os.ReadFile(src)
		if err != nil {
			return changed, fmt.Errorf("failed to read updater file %s: %w", src, err)
		}

		rendered, _ := tokens.Render(string(raw), map[string]string{
			TokenCoordinatorURL: s.coordinatorURL,
		})

		target := filepath.Join(s.binDir, filepath.Base(src))
		if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, []byte(rendered)) {
			continue
		}

		if err := os.WriteFile(target, []byte(rendered), 0o755); err != nil {
			return changed, fmt.Errorf("failed to stage updater file %s: %w", target, err)
		}
		changed = true
		s.logger.Debug("staged updater file", slog.String("target", target))
	}

	return changed, nil
}

// PythonPath locates the runtime that executes the updater. The path is
// substituted into the service unit.
func PythonPath() (string, error) {
	path, err := exec.LookPath("python3")
	if err != nil {
		return "", fmt.Errorf("python3 not found in PATH: %w", err)
	}
	return path, nil
}
