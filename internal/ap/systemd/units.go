package systemd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/juagargi/scion-box/internal/ap/tokens"
)

// Placeholder tokens recognized by the unit-descriptor templates
const (
	TokenUser    = "_USER_"
	TokenBinPath = "_BINPATH_"
)

// UnitData holds the values substituted into unit templates
type UnitData struct {
	User    string // owning user of the periodic job
	BinPath string // path to the runtime executing the updater
}

func (d UnitData) tokenValues() map[string]string {
	return map[string]string{
		TokenUser:    d.User,
		TokenBinPath: d.BinPath,
	}
}

// RenderUnit renders a unit-descriptor template
func RenderUnit(templatePath string, data UnitData) (string, error) {
	return tokens.RenderFile(templatePath, data.tokenValues())
}

// InstallUnits renders each template and writes it into the manager's unit
// directory, dropping the .tmpl suffix from the file name. Returns the names
// of the installed units. The caller is expected to daemon-reload afterwards.
func (m *Manager) InstallUnits(templatePaths []string, data UnitData) ([]string, error) {
	if err := os.MkdirAll(m.unitDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create unit directory: %w", err)
	}

	var installed []string
	for _, templatePath := range templatePaths {
		rendered, err := RenderUnit(templatePath, data)
		if err != nil {
			return installed, err
		}

		name := strings.TrimSuffix(filepath.Base(templatePath), ".tmpl")
		target := filepath.Join(m.unitDir, name)
		if err := os.WriteFile(target, []byte(rendered), 0o644); err != nil {
			return installed, fmt.Errorf("failed to install unit %s: %w", name, err)
		}
		installed = append(installed, name)
	}

	return installed, nil
}
