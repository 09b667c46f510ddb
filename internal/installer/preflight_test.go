package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juagargi/scion-box/internal/ap/config"
	sharederrors "github.com/juagargi/scion-box/internal/shared/errors"
)

// inputFiles is the complete set of installer inputs
var inputFiles = []string{
	"ca.crt", "dh.pem", "as.crt", "as.key",
	config.ServerTemplateFile,
	"update_gen.py", "local_config_util.py",
	config.UpdaterRequirementsFile,
	config.UpdaterServiceTemplate,
	config.UpdaterTimerTemplate,
}

func writeInputs(t *testing.T, dir string, names ...string) {
	t.Helper()
	if len(names) == 0 {
		names = inputFiles
	}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content"), 0o644))
	}
}

func testPaths(t *testing.T) config.Paths {
	t.Helper()
	root := t.TempDir()
	return config.Paths{
		InputDir:        filepath.Join(root, "input"),
		OpenVPNDir:      filepath.Join(root, "etc", "openvpn"),
		ClientConfigDir: filepath.Join(root, "etc", "openvpn", "ccd"),
		SysctlConf:      filepath.Join(root, "etc", "sysctl.conf"),
		StateDir:        filepath.Join(root, "etc", "scionlab"),
		SystemdDir:      filepath.Join(root, "etc", "systemd", "system"),
		BinDir:          filepath.Join(root, "home", ".local", "bin"),
		HistoryDB:       filepath.Join(root, "var", "history.db"),
		LockFile:        filepath.Join(root, "var", "scion-ap.lock"),
	}
}

func TestPreflightAllPresent(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.InputDir, 0o755))
	writeInputs(t, paths.InputDir)

	params := &config.Params{ServiceName: "server"}
	assert.NoError(t, Preflight(paths, params))
}

func TestPreflightReportsAllMissingFiles(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.InputDir, 0o755))
	// only the updater side is present
	writeInputs(t, paths.InputDir,
		"update_gen.py", "local_config_util.py",
		config.UpdaterRequirementsFile,
		config.UpdaterServiceTemplate,
		config.UpdaterTimerTemplate)

	params := &config.Params{ServiceName: "server"}
	missing := MissingInputs(paths, params)

	expected := []string{
		filepath.Join(paths.InputDir, config.ServerTemplateFile),
		filepath.Join(paths.InputDir, "ca.crt"),
		filepath.Join(paths.InputDir, "dh.pem"),
		filepath.Join(paths.InputDir, "as.crt"),
		filepath.Join(paths.InputDir, "as.key"),
	}
	assert.Equal(t, expected, missing)

	err := Preflight(paths, params)
	require.Error(t, err)
	assert.True(t, sharederrors.IsPrecondition(err))
	for _, path := range expected {
		assert.Contains(t, err.Error(), path)
	}
}

func TestPreflightSkipVPNIgnoresCertBundle(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.InputDir, 0o755))
	writeInputs(t, paths.InputDir,
		"update_gen.py", "local_config_util.py",
		config.UpdaterRequirementsFile,
		config.UpdaterServiceTemplate,
		config.UpdaterTimerTemplate)

	params := &config.Params{ServiceName: "server", SkipVPN: true}
	assert.NoError(t, Preflight(paths, params))
}

func TestPreflightContainerIgnoresUnitTemplates(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.InputDir, 0o755))
	writeInputs(t, paths.InputDir,
		"update_gen.py", "local_config_util.py",
		config.UpdaterRequirementsFile)

	params := &config.Params{ServiceName: "server", Container: true, SkipVPN: true}
	assert.NoError(t, Preflight(paths, params))
}
