package openvpn

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTemplate = `port _PORT_
proto udp
dev tun
server _NETWORK_ _SUBNET_
user _USER_
status /var/log/openvpn-status-_SRVNAME_.log
# attachment point _ASNAME_
client-config-dir ccd
`

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.conf.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testData() ServerData {
	return ServerData{
		Port:        1194,
		ServiceName: "server",
		ASName:      "1-17",
		Network:     "10.0.8.0",
		Netmask:     "255.255.255.0",
		User:        "scion",
	}
}

func TestRenderServerConfig(t *testing.T) {
	path := writeTemplate(t, testTemplate)

	rendered, err := RenderServerConfig(path, testData())
	require.NoError(t, err)

	assert.Contains(t, rendered, "port 1194")
	assert.Contains(t, rendered, "server 10.0.8.0 255.255.255.0")
	assert.Contains(t, rendered, "user scion")
	assert.Contains(t, rendered, "openvpn-status-server.log")
	assert.Contains(t, rendered, "attachment point 1-17")
	assert.NotContains(t, rendered, "_PORT_")
	assert.NotContains(t, rendered, "_SRVNAME_")
}

func TestRenderServerConfigUnresolvedToken(t *testing.T) {
	path := writeTemplate(t, testTemplate+"push \"route _GATEWAY_\"\n")

	_, err := RenderServerConfig(path, testData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "_GATEWAY_")
}

func TestInstallServerConfig(t *testing.T) {
	templatePath := writeTemplate(t, testTemplate)
	targetDir := filepath.Join(t.TempDir(), "openvpn")

	target, err := InstallServerConfig(templatePath, targetDir, testData())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(targetDir, "server.conf"), target)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(content), "port 1194")

	// no temp files left behind
	entries, err := os.ReadDir(targetDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// re-install overwrites atomically
	_, err = InstallServerConfig(templatePath, targetDir, testData())
	require.NoError(t, err)
	entries, err = os.ReadDir(targetDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyCertBundle(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "openvpn")

	files := []string{"ca.crt", "dh.pem", "as.crt", "as.key"}
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), []byte(name+" material"), 0o644))
	}

	require.NoError(t, CopyCertBundle(srcDir, dstDir, files))

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dstDir, name))
		require.NoError(t, err)
		assert.Equal(t, name+" material", string(content))
	}

	keyInfo, err := os.Stat(filepath.Join(dstDir, "as.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), keyInfo.Mode().Perm())

	caInfo, err := os.Stat(filepath.Join(dstDir, "ca.crt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), caInfo.Mode().Perm())
}

func TestCopyCertBundleMissingSource(t *testing.T) {
	err := CopyCertBundle(t.TempDir(), t.TempDir(), []string{"ca.crt"})
	assert.Error(t, err)
}

func TestEnsureClientConfigDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ccd")

	created, err := EnsureClientConfigDir(dir)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureClientConfigDir(dir)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestWriteClientConfig(t *testing.T) {
	ccd := filepath.Join(t.TempDir(), "ccd")

	path, err := WriteClientConfig(ccd, "user_1-17", "10.0.8.42", "255.255.255.0")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ifconfig-push 10.0.8.42 255.255.255.0\n", string(content))

	_, err = WriteClientConfig(ccd, "", "10.0.8.42", "255.255.255.0")
	assert.Error(t, err)

	_, err = WriteClientConfig(ccd, "../evil", "10.0.8.42", "255.255.255.0")
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid user name"))
}
