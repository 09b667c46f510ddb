package openvpn

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureClientConfigDir creates the client-config directory used to assign
// static addresses to VPN users. Returns whether it had to be created.
func EnsureClientConfigDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("client-config path %s exists and is not a directory", dir)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat client-config directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create client-config directory: %w", err)
	}
	return true, nil
}

// WriteClientConfig assigns a static VPN address to a user by writing an
// ifconfig-push directive into the client-config directory. The file name is
// the user's certificate common name, so OpenVPN picks it up on connect.
func WriteClientConfig(ccdDir, user, ip, netmask string) (string, error) {
	if user == "" {
		return "", fmt.Errorf("user must not be empty")
	}
	if strings.ContainsAny(user, "/\\") {
		return "", fmt.Errorf("invalid user name %q", user)
	}

	if _, err := EnsureClientConfigDir(ccdDir); err != nil {
		return "", err
	}

	path := filepath.Join(ccdDir, user)
	content := fmt.Sprintf("ifconfig-push %s %s\n", ip, netmask)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write client config for %s: %w", user, err)
	}

	return path, nil
}
