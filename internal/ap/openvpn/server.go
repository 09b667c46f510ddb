// Package openvpn places the OpenVPN server configuration and certificate
// material for an attachment point. It never generates key material; the
// bundle must be produced beforehand.
package openvpn

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/juagargi/scion-box/internal/ap/tokens"
)

// Placeholder tokens recognized by the server configuration template
const (
	TokenPort    = "_PORT_"
	TokenSrvName = "_SRVNAME_"
	TokenASName  = "_ASNAME_"
	TokenNetwork = "_NETWORK_"
	TokenSubnet  = "_SUBNET_"
	TokenUser    = "_USER_"
)

// ServerData holds the values substituted into the server template
type ServerData struct {
	Port        int
	ServiceName string
	ASName      string
	Network     string
	Netmask     string
	User        string
}

func (d ServerData) tokenValues() map[string]string {
	return map[string]string{
		TokenPort:    strconv.Itoa(d.Port),
		TokenSrvName: d.ServiceName,
		TokenASName:  d.ASName,
		TokenNetwork: d.Network,
		TokenSubnet:  d.Netmask,
		TokenUser:    d.User,
	}
}

// RenderServerConfig renders the template at templatePath with data. Every
// recognized token is replaced verbatim; leftover tokens are an error.
func RenderServerConfig(templatePath string, data ServerData) (string, error) {
	return tokens.RenderFile(templatePath, data.tokenValues())
}

// InstallServerConfig renders the template and installs it into targetDir as
// <service>.conf. The rendered config is written to a temporary file in the
// target directory first and moved into place with a rename, so the daemon
// never sees a half-written config.
func InstallServerConfig(templatePath, targetDir string, data ServerData) (string, error) {
	rendered, err := RenderServerConfig(templatePath, data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(targetDir, "."+data.ServiceName+".conf.*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary config: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(rendered); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temporary config: %w", err)
	}

	target := filepath.Join(targetDir, data.ServiceName+".conf")
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move config into place: %w", err)
	}

	return target, nil
}
