package config

import (
	"path/filepath"

	"github.com/juagargi/scion-box/internal/ap/state"
)

// Defaults for invocation parameters
const (
	DefaultPort           = 1194
	DefaultNetwork        = "10.0.8.0"
	DefaultNetmask        = "255.255.255.0"
	DefaultServiceName    = "server"
	DefaultCoordinatorURL = "https://www.scionlab.org"
)

// Input file names expected in the invocation directory
const (
	ServerTemplateFile      = "server.conf.tmpl"
	UpdaterServiceTemplate  = "scionlab-updater.service.tmpl"
	UpdaterTimerTemplate    = "scionlab-updater.timer.tmpl"
	UpdaterRequirementsFile = "requirements.txt"
)

// CertBundleFiles are the four certificate-bundle files the OpenVPN server
// needs. as.key is the private key and gets owner-only permissions.
var CertBundleFiles = []string{"ca.crt", "dh.pem", "as.crt", "as.key"}

// UpdaterProgramFiles are the updater program files staged into the user's
// local bin directory.
var UpdaterProgramFiles = []string{"update_gen.py", "local_config_util.py"}

// Unit names of the periodic update-generator job
const (
	UpdaterUnitBase   = "scionlab-updater"
	LegacyUpdaterUnit = "scion-update-gen"
)

// Params holds the invocation parameters of a provisioning run
type Params struct {
	IA             string `mapstructure:"ia"`
	AccountID      string `mapstructure:"account_id"`
	AccountSecret  string `mapstructure:"account_secret"`
	ServiceName    string `mapstructure:"service_name"`
	Port           int    `mapstructure:"port"`
	Network        string `mapstructure:"network"`
	Netmask        string `mapstructure:"netmask"`
	CoordinatorURL string `mapstructure:"coordinator_url"`
	SkipVPN        bool   `mapstructure:"skip_vpn"`
	Container      bool   `mapstructure:"container"`
	User           string `mapstructure:"user"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
}

// VPNRequired reports whether the OpenVPN side of the installation runs.
// Container mode implies skipping the VPN.
func (p *Params) VPNRequired() bool {
	return !p.SkipVPN && !p.Container
}

// VPNServiceUnit is the systemd instance name of the OpenVPN service
func (p *Params) VPNServiceUnit() string {
	return "openvpn@" + p.ServiceName + ".service"
}

// Paths holds every host path the installer touches. Tests point these at
// temporary directories.
type Paths struct {
	InputDir        string `mapstructure:"input_dir"`
	OpenVPNDir      string `mapstructure:"openvpn_dir"`
	ClientConfigDir string `mapstructure:"client_config_dir"`
	SysctlConf      string `mapstructure:"sysctl_conf"`
	StateDir        string `mapstructure:"state_dir"`
	SystemdDir      string `mapstructure:"systemd_dir"`
	BinDir          string `mapstructure:"bin_dir"`
	HistoryDB       string `mapstructure:"history_db"`
	LockFile        string `mapstructure:"lock_file"`
}

// DefaultPaths returns the production layout. home is the invoking user's
// home directory, used for the local bin path.
func DefaultPaths(home string) Paths {
	return Paths{
		InputDir:        ".",
		OpenVPNDir:      "/etc/openvpn",
		ClientConfigDir: "/etc/openvpn/ccd",
		SysctlConf:      "/etc/sysctl.conf",
		StateDir:        state.DefaultDir,
		SystemdDir:      "/etc/systemd/system",
		BinDir:          filepath.Join(home, ".local", "bin"),
		HistoryDB:       "/var/lib/scionlab/history.db",
		LockFile:        "/var/lock/scion-ap.lock",
	}
}

// ServerTemplate is the path to the OpenVPN server configuration template
func (p Paths) ServerTemplate() string {
	return filepath.Join(p.InputDir, ServerTemplateFile)
}

// CertBundle returns the paths of the four certificate-bundle files
func (p Paths) CertBundle() []string {
	paths := make([]string, 0, len(CertBundleFiles))
	for _, name := range CertBundleFiles {
		paths = append(paths, filepath.Join(p.InputDir, name))
	}
	return paths
}

// UpdaterFiles returns the paths of the updater program files
func (p Paths) UpdaterFiles() []string {
	paths := make([]string, 0, len(UpdaterProgramFiles))
	for _, name := range UpdaterProgramFiles {
		paths = append(paths, filepath.Join(p.InputDir, name))
	}
	return paths
}

// Requirements is the path to the updater runtime dependency manifest
func (p Paths) Requirements() string {
	return filepath.Join(p.InputDir, UpdaterRequirementsFile)
}

// UnitTemplates returns the paths of the timer and service unit templates
func (p Paths) UnitTemplates() []string {
	return []string{
		filepath.Join(p.InputDir, UpdaterServiceTemplate),
		filepath.Join(p.InputDir, UpdaterTimerTemplate),
	}
}
