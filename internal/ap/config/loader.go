package config

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/viper"

	"github.com/juagargi/scion-box/internal/ap/state"
	sharederrors "github.com/juagargi/scion-box/internal/shared/errors"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// Load loads parameters from the optional config file and environment
// variables, on top of the built-in defaults. Flag overrides are applied by
// the CLI afterwards, giving the precedence flag > env > file > default.
func (l *Loader) Load() (*Params, error) {
	l.setDefaults()
	l.setupConfigPaths()
	l.setupEnvVars()

	// Config file is optional
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var params Params
	if err := l.v.Unmarshal(&params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.validate(&params); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &params, nil
}

// setDefaults sets default parameter values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("service_name", DefaultServiceName)
	l.v.SetDefault("port", DefaultPort)
	l.v.SetDefault("network", DefaultNetwork)
	l.v.SetDefault("netmask", DefaultNetmask)
	l.v.SetDefault("coordinator_url", DefaultCoordinatorURL)
	l.v.SetDefault("skip_vpn", false)
	l.v.SetDefault("container", false)
	l.v.SetDefault("user", invokingUser())
	l.v.SetDefault("log_level", "info")
	l.v.SetDefault("log_format", "text")
}

// setupConfigPaths configures where to search for config files.
func (l *Loader) setupConfigPaths() {
	l.v.SetConfigName("scionlab")
	l.v.SetConfigType("yaml")

	// Search paths in priority order
	l.v.AddConfigPath("/etc/scionlab")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath(".")
}

// setupEnvVars configures environment variable handling.
func (l *Loader) setupEnvVars() {
	l.v.SetEnvPrefix("SCIONLAB")
	l.v.AutomaticEnv()

	// The identity parameters have no default value, so viper only learns
	// about these keys through an explicit binding. Without it, Unmarshal
	// never consults SCIONLAB_IA and friends.
	l.v.BindEnv("ia")
	l.v.BindEnv("account_id")
	l.v.BindEnv("account_secret")
}

// validate checks values that have valid ranges regardless of mode.
func (l *Loader) validate(params *Params) error {
	if params.Port < 1 || params.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d",
			sharederrors.ErrInvalidConfig, params.Port)
	}

	if params.ServiceName == "" {
		return fmt.Errorf("%w: service_name must not be empty", sharederrors.ErrInvalidConfig)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[params.LogLevel] {
		return fmt.Errorf("%w: invalid log_level: %s (must be debug, info, warn, or error)",
			sharederrors.ErrInvalidConfig, params.LogLevel)
	}

	if params.LogFormat != "text" && params.LogFormat != "json" {
		return fmt.Errorf("%w: invalid log_format: %s (must be text or json)",
			sharederrors.ErrInvalidConfig, params.LogFormat)
	}

	return nil
}

// Resolve fills missing identity parameters from previously persisted state
// files and enforces the mandatory-parameter rules. Explicit values always
// win over persisted ones.
func Resolve(params *Params, st *state.Store) error {
	// Container mode implies skipping the VPN installation
	if params.Container {
		params.SkipVPN = true
	}

	fallbacks := []struct {
		value *string
		file  string
	}{
		{&params.IA, state.FileIA},
		{&params.AccountID, state.FileAccountID},
		{&params.AccountSecret, state.FileAccountSecret},
	}
	for _, fb := range fallbacks {
		if *fb.value != "" {
			continue
		}
		persisted, err := st.Read(fb.file)
		if err != nil {
			return err
		}
		*fb.value = persisted
	}

	if !params.VPNRequired() {
		return nil
	}

	if params.IA == "" {
		return sharederrors.NewUsageError("--as", "")
	}
	if params.AccountID == "" {
		return sharederrors.NewUsageError("--account-id", "not given and no persisted account_id found")
	}
	if params.AccountSecret == "" {
		return sharederrors.NewUsageError("--account-secret", "not given and no persisted account_secret found")
	}

	return nil
}

// invokingUser returns the user the installer runs for: SUDO_USER when the
// tool is run through sudo, otherwise the current user.
func invokingUser() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		return sudoUser
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}
