// pkg/config/settings.go
//
// Tool-level settings: knobs of envault itself, as opposed to the per-app
// configuration resolved from the monorepo. Sourced from ENVAULT_* variables
// and an optional envault.yaml, via viper.

package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Settings holds process-wide envault options.
type Settings struct {
	// OrgPrefix seeds synthesized phase app names.
	OrgPrefix string `mapstructure:"org_prefix"`

	// RemoteBaseURL is the Phase-style secret service endpoint.
	RemoteBaseURL string `mapstructure:"remote_base_url"`

	// SecretBackend selects the remote store: "phase" or "vault".
	SecretBackend string `mapstructure:"secret_backend"`

	// RemoteEnabled gates remote fetching entirely.
	RemoteEnabled bool `mapstructure:"remote_enabled"`

	// VaultMount is the KV v2 mount used by the vault backend.
	VaultMount string `mapstructure:"vault_mount"`

	// CacheMaxBytes bounds secret-cache memory.
	CacheMaxBytes int64 `mapstructure:"cache_max_bytes"`

	// CacheTTLSeconds bounds secret-cache entry lifetime.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// LoadSettings builds Settings from defaults, an optional envault.yaml in
// searchDirs, and ENVAULT_* environment variables (highest precedence).
func LoadSettings(searchDirs ...string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("org_prefix", "Phase")
	v.SetDefault("remote_base_url", "https://api.phase.dev")
	v.SetDefault("secret_backend", "phase")
	v.SetDefault("remote_enabled", true)
	v.SetDefault("vault_mount", "secret")
	v.SetDefault("cache_max_bytes", int64(10*1024*1024))
	v.SetDefault("cache_ttl_seconds", 300)

	v.SetEnvPrefix("ENVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("envault")
	v.SetConfigType("yaml")
	for _, dir := range searchDirs {
		v.AddConfigPath(dir)
	}
	if len(searchDirs) > 0 {
		// Missing file is fine; a malformed one is not.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefaultSettings returns settings with no file or environment applied.
func DefaultSettings() *Settings {
	s, _ := LoadSettings()
	return s
}
