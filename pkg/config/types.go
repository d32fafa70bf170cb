// pkg/config/types.go

package config

import "time"

// Environment is one of the three canonical logical environments.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Valid reports whether e is one of the canonical values.
func (e Environment) Valid() bool {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	}
	return false
}

// ValidationMode controls whether warnings invalidate a run.
type ValidationMode string

const (
	ModeStrict  ValidationMode = "strict"
	ModeLenient ValidationMode = "lenient"
)

const (
	// RootMappingFile is the monorepo-root marker and mapping file.
	RootMappingFile = "phase.apps.json"

	// ManifestFile is the per-directory descriptor; the app entry lives
	// under ManifestKey inside it.
	ManifestFile = "package.json"
	ManifestKey  = "phase"

	// Bounds enforced on merged numeric fields. Out-of-bounds is an
	// error, not a warning.
	MinTimeoutMs = 1000
	MaxTimeoutMs = 30000
	MinRetries   = 0
	MaxRetries   = 10
)

// Hard-coded defaults layer, lowest precedence.
const (
	DefaultEnvironment    = EnvDevelopment
	DefaultValidationMode = ModeLenient
	DefaultTimeoutMs      = 5000
	DefaultRetries        = 2
)

// ValidationOpts is the optional validation block of an AppEntry.
type ValidationOpts struct {
	Strict *bool `json:"strict,omitempty"`
}

// AppEntry is one partial configuration layer: an apps/packages entry of the
// root mapping, the root-level defaults block, or a per-directory manifest.
// Pointer fields distinguish "absent" from zero so the merge can skip nulls.
type AppEntry struct {
	PhaseAppName     string          `json:"phaseAppName,omitempty"`
	Environment      string          `json:"environment,omitempty"`
	FallbackEnvFiles []string        `json:"fallbackEnvFiles,omitempty"`
	Validation       *ValidationOpts `json:"validation,omitempty"`
	Timeout          *int            `json:"timeout,omitempty"`
	Retries          *int            `json:"retries,omitempty"`
}

// RootMapping is the parsed shape of the root mapping file.
type RootMapping struct {
	Version  string              `json:"version"`
	Apps     map[string]AppEntry `json:"apps"`
	Packages map[string]AppEntry `json:"packages"`
	Defaults *AppEntry           `json:"defaults,omitempty"`
}

// ResolvedConfig is a fully-specified configuration for one application.
// Every field is non-null after Resolve; unset inputs fall through to the
// hard-coded default layer.
type ResolvedConfig struct {
	AppName          string         `json:"appName" validate:"required"`
	PhaseAppName     string         `json:"phaseAppName" validate:"required,phaseappname"`
	Environment      Environment    `json:"environment" validate:"oneof=development staging production"`
	FallbackEnvFiles []string       `json:"fallbackEnvFiles"`
	ValidationMode   ValidationMode `json:"validationMode" validate:"oneof=strict lenient"`
	TimeoutMs        int            `json:"timeoutMs" validate:"min=1000,max=30000"`
	Retries          int            `json:"retries" validate:"min=0,max=10"`
}

// Timeout returns the remote-fetch timeout as a duration.
func (c *ResolvedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Strict reports whether validation warnings should invalidate the run.
func (c *ResolvedConfig) Strict() bool {
	return c.ValidationMode == ModeStrict
}
