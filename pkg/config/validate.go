// pkg/config/validate.go

package config

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/stackphase/envault/pkg/envault_err"
)

var phaseAppNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Regex validations are not expressible with builtin tags.
	if err := v.RegisterValidation("phaseappname", func(fl validator.FieldLevel) bool {
		return phaseAppNameRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateMapping performs structural (non-recursive) validation of the root
// mapping file. Violations are errors, not warnings.
func ValidateMapping(m *RootMapping) error {
	if m.Version == "" {
		return envault_err.New(envault_err.KindConfigSchema,
			"root mapping is missing required field %q", "version")
	}
	if m.Apps == nil {
		return envault_err.New(envault_err.KindConfigSchema,
			"root mapping is missing required field %q", "apps").
			WithSuggestion(`add an "apps": {} object even if it is empty`)
	}

	for bucket, entries := range map[string]map[string]AppEntry{"apps": m.Apps, "packages": m.Packages} {
		for name, e := range entries {
			if err := validateEntry(bucket, name, &e); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateEntry(bucket, name string, e *AppEntry) error {
	if e.PhaseAppName == "" {
		return envault_err.New(envault_err.KindConfigSchema,
			"%s entry %q is missing phaseAppName", bucket, name)
	}
	if !phaseAppNameRe.MatchString(e.PhaseAppName) {
		return envault_err.New(envault_err.KindConfigSchema,
			"%s entry %q has invalid phaseAppName %q", bucket, name, e.PhaseAppName).
			WithSuggestion("use only letters, digits, dots, underscores and hyphens")
	}
	if e.Environment != "" && !Environment(e.Environment).Valid() {
		return envault_err.New(envault_err.KindConfigSchema,
			"%s entry %q has invalid environment %q (want development, staging or production)",
			bucket, name, e.Environment)
	}
	if e.Timeout != nil && (*e.Timeout < MinTimeoutMs || *e.Timeout > MaxTimeoutMs) {
		return envault_err.New(envault_err.KindConfigSchema,
			"%s entry %q has timeout %d out of range [%d, %d]",
			bucket, name, *e.Timeout, MinTimeoutMs, MaxTimeoutMs)
	}
	if e.Retries != nil && (*e.Retries < MinRetries || *e.Retries > MaxRetries) {
		return envault_err.New(envault_err.KindConfigSchema,
			"%s entry %q has retries %d out of range [%d, %d]",
			bucket, name, *e.Retries, MinRetries, MaxRetries)
	}
	return nil
}

// CheckMapping runs business-rule checks after structural validation.
// A duplicate phaseAppName across distinct entries signals likely
// secret-sharing; that is suspicious but not inherently invalid, so it
// degrades to a warning.
func CheckMapping(m *RootMapping) []string {
	seen := make(map[string][]string)
	for name, e := range m.Apps {
		seen[e.PhaseAppName] = append(seen[e.PhaseAppName], "apps/"+name)
	}
	for name, e := range m.Packages {
		seen[e.PhaseAppName] = append(seen[e.PhaseAppName], "packages/"+name)
	}

	var warnings []string
	for phaseName, owners := range seen {
		if len(owners) > 1 {
			sort.Strings(owners)
			warnings = append(warnings, fmt.Sprintf(
				"phaseAppName %q is shared by %v; these entries will read the same secrets",
				phaseName, owners))
		}
	}
	sort.Strings(warnings)
	return warnings
}

// ValidateResolved checks the merged configuration against field bounds.
func ValidateResolved(cfg *ResolvedConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return envault_err.Wrap(envault_err.KindConfigSchema, err,
			"resolved configuration for %q is invalid", cfg.AppName)
	}
	return nil
}
