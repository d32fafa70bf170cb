// pkg/config/envoverride.go
//
// Environment-name overrides read from the ambient environment. Precedence,
// highest first: per-namespace variable, compact multi-namespace map,
// global override, configuration layers.

package config

import (
	"fmt"
	"strings"

	"github.com/stackphase/envault/pkg/envview"
)

const (
	// ServiceTokenVar holds the remote-store service token.
	ServiceTokenVar = "PHASE_SERVICE_TOKEN"

	// GlobalEnvVar overrides the logical environment for every namespace.
	GlobalEnvVar = "ENVAULT_ENV"

	// EnvMapVar holds a compact multi-namespace override map, e.g.
	// "Acme.Web=production,Acme.Worker=staging".
	EnvMapVar = "ENVAULT_ENV_MAP"

	// perNamespacePrefix + sanitized namespace overrides one namespace.
	perNamespacePrefix = "ENVAULT_ENV_"
)

// PerNamespaceVar returns the override variable name for a namespace:
// "Acme.Web" becomes "ENVAULT_ENV_ACME_WEB".
func PerNamespaceVar(namespace string) string {
	up := strings.ToUpper(namespace)
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, up)
	return perNamespacePrefix + sanitized
}

// EffectiveEnvironment applies the override chain for one namespace on top
// of the configured environment. Invalid override values are ignored with a
// warning rather than failing the run.
func EffectiveEnvironment(view envview.View, namespace string, configured Environment) (Environment, []string) {
	var warnings []string

	check := func(source, raw string) (Environment, bool) {
		env := Environment(strings.TrimSpace(raw))
		if env.Valid() {
			return env, true
		}
		warnings = append(warnings, fmt.Sprintf(
			"%s has invalid environment %q; override ignored", source, raw))
		return "", false
	}

	if raw, ok := view.Lookup(PerNamespaceVar(namespace)); ok {
		if env, ok := check(PerNamespaceVar(namespace), raw); ok {
			return env, warnings
		}
	}

	if raw, ok := view.Lookup(EnvMapVar); ok {
		for _, pair := range strings.Split(raw, ",") {
			k, v, found := strings.Cut(strings.TrimSpace(pair), "=")
			if !found {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(k), namespace) {
				if env, ok := check(EnvMapVar, v); ok {
					return env, warnings
				}
			}
		}
	}

	if raw, ok := view.Lookup(GlobalEnvVar); ok {
		if env, ok := check(GlobalEnvVar, raw); ok {
			return env, warnings
		}
	}

	return configured, warnings
}

// ServiceToken reads the remote-store token from the ambient environment.
func ServiceToken(view envview.View) (string, bool) {
	tok, ok := view.Lookup(ServiceTokenVar)
	return strings.TrimSpace(tok), ok && strings.TrimSpace(tok) != ""
}
