// Package secrets abstracts the remote secret store behind a small fetch
// interface with a Phase-style HTTP backend and a Vault KV v2 backend.
package secrets

import (
	"context"
	"fmt"

	"github.com/stackphase/envault/pkg/config"
)

// Store fetches the flat secret map for one application namespace and
// logical environment. Implementations must be safe for concurrent use.
type Store interface {
	// Fetch returns the key/value secret map, or a classified error
	// (remote_auth_error, remote_not_found, remote_network_error,
	// remote_unknown_error).
	Fetch(ctx context.Context, token, namespace, environment string) (map[string]string, error)

	// Name identifies the backend for logging.
	Name() string
}

// NewStore selects the backend from settings. The Phase HTTP store is the
// default; Vault is opt-in via secret_backend=vault.
func NewStore(settings *config.Settings) (Store, error) {
	switch settings.SecretBackend {
	case "", "phase":
		return NewPhaseStore(settings.RemoteBaseURL), nil
	case "vault":
		return NewVaultStore(settings.VaultMount)
	default:
		return nil, fmt.Errorf("unsupported secret backend %q (supported: phase, vault)", settings.SecretBackend)
	}
}
