// pkg/secrets/vault_store.go
//
// VaultStore adapts HashiCorp Vault KV v2 to the Store interface. The
// service token passed to Fetch is used as the Vault token; the address
// comes from VAULT_ADDR per the standard client config.

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stackphase/envault/pkg/envault_err"
	vaultapi "github.com/hashicorp/vault/api"
)

// VaultStore reads secrets from Vault KV v2 at
// "<mount>/data/<namespace>/<environment>".
type VaultStore struct {
	client *vaultapi.Client
	mount  string
}

// NewVaultStore builds a store from the standard Vault environment
// (VAULT_ADDR and friends). The token is supplied per fetch.
func NewVaultStore(mount string) (*VaultStore, error) {
	cfg := vaultapi.DefaultConfig()
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, envault_err.WrapRemoteError(fmt.Errorf("cannot build vault client: %w", err))
	}
	if mount == "" {
		mount = "secret"
	}
	return &VaultStore{client: client, mount: mount}, nil
}

func (vs *VaultStore) Name() string { return "vault" }

// Fetch reads the KV v2 secret for one namespace and environment and
// flattens it to string values.
func (vs *VaultStore) Fetch(ctx context.Context, token, namespace, environment string) (map[string]string, error) {
	client, err := vs.client.Clone()
	if err != nil {
		return nil, envault_err.Wrap(envault_err.KindRemoteUnknown, err, "cannot clone vault client")
	}
	client.SetToken(token)

	path := namespace + "/" + environment
	kvSecret, err := client.KVv2(vs.mount).Get(ctx, path)
	if err != nil {
		if errors.Is(err, vaultapi.ErrSecretNotFound) || strings.Contains(err.Error(), "secret not found") {
			return nil, envault_err.Wrap(envault_err.KindRemoteNotFound, err,
				"vault has no secret at %s/%s", vs.mount, path)
		}
		return nil, ClassifyFetchError(err, namespace, environment)
	}
	if kvSecret == nil || kvSecret.Data == nil {
		return nil, envault_err.New(envault_err.KindRemoteNotFound,
			"vault secret at %s/%s is empty", vs.mount, path)
	}

	out := make(map[string]string, len(kvSecret.Data))
	for k, v := range kvSecret.Data {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out, nil
}
