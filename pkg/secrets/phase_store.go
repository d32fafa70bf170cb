// pkg/secrets/phase_store.go

package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/telemetry"
)

// PhaseStore talks to a Phase-style secret service over HTTP. The per-call
// timeout comes from the caller's context; the client itself carries no
// timeout so the resolved config stays the single source of truth.
type PhaseStore struct {
	baseURL string
	client  *http.Client
}

// phaseResponse is the wire shape of a fetch reply.
type phaseResponse struct {
	Success bool              `json:"success"`
	Secrets map[string]string `json:"secrets,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// NewPhaseStore builds a store for the given service base URL.
func NewPhaseStore(baseURL string) *PhaseStore {
	return &PhaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

func (s *PhaseStore) Name() string { return "phase" }

// Fetch retrieves the secret map for one namespace and environment.
func (s *PhaseStore) Fetch(ctx context.Context, token, namespace, environment string) (map[string]string, error) {
	endpoint := fmt.Sprintf("%s/v1/secrets/%s/%s",
		s.baseURL, url.PathEscape(namespace), url.PathEscape(environment))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, envault_err.Wrap(envault_err.KindRemoteUnknown, err, "cannot build request for %s", endpoint)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", telemetry.NewRequestID())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ClassifyFetchError(err, namespace, environment)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, ClassifyFetchError(err, namespace, environment)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, envault_err.New(envault_err.KindRemoteAuth,
			"remote store rejected the service token (HTTP %d)", resp.StatusCode).
			WithSuggestion("check PHASE_SERVICE_TOKEN and its access to this app")
	case resp.StatusCode == http.StatusNotFound:
		return nil, envault_err.New(envault_err.KindRemoteNotFound,
			"remote store has no app %s in environment %s (HTTP 404)", namespace, environment)
	case resp.StatusCode >= 500:
		return nil, envault_err.New(envault_err.KindRemoteNetwork,
			"remote store returned HTTP %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, envault_err.New(envault_err.KindRemoteUnknown,
			"remote store returned unexpected HTTP %d", resp.StatusCode)
	}

	var parsed phaseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, envault_err.Wrap(envault_err.KindRemoteUnknown, err, "cannot parse remote-store response")
	}
	if !parsed.Success {
		return nil, ClassifyFetchError(fmt.Errorf("%s", parsed.Error), namespace, environment)
	}
	if parsed.Secrets == nil {
		parsed.Secrets = map[string]string{}
	}
	return parsed.Secrets, nil
}
