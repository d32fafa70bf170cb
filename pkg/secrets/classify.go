// pkg/secrets/classify.go

package secrets

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/stackphase/envault/pkg/envault_err"
)

// authPatterns, notFoundPatterns, networkPatterns: error-text fragments used
// to classify backend failures. Matching is case-insensitive.
var (
	authPatterns     = []string{"unauthorized", "authentication", "invalid token", "permission denied", "forbidden", "401", "403"}
	notFoundPatterns = []string{"not found", "no such app", "unknown namespace", "404"}
	networkPatterns  = []string{"timeout", "timed out", "deadline exceeded", "connection refused", "connection reset", "no such host", "network", "dial tcp", "temporary failure", "eof"}
)

// ClassifyFetchError maps a raw backend error onto the remote-error
// taxonomy. Errors already classified pass through unchanged.
func ClassifyFetchError(err error, namespace, environment string) error {
	if err == nil {
		return nil
	}
	if envault_err.KindOf(err) != envault_err.KindUnknown {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return envault_err.Wrap(envault_err.KindRemoteNetwork, err,
			"remote fetch for %s/%s timed out", namespace, environment)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return envault_err.Wrap(envault_err.KindRemoteNetwork, err,
			"remote fetch for %s/%s hit a network error", namespace, environment)
	}

	text := strings.ToLower(err.Error())
	if matchesAny(text, authPatterns) {
		return envault_err.Wrap(envault_err.KindRemoteAuth, err,
			"remote store rejected the service token for %s/%s", namespace, environment).
			WithSuggestion("check " + "PHASE_SERVICE_TOKEN" + " and its access to this app")
	}
	if matchesAny(text, notFoundPatterns) {
		return envault_err.Wrap(envault_err.KindRemoteNotFound, err,
			"remote store has no app %s in environment %s", namespace, environment).
			WithSuggestion("verify the phaseAppName and environment exist in the remote store")
	}
	if matchesAny(text, networkPatterns) {
		return envault_err.Wrap(envault_err.KindRemoteNetwork, err,
			"network failure fetching %s/%s", namespace, environment)
	}
	return envault_err.Wrap(envault_err.KindRemoteUnknown, err,
		"unexpected remote-store failure for %s/%s", namespace, environment)
}

func matchesAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
