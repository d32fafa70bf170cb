// Package orchestrator drives the end-to-end load sequence: resolve config,
// fetch secrets from the remote store through the cache, fall back to local
// dotenv files, merge into the environment view, validate, and report.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-retry"
	"github.com/stackphase/envault/pkg/config"
	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/envview"
	"github.com/stackphase/envault/pkg/schema"
	"github.com/stackphase/envault/pkg/secretcache"
	"github.com/stackphase/envault/pkg/secrets"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// fixedFallbackFiles are consulted after any app-configured fallback files,
// in this order, substituting the logical environment.
var fixedFallbackFiles = []string{
	".env.%s.local",
	".env.%s",
	".env.local",
	".env",
}

// Options steer one load run.
type Options struct {
	// Strict makes config-resolution failures fatal and promotes
	// validation warnings; ORed with the resolved validation mode.
	Strict bool

	// WarnMissingOptional reports absent optional variables as warnings.
	WarnMissingOptional bool

	// Rules are custom predicates registered by the embedding app.
	Rules []schema.Rule

	// Definitions overrides the declarations loaded from the app
	// directory; used by tests and the check subcommand.
	Definitions []schema.VariableDefinition
}

// Result is the outcome of one load run.
type Result struct {
	State      State                    `json:"state"`
	Config     *config.ResolvedConfig   `json:"config,omitempty"`
	Root       string                   `json:"root,omitempty"`
	Env        map[string]string        `json:"-"`
	Sources    []string                 `json:"sources"`
	Warnings   []string                 `json:"warnings"`
	Validation *schema.ValidationResult `json:"validation,omitempty"`
	Strict     bool                     `json:"strict"`
}

// Succeeded reports overall success: config resolution did not fatally
// fail, and validation passed (or the run is non-strict).
func (r *Result) Succeeded() bool {
	if r.State == StateFailed {
		return false
	}
	if r.Validation == nil {
		return true
	}
	// Validation failures only fail the run under strict mode; the caller
	// still receives the full finding list either way.
	return r.Validation.Valid || !r.Strict
}

// Orchestrator owns the retry/fallback policy for loading one app's
// environment. Construct once, share across runs; the cache inside is safe
// for concurrent use.
type Orchestrator struct {
	settings *config.Settings
	cache    *secretcache.Cache
	store    secrets.Store
	view     envview.View
}

// New wires an orchestrator. view is the single integration point with the
// real process environment; tests pass a fake.
func New(settings *config.Settings, cache *secretcache.Cache, store secrets.Store, view envview.View) *Orchestrator {
	return &Orchestrator{settings: settings, cache: cache, store: store, view: view}
}

// Cache exposes the secret cache for stats reporting and shutdown wipe.
func (o *Orchestrator) Cache() *secretcache.Cache { return o.cache }

// Load runs the pipeline for the app at dir.
func (o *Orchestrator) Load(rc *envault_io.RuntimeContext, dir string, opts Options) (*Result, error) {
	log := otelzap.Ctx(rc.Ctx)
	result := &Result{State: StateInit, Sources: []string{}, Warnings: []string{}}

	// Init -> ConfigLoaded
	res, err := config.Resolve(rc, dir, o.settings, o.view)
	if err != nil {
		if opts.Strict {
			result.State = StateFailed
			return result, err
		}
		log.Warn("Configuration resolution failed; continuing with defaults", zap.Error(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("configuration resolution failed: %v", err))
		res = &config.Resolution{Config: defaultConfig(dir, o.settings)}
	}
	result.Config = res.Config
	result.Root = res.Root
	result.Warnings = append(result.Warnings, res.Warnings...)
	result.State = StateConfigLoaded
	result.Strict = opts.Strict || res.Config.Strict()

	cfg := res.Config

	// ConfigLoaded -> RemoteFetchAttempted | RemoteSkipped
	var sourced map[string]string
	token, haveToken := config.ServiceToken(o.view)
	if o.settings.RemoteEnabled && haveToken {
		result.State = StateRemoteFetchAttempted
		fetched, source, fetchErr := o.fetchRemote(rc, token, cfg)
		if fetchErr != nil {
			log.Warn("Remote fetch failed; falling back to local files",
				zap.String("namespace", cfg.PhaseAppName),
				zap.String("environment", string(cfg.Environment)),
				zap.String("kind", envault_err.KindOf(fetchErr).String()),
				zap.Error(fetchErr))
			result.Warnings = append(result.Warnings, fmt.Sprintf("remote fetch failed: %v", fetchErr))
		} else {
			sourced = fetched
			result.Sources = append(result.Sources, source)
		}
	} else {
		result.State = StateRemoteSkipped
		if !o.settings.RemoteEnabled {
			log.Debug("Remote fetching disabled")
		} else {
			log.Debug("No service token; remote fetch skipped",
				zap.String("token_var", config.ServiceTokenVar))
		}
	}

	// -> LocalFallbackAttempted | LocalSkipped
	if sourced == nil {
		result.State = StateLocalFallbackAttempt
		values, source := o.loadFallback(rc, dir, cfg, result)
		if values != nil {
			sourced = values
			result.Sources = append(result.Sources, source)
		}
	} else {
		result.State = StateLocalSkipped
	}

	// Merge: ambient wins over sourced values, uniformly for remote and
	// file sources. Only absent keys are ever added to the view.
	merged := o.view.Snapshot()
	added := 0
	for k, v := range sourced {
		if _, exists := o.view.Lookup(k); exists {
			continue
		}
		if err := o.view.Set(k, v); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("cannot set %s: %v", k, err))
			continue
		}
		merged[k] = v
		added++
	}
	result.Env = merged
	log.Debug("Environment merged",
		zap.Int("sourced", len(sourced)),
		zap.Int("added", added),
		zap.Strings("sources", result.Sources))

	// -> Validated
	defs := opts.Definitions
	if defs == nil {
		loaded, defErr := schema.LoadDefinitionsDir(dir)
		if defErr != nil {
			if opts.Strict {
				result.State = StateFailed
				return result, defErr
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("cannot load declarations: %v", defErr))
		}
		defs = loaded
	}
	result.Validation = schema.EvaluateAll(defs, merged, schema.Options{
		Environment:         string(cfg.Environment),
		Strict:              result.Strict,
		WarnMissingOptional: opts.WarnMissingOptional,
		Rules:               opts.Rules,
	})
	result.State = StateValidated

	result.State = StateDone
	return result, nil
}

// fetchRemote consults the cache, then the remote store with the configured
// timeout and retry budget. Authentication and not-found failures are never
// retried. A successful fetch is written back through Refresh; a cache
// capacity error only skips the caching side effect.
func (o *Orchestrator) fetchRemote(rc *envault_io.RuntimeContext, token string, cfg *config.ResolvedConfig) (map[string]string, string, error) {
	log := otelzap.Ctx(rc.Ctx)
	ns, env := cfg.PhaseAppName, string(cfg.Environment)

	if cached, ok := o.cache.Get(ns, env); ok {
		log.Debug("Secret cache hit", zap.String("namespace", ns), zap.String("environment", env))
		return cached, "cache", nil
	}

	var fetched map[string]string
	backoff := retry.WithMaxRetries(uint64(cfg.Retries), retry.NewConstant(time.Millisecond))
	err := retry.Do(rc.Ctx, backoff, func(ctx context.Context) error {
		fetchCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
		defer cancel()

		m, fetchErr := o.store.Fetch(fetchCtx, token, ns, env)
		if fetchErr != nil {
			fetchErr = secrets.ClassifyFetchError(fetchErr, ns, env)
			if envault_err.KindOf(fetchErr).Retryable() {
				return retry.RetryableError(fetchErr)
			}
			return fetchErr
		}
		fetched = m
		return nil
	})
	if err != nil {
		return nil, "", secrets.ClassifyFetchError(err, ns, env)
	}

	if cacheErr := o.cache.Refresh(ns, env, fetched); cacheErr != nil {
		// Recoverable: the fetched value is still used, only caching is
		// skipped.
		log.Warn("Fetched secrets could not be cached", zap.Error(cacheErr))
	}
	return fetched, "remote:" + o.store.Name(), nil
}

// loadFallback tries each fallback file in declared order, stopping at the
// first one that parses successfully.
func (o *Orchestrator) loadFallback(rc *envault_io.RuntimeContext, dir string, cfg *config.ResolvedConfig, result *Result) (map[string]string, string) {
	log := otelzap.Ctx(rc.Ctx)

	candidates := append([]string{}, cfg.FallbackEnvFiles...)
	for _, pattern := range fixedFallbackFiles {
		if pattern == ".env.local" || pattern == ".env" {
			candidates = append(candidates, pattern)
			continue
		}
		candidates = append(candidates, fmt.Sprintf(pattern, cfg.Environment))
	}

	for _, candidate := range candidates {
		path := candidate
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, candidate)
		}
		values, err := godotenv.Read(path)
		if err != nil {
			// Missing files are silence; a present-but-broken file is
			// worth a warning before moving on.
			if fileExists(path) {
				log.Warn("Fallback file is unparsable", zap.String("path", path), zap.Error(err))
				result.Warnings = append(result.Warnings, fmt.Sprintf("unparsable fallback file %s: %v", path, err))
			}
			continue
		}
		log.Debug("Fallback file loaded", zap.String("path", path), zap.Int("keys", len(values)))
		return values, "file:" + candidate
	}
	return nil, ""
}

func defaultConfig(dir string, settings *config.Settings) *config.ResolvedConfig {
	appName := filepath.Base(dir)
	return &config.ResolvedConfig{
		AppName:          appName,
		PhaseAppName:     config.SynthesizeAppName(settings.OrgPrefix, appName),
		Environment:      config.DefaultEnvironment,
		FallbackEnvFiles: []string{},
		ValidationMode:   config.DefaultValidationMode,
		TimeoutMs:        config.DefaultTimeoutMs,
		Retries:          config.DefaultRetries,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
