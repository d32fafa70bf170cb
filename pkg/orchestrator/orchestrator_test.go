package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stackphase/envault/pkg/config"
	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/envview"
	"github.com/stackphase/envault/pkg/schema"
	"github.com/stackphase/envault/pkg/secretcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore scripts remote-store behavior per call.
type fakeStore struct {
	mu      sync.Mutex
	calls   int
	secrets map[string]string
	err     error
}

func (f *fakeStore) Fetch(ctx context.Context, token, namespace, environment string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(f.secrets))
	for k, v := range f.secrets {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testRC(t *testing.T) *envault_io.RuntimeContext {
	t.Helper()
	return envault_io.NewContext(context.Background(), "test")
}

func testSettings() *config.Settings {
	return &config.Settings{
		OrgPrefix:       "Acme",
		RemoteBaseURL:   "https://phase.example.com",
		SecretBackend:   "phase",
		RemoteEnabled:   true,
		VaultMount:      "secret",
		CacheMaxBytes:   1 << 20,
		CacheTTLSeconds: 300,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// monorepo scaffolds a root with one app entry and returns the app dir.
func monorepo(t *testing.T, retries int) string {
	t.Helper()
	root := t.TempDir()
	appDir := filepath.Join(root, "apps", "web")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	writeFile(t, filepath.Join(root, config.RootMappingFile), `{
		"version": "1.0.0",
		"apps": {"web": {"phaseAppName": "Acme.Web", "environment": "development", "retries": `+itoa(retries)+`}}
	}`)
	return appDir
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	return string(rune('0' + n))
}

func newOrchestrator(store *fakeStore, view envview.View) *Orchestrator {
	cache := secretcache.New(secretcache.Config{})
	return New(testSettings(), cache, store, view)
}

func dbDefs() []schema.VariableDefinition {
	return []schema.VariableDefinition{{
		Name:     "DATABASE_URL",
		Type:     schema.TypeString,
		Required: true,
		Pattern:  "^postgresql://.*",
	}}
}

func TestLoadFromRemote(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 0)
	store := &fakeStore{secrets: map[string]string{"DATABASE_URL": "postgresql://remote/db"}}
	view := envview.Map(map[string]string{config.ServiceTokenVar: "tok-123"})
	o := newOrchestrator(store, view)

	result, err := o.Load(testRC(t), appDir, Options{Definitions: dbDefs()})
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.True(t, result.Succeeded())
	assert.True(t, result.Validation.Valid)
	assert.Contains(t, result.Sources, "remote:fake")
	assert.Equal(t, "postgresql://remote/db", result.Env["DATABASE_URL"])

	got, ok := view.Lookup("DATABASE_URL")
	require.True(t, ok, "resolved values are injected for child processes")
	assert.Equal(t, "postgresql://remote/db", got)
}

func TestRemoteFailThenLocalFallback(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 2)
	writeFile(t, filepath.Join(appDir, ".env.development"), "DATABASE_URL=postgresql://local\n")

	store := &fakeStore{err: envault_err.New(envault_err.KindRemoteNetwork, "connection refused")}
	view := envview.Map(map[string]string{config.ServiceTokenVar: "tok-123"})
	o := newOrchestrator(store, view)

	result, err := o.Load(testRC(t), appDir, Options{Definitions: dbDefs()})
	require.NoError(t, err)

	assert.True(t, result.Succeeded(), "fallback value satisfies the requirement")
	assert.True(t, result.Validation.Valid)
	assert.Equal(t, "postgresql://local", result.Env["DATABASE_URL"])
	assert.Contains(t, result.Sources, "file:.env.development")
	assert.NotContains(t, result.Sources, "remote:fake")
	assert.Equal(t, 3, store.callCount(), "network failures are retried up to the configured count")
}

func TestAuthErrorNotRetried(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 3)
	store := &fakeStore{err: envault_err.New(envault_err.KindRemoteAuth, "unauthorized")}
	view := envview.Map(map[string]string{config.ServiceTokenVar: "bad-token"})
	o := newOrchestrator(store, view)

	result, err := o.Load(testRC(t), appDir, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, store.callCount(), "auth failures are permanent for the attempt")
	assert.NotEmpty(t, result.Warnings)
}

func TestNotFoundNotRetried(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 3)
	store := &fakeStore{err: envault_err.New(envault_err.KindRemoteNotFound, "app not found")}
	view := envview.Map(map[string]string{config.ServiceTokenVar: "tok"})
	o := newOrchestrator(store, view)

	_, err := o.Load(testRC(t), appDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.callCount())
}

func TestCacheHitSkipsRemote(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 0)
	store := &fakeStore{secrets: map[string]string{"DATABASE_URL": "postgresql://remote/db"}}
	view := envview.Map(map[string]string{config.ServiceTokenVar: "tok"})
	o := newOrchestrator(store, view)

	_, err := o.Load(testRC(t), appDir, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, store.callCount())

	// Second run for the same (namespace, environment) hits the cache.
	view2 := envview.Map(map[string]string{config.ServiceTokenVar: "tok"})
	o2 := New(testSettings(), o.Cache(), store, view2)
	result, err := o2.Load(testRC(t), appDir, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, store.callCount(), "cache hit avoids a second fetch")
	assert.Contains(t, result.Sources, "cache")
}

func TestAmbientWinsOverSourcedValues(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 0)
	store := &fakeStore{secrets: map[string]string{
		"DATABASE_URL": "postgresql://remote/db",
		"EXTRA_KEY":    "from-remote",
	}}
	view := envview.Map(map[string]string{
		config.ServiceTokenVar: "tok",
		"DATABASE_URL":         "postgresql://explicit-override/db",
	})
	o := newOrchestrator(store, view)

	result, err := o.Load(testRC(t), appDir, Options{Definitions: dbDefs()})
	require.NoError(t, err)

	assert.Equal(t, "postgresql://explicit-override/db", result.Env["DATABASE_URL"],
		"pre-existing ambient values are never overwritten")
	assert.Equal(t, "from-remote", result.Env["EXTRA_KEY"], "absent keys are added")
}

func TestNoTokenSkipsRemote(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 0)
	writeFile(t, filepath.Join(appDir, ".env"), "DATABASE_URL=postgresql://dotenv\n")
	store := &fakeStore{secrets: map[string]string{"DATABASE_URL": "postgresql://remote/db"}}
	view := envview.Map(nil)
	o := newOrchestrator(store, view)

	result, err := o.Load(testRC(t), appDir, Options{Definitions: dbDefs()})
	require.NoError(t, err)

	assert.Equal(t, 0, store.callCount())
	assert.Equal(t, "postgresql://dotenv", result.Env["DATABASE_URL"])
	assert.Contains(t, result.Sources, "file:.env")
}

func TestFallbackFileOrder(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 0)
	// Both exist; the environment-specific local file wins.
	writeFile(t, filepath.Join(appDir, ".env"), "DATABASE_URL=postgresql://generic\n")
	writeFile(t, filepath.Join(appDir, ".env.development.local"), "DATABASE_URL=postgresql://specific\n")

	o := newOrchestrator(&fakeStore{}, envview.Map(nil))
	result, err := o.Load(testRC(t), appDir, Options{Definitions: dbDefs()})
	require.NoError(t, err)

	assert.Equal(t, "postgresql://specific", result.Env["DATABASE_URL"])
	assert.Contains(t, result.Sources, "file:.env.development.local")
}

func TestEmptyEnvironmentIsNotItselfAnError(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 0)
	o := newOrchestrator(&fakeStore{}, envview.Map(nil))

	// No token, no files, no declarations: the run succeeds vacuously.
	result, err := o.Load(testRC(t), appDir, Options{})
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	// With a required declaration it becomes a validation failure, not an
	// abort.
	result, err = o.Load(testRC(t), appDir, Options{Definitions: dbDefs(), Strict: true})
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	require.Len(t, result.Validation.Errors, 1)
	assert.Equal(t, schema.CodeMissing, result.Validation.Errors[0].Code)
}

func TestConfigFailureFatalOnlyInStrictMode(t *testing.T) {
	t.Parallel()
	dir := t.TempDir() // no monorepo root anywhere above

	o := newOrchestrator(&fakeStore{}, envview.Map(nil))

	_, err := o.Load(testRC(t), dir, Options{Strict: true})
	require.Error(t, err)
	assert.Equal(t, envault_err.KindConfigNotFound, envault_err.KindOf(err))

	result, err := o.Load(testRC(t), dir, Options{})
	require.NoError(t, err, "non-strict runs continue with synthesized defaults")
	assert.Equal(t, StateDone, result.State)
	assert.NotEmpty(t, result.Warnings)
	require.NotNil(t, result.Config)
	assert.Contains(t, result.Config.PhaseAppName, "Acme.")
}

func TestStrictModeFromConfigFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	appDir := filepath.Join(root, "apps", "web")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	writeFile(t, filepath.Join(root, config.RootMappingFile), `{
		"version": "1.0.0",
		"apps": {"web": {"phaseAppName": "Acme.Web", "validation": {"strict": true}}}
	}`)

	o := newOrchestrator(&fakeStore{}, envview.Map(nil))
	result, err := o.Load(testRC(t), appDir, Options{
		Definitions:         []schema.VariableDefinition{{Name: "OPT", Type: schema.TypeString}},
		WarnMissingOptional: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Strict, "strict mode comes from the resolved config")
	assert.False(t, result.Validation.Valid, "warnings invalidate under strict mode")
	assert.False(t, result.Succeeded())
}

func TestCustomRulesRunOverWholeEnvironment(t *testing.T) {
	t.Parallel()
	appDir := monorepo(t, 0)
	writeFile(t, filepath.Join(appDir, ".env"), "A=1\nB=1\n")

	o := newOrchestrator(&fakeStore{}, envview.Map(nil))
	result, err := o.Load(testRC(t), appDir, Options{
		Rules: []schema.Rule{{
			Name:    "a_b_distinct",
			Message: "A and B must differ",
			Check:   func(env map[string]string) bool { return env["A"] != env["B"] },
		}},
	})
	require.NoError(t, err)

	require.Len(t, result.Validation.Errors, 1)
	assert.Equal(t, schema.CodeCustomRule, result.Validation.Errors[0].Code)
}
