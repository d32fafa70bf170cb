// pkg/config/resolver.go
//
// Layered configuration resolution: hard-coded defaults, then the root
// mapping (defaults block, then the app/package entry), then the
// per-directory manifest. Merge is right-biased with null-skipping; a layer
// overrides a field only when it supplies a non-null value.

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/envview"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Resolution is the outcome of resolving one directory: the merged config
// plus any non-fatal warnings collected along the way.
type Resolution struct {
	Config   *ResolvedConfig
	Root     string
	Warnings []string
}

// Resolve merges all configuration layers for the app at dir.
func Resolve(rc *envault_io.RuntimeContext, dir string, settings *Settings, view envview.View) (*Resolution, error) {
	log := otelzap.Ctx(rc.Ctx)

	root, err := FindMonorepoRoot(dir)
	if err != nil {
		return nil, err
	}

	mapping, err := LoadRootMapping(root)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Root: root}
	res.Warnings = append(res.Warnings, CheckMapping(mapping)...)

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, envault_err.Wrap(envault_err.KindConfigNotFound, err, "cannot resolve directory %q", dir)
	}
	appName := filepath.Base(absDir)

	entry, bucket := lookupEntry(mapping, root, absDir, appName)
	log.Debug("Root mapping entry located",
		zap.String("app", appName),
		zap.String("bucket", bucket),
		zap.Bool("found", entry != nil))

	manifest, warn := loadManifestEntry(absDir)
	if warn != "" {
		log.Warn("Per-directory manifest skipped", zap.String("reason", warn))
		res.Warnings = append(res.Warnings, warn)
	}

	cfg := &ResolvedConfig{
		AppName:          appName,
		Environment:      DefaultEnvironment,
		FallbackEnvFiles: []string{},
		ValidationMode:   DefaultValidationMode,
		TimeoutMs:        DefaultTimeoutMs,
		Retries:          DefaultRetries,
	}
	applyEntry(cfg, mapping.Defaults)
	applyEntry(cfg, entry)
	applyEntry(cfg, manifest)

	if cfg.PhaseAppName == "" {
		cfg.PhaseAppName = SynthesizeAppName(settings.OrgPrefix, appName)
		log.Debug("Synthesized phase app name", zap.String("phase_app_name", cfg.PhaseAppName))
	}

	env, envWarnings := EffectiveEnvironment(view, cfg.PhaseAppName, cfg.Environment)
	cfg.Environment = env
	res.Warnings = append(res.Warnings, envWarnings...)

	if err := ValidateResolved(cfg); err != nil {
		return nil, err
	}

	log.Debug("Configuration resolved",
		zap.String("app", cfg.AppName),
		zap.String("phase_app_name", cfg.PhaseAppName),
		zap.String("environment", string(cfg.Environment)),
		zap.Int("timeout_ms", cfg.TimeoutMs),
		zap.Int("retries", cfg.Retries))

	res.Config = cfg
	return res, nil
}

// LoadRootMapping reads and parses the root mapping file. A present but
// unparsable file is fatal with parse-error detail.
func LoadRootMapping(root string) (*RootMapping, error) {
	path := filepath.Join(root, RootMappingFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, envault_err.Wrap(envault_err.KindConfigNotFound, err, "cannot read %s", path)
	}

	var mapping RootMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, envault_err.Wrap(envault_err.KindConfigParse, err, "cannot parse %s", path).
			WithSuggestion("check the file for trailing commas or unquoted keys")
	}

	if err := ValidateMapping(&mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// lookupEntry picks the apps vs packages bucket from the path prefix under
// the root, falling back to whichever bucket knows the app name.
func lookupEntry(mapping *RootMapping, root, absDir, appName string) (*AppEntry, string) {
	rel, err := RelPathFromRoot(root, absDir)
	if err == nil {
		switch {
		case strings.HasPrefix(rel, "apps/"):
			if e, ok := mapping.Apps[appName]; ok {
				return &e, "apps"
			}
			return nil, "apps"
		case strings.HasPrefix(rel, "packages/"):
			if e, ok := mapping.Packages[appName]; ok {
				return &e, "packages"
			}
			return nil, "packages"
		}
	}
	if e, ok := mapping.Apps[appName]; ok {
		return &e, "apps"
	}
	if e, ok := mapping.Packages[appName]; ok {
		return &e, "packages"
	}
	return nil, ""
}

// loadManifestEntry reads the per-directory manifest layer. The manifest is
// an optional enhancement: a missing file is silence, an unparsable one
// degrades to a warning and the layer is skipped.
func loadManifestEntry(dir string) (*AppEntry, string) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ""
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "unparsable manifest " + path + ": " + err.Error()
	}

	raw, ok := doc[ManifestKey]
	if !ok {
		return nil, ""
	}

	var entry AppEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, "invalid " + ManifestKey + " block in " + path + ": " + err.Error()
	}
	return &entry, ""
}

// applyEntry overlays one layer onto cfg, skipping null fields.
func applyEntry(cfg *ResolvedConfig, e *AppEntry) {
	if e == nil {
		return
	}
	if e.PhaseAppName != "" {
		cfg.PhaseAppName = e.PhaseAppName
	}
	if e.Environment != "" {
		cfg.Environment = Environment(e.Environment)
	}
	if e.FallbackEnvFiles != nil {
		cfg.FallbackEnvFiles = append([]string(nil), e.FallbackEnvFiles...)
	}
	if e.Validation != nil && e.Validation.Strict != nil {
		if *e.Validation.Strict {
			cfg.ValidationMode = ModeStrict
		} else {
			cfg.ValidationMode = ModeLenient
		}
	}
	if e.Timeout != nil {
		cfg.TimeoutMs = *e.Timeout
	}
	if e.Retries != nil {
		cfg.Retries = *e.Retries
	}
}

// SynthesizeAppName builds "<OrgPrefix>.<AppName>" deterministically from a
// directory name: "my-web-app" with prefix "Acme" becomes "Acme.MyWebApp".
func SynthesizeAppName(orgPrefix, dirName string) string {
	parts := strings.FieldsFunc(dirName, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	var b strings.Builder
	for _, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(p[size:])
	}
	name := b.String()
	if name == "" {
		name = "App"
	}
	return orgPrefix + "." + name
}
