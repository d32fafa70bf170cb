/* cmd/app.go */

package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackphase/envault/pkg/config"
	"github.com/stackphase/envault/pkg/envault_cli"
	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/envview"
	"github.com/stackphase/envault/pkg/orchestrator"
	"github.com/stackphase/envault/pkg/report"
	"github.com/stackphase/envault/pkg/secretcache"
	"github.com/stackphase/envault/pkg/secrets"
)

// AppCmd loads and validates the environment for a single app directory.
var AppCmd = &cobra.Command{
	Use:   "app [path]",
	Short: "Resolve, fetch and validate one app's environment",
	Args:  cobra.MaximumNArgs(1),
	RunE: envault_cli.Wrap(func(rc *envault_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		orch, err := buildOrchestrator(dir)
		if err != nil {
			return err
		}

		res, err := orch.Load(rc, dir, orchestrator.Options{Strict: flagStrict})
		if err != nil {
			return err
		}
		if err := report.WriteResult(os.Stdout, res, flagJSON); err != nil {
			return err
		}
		return loadError(res)
	}),
}

// buildOrchestrator wires the standard production stack for dir: viper
// settings, bounded secret cache (wiped on exit), configured secret store
// and the real process environment.
func buildOrchestrator(dir string) (*orchestrator.Orchestrator, error) {
	settings, err := config.LoadSettings(dir, ".")
	if err != nil {
		return nil, envault_err.WrapConfigError(err)
	}

	ttl := time.Duration(settings.CacheTTLSeconds) * time.Second
	cache := secretcache.New(secretcache.Config{
		MaxMemoryBytes: settings.CacheMaxBytes,
		DefaultTTL:     ttl,
	})
	cache.StartSweeper(ttl)
	envault_cli.RegisterCleanup(func() {
		cache.StopSweeper()
		cache.Clear()
	})

	store, err := secrets.NewStore(settings)
	if err != nil {
		return nil, err
	}

	return orchestrator.New(settings, cache, store, envview.OS()), nil
}

// loadError converts a rendered-but-failed result into the process exit
// status. The findings were already written, so the error is marked
// expected to keep the final log line at warn level.
func loadError(res *orchestrator.Result) error {
	if report.ExitCode(res) == 0 {
		return nil
	}
	return envault_err.NewExpectedError(
		envault_err.New(envault_err.KindValidationInvalid, "environment failed validation"))
}
