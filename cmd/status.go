/* cmd/status.go */

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stackphase/envault/pkg/envault_cli"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/orchestrator"
	"github.com/stackphase/envault/pkg/report"
)

// StatusCmd reports secret-cache health. With a path it first runs a load
// for that app so the stats reflect a populated cache.
var StatusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show secret cache health",
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

		if len(args) == 1 {
			if _, err := orch.Load(rc, dir, orchestrator.Options{Strict: flagStrict}); err != nil {
				return err
			}
		}

		return report.WriteStats(os.Stdout, orch.Cache().Stats(), flagJSON)
	}),
}
