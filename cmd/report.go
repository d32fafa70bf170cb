/* cmd/report.go */

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stackphase/envault/pkg/envault_cli"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/orchestrator"
	"github.com/stackphase/envault/pkg/report"
)

// ReportCmd is the CI entry point: a full load with every optional finding
// included, emitted as JSON for the pipeline to archive.
var ReportCmd = &cobra.Command{
	Use:   "report [path]",
	Short: "Run a full load and emit a machine-readable validation report",
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

		res, err := orch.Load(rc, dir, orchestrator.Options{
			Strict:              flagStrict,
			WarnMissingOptional: true,
		})
		if err != nil {
			return err
		}
		if err := report.WriteResult(os.Stdout, res, true); err != nil {
			return err
		}
		return loadError(res)
	}),
}
