/* cmd/all.go */

package cmd

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stackphase/envault/pkg/config"
	"github.com/stackphase/envault/pkg/envault_cli"
	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/orchestrator"
	"github.com/stackphase/envault/pkg/report"
)

// AllCmd runs the load pipeline for every app and package the root mapping
// declares, sharing one secret cache across the runs.
var AllCmd = &cobra.Command{
	Use:   "all [path]",
	Short: "Resolve, fetch and validate every declared app and package",
	Args:  cobra.MaximumNArgs(1),
	RunE: envault_cli.Wrap(func(rc *envault_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		start := "."
		if len(args) == 1 {
			start = args[0]
		}

		root, err := config.FindMonorepoRoot(start)
		if err != nil {
			return err
		}
		mapping, err := config.LoadRootMapping(root)
		if err != nil {
			return err
		}

		orch, err := buildOrchestrator(root)
		if err != nil {
			return err
		}

		failed := 0
		for _, dir := range mappingDirs(root, mapping) {
			res, err := orch.Load(rc, dir, orchestrator.Options{Strict: flagStrict})
			if err != nil {
				rc.Log.Error("Load failed", zap.String("dir", dir), zap.Error(err))
				failed++
				continue
			}
			if err := report.WriteResult(os.Stdout, res, flagJSON); err != nil {
				return err
			}
			if !res.Succeeded() {
				failed++
			}
		}

		if failed > 0 {
			return envault_err.NewExpectedError(
				envault_err.New(envault_err.KindValidationInvalid, "%d app(s) failed", failed))
		}
		return nil
	}),
}

// mappingDirs expands the mapping buckets into concrete directories under
// the root, in stable order.
func mappingDirs(root string, mapping *config.RootMapping) []string {
	var dirs []string
	for name := range mapping.Apps {
		dirs = append(dirs, filepath.Join(root, "apps", name))
	}
	for name := range mapping.Packages {
		dirs = append(dirs, filepath.Join(root, "packages", name))
	}
	sort.Strings(dirs)
	return dirs
}
