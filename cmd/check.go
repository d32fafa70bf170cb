/* cmd/check.go */

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stackphase/envault/pkg/config"
	"github.com/stackphase/envault/pkg/envault_cli"
	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/envview"
	"github.com/stackphase/envault/pkg/report"
	"github.com/stackphase/envault/pkg/schema"
)

// CheckCmd validates a single variable from the ambient environment against
// the app's schema, without fetching anything remote.
var CheckCmd = &cobra.Command{
	Use:   "check <variable> [path]",
	Short: "Validate one variable from the current environment",
	Args:  cobra.RangeArgs(1, 2),
	RunE: envault_cli.Wrap(func(rc *envault_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		name := args[0]
		dir := "."
		if len(args) == 2 {
			dir = args[1]
		}

		defs, err := schema.LoadDefinitionsDir(dir)
		if err != nil {
			return err
		}
		def := findDefinition(defs, name)
		if def == nil {
			return envault_err.NewExpectedError(
				envault_err.New(envault_err.KindValidationMissing, "%s is not declared in %s", name, schema.SchemaFile))
		}

		environment := checkEnvironment(rc, dir)

		view := envview.OS()
		value, present := view.Lookup(name)
		issue := schema.Evaluate(def, value, present, def.EffectiveRequired(string(environment)))

		if err := report.WriteCheck(os.Stdout, def, value, present, issue, flagJSON); err != nil {
			return err
		}
		if issue != nil && issue.Severity == schema.SeverityError {
			return envault_err.NewExpectedError(
				envault_err.New(envault_err.KindValidationInvalid, "%s failed validation", name))
		}
		return nil
	}),
}

func findDefinition(defs []schema.VariableDefinition, name string) *schema.VariableDefinition {
	for i := range defs {
		if defs[i].Name == name {
			return &defs[i]
		}
	}
	return nil
}

// checkEnvironment resolves the app's logical environment best-effort; a
// directory outside any monorepo falls back to the default.
func checkEnvironment(rc *envault_io.RuntimeContext, dir string) config.Environment {
	settings, err := config.LoadSettings(dir, ".")
	if err != nil {
		return config.DefaultEnvironment
	}
	res, err := config.Resolve(rc, dir, settings, envview.OS())
	if err != nil {
		rc.Log.Debug("Config resolution failed, using default environment", zap.Error(err))
		return config.DefaultEnvironment
	}
	return res.Config.Environment
}
