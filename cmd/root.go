/* cmd/root.go */

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stackphase/envault/pkg/envault_cli"
	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/logger"
)

var (
	flagStrict  bool
	flagJSON    bool
	flagDebug   bool
	flagVerbose bool
)

// RootCmd is the base command for envault.
var RootCmd = &cobra.Command{
	Use:   "envault",
	Short: "Envault resolves, fetches and validates per-app environments in a monorepo",
	Long: `Envault walks up to the monorepo root, layers the app's configuration,
fetches its secrets from the configured backend (with dotenv fallback),
and validates the resulting environment against the app's schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("No subcommand provided. Try `envault help`.")
		return cmd.Help()
	},
}

// HelpCmd wraps help so that it can be invoked like a normal command.
var HelpCmd = &cobra.Command{
	Use:   "help",
	Short: "Help about any command",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return RootCmd.Help()
		}
		c, _, err := RootCmd.Find(args)
		if err != nil || c == nil {
			return fmt.Errorf("command not found: %s", strings.Join(args, " "))
		}
		return c.Help()
	},
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	RootCmd.SetHelpCommand(HelpCmd)

	RootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "treat validation warnings and config failures as fatal")
	RootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON instead of human output")
	RootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	RootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "alias for --debug")

	RootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if flagDebug || flagVerbose {
			logger.SetDebug()
		}
	}

	for _, subCmd := range []*cobra.Command{
		AppCmd,
		AllCmd,
		StatusCmd,
		CheckCmd,
		ReportCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command.
func Execute() {
	RegisterCommands()

	err := RootCmd.Execute()
	if err != nil {
		if envault_err.IsExpectedUserError(err) {
			logger.L().Warn("Completed with user error", zap.Error(err))
		} else {
			logger.L().Error("Execution error", zap.Error(err))
		}
	}

	// Cleanups wipe the secret cache; they must run on the success path
	// too, and before os.Exit since that skips deferred calls.
	envault_cli.RunCleanups()
	_ = logger.L().Sync()

	if err != nil {
		os.Exit(envault_err.GetExitCode(err))
	}
}
