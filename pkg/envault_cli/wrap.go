// pkg/envault_cli/wrap.go

package envault_cli

import (
	"context"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/stackphase/envault/pkg/envault_err"
	"github.com/stackphase/envault/pkg/envault_io"
	"github.com/stackphase/envault/pkg/logger"
)

// Wrap adapts an rc-style handler to cobra's RunE, adding panic recovery,
// span lifecycle and stack annotation for unexpected errors.
func Wrap(fn func(rc *envault_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.InitFallback()

		rc := envault_io.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		err = fn(rc, cmd, args)
		if err != nil && !envault_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
