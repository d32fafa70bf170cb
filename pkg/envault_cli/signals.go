// pkg/envault_cli/signals.go
//
// Graceful shutdown on Ctrl-C and process termination. The registered
// cleanups include the secret-cache wipe, so interrupted runs still erase
// secret material before exiting.

package envault_cli

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/stackphase/envault/pkg/logger"
	"go.uber.org/zap"
)

// CleanupFunc performs one shutdown action.
type CleanupFunc func()

var (
	cleanupMu    sync.Mutex
	cleanupFuncs []CleanupFunc
	signalOnce   sync.Once
)

// RegisterCleanup adds a cleanup called on shutdown, in reverse
// registration order. The first registration installs the signal handler.
func RegisterCleanup(fn CleanupFunc) {
	cleanupMu.Lock()
	cleanupFuncs = append(cleanupFuncs, fn)
	cleanupMu.Unlock()

	signalOnce.Do(func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.L().Warn("Interrupted; cleaning up", zap.String("signal", sig.String()))
			RunCleanups()
			os.Exit(130)
		}()
	})
}

// RunCleanups executes every registered cleanup once, LIFO. Also called on
// normal process exit.
func RunCleanups() {
	cleanupMu.Lock()
	funcs := cleanupFuncs
	cleanupFuncs = nil
	cleanupMu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}
