// pkg/config/discover.go

package config

import (
	"os"
	"path/filepath"

	"github.com/stackphase/envault/pkg/envault_err"
)

// FindMonorepoRoot walks up from startDir to the nearest ancestor containing
// the root mapping file and returns that directory. Failure to find one is
// fatal for the caller; nothing downstream can proceed without a root.
func FindMonorepoRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", envault_err.Wrap(envault_err.KindConfigNotFound, err,
			"cannot resolve starting directory %q", startDir)
	}

	for {
		candidate := filepath.Join(dir, RootMappingFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", envault_err.New(envault_err.KindConfigNotFound,
				"no %s found in %s or any parent directory", RootMappingFile, startDir).
				WithSuggestion("create a " + RootMappingFile + " at your monorepo root")
		}
		dir = parent
	}
}

// RelPathFromRoot returns dir relative to root with forward slashes, used to
// pick the apps vs packages bucket.
func RelPathFromRoot(root, dir string) (string, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
