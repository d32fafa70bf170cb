package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stackphase/envault/pkg/orchestrator"
	"github.com/stackphase/envault/pkg/schema"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	ok := &orchestrator.Result{State: orchestrator.StateDone}
	assert.Equal(t, 0, ExitCode(ok))

	failed := &orchestrator.Result{State: orchestrator.StateFailed}
	assert.Equal(t, 1, ExitCode(failed))

	invalid := &schema.ValidationResult{Valid: false}
	strict := &orchestrator.Result{State: orchestrator.StateDone, Strict: true, Validation: invalid}
	assert.Equal(t, 1, ExitCode(strict), "invalid under strict fails the run")

	lenient := &orchestrator.Result{State: orchestrator.StateDone, Strict: false, Validation: invalid}
	assert.Equal(t, 0, ExitCode(lenient), "lenient mode reports findings but exits clean")
}
