// Package report formats load results for human and machine consumption.
// Thin by design: the error taxonomy lives in envault_err, the findings in
// schema; this layer only renders them and decides exit codes.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/stackphase/envault/pkg/orchestrator"
	"github.com/stackphase/envault/pkg/redact"
	"github.com/stackphase/envault/pkg/schema"
	"github.com/stackphase/envault/pkg/secretcache"
)

// WriteResult renders one load result.
func WriteResult(w io.Writer, res *orchestrator.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if cfg := res.Config; cfg != nil {
		fmt.Fprintf(w, "%s (%s), environment %s\n", cfg.AppName, cfg.PhaseAppName, cfg.Environment)
	} else {
		fmt.Fprintf(w, "(unresolved app)\n")
	}
	if len(res.Sources) > 0 {
		fmt.Fprintf(w, "  sources: %s\n", strings.Join(res.Sources, ", "))
	} else {
		fmt.Fprintf(w, "  sources: (none)\n")
	}

	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}

	v := res.Validation
	if v == nil {
		return nil
	}
	for _, issue := range v.Errors {
		writeIssue(w, "error", issue)
	}
	for _, issue := range v.Warnings {
		writeIssue(w, "warning", issue)
	}

	fmt.Fprintf(w, "  %d declared: %d valid, %d missing, %d invalid",
		v.Summary.Total, v.Summary.Valid, v.Summary.Missing, v.Summary.Invalid)
	if res.Strict {
		fmt.Fprintf(w, " (strict)")
	}
	fmt.Fprintln(w)

	if res.Succeeded() {
		fmt.Fprintf(w, "  OK\n")
	} else {
		fmt.Fprintf(w, "  FAILED\n")
	}
	return nil
}

func writeIssue(w io.Writer, label string, issue schema.Issue) {
	fmt.Fprintf(w, "  %s [%s] %s: %s\n", label, issue.Code, issue.Variable, issue.Message)
	if issue.Suggestion != "" {
		fmt.Fprintf(w, "    hint: %s\n", issue.Suggestion)
	}
}

// WriteStats renders cache health.
func WriteStats(w io.Writer, stats secretcache.Stats, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(w, "secret cache: %d entries, %d / %d bytes (%.1f%%), %d evictions, health %s\n",
		stats.Entries, stats.MemoryUsageBytes, stats.MaxMemoryBytes,
		stats.PercentUsed, stats.EvictionCount, stats.HealthStatus)
	return nil
}

// CheckOutcome is the result of checking a single variable.
type CheckOutcome struct {
	Variable string        `json:"variable"`
	Present  bool          `json:"present"`
	Value    string        `json:"value,omitempty"`
	Issue    *schema.Issue `json:"issue,omitempty"`
}

// WriteCheck renders a single-variable check. Sensitive values are always
// rendered masked.
func WriteCheck(w io.Writer, def *schema.VariableDefinition, value string, present bool, issue *schema.Issue, asJSON bool) error {
	out := CheckOutcome{Variable: def.Name, Present: present, Issue: issue}
	if present {
		if def.Sensitive {
			out.Value = redact.Preview(value)
		} else {
			out.Value = value
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if !present {
		fmt.Fprintf(w, "%s is not set\n", def.Name)
	} else {
		fmt.Fprintf(w, "%s=%s\n", def.Name, out.Value)
	}
	if issue != nil {
		writeIssue(w, string(issue.Severity), *issue)
	} else if present {
		fmt.Fprintf(w, "  OK\n")
	}
	return nil
}

// ExitCode maps a result onto the process exit code: zero on success, one
// when validation is invalid under strict mode or no usable environment
// remained.
func ExitCode(res *orchestrator.Result) int {
	if res.Succeeded() {
		return 0
	}
	return 1
}
