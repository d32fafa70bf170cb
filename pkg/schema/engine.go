// pkg/schema/engine.go
//
// Pure rule evaluation: one typed definition against one candidate value.
// No I/O, deterministic; calling the engine twice on the same inputs yields
// identical results.

package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stackphase/envault/pkg/redact"
)

// Boolean literals accepted case-insensitively for boolean-typed variables.
var booleanLiterals = map[string]struct{}{
	"true": {}, "false": {}, "1": {}, "0": {}, "yes": {}, "no": {},
}

// Options steer EvaluateAll.
type Options struct {
	// Environment selects per-environment required overrides.
	Environment string

	// Strict promotes any warning to invalidate the overall result.
	Strict bool

	// WarnMissingOptional emits a warning for absent optional variables.
	WarnMissingOptional bool

	// Rules are named predicates over the whole environment map, run
	// after per-variable checks.
	Rules []Rule
}

// Evaluate checks one definition against one candidate value. present is
// false when the variable is absent from the environment; required is the
// effective required status (the engine does not derive it). The returned
// issue is nil when the value conforms.
func Evaluate(def *VariableDefinition, value string, present, required bool) *Issue {
	if !present {
		if required {
			return &Issue{
				Variable:   def.Name,
				Code:       CodeMissing,
				Message:    fmt.Sprintf("required variable %s is not set", def.Name),
				Suggestion: suggestionFor(def),
				Severity:   SeverityError,
			}
		}
		return &Issue{
			Variable:   def.Name,
			Code:       CodeMissing,
			Message:    fmt.Sprintf("optional variable %s is not set", def.Name),
			Suggestion: suggestionFor(def),
			Severity:   SeverityWarning,
		}
	}
	return checkValue(def, value)
}

// checkValue applies type, format, enum, pattern and bounds checks in that
// order; the first failure wins.
func checkValue(def *VariableDefinition, value string) *Issue {
	fail := func(code IssueCode, msg string) *Issue {
		return &Issue{
			Variable:   def.Name,
			Code:       code,
			Message:    msg,
			Suggestion: suggestionFor(def),
			Severity:   SeverityError,
		}
	}

	// Findings never echo sensitive values.
	shown := value
	if def.Sensitive {
		shown = redact.Value(value)
	}

	var numeric float64
	switch def.Type {
	case TypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fail(CodeTypeMismatch, fmt.Sprintf("%s must be a number, got %q", def.Name, shown))
		}
		numeric = n
	case TypeBoolean:
		if _, ok := booleanLiterals[strings.ToLower(value)]; !ok {
			return fail(CodeTypeMismatch, fmt.Sprintf("%s must be a boolean (true/false/1/0/yes/no), got %q", def.Name, shown))
		}
	case TypeJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return fail(CodeTypeMismatch, fmt.Sprintf("%s must be valid JSON: %v", def.Name, err))
		}
	case TypeString, TypeURL, TypeEmail, "":
		// String-shaped; format checks below carry the real constraint.
	default:
		return fail(CodeTypeMismatch, fmt.Sprintf("%s has unknown declared type %q", def.Name, def.Type))
	}

	format := def.Format
	if format == "" {
		if implied, ok := impliedFormat(def.Type); ok {
			format = implied
		}
	}
	if format != "" {
		if err := checkFormat(format, value); err != nil {
			return fail(CodeFormatError, fmt.Sprintf("%s: %v", def.Name, err))
		}
	}

	if len(def.Enum) > 0 {
		found := false
		for _, allowed := range def.Enum {
			if value == allowed {
				found = true
				break
			}
		}
		if !found {
			return fail(CodeInvalid, fmt.Sprintf("%s must be one of %v, got %q", def.Name, def.Enum, shown))
		}
	}

	if def.Pattern != "" {
		// A malformed pattern in a shipped schema is a programmer error;
		// MustCompile panicking is the correct response.
		re := regexp.MustCompile("^(?:" + def.Pattern + ")$")
		if !re.MatchString(value) {
			return fail(CodeFormatError, fmt.Sprintf("%s does not match the required pattern", def.Name))
		}
	}

	if def.Type == TypeNumber {
		if def.Min != nil && numeric < *def.Min {
			return fail(CodeInvalid, fmt.Sprintf("%s must be >= %v, got %v", def.Name, *def.Min, numeric))
		}
		if def.Max != nil && numeric > *def.Max {
			return fail(CodeInvalid, fmt.Sprintf("%s must be <= %v, got %v", def.Name, *def.Max, numeric))
		}
	} else {
		if def.MinLength != nil && len(value) < *def.MinLength {
			return fail(CodeInvalid, fmt.Sprintf("%s must be at least %d characters", def.Name, *def.MinLength))
		}
		if def.MaxLength != nil && len(value) > *def.MaxLength {
			return fail(CodeInvalid, fmt.Sprintf("%s must be at most %d characters", def.Name, *def.MaxLength))
		}
	}

	return nil
}

// EvaluateAll validates every declared variable against the environment map
// and then runs the custom rules. Findings are ordered: per-variable issues
// in declaration order, then rule issues in registration order.
func EvaluateAll(defs []VariableDefinition, env map[string]string, opts Options) *ValidationResult {
	result := &ValidationResult{
		Errors:   []Issue{},
		Warnings: []Issue{},
	}
	result.Summary.Total = len(defs)

	for i := range defs {
		def := &defs[i]
		required := def.EffectiveRequired(opts.Environment)
		if required {
			result.Summary.Required++
		} else {
			result.Summary.Optional++
		}

		value, present := env[def.Name]
		issue := Evaluate(def, value, present, required)
		if issue == nil {
			result.Summary.Valid++
			continue
		}

		if issue.Code == CodeMissing {
			result.Summary.Missing++
			if issue.Severity == SeverityError {
				result.Errors = append(result.Errors, *issue)
			} else if opts.WarnMissingOptional {
				result.Warnings = append(result.Warnings, *issue)
			}
			continue
		}

		result.Summary.Invalid++
		result.Errors = append(result.Errors, *issue)
	}

	ruleErrors, ruleWarnings := runRules(opts.Rules, env)
	result.Errors = append(result.Errors, ruleErrors...)
	result.Warnings = append(result.Warnings, ruleWarnings...)

	result.Valid = len(result.Errors) == 0 && (!opts.Strict || len(result.Warnings) == 0)
	return result
}
