// pkg/schema/rules.go
//
// Custom rules are statically-typed predicates registered by the embedding
// application at configuration-build time. They are never parsed from
// untrusted text.

package schema

import "fmt"

// Rule is a named boolean predicate over the entire resolved environment
// map. A false result produces a custom_rule error carrying Message.
type Rule struct {
	Name    string
	Message string
	Check   func(env map[string]string) bool
}

// runRules executes every rule. A panicking predicate degrades to a
// warning; a rule failure must never abort the run.
func runRules(rules []Rule, env map[string]string) (errors, warnings []Issue) {
	for _, rule := range rules {
		ok, evalErr := runRule(rule, env)
		if evalErr != nil {
			warnings = append(warnings, Issue{
				Variable: rule.Name,
				Code:     CodeCustomRule,
				Message:  fmt.Sprintf("rule %s could not be evaluated: %v", rule.Name, evalErr),
				Severity: SeverityWarning,
			})
			continue
		}
		if !ok {
			errors = append(errors, Issue{
				Variable: rule.Name,
				Code:     CodeCustomRule,
				Message:  rule.Message,
				Severity: SeverityError,
			})
		}
	}
	return errors, warnings
}

func runRule(rule Rule, env map[string]string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if rule.Check == nil {
		return false, fmt.Errorf("rule has no predicate")
	}
	return rule.Check(env), nil
}
