// pkg/schema/types.go

package schema

// VarType is the declared type of an environment variable.
type VarType string

const (
	TypeString  VarType = "string"
	TypeNumber  VarType = "number"
	TypeBoolean VarType = "boolean"
	TypeURL     VarType = "url"
	TypeEmail   VarType = "email"
	TypeJSON    VarType = "json"
)

// Format is an optional value-shape constraint.
type Format string

const (
	FormatURL    Format = "url"
	FormatEmail  Format = "email"
	FormatUUID   Format = "uuid"
	FormatJWT    Format = "jwt"
	FormatBase64 Format = "base64"
)

// IssueCode classifies one validation finding.
type IssueCode string

const (
	CodeMissing      IssueCode = "missing"
	CodeTypeMismatch IssueCode = "type_mismatch"
	CodeFormatError  IssueCode = "format_error"
	CodeInvalid      IssueCode = "invalid"
	CodeCustomRule   IssueCode = "custom_rule"
)

// Severity of one finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// VariableDefinition declares one environment variable. Immutable once
// loaded.
type VariableDefinition struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Type        VarType `json:"type"`

	Format  Format   `json:"format,omitempty"`
	Enum    []string `json:"enum,omitempty"`
	Pattern string   `json:"pattern,omitempty"`

	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`

	Required  bool   `json:"required"`
	Sensitive bool   `json:"sensitive,omitempty"`
	Example   string `json:"example,omitempty"`
	Default   string `json:"default,omitempty"`

	// EnvRequired promotes (or demotes) the required flag for a named
	// logical environment, e.g. {"production": true}.
	EnvRequired map[string]bool `json:"envRequired,omitempty"`
}

// EffectiveRequired resolves the required flag for one logical environment.
// The engine itself stays environment-agnostic; callers hand the result in.
func (d *VariableDefinition) EffectiveRequired(environment string) bool {
	if d.EnvRequired != nil {
		if req, ok := d.EnvRequired[environment]; ok {
			return req
		}
	}
	return d.Required
}

// Issue is one validation finding.
type Issue struct {
	Variable   string    `json:"variable"`
	Code       IssueCode `json:"type"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	Severity   Severity  `json:"severity"`
}

// Summary tallies per-variable outcomes. Valid + Missing + Invalid always
// equals Total.
type Summary struct {
	Total    int `json:"total"`
	Required int `json:"required"`
	Optional int `json:"optional"`
	Missing  int `json:"missing"`
	Invalid  int `json:"invalid"`
	Valid    int `json:"valid"`
}

// ValidationResult is the full outcome of validating one environment map.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Summary  Summary `json:"summary"`
}
