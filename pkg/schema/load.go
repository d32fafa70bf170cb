// pkg/schema/load.go

package schema

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/stackphase/envault/pkg/envault_err"
)

// SchemaFile is the app-level declaration artifact, kept next to the app.
const SchemaFile = "env.schema.json"

type schemaDoc struct {
	Version   string               `json:"version,omitempty"`
	Variables []VariableDefinition `json:"variables"`
}

// LoadDefinitions parses a declaration file. The file may be either a bare
// array of definitions or an object with a "variables" key.
func LoadDefinitions(path string) ([]VariableDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, envault_err.Wrap(envault_err.KindConfigNotFound, err, "cannot read %s", path)
	}

	var defs []VariableDefinition
	if err := json.Unmarshal(data, &defs); err == nil {
		return defs, nil
	}

	var doc schemaDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, envault_err.Wrap(envault_err.KindConfigParse, err, "cannot parse %s", path)
	}
	return doc.Variables, nil
}

// LoadDefinitionsDir loads the declarations for an app directory. A missing
// schema file means no variables are declared, which is not an error.
func LoadDefinitionsDir(dir string) ([]VariableDefinition, error) {
	path := filepath.Join(dir, SchemaFile)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return LoadDefinitions(path)
}
