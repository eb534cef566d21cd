package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a mapping scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists paths to CUE files declaring object types.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// Owner is the account identity owning the zones.
	Owner string `yaml:"owner,omitempty"`

	// MemberPolicy is "truncate" (default) or "skip".
	MemberPolicy string `yaml:"member_policy,omitempty"`

	// ReferenceZone is "default" (default) or "target".
	ReferenceZone string `yaml:"reference_zone,omitempty"`

	// Objects declares the object graph.
	Objects []ObjectDecl `yaml:"objects"`

	// Convert lists the objects to convert. Empty means every object, in
	// declaration order.
	Convert []string `yaml:"convert,omitempty"`

	// Export also writes every keyed object to an in-memory store and runs
	// one export batch over it.
	Export bool `yaml:"export,omitempty"`

	// BatchID is the fixed export batch id.
	// If empty, defaults to "test-batch-default".
	BatchID string `yaml:"batch_id,omitempty"`

	// Assertions validate the converted records.
	Assertions []Assertion `yaml:"assertions"`
}

// ObjectDecl declares one object of the scenario graph.
type ObjectDecl struct {
	// Type is the object type name.
	Type string `yaml:"type"`

	// ID optionally names the object for refs and assertions. Defaults to
	// "Type/key".
	ID string `yaml:"id,omitempty"`

	// Values holds the property values. See the package documentation for
	// the forms a value may take.
	Values map[string]any `yaml:"values"`
}

// Assertion validates one converted record.
type Assertion struct {
	// Type specifies the assertion type (see the Assert constants).
	Type string `yaml:"type"`

	// Record is the object whose record is checked.
	Record string `yaml:"record,omitempty"`

	// Field is the record field (field_set, field_absent, field_cleared,
	// references).
	Field string `yaml:"field,omitempty"`

	// Value is the expected value (field_set, record_name, zone).
	Value any `yaml:"value,omitempty"`

	// Expect lists expected referenced record names (references).
	Expect []string `yaml:"expect,omitempty"`

	// Code is the expected defect code (defect).
	Code string `yaml:"code,omitempty"`

	// Count is the expected number of exported records (exported).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFieldSet     = "field_set"
	AssertFieldAbsent  = "field_absent"
	AssertFieldCleared = "field_cleared"
	AssertReferences   = "references"
	AssertRecordName   = "record_name"
	AssertZone         = "zone"
	AssertDefect       = "defect"
	AssertExported     = "exported"
)

// LoadScenario reads and parses a scenario YAML file, resolving spec paths
// relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find scenarios: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if len(s.Objects) == 0 {
		return fmt.Errorf("objects list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i, decl := range s.Objects {
		if decl.Type == "" {
			return fmt.Errorf("objects[%d]: type is required", i)
		}
		if decl.Values == nil {
			return fmt.Errorf("objects[%d]: values is required (use empty map if no values)", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s.Export); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, export bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsRecord := a.Type != AssertExported
	if needsRecord && a.Record == "" {
		return fmt.Errorf("assertions[%d]: record is required for %s", index, a.Type)
	}

	switch a.Type {
	case AssertFieldSet, AssertFieldAbsent, AssertFieldCleared:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for %s", index, a.Type)
		}
	case AssertReferences:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for references", index)
		}
	case AssertRecordName, AssertZone:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertDefect:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for defect", index)
		}
	case AssertExported:
		if !export {
			return fmt.Errorf("assertions[%d]: exported requires export: true", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for exported", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
