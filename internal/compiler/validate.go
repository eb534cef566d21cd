package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/cloudrec/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrPrimaryKeyMissing   = "E201" // no primary key, or it names no property
	ErrPrimaryKeyType      = "E202" // primary key is not string or int
	ErrInvalidPropertyType = "E203" // unknown property type
	ErrMissingObjectType   = "E204" // object/list property without object_type
	ErrDuplicateProperty   = "E205" // property declared twice
	ErrEmptyName           = "E206" // empty type or property name
	ErrUnknownReference    = "E207" // reference target is not a declared type
	ErrDuplicateType       = "E208" // object type declared twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Type    string `json:"type,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a single schema. Returns all errors found (does not
// fail fast).
func Validate(s *ir.ObjectSchema) []ValidationError {
	var errs []ValidationError

	// E206: type name required
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "object type name must be non-empty",
			Code:    ErrEmptyName,
		})
	}

	seen := make(map[string]bool)
	for i, p := range s.Properties {
		path := fmt.Sprintf("properties[%d]", i)

		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, ValidationError{
				Type:    s.Name,
				Field:   path,
				Message: "property name must be non-empty",
				Code:    ErrEmptyName,
			})
		}

		// E205: duplicate property
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Type:    s.Name,
				Field:   path,
				Message: fmt.Sprintf("duplicate property %q", p.Name),
				Code:    ErrDuplicateProperty,
			})
		}
		seen[p.Name] = true

		// E203: known type
		if !ir.ValidPropertyTypes[p.Type] {
			errs = append(errs, ValidationError{
				Type:    s.Name,
				Field:   path + ".type",
				Message: fmt.Sprintf("invalid type %q for property %q", p.Type, p.Name),
				Code:    ErrInvalidPropertyType,
			})
		}

		// E204: object and list need a target type
		if (p.Type == ir.TypeObject || p.Type == ir.TypeList) && strings.TrimSpace(p.ObjectType) == "" {
			errs = append(errs, ValidationError{
				Type:    s.Name,
				Field:   path + ".object_type",
				Message: fmt.Sprintf("%s property %q requires object_type", p.Type, p.Name),
				Code:    ErrMissingObjectType,
			})
		}
	}

	// E201/E202: exactly one primary key of type string or int
	pk, ok := s.PrimaryKeyProperty()
	switch {
	case !ok:
		msg := "primary_key is required"
		if s.PrimaryKey != "" {
			msg = fmt.Sprintf("primary_key %q names no property", s.PrimaryKey)
		}
		errs = append(errs, ValidationError{
			Type:    s.Name,
			Field:   "primary_key",
			Message: msg,
			Code:    ErrPrimaryKeyMissing,
		})
	case pk.Type != ir.TypeString && pk.Type != ir.TypeInt:
		errs = append(errs, ValidationError{
			Type:    s.Name,
			Field:   "primary_key",
			Message: fmt.Sprintf("primary key %q must be string or int, got %s", pk.Name, pk.Type),
			Code:    ErrPrimaryKeyType,
		})
	}

	return errs
}

// ValidateAll validates every schema and the references between them.
// Reference targets that are not declared types are reported with
// ErrUnknownReference; the mapper tolerates them (the property simply
// never converts), so callers may treat E207 as a warning.
func ValidateAll(schemas []ir.ObjectSchema) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		if declared[s.Name] {
			errs = append(errs, ValidationError{
				Type:    s.Name,
				Field:   "name",
				Message: fmt.Sprintf("object type %q declared more than once", s.Name),
				Code:    ErrDuplicateType,
			})
		}
		declared[s.Name] = true
	}

	for i := range schemas {
		s := &schemas[i]
		errs = append(errs, Validate(s)...)

		for j, ref := range s.References {
			if !declared[ref] {
				errs = append(errs, ValidationError{
					Type:    s.Name,
					Field:   fmt.Sprintf("references[%d]", j),
					Message: fmt.Sprintf("reference target %q is not a declared object type", ref),
					Code:    ErrUnknownReference,
				})
			}
		}
	}

	return errs
}

// IsWarning reports whether a validation error is advisory only.
func IsWarning(e ValidationError) bool {
	return e.Code == ErrUnknownReference
}
