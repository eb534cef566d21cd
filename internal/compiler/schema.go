package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cloudrec/internal/ir"
)

// CompileObjectSchema parses a CUE value into an ObjectSchema.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The CUE value should be the object struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`object: Dog: { primary_key: "id", properties: { id: "string" } }`)
//	schema, err := CompileObjectSchema(v.LookupPath(cue.ParsePath("object.Dog")))
//
// Properties keep their CUE declaration order. Categories are left unset;
// the catalog assigns them.
func CompileObjectSchema(v cue.Value) (*ir.ObjectSchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := &ir.ObjectSchema{}

	// Type name is the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		schema.Name = labels[len(labels)-1].String()
	}

	pkVal := v.LookupPath(cue.ParsePath("primary_key"))
	if pkVal.Exists() {
		pk, err := pkVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		schema.PrimaryKey = pk
	}

	refs, err := parseReferences(v)
	if err != nil {
		return nil, err
	}
	schema.References = refs

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, &CompileError{
			Field:   "properties",
			Message: "properties is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		prop, err := parseProperty(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		schema.Properties = append(schema.Properties, prop)
	}

	return schema, nil
}

// CompileAll compiles every object type declared under the top-level
// "object" field. Errors are collected; schemas that compile are returned
// even when others fail.
func CompileAll(v cue.Value) ([]ir.ObjectSchema, []error) {
	objectsVal := v.LookupPath(cue.ParsePath("object"))
	if !objectsVal.Exists() {
		return nil, nil
	}

	iter, err := objectsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var schemas []ir.ObjectSchema
	var errs []error
	for iter.Next() {
		schema, err := CompileObjectSchema(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("object.%s: %w", iter.Label(), err))
			continue
		}
		schemas = append(schemas, *schema)
	}
	return schemas, errs
}

// parseReferences extracts the declared reference target types.
func parseReferences(v cue.Value) ([]string, error) {
	refsVal := v.LookupPath(cue.ParsePath("references"))
	if !refsVal.Exists() {
		return nil, nil
	}

	iter, err := refsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var refs []string
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "references",
				Message: "references must be a list of type names",
				Pos:     iter.Value().Pos(),
			}
		}
		refs = append(refs, name)
	}
	return refs, nil
}

// parseProperty parses a property declaration.
// Supports:
//   - Shorthand: name: "string"
//   - Struct:    name: { type: "list", object_type: "Dog" }
func parseProperty(name string, v cue.Value) (ir.Property, error) {
	prop := ir.Property{Name: name}

	if typ, err := v.String(); err == nil {
		prop.Type = ir.PropertyType(typ)
		return prop, nil
	}

	if v.IncompleteKind() != cue.StructKind {
		return prop, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("property %q must be a type name or a {type, object_type} struct", name),
			Pos:     v.Pos(),
		}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return prop, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("property %q has no type", name),
			Pos:     v.Pos(),
		}
	}
	typ, err := typeVal.String()
	if err != nil {
		return prop, formatCUEError(err)
	}
	prop.Type = ir.PropertyType(typ)

	objVal := v.LookupPath(cue.ParsePath("object_type"))
	if objVal.Exists() {
		objType, err := objVal.String()
		if err != nil {
			return prop, formatCUEError(err)
		}
		prop.ObjectType = objType
	}

	return prop, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
