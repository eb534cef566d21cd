// Package catalog resolves object type names to their schemas.
//
// Every property is assigned its conversion category when the schema enters
// the catalog, so the mapper never inspects declared types at conversion
// time. A Catalog is immutable once built and safe for concurrent use.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/cloudrec/internal/compiler"
	"github.com/roach88/cloudrec/internal/ir"
)

// DefaultAssetType is the object type name that marks a binary asset property.
const DefaultAssetType = "Asset"

// Option configures a Catalog.
type Option func(*Catalog)

// WithAssetType sets the object type name treated as the asset marker.
func WithAssetType(name string) Option {
	return func(c *Catalog) {
		if name != "" {
			c.assetType = name
		}
	}
}

// Catalog is an immutable set of classified object schemas.
type Catalog struct {
	assetType string
	schemas   map[string]*ir.ObjectSchema
	names     []string
}

// New copies the given schemas, classifies their properties and indexes them
// by type name. Duplicate or empty type names are rejected.
//
// Schemas without a usable primary key are accepted; mapping an object of
// such a type reports a configuration defect.
func New(schemas []ir.ObjectSchema, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		assetType: DefaultAssetType,
		schemas:   make(map[string]*ir.ObjectSchema, len(schemas)),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, s := range schemas {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("catalog: object type name must be non-empty")
		}
		if _, dup := c.schemas[s.Name]; dup {
			return nil, fmt.Errorf("catalog: object type %q declared more than once", s.Name)
		}
		clone := s.Clone()
		for i := range clone.Properties {
			clone.Properties[i].Category = Classify(clone.Properties[i], &clone, c.assetType)
		}
		c.schemas[s.Name] = &clone
		c.names = append(c.names, s.Name)
	}
	slices.Sort(c.names)

	return c, nil
}

// FromCUE compiles every object type under the top-level "object" field,
// validates the set and builds a catalog from it. Compile errors and
// validation errors are collected; validation warnings (unknown reference
// targets) are returned alongside a usable catalog.
func FromCUE(v cue.Value, opts ...Option) (*Catalog, []error) {
	schemas, errs := compiler.CompileAll(v)

	var warnings []error
	for _, ve := range compiler.ValidateAll(schemas) {
		if compiler.IsWarning(ve) {
			warnings = append(warnings, ve)
			continue
		}
		errs = append(errs, ve)
	}
	if len(errs) > 0 {
		return nil, append(errs, warnings...)
	}

	c, err := New(schemas, opts...)
	if err != nil {
		return nil, []error{err}
	}
	return c, warnings
}

// Classify decides the conversion category of a property of schema s.
func Classify(p ir.Property, s *ir.ObjectSchema, assetType string) ir.Category {
	switch {
	case p.Type.IsScalar():
		return ir.CategoryScalar
	case p.Type == ir.TypeObject && p.ObjectType == assetType:
		return ir.CategoryAsset
	case p.Type == ir.TypeObject && s.IsReference(p.ObjectType):
		return ir.CategorySingleReference
	case p.Type == ir.TypeList && s.IsReference(p.ObjectType):
		return ir.CategoryMultiReference
	default:
		return ir.CategoryUnknown
	}
}

// Lookup returns the schema of the named type. The returned schema must not
// be modified.
func (c *Catalog) Lookup(name string) (*ir.ObjectSchema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

// Names returns the registered type names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Len returns the number of registered types.
func (c *Catalog) Len() int {
	return len(c.names)
}

// AssetType returns the asset marker type name.
func (c *Catalog) AssetType() string {
	return c.assetType
}

// Hash returns the content hash of all schemas, in name order.
func (c *Catalog) Hash() (string, error) {
	encoded := make(ir.IRArray, len(c.names))
	for i, name := range c.names {
		encoded[i] = ir.EncodeSchema(*c.schemas[name])
	}
	return ir.SchemaHash(encoded)
}

// ErrUnknownType is returned when a type name has no schema.
var ErrUnknownType = errors.New("unknown object type")

// Require is like Lookup but returns ErrUnknownType wrapped with the name.
func (c *Catalog) Require(name string) (*ir.ObjectSchema, error) {
	s, ok := c.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return s, nil
}
