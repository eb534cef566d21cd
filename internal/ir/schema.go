package ir

import (
	"fmt"
	"slices"
)

// PropertyType is the declared storage type of an object property.
type PropertyType string

const (
	TypeInt     PropertyType = "int"
	TypeString  PropertyType = "string"
	TypeBool    PropertyType = "bool"
	TypeDate    PropertyType = "date"
	TypeFloat   PropertyType = "float"
	TypeDouble  PropertyType = "double"
	TypeData    PropertyType = "data"
	TypeObject  PropertyType = "object"
	TypeList    PropertyType = "list"
	TypeUnknown PropertyType = "unknown"
)

// ValidPropertyTypes lists the declarable property types.
var ValidPropertyTypes = map[PropertyType]bool{
	TypeInt:    true,
	TypeString: true,
	TypeBool:   true,
	TypeDate:   true,
	TypeFloat:  true,
	TypeDouble: true,
	TypeData:   true,
	TypeObject: true,
	TypeList:   true,
}

// IsScalar reports whether values of this type are copied verbatim.
func (t PropertyType) IsScalar() bool {
	switch t {
	case TypeInt, TypeString, TypeBool, TypeDate, TypeFloat, TypeDouble, TypeData:
		return true
	default:
		return false
	}
}

// Category is the conversion rule a property falls under. It is decided once,
// when the schema is loaded, so conversion never has to guess.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryScalar
	CategoryAsset
	CategorySingleReference
	CategoryMultiReference
)

var categoryNames = [...]string{
	CategoryUnknown:         "unknown",
	CategoryScalar:          "scalar",
	CategoryAsset:           "asset",
	CategorySingleReference: "single_reference",
	CategoryMultiReference:  "multi_reference",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(text []byte) error {
	for i, name := range categoryNames {
		if name == string(text) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", text)
}

// Property describes one named, typed property of an object schema.
type Property struct {
	Name       string       `json:"name"`
	Type       PropertyType `json:"type"`
	ObjectType string       `json:"object_type,omitempty"` // referenced type for object/list
	Category   Category     `json:"category"`
}

// ObjectSchema is the static metadata of an object type.
type ObjectSchema struct {
	Name       string     `json:"name"`
	PrimaryKey string     `json:"primary_key"`
	Properties []Property `json:"properties"` // declaration order
	References []string   `json:"references,omitempty"`
}

// Property returns the named property.
func (s *ObjectSchema) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// PrimaryKeyProperty returns the primary key property, if declared.
func (s *ObjectSchema) PrimaryKeyProperty() (Property, bool) {
	if s.PrimaryKey == "" {
		return Property{}, false
	}
	return s.Property(s.PrimaryKey)
}

// IsReference reports whether typeName is a declared reference target.
func (s *ObjectSchema) IsReference(typeName string) bool {
	return slices.Contains(s.References, typeName)
}

// Clone returns a deep copy of the schema.
func (s ObjectSchema) Clone() ObjectSchema {
	s.Properties = slices.Clone(s.Properties)
	s.References = slices.Clone(s.References)
	return s
}
