package object

import (
	"maps"
	"slices"
)

// Dynamic is a map-backed object. It is used by the store, by fixtures and
// wherever an application type has no Go struct.
//
// A Dynamic is not safe for concurrent mutation.
type Dynamic struct {
	typ    string
	values map[string]any
}

// NewDynamic creates an empty object of the given type.
func NewDynamic(objectType string) *Dynamic {
	return &Dynamic{
		typ:    objectType,
		values: make(map[string]any),
	}
}

// ObjectType implements Object.
func (d *Dynamic) ObjectType() string {
	return d.typ
}

// Get implements Object.
func (d *Dynamic) Get(property string) (any, bool) {
	v, ok := d.values[property]
	return v, ok
}

// Set assigns a property value and returns the object for chaining.
func (d *Dynamic) Set(property string, v any) *Dynamic {
	d.values[property] = v
	return d
}

// Delete removes a property.
func (d *Dynamic) Delete(property string) {
	delete(d.values, property)
}

// Properties returns the names of the held properties in sorted order.
func (d *Dynamic) Properties() []string {
	return slices.Sorted(maps.Keys(d.values))
}

// Clone returns a shallow copy.
func (d *Dynamic) Clone() *Dynamic {
	return &Dynamic{typ: d.typ, values: maps.Clone(d.values)}
}
