// Package object defines the local object abstraction the mapper reads from.
//
// An Object is an instance of an application type: it names its type and
// exposes its properties by name. The package provides a map-backed Dynamic
// object, a reflection adapter for tagged Go structs and the Asset wrapper
// that marks binary data stored out of band.
package object

import (
	"reflect"
	"strconv"
)

// Object is a local persisted object. Implementations must not change while
// a conversion is reading them.
type Object interface {
	// ObjectType returns the schema name of the object.
	ObjectType() string
	// Get returns the current value of a property and whether the object
	// holds one.
	Get(property string) (any, bool)
}

// List is the ordered collection held by a multi-relationship property.
type List []Object

// Typed is implemented by Go values that name their own object type.
type Typed interface {
	ObjectType() string
}

// TypeName returns the object type name of a Go value: the result of its
// ObjectType method when it has one, otherwise its struct type name.
func TypeName(v any) string {
	if t, ok := v.(Typed); ok {
		return t.ObjectType()
	}
	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil {
		return ""
	}
	return rt.Name()
}

// AsList converts a held property value to a List. It accepts List and
// []Object.
func AsList(v any) (List, bool) {
	switch l := v.(type) {
	case List:
		return l, true
	case []Object:
		return List(l), true
	default:
		return nil, false
	}
}

// FormatKey renders a primary key value as a record name. String kinds are
// used verbatim and integer kinds in decimal form; anything else is not a
// valid key.
func FormatKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	default:
		return "", false
	}
}
