package catalog

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/object"
)

var (
	timeType   = reflect.TypeFor[time.Time]()
	assetType  = reflect.TypeFor[*object.Asset]()
	objectType = reflect.TypeFor[object.Object]()
)

// SchemaFromStruct derives a schema from the record tags of a struct type.
// v may be a struct value or a pointer to one; only its type is inspected.
//
// Property types are inferred from Go field types unless the tag sets
// type=. Object and list properties take their object type from ref= or
// from the referenced struct's type name, and every such type except the
// asset marker is added to the schema's references.
func SchemaFromStruct(v any) (ir.ObjectSchema, error) {
	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return ir.ObjectSchema{}, fmt.Errorf("catalog: %T is not a struct", v)
	}

	schema := ir.ObjectSchema{Name: object.TypeName(v)}
	for _, f := range object.StructFields(rt) {
		prop := ir.Property{Name: f.Tag.Name}

		typ, objType, err := inferType(f.Type)
		if err != nil {
			return ir.ObjectSchema{}, fmt.Errorf("catalog: %s.%s: %w", schema.Name, f.Tag.Name, err)
		}
		if f.Tag.Type != "" {
			typ = ir.PropertyType(f.Tag.Type)
		}
		if f.Tag.Ref != "" {
			objType = f.Tag.Ref
		}
		prop.Type = typ
		if typ == ir.TypeObject || typ == ir.TypeList {
			prop.ObjectType = objType
			if objType != object.AssetTypeName && objType != "" && !slices.Contains(schema.References, objType) {
				schema.References = append(schema.References, objType)
			}
		}

		if f.Tag.PrimaryKey {
			if schema.PrimaryKey != "" {
				return ir.ObjectSchema{}, fmt.Errorf("catalog: %s: more than one primary key", schema.Name)
			}
			schema.PrimaryKey = f.Tag.Name
		}
		schema.Properties = append(schema.Properties, prop)
	}

	return schema, nil
}

// inferType maps a Go field type to a property type and, for object and
// list properties, the referenced type name.
func inferType(t reflect.Type) (ir.PropertyType, string, error) {
	switch {
	case t == timeType:
		return ir.TypeDate, "", nil
	case t == assetType:
		return ir.TypeObject, object.AssetTypeName, nil
	case t == objectType:
		return ir.TypeObject, "", nil
	}

	switch t.Kind() {
	case reflect.String:
		return ir.TypeString, "", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ir.TypeInt, "", nil
	case reflect.Bool:
		return ir.TypeBool, "", nil
	case reflect.Float32:
		return ir.TypeFloat, "", nil
	case reflect.Float64:
		return ir.TypeDouble, "", nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return ir.TypeData, "", nil
		}
		elem := t.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct && t.Elem() != objectType {
			return ir.TypeUnknown, "", fmt.Errorf("unsupported list element type %s", t.Elem())
		}
		return ir.TypeList, structName(t.Elem()), nil
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct && t.Elem() != timeType {
			return ir.TypeObject, structName(t), nil
		}
		return inferType(t.Elem())
	case reflect.Struct:
		return ir.TypeObject, structName(t), nil
	default:
		return ir.TypeUnknown, "", fmt.Errorf("unsupported field type %s", t)
	}
}

// structName names the object type of a struct field type, honouring an
// ObjectType method declared on the type.
func structName(t reflect.Type) string {
	if t.Implements(reflect.TypeFor[object.Typed]()) {
		if t.Kind() == reflect.Pointer {
			return object.TypeName(reflect.New(t.Elem()).Interface())
		}
		return object.TypeName(reflect.Zero(t).Interface())
	}
	if pt := reflect.PointerTo(t); t.Kind() != reflect.Pointer && pt.Implements(reflect.TypeFor[object.Typed]()) {
		return object.TypeName(reflect.New(t).Interface())
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// MustSchemaFromStruct is like SchemaFromStruct but panics on error.
func MustSchemaFromStruct(v any) ir.ObjectSchema {
	s, err := SchemaFromStruct(v)
	if err != nil {
		panic(err)
	}
	return s
}
