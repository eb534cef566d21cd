package object

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// TagName is the struct tag read by FromStruct and catalog.SchemaFromStruct.
//
//	type Dog struct {
//	    ID      string    `record:"id,pk"`
//	    Born    time.Time `record:"born,type=date"`
//	    Owner   *Person   `record:"owner,ref=Person"`
//	    Friends []*Dog    `record:"friends"`
//	    Avatar  *Asset    `record:"avatar"`
//	}
//
// Untagged fields and fields tagged "-" are not properties.
const TagName = "record"

// Tag is a parsed record struct tag.
type Tag struct {
	Name       string
	PrimaryKey bool
	Type       string // explicit property type, e.g. "date"
	Ref        string // explicit object type for object/list properties
}

// ParseTag parses a record tag. It reports false for "-" and empty tags.
func ParseTag(tag string) (Tag, bool) {
	if tag == "" || tag == "-" {
		return Tag{}, false
	}
	parts := strings.Split(tag, ",")
	t := Tag{Name: strings.TrimSpace(parts[0])}
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "pk":
			t.PrimaryKey = true
		case strings.HasPrefix(opt, "type="):
			t.Type = strings.TrimPrefix(opt, "type=")
		case strings.HasPrefix(opt, "ref="):
			t.Ref = strings.TrimPrefix(opt, "ref=")
		}
	}
	return t, t.Name != ""
}

// StructField is a tagged exported field of a struct type.
type StructField struct {
	Tag   Tag
	Index int
	Type  reflect.Type
}

var fieldCache sync.Map // reflect.Type -> []StructField

// StructFields returns the tagged exported fields of struct type t in
// declaration order. Embedded fields are not followed.
func StructFields(t reflect.Type) []StructField {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]StructField)
	}

	var fields []StructField
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag, ok := ParseTag(f.Tag.Get(TagName))
		if !ok {
			continue
		}
		fields = append(fields, StructField{Tag: tag, Index: i, Type: f.Type})
	}

	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]StructField)
}

// structObject adapts a tagged Go struct to Object.
type structObject struct {
	typ    string
	val    reflect.Value
	fields map[string]int
}

// FromStruct wraps a struct, or a non-nil pointer to one, as an Object.
// Properties are the tagged fields; the object type is TypeName(v).
//
// Field values are exposed in the local value domain: pointers to structs
// become Objects, slices of structs become Lists and nil pointers are nil.
func FromStruct(v any) (Object, error) {
	if o, ok := v.(Object); ok {
		return o, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("object: nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("object: %T is not a struct", v)
	}

	fields := StructFields(rv.Type())
	byName := make(map[string]int, len(fields))
	for _, f := range fields {
		byName[f.Tag.Name] = f.Index
	}
	return &structObject{typ: TypeName(v), val: rv, fields: byName}, nil
}

// MustFromStruct is like FromStruct but panics on error.
func MustFromStruct(v any) Object {
	o, err := FromStruct(v)
	if err != nil {
		panic(err)
	}
	return o
}

func (s *structObject) ObjectType() string {
	return s.typ
}

func (s *structObject) Get(property string) (any, bool) {
	i, ok := s.fields[property]
	if !ok {
		return nil, false
	}
	return localValue(s.val.Field(i)), true
}

var (
	timeType  = reflect.TypeFor[time.Time]()
	assetType = reflect.TypeFor[*Asset]()
	bytesType = reflect.TypeFor[[]byte]()
)

// localValue converts a struct field to the local value domain.
func localValue(fv reflect.Value) any {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map:
		if fv.IsNil() {
			return nil
		}
	}

	t := fv.Type()
	switch {
	case t == timeType, t == assetType, t == bytesType:
		return fv.Interface()
	case t.Implements(reflect.TypeFor[Object]()):
		return fv.Interface()
	}

	switch fv.Kind() {
	case reflect.Pointer:
		if elem := fv.Elem(); elem.Kind() == reflect.Struct && elem.Type() != timeType {
			o, err := FromStruct(fv.Interface())
			if err != nil {
				return nil
			}
			return o
		}
		return localValue(fv.Elem())
	case reflect.Interface:
		return localValue(fv.Elem())
	case reflect.Struct:
		o, err := FromStruct(fv.Interface())
		if err != nil {
			return nil
		}
		return o
	case reflect.Slice, reflect.Array:
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			return fv.Interface()
		}
		return listValue(fv)
	default:
		return fv.Interface()
	}
}

// listValue converts a slice of objects or structs to a List. Elements that
// are not objects are kept as nil members so the caller can see where the
// list stops being resolvable.
func listValue(fv reflect.Value) List {
	list := make(List, 0, fv.Len())
	for i := range fv.Len() {
		o, _ := localValue(fv.Index(i)).(Object)
		list = append(list, o)
	}
	return list
}
