package store

import (
	"fmt"
	"reflect"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/object"
)

// Body tags used in addition to the ir value tags.
const (
	tagLink  = "link"
	tagLinks = "links"
)

// marshalObject converts the schema properties of obj to canonical JSON
// TEXT for storage. Properties the object does not hold are skipped, and so
// are scalars a record cannot hold (see object.Scalar); either way the
// stored copy converts exactly like obj. A held nil is kept as an explicit
// null.
func marshalObject(cat *catalog.Catalog, schema *ir.ObjectSchema, obj object.Object) (string, error) {
	body := make(ir.IRObject, len(schema.Properties))
	for _, p := range schema.Properties {
		v, ok := obj.Get(p.Name)
		if !ok {
			continue
		}
		tagged, ok, err := encodeProperty(cat, v)
		if err != nil {
			return "", fmt.Errorf("marshal object: property %q: %w", p.Name, err)
		}
		if ok {
			body[p.Name] = tagged
		}
	}

	data, err := ir.MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("marshal object: %w", err)
	}
	return string(data), nil
}

// encodeProperty returns the tagged form of a held property value. It
// reports false for a scalar that is not stored.
func encodeProperty(cat *catalog.Catalog, v any) (ir.IRObject, bool, error) {
	if v == nil {
		return encodeValue(ir.IRNull{})
	}

	switch x := v.(type) {
	case *object.Asset:
		if x == nil {
			return encodeValue(ir.IRNull{})
		}
		return encodeValue(x.Ref())
	case object.List:
		return encodeLinks(cat, x), true, nil
	case []object.Object:
		return encodeLinks(cat, x), true, nil
	case object.Object:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return encodeValue(ir.IRNull{})
		}
		return encodeLink(cat, x), true, nil
	}

	val, ok := object.Scalar(v)
	if !ok {
		return nil, false, nil
	}
	return encodeValue(val)
}

func encodeValue(v ir.IRValue) (ir.IRObject, bool, error) {
	tagged, err := ir.EncodeValue(v)
	if err != nil {
		return nil, false, err
	}
	return tagged, true, nil
}

// encodeLink stores a related object by type and primary key.
func encodeLink(cat *catalog.Catalog, o object.Object) ir.IRObject {
	link := ir.IRObject{
		"type":        ir.IRString(tagLink),
		"object_type": ir.IRString(o.ObjectType()),
	}

	schema, ok := cat.Lookup(o.ObjectType())
	if !ok || schema.PrimaryKey == "" {
		return link
	}
	key, ok := o.Get(schema.PrimaryKey)
	if !ok || key == nil {
		return link
	}
	val, ok := object.Scalar(key)
	if !ok {
		return link
	}
	tagged, err := ir.EncodeValue(val)
	if err != nil {
		return link
	}
	link["key_property"] = ir.IRString(schema.PrimaryKey)
	link["key"] = tagged
	return link
}

func encodeLinks[L ~[]object.Object](cat *catalog.Catalog, list L) ir.IRObject {
	links := make(ir.IRArray, len(list))
	for i, member := range list {
		if member == nil {
			links[i] = ir.IRObject{}
			continue
		}
		links[i] = encodeLink(cat, member)
	}
	return ir.IRObject{"type": ir.IRString(tagLinks), "value": links}
}

// unmarshalObject parses a stored body into a Dynamic object.
func unmarshalObject(objectType, body string) (*object.Dynamic, error) {
	v, err := ir.UnmarshalIRValue([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	props, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("unmarshal object: body is not an object")
	}

	obj := object.NewDynamic(objectType)
	for _, name := range props.SortedKeys() {
		tagged, ok := props[name].(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("unmarshal object: property %q is not tagged", name)
		}
		val, err := decodeProperty(tagged)
		if err != nil {
			return nil, fmt.Errorf("unmarshal object: property %q: %w", name, err)
		}
		obj.Set(name, val)
	}
	return obj, nil
}

// decodeProperty converts a tagged value back to the local value domain.
func decodeProperty(tagged ir.IRObject) (any, error) {
	switch tagged["type"] {
	case ir.IRString(tagLink):
		return decodeLink(tagged)
	case ir.IRString(tagLinks):
		arr, ok := tagged["value"].(ir.IRArray)
		if !ok {
			return nil, fmt.Errorf("links value must be an array")
		}
		list := make(object.List, len(arr))
		for i, elem := range arr {
			link, ok := elem.(ir.IRObject)
			if !ok {
				return nil, fmt.Errorf("links[%d] must be an object", i)
			}
			if len(link) == 0 {
				continue
			}
			stub, err := decodeLink(link)
			if err != nil {
				return nil, fmt.Errorf("links[%d]: %w", i, err)
			}
			list[i] = stub
		}
		return list, nil
	}

	val, err := ir.DecodeValue(tagged)
	if err != nil {
		return nil, err
	}
	return localValue(val), nil
}

// decodeLink builds a stub object holding only the related primary key.
func decodeLink(link ir.IRObject) (*object.Dynamic, error) {
	objectType, ok := link["object_type"].(ir.IRString)
	if !ok {
		return nil, fmt.Errorf("link has no object_type")
	}
	stub := object.NewDynamic(string(objectType))

	keyProp, ok := link["key_property"].(ir.IRString)
	if !ok {
		return stub, nil
	}
	tagged, ok := link["key"].(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("link %s has key_property but no key", objectType)
	}
	key, err := ir.DecodeValue(tagged)
	if err != nil {
		return nil, fmt.Errorf("link key: %w", err)
	}
	stub.Set(string(keyProp), localValue(key))
	return stub, nil
}

// localValue converts a decoded record value to a held property value.
func localValue(v ir.IRValue) any {
	switch x := v.(type) {
	case ir.IRNull:
		return nil
	case ir.IRString:
		return string(x)
	case ir.IRInt:
		return int64(x)
	case ir.IRBool:
		return bool(x)
	case ir.IRDouble:
		return float64(x)
	case ir.IRTimestamp:
		return x.Time()
	case ir.IRBytes:
		return []byte(x)
	case ir.IRAsset:
		return object.NewAsset(x)
	default:
		return v
	}
}
