package ir

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping, no escaping of U+2028/U+2029
//  3. Strings are NFC normalized
//  4. No JSON floats and no JSON null: record values are written in their
//     tagged form (see EncodeValue), which carries doubles as strings
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalRecord produces the canonical JSON of a record.
func MarshalRecord(r *Record) ([]byte, error) {
	obj, err := EncodeRecord(r)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(obj)
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case IRString:
		writeCanonicalString(buf, string(val))
	case string:
		writeCanonicalString(buf, val)
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case IRBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case IRArray:
		return writeCanonicalArray(buf, val)
	case IRObject:
		return writeCanonicalObject(buf, val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := toIRValue(elem)
			if err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return writeCanonicalArray(buf, arr)
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := toIRValue(elem)
			if err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return writeCanonicalObject(buf, obj)
	case float64, float32:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case IRValue:
		tagged, err := EncodeValue(val)
		if err != nil {
			return err
		}
		return writeCanonicalObject(buf, tagged)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// toIRValue converts a plain Go value to an IRValue.
func toIRValue(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case int64:
		return IRInt(val), nil
	case int:
		return IRInt(val), nil
	case bool:
		return IRBool(val), nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden")
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := toIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := toIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// writeCanonicalString writes an NFC-normalized JSON string. Only the quote,
// the backslash and control characters below U+0020 are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[r>>4])
				buf.WriteByte(hex[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

func writeCanonicalArray(buf *bytes.Buffer, arr IRArray) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeCanonicalObject(buf *bytes.Buffer, obj IRObject) error {
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCanonicalString(buf, k)
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// Value tags used by EncodeValue.
const (
	TagNull          = "null"
	TagString        = "string"
	TagInt           = "int"
	TagBool          = "bool"
	TagDouble        = "double"
	TagTimestamp     = "timestamp"
	TagBytes         = "bytes"
	TagAsset         = "asset"
	TagReference     = "reference"
	TagReferenceList = "reference_list"
)

// EncodeValue returns the tagged structural form of a record value:
// {"type": <tag>, "value": ...}. Doubles are written with the shortest
// round-trip decimal representation, timestamps as RFC 3339 UTC with
// nanoseconds, bytes as standard base64.
func EncodeValue(v IRValue) (IRObject, error) {
	switch val := v.(type) {
	case IRNull:
		return IRObject{"type": IRString(TagNull)}, nil
	case IRString:
		return IRObject{"type": IRString(TagString), "value": val}, nil
	case IRInt:
		return IRObject{"type": IRString(TagInt), "value": val}, nil
	case IRBool:
		return IRObject{"type": IRString(TagBool), "value": val}, nil
	case IRDouble:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("double %v has no canonical form", f)
		}
		return IRObject{"type": IRString(TagDouble), "value": IRString(strconv.FormatFloat(f, 'g', -1, 64))}, nil
	case IRTimestamp:
		return IRObject{"type": IRString(TagTimestamp), "value": IRString(val.Time().UTC().Format(time.RFC3339Nano))}, nil
	case IRBytes:
		return IRObject{"type": IRString(TagBytes), "value": IRString(base64.StdEncoding.EncodeToString(val))}, nil
	case IRAsset:
		return IRObject{
			"type":     IRString(TagAsset),
			"file_url": IRString(val.FileURL),
			"checksum": IRString(val.Checksum),
			"size":     IRInt(val.Size),
		}, nil
	case IRReference:
		obj := encodeReference(val)
		obj["type"] = IRString(TagReference)
		return obj, nil
	case IRReferenceList:
		refs := make(IRArray, len(val))
		for i, ref := range val {
			refs[i] = encodeReference(ref)
		}
		return IRObject{"type": IRString(TagReferenceList), "value": refs}, nil
	default:
		return nil, fmt.Errorf("value of type %T has no tagged form", v)
	}
}

func encodeReference(ref IRReference) IRObject {
	action := ref.Action
	if action == "" {
		action = ReferenceActionNone
	}
	return IRObject{
		"record_id": EncodeRecordID(ref.ID),
		"action":    IRString(action),
	}
}

// EncodeRecordID returns the structural form of a record id.
func EncodeRecordID(id RecordID) IRObject {
	return IRObject{
		"record_name": IRString(id.RecordName),
		"zone_name":   IRString(id.Zone.Name),
		"zone_owner":  IRString(id.Zone.Owner),
	}
}

// EncodeRecord returns the structural form of a record.
func EncodeRecord(r *Record) (IRObject, error) {
	if r == nil {
		return nil, fmt.Errorf("nil record")
	}
	fields := make(IRObject, len(r.Fields))
	for name, v := range r.Fields {
		tagged, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = tagged
	}
	return IRObject{
		"record_type": IRString(r.RecordType),
		"record_id":   EncodeRecordID(r.ID),
		"fields":      fields,
	}, nil
}

// EncodeSchema returns the structural form of a schema, used for hashing.
func EncodeSchema(s ObjectSchema) IRObject {
	props := make(IRArray, len(s.Properties))
	for i, p := range s.Properties {
		props[i] = IRObject{
			"name":        IRString(p.Name),
			"type":        IRString(p.Type),
			"object_type": IRString(p.ObjectType),
			"category":    IRString(p.Category.String()),
		}
	}
	refs := make(IRArray, len(s.References))
	for i, r := range s.References {
		refs[i] = IRString(r)
	}
	return IRObject{
		"name":        IRString(s.Name),
		"primary_key": IRString(s.PrimaryKey),
		"properties":  props,
		"references":  refs,
	}
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(tagged IRObject) (IRValue, error) {
	tag, ok := tagged["type"].(IRString)
	if !ok {
		return nil, fmt.Errorf("tagged value has no type")
	}

	switch string(tag) {
	case TagNull:
		return IRNull{}, nil
	case TagString:
		s, ok := tagged["value"].(IRString)
		if !ok {
			return nil, fmt.Errorf("%s value must be a string", tag)
		}
		return s, nil
	case TagInt:
		n, ok := tagged["value"].(IRInt)
		if !ok {
			return nil, fmt.Errorf("%s value must be an integer", tag)
		}
		return n, nil
	case TagBool:
		b, ok := tagged["value"].(IRBool)
		if !ok {
			return nil, fmt.Errorf("%s value must be a boolean", tag)
		}
		return b, nil
	case TagDouble:
		s, err := taggedString(tagged)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("double: %w", err)
		}
		return IRDouble(f), nil
	case TagTimestamp:
		s, err := taggedString(tagged)
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
		return NewTimestamp(ts), nil
	case TagBytes:
		s, err := taggedString(tagged)
		if err != nil {
			return nil, err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("bytes: %w", err)
		}
		return IRBytes(b), nil
	case TagAsset:
		url, _ := tagged["file_url"].(IRString)
		sum, _ := tagged["checksum"].(IRString)
		size, _ := tagged["size"].(IRInt)
		return IRAsset{FileURL: string(url), Checksum: string(sum), Size: int64(size)}, nil
	case TagReference:
		return decodeReference(tagged)
	case TagReferenceList:
		arr, ok := tagged["value"].(IRArray)
		if !ok {
			return nil, fmt.Errorf("%s value must be an array", tag)
		}
		refs := make(IRReferenceList, len(arr))
		for i, elem := range arr {
			obj, ok := elem.(IRObject)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be an object", tag, i)
			}
			ref, err := decodeReference(obj)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", tag, i, err)
			}
			refs[i] = ref
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("unknown value tag %q", tag)
	}
}

func taggedString(tagged IRObject) (string, error) {
	s, ok := tagged["value"].(IRString)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", tagged["type"])
	}
	return string(s), nil
}

func decodeReference(obj IRObject) (IRReference, error) {
	id, ok := obj["record_id"].(IRObject)
	if !ok {
		return IRReference{}, fmt.Errorf("reference has no record_id")
	}
	name, _ := id["record_name"].(IRString)
	zone, _ := id["zone_name"].(IRString)
	owner, _ := id["zone_owner"].(IRString)
	action, _ := obj["action"].(IRString)
	return IRReference{
		ID: RecordID{
			RecordName: string(name),
			Zone:       ZoneID{Name: string(zone), Owner: string(owner)},
		},
		Action: ReferenceAction(action),
	}, nil
}
