package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf16"
)

// IRValue is a sealed interface representing a record field value.
//
// Record fields hold IRString, IRInt, IRBool, IRDouble, IRTimestamp, IRBytes,
// IRAsset, IRReference, IRReferenceList or IRNull. IRArray and IRObject are
// structural values used by the canonical encoding and by stored object
// bodies; the mapper never places them in a record.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull is an explicit clear. A record field holding IRNull is present but
// empty, which the backend treats as "hide/remove this field" rather than
// "leave the field at its default".
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRDouble represents a floating point value. Both float and double
// properties map to IRDouble; the backend has a single number type.
type IRDouble float64

func (IRDouble) irValue() {}

// IRTimestamp represents a point in time. Stored in UTC.
type IRTimestamp time.Time

func (IRTimestamp) irValue() {}

// Time returns the timestamp as a time.Time.
func (t IRTimestamp) Time() time.Time {
	return time.Time(t)
}

// IRBytes represents raw binary data stored inline in the record.
type IRBytes []byte

func (IRBytes) irValue() {}

// IRAsset is a reference to binary data uploaded out of band.
// FileURL locates the local copy; Checksum is the content hash.
type IRAsset struct {
	FileURL  string `json:"file_url"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

func (IRAsset) irValue() {}

// ReferenceAction controls what happens to the referencing record when the
// target is deleted.
type ReferenceAction string

const (
	// ReferenceActionNone leaves the referencing record alone (no cascade).
	ReferenceActionNone ReferenceAction = "none"
	// ReferenceActionDeleteSelf deletes the referencing record with its target.
	ReferenceActionDeleteSelf ReferenceAction = "delete_self"
)

// IRReference is a non-owning pointer to another record.
type IRReference struct {
	ID     RecordID        `json:"id"`
	Action ReferenceAction `json:"action"`
}

func (IRReference) irValue() {}

// IRReferenceList is an ordered list of references (many-valued relationship).
type IRReferenceList []IRReference

func (IRReferenceList) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// NewReference creates a reference with no delete action.
func NewReference(id RecordID) IRReference {
	return IRReference{ID: id, Action: ReferenceActionNone}
}

// NewTimestamp creates an IRTimestamp normalised to UTC.
func NewTimestamp(t time.Time) IRTimestamp {
	return IRTimestamp(t.UTC())
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which orders some keys differently.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units as required by
// RFC 8785.
func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Equal reports whether two values are structurally equal.
// Timestamps compare by instant; byte slices by content.
func Equal(a, b IRValue) bool {
	switch av := a.(type) {
	case IRTimestamp:
		bv, ok := b.(IRTimestamp)
		return ok && av.Time().Equal(bv.Time())
	case IRBytes:
		bv, ok := b.(IRBytes)
		return ok && bytes.Equal(av, bv)
	case IRReferenceList:
		bv, ok := b.(IRReferenceList)
		return ok && slices.Equal(av, bv)
	case IRArray:
		bv, ok := b.(IRArray)
		return ok && slices.EqualFunc(av, bv, Equal)
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// UnmarshalIRValue decodes structural JSON into an IRValue.
// Only string, int, bool, array and object are accepted: JSON floats and
// null are rejected, matching what MarshalCanonical produces.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return convertToIRValue(raw)
}

// convertToIRValue recursively converts a decoded JSON value to an IRValue.
func convertToIRValue(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not allowed in structural JSON")
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not allowed in structural JSON: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return IRInt(n), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
