package ir

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-100), "-100"},
		{"max int64", IRInt(9223372036854775807), "9223372036854775807"},
		{"min int64", IRInt(-9223372036854775808), "-9223372036854775808"},
		{"bool true", IRBool(true), "true"},
		{"bool false", IRBool(false), "false"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"array of ints", IRArray{IRInt(1), IRInt(2), IRInt(3)}, "[1,2,3]"},
		{"simple object", IRObject{"a": IRInt(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra": IRInt(1),
		"alpha": IRInt(2),
		"beta":  IRObject{"b": IRInt(1), "a": IRInt(2)},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// UTF-16 puts the surrogate pair (0xD800) before 0xE000; UTF-8 does not.
	obj := IRObject{
		"\uE000":     IRInt(1),
		"\U00010000": IRInt(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"control", "a\x01b", `"a\u0001b"`},
		{"html", "<a & b>", `"<a & b>"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator", "a\u2029b", "\"a\u2029b\""},
		{"literal backslash u2028", `a\u2028b`, `"a\\u2028b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	r1, err := MarshalCanonical(IRObject{composed: IRString(composed)})
	require.NoError(t, err)
	r2, err := MarshalCanonical(IRObject{decomposed: IRString(decomposed)})
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
}

func TestMarshalCanonicalRejectsFloatsAndNil(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")

	_, err = MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")

	_, err = MarshalCanonical(map[string]any{"x": 1.5})
	require.Error(t, err)
}

func TestMarshalCanonicalWithGoTypes(t *testing.T) {
	result, err := MarshalCanonical(map[string]any{
		"b": int64(1),
		"a": "test",
		"c": []any{1, true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"test","b":1,"c":[1,true]}`, string(result))
}

func TestMarshalCanonicalIdempotency(t *testing.T) {
	cases := []IRValue{
		IRString("hello"),
		IRInt(42),
		IRArray{IRInt(1), IRString("two"), IRBool(false)},
		IRObject{
			"nested": IRObject{"array": IRArray{IRInt(1), IRInt(2)}},
			"simple": IRString("value"),
		},
	}

	for _, original := range cases {
		first, err := MarshalCanonical(original)
		require.NoError(t, err)

		decoded, err := UnmarshalIRValue(first)
		require.NoError(t, err)

		second, err := MarshalCanonical(decoded)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestEncodeValueTags(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 500, time.FixedZone("CET", 3600))
	ref := NewReference(RecordID{RecordName: "p1", Zone: ZoneID{Name: DefaultZoneName, Owner: "alice"}})

	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{"null", IRNull{}, `{"type":"null"}`},
		{"string", IRString("rex"), `{"type":"string","value":"rex"}`},
		{"int", IRInt(7), `{"type":"int","value":7}`},
		{"bool", IRBool(true), `{"type":"bool","value":true}`},
		{"double", IRDouble(1.5), `{"type":"double","value":"1.5"}`},
		{"double exponent", IRDouble(1e21), `{"type":"double","value":"1e+21"}`},
		{"timestamp utc", NewTimestamp(ts), `{"type":"timestamp","value":"2024-03-01T11:30:00.0000005Z"}`},
		{"bytes", IRBytes("hi"), `{"type":"bytes","value":"aGk="}`},
		{"asset", IRAsset{FileURL: "file:///a", Checksum: "ab", Size: 3}, `{"checksum":"ab","file_url":"file:///a","size":3,"type":"asset"}`},
		{
			"reference",
			ref,
			`{"action":"none","record_id":{"record_name":"p1","zone_name":"_defaultZone","zone_owner":"alice"},"type":"reference"}`,
		},
		{
			"reference list",
			IRReferenceList{ref},
			`{"type":"reference_list","value":[{"action":"none","record_id":{"record_name":"p1","zone_name":"_defaultZone","zone_owner":"alice"}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestEncodeValueRejectsNaN(t *testing.T) {
	_, err := EncodeValue(IRDouble(math.NaN()))
	require.Error(t, err)
}

func TestMarshalRecord(t *testing.T) {
	r := NewRecord("Dog", RecordID{RecordName: "d1", Zone: ZoneID{Name: "DogsZone", Owner: "alice"}})
	r.Set("name", IRString("Rex"))
	r.Clear("avatar")

	data, err := MarshalRecord(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"fields":{"avatar":{"type":"null"},"name":{"type":"string","value":"Rex"}},`+
			`"record_id":{"record_name":"d1","zone_name":"DogsZone","zone_owner":"alice"},"record_type":"Dog"}`,
		string(data))
}

func TestMarshalRecordNil(t *testing.T) {
	_, err := MarshalRecord(nil)
	require.Error(t, err)
}

func TestEncodeSchema(t *testing.T) {
	s := ObjectSchema{
		Name:       "Dog",
		PrimaryKey: "id",
		Properties: []Property{{Name: "id", Type: TypeString, Category: CategoryScalar}},
	}

	data, err := MarshalCanonical(EncodeSchema(s))
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"Dog","primary_key":"id","properties":[{"category":"scalar","name":"id","object_type":"","type":"string"}],"references":[]}`,
		string(data))
}

func TestDecodeValueInvertsEncodeValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)
	ref := NewReference(RecordID{RecordName: "p1", Zone: ZoneID{Name: DefaultZoneName, Owner: "alice"}})

	values := []IRValue{
		IRNull{},
		IRString("rex"),
		IRInt(-3),
		IRBool(true),
		IRDouble(0.1),
		NewTimestamp(ts),
		IRBytes{0, 1, 2},
		IRAsset{FileURL: "file:///a", Checksum: "ab", Size: 3},
		ref,
		IRReferenceList{ref, ref},
	}

	for _, v := range values {
		tagged, err := EncodeValue(v)
		require.NoError(t, err)

		data, err := MarshalCanonical(tagged)
		require.NoError(t, err)
		decoded, err := UnmarshalIRValue(data)
		require.NoError(t, err)

		got, err := DecodeValue(decoded.(IRObject))
		require.NoError(t, err)
		assert.True(t, Equal(v, got), "%T round trip", v)
	}
}

func TestDecodeValueErrors(t *testing.T) {
	tests := []IRObject{
		{},
		{"type": IRString("mystery")},
		{"type": IRString(TagInt), "value": IRString("7")},
		{"type": IRString(TagDouble), "value": IRString("x")},
		{"type": IRString(TagTimestamp), "value": IRString("yesterday")},
		{"type": IRString(TagReference)},
	}

	for _, tagged := range tests {
		_, err := DecodeValue(tagged)
		assert.Error(t, err)
	}
}
