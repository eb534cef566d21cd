package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *Record {
	r := NewRecord("Dog", RecordID{RecordName: "d1", Zone: ZoneID{Name: "DogsZone", Owner: "alice"}})
	r.Set("name", IRString("Rex"))
	r.Set("age", IRInt(3))
	return r
}

func TestChangeTagDeterminism(t *testing.T) {
	tag1, err := ChangeTag(testRecord())
	require.NoError(t, err)
	tag2, err := ChangeTag(testRecord())
	require.NoError(t, err)

	assert.Equal(t, tag1, tag2)
	assert.Len(t, tag1, 64, "SHA-256 hex is 64 characters")
}

func TestChangeTagChangesWithFields(t *testing.T) {
	base := MustChangeTag(testRecord())

	renamed := testRecord()
	renamed.Set("name", IRString("Max"))

	cleared := testRecord()
	cleared.Clear("avatar")

	moved := testRecord()
	moved.ID.Zone.Owner = "bob"

	assert.NotEqual(t, base, MustChangeTag(renamed))
	assert.NotEqual(t, base, MustChangeTag(cleared), "explicit clear is part of the record")
	assert.NotEqual(t, base, MustChangeTag(moved))
}

func TestChangeTagError(t *testing.T) {
	r := testRecord()
	r.Set("bad", IRArray{})

	_, err := ChangeTag(r)
	require.Error(t, err)
	assert.Panics(t, func() { MustChangeTag(r) })
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("same bytes")

	assert.NotEqual(t, hashWithDomain(DomainRecord, data), hashWithDomain(DomainAsset, data))
	assert.Equal(t, hashWithDomain(DomainAsset, data), AssetChecksum(data))
}

func TestSchemaHash(t *testing.T) {
	s := ObjectSchema{Name: "Dog", PrimaryKey: "id", Properties: []Property{{Name: "id", Type: TypeString}}}

	h1, err := SchemaHash(IRArray{EncodeSchema(s)})
	require.NoError(t, err)

	s.Properties = append(s.Properties, Property{Name: "age", Type: TypeInt})
	h2, err := SchemaHash(IRArray{EncodeSchema(s)})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
