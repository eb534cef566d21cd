package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cloudrec/internal/ir"
)

func TestCompileObjectSchemaBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		object: Dog: {
			primary_key: "id"
			references: ["Person"]
			properties: {
				id: "string"
				name: "string"
				age: "int"
				avatar: { type: "object", object_type: "Asset" }
				owner: { type: "object", object_type: "Person" }
				friends: { type: "list", object_type: "Dog" }
			}
		}
	`)

	require.NoError(t, v.Err())
	schema, err := CompileObjectSchema(v.LookupPath(cue.ParsePath("object.Dog")))
	require.NoError(t, err)

	assert.Equal(t, "Dog", schema.Name)
	assert.Equal(t, "id", schema.PrimaryKey)
	assert.Equal(t, []string{"Person"}, schema.References)
	require.Len(t, schema.Properties, 6)

	names := make([]string, len(schema.Properties))
	for i, p := range schema.Properties {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"id", "name", "age", "avatar", "owner", "friends"}, names, "declaration order is kept")

	assert.Equal(t, ir.TypeString, schema.Properties[0].Type)
	assert.Equal(t, ir.TypeInt, schema.Properties[2].Type)
	assert.Equal(t, ir.TypeObject, schema.Properties[3].Type)
	assert.Equal(t, "Asset", schema.Properties[3].ObjectType)
	assert.Equal(t, ir.TypeList, schema.Properties[5].Type)
	assert.Equal(t, "Dog", schema.Properties[5].ObjectType)
	assert.Equal(t, ir.CategoryUnknown, schema.Properties[0].Category, "categories are assigned by the catalog")
}

func TestCompileObjectSchemaMissingProperties(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		object: Bad: {
			primary_key: "id"
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileObjectSchema(v.LookupPath(cue.ParsePath("object.Bad")))
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "properties", compileErr.Field)
	assert.Contains(t, err.Error(), "properties is required")
}

func TestCompileObjectSchemaBadProperty(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		object: Bad: {
			primary_key: "id"
			properties: {
				id: "string"
				count: 3
			}
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileObjectSchema(v.LookupPath(cue.ParsePath("object.Bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `property "count"`)
}

func TestCompileObjectSchemaPropertyWithoutType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		object: Bad: {
			primary_key: "id"
			properties: {
				id: "string"
				owner: { object_type: "Person" }
			}
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileObjectSchema(v.LookupPath(cue.ParsePath("object.Bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no type")
}

func TestCompileObjectSchemaBadReferences(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		object: Bad: {
			primary_key: "id"
			references: [1, 2]
			properties: { id: "string" }
		}
	`)

	require.NoError(t, v.Err())
	_, err := CompileObjectSchema(v.LookupPath(cue.ParsePath("object.Bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "references must be a list of type names")
}

func TestCompileAll(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		object: Person: {
			primary_key: "id"
			properties: { id: "string", name: "string" }
		}
		object: Dog: {
			primary_key: "id"
			references: ["Person"]
			properties: {
				id: "string"
				owner: { type: "object", object_type: "Person" }
			}
		}
		object: Broken: {
			primary_key: "id"
		}
	`)

	require.NoError(t, v.Err())
	schemas, errs := CompileAll(v)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "object.Broken")

	require.Len(t, schemas, 2)
	assert.Equal(t, "Person", schemas[0].Name)
	assert.Equal(t, "Dog", schemas[1].Name)
}

func TestCompileAllNoObjects(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)

	schemas, errs := CompileAll(v)
	assert.Empty(t, schemas)
	assert.Empty(t, errs)
}
