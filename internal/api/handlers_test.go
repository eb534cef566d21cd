package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/export"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/mapper"
	"github.com/roach88/cloudrec/internal/object"
	"github.com/roach88/cloudrec/internal/store"
)

func petCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]ir.ObjectSchema{
		{
			Name:       "Dog",
			PrimaryKey: "id",
			References: []string{"Person"},
			Properties: []ir.Property{
				{Name: "id", Type: ir.TypeString},
				{Name: "name", Type: ir.TypeString},
				{Name: "owner", Type: ir.TypeObject, ObjectType: "Person"},
			},
		},
		{
			Name:       "Person",
			PrimaryKey: "id",
			Properties: []ir.Property{{Name: "id", Type: ir.TypeString}},
		},
	})
	require.NoError(t, err)
	return cat
}

func setupServer(t *testing.T, cat *catalog.Catalog, m *mapper.Mapper) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	alice := object.NewDynamic("Person").Set("id", "p1")
	require.NoError(t, st.PutObject(ctx, cat, alice))
	require.NoError(t, st.PutObject(ctx, cat, object.NewDynamic("Dog").
		Set("id", "d1").
		Set("name", "Rex").
		Set("owner", alice)))

	srv := httptest.NewServer(NewRouter(NewHandler(st, m)))
	t.Cleanup(srv.Close)
	return srv, st
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	cat := petCatalog(t)
	srv, _ := setupServer(t, cat, mapper.New(cat, "alice"))

	var body map[string]string
	status := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, ir.ToolVersion, body["version"])
}

func TestListSchemas(t *testing.T) {
	cat := petCatalog(t)
	srv, _ := setupServer(t, cat, mapper.New(cat, "alice"))

	var body struct {
		SchemaHash string       `json:"schema_hash"`
		AssetType  string       `json:"asset_type"`
		Schemas    []schemaView `json:"schemas"`
	}
	status := getJSON(t, srv.URL+"/schemas", &body)
	require.Equal(t, http.StatusOK, status)

	hash, err := cat.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, body.SchemaHash)
	assert.Equal(t, catalog.DefaultAssetType, body.AssetType)

	require.Len(t, body.Schemas, 2)
	assert.Equal(t, "Dog", body.Schemas[0].Name)
	assert.Equal(t, ir.ZoneID{Name: "DogsZone", Owner: "alice"}, body.Schemas[0].Zone)
	assert.Equal(t, []string{"Person"}, body.Schemas[0].References)
	assert.Equal(t, []string{}, body.Schemas[1].References)
}

func TestGetSchema(t *testing.T) {
	cat := petCatalog(t)
	srv, _ := setupServer(t, cat, mapper.New(cat, "alice"))

	var view schemaView
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/schemas/Dog", &view))
	assert.Equal(t, "id", view.PrimaryKey)
	require.Len(t, view.Properties, 3)

	var errBody map[string]map[string]any
	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/schemas/Cat", &errBody))
	assert.Equal(t, "object type not found", errBody["error"]["message"])
	assert.EqualValues(t, http.StatusNotFound, errBody["error"]["code"])
}

func TestGetZone(t *testing.T) {
	cat := petCatalog(t)
	srv, _ := setupServer(t, cat, mapper.New(cat, "alice"))

	var zone ir.ZoneID
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/zones/Person", &zone))
	assert.Equal(t, ir.ZoneID{Name: "PersonsZone", Owner: "alice"}, zone)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/zones/Cat", nil))
}

func TestGetRecord(t *testing.T) {
	cat := petCatalog(t)
	m := mapper.New(cat, "alice")
	srv, _ := setupServer(t, cat, m)

	var view recordView
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/records/Dog/d1", &view))

	want := m.MustRecord(object.NewDynamic("Dog").
		Set("id", "d1").
		Set("name", "Rex").
		Set("owner", object.NewDynamic("Person").Set("id", "p1")))
	body, err := ir.MarshalRecord(want)
	require.NoError(t, err)
	tag, err := ir.ChangeTag(want)
	require.NoError(t, err)

	assert.JSONEq(t, string(body), string(view.Record))
	assert.Equal(t, tag, view.ChangeTag)
}

func TestGetRecord_NotFound(t *testing.T) {
	cat := petCatalog(t)
	srv, _ := setupServer(t, cat, mapper.New(cat, "alice"))

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/records/Dog/nope", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/records/Cat/d1", nil))
}

func TestGetRecord_DefectIsUnprocessable(t *testing.T) {
	stored := petCatalog(t)

	// Same type, but keyed on a property the stored objects never set.
	rekeyed, err := catalog.New([]ir.ObjectSchema{{
		Name:       "Dog",
		PrimaryKey: "tag",
		Properties: []ir.Property{
			{Name: "id", Type: ir.TypeString},
			{Name: "tag", Type: ir.TypeInt},
		},
	}})
	require.NoError(t, err)

	srv, _ := setupServer(t, stored, mapper.New(rekeyed, "alice"))

	var errBody map[string]map[string]any
	require.Equal(t, http.StatusUnprocessableEntity, getJSON(t, srv.URL+"/records/Dog/d1", &errBody))
	assert.Contains(t, errBody["error"]["message"], "primary key")
}

func TestListRecords(t *testing.T) {
	cat := petCatalog(t)
	srv, _ := setupServer(t, cat, mapper.New(cat, "alice"))

	var body struct {
		Records []recordView `json:"records"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/records/Person", &body))
	require.Len(t, body.Records, 1)
	assert.Contains(t, string(body.Records[0].Record), `"record_name":"p1"`)
}

func TestListExports(t *testing.T) {
	cat := petCatalog(t)
	m := mapper.New(cat, "alice")
	srv, st := setupServer(t, cat, m)

	var before struct {
		Exports []exportView `json:"exports"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/exports/Dog", &before))
	assert.Empty(t, before.Exports)

	ex := export.New(st, m, export.WithGenerator(export.NewFixedGenerator("b1")))
	_, err := ex.Run(context.Background())
	require.NoError(t, err)

	var after struct {
		Exports []exportView `json:"exports"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/exports/Dog", &after))
	require.Len(t, after.Exports, 1)
	assert.Equal(t, "d1", after.Exports[0].RecordName)
	assert.Equal(t, "b1", after.Exports[0].BatchID)
	assert.NotEmpty(t, after.Exports[0].ChangeTag)
	assert.Contains(t, string(after.Exports[0].Record), `"record_type":"Dog"`)
}

func TestRouterAddsRequestID(t *testing.T) {
	cat := petCatalog(t)
	r := NewRouter(NewHandler(nil, mapper.New(cat, "alice")))

	var seen string
	r.Get("/probe", func(w http.ResponseWriter, r *http.Request) {
		seen = chimw.GetReqID(r.Context())
		JSON(w, http.StatusNoContent, nil)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, seen)
}
