package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/mapper"
	"github.com/roach88/cloudrec/internal/object"
)

// schemaView is the JSON form of a schema.
type schemaView struct {
	Name       string        `json:"name"`
	PrimaryKey string        `json:"primary_key"`
	Zone       ir.ZoneID     `json:"zone"`
	Properties []ir.Property `json:"properties"`
	References []string      `json:"references"`
}

// recordView is a converted record with its change tag.
type recordView struct {
	ChangeTag string          `json:"change_tag"`
	Record    json.RawMessage `json:"record"`
}

// exportView is a stored export snapshot.
type exportView struct {
	RecordName string          `json:"record_name"`
	ChangeTag  string          `json:"change_tag"`
	BatchID    string          `json:"batch_id"`
	Seq        int64           `json:"seq"`
	Record     json.RawMessage `json:"record"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": ir.ToolVersion,
	})
}

// ListSchemas handles GET /schemas.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	cat := h.mapper.Catalog()
	hash, err := cat.Hash()
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	schemas := make([]schemaView, 0, cat.Len())
	for _, name := range cat.Names() {
		s, _ := cat.Lookup(name)
		schemas = append(schemas, h.schemaView(s))
	}
	JSON(w, http.StatusOK, map[string]any{
		"schema_hash": hash,
		"asset_type":  cat.AssetType(),
		"schemas":     schemas,
	})
}

// GetSchema handles GET /schemas/{type}.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	s, ok := h.mapper.Catalog().Lookup(chi.URLParam(r, "type"))
	if !ok {
		Error(w, http.StatusNotFound, "object type not found")
		return
	}
	JSON(w, http.StatusOK, h.schemaView(s))
}

// GetZone handles GET /zones/{type}.
func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if _, ok := h.mapper.Catalog().Lookup(typ); !ok {
		Error(w, http.StatusNotFound, "object type not found")
		return
	}
	JSON(w, http.StatusOK, h.mapper.Zone(typ))
}

// ListRecords handles GET /records/{type}: every stored object of the type,
// converted.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if _, ok := h.mapper.Catalog().Lookup(typ); !ok {
		Error(w, http.StatusNotFound, "object type not found")
		return
	}

	objs, err := h.store.ListObjects(r.Context(), typ)
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]recordView, 0, len(objs))
	for _, obj := range objs {
		view, status, err := h.convert(obj)
		if err != nil {
			Error(w, status, err.Error())
			return
		}
		views = append(views, view)
	}
	JSON(w, http.StatusOK, map[string]any{"records": views})
}

// GetRecord handles GET /records/{type}/{key}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if _, ok := h.mapper.Catalog().Lookup(typ); !ok {
		Error(w, http.StatusNotFound, "object type not found")
		return
	}

	obj, err := h.store.GetObject(r.Context(), typ, chi.URLParam(r, "key"))
	if errors.Is(err, sql.ErrNoRows) {
		Error(w, http.StatusNotFound, "object not found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	view, status, err := h.convert(obj)
	if err != nil {
		Error(w, status, err.Error())
		return
	}
	JSON(w, http.StatusOK, view)
}

// ListExports handles GET /exports/{type}: the snapshots in the type's zone.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if _, ok := h.mapper.Catalog().Lookup(typ); !ok {
		Error(w, http.StatusNotFound, "object type not found")
		return
	}

	rows, err := h.store.ListExports(r.Context(), h.mapper.Zone(typ))
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]exportView, len(rows))
	for i, row := range rows {
		views[i] = exportView{
			RecordName: row.ID.RecordName,
			ChangeTag:  row.ChangeTag,
			BatchID:    row.BatchID,
			Seq:        row.Seq,
			Record:     json.RawMessage(row.Body),
		}
	}
	JSON(w, http.StatusOK, map[string]any{"exports": views})
}

// convert maps an object and reports the HTTP status for a failure.
// Configuration defects are 422: the request was fine, the model is not.
func (h *Handler) convert(obj object.Object) (recordView, int, error) {
	rec, err := h.mapper.Record(obj)
	if mapper.IsDefect(err) {
		return recordView{}, http.StatusUnprocessableEntity, err
	}
	if err != nil {
		return recordView{}, http.StatusInternalServerError, err
	}

	body, err := ir.MarshalRecord(rec)
	if err != nil {
		return recordView{}, http.StatusInternalServerError, err
	}
	tag, err := ir.ChangeTag(rec)
	if err != nil {
		return recordView{}, http.StatusInternalServerError, err
	}
	return recordView{ChangeTag: tag, Record: body}, http.StatusOK, nil
}

func (h *Handler) schemaView(s *ir.ObjectSchema) schemaView {
	refs := s.References
	if refs == nil {
		refs = []string{}
	}
	return schemaView{
		Name:       s.Name,
		PrimaryKey: s.PrimaryKey,
		Zone:       h.mapper.Zone(s.Name),
		Properties: s.Properties,
		References: refs,
	}
}
