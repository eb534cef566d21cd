package ir

import "fmt"

// Zone naming constants.
const (
	// ZoneSuffix is appended to a record type to name its zone.
	ZoneSuffix = "sZone"

	// DefaultZoneName is the backend's built-in zone.
	DefaultZoneName = "_defaultZone"

	// CurrentUserDefaultName stands for the authenticated account when no
	// explicit owner is configured.
	CurrentUserDefaultName = "__defaultOwner__"
)

// ZoneID identifies a zone: a per-type, per-account namespace for records.
type ZoneID struct {
	Name  string `json:"zone_name"`
	Owner string `json:"zone_owner"`
}

// String renders the zone as "name@owner".
func (z ZoneID) String() string {
	return z.Name + "@" + z.Owner
}

// RecordID identifies a record within a zone.
type RecordID struct {
	RecordName string `json:"record_name"`
	Zone       ZoneID `json:"zone"`
}

// String renders the id as "zone/name".
func (id RecordID) String() string {
	return fmt.Sprintf("%s/%s", id.Zone, id.RecordName)
}

// Record is the remote representation of a local object.
//
// A field that was never set is absent from Fields; a field that was
// explicitly cleared holds IRNull. Use Lookup to tell the two apart.
type Record struct {
	RecordType string             `json:"record_type"`
	ID         RecordID           `json:"id"`
	Fields     map[string]IRValue `json:"fields"`
}

// NewRecord creates an empty record of the given type and identity.
func NewRecord(recordType string, id RecordID) *Record {
	return &Record{
		RecordType: recordType,
		ID:         id,
		Fields:     make(map[string]IRValue),
	}
}

// Set assigns a field value.
func (r *Record) Set(name string, v IRValue) {
	r.Fields[name] = v
}

// Clear marks a field as explicitly cleared.
func (r *Record) Clear(name string) {
	r.Fields[name] = IRNull{}
}

// Lookup returns the field value and whether the field is present.
// A cleared field is present with an IRNull value.
func (r *Record) Lookup(name string) (IRValue, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// IsCleared reports whether the field is present and explicitly cleared.
func (r *Record) IsCleared(name string) bool {
	v, ok := r.Fields[name]
	if !ok {
		return false
	}
	_, isNull := v.(IRNull)
	return isNull
}

// FieldNames returns the present field names in canonical order.
func (r *Record) FieldNames() []string {
	obj := make(IRObject, len(r.Fields))
	for k := range r.Fields {
		obj[k] = IRNull{}
	}
	return obj.SortedKeys()
}

// Equal reports whether two records have the same type, identity and fields.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.RecordType != other.RecordType || r.ID != other.ID || len(r.Fields) != len(other.Fields) {
		return false
	}
	for k, v := range r.Fields {
		ov, ok := other.Fields[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record in its canonical tagged form.
func (r *Record) MarshalJSON() ([]byte, error) {
	return MarshalRecord(r)
}
