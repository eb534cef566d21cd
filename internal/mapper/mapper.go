// Package mapper converts local objects into remote records.
//
// A Mapper derives, for any object whose type is registered in a catalog:
//
//   - the record type (the object's type name),
//   - the zone (one per type and account, named "<type>sZone"),
//   - the record id (the primary key within that zone),
//   - the record itself, with every property translated by its category.
//
// Broken preconditions in the object model are reported as *DefectError.
// Values that cannot be translated are silently left out of the record.
// A Mapper holds no mutable state and is safe for concurrent use.
package mapper

import (
	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/object"
)

// Mapper converts objects to records.
type Mapper struct {
	cat           *catalog.Catalog
	owner         string
	memberPolicy  MemberPolicy
	referenceZone ReferenceZone
}

// New creates a mapper over cat. owner is the account identity that owns
// the zones; an empty owner stands for the current user
// (ir.CurrentUserDefaultName).
func New(cat *catalog.Catalog, owner string, opts ...Option) *Mapper {
	if owner == "" {
		owner = ir.CurrentUserDefaultName
	}
	m := &Mapper{
		cat:   cat,
		owner: owner,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Catalog returns the catalog the mapper resolves schemas from.
func (m *Mapper) Catalog() *catalog.Catalog {
	return m.cat
}

// Owner returns the account identity that owns the mapper's zones.
func (m *Mapper) Owner() string {
	return m.owner
}

// ZoneFor returns the zone of a record type for an account.
func ZoneFor(recordType, owner string) ir.ZoneID {
	return ir.ZoneID{Name: recordType + ir.ZoneSuffix, Owner: owner}
}

// Zone returns the zone holding every record of recordType.
func (m *Mapper) Zone(recordType string) ir.ZoneID {
	return ZoneFor(recordType, m.owner)
}

// RecordType returns the record type of obj: its object type name.
func (m *Mapper) RecordType(obj object.Object) string {
	return obj.ObjectType()
}

// RecordID derives the record id of obj from its primary key. String keys
// are used verbatim and integer keys in decimal form, so the same key
// always yields the same id.
func (m *Mapper) RecordID(obj object.Object) (ir.RecordID, error) {
	schema, err := m.schema(obj)
	if err != nil {
		return ir.RecordID{}, err
	}

	pk, ok := schema.PrimaryKeyProperty()
	if !ok {
		return ir.RecordID{}, defect(DefectNoPrimaryKey, schema.Name, "no primary key property declared")
	}
	if pk.Type != ir.TypeString && pk.Type != ir.TypeInt {
		return ir.RecordID{}, defect(DefectPrimaryKeyType, schema.Name,
			"primary key %q is declared %s, must be string or int", pk.Name, pk.Type)
	}

	v, _ := obj.Get(pk.Name)
	name, ok := object.FormatKey(v)
	if !ok {
		return ir.RecordID{}, defect(DefectPrimaryKeyType, schema.Name,
			"primary key %q holds %T, must be a string or an integer", pk.Name, v)
	}

	return ir.RecordID{RecordName: name, Zone: m.Zone(schema.Name)}, nil
}

// MustRecordID is like RecordID but panics with the *DefectError.
func (m *Mapper) MustRecordID(obj object.Object) ir.RecordID {
	id, err := m.RecordID(obj)
	if err != nil {
		panic(err)
	}
	return id
}

// Record builds a fresh record for obj. Properties are visited in schema
// order and translated by category:
//
//   - scalar: remote-compatible values are copied; anything else is left unset
//   - asset: a non-nil *object.Asset becomes its IRAsset; anything else clears the field
//   - single reference: a related object with a string primary key becomes a reference
//   - multi reference: members become references until the first one that
//     cannot be resolved (see MemberPolicy)
//   - unknown: ignored
//
// The only errors are configuration defects from RecordID.
func (m *Mapper) Record(obj object.Object) (*ir.Record, error) {
	id, err := m.RecordID(obj)
	if err != nil {
		return nil, err
	}
	schema, _ := m.cat.Lookup(obj.ObjectType())

	r := ir.NewRecord(schema.Name, id)
	for _, p := range schema.Properties {
		v, _ := obj.Get(p.Name)

		switch p.Category {
		case ir.CategoryScalar:
			if val, ok := object.Scalar(v); ok {
				r.Set(p.Name, val)
			}
		case ir.CategoryAsset:
			if a, ok := v.(*object.Asset); ok && a != nil {
				r.Set(p.Name, a.Ref())
			} else {
				r.Clear(p.Name)
			}
		case ir.CategorySingleReference:
			if ref, ok := m.reference(v); ok {
				r.Set(p.Name, ref)
			}
		case ir.CategoryMultiReference:
			if refs, ok := m.references(v); ok {
				r.Set(p.Name, refs)
			}
		}
	}

	return r, nil
}

// MustRecord is like Record but panics with the *DefectError.
func (m *Mapper) MustRecord(obj object.Object) *ir.Record {
	r, err := m.Record(obj)
	if err != nil {
		panic(err)
	}
	return r
}

func (m *Mapper) schema(obj object.Object) (*ir.ObjectSchema, error) {
	if isNil(obj) {
		return nil, defect(DefectNoSchema, "", "nil object")
	}
	typ := obj.ObjectType()
	schema, ok := m.cat.Lookup(typ)
	if !ok {
		return nil, defect(DefectNoSchema, typ, "no schema registered for object type")
	}
	return schema, nil
}
