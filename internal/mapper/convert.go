package mapper

import (
	"reflect"

	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/object"
)

// reference resolves a related object to a reference. The related object's
// type must be registered and its primary key must hold a string.
func (m *Mapper) reference(v any) (ir.IRReference, bool) {
	related, ok := v.(object.Object)
	if !ok || isNil(related) {
		return ir.IRReference{}, false
	}

	schema, ok := m.cat.Lookup(related.ObjectType())
	if !ok {
		return ir.IRReference{}, false
	}
	pk, ok := schema.PrimaryKeyProperty()
	if !ok {
		return ir.IRReference{}, false
	}
	key, ok := related.Get(pk.Name)
	if !ok || key == nil || reflect.ValueOf(key).Kind() != reflect.String {
		return ir.IRReference{}, false
	}

	id := ir.RecordID{
		RecordName: reflect.ValueOf(key).String(),
		Zone:       m.referenceZoneFor(schema.Name),
	}
	return ir.NewReference(id), true
}

// references resolves the members of a held list in order.
func (m *Mapper) references(v any) (ir.IRReferenceList, bool) {
	list, ok := object.AsList(v)
	if !ok {
		return nil, false
	}

	refs := make(ir.IRReferenceList, 0, len(list))
	for _, member := range list {
		ref, ok := m.reference(member)
		if !ok {
			if m.memberPolicy == SkipUnresolved {
				continue
			}
			break
		}
		refs = append(refs, ref)
	}
	return refs, true
}

func (m *Mapper) referenceZoneFor(recordType string) ir.ZoneID {
	if m.referenceZone == ReferenceZoneTarget {
		return m.Zone(recordType)
	}
	return ir.ZoneID{Name: ir.DefaultZoneName, Owner: m.owner}
}

func isNil(o object.Object) bool {
	if o == nil {
		return true
	}
	rv := reflect.ValueOf(o)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
