package harness

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/cloudrec/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Record   string     // Object whose record was checked
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Fields   *ir.Record // The record, when there is one
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s on %s\n", e.Type, e.Record)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Fields != nil {
		fmt.Fprintf(&buf, "\nRecord %s (%s):\n", e.Fields.ID, e.Fields.RecordType)
		for _, name := range e.Fields.FieldNames() {
			fmt.Fprintf(&buf, "  %s = %v\n", name, plainValue(e.Fields.Fields[name]))
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertDefect:
			err = assertDefect(result, assertion)
		case AssertExported:
			err = assertExported(result, assertion)
		case AssertFieldSet, AssertFieldAbsent, AssertFieldCleared, AssertReferences, AssertRecordName, AssertZone:
			rec, ok := result.Record(assertion.Record)
			if !ok {
				err = &AssertionError{
					Type:     assertion.Type,
					Record:   assertion.Record,
					Expected: "a converted record",
					Actual:   describeMissing(result, assertion.Record),
				}
				break
			}
			err = assertRecord(rec, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func describeMissing(result *Result, target string) string {
	if d, ok := result.Defects[target]; ok {
		return d.Error()
	}
	return "object was not converted"
}

// assertRecord checks one record-level assertion.
func assertRecord(rec *ir.Record, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Record: a.Record, Expected: expected, Actual: actual, Fields: rec}
	}

	v, present := rec.Lookup(a.Field)

	switch a.Type {
	case AssertFieldSet:
		if !present || rec.IsCleared(a.Field) {
			return fail(fmt.Sprintf("field %q set", a.Field), describePresence(rec, a.Field))
		}
		if a.Value != nil {
			want, got := normalize(a.Value), plainValue(v)
			if !reflect.DeepEqual(want, got) {
				return fail(
					fmt.Sprintf("field %q = %v (type %T)", a.Field, want, want),
					fmt.Sprintf("field %q = %v (type %T)", a.Field, got, got),
				)
			}
		}

	case AssertFieldAbsent:
		if present {
			return fail(fmt.Sprintf("field %q absent", a.Field), describePresence(rec, a.Field))
		}

	case AssertFieldCleared:
		if !rec.IsCleared(a.Field) {
			return fail(fmt.Sprintf("field %q cleared", a.Field), describePresence(rec, a.Field))
		}

	case AssertReferences:
		names, ok := referenceNames(v)
		if !present || !ok {
			return fail(fmt.Sprintf("field %q holds references %v", a.Field, a.Expect), describePresence(rec, a.Field))
		}
		want := a.Expect
		if want == nil {
			want = []string{}
		}
		if !reflect.DeepEqual(want, names) {
			return fail(
				fmt.Sprintf("references %v", want),
				fmt.Sprintf("references %v", names),
			)
		}

	case AssertRecordName:
		if want := fmt.Sprint(a.Value); rec.ID.RecordName != want {
			return fail(fmt.Sprintf("record name %q", want), fmt.Sprintf("record name %q", rec.ID.RecordName))
		}

	case AssertZone:
		if want := fmt.Sprint(a.Value); rec.ID.Zone.Name != want {
			return fail(fmt.Sprintf("zone %q", want), fmt.Sprintf("zone %q", rec.ID.Zone.Name))
		}
	}

	return nil
}

func assertDefect(result *Result, a Assertion) error {
	d, ok := result.Defects[a.Record]
	if !ok {
		actual := "object was not converted"
		if _, converted := result.Record(a.Record); converted {
			actual = "converted without a defect"
		}
		return &AssertionError{Type: a.Type, Record: a.Record, Expected: fmt.Sprintf("defect %s", a.Code), Actual: actual}
	}
	if string(d.Code) != a.Code {
		return &AssertionError{Type: a.Type, Record: a.Record, Expected: fmt.Sprintf("defect %s", a.Code), Actual: fmt.Sprintf("defect %s", d.Code)}
	}
	return nil
}

func assertExported(result *Result, a Assertion) error {
	if result.Export == nil {
		return &AssertionError{Type: a.Type, Record: "(batch)", Expected: "an export batch", Actual: "no export ran"}
	}
	if result.Export.Converted != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Record:   "(batch)",
			Expected: fmt.Sprintf("%d records exported", a.Count),
			Actual:   fmt.Sprintf("%d records exported", result.Export.Converted),
		}
	}
	return nil
}

func describePresence(rec *ir.Record, field string) string {
	v, ok := rec.Lookup(field)
	switch {
	case !ok:
		return fmt.Sprintf("field %q absent", field)
	case rec.IsCleared(field):
		return fmt.Sprintf("field %q cleared", field)
	default:
		return fmt.Sprintf("field %q = %v", field, plainValue(v))
	}
}

// referenceNames returns the record names a reference or reference list
// points at.
func referenceNames(v ir.IRValue) ([]string, bool) {
	switch x := v.(type) {
	case ir.IRReference:
		return []string{x.ID.RecordName}, true
	case ir.IRReferenceList:
		names := make([]string, len(x))
		for i, ref := range x {
			names[i] = ref.ID.RecordName
		}
		return names, true
	default:
		return nil, false
	}
}

// plainValue renders a record value in the form scenario YAML uses.
func plainValue(v ir.IRValue) any {
	switch x := v.(type) {
	case ir.IRNull:
		return nil
	case ir.IRString:
		return string(x)
	case ir.IRInt:
		return int64(x)
	case ir.IRBool:
		return bool(x)
	case ir.IRDouble:
		return float64(x)
	case ir.IRTimestamp:
		return x.Time().UTC().Format(time.RFC3339Nano)
	case ir.IRBytes:
		return base64.StdEncoding.EncodeToString(x)
	case ir.IRAsset:
		return x.Checksum
	case ir.IRReference:
		return x.ID.RecordName
	case ir.IRReferenceList:
		names, _ := referenceNames(x)
		return names
	default:
		return v
	}
}

// normalize converts YAML-parsed expectations to plainValue's types.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case uint64:
		return int64(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []any:
		out := make([]string, len(x))
		for i, elem := range x {
			out[i] = fmt.Sprint(elem)
		}
		return out
	default:
		return v
	}
}
