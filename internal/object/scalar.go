package object

import (
	"bytes"
	"math"
	"reflect"
	"time"

	"github.com/roach88/cloudrec/internal/ir"
)

// Scalar converts a held scalar to a record value. It reports false for nil
// and for values a record cannot hold: nil byte slices, unsigned values
// beyond int64, NaN, infinities and non-scalar kinds.
func Scalar(v any) (ir.IRValue, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case time.Time:
		return ir.NewTimestamp(x), true
	case []byte:
		if x == nil {
			return nil, false
		}
		return ir.IRBytes(bytes.Clone(x)), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return ir.IRString(rv.String()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ir.IRInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, false
		}
		return ir.IRInt(int64(u)), true
	case reflect.Bool:
		return ir.IRBool(rv.Bool()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return ir.IRDouble(f), true
	default:
		return nil, false
	}
}
