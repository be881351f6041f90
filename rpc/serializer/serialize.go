package serializer

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/ValentinKolb/dWire/rpc/common"
	"github.com/pkg/errors"
)

// array descriptors of the bulk encoded element types
var (
	arrayInt8    = ArrayOf(TypeInt8, 1)
	arrayUint8   = ArrayOf(TypeUint8, 1)
	arrayBool    = ArrayOf(TypeBool, 1)
	arrayInt16   = ArrayOf(TypeInt16, 1)
	arrayUint16  = ArrayOf(TypeUint16, 1)
	arrayChar    = ArrayOf(TypeChar, 1)
	arrayInt32   = ArrayOf(TypeInt32, 1)
	arrayUint32  = ArrayOf(TypeUint32, 1)
	arrayInt64   = ArrayOf(TypeInt64, 1)
	arrayUint64  = ArrayOf(TypeUint64, 1)
	arrayFloat32 = ArrayOf(TypeFloat32, 1)
	arrayFloat64 = ArrayOf(TypeFloat64, 1)
	arrayObject  = ArrayOf(TypeObject, 1)
)

// SerializeInner writes v where a value of type expected is expected:
//   - nil (including nil pointers, maps and slices) as Null
//   - simple values with their token (see TryWriteSimple)
//   - objects already written in this context as a back reference
//   - numeric slices, []any, maps, other slices and the request and response
//     bodies with their built-in encoding
//   - everything else through the dispatcher of the context
//
// Failures are recorded in the writer, see Error.
func (w *Writer) SerializeInner(v any, expected *Type) {
	if w.err != nil {
		return
	}
	if isNil(v) {
		w.Null()
		return
	}
	if w.TryWriteSimple(v) {
		return
	}

	if w.ctx != nil {
		if offset, ok := w.ctx.CheckObjectWhileSerializing(v); ok {
			w.Reference(offset)
			return
		}
		w.ctx.RecordObject(v, w.ctx.CurrentOffset())
	}

	if w.writeBuiltin(v, expected) {
		return
	}

	var dispatcher IObjectSerializer
	if w.ctx != nil {
		dispatcher = w.ctx.Dispatcher()
	}
	if dispatcher == nil {
		w.SetError(errors.Wrapf(ErrNoSerializer, "%T", v))
		return
	}
	if err := dispatcher.Serialize(v, w, expected); err != nil {
		w.SetError(err)
	}
}

// isNil reports whether v is nil or a nil reference
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Built-in encodings
// --------------------------------------------------------------------------

func (w *Writer) writeBuiltin(v any, expected *Type) bool {
	switch x := v.(type) {
	case []byte:
		w.ArrayHeader(arrayUint8, expected, len(x))
		w.Uint8s(x)
	case []int8:
		w.ArrayHeader(arrayInt8, expected, len(x))
		w.Int8s(x)
	case []bool:
		w.ArrayHeader(arrayBool, expected, len(x))
		w.Bools(x)
	case []int16:
		w.ArrayHeader(arrayInt16, expected, len(x))
		w.Int16s(x)
	case []uint16:
		w.ArrayHeader(arrayUint16, expected, len(x))
		w.Uint16s(x)
	case []Char:
		w.ArrayHeader(arrayChar, expected, len(x))
		w.Chars(x)
	case []int32:
		w.ArrayHeader(arrayInt32, expected, len(x))
		w.Int32s(x)
	case []uint32:
		w.ArrayHeader(arrayUint32, expected, len(x))
		w.Uint32s(x)
	case []int64:
		w.ArrayHeader(arrayInt64, expected, len(x))
		w.Int64s(x)
	case []uint64:
		w.ArrayHeader(arrayUint64, expected, len(x))
		w.Uint64s(x)
	case []float32:
		w.ArrayHeader(arrayFloat32, expected, len(x))
		w.Float32s(x)
	case []float64:
		w.ArrayHeader(arrayFloat64, expected, len(x))
		w.Float64s(x)
	case []any:
		w.ArrayHeader(arrayObject, expected, len(x))
		for _, e := range x {
			w.SerializeInner(e, TypeObject)
		}
	case map[string]any:
		w.writeStringObjDict(x, expected)
	case *common.InvokeMethodRequest:
		w.writeRequest(x, expected)
	case *common.Response:
		w.writeResponse(x, expected)
	default:
		return w.writeReflected(reflect.ValueOf(v), expected)
	}
	return true
}

// writeStringObjDict writes the entry count followed by the entries in key
// order
func (w *Writer) writeStringObjDict(m map[string]any, expected *Type) {
	w.TypeHeader(TypeStringObjDict, expected)
	w.Int32(int32(len(m)))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		w.SerializeInner(k, TypeString)
		w.SerializeInner(m[k], TypeObject)
	}
}

func (w *Writer) writeRequest(r *common.InvokeMethodRequest, expected *Type) {
	w.TypeHeader(TypeRequest, expected)
	w.Int32(r.InterfaceID)
	w.Int32(r.MethodID)
	w.Int32(int32(len(r.Arguments)))
	for _, arg := range r.Arguments {
		w.SerializeInner(arg, TypeObject)
	}
}

func (w *Writer) writeResponse(r *common.Response, expected *Type) {
	w.TypeHeader(TypeResponse, expected)
	w.Bool(r.ExceptionFlag)
	w.SerializeInner(r.Data, TypeObject)
}

// writeReflected writes unnamed slices, arrays, sets and dictionaries of any
// element type. Maps are written in key order where the key kind is ordered.
// Named types are left to the dispatcher.
func (w *Writer) writeReflected(rv reflect.Value, expected *Type) bool {
	t := TypeOf(rv.Type())
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if !t.IsArray() {
			return false
		}
		elem := t.Elem()
		w.ArrayHeader(t, expected, rv.Len())
		if IsBulkElement(elem) {
			for i := 0; i < rv.Len(); i++ {
				w.writeRawNumber(rv.Index(i))
			}
			return true
		}
		for i := 0; i < rv.Len(); i++ {
			w.SerializeInner(rv.Index(i).Interface(), elem)
		}
		return true

	case reflect.Map:
		if t.shape == nil {
			return false
		}
		w.TypeHeader(t, expected)
		w.Int32(int32(rv.Len()))
		args := t.args
		for _, e := range sortedEntries(rv) {
			w.SerializeInner(e.key.Interface(), args[0])
			if t.shape == ShapeDictionary {
				w.SerializeInner(e.value.Interface(), args[1])
			}
		}
		return true
	}
	return false
}

// IsBulkElement reports whether arrays of t are written as raw little endian
// values without tokens
func IsBulkElement(t *Type) bool {
	switch t {
	case TypeBool, TypeInt8, TypeUint8, TypeInt16, TypeUint16, TypeChar,
		TypeInt32, TypeUint32, TypeInt64, TypeUint64, TypeFloat32, TypeFloat64:
		return true
	}
	return false
}

// writeRawNumber writes a numeric value in the width of its kind
func (w *Writer) writeRawNumber(v reflect.Value) {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			w.Uint8(1)
		} else {
			w.Uint8(0)
		}
	case reflect.Int8:
		w.Int8(int8(v.Int()))
	case reflect.Int16:
		w.Int16(int16(v.Int()))
	case reflect.Int32:
		w.Int32(int32(v.Int()))
	case reflect.Int64, reflect.Int:
		w.Int64(v.Int())
	case reflect.Uint8:
		w.Uint8(uint8(v.Uint()))
	case reflect.Uint16:
		w.Uint16(uint16(v.Uint()))
	case reflect.Uint32:
		w.Uint32(uint32(v.Uint()))
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		w.Uint64(v.Uint())
	case reflect.Float32:
		w.Float32(float32(v.Float()))
	case reflect.Float64:
		w.Float64(v.Float())
	default:
		w.SetError(errors.Wrapf(ErrInvalidValue, "%s is not a number", v.Type()))
	}
}

// mapEntry is one key value pair of a reflected map
type mapEntry struct {
	key, value reflect.Value
}

// sortedEntries returns the entries of a map, ordered by key if the key kind
// is ordered. Entries are read by iteration, keys that are not equal to
// themselves (NaN) cannot be looked up.
func sortedEntries(m reflect.Value) []mapEntry {
	entries := make([]mapEntry, 0, m.Len())
	iter := m.MapRange()
	for iter.Next() {
		entries = append(entries, mapEntry{key: iter.Key(), value: iter.Value()})
	}

	var compare func(a, b reflect.Value) int
	switch m.Type().Key().Kind() {
	case reflect.String:
		compare = func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) }
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		compare = func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		compare = func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }
	case reflect.Float32, reflect.Float64:
		compare = func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }
	default:
		compare = func(a, b reflect.Value) int {
			return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
		}
	}
	slices.SortStableFunc(entries, func(a, b mapEntry) int { return compare(a.key, b.key) })
	return entries
}
