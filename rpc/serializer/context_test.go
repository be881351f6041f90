package serializer

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dWire/lib/buffer"
)

// newTestContextWriter creates a context writer on a sink of the default pool
func newTestContextWriter(t *testing.T, dispatcher IObjectSerializer) (*Writer, *Context) {
	t.Helper()
	sink := buffer.NewSink(nil)
	t.Cleanup(sink.Release)
	ctx := NewContext(sink, dispatcher, nil)
	w, err := NewContextWriter(ctx)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	return w, ctx
}

func TestRecordCopyFirstWins(t *testing.T) {
	ctx := NewContext(nil, nil, nil)
	original := &point{X: 1}
	first, second := &point{X: 2}, &point{X: 3}

	ctx.RecordCopy(original, first)
	ctx.RecordCopy(original, second)

	got, ok := ctx.CheckObjectWhileCopying(original)
	if !ok || got != first {
		t.Errorf("Got %v (ok %v), want the first copy", got, ok)
	}
	if _, ok := ctx.CheckObjectWhileCopying(&point{X: 1}); ok {
		t.Errorf("Equal but distinct object found")
	}
}

func TestRecordObjectLastWins(t *testing.T) {
	ctx := NewContext(nil, nil, nil)
	original := []int32{1, 2}

	ctx.RecordCopy(original, "copy")
	if _, ok := ctx.CheckObjectWhileSerializing(original); ok {
		t.Errorf("Copy record reported an offset")
	}

	ctx.RecordObject(original, 4)
	ctx.RecordObject(original, 9)
	offset, ok := ctx.CheckObjectWhileSerializing(original)
	if !ok || offset != 9 {
		t.Errorf("Got offset %d (ok %v), want 9", offset, ok)
	}
	if _, ok := ctx.CheckObjectWhileCopying(original); ok {
		t.Errorf("Object record still holds the copy")
	}
}

func TestUntrackedValues(t *testing.T) {
	ctx := NewContext(nil, nil, nil)
	var nilMap map[string]int
	backing := []int32{1, 2, 3}

	for _, v := range []any{nil, 5, "s", point{}, [2]int{}, nilMap, []int32{}, &struct{}{}} {
		ctx.RecordObject(v, 1)
		if _, ok := ctx.CheckObjectWhileSerializing(v); ok {
			t.Errorf("%T value is tracked", v)
		}
	}
	if ctx.Len() != 0 {
		t.Fatalf("Context tracks %d values", ctx.Len())
	}

	// slices of one backing array differ by length
	ctx.RecordObject(backing[:2], 1)
	if _, ok := ctx.CheckObjectWhileSerializing(backing); ok {
		t.Errorf("Slices of different length share an identity")
	}
	if _, ok := ctx.CheckObjectWhileSerializing(backing[:2]); !ok {
		t.Errorf("Same slice not found")
	}
}

func TestSerializeBackReference(t *testing.T) {
	w, ctx := newTestContextWriter(t, nil)
	shared := []int32{1, 2, 3}

	w.SerializeInner([]any{shared, shared}, TypeObject)
	data := written(t, w)

	// outer header(4) + length(4), the first element starts at offset 8
	if tail := data[len(data)-5:]; !bytes.Equal(tail, unhex(t, "01 08 00 00 00")) {
		t.Errorf("Second occurrence is % x, want a reference to offset 8", tail)
	}
	if ctx.CurrentOffset() != len(data) {
		t.Errorf("Context offset %d, wrote %d bytes", ctx.CurrentOffset(), len(data))
	}

	r := newTokenReader(data)
	got, ok := r.value(TypeObject).([]any)
	if r.err != nil || !ok {
		t.Fatalf("Failed to decode: %v", r.err)
	}
	want := []any{shared, shared}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Got %v, want %v", got, want)
	}
}

func TestSerializeDistinctInstances(t *testing.T) {
	w, _ := newTestContextWriter(t, nil)
	a, b := []int32{1}, []int32{1}

	w.SerializeInner([]any{a, b, "s", "s"}, TypeObject)
	data := written(t, w)

	// header(4) + length(4) + 2 * (header(4) + length(4) + 4) + 2 * (1 + 4 + 1)
	if len(data) != 8+2*12+2*6 {
		t.Errorf("Wrote %d bytes, equal values were deduplicated", len(data))
	}
	if bytes.Contains(data, []byte{byte(TokenReference), 8, 0, 0, 0}) {
		t.Errorf("Output contains a reference: % x", data)
	}
}

func TestNestedContextSharesObjects(t *testing.T) {
	w, ctx := newTestContextWriter(t, nil)
	shared := map[string]any{"k": int32(1)}

	w.Int32(0) // some prefix
	w.SerializeInner(shared, TypeStringObjDict)

	inner := buffer.NewSink(nil)
	defer inner.Release()
	nested := ctx.CreateNested(ctx.CurrentOffset(), inner)
	nw, err := NewContextWriter(nested)
	if err != nil {
		t.Fatalf("Failed to create nested writer: %v", err)
	}

	nw.SerializeInner(shared, TypeObject)
	if got := written(t, nw); !bytes.Equal(got, unhex(t, "01 04 00 00 00")) {
		t.Errorf("Nested write of a parent object is % x, want a reference to offset 4", got)
	}

	// objects first written in the nested context are known to the parent
	fresh := []int64{7}
	start := nested.CurrentOffset()
	nw.SerializeInner(fresh, TypeObject)
	if offset, ok := ctx.CheckObjectWhileSerializing(fresh); !ok || offset != start {
		t.Errorf("Parent sees offset %d (ok %v), want %d", offset, ok, start)
	}

	if nested.CurrentOffset() != start+inner.Len()-5 {
		t.Errorf("Nested offset %d does not count its own bytes", nested.CurrentOffset())
	}
}

func TestNestedContextForwards(t *testing.T) {
	registry := NewRegistry()
	ctx := NewContext(nil, registry, "extra")
	sink := buffer.NewSink(nil)
	defer sink.Release()

	nested := ctx.CreateNested(10, sink)
	if nested.AdditionalContext() != "extra" {
		t.Errorf("AdditionalContext = %v", nested.AdditionalContext())
	}
	if nested.Dispatcher() != registry {
		t.Errorf("Dispatcher not forwarded")
	}
	if nested.Sink() != sink || nested.CurrentOffset() != 10 {
		t.Errorf("Nested context has sink %p offset %d", nested.Sink(), nested.CurrentOffset())
	}

	deeper := nested.CreateNested(20, sink)
	deeper.RecordObject(sink, 25)
	if offset, ok := ctx.CheckObjectWhileSerializing(sink); !ok || offset != 25 {
		t.Errorf("Record of a twice nested context not visible at the root")
	}
	if deeper.(*NestedContext).Parent() != nested {
		t.Errorf("Parent of the twice nested context is wrong")
	}
}

func TestContextReset(t *testing.T) {
	w, ctx := newTestContextWriter(t, nil)
	shared := []int32{1}

	w.SerializeInner(shared, TypeObject)
	if ctx.Len() != 1 || ctx.CurrentOffset() == 0 {
		t.Fatalf("Len %d offset %d before reset", ctx.Len(), ctx.CurrentOffset())
	}

	ctx.Reset()
	if ctx.Len() != 0 || ctx.CurrentOffset() != 0 {
		t.Errorf("Len %d offset %d after reset", ctx.Len(), ctx.CurrentOffset())
	}
	if _, ok := ctx.CheckObjectWhileSerializing(shared); ok {
		t.Errorf("Object still known after reset")
	}
}
