package serializer

import (
	"reflect"
	"unsafe"

	"github.com/ValentinKolb/dWire/lib/buffer"
)

// --------------------------------------------------------------------------
// Interfaces
// --------------------------------------------------------------------------

// ICopyContext is the state of one deep copy operation
type ICopyContext interface {
	// RecordCopy registers copy as the copy of original. The first copy
	// recorded for an object wins.
	RecordCopy(original, copy any)
	// CheckObjectWhileCopying returns the recorded copy of raw
	CheckObjectWhileCopying(raw any) (any, bool)
	// AdditionalContext returns the caller supplied value of the operation
	AdditionalContext() any
}

// ISerializationContext is the state of one serialize operation: where the
// bytes go, how far the stream has advanced and which objects were written.
type ISerializationContext interface {
	// Sink returns the sink the operation writes to
	Sink() *buffer.Sink
	// CurrentOffset returns the stream offset of the next byte
	CurrentOffset() int
	// Advance moves the offset forward, writers call it for every commit
	Advance(n int)
	// RecordObject registers the offset at which original was written.
	// The last offset recorded for an object wins.
	RecordObject(original any, offset int)
	// CheckObjectWhileSerializing returns the offset at which raw was written
	CheckObjectWhileSerializing(raw any) (int, bool)
	// AdditionalContext returns the caller supplied value of the operation
	AdditionalContext() any
	// Dispatcher returns the serializer for values without a built-in encoding
	Dispatcher() IObjectSerializer
	// CreateNested returns a context that writes to sink, starts counting at
	// offset and shares the object table of this context
	CreateNested(offset int, sink *buffer.Sink) ISerializationContext
}

// IObjectSerializer writes values the writer has no built-in encoding for.
// Implementations write the type header themselves and return
// ErrNoSerializer for values they do not handle.
type IObjectSerializer interface {
	Serialize(v any, w *Writer, expected *Type) error
}

// --------------------------------------------------------------------------
// Object identity
// --------------------------------------------------------------------------

// identity keys an object by reference. Two distinct objects never share a
// key, even if they are equal by value.
type identity struct {
	t reflect.Type
	p unsafe.Pointer
	n int // length, for slices
}

// identityOf returns the reference identity of v. Values without one
// (scalars, structs, strings, nil references, empty slices and pointers to
// zero sized values) are never tracked.
func identityOf(v any) (identity, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() || rv.Type().Elem().Size() == 0 {
			return identity{}, false
		}
		return identity{t: rv.Type(), p: rv.UnsafePointer()}, true
	case reflect.Map, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{t: rv.Type(), p: rv.UnsafePointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 || rv.Type().Elem().Size() == 0 {
			return identity{}, false
		}
		return identity{t: rv.Type(), p: rv.UnsafePointer(), n: rv.Len()}, true
	default:
		return identity{}, false
	}
}

type record struct {
	copy      any
	hasCopy   bool
	offset    int
	hasOffset bool
}

// --------------------------------------------------------------------------
// Context
// --------------------------------------------------------------------------

// Context is the state of one top level copy or serialize operation. It must
// be reset before it is reused for an unrelated operation.
//
// Thread-safety: a context belongs to one operation and is not safe for
// concurrent use.
type Context struct {
	sink       *buffer.Sink
	dispatcher IObjectSerializer
	additional any
	offset     int
	records    map[identity]record
}

// NewContext creates a context writing to sink. dispatcher and additional
// may be nil, sink may be nil for copy operations.
func NewContext(sink *buffer.Sink, dispatcher IObjectSerializer, additional any) *Context {
	return &Context{
		sink:       sink,
		dispatcher: dispatcher,
		additional: additional,
		records:    make(map[identity]record),
	}
}

func (c *Context) Sink() *buffer.Sink { return c.sink }

func (c *Context) CurrentOffset() int { return c.offset }

func (c *Context) Advance(n int) { c.offset += n }

func (c *Context) AdditionalContext() any { return c.additional }

func (c *Context) Dispatcher() IObjectSerializer { return c.dispatcher }

func (c *Context) RecordCopy(original, copy any) {
	key, ok := identityOf(original)
	if !ok {
		return
	}
	if _, exists := c.records[key]; exists {
		return
	}
	c.records[key] = record{copy: copy, hasCopy: true}
}

func (c *Context) CheckObjectWhileCopying(raw any) (any, bool) {
	key, ok := identityOf(raw)
	if !ok {
		return nil, false
	}
	r, found := c.records[key]
	if !found || !r.hasCopy {
		return nil, false
	}
	return r.copy, true
}

// RecordObject replaces every earlier record of original, a recorded copy
// included
func (c *Context) RecordObject(original any, offset int) {
	key, ok := identityOf(original)
	if !ok {
		return
	}
	c.records[key] = record{offset: offset, hasOffset: true}
}

func (c *Context) CheckObjectWhileSerializing(raw any) (int, bool) {
	key, ok := identityOf(raw)
	if !ok {
		return 0, false
	}
	r, found := c.records[key]
	if !found || !r.hasOffset {
		return 0, false
	}
	return r.offset, true
}

func (c *Context) CreateNested(offset int, sink *buffer.Sink) ISerializationContext {
	return &NestedContext{parent: c, sink: sink, offset: offset}
}

// Reset clears the object table and the offset. The sink is kept.
func (c *Context) Reset() {
	clear(c.records)
	c.offset = 0
}

// Len returns the number of tracked objects
func (c *Context) Len() int {
	return len(c.records)
}

// --------------------------------------------------------------------------
// Nested Context
// --------------------------------------------------------------------------

// NestedContext writes to its own sink with its own offset, object identity
// is delegated to the parent so objects shared across the boundary are
// written once.
type NestedContext struct {
	parent ISerializationContext
	sink   *buffer.Sink
	offset int
}

func (n *NestedContext) Sink() *buffer.Sink { return n.sink }

func (n *NestedContext) CurrentOffset() int { return n.offset }

func (n *NestedContext) Advance(count int) { n.offset += count }

func (n *NestedContext) AdditionalContext() any { return n.parent.AdditionalContext() }

func (n *NestedContext) Dispatcher() IObjectSerializer { return n.parent.Dispatcher() }

func (n *NestedContext) RecordObject(original any, offset int) {
	n.parent.RecordObject(original, offset)
}

func (n *NestedContext) CheckObjectWhileSerializing(raw any) (int, bool) {
	return n.parent.CheckObjectWhileSerializing(raw)
}

func (n *NestedContext) CreateNested(offset int, sink *buffer.Sink) ISerializationContext {
	return &NestedContext{parent: n, sink: sink, offset: offset}
}

// Parent returns the context this context delegates to
func (n *NestedContext) Parent() ISerializationContext {
	return n.parent
}

var (
	_ ISerializationContext = (*Context)(nil)
	_ ICopyContext          = (*Context)(nil)
	_ ISerializationContext = (*NestedContext)(nil)
)
