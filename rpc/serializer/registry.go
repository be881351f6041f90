package serializer

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// SerializerFunc writes the body of a value, the type header is written by
// the registry before it is called
type SerializerFunc func(v any, w *Writer) error

// Registry is an IObjectSerializer that dispatches on the dynamic Go type of
// a value.
//
// Thread-safety: Register and Serialize are safe for concurrent use.
type Registry struct {
	funcs *xsync.MapOf[reflect.Type, SerializerFunc]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{funcs: xsync.NewMapOf[reflect.Type, SerializerFunc]()}
}

// Register sets the serializer for values of type t, replacing an earlier one
func (r *Registry) Register(t reflect.Type, fn SerializerFunc) {
	r.funcs.Store(t, fn)
	Logger.Debugf("registered serializer for %s", t)
}

// RegisterFor registers a typed serializer for values of type T
func RegisterFor[T any](r *Registry, fn func(v T, w *Writer) error) {
	r.Register(reflect.TypeFor[T](), func(v any, w *Writer) error {
		return fn(v.(T), w)
	})
}

// Serialize writes the type header of v followed by the body written by the
// registered serializer
func (r *Registry) Serialize(v any, w *Writer, expected *Type) error {
	rt := reflect.TypeOf(v)
	fn, ok := r.funcs.Load(rt)
	if !ok {
		return errors.Wrapf(ErrNoSerializer, "%s", rt)
	}
	w.TypeHeader(TypeOf(rt), expected)
	if err := fn(v, w); err != nil {
		return errors.Wrapf(err, "serializing %s", rt)
	}
	return w.Error()
}

// Len returns the number of registered types
func (r *Registry) Len() int {
	return r.funcs.Size()
}
