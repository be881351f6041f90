package serializer

import (
	"fmt"
	"net"
	"net/netip"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dWire/lib/ids"
	"github.com/ValentinKolb/dWire/rpc/common"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Shapes
// --------------------------------------------------------------------------

// Shape is an open generic container: a name and the number of type
// arguments. Shapes are interned by name and arity.
type Shape struct {
	name  string
	arity int
}

// Name returns the name of the shape
func (s *Shape) Name() string { return s.name }

// Arity returns the number of type arguments
func (s *Shape) Arity() int { return s.arity }

func (s *Shape) String() string { return s.name + "`" + strconv.Itoa(s.arity) }

var shapes = xsync.NewMapOf[string, *Shape]()

// DefineShape returns the shape with the given name and arity, creating it
// on first use
func DefineShape(name string, arity int) *Shape {
	if arity <= 0 {
		panic(fmt.Sprintf("serializer: shape %s needs at least one type argument", name))
	}
	s, _ := shapes.LoadOrCompute(name+"`"+strconv.Itoa(arity), func() *Shape {
		return &Shape{name: name, arity: arity}
	})
	return s
}

var (
	ShapeList         = DefineShape("List", 1)
	ShapeDictionary   = DefineShape("Dictionary", 2)
	ShapeKeyValuePair = DefineShape("KeyValuePair", 2)
	ShapeSet          = DefineShape("Set", 1)
	ShapeSortedList   = DefineShape("SortedList", 2)
	ShapeSortedSet    = DefineShape("SortedSet", 1)
	ShapeStack        = DefineShape("Stack", 1)
	ShapeQueue        = DefineShape("Queue", 1)
	ShapeLinkedList   = DefineShape("LinkedList", 1)
)

// TupleShape returns the tuple shape of the given arity (1-7)
func TupleShape(arity int) *Shape {
	if arity < 1 || arity > maxTupleArity {
		panic(fmt.Sprintf("serializer: tuple arity %d out of range", arity))
	}
	return DefineShape("Tuple", arity)
}

// --------------------------------------------------------------------------
// Type descriptors
// --------------------------------------------------------------------------

type typeKind uint8

const (
	kindBuiltin typeKind = iota
	kindArray
	kindGeneric
	kindNamed
)

// Type describes the static type of an encoded value. Descriptors are
// interned: two descriptors describe the same type if and only if they are
// the same pointer.
type Type struct {
	id    uint64
	kind  typeKind
	name  string
	elem  *Type
	rank  int
	shape *Shape
	args  []*Type
}

// String returns the readable name of the type
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}

// IsArray reports whether t is an array type
func (t *Type) IsArray() bool { return t.kind == kindArray }

// Elem returns the element type of an array type, nil otherwise
func (t *Type) Elem() *Type { return t.elem }

// Rank returns the number of dimensions of an array type, 0 otherwise
func (t *Type) Rank() int { return t.rank }

// Shape returns the open shape of a closed generic type, nil otherwise
func (t *Type) Shape() *Shape { return t.shape }

// Args returns the type arguments of a closed generic type
func (t *Type) Args() []*Type { return append([]*Type(nil), t.args...) }

// Key returns the type identity written after a NamedType token
func (t *Type) Key() string { return t.name }

var (
	types  = xsync.NewMapOf[string, *Type]()
	typeID atomic.Uint64
)

// intern returns the descriptor registered under key, creating it with
// build on first use
func intern(key string, build func() *Type) *Type {
	t, _ := types.LoadOrCompute(key, func() *Type {
		t := build()
		t.id = typeID.Add(1)
		return t
	})
	return t
}

func builtin(name string) *Type {
	return intern("b:"+name, func() *Type {
		return &Type{kind: kindBuiltin, name: name}
	})
}

// Named returns the descriptor of a type that is identified by key alone.
// Such types are written with the NamedType escape.
func Named(key string) *Type {
	if key == "" {
		panic("serializer: empty type key")
	}
	return intern("n:"+key, func() *Type {
		return &Type{kind: kindNamed, name: key}
	})
}

// ArrayOf returns the array type with the given element type and rank
func ArrayOf(elem *Type, rank int) *Type {
	if elem == nil {
		panic("serializer: nil array element type")
	}
	if rank < 1 || rank > int(maxArrayRank) {
		panic(fmt.Sprintf("serializer: array rank %d out of range", rank))
	}
	key := "a:" + strconv.FormatUint(elem.id, 10) + ":" + strconv.Itoa(rank)
	return intern(key, func() *Type {
		return &Type{
			kind: kindArray,
			name: elem.name + "[" + strings.Repeat(",", rank-1) + "]",
			elem: elem,
			rank: rank,
		}
	})
}

// GenericOf closes shape over args. The number of arguments must match the
// arity of the shape.
func GenericOf(shape *Shape, args ...*Type) *Type {
	if len(args) != shape.arity {
		panic(fmt.Sprintf("serializer: shape %s takes %d type arguments, got %d", shape.name, shape.arity, len(args)))
	}
	var key, name strings.Builder
	key.WriteString("g:" + shape.String())
	name.WriteString(shape.name + "<")
	for i, a := range args {
		if a == nil {
			panic("serializer: nil type argument")
		}
		key.WriteString(":" + strconv.FormatUint(a.id, 10))
		if i > 0 {
			name.WriteString(",")
		}
		name.WriteString(a.name)
	}
	name.WriteString(">")

	return intern(key.String(), func() *Type {
		return &Type{
			kind:  kindGeneric,
			name:  name.String(),
			shape: shape,
			args:  append([]*Type(nil), args...),
		}
	})
}

// ListOf returns List<elem>
func ListOf(elem *Type) *Type { return GenericOf(ShapeList, elem) }

// SetOf returns Set<elem>
func SetOf(elem *Type) *Type { return GenericOf(ShapeSet, elem) }

// DictionaryOf returns Dictionary<key,value>
func DictionaryOf(key, value *Type) *Type { return GenericOf(ShapeDictionary, key, value) }

// KeyValuePairOf returns KeyValuePair<key,value>
func KeyValuePairOf(key, value *Type) *Type { return GenericOf(ShapeKeyValuePair, key, value) }

// TupleOf returns the tuple type over args
func TupleOf(args ...*Type) *Type { return GenericOf(TupleShape(len(args)), args...) }

// --------------------------------------------------------------------------
// Built-in descriptors
// --------------------------------------------------------------------------

var (
	TypeBool    = builtin("bool")
	TypeInt8    = builtin("int8")
	TypeUint8   = builtin("uint8")
	TypeInt16   = builtin("int16")
	TypeUint16  = builtin("uint16")
	TypeInt32   = builtin("int32")
	TypeUint32  = builtin("uint32")
	TypeInt64   = builtin("int64")
	TypeUint64  = builtin("uint64")
	TypeFloat32 = builtin("float32")
	TypeFloat64 = builtin("float64")
	TypeDecimal = builtin("decimal")
	TypeString  = builtin("string")
	TypeChar    = builtin("char")

	TypeGuid     = builtin("guid")
	TypeTime     = builtin("time")
	TypeDuration = builtin("duration")

	TypeIPAddress         = builtin("ip-address")
	TypeEndpoint          = builtin("ip-endpoint")
	TypeGrainID           = builtin("grain-id")
	TypeActivationID      = builtin("activation-id")
	TypeNodeAddress       = builtin("node-address")
	TypeActivationAddress = builtin("activation-address")
	TypeCorrelationID     = builtin("correlation-id")

	TypeRequest  = builtin("request")
	TypeResponse = builtin("response")
	TypeObject   = builtin("object")

	// TypeStringObjDict is Dictionary<string,object>, it has its own token
	TypeStringObjDict = DictionaryOf(TypeString, TypeObject)
)

// --------------------------------------------------------------------------
// Go type mapping
// --------------------------------------------------------------------------

// goTypes maps Go types with a well-known meaning onto their descriptor
var goTypes = map[reflect.Type]*Type{
	reflect.TypeFor[Decimal]():                    TypeDecimal,
	reflect.TypeFor[Char]():                       TypeChar,
	reflect.TypeFor[uuid.UUID]():                  TypeGuid,
	reflect.TypeFor[time.Time]():                  TypeTime,
	reflect.TypeFor[time.Duration]():              TypeDuration,
	reflect.TypeFor[netip.Addr]():                 TypeIPAddress,
	reflect.TypeFor[net.IP]():                     TypeIPAddress,
	reflect.TypeFor[netip.AddrPort]():             TypeEndpoint,
	reflect.TypeFor[ids.GrainID]():                TypeGrainID,
	reflect.TypeFor[ids.ActivationID]():           TypeActivationID,
	reflect.TypeFor[ids.NodeAddress]():            TypeNodeAddress,
	reflect.TypeFor[ids.ActivationAddress]():      TypeActivationAddress,
	reflect.TypeFor[ids.CorrelationID]():          TypeCorrelationID,
	reflect.TypeFor[common.InvokeMethodRequest](): TypeRequest,
	reflect.TypeFor[common.Response]():            TypeResponse,
}

var typeCache = xsync.NewMapOf[reflect.Type, *Type]()

// TypeOf returns the descriptor of a Go type:
//   - pointers are described by their element type
//   - slices and arrays are rank 1 arrays
//   - map[K]struct{} is Set<K>, any other map is Dictionary<K,V>
//     (so map[string]any is the string-object dictionary)
//   - interfaces are object
//   - other named types are named types keyed by "pkgpath.Name"
//
// TypeOf(nil) returns nil.
func TypeOf(rt reflect.Type) *Type {
	if rt == nil {
		return nil
	}
	if t, ok := typeCache.Load(rt); ok {
		return t
	}
	t := typeOf(rt)
	typeCache.Store(rt, t)
	return t
}

func typeOf(rt reflect.Type) *Type {
	if t, ok := goTypes[rt]; ok {
		return t
	}
	if rt.Kind() == reflect.Pointer {
		return TypeOf(rt.Elem())
	}
	if rt.Name() != "" && rt.PkgPath() != "" {
		return Named(rt.PkgPath() + "." + rt.Name())
	}

	switch rt.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.Int8:
		return TypeInt8
	case reflect.Uint8:
		return TypeUint8
	case reflect.Int16:
		return TypeInt16
	case reflect.Uint16:
		return TypeUint16
	case reflect.Int32:
		return TypeInt32
	case reflect.Uint32:
		return TypeUint32
	case reflect.Int64, reflect.Int:
		return TypeInt64
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		return TypeUint64
	case reflect.Float32:
		return TypeFloat32
	case reflect.Float64:
		return TypeFloat64
	case reflect.String:
		return TypeString
	case reflect.Interface:
		return TypeObject
	case reflect.Slice, reflect.Array:
		return ArrayOf(TypeOf(rt.Elem()), 1)
	case reflect.Map:
		if rt.Elem().Kind() == reflect.Struct && rt.Elem().NumField() == 0 {
			return SetOf(TypeOf(rt.Key()))
		}
		return DictionaryOf(TypeOf(rt.Key()), TypeOf(rt.Elem()))
	default:
		return Named(rt.String())
	}
}
