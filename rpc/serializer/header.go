package serializer

import (
	"net"
	"net/netip"
	"time"
	"unsafe"

	"github.com/ValentinKolb/dWire/lib/ids"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Type headers
// --------------------------------------------------------------------------

// TypeHeader writes the header announcing a value of type t where a value of
// type expected is expected:
//
//	ExpectedType                          t == expected
//	SpecifiedType Array+rank <elem>       arrays, elem header written recursively
//	SpecifiedType <token>                 types with a token of their own
//	SpecifiedType <shape> <args>...       closed generics with a shape token
//	SpecifiedType NamedType len key       everything else
//
// Nested headers never have an expected type.
func (w *Writer) TypeHeader(t, expected *Type) {
	if t == nil {
		w.SetError(errors.Wrap(ErrInvalidValue, "nil type"))
		return
	}
	if expected != nil && t == expected {
		w.Token(TokenExpectedType)
		return
	}

	w.Token(TokenSpecifiedType)

	if t.IsArray() {
		w.Token(TokenArray + Token(t.rank))
		w.TypeHeader(t.elem, nil)
		return
	}

	if tok, ok := TokenOf(t); ok {
		w.Token(tok)
		return
	}

	if t.shape != nil {
		if tok, ok := ShapeTokenOf(t.shape); ok {
			w.Token(tok)
			for _, arg := range t.args {
				w.TypeHeader(arg, nil)
			}
			return
		}
	}

	key := t.Key()
	w.Token(TokenNamedType)
	w.Int32(int32(len(key)))
	w.Bytes(unsafe.Slice(unsafe.StringData(key), len(key)))
}

// ArrayHeader writes the type header of an array followed by the length of
// every dimension as int32
func (w *Writer) ArrayHeader(t, expected *Type, lengths ...int) {
	if t == nil || !t.IsArray() {
		w.SetError(errors.Wrapf(ErrInvalidValue, "%s is not an array type", t))
		return
	}
	if len(lengths) != t.rank {
		w.SetError(errors.Wrapf(ErrInvalidValue, "%s has %d dimensions, got %d lengths", t, t.rank, len(lengths)))
		return
	}
	w.TypeHeader(t, expected)
	for _, l := range lengths {
		w.Int32(int32(l))
	}
}

// Reference writes a back reference to the value written at offset
func (w *Writer) Reference(offset int) {
	w.Token(TokenReference)
	w.Int32(int32(offset))
}

// --------------------------------------------------------------------------
// Simple values
// --------------------------------------------------------------------------

// TryWriteSimple writes v with its token if v is nil, a bool or a value with
// a scalar token, and reports whether it did. Nil pointers of the id types
// are written as Null.
func (w *Writer) TryWriteSimple(v any) bool {
	switch x := v.(type) {
	case nil:
		w.Null()
	case bool:
		w.Bool(x)
	case int32:
		w.Token(TokenInt)
		w.Int32(x)
	case int16:
		w.Token(TokenShort)
		w.Int16(x)
	case int64:
		w.Token(TokenLong)
		w.Int64(x)
	case int:
		w.Token(TokenLong)
		w.Int64(int64(x))
	case int8:
		w.Token(TokenSbyte)
		w.Int8(x)
	case uint32:
		w.Token(TokenUint)
		w.Uint32(x)
	case uint16:
		w.Token(TokenUshort)
		w.Uint16(x)
	case uint64:
		w.Token(TokenUlong)
		w.Uint64(x)
	case uint:
		w.Token(TokenUlong)
		w.Uint64(uint64(x))
	case uint8:
		w.Token(TokenByte)
		w.Uint8(x)
	case float32:
		w.Token(TokenFloat)
		w.Float32(x)
	case float64:
		w.Token(TokenDouble)
		w.Float64(x)
	case Decimal:
		w.Token(TokenDecimal)
		w.Decimal(x)
	case string:
		w.Token(TokenString)
		w.String(x)
	case Char:
		w.Token(TokenCharacter)
		w.Char(x)
	case uuid.UUID:
		w.Token(TokenGuid)
		w.Guid(x)
	case time.Time:
		w.Token(TokenDate)
		w.Time(x)
	case time.Duration:
		w.Token(TokenTimeSpan)
		w.Duration(x)
	case netip.Addr:
		w.Token(TokenIPAddress)
		w.IPAddress(x)
	case net.IP:
		if x == nil {
			w.Null()
			break
		}
		w.Token(TokenIPAddress)
		w.IP(x)
	case netip.AddrPort:
		w.Token(TokenIPEndPoint)
		w.Endpoint(x)
	case *ids.GrainID:
		if x == nil {
			w.Null()
			break
		}
		w.Token(TokenGrainID)
		w.GrainID(x)
	case ids.GrainID:
		w.Token(TokenGrainID)
		w.GrainID(&x)
	case *ids.ActivationID:
		if x == nil {
			w.Null()
			break
		}
		w.Token(TokenActivationID)
		w.ActivationID(x)
	case ids.ActivationID:
		w.Token(TokenActivationID)
		w.ActivationID(&x)
	case *ids.NodeAddress:
		if x == nil {
			w.Null()
			break
		}
		w.Token(TokenNodeAddress)
		w.NodeAddress(x)
	case ids.NodeAddress:
		w.Token(TokenNodeAddress)
		w.NodeAddress(&x)
	case *ids.ActivationAddress:
		if x == nil {
			w.Null()
			break
		}
		w.Token(TokenActivationAddress)
		w.ActivationAddress(x)
	case ids.ActivationAddress:
		w.Token(TokenActivationAddress)
		w.ActivationAddress(&x)
	case ids.CorrelationID:
		w.Token(TokenCorrelationID)
		w.CorrelationID(x)
	default:
		return false
	}
	return true
}
