package serializer

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/netip"

	"github.com/ValentinKolb/dWire/lib/ids"
	"github.com/ValentinKolb/dWire/rpc/common"
	"github.com/pkg/errors"
)

// tokenReader decodes token streams in tests. It knows the built-in
// encodings, named types are decoded by the functions in named.
type tokenReader struct {
	data  []byte
	pos   int
	base  int // stream offset of data[0]
	seen  map[int]any
	named map[string]func(r *tokenReader) any
	err   error
}

var (
	exactByToken = map[Token]*Type{}
	shapeByToken = map[Token]*Shape{}
)

func init() {
	for t, tok := range exactTokens {
		exactByToken[tok] = t
	}
	for s, tok := range shapeTokens {
		shapeByToken[tok] = s
	}
}

func newTokenReader(data []byte) *tokenReader {
	return &tokenReader{data: data, seen: map[int]any{}, named: map[string]func(r *tokenReader) any{}}
}

func (r *tokenReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = errors.Errorf("offset %d: %s", r.base+r.pos, fmt.Sprintf(format, args...))
	}
}

func (r *tokenReader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail("need %d bytes, %d left", n, len(r.data)-r.pos)
		return make([]byte, max(n, 0))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *tokenReader) remaining() int { return len(r.data) - r.pos }

func (r *tokenReader) token() Token   { return Token(r.take(1)[0]) }
func (r *tokenReader) uint8() uint8   { return r.take(1)[0] }
func (r *tokenReader) uint16() uint16 { return binary.LittleEndian.Uint16(r.take(2)) }
func (r *tokenReader) uint32() uint32 { return binary.LittleEndian.Uint32(r.take(4)) }
func (r *tokenReader) uint64() uint64 { return binary.LittleEndian.Uint64(r.take(8)) }
func (r *tokenReader) int32() int32   { return int32(r.uint32()) }
func (r *tokenReader) int64() int64   { return int64(r.uint64()) }

// string returns the string and whether it was not null
func (r *tokenReader) string() (string, bool) {
	n := r.int32()
	if n == -1 {
		return "", false
	}
	return string(r.take(int(n))), true
}

func (r *tokenReader) ipAddress() netip.Addr {
	var b [16]byte
	copy(b[:], r.take(16))
	a := netip.AddrFrom16(b)
	if a.Is4In6() || [12]byte(b[:12]) == [12]byte{} {
		return netip.AddrFrom4([4]byte(b[12:]))
	}
	return a
}

func (r *tokenReader) endpoint() netip.AddrPort {
	a := r.ipAddress()
	return netip.AddrPortFrom(a, uint16(r.int32()))
}

func (r *tokenReader) nodeAddress() *ids.NodeAddress {
	ep := r.endpoint()
	return ids.NewNodeAddress(ep, r.int32())
}

func (r *tokenReader) uniqueKey() ids.UniqueKey {
	k := ids.UniqueKey{N0: r.uint64(), N1: r.uint64(), TypeCodeData: r.uint64()}
	k.KeyExt, _ = r.string()
	return k
}

func (r *tokenReader) activationAddress() *ids.ActivationAddress {
	node := r.nodeAddress()
	grain := &ids.GrainID{Key: r.uniqueKey()}
	act := &ids.ActivationID{Key: r.uniqueKey()}
	return &ids.ActivationAddress{Node: node, Grain: grain, Activation: act}
}

// typeHeader reads a header written for expected
func (r *tokenReader) typeHeader(expected *Type) *Type {
	switch tok := r.token(); tok {
	case TokenExpectedType:
		if expected == nil {
			r.fail("ExpectedType without expected type")
		}
		return expected
	case TokenSpecifiedType:
		return r.typeName()
	default:
		r.fail("unexpected token %s in type header", tok)
		return nil
	}
}

// typeName reads the type after a SpecifiedType token
func (r *tokenReader) typeName() *Type {
	tok := r.token()
	if r.err != nil {
		return nil
	}
	if tok > TokenArray && tok <= TokenArray+maxArrayRank {
		elem := r.nestedType()
		if elem == nil {
			return nil
		}
		return ArrayOf(elem, int(tok-TokenArray))
	}
	if t, ok := exactByToken[tok]; ok {
		return t
	}
	if s, ok := shapeByToken[tok]; ok {
		args := make([]*Type, s.Arity())
		for i := range args {
			if args[i] = r.nestedType(); args[i] == nil {
				return nil
			}
		}
		return GenericOf(s, args...)
	}
	if tok == TokenNamedType {
		n := r.int32()
		return Named(string(r.take(int(n))))
	}
	r.fail("unknown type token %s", tok)
	return nil
}

func (r *tokenReader) nestedType() *Type {
	if tok := r.token(); tok != TokenSpecifiedType {
		r.fail("nested header starts with %s", tok)
		return nil
	}
	return r.typeName()
}

// value reads one value written by SerializeInner
func (r *tokenReader) value(expected *Type) any {
	start := r.base + r.pos
	tok := r.token()
	if r.err != nil {
		return nil
	}
	switch tok {
	case TokenNull:
		return nil
	case TokenTrue:
		return true
	case TokenFalse:
		return false
	case TokenReference:
		offset := int(r.int32())
		v, ok := r.seen[offset]
		if !ok {
			r.fail("reference to unknown offset %d", offset)
		}
		return v
	case TokenExpectedType, TokenSpecifiedType:
		r.pos--
		t := r.typeHeader(expected)
		if t == nil {
			return nil
		}
		return r.body(t, start)
	}
	if IsScalar(tok) {
		return r.scalar(tok)
	}
	r.fail("unexpected token %s", tok)
	return nil
}

func (r *tokenReader) scalar(tok Token) any {
	switch tok {
	case TokenInt:
		return r.int32()
	case TokenShort:
		return int16(r.uint16())
	case TokenLong:
		return r.int64()
	case TokenSbyte:
		return int8(r.uint8())
	case TokenUint:
		return r.uint32()
	case TokenUshort:
		return r.uint16()
	case TokenUlong:
		return r.uint64()
	case TokenByte:
		return r.uint8()
	case TokenFloat:
		return math.Float32frombits(r.uint32())
	case TokenDouble:
		return math.Float64frombits(r.uint64())
	case TokenDecimal:
		return Decimal{Flags: r.uint32(), Hi: r.uint32(), Lo: r.uint32(), Mid: r.uint32()}
	case TokenString:
		s, _ := r.string()
		return s
	case TokenCharacter:
		return Char(r.uint16())
	case TokenGuid:
		return [16]byte(r.take(16))
	case TokenDate, TokenTimeSpan:
		return r.int64()
	case TokenIPAddress:
		return r.ipAddress()
	case TokenIPEndPoint:
		return r.endpoint()
	case TokenGrainID:
		return &ids.GrainID{Key: r.uniqueKey()}
	case TokenActivationID:
		return &ids.ActivationID{Key: r.uniqueKey()}
	case TokenNodeAddress:
		return r.nodeAddress()
	case TokenActivationAddress:
		return r.activationAddress()
	case TokenCorrelationID:
		return ids.CorrelationID(r.int64())
	}
	r.fail("no scalar decoding for %s", tok)
	return nil
}

// body reads the value of type t that started at offset start
func (r *tokenReader) body(t *Type, start int) any {
	switch {
	case t.IsArray():
		return r.array(t, start)
	case t == TypeStringObjDict:
		m := map[string]any{}
		r.seen[start] = m
		n := int(r.int32())
		for i := 0; i < n && r.err == nil; i++ {
			k, _ := r.value(TypeString).(string)
			m[k] = r.value(TypeObject)
		}
		return m
	case t == TypeRequest:
		req := &common.InvokeMethodRequest{}
		r.seen[start] = req
		req.InterfaceID = r.int32()
		req.MethodID = r.int32()
		n := int(r.int32())
		if n > 0 {
			req.Arguments = make([]any, n)
		}
		for i := 0; i < n && r.err == nil; i++ {
			req.Arguments[i] = r.value(TypeObject)
		}
		return req
	case t == TypeResponse:
		resp := &common.Response{}
		r.seen[start] = resp
		resp.ExceptionFlag = r.token() == TokenTrue
		resp.Data = r.value(TypeObject)
		return resp
	case t.Shape() == ShapeDictionary:
		m := map[any]any{}
		r.seen[start] = m
		args := t.Args()
		n := int(r.int32())
		for i := 0; i < n && r.err == nil; i++ {
			k := r.value(args[0])
			m[k] = r.value(args[1])
		}
		return m
	case t.Shape() == ShapeSet:
		var keys []any
		n := int(r.int32())
		for i := 0; i < n && r.err == nil; i++ {
			keys = append(keys, r.value(t.Args()[0]))
		}
		r.seen[start] = keys
		return keys
	}
	if fn, ok := r.named[t.Key()]; ok {
		v := fn(r)
		r.seen[start] = v
		return v
	}
	r.fail("no decoding for %s", t)
	return nil
}

func (r *tokenReader) array(t *Type, start int) any {
	if t.Rank() != 1 {
		r.fail("rank %d arrays are not supported", t.Rank())
		return nil
	}
	n := int(r.int32())
	var v any
	switch t.Elem() {
	case TypeUint8:
		v = append([]byte{}, r.take(n)...)
	case TypeBool:
		b := make([]bool, n)
		for i := range b {
			b[i] = r.uint8() != 0
		}
		v = b
	case TypeInt16:
		s := make([]int16, n)
		for i := range s {
			s[i] = int16(r.uint16())
		}
		v = s
	case TypeInt32:
		s := make([]int32, n)
		for i := range s {
			s[i] = r.int32()
		}
		v = s
	case TypeInt64:
		s := make([]int64, n)
		for i := range s {
			s[i] = r.int64()
		}
		v = s
	case TypeFloat64:
		s := make([]float64, n)
		for i := range s {
			s[i] = math.Float64frombits(r.uint64())
		}
		v = s
	default:
		if IsBulkElement(t.Elem()) {
			r.fail("no bulk decoding for %s", t)
			return nil
		}
		s := make([]any, n)
		r.seen[start] = s
		for i := range s {
			s[i] = r.value(t.Elem())
		}
		return s
	}
	r.seen[start] = v
	return v
}

// decodeTokenMessage reads a message written by the token serializer
func decodeTokenMessage(data []byte) (common.Message, error) {
	r := newTokenReader(data)
	var msg common.Message
	msg.MsgType = common.MessageType(r.uint8())
	flags := r.uint8()
	msg.ID = ids.CorrelationID(r.int64())
	if flags&hasSender != 0 {
		msg.Sender = r.activationAddress()
	}
	if flags&hasTarget != 0 {
		msg.Target = r.activationAddress()
	}
	if flags&hasHeaders != 0 {
		msg.Headers, _ = r.value(TypeStringObjDict).(map[string]any)
	}
	if flags&hasBody != 0 {
		n := int(r.int32())
		if r.remaining() != n {
			r.fail("body length %d, %d bytes left", n, r.remaining())
		}
		msg.Body = r.value(TypeObject)
	}
	if r.err == nil && r.remaining() != 0 {
		r.fail("%d trailing bytes", r.remaining())
	}
	return msg, r.err
}
