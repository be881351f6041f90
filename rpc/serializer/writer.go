package serializer

import (
	"encoding/binary"
	"math"
	"math/big"
	"net"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"
	"unsafe"

	"github.com/ValentinKolb/dWire/lib/buffer"
	"github.com/ValentinKolb/dWire/lib/ids"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

var Logger = logger.GetLogger("serializer")

var (
	// ErrNullTarget is returned when a writer is created without a sink
	ErrNullTarget = errors.New("null target")
	// ErrNoSerializer is set when a value has neither a built-in encoding nor
	// a serializer in the context's dispatcher
	ErrNoSerializer = errors.New("no serializer")
	// ErrInvalidValue is set for values that have no encoding, like an
	// invalid IP address or an activation address without grain
	ErrInvalidValue = errors.New("invalid value")
)

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

// Writer encodes values onto a sink. It keeps the writable window of the
// sink's tail and commits every value right after it is written; when the
// window is too small it requests a new one, which may link a new segment.
//
// Errors are sticky: once a write fails every later write is a no-op and
// Error reports the first failure.
//
// Thread-safety: a writer is bound to one sink and is not safe for concurrent
// use.
type Writer struct {
	sink    *buffer.Sink
	ctx     ISerializationContext
	span    []byte // unwritten part of the current window
	gen     uint64 // sink generation the writer was created in
	pos     int    // sink length at which span starts
	links   uint64 // sink links when span was requested
	written int
	err     error
}

// NewWriter creates a writer that appends to sink
func NewWriter(sink *buffer.Sink) (*Writer, error) {
	if sink == nil {
		return nil, errors.Wrap(ErrNullTarget, "nil sink")
	}
	return &Writer{sink: sink, gen: sink.Generation(), pos: sink.Len()}, nil
}

// NewContextWriter creates a writer that appends to the sink of ctx and
// advances the offset of ctx with every commit
func NewContextWriter(ctx ISerializationContext) (*Writer, error) {
	if ctx == nil {
		return nil, errors.Wrap(ErrNullTarget, "nil context")
	}
	w, err := NewWriter(ctx.Sink())
	if err != nil {
		return nil, errors.Wrap(err, "context without sink")
	}
	w.ctx = ctx
	return w, nil
}

// Context returns the context of the writer, nil for plain writers
func (w *Writer) Context() ISerializationContext { return w.ctx }

// Sink returns the sink the writer appends to
func (w *Writer) Sink() *buffer.Sink { return w.sink }

// Offset returns the stream offset of the next byte: the context's offset for
// context writers, the number of bytes written otherwise
func (w *Writer) Offset() int {
	if w.ctx != nil {
		return w.ctx.CurrentOffset()
	}
	return w.written
}

// Error returns the first error that occurred while writing
func (w *Writer) Error() error { return w.err }

// SetError records err unless an error was recorded before
func (w *Writer) SetError(err error) {
	if w.err == nil {
		w.err = err
	}
}

// window returns the current window if it holds at least min bytes, or
// requests a new one sized for hint
func (w *Writer) window(min, hint int) []byte {
	if !w.usable() {
		return nil
	}
	if w.sink.Len() != w.pos || w.sink.Links() != w.links {
		// someone else appended to or grew the sink, the window is stale
		w.span = nil
	}
	if len(w.span) < min {
		span, err := w.sink.RequestSpace(hint)
		if err != nil {
			w.err = err
			return nil
		}
		w.span = span
		w.pos = w.sink.Len()
		w.links = w.sink.Links()
	}
	return w.span
}

// usable reports whether the writer may still write. It fails once an error
// occurred or the sink was released.
func (w *Writer) usable() bool {
	if w.err != nil {
		return false
	}
	if w.sink.Generation() != w.gen {
		w.err = errors.Wrap(buffer.ErrReleased, "write after release")
		return false
	}
	return true
}

func (w *Writer) ensure(n int) []byte {
	return w.window(n, n)
}

func (w *Writer) advance(n int) {
	if err := w.sink.Commit(n); err != nil {
		w.err = err
		return
	}
	w.span = w.span[n:]
	w.pos += n
	w.written += n
	if w.ctx != nil {
		w.ctx.Advance(n)
	}
}

// --------------------------------------------------------------------------
// Fixed width values
// --------------------------------------------------------------------------

func (w *Writer) put8(v uint8) {
	if b := w.ensure(1); b != nil {
		b[0] = v
		w.advance(1)
	}
}

func (w *Writer) put16(v uint16) {
	if b := w.ensure(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
		w.advance(2)
	}
}

func (w *Writer) put32(v uint32) {
	if b := w.ensure(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
		w.advance(4)
	}
}

func (w *Writer) put64(v uint64) {
	if b := w.ensure(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
		w.advance(8)
	}
}

func (w *Writer) Int8(v int8)       { w.put8(uint8(v)) }
func (w *Writer) Uint8(v uint8)     { w.put8(v) }
func (w *Writer) Int16(v int16)     { w.put16(uint16(v)) }
func (w *Writer) Uint16(v uint16)   { w.put16(v) }
func (w *Writer) Int32(v int32)     { w.put32(uint32(v)) }
func (w *Writer) Uint32(v uint32)   { w.put32(v) }
func (w *Writer) Int64(v int64)     { w.put64(uint64(v)) }
func (w *Writer) Uint64(v uint64)   { w.put64(v) }
func (w *Writer) Float32(v float32) { w.put32(math.Float32bits(v)) }
func (w *Writer) Float64(v float64) { w.put64(math.Float64bits(v)) }

// Char writes a UTF-16 code unit
func (w *Writer) Char(c Char) { w.put16(uint16(c)) }

// Token writes a single token byte
func (w *Writer) Token(t Token) { w.put8(byte(t)) }

// Bool writes the True or False token
func (w *Writer) Bool(v bool) {
	if v {
		w.Token(TokenTrue)
	} else {
		w.Token(TokenFalse)
	}
}

// Null writes the Null token
func (w *Writer) Null() { w.Token(TokenNull) }

// Decimal writes the four 32 bit words in the order flags, hi, lo, mid
func (w *Writer) Decimal(d Decimal) {
	if b := w.ensure(16); b != nil {
		binary.LittleEndian.PutUint32(b[0:], d.Flags)
		binary.LittleEndian.PutUint32(b[4:], d.Hi)
		binary.LittleEndian.PutUint32(b[8:], d.Lo)
		binary.LittleEndian.PutUint32(b[12:], d.Mid)
		w.advance(16)
	}
}

// --------------------------------------------------------------------------
// Byte spans and text
// --------------------------------------------------------------------------

// Bytes writes b as it is, splitting it across segments where the window is
// too small
func (w *Writer) Bytes(b []byte) {
	for len(b) > 0 {
		span := w.window(1, len(b))
		if span == nil {
			return
		}
		n := copy(span, b)
		w.advance(n)
		b = b[n:]
	}
}

// Attach links the segments of seq into the sink without copying them. The
// memory behind seq must stay valid until the sink is released.
func (w *Writer) Attach(seq buffer.Sequence) {
	if !w.usable() {
		return
	}
	for b := range seq.All() {
		w.sink.Attach(b)
		w.written += len(b)
		if w.ctx != nil {
			w.ctx.Advance(len(b))
		}
	}
	w.span = nil
	w.pos = w.sink.Len()
	w.links = w.sink.Links()
}

// String writes the UTF-8 byte length as int32 followed by the bytes. Invalid
// UTF-8 sequences are replaced by U+FFFD.
func (w *Writer) String(s string) {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	w.Int32(int32(len(s)))
	w.Bytes(unsafe.Slice(unsafe.StringData(s), len(s)))
}

// NullString writes the length -1 of a null string
func (w *Writer) NullString() { w.Int32(-1) }

// --------------------------------------------------------------------------
// Numeric arrays (raw little endian, no length and no tokens)
// --------------------------------------------------------------------------

var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// writeFixed writes v in wire order. On little endian hosts the memory of v
// already is the wire form and is copied in bulk.
func writeFixed[T any](w *Writer, v []T, put func([]byte, T)) {
	if len(v) == 0 {
		return
	}
	size := int(unsafe.Sizeof(v[0]))
	if hostLittleEndian {
		w.Bytes(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)*size))
		return
	}
	for _, x := range v {
		b := w.ensure(size)
		if b == nil {
			return
		}
		put(b, x)
		w.advance(size)
	}
}

func (w *Writer) Int8s(v []int8) {
	w.Bytes(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)))
}

func (w *Writer) Uint8s(v []uint8) { w.Bytes(v) }

func (w *Writer) Bools(v []bool) {
	w.Bytes(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)))
}

func (w *Writer) Int16s(v []int16) {
	writeFixed(w, v, func(b []byte, x int16) { binary.LittleEndian.PutUint16(b, uint16(x)) })
}

func (w *Writer) Uint16s(v []uint16) {
	writeFixed(w, v, binary.LittleEndian.PutUint16)
}

func (w *Writer) Chars(v []Char) {
	writeFixed(w, v, func(b []byte, x Char) { binary.LittleEndian.PutUint16(b, uint16(x)) })
}

func (w *Writer) Int32s(v []int32) {
	writeFixed(w, v, func(b []byte, x int32) { binary.LittleEndian.PutUint32(b, uint32(x)) })
}

func (w *Writer) Uint32s(v []uint32) {
	writeFixed(w, v, binary.LittleEndian.PutUint32)
}

func (w *Writer) Int64s(v []int64) {
	writeFixed(w, v, func(b []byte, x int64) { binary.LittleEndian.PutUint64(b, uint64(x)) })
}

func (w *Writer) Uint64s(v []uint64) {
	writeFixed(w, v, binary.LittleEndian.PutUint64)
}

func (w *Writer) Float32s(v []float32) {
	writeFixed(w, v, func(b []byte, x float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(x)) })
}

func (w *Writer) Float64s(v []float64) {
	writeFixed(w, v, func(b []byte, x float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(x)) })
}

// --------------------------------------------------------------------------
// Guid, time and duration
// --------------------------------------------------------------------------

const (
	ticksPerSecond   = 10_000_000
	unixEpochSeconds = 62_135_596_800 // seconds from 0001-01-01 to 1970-01-01
	dateKindUTC      = int64(1) << 62
)

// Guid writes the 16 bytes of g in mixed endian order
func (w *Writer) Guid(g uuid.UUID) {
	if b := w.ensure(16); b != nil {
		gb := ids.GuidBytes(g)
		copy(b, gb[:])
		w.advance(16)
	}
}

// Time writes t as UTC ticks (100ns units since 0001-01-01) with the UTC kind
// in the two top bits
func (w *Writer) Time(t time.Time) {
	w.Int64(TimeTicks(t) | dateKindUTC)
}

// TimeTicks returns the number of 100ns ticks from 0001-01-01 UTC to t
func TimeTicks(t time.Time) int64 {
	t = t.UTC()
	return (t.Unix()+unixEpochSeconds)*ticksPerSecond + int64(t.Nanosecond()/100)
}

// Duration writes d in 100ns ticks
func (w *Writer) Duration(d time.Duration) {
	w.Int64(int64(d / 100))
}

// --------------------------------------------------------------------------
// Addresses and runtime ids
// --------------------------------------------------------------------------

// IPAddress writes 16 bytes: IPv4 addresses as 12 zero bytes and the 4
// address bytes, IPv6 addresses as they are. Zones are dropped.
func (w *Writer) IPAddress(a netip.Addr) {
	switch {
	case a.Is4():
		v4 := a.As4()
		if b := w.ensure(16); b != nil {
			clear(b[:12])
			copy(b[12:16], v4[:])
			w.advance(16)
		}
	case a.Is6():
		v6 := a.As16()
		if b := w.ensure(16); b != nil {
			copy(b, v6[:])
			w.advance(16)
		}
	default:
		w.SetError(errors.Wrap(ErrInvalidValue, "invalid IP address"))
	}
}

// IP writes a net.IP like IPAddress, 4-in-6 forms are written as IPv4
func (w *Writer) IP(ip net.IP) {
	if v4 := ip.To4(); v4 != nil {
		w.IPAddress(netip.AddrFrom4([4]byte(v4)))
		return
	}
	if len(ip) == net.IPv6len {
		w.IPAddress(netip.AddrFrom16([16]byte(ip)))
		return
	}
	w.SetError(errors.Wrapf(ErrInvalidValue, "IP address of length %d", len(ip)))
}

// Endpoint writes the address followed by the port as int32
func (w *Writer) Endpoint(ep netip.AddrPort) {
	w.IPAddress(ep.Addr())
	w.Int32(int32(ep.Port()))
}

// NodeAddress writes the endpoint followed by the generation as int32
func (w *Writer) NodeAddress(n *ids.NodeAddress) {
	if n == nil {
		w.SetError(errors.Wrap(ErrInvalidValue, "nil node address"))
		return
	}
	w.Endpoint(n.Endpoint)
	w.Int32(n.Generation)
}

// UniqueKey writes N0, N1 and TypeCodeData as uint64 followed by the key
// extension. An empty extension is written as null string.
func (w *Writer) UniqueKey(k ids.UniqueKey) {
	if b := w.ensure(16); b != nil {
		binary.LittleEndian.PutUint64(b, k.N0)
		binary.LittleEndian.PutUint64(b[8:], k.N1)
		w.advance(16)
	}
	w.Uint64(k.TypeCodeData)
	if k.KeyExt == "" {
		w.NullString()
	} else {
		w.String(k.KeyExt)
	}
}

func (w *Writer) GrainID(g *ids.GrainID) {
	if g == nil {
		w.SetError(errors.Wrap(ErrInvalidValue, "nil grain id"))
		return
	}
	w.UniqueKey(g.Key)
}

func (w *Writer) ActivationID(a *ids.ActivationID) {
	if a == nil {
		w.SetError(errors.Wrap(ErrInvalidValue, "nil activation id"))
		return
	}
	w.UniqueKey(a.Key)
}

// ActivationAddress writes node, grain and activation. A missing node or
// activation is written as its zero value, the grain is required.
func (w *Writer) ActivationAddress(a *ids.ActivationAddress) {
	if a == nil {
		w.SetError(errors.Wrap(ErrInvalidValue, "nil activation address"))
		return
	}
	if a.Grain == nil {
		w.SetError(errors.Wrap(ErrInvalidValue, "activation address without grain"))
		return
	}
	node := a.Node
	if node == nil {
		node = ids.ZeroNodeAddress
	}
	act := a.Activation
	if act == nil {
		act = ids.ZeroActivationID
	}
	w.NodeAddress(node)
	w.GrainID(a.Grain)
	w.ActivationID(act)
}

func (w *Writer) CorrelationID(c ids.CorrelationID) { w.Int64(int64(c)) }

// --------------------------------------------------------------------------
// Value types
// --------------------------------------------------------------------------

// Char is a UTF-16 code unit
type Char uint16

// Decimal is a 128 bit decimal: a 96 bit unsigned integer (Hi:Mid:Lo), the
// sign in bit 31 of Flags and the power of ten scale (0-28) in bits 16-23.
type Decimal struct {
	Flags uint32
	Hi    uint32
	Lo    uint32
	Mid   uint32
}

const (
	decimalSignBit    = 1 << 31
	decimalScaleShift = 16
	maxDecimalScale   = 28
)

// NewDecimal returns unscaled * 10^-scale
func NewDecimal(unscaled int64, scale uint8) (Decimal, error) {
	if scale > maxDecimalScale {
		return Decimal{}, errors.Wrapf(ErrInvalidValue, "decimal scale %d out of range", scale)
	}
	var d Decimal
	u := uint64(unscaled)
	if unscaled < 0 {
		d.Flags = decimalSignBit
		u = uint64(-unscaled)
	}
	d.Flags |= uint32(scale) << decimalScaleShift
	d.Lo = uint32(u)
	d.Mid = uint32(u >> 32)
	return d, nil
}

// ParseDecimal parses a plain decimal number like "-12.345"
func ParseDecimal(s string) (Decimal, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	negative := strings.HasPrefix(s, "-")
	scale := 0
	if i := strings.IndexByte(digits, '.'); i >= 0 {
		scale = len(digits) - i - 1
		digits = digits[:i] + digits[i+1:]
	}
	if digits == "" || scale > maxDecimalScale {
		return Decimal{}, errors.Wrapf(ErrInvalidValue, "invalid decimal %q", s)
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 96 {
		return Decimal{}, errors.Wrapf(ErrInvalidValue, "invalid decimal %q", s)
	}

	var d Decimal
	mask := big.NewInt(math.MaxUint32)
	d.Lo = uint32(new(big.Int).And(n, mask).Uint64())
	d.Mid = uint32(new(big.Int).And(new(big.Int).Rsh(n, 32), mask).Uint64())
	d.Hi = uint32(new(big.Int).Rsh(n, 64).Uint64())
	d.Flags = uint32(scale) << decimalScaleShift
	if negative && n.Sign() != 0 {
		d.Flags |= decimalSignBit
	}
	return d, nil
}
