package ids

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// UniqueKey
// --------------------------------------------------------------------------

// UniqueKey is the 128 bit key shared by grain and activation ids. The
// TypeCodeData word carries the key category and the grain type code, KeyExt
// is the optional string extension of compound keys.
type UniqueKey struct {
	N0           uint64
	N1           uint64
	TypeCodeData uint64
	KeyExt       string
}

// NewIntegerKey creates a key for an integer primary key
func NewIntegerKey(n int64, typeCodeData uint64) UniqueKey {
	return UniqueKey{N1: uint64(n), TypeCodeData: typeCodeData}
}

// NewGuidKey creates a key for a guid primary key. The two key words are the
// little endian halves of the guid in wire byte order.
func NewGuidKey(g uuid.UUID, typeCodeData uint64) UniqueKey {
	b := GuidBytes(g)
	return UniqueKey{
		N0:           binary.LittleEndian.Uint64(b[:8]),
		N1:           binary.LittleEndian.Uint64(b[8:]),
		TypeCodeData: typeCodeData,
	}
}

// NewStringKey creates a key whose identity is carried by the extension
func NewStringKey(key string, typeCodeData uint64) UniqueKey {
	return UniqueKey{TypeCodeData: typeCodeData, KeyExt: key}
}

// IsZero reports whether every part of the key is zero
func (k UniqueKey) IsZero() bool {
	return k.N0 == 0 && k.N1 == 0 && k.TypeCodeData == 0 && k.KeyExt == ""
}

func (k UniqueKey) String() string {
	s := fmt.Sprintf("%016x%016x%016x", k.N0, k.N1, k.TypeCodeData)
	if k.KeyExt != "" {
		s += "+" + k.KeyExt
	}
	return s
}

// GuidBytes returns a guid in mixed-endian wire order: the first three
// groups little endian, the last eight bytes unchanged.
func GuidBytes(g uuid.UUID) [16]byte {
	var b [16]byte
	b[0], b[1], b[2], b[3] = g[3], g[2], g[1], g[0]
	b[4], b[5] = g[5], g[4]
	b[6], b[7] = g[7], g[6]
	copy(b[8:], g[8:])
	return b
}

// --------------------------------------------------------------------------
// Grain and activation ids
// --------------------------------------------------------------------------

// GrainID identifies a grain independent of where it is activated
type GrainID struct {
	Key UniqueKey
}

// NewGrainID creates a grain id for key
func NewGrainID(key UniqueKey) *GrainID {
	return &GrainID{Key: key}
}

func (g *GrainID) String() string {
	if g == nil {
		return "<nil>"
	}
	return "grn/" + g.Key.String()
}

// ActivationID identifies one activation of a grain
type ActivationID struct {
	Key UniqueKey
}

// ZeroActivationID is encoded in place of a missing activation
var ZeroActivationID = &ActivationID{}

// NewActivationID creates a random activation id
func NewActivationID() *ActivationID {
	return &ActivationID{Key: NewGuidKey(uuid.New(), 0)}
}

// IsZero reports whether a is nil or the zero activation
func (a *ActivationID) IsZero() bool {
	return a == nil || a.Key.IsZero()
}

func (a *ActivationID) String() string {
	if a == nil {
		return "<nil>"
	}
	return "act/" + a.Key.String()
}

// --------------------------------------------------------------------------
// Addresses
// --------------------------------------------------------------------------

// NodeAddress is the endpoint of a node and the generation that tells
// restarts on the same endpoint apart
type NodeAddress struct {
	Endpoint   netip.AddrPort
	Generation int32
}

// ZeroNodeAddress is encoded in place of a missing node. Its endpoint is the
// unspecified IPv4 address with port 0.
var ZeroNodeAddress = &NodeAddress{Endpoint: netip.AddrPortFrom(netip.IPv4Unspecified(), 0)}

// NewNodeAddress creates a node address
func NewNodeAddress(endpoint netip.AddrPort, generation int32) *NodeAddress {
	return &NodeAddress{Endpoint: endpoint, Generation: generation}
}

// IsZero reports whether n is nil or equal to ZeroNodeAddress
func (n *NodeAddress) IsZero() bool {
	return n == nil || (n.Generation == 0 && n.Endpoint.Port() == 0 &&
		(!n.Endpoint.Addr().IsValid() || n.Endpoint.Addr().IsUnspecified()))
}

func (n *NodeAddress) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("S%s:%d", n.Endpoint, n.Generation)
}

// ActivationAddress locates one activation. Node and Activation may be nil,
// Grain is required for encoding.
type ActivationAddress struct {
	Node       *NodeAddress
	Grain      *GrainID
	Activation *ActivationID
}

func (a *ActivationAddress) String() string {
	if a == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(a.Node.String())
	sb.WriteString(" ")
	sb.WriteString(a.Grain.String())
	sb.WriteString(" ")
	sb.WriteString(a.Activation.String())
	sb.WriteString("]")
	return sb.String()
}

// --------------------------------------------------------------------------
// Correlation
// --------------------------------------------------------------------------

// CorrelationID pairs a request with its response
type CorrelationID int64

var lastCorrelationID atomic.Int64

// NextCorrelationID returns a process-wide unique, increasing id
func NextCorrelationID() CorrelationID {
	return CorrelationID(lastCorrelationID.Add(1))
}

func (c CorrelationID) String() string {
	return fmt.Sprintf("corr/%d", int64(c))
}
