package buffer

import (
	"github.com/pkg/errors"
)

// segment owns one block of memory and forms a singly linked chain
type segment struct {
	buf      []byte
	written  int  // bytes committed
	readOnly bool // attached caller memory, never written or returned to a pool
	next     *segment
}

// free returns the writable capacity left in the segment
func (s *segment) free() int {
	if s.readOnly {
		return 0
	}
	return len(s.buf) - s.written
}

// Sink chains rented segments into one logical, append-only buffer.
//
// The logical buffer is the concatenation, in chain order, of every segment's
// committed region. Only the tail segment has writable capacity.
//
// Thread-safety: a sink is owned by a single operation and is not safe for
// concurrent use. The pool behind it is.
type Sink struct {
	pool       *Pool
	head       *segment
	tail       *segment
	length     int    // cumulative committed bytes
	window     int    // length of the window returned by the last RequestSpace
	generation uint64 // incremented by every Release
	links      uint64 // incremented by every linked segment
}

// NewSink creates an empty sink renting its segments from pool.
// A nil pool selects DefaultPool().
func NewSink(pool *Pool) *Sink {
	if pool == nil {
		pool = DefaultPool()
	}
	return &Sink{pool: pool}
}

// --------------------------------------------------------------------------
// Writing
// --------------------------------------------------------------------------

// RequestSpace returns a writable window of at least
// min(sizeHint, pool.MaxSegmentSize()) bytes.
//
// The window is the remaining capacity of the tail segment unless that segment
// has no, too little or read-only capacity left. Only then a new segment of
// max(pool.MinimumSize(), min(sizeHint, pool.MaxSegmentSize())) bytes is
// rented and linked as the new tail, so the window may be smaller than the
// minimum size while the tail still has room.
func (s *Sink) RequestSpace(sizeHint int) ([]byte, error) {
	if sizeHint < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative size hint %d", sizeHint)
	}

	need := sizeHint
	if need > s.pool.maxSegmentSize {
		need = s.pool.maxSegmentSize
	}

	if s.tail == nil || s.tail.free() == 0 || s.tail.free() < need {
		s.grow(sizeHint)
	}

	w := s.tail.buf[s.tail.written:]
	s.window = len(w)
	return w, nil
}

// Commit marks n bytes of the window returned by the last RequestSpace as
// written. Committing more than that window is rejected.
func (s *Sink) Commit(n int) error {
	if n < 0 || n > s.window {
		return errors.Wrapf(ErrInvalidArgument, "cannot commit %d bytes, %d bytes are writable", n, s.window)
	}
	if n == 0 {
		return nil
	}
	s.tail.written += n
	s.length += n
	s.window -= n
	return nil
}

// Attach links b into the chain as a read-only segment without copying it.
// The caller must not modify b until the sink is released. Attached memory is
// never returned to the pool.
func (s *Sink) Attach(b []byte) {
	if len(b) == 0 {
		return
	}
	s.link(&segment{buf: b, written: len(b), readOnly: true})
	s.length += len(b)
}

// grow rents a new tail segment sized to the clamped hint
func (s *Sink) grow(sizeHint int) {
	size := s.segmentSize(sizeHint)
	if sizeHint > s.pool.maxSegmentSize {
		Logger.Debugf("size hint %d exceeds max segment size, clamped to %d", sizeHint, size)
	}
	s.link(&segment{buf: s.pool.Rent(size)})
}

// segmentSize clamps a size hint to [pool.MinimumSize(), pool.MaxSegmentSize()]
func (s *Sink) segmentSize(sizeHint int) int {
	size := sizeHint
	if size < s.pool.minimumSize {
		size = s.pool.minimumSize
	}
	if size > s.pool.maxSegmentSize {
		size = s.pool.maxSegmentSize
	}
	return size
}

func (s *Sink) link(seg *segment) {
	if s.tail == nil {
		s.head = seg
	} else {
		s.tail.next = seg
	}
	s.tail = seg
	s.window = 0
	s.links++
}

// --------------------------------------------------------------------------
// Reading and lifecycle
// --------------------------------------------------------------------------

// Len returns the number of committed bytes
func (s *Sink) Len() int {
	return s.length
}

// Generation identifies the current lifetime of the sink. It changes with
// every Release, views and windows obtained before are invalid afterward.
func (s *Sink) Generation() uint64 {
	return s.generation
}

// Links changes whenever a segment is linked into the chain. A window handed
// out by RequestSpace is only valid while Links and Len are unchanged.
func (s *Sink) Links() uint64 {
	return s.links
}

// Snapshot returns a read-only view spanning from the start of the first
// segment to the committed end of the tail. Nothing is copied.
func (s *Sink) Snapshot() Sequence {
	seq := Sequence{
		sink:   s,
		gen:    s.generation,
		head:   s.head,
		tail:   s.tail,
		length: s.length,
	}
	if s.tail != nil {
		seq.end = s.tail.written
	}
	return seq
}

// Release returns every pooled segment to the pool and empties the sink.
// Every Sequence and window obtained earlier becomes invalid, the sink itself
// can be reused for an unrelated operation.
func (s *Sink) Release() {
	seg := s.head
	for seg != nil {
		next := seg.next
		if !seg.readOnly {
			s.pool.Return(seg.buf)
		}
		seg.buf = nil
		seg.next = nil
		seg = next
	}
	s.head = nil
	s.tail = nil
	s.length = 0
	s.window = 0
	s.generation++
}

// Detach copies the logical buffer into a new slice and releases the sink
func (s *Sink) Detach() []byte {
	b := s.Snapshot().Bytes()
	s.Release()
	return b
}
