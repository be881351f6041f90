package buffer

import (
	"io"
	"iter"
	"net"
)

// Sequence is a read-only view over the committed bytes of a Sink, as they
// were when Snapshot was called. It references the sink's segments directly.
//
// A Sequence must not be used after the sink that produced it is released,
// doing so panics.
type Sequence struct {
	sink   *Sink
	gen    uint64
	head   *segment
	tail   *segment
	end    int // committed end of the tail at snapshot time
	length int
}

// Len returns the number of bytes in the sequence
func (q Sequence) Len() int {
	q.check()
	return q.length
}

// All yields the committed region of every segment in chain order. The
// yielded slices alias pooled memory and are only valid until the sink is
// released.
func (q Sequence) All() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		q.check()
		if q.head == nil {
			return
		}
		for seg := q.head; ; seg = seg.next {
			b := seg.buf[:seg.written]
			if seg == q.tail {
				b = seg.buf[:q.end]
			}
			if len(b) > 0 && !yield(b) {
				return
			}
			if seg == q.tail {
				return
			}
		}
	}
}

// CopyTo copies the sequence into dst and returns the number of bytes copied
func (q Sequence) CopyTo(dst []byte) int {
	n := 0
	for b := range q.All() {
		if n >= len(dst) {
			break
		}
		n += copy(dst[n:], b)
	}
	return n
}

// Bytes returns a contiguous copy of the sequence
func (q Sequence) Bytes() []byte {
	out := make([]byte, q.Len())
	q.CopyTo(out)
	return out
}

// WriteTo writes the sequence to w with a single vectored write where the
// writer supports it. It implements io.WriterTo.
func (q Sequence) WriteTo(w io.Writer) (int64, error) {
	bufs := q.buffers(nil)
	return bufs.WriteTo(w)
}

// buffers appends the segment views of the sequence to bufs
func (q Sequence) buffers(bufs net.Buffers) net.Buffers {
	for b := range q.All() {
		bufs = append(bufs, b)
	}
	return bufs
}

func (q Sequence) check() {
	if q.sink != nil && q.sink.generation != q.gen {
		panic("buffer: use of a sequence after its sink was released")
	}
}
