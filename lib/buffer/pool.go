package buffer

import (
	"math/bits"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("buffer")

const (
	// DefaultMinimumSize is the smallest block handed out by the default pool
	DefaultMinimumSize = 4 * 1024
	// DefaultMaxSegmentSize is the largest segment a sink links in one step
	DefaultMaxSegmentSize = 1024 * 1024

	// minSegmentCeiling is the widest fixed-width value the encoder writes in
	// one step (decimal). A pool must be able to hand out a segment this large.
	minSegmentCeiling = 16
)

var (
	// ErrInvalidArgument is returned for negative size hints, over-commits and
	// invalid pool bounds.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrReleased is returned when a released sink is written through a stale window.
	ErrReleased = errors.New("sink released")
)

// process wide pool counters (exported with metrics.WritePrometheus)
var (
	segmentsRented   = metrics.NewCounter("dwire_pool_segments_rented_total")
	segmentsReused   = metrics.NewCounter("dwire_pool_segments_reused_total")
	segmentsReturned = metrics.NewCounter("dwire_pool_segments_returned_total")
	bytesRented      = metrics.NewCounter("dwire_pool_bytes_rented_total")
)

// --------------------------------------------------------------------------
// Pool
// --------------------------------------------------------------------------

// Pool rents and returns memory blocks. Blocks are grouped in power-of-two
// size classes, every class is backed by its own sync.Pool.
//
// Thread-safety: all methods are safe for concurrent use.
type Pool struct {
	minimumSize    int
	maxSegmentSize int
	classes        *xsync.MapOf[int, *sync.Pool]
}

// NewPool creates a pool that never hands out blocks smaller than minimumSize
// and that limits sink segments to maxSegmentSize.
func NewPool(minimumSize, maxSegmentSize int) (*Pool, error) {
	if minimumSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "minimum size must be positive, got %d", minimumSize)
	}
	if maxSegmentSize < minimumSize {
		return nil, errors.Wrapf(ErrInvalidArgument, "max segment size %d is smaller than minimum size %d", maxSegmentSize, minimumSize)
	}
	if maxSegmentSize < minSegmentCeiling {
		return nil, errors.Wrapf(ErrInvalidArgument, "max segment size must be at least %d, got %d", minSegmentCeiling, maxSegmentSize)
	}

	Logger.Debugf("created pool (minimum size %d, max segment size %d)", minimumSize, maxSegmentSize)

	return &Pool{
		minimumSize:    minimumSize,
		maxSegmentSize: maxSegmentSize,
		classes:        xsync.NewMapOf[int, *sync.Pool](),
	}, nil
}

// MinimumSize returns the smallest block size this pool hands out
func (p *Pool) MinimumSize() int {
	return p.minimumSize
}

// MaxSegmentSize returns the largest segment size a sink requests from this pool
func (p *Pool) MaxSegmentSize() int {
	return p.maxSegmentSize
}

// Rent returns a block with len(block) >= size. The contents of the block are
// unspecified.
func (p *Pool) Rent(size int) []byte {
	if size < p.minimumSize {
		size = p.minimumSize
	}
	class := sizeClass(size)

	segmentsRented.Inc()
	bytesRented.Add(class)

	if b, ok := p.class(class).Get().(*[]byte); ok {
		segmentsReused.Inc()
		return (*b)[:class]
	}
	return make([]byte, class)
}

// Return gives a block back to the pool. Blocks that were not rented from a
// pool with the same bounds are dropped.
func (p *Pool) Return(b []byte) {
	c := cap(b)
	if c < p.minimumSize || c != sizeClass(c) {
		return
	}
	segmentsReturned.Inc()
	b = b[:c]
	p.class(c).Put(&b)
}

// class returns the sync.Pool for a size class, creating it on first use
func (p *Pool) class(size int) *sync.Pool {
	sp, _ := p.classes.LoadOrCompute(size, func() *sync.Pool {
		return &sync.Pool{}
	})
	return sp
}

// sizeClass rounds size up to the next power of two
func sizeClass(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// --------------------------------------------------------------------------
// Default Pool
// --------------------------------------------------------------------------

var (
	defaultPoolMu sync.RWMutex
	defaultPool   = mustPool(DefaultMinimumSize, DefaultMaxSegmentSize)
)

// DefaultPool returns the process-wide pool used by sinks created without one
func DefaultPool() *Pool {
	defaultPoolMu.RLock()
	defer defaultPoolMu.RUnlock()
	return defaultPool
}

// SetDefaultPool replaces the process-wide pool. It is meant to be called once
// during startup, sinks that already hold segments keep returning them to the
// pool they were created with.
func SetDefaultPool(p *Pool) {
	if p == nil {
		return
	}
	defaultPoolMu.Lock()
	defer defaultPoolMu.Unlock()
	defaultPool = p
}

func mustPool(minimumSize, maxSegmentSize int) *Pool {
	p, err := NewPool(minimumSize, maxSegmentSize)
	if err != nil {
		panic(err)
	}
	return p
}
