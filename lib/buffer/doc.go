// Package buffer provides the pooled, segment-chained memory that the token
// stream encoder writes into. It is the lowest layer of the dWire encoding
// pipeline and knows nothing about tokens or types.
//
// The package focuses on:
//   - Renting and returning fixed-capacity memory blocks without per-write heap allocation
//   - Chaining rented blocks into one logical, append-only byte buffer
//   - Exposing the written region as a read-only sequence without copying it
//   - Emitting that sequence as a single vectored write (optionally framed)
//
// Key Components:
//
//   - Pool: Rents and returns blocks grouped in power-of-two size classes. A pool is
//     bounded by a minimum block size and a maximum segment size. Pools are shared
//     and safe for concurrent use by any number of sinks on different goroutines.
//
//   - Sink: Chains rented segments into one logical buffer. Writers ask for "at least
//     N writable bytes" with RequestSpace and report progress with Commit. Only the
//     tail segment ever has writable capacity. A sink is owned by a single operation
//     and must not be used concurrently.
//
//   - Sequence: A read-only view over the committed bytes of a sink at the time the
//     snapshot was taken. Later writes to the sink do not change a sequence, a Release
//     of the sink invalidates it.
//
//   - WriteFrame / ReadFrame: The length-prefixed frame format used to ship a sequence
//     over a stream connection without flattening the segments first.
//
// Lifecycle:
//
//	A sink is created per encode operation (or reused after Release):
//
//	  sink := buffer.NewSink(pool)
//	  window, err := sink.RequestSpace(8)
//	  n := copy(window, payload)
//	  err = sink.Commit(n)
//	  data := sink.Detach() // copies the bytes and returns every segment to the pool
//
//	Using a Sequence after the sink that produced it was released is a programming
//	error and panics. Segments are only ever returned to the pool by Release.
package buffer
