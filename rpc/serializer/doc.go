// Package serializer writes values as a binary token stream: every value is
// introduced by a one byte token, followed by its little endian encoding.
//
// Key Components:
//
//   - Writer: appends primitives, strings, guids, times, addresses and runtime
//     ids to a buffer.Sink. Errors are sticky and reported by Writer.Error.
//
//   - Type and the type token table: interned type descriptors and the tokens
//     they are written with. Types without a token of their own are written
//     as array, generic shape or NamedType headers (see Writer.TypeHeader).
//
//   - Context and NestedContext: the state of one serialize operation. Objects
//     written twice in one operation are written once and referenced by offset
//     afterward, also across nested contexts writing to their own sinks.
//
//   - Registry: an IObjectSerializer dispatching named types to serializer
//     functions.
//
//   - IMessageSerializer: serializers for whole common.Message values, using
//     the token format (NewTokenSerializer) or json (NewJSONSerializer).
//
// Thread Safety:
//
//	Writers and contexts belong to one operation. Type descriptors, the token
//	table, registries and the message serializers are safe for concurrent use.
//
// Usage:
//
//	sink := buffer.NewSink(nil)
//	defer sink.Release()
//
//	ctx := serializer.NewContext(sink, registry, nil)
//	w, _ := serializer.NewContextWriter(ctx)
//	w.SerializeInner(value, serializer.TypeObject)
//	if err := w.Error(); err != nil {
//		// ...
//	}
//	data := sink.Snapshot().Bytes()
package serializer
