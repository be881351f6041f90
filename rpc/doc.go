// Package rpc provides the message layer of dWire: the envelope exchanged
// between activations and its encoding into the binary token stream.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities, including the Message
//     envelope, configuration structures, and logging.
//
//   - serializer: The token stream encoder (Writer), the type token table,
//     serialization contexts with back-references, and message serializers
//     (Token, JSON) converting between Message objects and byte arrays.
package rpc
