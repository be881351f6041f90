// Package common provides core data structures and utilities shared across
// the encoder packages and the command line tooling. It defines the message
// envelope, configuration structures and the logging setup.
//
// The package focuses on:
//   - Message envelope definition for communication between activations
//   - Configuration structures for the segment pool and the CLI
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - Message: Envelope of every message, with a correlation id, sender and
//     target activation addresses, free form headers and a body. Includes
//     factory methods for requests, one-way requests, responses and error
//     responses.
//
//   - InvokeMethodRequest / Response: The two well-known message bodies.
//     Both have a dedicated token in the binary format.
//
//   - MessageType: Enumeration of the supported message kinds.
//
//   - EncoderConfig: Configuration of the segment pool bounds, the output
//     format of the CLI and the log level, with validation and a readable
//     String form.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logger facade, so every package logs with the same format.
package common
