// Package cmd implements the command-line interface of dWire. It provides
// commands to inspect the token table, encode values and messages, and
// measure encoder performance.
//
// The package is organized into several subpackages:
//
//   - encode: Commands for encoding values (encode) and benchmarking the encoder (perf)
//   - tokens: Command printing the type token table
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through the environment as DWIRE_<flag>
// (e.g. DWIRE_MAX_SEGMENT_SIZE=65536), .env and .env.local files are loaded
// on startup.
//
// See dwire -help for a list of all commands.
package cmd
