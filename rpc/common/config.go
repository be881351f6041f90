package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Pool configuration struct
// --------------------------------------------------------------------------

// PoolConfig holds the bounds of the segment pool behind every sink.
type PoolConfig struct {
	// smallest block the pool hands out
	MinimumSize int
	// largest segment a sink links in one step
	MaxSegmentSize int
}

// --------------------------------------------------------------------------
// Encoder configuration struct
// --------------------------------------------------------------------------

// OutputFormat selects how the CLI prints encoded bytes
type OutputFormat string

const (
	FormatHex   OutputFormat = "hex"
	FormatRaw   OutputFormat = "raw"
	FormatFrame OutputFormat = "frame"
)

// EncoderConfig holds all configuration parameters of the encoder tooling.
type EncoderConfig struct {
	Pool PoolConfig

	// Output format of the encode command
	Format OutputFormat

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration for values the encoder cannot run with
func (c *EncoderConfig) Validate() error {
	if c.Pool.MinimumSize <= 0 {
		return fmt.Errorf("minimum segment size must be positive, got %d", c.Pool.MinimumSize)
	}
	if c.Pool.MaxSegmentSize < c.Pool.MinimumSize {
		return fmt.Errorf("max segment size %d is smaller than minimum segment size %d", c.Pool.MaxSegmentSize, c.Pool.MinimumSize)
	}
	switch c.Format {
	case FormatHex, FormatRaw, FormatFrame:
	default:
		return fmt.Errorf("invalid output format: %s. must be one of hex, raw, frame", c.Format)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *EncoderConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Segment pool
	addSection("Segment Pool")
	addField("Minimum Size", strconv.Itoa(c.Pool.MinimumSize)+" bytes")
	addField("Max Segment Size", strconv.Itoa(c.Pool.MaxSegmentSize)+" bytes")

	// Output
	addSection("Output")
	addField("Format", string(c.Format))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
