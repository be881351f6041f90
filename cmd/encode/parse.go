package encode

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/ValentinKolb/dWire/lib/ids"
	"github.com/ValentinKolb/dWire/rpc/serializer"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// valueParsers maps the type prefix of an argument ("int32:5") to its parser
var valueParsers = map[string]func(string) (any, error){
	"bool": func(s string) (any, error) { return strconv.ParseBool(s) },
	"int8": func(s string) (any, error) {
		n, err := strconv.ParseInt(s, 0, 8)
		return int8(n), err
	},
	"uint8": func(s string) (any, error) {
		n, err := strconv.ParseUint(s, 0, 8)
		return uint8(n), err
	},
	"int16": func(s string) (any, error) {
		n, err := strconv.ParseInt(s, 0, 16)
		return int16(n), err
	},
	"uint16": func(s string) (any, error) {
		n, err := strconv.ParseUint(s, 0, 16)
		return uint16(n), err
	},
	"int32": func(s string) (any, error) {
		n, err := strconv.ParseInt(s, 0, 32)
		return int32(n), err
	},
	"uint32": func(s string) (any, error) {
		n, err := strconv.ParseUint(s, 0, 32)
		return uint32(n), err
	},
	"int64": func(s string) (any, error) { return strconv.ParseInt(s, 0, 64) },
	"uint64": func(s string) (any, error) {
		return strconv.ParseUint(s, 0, 64)
	},
	"float32": func(s string) (any, error) {
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	},
	"float64": func(s string) (any, error) { return strconv.ParseFloat(s, 64) },
	"decimal": func(s string) (any, error) { return serializer.ParseDecimal(s) },
	"char":    parseChar,
	"string":  func(s string) (any, error) { return s, nil },
	"bytes":   func(s string) (any, error) { return hex.DecodeString(s) },
	"guid":    func(s string) (any, error) { return uuid.Parse(s) },
	"time":    func(s string) (any, error) { return time.Parse(time.RFC3339Nano, s) },
	"duration": func(s string) (any, error) {
		return time.ParseDuration(s)
	},
	"ip":       func(s string) (any, error) { return netip.ParseAddr(s) },
	"endpoint": func(s string) (any, error) { return netip.ParseAddrPort(s) },
	"grain":    func(s string) (any, error) { return ids.NewGrainID(ParseKey(s)), nil },
	"correlation": func(s string) (any, error) {
		n, err := strconv.ParseInt(s, 0, 64)
		return ids.CorrelationID(n), err
	},
}

// TypeNames returns the type prefixes understood by ParseValue
func TypeNames() []string {
	names := make([]string, 0, len(valueParsers))
	for name := range valueParsers {
		names = append(names, name)
	}
	return names
}

// ParseValue parses a command line argument into the Go value it encodes.
// Arguments are either "type:value" or a bare value, "null" is nil. Bare
// values are read as bool, int64, float64 or string, whichever parses first.
func ParseValue(arg string) (any, error) {
	if arg == "null" {
		return nil, nil
	}
	if typ, raw, ok := strings.Cut(arg, ":"); ok {
		if parse, known := valueParsers[typ]; known {
			v, err := parse(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid %s %q", typ, raw)
			}
			return v, nil
		}
	}
	return inferValue(arg), nil
}

func inferValue(s string) any {
	if s == "true" || s == "false" {
		return s == "true"
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ParseKey reads an integer, guid or string key, in that order
func ParseKey(s string) ids.UniqueKey {
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return ids.NewIntegerKey(n, 0)
	}
	if g, err := uuid.Parse(s); err == nil {
		return ids.NewGuidKey(g, 0)
	}
	return ids.NewStringKey(s, 0)
}

func parseChar(s string) (any, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return nil, fmt.Errorf("expected a single character, got %d", len(runes))
	}
	units := utf16.Encode(runes)
	if len(units) != 1 {
		return nil, fmt.Errorf("%q is not a single UTF-16 code unit", s)
	}
	return serializer.Char(units[0]), nil
}
