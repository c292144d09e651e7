package tangier

import (
	"math"
	"strconv"
	"strings"

	"pinmux-go/errcode"
)

// Recognised per-pin properties.
const (
	PropPadOffset = "pad-offset"
	PropModeFunc  = "mode-func"
	PropProtected = "protected"
)

// ModeMask covers the 3-bit function select field of a bufcfg register.
const ModeMask = 0x07

// Record is one per-pin configuration node as decoded from YAML, JSON or
// a bus payload.
type Record map[string]any

// PinConfigEntry is a validated pin configuration.
type PinConfigEntry struct {
	Pin       int
	Mode      uint32
	Protected bool
}

// ParseEntry extracts and validates a PinConfigEntry. pad-offset and
// mode-func are mandatory; protected defaults to false. On error the
// returned entry keeps what was parsed so far; Pin is -1 when pad-offset
// itself was unusable.
func ParseEntry(rec Record) (PinConfigEntry, error) {
	e := PinConfigEntry{Pin: -1}

	pad, err := intProp(rec, PropPadOffset)
	if err != nil {
		return e, err
	}
	if pad < math.MinInt32 || pad > math.MaxInt32 {
		return e, errcode.Wrap(errcode.InvalidConfig, "parse", PropPadOffset+" out of range", nil)
	}
	e.Pin = int(pad)

	mode, err := intProp(rec, PropModeFunc)
	if err != nil {
		return e, err
	}
	if mode&^ModeMask != 0 {
		return e, errcode.Wrap(errcode.UnsupportedMode, "parse",
			"mode "+strconv.FormatInt(mode, 10)+" not in 0..7", nil)
	}
	e.Mode = uint32(mode)

	if e.Protected, err = boolProp(rec, PropProtected); err != nil {
		return e, err
	}
	return e, nil
}

func intProp(rec Record, key string) (int64, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, errcode.Wrap(errcode.InvalidConfig, "parse", "missing "+key, nil)
	}
	n, ok := asInt(v)
	if !ok {
		return 0, errcode.Wrap(errcode.InvalidConfig, "parse", key+" is not an integer", nil)
	}
	return n, nil
}

// boolProp treats a present key without a value as true, like an empty
// device-tree boolean property.
func boolProp(rec Record, key string) (bool, error) {
	v, ok := rec[key]
	if !ok {
		return false, nil
	}
	switch b := v.(type) {
	case nil:
		return true, nil
	case bool:
		return b, nil
	}
	return false, errcode.Wrap(errcode.InvalidConfig, "parse", key+" is not a boolean", nil)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case string:
		return parseIntString(strings.TrimSpace(n))
	}
	return 0, false
}

// parseIntString reads decimal, or hex with a 0x prefix. A leading zero is
// decimal ("037" is 37), not octal.
func parseIntString(s string) (int64, bool) {
	digits := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		i, err := strconv.ParseInt(s, 0, 64)
		return i, err == nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	return i, err == nil
}
