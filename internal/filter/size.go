package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// sizeUnits maps an upper-cased suffix to its multiplier. All units are
// binary, so "1M", "1MB" and "1MiB" are the same size.
var sizeUnits = map[string]float64{
	"":  1,
	"B": 1,
	"K": 1 << 10, "KB": 1 << 10, "KIB": 1 << 10,
	"M": 1 << 20, "MB": 1 << 20, "MIB": 1 << 20,
	"G": 1 << 30, "GB": 1 << 30, "GIB": 1 << 30,
	"T": 1 << 40, "TB": 1 << 40, "TIB": 1 << 40,
}

// ParseSize parses sizes such as "512", "64K", "1.5MiB" or "2 GB" into
// bytes. Fractions are truncated to whole bytes.
func ParseSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	split := strings.IndexFunc(trimmed, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	num, unit := trimmed, ""
	if split >= 0 {
		num, unit = trimmed[:split], strings.TrimSpace(trimmed[split:])
	}

	mult, ok := sizeUnits[strings.ToUpper(unit)]
	if num == "" || !ok {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	bytes := f * mult
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(bytes), nil
}
