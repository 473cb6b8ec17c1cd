package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeUnit is the resolution simulation time is measured in.
// Its value is the number of picoseconds per tick.
type TimeUnit uint64

const (
	Picosecond  TimeUnit = 1
	Nanosecond  TimeUnit = 1_000
	Microsecond TimeUnit = 1_000_000
	Millisecond TimeUnit = 1_000_000_000
	Second      TimeUnit = 1_000_000_000_000
)

var unitSuffixes = []struct {
	suffix string
	unit   TimeUnit
}{
	{"ps", Picosecond},
	{"ns", Nanosecond},
	{"us", Microsecond},
	{"ms", Millisecond},
	{"s", Second},
}

func (u TimeUnit) String() string {
	for _, s := range unitSuffixes {
		if s.unit == u {
			return s.suffix
		}
	}
	return fmt.Sprintf("%dps", uint64(u))
}

// ParseTimeUnit parses a unit suffix such as "ns".
func ParseTimeUnit(s string) (TimeUnit, error) {
	for _, u := range unitSuffixes {
		if u.suffix == s {
			return u.unit, nil
		}
	}
	return 0, fmt.Errorf("unknown time unit %q (want ps, ns, us, ms or s)", s)
}

// ParseTime converts a duration literal like "5ns" into ticks of unit.
// A bare integer is already in ticks. Durations that are not a whole
// number of ticks are rejected.
func ParseTime(s string, unit TimeUnit) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time literal")
	}
	digits := s
	from := unit
	for _, u := range unitSuffixes {
		if strings.HasSuffix(s, u.suffix) {
			// "s" would also match "ns"; only accept when the rest is numeric.
			candidate := strings.TrimSuffix(s, u.suffix)
			if _, err := strconv.ParseUint(candidate, 10, 64); err == nil {
				digits, from = candidate, u.unit
				break
			}
		}
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time literal %q", s)
	}
	ps := n * uint64(from)
	if from != 0 && ps/uint64(from) != n {
		return 0, fmt.Errorf("time literal %q overflows", s)
	}
	if ps%uint64(unit) != 0 {
		return 0, fmt.Errorf("time literal %q is not a whole number of %s", s, unit)
	}
	return ps / uint64(unit), nil
}
