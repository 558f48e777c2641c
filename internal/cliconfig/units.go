package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var errBadNumber = errors.New("invalid argument")

// ParseSize parses a byte count with an optional k/K (1024) or m/M
// (1024*1024) suffix.
func ParseSize(s string) (int, error) {
	return parseSuffixed(s, 1024, "[0-9]+[kKmM]")
}

// ParseRate parses a bytes-per-second rate with an optional k/K (1000) or
// m/M (1000000) suffix.
func ParseRate(s string) (int, error) {
	return parseSuffixed(s, 1000, "[0-9]+[kKmM]")
}

// ParseCount parses a non-negative integer.
func ParseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s, [0-9]+ expect", errBadNumber, s)
	}
	return n, nil
}

// ParseInterval parses seconds with an optional s/S, m/M or h/H suffix.
// Anything else is tried as a Go duration such as "1m30s" or "250ms".
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	digits, suffix := splitNumber(s)
	if digits != "" {
		n, err := strconv.ParseInt(digits, 10, 64)
		if err == nil {
			switch suffix {
			case "", "s", "S":
				return time.Duration(n) * time.Second, nil
			case "m", "M":
				return time.Duration(n) * time.Minute, nil
			case "h", "H":
				return time.Duration(n) * time.Hour, nil
			}
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s, [0-9]+[sSmMhH] expect", errBadNumber, s)
	}
	return d, nil
}

func parseSuffixed(s string, unit int, expect string) (int, error) {
	s = strings.TrimSpace(s)
	digits, suffix := splitNumber(s)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s, %s expect", errBadNumber, s, expect)
	}
	switch suffix {
	case "":
	case "k", "K":
		n *= unit
	case "m", "M":
		n *= unit * unit
	default:
		return 0, fmt.Errorf("%w: %s, %s expect", errBadNumber, s, expect)
	}
	return n, nil
}

func splitNumber(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// intValue is a pflag.Value backed by a parse function.
type intValue struct {
	dst   *int
	parse func(string) (int, error)
	typ   string
}

// NewSizeValue returns a flag value accepting ParseSize syntax.
func NewSizeValue(dst *int) pflag.Value {
	return &intValue{dst: dst, parse: ParseSize, typ: "size"}
}

// NewRateValue returns a flag value accepting ParseRate syntax.
func NewRateValue(dst *int) pflag.Value {
	return &intValue{dst: dst, parse: ParseRate, typ: "rate"}
}

func (v *intValue) String() string { return strconv.Itoa(*v.dst) }
func (v *intValue) Type() string   { return v.typ }

func (v *intValue) Set(s string) error {
	n, err := v.parse(s)
	if err != nil {
		return err
	}
	*v.dst = n
	return nil
}

// intervalValue is a pflag.Value accepting ParseInterval syntax.
type intervalValue struct {
	dst *time.Duration
}

// NewIntervalValue returns a flag value accepting ParseInterval syntax.
func NewIntervalValue(dst *time.Duration) pflag.Value {
	return &intervalValue{dst: dst}
}

func (v *intervalValue) String() string { return v.dst.String() }
func (v *intervalValue) Type() string   { return "interval" }

func (v *intervalValue) Set(s string) error {
	d, err := ParseInterval(s)
	if err != nil {
		return err
	}
	*v.dst = d
	return nil
}
