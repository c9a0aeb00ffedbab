package wire

import (
	"strconv"
	"time"
)

// Duration is the wire encoding of an elapsed time: a (seconds, nanos) pair.
//
// This resolves spec.md §9's open question between an f64-seconds encoding
// and a {seconds: u32, nano_seconds: u32} pair in favor of the latter: it
// matches the (seconds, milliseconds, microseconds-remainder) decomposition
// spec.md requires for times.csv/runs.csv exactly, with no floating-point
// rounding at the protocol boundary.
type Duration struct {
	Seconds uint32
	Nanos   uint32
}

// DurationFromStd converts a time.Duration to its wire representation. Negative
// durations are clamped to zero — spans never run backwards.
func DurationFromStd(d time.Duration) Duration {
	if d < 0 {
		d = 0
	}
	return Duration{
		Seconds: uint32(d / time.Second),
		Nanos:   uint32(d % time.Second),
	}
}

// Std converts the wire representation back to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Seconds)*time.Second + time.Duration(d.Nanos)
}

// Decompose splits a time.Duration into (seconds, milliseconds-remainder,
// microseconds-remainder) for the three-column CSV encoding spec.md §6/§7
// requires in times.csv and runs.csv.
func Decompose(d time.Duration) (seconds, millis, micros int64) {
	if d < 0 {
		d = 0
	}
	total := d.Microseconds()
	seconds = total / 1_000_000
	rem := total % 1_000_000
	millis = rem / 1_000
	micros = rem % 1_000
	return seconds, millis, micros
}

// Human renders a duration using the largest non-zero unit, per spec.md
// §4.7's throttled data-update line: "<s>s", "<ms>ms", or "<µs>µs".
func Human(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= time.Second:
		return formatUnit(d.Seconds(), "s")
	case d >= time.Millisecond:
		return formatUnit(float64(d.Microseconds())/1000.0, "ms")
	default:
		return formatUnit(float64(d.Microseconds()), "µs")
	}
}

func formatUnit(v float64, unit string) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10) + unit
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + unit
}
