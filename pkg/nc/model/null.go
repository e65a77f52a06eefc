package model

import "time"

// NullDuration is a latency measurement that may not have been taken. The
// zero value is "unset", so a failed stage leaves no spurious zero-latency
// sample in the statistics.
type NullDuration struct {
	Duration time.Duration
	Valid    bool
}

// SetDuration returns a valid NullDuration holding d.
func SetDuration(d time.Duration) NullDuration {
	return NullDuration{Duration: d, Valid: true}
}

// Seconds returns the duration in seconds. It must only be called on valid
// values.
func (d NullDuration) Seconds() float64 {
	return d.Duration.Seconds()
}

// NullKBps is a throughput measurement in kilobytes per second that may not
// have been taken.
type NullKBps struct {
	KBps  int64
	Valid bool
}

// SetKBps returns a valid NullKBps holding v.
func SetKBps(v int64) NullKBps {
	return NullKBps{KBps: v, Valid: true}
}

// MBps converts the throughput to megabytes per second, rounded to one
// decimal digit.
func (t NullKBps) MBps() float64 {
	return roundTo(float64(t.KBps)/1024, 1)
}

func roundTo(v float64, digits int) float64 {
	scale := 1.0
	for i := 0; i < digits; i++ {
		scale *= 10
	}
	if v >= 0 {
		return float64(int64(v*scale+0.5)) / scale
	}
	return float64(int64(v*scale-0.5)) / scale
}
