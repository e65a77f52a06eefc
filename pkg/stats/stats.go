// Package stats computes the percentile summaries reported at the end of a
// benchmark run. Unset measurements are excluded before any computation; a
// series with no valid samples yields an all-zero summary.
package stats

import (
	"sort"

	"github.com/betocq/betocq/pkg/nc/model"
	"github.com/betocq/betocq/pkg/nc/spec"
)

// Direction selects the sort order applied to a series before percentile
// indexing. Latencies sort ascending ("low is good"); throughputs sort
// descending so the same fractional index yields the analogous rank from the
// high end.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Summarize computes the count, min, percentile and max of values. The
// percentile is obtained by sorting in the given direction and indexing at
// int(len*fraction). Min and Max are always the smallest and largest values
// regardless of direction.
func Summarize(values []float64, dir Direction, fraction float64) model.ResultStats {
	if len(values) == 0 {
		return model.ResultStats{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * fraction)
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	if dir == Descending {
		idx = len(sorted) - 1 - idx
	}
	return model.ResultStats{
		SuccessCount: len(sorted),
		Min:          sorted[0],
		Median:       sorted[idx],
		Max:          sorted[len(sorted)-1],
	}
}

// Latency summarizes a latency series in seconds, rounded to the configured
// precision. Unset entries are excluded.
func Latency(series []model.NullDuration) model.ResultStats {
	var values []float64
	for _, d := range series {
		if d.Valid {
			values = append(values, d.Seconds())
		}
	}
	s := Summarize(values, Ascending, spec.Percentile50Factor)
	s.Min = round(s.Min)
	s.Median = round(s.Median)
	s.Max = round(s.Max)
	return s
}

// Transfer summarizes a throughput series, converting KBps to MBps rounded
// to one decimal digit. Unset entries are excluded.
func Transfer(series []model.NullKBps) model.ResultStats {
	var values []float64
	for _, t := range series {
		if t.Valid {
			values = append(values, float64(t.KBps))
		}
	}
	s := Summarize(values, Descending, spec.Percentile50Factor)
	s.Min = kbpsToMBps(s.Min)
	s.Median = kbpsToMBps(s.Median)
	s.Max = kbpsToMBps(s.Max)
	return s
}

func kbpsToMBps(v float64) float64 {
	return round(v / 1024)
}

func round(v float64) float64 {
	scale := 1.0
	for i := 0; i < spec.LatencyPrecisionDigits; i++ {
		scale *= 10
	}
	return float64(int64(v*scale+0.5)) / scale
}
