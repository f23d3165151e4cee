package stats

import (
	"database/sql"
	"sort"
)

// RobustMean computes an outlier-resistant mean over a set of optional values.
// Invalid entries are dropped; if nothing remains the result is invalid.
// Values outside the fence [Q1-1.5*IQR, Q3+1.5*IQR] are rejected and
// the rest averaged. If the fence rejects everything (extreme skew), the
// median of the unfiltered set is returned instead.
//
// The same primitive merges same-hour model forecasts and same-calendar-hour
// historical samples.
func RobustMean(values []sql.NullFloat64) sql.NullFloat64 {
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Valid {
			vals = append(vals, v.Float64)
		}
	}
	if len(vals) == 0 {
		return sql.NullFloat64{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := Percentile(sorted, 25)
	q3 := Percentile(sorted, 75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	var sum float64
	var kept int
	for _, v := range vals {
		if v >= lower && v <= upper {
			sum += v
			kept++
		}
	}
	if kept == 0 {
		return sql.NullFloat64{Float64: median(sorted), Valid: true}
	}
	return sql.NullFloat64{Float64: sum / float64(kept), Valid: true}
}

// Percentile returns the p-th percentile of sorted (ascending) using linear
// interpolation between closest ranks: rank = p/100 * (n-1).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(rank)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// median of a sorted slice.
func median(sorted []float64) float64 {
	return Percentile(sorted, 50)
}
