package ensemble

import (
	"database/sql"
	"time"

	"github.com/mcalgaro/meteogramma/internal/metrics"
	"github.com/mcalgaro/meteogramma/internal/models"
	"github.com/mcalgaro/meteogramma/internal/stats"
)

// Combine reduces a variable's model columns into one robust-mean series
// aligned to times. Source inclusion is decided once over the whole range: a
// column qualifies if it has at least one valid value anywhere in range.
// Per-hour invalid values from a qualifying column are omitted from that
// hour's reduction, never treated as zero.
//
// The second return is false when no source qualifies; callers must then emit
// no series at all for the variable, not an all-invalid one.
func Combine(frame models.VariableFrame, times []time.Time) ([]sql.NullFloat64, bool) {
	var qualifying []models.ModelColumn
	for _, col := range frame.Columns {
		if col.HasData() {
			qualifying = append(qualifying, col)
		}
	}
	if len(qualifying) == 0 {
		return nil, false
	}

	metrics.EnsembleReductions.WithLabelValues(frame.Variable).Inc()

	series := make([]sql.NullFloat64, len(times))
	row := make([]sql.NullFloat64, len(qualifying))
	for i := range times {
		for j, col := range qualifying {
			if i < len(col.Values) {
				row[j] = col.Values[i]
			} else {
				row[j] = sql.NullFloat64{}
			}
		}
		series[i] = stats.RobustMean(row)
	}
	return series, true
}

// CombinedBundle is the sole artifact handed to rendering: the timestamp axis
// plus an ordered set of named series. Invalid entries render as gaps.
type CombinedBundle struct {
	Times  []time.Time
	Order  []string
	Series map[string][]sql.NullFloat64
}

// NewBundle creates an empty bundle over the given axis.
func NewBundle(times []time.Time) *CombinedBundle {
	return &CombinedBundle{
		Times:  times,
		Series: make(map[string][]sql.NullFloat64),
	}
}

// Add appends a named series, preserving insertion order.
func (b *CombinedBundle) Add(name string, series []sql.NullFloat64) {
	if _, ok := b.Series[name]; !ok {
		b.Order = append(b.Order, name)
	}
	b.Series[name] = series
}

// Get returns a named series.
func (b *CombinedBundle) Get(name string) ([]sql.NullFloat64, bool) {
	s, ok := b.Series[name]
	return s, ok
}
