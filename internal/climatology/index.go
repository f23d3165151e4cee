package climatology

import (
	"time"

	"github.com/mcalgaro/meteogramma/internal/models"
)

// CalendarKey addresses a single hour of the year: month, day and hour with
// the year stripped. Bucketing the historical record by CalendarKey turns
// "this hour, any year" into a map lookup instead of a 51-year scan.
type CalendarKey struct {
	Month time.Month
	Day   int
	Hour  int
}

// KeyFor derives the calendar key of a timestamp in the civil zone. Both the
// forecast and historical sides must use the same zone or keys will not align.
func KeyFor(t time.Time, loc *time.Location) CalendarKey {
	local := t.In(loc)
	return CalendarKey{Month: local.Month(), Day: local.Day(), Hour: local.Hour()}
}

// Index maps calendar keys to the historical values observed at that hour of
// the year across all recorded years. Built once per run, never mutated after.
type Index struct {
	loc     *time.Location
	buckets map[CalendarKey][]float64
}

// BuildIndex buckets the historical record in a single pass. Invalid samples
// are skipped. Feb 29 keys legitimately end up with roughly a quarter of the
// samples other keys have.
func BuildIndex(rec models.HistoricalRecord, loc *time.Location) *Index {
	ix := &Index{
		loc:     loc,
		buckets: make(map[CalendarKey][]float64, 366*24),
	}
	for i, ts := range rec.Times {
		if i >= len(rec.Values) || !rec.Values[i].Valid {
			continue
		}
		key := KeyFor(ts, loc)
		ix.buckets[key] = append(ix.buckets[key], rec.Values[i].Float64)
	}
	return ix
}

// Lookup returns the historical values for a calendar key, in record order.
// An unobserved key yields an empty bucket.
func (ix *Index) Lookup(key CalendarKey) []float64 {
	return ix.buckets[key]
}

// Location returns the civil zone the index was built in.
func (ix *Index) Location() *time.Location { return ix.loc }

// Keys returns the number of distinct calendar keys observed.
func (ix *Index) Keys() int { return len(ix.buckets) }
