package climatology

import (
	"database/sql"
	"time"

	"github.com/mcalgaro/meteogramma/internal/stats"
)

// ComputeBaseline resolves each forecast timestamp to its calendar bucket and
// reduces the bucket with the robust mean. The output is positionally aligned
// with times; an empty bucket yields an invalid entry.
func ComputeBaseline(times []time.Time, ix *Index) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(times))
	for i, ts := range times {
		bucket := ix.Lookup(KeyFor(ts, ix.loc))
		if len(bucket) == 0 {
			continue
		}
		vals := make([]sql.NullFloat64, len(bucket))
		for j, v := range bucket {
			vals[j] = sql.NullFloat64{Float64: v, Valid: true}
		}
		out[i] = stats.RobustMean(vals)
	}
	return out
}
