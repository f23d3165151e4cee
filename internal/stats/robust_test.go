package stats

import (
	"database/sql"
	"math"
	"math/rand"
	"testing"
)

func valid(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func validAll(fs ...float64) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(fs))
	for i, f := range fs {
		out[i] = valid(f)
	}
	return out
}

func TestRobustMean(t *testing.T) {
	tests := []struct {
		name   string
		values []sql.NullFloat64
		want   float64
		wantOK bool
	}{
		{
			name:   "empty input",
			values: nil,
			wantOK: false,
		},
		{
			name:   "all invalid",
			values: []sql.NullFloat64{{}, {}, {}},
			wantOK: false,
		},
		{
			name:   "single value is returned as-is",
			values: validAll(21.5),
			want:   21.5,
			wantOK: true,
		},
		{
			name:   "single valid among invalid",
			values: []sql.NullFloat64{{}, valid(-3.2), {}},
			want:   -3.2,
			wantOK: true,
		},
		{
			name:   "outlier rejected by fence",
			values: validAll(1, 2, 3, 4, 5, 100),
			want:   3.0,
			wantOK: true,
		},
		{
			name:   "no outliers means plain mean",
			values: validAll(10, 12, 14, 16),
			want:   13.0,
			wantOK: true,
		},
		{
			name:   "ten-year bucket with one outlier",
			values: validAll(10, 11, 9, 50, 12, 13, 9, 11, 10, 12),
			want:   97.0 / 9.0,
			wantOK: true,
		},
		{
			name:   "two identical values",
			values: validAll(7, 7),
			want:   7,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RobustMean(tt.values)
			if got.Valid != tt.wantOK {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.wantOK)
			}
			if got.Valid && math.Abs(got.Float64-tt.want) > 1e-9 {
				t.Errorf("RobustMean = %v, want %v", got.Float64, tt.want)
			}
		})
	}
}

func TestRobustMean_WithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 100; trial++ {
		n := 1 + rng.Intn(20)
		vals := make([]sql.NullFloat64, n)
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range vals {
			f := rng.NormFloat64() * 30
			vals[i] = valid(f)
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
		}
		got := RobustMean(vals)
		if !got.Valid {
			t.Fatalf("trial %d: unexpectedly invalid", trial)
		}
		if got.Float64 < lo || got.Float64 > hi {
			t.Errorf("trial %d: result %v outside [%v, %v]", trial, got.Float64, lo, hi)
		}
	}
}

func TestRobustMean_PermutationInvariant(t *testing.T) {
	base := validAll(3, 1, 4, 1, 5, 9, 2, 6, 5, 35)
	want := RobustMean(base)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]sql.NullFloat64, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got := RobustMean(shuffled)
		if got.Valid != want.Valid || math.Abs(got.Float64-want.Float64) > 1e-9 {
			t.Fatalf("trial %d: RobustMean = %+v, want %+v", trial, got, want)
		}
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 100}
	if got := Percentile(sorted, 25); math.Abs(got-2.25) > 1e-9 {
		t.Errorf("Q1 = %v, want 2.25", got)
	}
	// rank = 0.75*(6-1) = 3.75, so Q3 interpolates between 4 and 5.
	if got := Percentile(sorted, 75); math.Abs(got-4.75) > 1e-9 {
		t.Errorf("Q3 = %v, want 4.75", got)
	}
	if got := Percentile([]float64{8}, 50); got != 8 {
		t.Errorf("single-element percentile = %v, want 8", got)
	}
	if got := Percentile([]float64{1, 3}, 50); math.Abs(got-2) > 1e-9 {
		t.Errorf("interpolated median = %v, want 2", got)
	}
}
