package ensemble

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/mcalgaro/meteogramma/internal/models"
)

func valid(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func axis(n int) []time.Time {
	out := make([]time.Time, n)
	base := time.Date(2026, time.August, 23, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func TestCombine(t *testing.T) {
	times := axis(3)
	frame := models.VariableFrame{
		Variable: "temperature_2m",
		Columns: []models.ModelColumn{
			{Source: "gfs_global", Values: []sql.NullFloat64{valid(10), valid(12), valid(14)}},
			{Source: "ecmwf_ifs", Values: []sql.NullFloat64{valid(12), {}, valid(16)}},
			{Source: "icon_global", Values: []sql.NullFloat64{valid(14), valid(13), {}}},
		},
	}

	series, ok := Combine(frame, times)
	if !ok {
		t.Fatal("Combine returned no series")
	}
	if len(series) != 3 {
		t.Fatalf("series len = %d, want 3", len(series))
	}

	want := []float64{12, 12.5, 15} // per-hour means with per-hour gaps omitted
	for i, w := range want {
		if !series[i].Valid {
			t.Fatalf("series[%d] invalid, want %v", i, w)
		}
		if math.Abs(series[i].Float64-w) > 1e-9 {
			t.Errorf("series[%d] = %v, want %v", i, series[i].Float64, w)
		}
	}
}

func TestCombine_AllMissingSourcesExcluded(t *testing.T) {
	times := axis(2)
	frame := models.VariableFrame{
		Variable: "snowfall",
		Columns: []models.ModelColumn{
			{Source: "gfs_global", Values: []sql.NullFloat64{{}, {}}},
			{Source: "ecmwf_ifs", Values: []sql.NullFloat64{{}, {}}},
		},
	}

	if series, ok := Combine(frame, times); ok {
		t.Errorf("Combine = %v, want no series when every source is empty", series)
	}
}

func TestCombine_PartialSourceStillQualifies(t *testing.T) {
	times := axis(3)
	// One valid value anywhere in range qualifies the whole column; the gap
	// hours just drop out of those reductions.
	frame := models.VariableFrame{
		Variable: "cape",
		Columns: []models.ModelColumn{
			{Source: "gfs_global", Values: []sql.NullFloat64{{}, {}, valid(300)}},
		},
	}

	series, ok := Combine(frame, times)
	if !ok {
		t.Fatal("partially-populated source should qualify")
	}
	if series[0].Valid || series[1].Valid {
		t.Errorf("gap hours = %+v %+v, want invalid", series[0], series[1])
	}
	if !series[2].Valid || series[2].Float64 != 300 {
		t.Errorf("series[2] = %+v, want 300", series[2])
	}
}

func TestCombine_OutlierModelRejectedPerHour(t *testing.T) {
	times := axis(1)
	cols := make([]models.ModelColumn, 0, 6)
	for i, v := range []float64{1, 2, 3, 4, 5, 100} {
		cols = append(cols, models.ModelColumn{
			Source: models.Sources[i].ID,
			Values: []sql.NullFloat64{valid(v)},
		})
	}
	frame := models.VariableFrame{Variable: "precipitation", Columns: cols}

	series, ok := Combine(frame, times)
	if !ok {
		t.Fatal("Combine returned no series")
	}
	if math.Abs(series[0].Float64-3.0) > 1e-9 {
		t.Errorf("series[0] = %v, want 3.0 with the 100 outlier fenced out", series[0].Float64)
	}
}

func TestBundle_OrderAndGet(t *testing.T) {
	b := NewBundle(axis(2))
	b.Add("MEDIA 50 ANNI", []sql.NullFloat64{valid(20), valid(21)})
	b.Add("Temperatura", []sql.NullFloat64{valid(24), valid(25)})
	b.Add("Temperatura", []sql.NullFloat64{valid(26), valid(27)}) // overwrite keeps order

	if len(b.Order) != 2 || b.Order[0] != "MEDIA 50 ANNI" || b.Order[1] != "Temperatura" {
		t.Errorf("Order = %v", b.Order)
	}
	s, ok := b.Get("Temperatura")
	if !ok || s[0].Float64 != 26 {
		t.Errorf("Get(Temperatura) = %v %v", s, ok)
	}
	if _, ok := b.Get("Neve"); ok {
		t.Error("absent series must be absent, not empty")
	}
}
