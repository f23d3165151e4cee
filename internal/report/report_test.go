package report

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mcalgaro/meteogramma/internal/climatology"
	"github.com/mcalgaro/meteogramma/internal/models"
)

func valid(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func testService(t *testing.T) (*Service, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}

	// One historical sample per calendar hour over three years, flat 18°C.
	var rec models.HistoricalRecord
	for year := 2000; year < 2003; year++ {
		for day := 23; day <= 24; day++ {
			for hour := 0; hour < 24; hour++ {
				rec.Times = append(rec.Times, time.Date(year, time.August, day, hour, 0, 0, 0, loc))
				rec.Values = append(rec.Values, valid(18))
			}
		}
	}
	ix := climatology.BuildIndex(rec, loc)
	builder := NewBuilder(loc, climatology.NewBaselineCache(ix))
	return NewService(loc, builder), loc
}

func twoDayTable(loc *time.Location) *models.ForecastTable {
	table := &models.ForecastTable{FetchedAt: time.Date(2026, time.August, 23, 6, 5, 0, 0, loc)}
	for i := 0; i < 48; i++ {
		table.Times = append(table.Times, time.Date(2026, time.August, 23, i, 0, 0, 0, loc))
	}
	temps := make([]sql.NullFloat64, 48)
	for i := range temps {
		temps[i] = valid(20 + float64(i%24)/4)
	}
	table.Frames = []models.VariableFrame{
		{
			Variable: "temperature_2m",
			Columns: []models.ModelColumn{
				{Variable: "temperature_2m", Source: "gfs_global", Values: temps},
			},
		},
		{
			Variable: "snowfall",
			Columns: []models.ModelColumn{
				{Variable: "snowfall", Source: "gfs_global", Values: make([]sql.NullFloat64, 48)},
			},
		},
	}
	return table
}

func TestService_OverviewBundle(t *testing.T) {
	svc, loc := testService(t)
	svc.SetTable(twoDayTable(loc), time.Date(2026, time.August, 23, 0, 0, 0, 0, loc))

	bundle, err := svc.Overview()
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	if len(bundle.Order) != 2 {
		t.Fatalf("Order = %v, want [baseline, Temperatura]", bundle.Order)
	}
	if bundle.Order[0] != BaselineSeriesName {
		t.Errorf("Order[0] = %q, want %q", bundle.Order[0], BaselineSeriesName)
	}
	if bundle.Order[1] != "Temperatura" {
		t.Errorf("Order[1] = %q, want Temperatura", bundle.Order[1])
	}

	// The all-missing snowfall frame must be absent, not invalid-filled.
	if _, ok := bundle.Get("Neve"); ok {
		t.Error("snowfall series present despite all sources empty")
	}

	baseline, _ := bundle.Get(BaselineSeriesName)
	if len(baseline) != len(bundle.Times) {
		t.Fatalf("baseline len = %d, want %d", len(baseline), len(bundle.Times))
	}
	for i, v := range baseline {
		if !v.Valid || v.Float64 != 18 {
			t.Fatalf("baseline[%d] = %+v, want 18", i, v)
		}
	}
}

func TestService_SetTableTrimsToCurrentHour(t *testing.T) {
	svc, loc := testService(t)
	now := time.Date(2026, time.August, 23, 9, 30, 0, 0, loc)
	svc.SetTable(twoDayTable(loc), now)

	table := svc.Table()
	if len(table.Times) != 48-9 {
		t.Fatalf("trimmed axis len = %d, want %d", len(table.Times), 48-9)
	}
	if got := table.Times[0].In(loc).Hour(); got != 9 {
		t.Errorf("first hour = %d, want 9", got)
	}
}

func TestService_DayBundle(t *testing.T) {
	svc, loc := testService(t)
	svc.SetTable(twoDayTable(loc), time.Date(2026, time.August, 23, 0, 0, 0, 0, loc))

	day := time.Date(2026, time.August, 24, 0, 0, 0, 0, loc)
	bundle, err := svc.DayBundle(day)
	if err != nil {
		t.Fatalf("DayBundle: %v", err)
	}
	if len(bundle.Times) != 24 {
		t.Errorf("day axis len = %d, want 24", len(bundle.Times))
	}
	for _, ts := range bundle.Times {
		if ts.In(loc).Day() != 24 {
			t.Errorf("timestamp %v outside requested day", ts)
		}
	}

	if _, err := svc.DayBundle(time.Date(2026, time.September, 10, 0, 0, 0, 0, loc)); err == nil {
		t.Error("expected error for day outside horizon")
	}
}

func TestService_DayViewSnapshot(t *testing.T) {
	svc, loc := testService(t)
	svc.SetTable(twoDayTable(loc), time.Date(2026, time.August, 23, 0, 0, 0, 0, loc))

	day := time.Date(2026, time.August, 23, 0, 0, 0, 0, loc)
	bundle, sub, err := svc.DayView(day)
	if err != nil {
		t.Fatalf("DayView: %v", err)
	}
	if len(sub.Times) != len(bundle.Times) {
		t.Fatalf("sub-table axis len = %d, bundle axis len = %d", len(sub.Times), len(bundle.Times))
	}
	for i, ts := range sub.Times {
		if !ts.Equal(bundle.Times[i]) {
			t.Fatalf("axis mismatch at %d: table %v, bundle %v", i, ts, bundle.Times[i])
		}
	}

	// The horizon advances: a new table no longer covering the 23rd is
	// swapped in. A request for that day must now fail cleanly instead of
	// handing back mismatched halves.
	next := twoDayTable(loc)
	for i := range next.Times {
		next.Times[i] = next.Times[i].AddDate(0, 0, 1)
	}
	svc.SetTable(next, time.Date(2026, time.August, 24, 0, 0, 0, 0, loc))

	if _, _, err := svc.DayView(day); err == nil {
		t.Error("expected error for day trimmed off the horizon")
	}
	if bundle, sub, err = svc.DayView(day.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("DayView after swap: %v", err)
	}
	if sub == nil || len(sub.Times) != len(bundle.Times) {
		t.Fatal("bundle and sub-table not from one snapshot after swap")
	}
}

func TestService_NotReady(t *testing.T) {
	svc, _ := testService(t)
	if svc.Ready() {
		t.Error("Ready before any table")
	}
	if _, err := svc.Overview(); err == nil {
		t.Error("Overview should fail before ingestion")
	}
}

func TestService_BaselineCacheSharedAcrossPages(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	var rec models.HistoricalRecord
	for year := 2000; year < 2002; year++ {
		for hour := 0; hour < 24; hour++ {
			rec.Times = append(rec.Times, time.Date(year, time.August, 23, hour, 0, 0, 0, loc))
			rec.Values = append(rec.Values, valid(18))
		}
	}
	cache := climatology.NewBaselineCache(climatology.BuildIndex(rec, loc))
	svc := NewService(loc, NewBuilder(loc, cache))
	svc.SetTable(twoDayTable(loc), time.Date(2026, time.August, 23, 0, 0, 0, 0, loc))

	// Overview, both day pages, then the overview again: 3 distinct
	// sequences, so exactly 3 cache entries regardless of repeat builds.
	if _, err := svc.Overview(); err != nil {
		t.Fatal(err)
	}
	for _, day := range svc.Days() {
		if _, err := svc.DayBundle(day); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Overview(); err != nil {
		t.Fatal(err)
	}

	if got := cache.Len(); got != 3 {
		t.Errorf("cache entries = %d, want 3 (overview + 2 day pages)", got)
	}
}
