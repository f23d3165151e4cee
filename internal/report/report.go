package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/mcalgaro/meteogramma/internal/climatology"
	"github.com/mcalgaro/meteogramma/internal/ensemble"
	"github.com/mcalgaro/meteogramma/internal/models"
)

// BaselineSeriesName labels the 50-year climatological reference on charts.
const BaselineSeriesName = "MEDIA 50 ANNI"

// Builder assembles one CombinedBundle per report page: the baseline series
// for temperature plus one ensemble-mean series per variable with data.
type Builder struct {
	loc      *time.Location
	baseline *climatology.BaselineCache
}

func NewBuilder(loc *time.Location, baseline *climatology.BaselineCache) *Builder {
	return &Builder{loc: loc, baseline: baseline}
}

// Build produces the bundle for a table (full horizon or a daily sub-table).
// Series order matches the source pages: baseline first, then variables in
// their canonical order. Variables with no qualifying source are absent.
func (b *Builder) Build(table *models.ForecastTable) *ensemble.CombinedBundle {
	bundle := ensemble.NewBundle(table.Times)
	bundle.Add(BaselineSeriesName, b.baseline.GetOrCompute(table.Times))

	for _, v := range models.Variables {
		frame, ok := table.Frame(v.ID)
		if !ok {
			continue
		}
		series, ok := ensemble.Combine(frame, table.Times)
		if !ok {
			continue
		}
		bundle.Add(v.Label, series)
	}
	return bundle
}

// Service holds the most recent forecast table and serves page bundles from
// it. The scheduler swaps tables in; HTTP handlers read concurrently.
type Service struct {
	mu      sync.RWMutex
	loc     *time.Location
	builder *Builder
	table   *models.ForecastTable
}

func NewService(loc *time.Location, builder *Builder) *Service {
	return &Service{loc: loc, builder: builder}
}

// SetTable installs a freshly ingested table, trimmed so the axis starts at
// the current hour of the first forecast day.
func (s *Service) SetTable(table *models.ForecastTable, now time.Time) {
	if len(table.Times) > 0 {
		first := table.Times[0].In(s.loc)
		cutoff := time.Date(first.Year(), first.Month(), first.Day(), now.In(s.loc).Hour(), 0, 0, 0, s.loc)
		table.TrimBefore(cutoff)
	}
	s.mu.Lock()
	s.table = table
	s.mu.Unlock()
}

// Ready reports whether a table has been ingested.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table != nil
}

// FetchedAt returns the ingestion time of the current table.
func (s *Service) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return time.Time{}
	}
	return s.table.FetchedAt
}

// Days lists the calendar days covered by the current table.
func (s *Service) Days() []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil
	}
	return s.table.Days(s.loc)
}

// Overview builds the full-horizon bundle.
func (s *Service) Overview() (*ensemble.CombinedBundle, error) {
	bundle, _, err := s.OverviewView()
	return bundle, err
}

// OverviewView builds the full-horizon bundle and returns the table it was
// built from. Bundle and table come from one snapshot: a concurrent table
// swap cannot hand the caller mismatched halves.
func (s *Service) OverviewView() (*ensemble.CombinedBundle, *models.ForecastTable, error) {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()
	if table == nil {
		return nil, nil, fmt.Errorf("no forecast ingested yet")
	}
	return s.builder.Build(table), table, nil
}

// DayBundle builds the bundle for one calendar day (local midnight in loc).
func (s *Service) DayBundle(day time.Time) (*ensemble.CombinedBundle, error) {
	bundle, _, err := s.DayView(day)
	return bundle, err
}

// DayView builds one day's bundle and returns the matching sub-table, both
// cut from one snapshot.
func (s *Service) DayView(day time.Time) (*ensemble.CombinedBundle, *models.ForecastTable, error) {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()
	if table == nil {
		return nil, nil, fmt.Errorf("no forecast ingested yet")
	}
	sub, ok := table.Day(day, s.loc)
	if !ok {
		return nil, nil, fmt.Errorf("day %s not in forecast horizon", day.Format("2006-01-02"))
	}
	return s.builder.Build(sub), sub, nil
}

// Table returns the current table for read-only inspection.
func (s *Service) Table() *models.ForecastTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Location returns the civil zone pages are rendered in.
func (s *Service) Location() *time.Location { return s.loc }
