package api

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mcalgaro/meteogramma/internal/ensemble"
	"github.com/mcalgaro/meteogramma/internal/models"
	"github.com/mcalgaro/meteogramma/internal/report"
)

// italianWeekdays indexes time.Weekday (Sunday = 0).
var italianWeekdays = []string{
	"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato",
}

// DayName formats a date the way the page titles want it: "sabato 23-08".
func DayName(t time.Time) string {
	return fmt.Sprintf("%s %s", italianWeekdays[int(t.Weekday())], t.Format("02-01"))
}

// ChartTrace is one plotly line.
type ChartTrace struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
	Dash   string     `json:"dash,omitempty"`
	Width  float64    `json:"width,omitempty"`
	Color  string     `json:"color,omitempty"`
}

// Chart is the JSON handed to the page script for one figure.
type Chart struct {
	Title  string       `json:"title"`
	Times  []string     `json:"times"`
	Traces []ChartTrace `json:"traces"`
}

// DayLink is one entry in the per-day navigation bar.
type DayLink struct {
	Slug  string // 2026-08-23
	Label string // sabato 23-08
}

// PageData drives the report page template, shared by overview and day pages.
type PageData struct {
	Title     string
	Heading   string
	Days      []DayLink
	Combined  Chart
	Details   []Chart
	Narrative string
	FetchedAt string
}

func nullsToPtrs(series []sql.NullFloat64) []*float64 {
	out := make([]*float64, len(series))
	for i, v := range series {
		if v.Valid {
			f := v.Float64
			out[i] = &f
		}
	}
	return out
}

func timeLabels(times []time.Time, loc *time.Location) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.In(loc).Format("2006-01-02T15:04")
	}
	return out
}

// combinedChart builds the all-series overview figure from a bundle:
// baseline dashed, temperature emphasized, everything else toggleable
// client-side.
func combinedChart(bundle *ensemble.CombinedBundle, loc *time.Location) Chart {
	chart := Chart{
		Title: "Previsioni Medie",
		Times: timeLabels(bundle.Times, loc),
	}
	for _, name := range bundle.Order {
		trace := ChartTrace{
			Name:   name,
			Values: nullsToPtrs(bundle.Series[name]),
			Width:  1.5,
		}
		if name == report.BaselineSeriesName {
			trace.Dash = "longdash"
			trace.Color = "red"
		}
		chart.Traces = append(chart.Traces, trace)
	}
	return chart
}

// detailCharts builds one figure per variable: every qualifying model's own
// line plus the thick ensemble mean, and the baseline on the temperature
// figure. Variables with no data produce no figure.
func detailCharts(table *models.ForecastTable, bundle *ensemble.CombinedBundle, loc *time.Location) []Chart {
	var charts []Chart
	labels := timeLabels(table.Times, loc)

	for _, v := range models.Variables {
		mean, ok := bundle.Get(v.Label)
		if !ok {
			continue
		}
		chart := Chart{Title: v.Title, Times: labels}

		if v.ID == models.TemperatureVariable {
			if baseline, ok := bundle.Get(report.BaselineSeriesName); ok {
				chart.Traces = append(chart.Traces, ChartTrace{
					Name:   report.BaselineSeriesName,
					Values: nullsToPtrs(baseline),
					Dash:   "longdash",
					Width:  1.5,
					Color:  "red",
				})
			}
		}

		frame, _ := table.Frame(v.ID)
		for _, col := range frame.Columns {
			if !col.HasData() {
				continue
			}
			chart.Traces = append(chart.Traces, ChartTrace{
				Name:   models.SourceName(col.Source),
				Values: nullsToPtrs(col.Values),
				Width:  1.5,
			})
		}

		chart.Traces = append(chart.Traces, ChartTrace{
			Name:   v.Label,
			Values: nullsToPtrs(mean),
			Width:  3,
			Color:  "blue",
		})
		charts = append(charts, chart)
	}
	return charts
}
