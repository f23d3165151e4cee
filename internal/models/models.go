package models

import (
	"database/sql"
	"time"
)

// Source identifies one numerical weather model feeding the ensemble.
type Source struct {
	ID   string // column suffix in the forecast document, e.g. "gfs_global"
	Name string // display name, e.g. "GFS"
}

// Sources lists every model we request from the forecast API. A source may be
// entirely absent from a response (no column at all for a variable) or carry
// partial data; both cases are handled downstream.
var Sources = []Source{
	{ID: "gfs_global", Name: "GFS"},
	{ID: "ecmwf_ifs", Name: "ECMWF"},
	{ID: "ecmwf_ifs025", Name: "ECMWF_025"},
	{ID: "icon_global", Name: "ICON"},
	{ID: "icon_d2", Name: "ICON_D2"},
	{ID: "meteofrance_arpege_europe", Name: "ARPEGE"},
	{ID: "knmi_harmonie_arome_europe", Name: "KNMI"},
	{ID: "dmi_harmonie_arome_europe", Name: "DMI"},
	{ID: "italia_meteo_arpae_icon_2i", Name: "ARPAE"},
	{ID: "bom_access_global", Name: "BOM"},
	{ID: "cma_grapes_global", Name: "CMA"},
}

// Variable is one hourly forecast quantity.
type Variable struct {
	ID    string // API field name, e.g. "temperature_2m"
	Label string // series label on the combined chart
	Title string // chart title with units
}

var Variables = []Variable{
	{ID: "temperature_2m", Label: "Temperatura", Title: "Temperatura [°C]"},
	{ID: "precipitation", Label: "Precipitazioni", Title: "Precipitazioni [mm/h]"},
	{ID: "precipitation_probability", Label: "Prob. Prec.", Title: "Probabilità di Precipitazioni [%]"},
	{ID: "cape", Label: "CAPE", Title: "Indice CAPE [J/kg]"},
	{ID: "wind_speed_10m", Label: "Vento", Title: "Velocità del Vento [km/h]"},
	{ID: "wind_gusts_10m", Label: "Raffiche", Title: "Raffiche di Vento [km/h]"},
	{ID: "surface_pressure", Label: "Pressione", Title: "Pressione [hPa]"},
	{ID: "cloud_cover", Label: "Copertura Nuvolosa", Title: "Copertura Nuvolosa [%]"},
	{ID: "relative_humidity_2m", Label: "Umidità Relativa", Title: "Umidità Relativa [%]"},
	{ID: "dew_point_2m", Label: "Punto di Rugiada", Title: "Punto di Rugiada [°C]"},
	{ID: "apparent_temperature", Label: "Temp. Percepita", Title: "Temperatura Percepita [°C]"},
	{ID: "rain", Label: "Pioggia", Title: "Pioggia [mm/h]"},
	{ID: "showers", Label: "Rovesci", Title: "Rovesci [mm/h]"},
	{ID: "snowfall", Label: "Neve", Title: "Neve [cm/h]"},
}

// TemperatureVariable is the reference variable for the climatological baseline.
const TemperatureVariable = "temperature_2m"

// SourceName returns the display name for a source ID, or the ID itself when unknown.
func SourceName(id string) string {
	for _, s := range Sources {
		if s.ID == id {
			return s.Name
		}
	}
	return id
}

// VariableLabel returns the chart label for a variable ID, or the ID itself when unknown.
func VariableLabel(id string) string {
	for _, v := range Variables {
		if v.ID == id {
			return v.Label
		}
	}
	return id
}

// Sample is one (timestamp, value) pair. An invalid value means the model or
// the historical record had no data for that hour.
type Sample struct {
	Time  time.Time
	Value sql.NullFloat64
}

// ModelColumn holds one (variable, source) series aligned to the owning
// table's timestamp axis.
type ModelColumn struct {
	Variable string
	Source   string
	Values   []sql.NullFloat64
}

// HasData reports whether the column carries at least one valid value.
func (c ModelColumn) HasData() bool {
	for _, v := range c.Values {
		if v.Valid {
			return true
		}
	}
	return false
}

// VariableFrame collects the model columns available for one variable.
// Sources missing the variable entirely simply have no column here.
type VariableFrame struct {
	Variable string
	Columns  []ModelColumn
}

// ForecastTable is the decoded forecast document: a shared hourly timestamp
// axis plus one frame per variable. All columns are aligned to Times.
type ForecastTable struct {
	Times     []time.Time
	Frames    []VariableFrame
	FetchedAt time.Time
}

// Frame returns the frame for a variable ID.
func (t *ForecastTable) Frame(variable string) (VariableFrame, bool) {
	for _, f := range t.Frames {
		if f.Variable == variable {
			return f, true
		}
	}
	return VariableFrame{}, false
}

// TrimBefore drops all rows strictly before cutoff, keeping columns aligned.
func (t *ForecastTable) TrimBefore(cutoff time.Time) {
	start := 0
	for start < len(t.Times) && t.Times[start].Before(cutoff) {
		start++
	}
	if start == 0 {
		return
	}
	t.Times = t.Times[start:]
	for i := range t.Frames {
		for j := range t.Frames[i].Columns {
			col := &t.Frames[i].Columns[j]
			if start <= len(col.Values) {
				col.Values = col.Values[start:]
			} else {
				col.Values = nil
			}
		}
	}
}

// Days returns the distinct calendar days covered by the axis, as local
// midnights in loc, in axis order.
func (t *ForecastTable) Days(loc *time.Location) []time.Time {
	var days []time.Time
	seen := make(map[time.Time]bool)
	for _, ts := range t.Times {
		local := ts.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days
}

// Day returns a sub-table restricted to one calendar day in loc. The second
// return is false when the day is not on the axis.
func (t *ForecastTable) Day(day time.Time, loc *time.Location) (*ForecastTable, bool) {
	start, end := -1, -1
	next := day.AddDate(0, 0, 1)
	for i, ts := range t.Times {
		local := ts.In(loc)
		if !local.Before(day) && local.Before(next) {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	if start < 0 {
		return nil, false
	}
	sub := &ForecastTable{
		Times:     t.Times[start:end],
		FetchedAt: t.FetchedAt,
	}
	for _, f := range t.Frames {
		sf := VariableFrame{Variable: f.Variable}
		for _, col := range f.Columns {
			sf.Columns = append(sf.Columns, ModelColumn{
				Variable: col.Variable,
				Source:   col.Source,
				Values:   col.Values[start:end],
			})
		}
		sub.Frames = append(sub.Frames, sf)
	}
	return sub, true
}

// HistoricalRecord is the multi-decade hourly temperature record used to
// build the climatology index.
type HistoricalRecord struct {
	Times  []time.Time
	Values []sql.NullFloat64
}

// Len returns the number of samples in the record.
func (r HistoricalRecord) Len() int { return len(r.Times) }
