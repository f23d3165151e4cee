package ingest

import (
	"fmt"

	"github.com/mcalgaro/meteogramma/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagNegativePrecip     = "negative_precip"
	FlagNegativeCape       = "negative_cape"
	FlagCloudCoverInvalid  = "cloud_cover_invalid"
)

// physical plausibility bounds per variable; variables not listed are unchecked
var bounds = map[string]struct {
	min, max float64
	flag     string
}{
	"temperature_2m":            {-60, 60, FlagTempOutOfRange},
	"apparent_temperature":      {-70, 70, FlagTempOutOfRange},
	"dew_point_2m":              {-60, 60, FlagTempOutOfRange},
	"relative_humidity_2m":      {0, 100, FlagHumidityInvalid},
	"surface_pressure":          {850, 1100, FlagPressureOutOfRange},
	"precipitation":             {0, 500, FlagNegativePrecip},
	"rain":                      {0, 500, FlagNegativePrecip},
	"showers":                   {0, 500, FlagNegativePrecip},
	"snowfall":                  {0, 100, FlagNegativePrecip},
	"precipitation_probability": {0, 100, FlagCloudCoverInvalid},
	"cloud_cover":               {0, 100, FlagCloudCoverInvalid},
	"cape":                      {0, 10000, FlagNegativeCape},
}

// ValidateTable flags physically implausible values per column. Flags are
// advisory: the caller logs them, nothing is dropped. Schema problems are the
// decoder's job and fail the fetch outright; this is a sanity net behind it.
func ValidateTable(table *models.ForecastTable) []string {
	var flags []string
	for _, frame := range table.Frames {
		b, ok := bounds[frame.Variable]
		if !ok {
			continue
		}
		for _, col := range frame.Columns {
			for i, v := range col.Values {
				if !v.Valid {
					continue
				}
				if v.Float64 < b.min || v.Float64 > b.max {
					flags = append(flags, fmt.Sprintf("%s:%s[%d]=%.1f", b.flag, col.Source, i, v.Float64))
					break // one flag per column is enough to investigate
				}
			}
		}
	}
	return flags
}
