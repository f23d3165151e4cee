package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mcalgaro/meteogramma/internal/httputil"
	"github.com/mcalgaro/meteogramma/internal/metrics"
	"github.com/mcalgaro/meteogramma/internal/models"
)

const defaultForecastBaseURL = "https://api.open-meteo.com/v1/forecast"

// hourlyTimeLayout is the zone-less ISO format Open-Meteo returns when a
// timezone parameter is supplied; timestamps are civil time in that zone.
const hourlyTimeLayout = "2006-01-02T15:04"

// OpenMeteoClient fetches the multi-model hourly forecast document.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
	lat     float64
	lon     float64
	loc     *time.Location
}

func NewOpenMeteoClient(lat, lon float64, loc *time.Location) *OpenMeteoClient {
	return &OpenMeteoClient{
		baseURL: defaultForecastBaseURL,
		client:  httputil.NewClient(),
		lat:     lat,
		lon:     lon,
		loc:     loc,
	}
}

func (c *OpenMeteoClient) forecastURL() string {
	vars := make([]string, len(models.Variables))
	for i, v := range models.Variables {
		vars[i] = v.ID
	}
	mods := make([]string, len(models.Sources))
	for i, s := range models.Sources {
		mods[i] = s.ID
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", c.lat))
	q.Set("longitude", fmt.Sprintf("%.4f", c.lon))
	q.Set("hourly", strings.Join(vars, ","))
	q.Set("models", strings.Join(mods, ","))
	q.Set("timezone", c.loc.String())
	q.Set("forecast_days", "7")
	return c.baseURL + "?" + q.Encode()
}

// Fetch retrieves and decodes the forecast document, retrying transient
// failures with exponential backoff. Rate-limit statuses are retryable;
// other non-200 responses and decode errors are permanent.
func (c *OpenMeteoClient) Fetch() (*models.ForecastTable, []byte, error) {
	body, err := fetchWithRetry(c.client, c.forecastURL(), "forecast")
	if err != nil {
		return nil, nil, err
	}

	table, err := DecodeForecast(body, c.loc)
	if err != nil {
		return nil, body, fmt.Errorf("decode forecast: %w", err)
	}
	return table, body, nil
}

func fetchWithRetry(client *http.Client, fetchURL, source string) ([]byte, error) {
	var body []byte
	operation := func() error {
		start := time.Now()
		resp, err := client.Get(fetchURL)
		if err != nil {
			metrics.FetchesTotal.WithLabelValues(source, "error").Inc()
			return fmt.Errorf("fetch %s: %w", source, err)
		}
		defer resp.Body.Close()

		metrics.FetchLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
		metrics.FetchesTotal.WithLabelValues(source, fmt.Sprint(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", source, resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}

// hourlyDocument matches the "hourly" block of both the forecast and archive
// documents. Column names are dynamic (variable_model), so everything except
// the time axis is decoded lazily.
type hourlyDocument struct {
	Hourly map[string]json.RawMessage `json:"hourly"`
}

// DecodeForecast turns the raw forecast document into an aligned table.
// A missing (variable, model) column means the model doesn't produce that
// variable; a JSON null within a column is a per-hour gap.
func DecodeForecast(body []byte, loc *time.Location) (*models.ForecastTable, error) {
	var doc hourlyDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if doc.Hourly == nil {
		return nil, fmt.Errorf("document has no hourly block")
	}

	times, err := decodeTimeAxis(doc.Hourly, loc)
	if err != nil {
		return nil, err
	}

	table := &models.ForecastTable{Times: times, FetchedAt: time.Now()}
	for _, v := range models.Variables {
		frame := models.VariableFrame{Variable: v.ID}
		for _, src := range models.Sources {
			raw, ok := doc.Hourly[v.ID+"_"+src.ID]
			if !ok {
				continue
			}
			values, err := decodeColumn(raw, len(times))
			if err != nil {
				return nil, fmt.Errorf("column %s_%s: %w", v.ID, src.ID, err)
			}
			frame.Columns = append(frame.Columns, models.ModelColumn{
				Variable: v.ID,
				Source:   src.ID,
				Values:   values,
			})
		}
		table.Frames = append(table.Frames, frame)
	}
	return table, nil
}

func decodeTimeAxis(hourly map[string]json.RawMessage, loc *time.Location) ([]time.Time, error) {
	raw, ok := hourly["time"]
	if !ok {
		return nil, fmt.Errorf("hourly block has no time axis")
	}
	var stamps []string
	if err := json.Unmarshal(raw, &stamps); err != nil {
		return nil, fmt.Errorf("unmarshal time axis: %w", err)
	}
	if len(stamps) == 0 {
		return nil, fmt.Errorf("empty time axis")
	}
	times := make([]time.Time, len(stamps))
	for i, s := range stamps {
		t, err := time.ParseInLocation(hourlyTimeLayout, s, loc)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		times[i] = t
	}
	return times, nil
}

func decodeColumn(raw json.RawMessage, axisLen int) ([]sql.NullFloat64, error) {
	var nums []*float64
	if err := json.Unmarshal(raw, &nums); err != nil {
		return nil, err
	}
	if len(nums) != axisLen {
		return nil, fmt.Errorf("column length %d does not match axis length %d", len(nums), axisLen)
	}
	values := make([]sql.NullFloat64, len(nums))
	for i, n := range nums {
		if n != nil {
			values[i] = sql.NullFloat64{Float64: *n, Valid: true}
		}
	}
	return values, nil
}
