package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mcalgaro/meteogramma/internal/httputil"
	"github.com/mcalgaro/meteogramma/internal/models"
)

const defaultArchiveBaseURL = "https://archive-api.open-meteo.com/v1/archive"

// ArchiveClient fetches the long hourly temperature record the climatology
// index is built from. One fixed reference location's history serves every
// report page.
type ArchiveClient struct {
	baseURL   string
	client    *http.Client
	lat       float64
	lon       float64
	loc       *time.Location
	startYear int
}

func NewArchiveClient(lat, lon float64, loc *time.Location, startYear int) *ArchiveClient {
	return &ArchiveClient{
		baseURL:   defaultArchiveBaseURL,
		client:    httputil.NewClient(),
		lat:       lat,
		lon:       lon,
		loc:       loc,
		startYear: startYear,
	}
}

func (c *ArchiveClient) archiveURL() string {
	// Through the last complete year; the current year would bias buckets
	// toward recent months.
	endYear := time.Now().In(c.loc).Year() - 1

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", c.lat))
	q.Set("longitude", fmt.Sprintf("%.4f", c.lon))
	q.Set("start_date", fmt.Sprintf("%d-01-01", c.startYear))
	q.Set("end_date", fmt.Sprintf("%d-12-31", endYear))
	q.Set("hourly", models.TemperatureVariable)
	q.Set("timezone", c.loc.String())
	return c.baseURL + "?" + q.Encode()
}

// Fetch retrieves and decodes the historical document. The record is large
// (~450k hourly samples for 51 years) but fetched at most once per database
// lifetime; the store keeps it afterwards.
func (c *ArchiveClient) Fetch() (models.HistoricalRecord, []byte, error) {
	body, err := fetchWithRetry(c.client, c.archiveURL(), "archive")
	if err != nil {
		return models.HistoricalRecord{}, nil, err
	}

	rec, err := DecodeArchive(body, c.loc)
	if err != nil {
		return models.HistoricalRecord{}, body, fmt.Errorf("decode archive: %w", err)
	}
	return rec, body, nil
}

// DecodeArchive decodes the archive document's single temperature column.
func DecodeArchive(body []byte, loc *time.Location) (models.HistoricalRecord, error) {
	var doc hourlyDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return models.HistoricalRecord{}, fmt.Errorf("unmarshal: %w", err)
	}
	if doc.Hourly == nil {
		return models.HistoricalRecord{}, fmt.Errorf("document has no hourly block")
	}

	times, err := decodeTimeAxis(doc.Hourly, loc)
	if err != nil {
		return models.HistoricalRecord{}, err
	}

	raw, ok := doc.Hourly[models.TemperatureVariable]
	if !ok {
		return models.HistoricalRecord{}, fmt.Errorf("document has no %s column", models.TemperatureVariable)
	}
	values, err := decodeColumn(raw, len(times))
	if err != nil {
		return models.HistoricalRecord{}, fmt.Errorf("column %s: %w", models.TemperatureVariable, err)
	}

	return models.HistoricalRecord{Times: times, Values: values}, nil
}
