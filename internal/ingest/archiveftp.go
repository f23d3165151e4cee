package ingest

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/mcalgaro/meteogramma/internal/models"
)

// ArchiveFTPClient retrieves the historical temperature record from an
// anonymous-FTP climate archive mirror, as an alternative to the archive API.
// The file is hourly CSV: "timestamp,temperature", timestamp in civil time,
// empty temperature for gaps.
type ArchiveFTPClient struct {
	host string // host:port
	path string
	loc  *time.Location
}

func NewArchiveFTPClient(host, path string, loc *time.Location) *ArchiveFTPClient {
	return &ArchiveFTPClient{host: host, path: path, loc: loc}
}

// Fetch downloads and parses the record.
func (c *ArchiveFTPClient) Fetch() (models.HistoricalRecord, error) {
	conn, err := ftp.Dial(c.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return models.HistoricalRecord{}, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return models.HistoricalRecord{}, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(c.path)
	if err != nil {
		return models.HistoricalRecord{}, fmt.Errorf("ftp retr %s: %w", c.path, err)
	}
	defer resp.Close()

	rec, err := ParseArchiveCSV(resp, c.loc)
	if err != nil {
		return models.HistoricalRecord{}, fmt.Errorf("parse %s: %w", c.path, err)
	}
	return rec, nil
}

// ParseArchiveCSV parses the hourly CSV record. A header line starting with
// "time" is skipped; blank lines are ignored; an empty value column is a gap.
func ParseArchiveCSV(r io.Reader, loc *time.Location) (models.HistoricalRecord, error) {
	var rec models.HistoricalRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if lineNo == 1 && strings.HasPrefix(strings.ToLower(line), "time") {
			continue
		}

		stamp, value, found := strings.Cut(line, ",")
		if !found {
			return models.HistoricalRecord{}, fmt.Errorf("line %d: no separator", lineNo)
		}
		ts, err := time.ParseInLocation(hourlyTimeLayout, strings.TrimSpace(stamp), loc)
		if err != nil {
			return models.HistoricalRecord{}, fmt.Errorf("line %d: %w", lineNo, err)
		}

		var v sql.NullFloat64
		if value = strings.TrimSpace(value); value != "" {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return models.HistoricalRecord{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			v = sql.NullFloat64{Float64: f, Valid: true}
		}

		rec.Times = append(rec.Times, ts)
		rec.Values = append(rec.Values, v)
	}
	if err := scanner.Err(); err != nil {
		return models.HistoricalRecord{}, err
	}
	if rec.Len() == 0 {
		return models.HistoricalRecord{}, fmt.Errorf("no samples in record")
	}
	return rec, nil
}
