package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mcalgaro/meteogramma/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

// InsertHistoricalRecord persists the full multi-decade record in one
// transaction. It replaces whatever was there; the record is fetched whole.
func (s *Store) InsertHistoricalRecord(rec models.HistoricalRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM historical_samples`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear historical samples: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO historical_samples (observed_at, temp) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, ts := range rec.Times {
		if _, err := stmt.Exec(ts.UTC(), rec.Values[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadHistoricalRecord reads the stored record back in time order.
// An empty record means the archive has never been fetched.
func (s *Store) LoadHistoricalRecord() (models.HistoricalRecord, error) {
	rows, err := s.db.Query(`SELECT observed_at, temp FROM historical_samples ORDER BY observed_at ASC`)
	if err != nil {
		return models.HistoricalRecord{}, err
	}
	defer rows.Close()

	var rec models.HistoricalRecord
	for rows.Next() {
		var ts time.Time
		var v sql.NullFloat64
		if err := rows.Scan(&ts, &v); err != nil {
			return models.HistoricalRecord{}, err
		}
		rec.Times = append(rec.Times, ts.In(s.loc))
		rec.Values = append(rec.Values, v)
	}
	return rec, rows.Err()
}

// HistoricalCount returns the number of stored historical samples.
func (s *Store) HistoricalCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM historical_samples`).Scan(&n)
	return n, err
}

// LogFetch records one ingestion attempt, successful or not.
func (s *Store) LogFetch(source string, duration time.Duration, size int, fetchErr error) {
	var errText sql.NullString
	if fetchErr != nil {
		errText = sql.NullString{String: fetchErr.Error(), Valid: true}
	}
	if _, err := s.db.Exec(`
		INSERT INTO fetch_log (source, fetched_at, duration_ms, response_size, error)
		VALUES (?, ?, ?, ?, ?)
	`, source, time.Now().UTC(), duration.Milliseconds(), size, errText); err != nil {
		// Fetch logging is best-effort; never fail the ingest for it.
		return
	}
}

// FetchLogEntry is one row of the fetch log.
type FetchLogEntry struct {
	ID           int64
	Source       string
	FetchedAt    time.Time
	DurationMS   int64
	ResponseSize int
	Error        sql.NullString
}

// RecentFetches returns the latest fetch log entries for a source.
func (s *Store) RecentFetches(source string, limit int) ([]FetchLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, source, fetched_at, duration_ms, response_size, error
		FROM fetch_log
		WHERE source = ?
		ORDER BY fetched_at DESC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []FetchLogEntry
	for rows.Next() {
		var e FetchLogEntry
		if err := rows.Scan(&e.ID, &e.Source, &e.FetchedAt, &e.DurationMS, &e.ResponseSize, &e.Error); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveRawPayload keeps the raw upstream document for debugging.
func (s *Store) SaveRawPayload(source string, payload []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO raw_payloads (source, fetched_at, payload)
		VALUES (?, ?, ?)
	`, source, time.Now().UTC(), payload)
	return err
}

// PruneRawPayloads keeps only the newest `keep` payloads per source.
func (s *Store) PruneRawPayloads(source string, keep int) error {
	_, err := s.db.Exec(`
		DELETE FROM raw_payloads
		WHERE source = ? AND id NOT IN (
			SELECT id FROM raw_payloads WHERE source = ? ORDER BY fetched_at DESC LIMIT ?
		)
	`, source, source, keep)
	return err
}

// LatestRawPayload returns the most recent stored document for a source.
func (s *Store) LatestRawPayload(source string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM raw_payloads WHERE source = ? ORDER BY fetched_at DESC LIMIT 1
	`, source).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return payload, err
}

// SaveNarrative stores a generated summary for a (day, forecast issue) pair.
func (s *Store) SaveNarrative(date string, issuedAt time.Time, model, text string) error {
	_, err := s.db.Exec(`
		INSERT INTO narratives (date, issued_at, model, text)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, issued_at) DO UPDATE SET model = excluded.model, text = excluded.text
	`, date, issuedAt.UTC(), model, text)
	return err
}

// GetNarrative returns the stored summary for a (day, forecast issue) pair.
func (s *Store) GetNarrative(date string, issuedAt time.Time) (string, bool, error) {
	var text string
	err := s.db.QueryRow(`
		SELECT text FROM narratives WHERE date = ? AND issued_at = ?
	`, date, issuedAt.UTC()).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}
