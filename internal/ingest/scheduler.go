package ingest

import (
	"context"
	"log"
	"time"

	"github.com/mcalgaro/meteogramma/internal/report"
	"github.com/mcalgaro/meteogramma/internal/store"
)

// Scheduler keeps the forecast table fresh: fetch, validate, persist the raw
// payload, then swap the table into the report service.
type Scheduler struct {
	store      *store.Store
	openmeteo  *OpenMeteoClient
	service    *report.Service
	loc        *time.Location
	fcInterval time.Duration
}

func NewScheduler(st *store.Store, client *OpenMeteoClient, service *report.Service, loc *time.Location) *Scheduler {
	return &Scheduler{
		store:      st,
		openmeteo:  client,
		service:    service,
		loc:        loc,
		fcInterval: 30 * time.Minute,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.IngestOnce()

	ticker := time.NewTicker(s.fcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler stopping")
			return
		case <-ticker.C:
			s.IngestOnce()
		}
	}
}

// IngestOnce runs one fetch cycle. Failures leave the previous table in
// place; the pages keep rendering stale-but-valid data.
func (s *Scheduler) IngestOnce() error {
	start := time.Now()
	table, body, err := s.openmeteo.Fetch()
	s.store.LogFetch("forecast", time.Since(start), len(body), err)
	if err != nil {
		log.Printf("ingest forecast: %v", err)
		return err
	}

	if err := s.store.SaveRawPayload("forecast", body); err != nil {
		log.Printf("save raw payload: %v", err)
	}
	if err := s.store.PruneRawPayloads("forecast", 5); err != nil {
		log.Printf("prune raw payloads: %v", err)
	}

	for _, flag := range ValidateTable(table) {
		log.Printf("ingest forecast: suspect value: %s", flag)
	}

	s.service.SetTable(table, time.Now())
	log.Printf("ingested forecast: %d hours, %d days", len(table.Times), len(s.service.Days()))
	return nil
}
