package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/mcalgaro/meteogramma/internal/api"
	"github.com/mcalgaro/meteogramma/internal/climatology"
	"github.com/mcalgaro/meteogramma/internal/ingest"
	"github.com/mcalgaro/meteogramma/internal/models"
	"github.com/mcalgaro/meteogramma/internal/report"
	"github.com/mcalgaro/meteogramma/internal/store"
)

var cli struct {
	DB   string `help:"Path to SQLite database." default:"data/meteogramma.db" env:"METEOGRAMMA_DB"`
	Port string `help:"HTTP server port." default:"8080" env:"PORT"`

	Lat      float64 `help:"Forecast latitude." default:"45.7256" env:"METEOGRAMMA_LAT"`
	Lon      float64 `help:"Forecast longitude." default:"12.6897" env:"METEOGRAMMA_LON"`
	Timezone string  `help:"Civil timezone for calendar alignment." default:"Europe/Rome" env:"METEOGRAMMA_TZ"`

	ArchiveStartYear int    `help:"First year of the historical record." default:"1974"`
	HistoricalFTP    string `help:"Optional host:port of an FTP climate archive mirror." env:"METEOGRAMMA_FTP"`
	HistoricalPath   string `help:"CSV path on the FTP mirror." default:"/archive/hourly_temperature.csv"`

	Once   bool `help:"Ingest once and exit (for testing)."`
	NoPoll bool `help:"Disable polling (server only, for local dev)."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("meteogramma"),
		kong.Description("Multi-model ensemble weather pages with a 50-year climatological baseline."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	loc, err := time.LoadLocation(cli.Timezone)
	if err != nil {
		log.Fatalf("load timezone %s: %v", cli.Timezone, err)
	}

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rec := loadHistoricalRecord(st, loc)
	index := climatology.BuildIndex(rec, loc)
	log.Printf("climatology index built: %d samples, %d calendar keys", rec.Len(), index.Keys())

	cache := climatology.NewBaselineCache(index)
	service := report.NewService(loc, report.NewBuilder(loc, cache))

	openmeteo := ingest.NewOpenMeteoClient(cli.Lat, cli.Lon, loc)
	scheduler := ingest.NewScheduler(st, openmeteo, service, loc)

	if cli.Once {
		if err := scheduler.IngestOnce(); err != nil {
			log.Fatalf("ingest: %v", err)
		}
		log.Println("done")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cli.NoPoll {
		go scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	server := api.NewServer(service, st, cli.Port, loc)
	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// loadHistoricalRecord serves the record from the store when present, fetching
// from the archive (FTP mirror if configured, else the archive API) only on
// the first run against a fresh database.
func loadHistoricalRecord(st *store.Store, loc *time.Location) models.HistoricalRecord {
	rec, err := st.LoadHistoricalRecord()
	if err != nil {
		log.Fatalf("load historical record: %v", err)
	}
	if rec.Len() > 0 {
		log.Printf("historical record loaded from store: %d samples", rec.Len())
		return rec
	}

	if cli.HistoricalFTP != "" {
		log.Printf("fetching historical record from FTP mirror %s", cli.HistoricalFTP)
		ftpClient := ingest.NewArchiveFTPClient(cli.HistoricalFTP, cli.HistoricalPath, loc)
		start := time.Now()
		rec, err = ftpClient.Fetch()
		st.LogFetch("archive-ftp", time.Since(start), rec.Len(), err)
		if err != nil {
			log.Fatalf("fetch historical record via ftp: %v", err)
		}
	} else {
		log.Println("fetching historical record from archive API (one-time, this is large)")
		client := ingest.NewArchiveClient(cli.Lat, cli.Lon, loc, cli.ArchiveStartYear)
		var body []byte
		start := time.Now()
		rec, body, err = client.Fetch()
		st.LogFetch("archive", time.Since(start), len(body), err)
		if err != nil {
			log.Fatalf("fetch historical record: %v", err)
		}
	}

	if err := st.InsertHistoricalRecord(rec); err != nil {
		log.Fatalf("store historical record: %v", err)
	}
	log.Printf("historical record stored: %d samples", rec.Len())
	return rec
}
