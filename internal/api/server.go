package api

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcalgaro/meteogramma/internal/imagegen"
	"github.com/mcalgaro/meteogramma/internal/narrative"
	"github.com/mcalgaro/meteogramma/internal/report"
	"github.com/mcalgaro/meteogramma/internal/store"
)

//go:embed templates/*
var templateFS embed.FS

type Server struct {
	service   *report.Service
	store     *store.Store
	narrative *narrative.Generator // nil when no API key
	ogCache   *imagegen.OGImageCache
	port      string
	loc       *time.Location
	tmpl      *template.Template
}

func NewServer(service *report.Service, st *store.Store, port string, loc *time.Location) *Server {
	funcs := template.FuncMap{
		"jsonify": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
	}
	tmpl := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

	// Narrative generation is optional; pages render without it.
	var gen *narrative.Generator
	if g, err := narrative.NewGenerator(st); err != nil {
		log.Printf("narrative generation disabled: %v", err)
	} else {
		gen = g
	}

	return &Server{
		service:   service,
		store:     st,
		narrative: gen,
		ogCache:   imagegen.NewOGImageCache(30 * time.Minute),
		port:      port,
		loc:       loc,
		tmpl:      tmpl,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/day/", s.handleDay)
	mux.HandleFunc("/og-image.png", s.handleOGImage)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/bundle", s.handleAPIBundle)
	mux.HandleFunc("/api/models", s.handleAPIModels)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "ok",
		"ready":  s.service.Ready(),
	}
	if t := s.service.FetchedAt(); !t.IsZero() {
		status["forecast_fetched_at"] = t.UTC().Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
