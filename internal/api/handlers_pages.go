package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mcalgaro/meteogramma/internal/ensemble"
	"github.com/mcalgaro/meteogramma/internal/imagegen"
	"github.com/mcalgaro/meteogramma/internal/metrics"
	"github.com/mcalgaro/meteogramma/internal/report"
)

func (s *Server) dayLinks() []DayLink {
	var links []DayLink
	for _, day := range s.service.Days() {
		links = append(links, DayLink{
			Slug:  day.Format("2006-01-02"),
			Label: DayName(day),
		})
	}
	return links
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	bundle, table, err := s.service.OverviewView()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	metrics.PagesRendered.WithLabelValues("overview").Inc()

	data := PageData{
		Title:     "Meteo Forecast - Tutti i Giorni",
		Heading:   "Previsioni Medie 7 Giorni",
		Days:      s.dayLinks(),
		Combined:  combinedChart(bundle, s.loc),
		Details:   detailCharts(table, bundle, s.loc),
		FetchedAt: s.service.FetchedAt().In(s.loc).Format("02-01 15:04"),
	}
	if err := s.tmpl.ExecuteTemplate(w, "page.html", data); err != nil {
		log.Printf("template error: %v", err)
	}
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/day/")
	day, err := time.ParseInLocation("2006-01-02", slug, s.loc)
	if err != nil {
		http.Error(w, "bad day, want /day/YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	bundle, sub, err := s.service.DayView(day)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	metrics.PagesRendered.WithLabelValues("day").Inc()

	data := PageData{
		Title:     fmt.Sprintf("Meteo Forecast - %s", DayName(day)),
		Heading:   fmt.Sprintf("Previsioni Dettagliate per %s", DayName(day)),
		Days:      s.dayLinks(),
		Combined:  combinedChart(bundle, s.loc),
		Details:   detailCharts(sub, bundle, s.loc),
		FetchedAt: s.service.FetchedAt().In(s.loc).Format("02-01 15:04"),
		Narrative: s.dayNarrative(r.Context(), day, bundle),
	}
	if err := s.tmpl.ExecuteTemplate(w, "page.html", data); err != nil {
		log.Printf("template error: %v", err)
	}
}

func (s *Server) dayNarrative(ctx context.Context, day time.Time, bundle *ensemble.CombinedBundle) string {
	if s.narrative == nil {
		return ""
	}
	genCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	text, err := s.narrative.Summarize(genCtx, day, s.service.FetchedAt(), bundle)
	if err != nil {
		log.Printf("narrative: %v", err)
		return ""
	}
	return text
}

func (s *Server) handleOGImage(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.ogCache.Get(); ok {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
		return
	}

	days := s.service.Days()
	if len(days) == 0 {
		http.Error(w, "no forecast ingested yet", http.StatusServiceUnavailable)
		return
	}
	today := days[0]
	bundle, err := s.service.DayBundle(today)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	img := imagegen.OGImageData{
		Title: "Meteogramma",
		Day:   DayName(today),
	}
	if temps, ok := bundle.Get("Temperatura"); ok {
		img.Ensemble = temps
		for _, v := range temps {
			if !v.Valid {
				continue
			}
			if !img.TempMin.Valid || v.Float64 < img.TempMin.Float64 {
				img.TempMin = v
			}
			if !img.TempMax.Valid || v.Float64 > img.TempMax.Float64 {
				img.TempMax = v
			}
		}
	}
	if baseline, ok := bundle.Get(report.BaselineSeriesName); ok {
		img.Baseline = baseline
	}

	png, err := imagegen.GenerateOGImage(img)
	if err != nil {
		log.Printf("og image: %v", err)
		http.Error(w, "image generation failed", http.StatusInternalServerError)
		return
	}
	s.ogCache.Set(png)

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
