package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcalgaro/meteogramma/internal/ensemble"
	"github.com/mcalgaro/meteogramma/internal/models"
)

// bundleResponse is the JSON shape of a CombinedBundle: nulls mark gaps.
type bundleResponse struct {
	Times  []string              `json:"times"`
	Order  []string              `json:"order"`
	Series map[string][]*float64 `json:"series"`
}

func toBundleResponse(bundle *ensemble.CombinedBundle, loc *time.Location) bundleResponse {
	resp := bundleResponse{
		Times:  timeLabels(bundle.Times, loc),
		Order:  bundle.Order,
		Series: make(map[string][]*float64, len(bundle.Order)),
	}
	for _, name := range bundle.Order {
		resp.Series[name] = nullsToPtrs(bundle.Series[name])
	}
	return resp
}

// handleAPIBundle serves the combined bundle; ?day=YYYY-MM-DD narrows to one day.
func (s *Server) handleAPIBundle(w http.ResponseWriter, r *http.Request) {
	var bundle *ensemble.CombinedBundle
	var err error

	if slug := r.URL.Query().Get("day"); slug != "" {
		day, perr := time.ParseInLocation("2006-01-02", slug, s.loc)
		if perr != nil {
			http.Error(w, "bad day parameter", http.StatusBadRequest)
			return
		}
		bundle, err = s.service.DayBundle(day)
	} else {
		bundle, err = s.service.Overview()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toBundleResponse(bundle, s.loc))
}

type modelAvailability struct {
	Source    string   `json:"source"`
	Name      string   `json:"name"`
	Variables []string `json:"variables"`
}

// handleAPIModels reports which sources carry data per variable in the
// current table; useful for spotting a model that dropped out upstream.
func (s *Server) handleAPIModels(w http.ResponseWriter, r *http.Request) {
	table := s.service.Table()
	if table == nil {
		http.Error(w, "no forecast ingested yet", http.StatusServiceUnavailable)
		return
	}

	bySource := make(map[string][]string)
	for _, frame := range table.Frames {
		for _, col := range frame.Columns {
			if col.HasData() {
				bySource[col.Source] = append(bySource[col.Source], frame.Variable)
			}
		}
	}

	out := make([]modelAvailability, 0, len(models.Sources))
	for _, src := range models.Sources {
		vars, ok := bySource[src.ID]
		if !ok {
			continue
		}
		out = append(out, modelAvailability{Source: src.ID, Name: src.Name, Variables: vars})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
