package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codewandler/tokenstore/core/cache"
	"github.com/codewandler/tokenstore/core/seq"
)

type seqStats struct {
	ID          string `json:"id"`
	Size        int    `json:"size"`
	BufferStart int    `json:"buffer_start"`
	Buffered    int    `json:"buffered"`
	Mode        string `json:"mode"`
}

type stats struct {
	Cache     cache.Snapshot `json:"cache"`
	HitRatio  *float64       `json:"hit_ratio,omitempty"`
	Sequences []seqStats     `json:"sequences"`
}

// newRouter serves the manager's state. switchable says whether the
// lookaside caches follow mgr.Switch; if not, POST /caching answers 409.
func newRouter(mgr *seq.Manager, reg *prometheus.Registry, switchable bool, log *slog.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")

	r.HandleFunc("/stats", func(w http.ResponseWriter, req *http.Request) {
		out := stats{Cache: mgr.Snapshot()}
		if ratio, ok := out.Cache.HitRatio(); ok {
			out.HitRatio = &ratio
		}
		for _, id := range mgr.IDs() {
			ts, _ := mgr.Get(id)
			s := ts.Sequence()
			size, err := s.Size(req.Context())
			if err != nil {
				writeError(w, log, err)
				return
			}
			out.Sequences = append(out.Sequences, seqStats{
				ID:          id,
				Size:        size,
				BufferStart: s.BufferStart(),
				Buffered:    s.Buffered(),
				Mode:        s.Mode().String(),
			})
		}
		writeJSON(w, log, out)
	}).Methods("GET")

	r.HandleFunc("/seq/{id}/text", func(w http.ResponseWriter, req *http.Request) {
		ts, ok := mgr.Get(mux.Vars(req)["id"])
		if !ok {
			http.Error(w, "unknown sequence", http.StatusNotFound)
			return
		}
		text, err := ts.Text(req.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
	}).Methods("GET")

	r.HandleFunc("/caching", func(w http.ResponseWriter, req *http.Request) {
		if !switchable {
			http.Error(w, "lookaside ignores the caching switch", http.StatusConflict)
			return
		}
		switch req.URL.Query().Get("active") {
		case "true", "1":
			mgr.Switch().Activate()
		case "false", "0":
			mgr.Switch().Deactivate()
		}
		writeJSON(w, log, map[string]bool{"active": mgr.Switch().IsActive()})
	}).Methods("POST")

	return r
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to write response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, seq.ErrNotFound) {
		status = http.StatusNotFound
	}
	log.Error("request failed", slog.Any("error", err))
	http.Error(w, err.Error(), status)
}
