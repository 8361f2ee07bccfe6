// internal/library/router.go
package library

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"librarium/internal/catalog"
	"librarium/internal/circulation"
	"librarium/internal/membership"
)

const defaultEventsLimit = 100

var (
	_ catalog.Service     = (*Library)(nil)
	_ membership.Service  = (*Library)(nil)
	_ circulation.Service = (*Library)(nil)
)

// NewRouter exposes lib over HTTP.
func NewRouter(lib *Library) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	catalog.NewHandler(lib).Routes(r)
	membership.NewHandler(lib).Routes(r)
	circulation.NewHandler(lib).Routes(r)

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lib.Stats(r.Context()))
	})

	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		from, limit, err := eventsPage(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		events, err := lib.Events(r.Context(), from, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(events)
	})

	return r
}

func eventsPage(r *http.Request) (int64, int, error) {
	q := r.URL.Query()
	var from int64
	limit := defaultEventsLimit
	if v := q.Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, err
		}
		from = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, err
		}
		limit = n
	}
	return from, limit, nil
}
