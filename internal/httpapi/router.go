package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"

	"regwatch/internal/logger"
	"regwatch/internal/repositories"
	"regwatch/internal/services/scraping"
)

type Service interface {
	Run(ctx context.Context) (scraping.Result, error)
	LastResult() (scraping.Result, bool)
}

type Handler struct {
	service Service
	history repositories.HistoryRepository
	log     logger.Logger
}

func NewHandler(service Service, history repositories.HistoryRepository, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{service: service, history: history, log: log}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/scraping", h.handleScrape)
	r.Get("/scraping/last", h.handleLast)
	r.Get("/history", h.handleHistory)
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Post("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/allocs", pprof.Handler("allocs").ServeHTTP)
		r.Get("/block", pprof.Handler("block").ServeHTTP)
		r.Get("/goroutine", pprof.Handler("goroutine").ServeHTTP)
		r.Get("/heap", pprof.Handler("heap").ServeHTTP)
		r.Get("/mutex", pprof.Handler("mutex").ServeHTTP)
		r.Get("/threadcreate", pprof.Handler("threadcreate").ServeHTTP)
	})
	return r
}

func (h *Handler) handleScrape(w http.ResponseWriter, r *http.Request) {
	go func() {
		if _, err := h.service.Run(context.Background()); err != nil && !errors.Is(err, scraping.ErrAlreadyRunning) {
			h.log.Error("triggered scrape failed", logger.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Scraping started"})
}

func (h *Handler) handleLast(w http.ResponseWriter, r *http.Request) {
	result, ok := h.service.LastResult()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run yet"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.List(r.Context())
	if err != nil {
		h.log.Error("list history failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
