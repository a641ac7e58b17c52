// Package server exposes the HTTP API: search, recent pages, similar pages,
// index stats, history reindexing, settings, and index clearing.
package server

import (
	"log/slog"
	"net/http"

	"github.com/semhist/semhist/kv"
	"github.com/semhist/semhist/pipeline"
	"github.com/semhist/semhist/store"
)

// New builds the HTTP server for the daemon API.
func New(addr string, searcher *pipeline.Searcher, processor *pipeline.Processor,
	pages *store.PageStore, settings *kv.Store, log *slog.Logger) *http.Server {
	h := NewHandlers(searcher, processor, pages, settings, log)
	return &http.Server{Addr: addr, Handler: h.Routes()}
}

// Routes wires the API mux.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", h.HandleSearch)
	mux.HandleFunc("/api/recent", h.HandleRecent)
	mux.HandleFunc("/api/similar", h.HandleSimilar)
	mux.HandleFunc("/api/stats", h.HandleStats)
	mux.HandleFunc("/api/reindex", h.HandleReindex)
	mux.HandleFunc("/api/settings", h.HandleSettings)
	mux.HandleFunc("/api/clear", h.HandleClear)
	return mux
}
