package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/semhist/semhist/kv"
	"github.com/semhist/semhist/pipeline"
	"github.com/semhist/semhist/store"
)

const settingsKey = "user_settings"

// Handlers holds the API's dependencies.
type Handlers struct {
	searcher  *pipeline.Searcher
	processor *pipeline.Processor
	pages     *store.PageStore
	settings  *kv.Store
	log       *slog.Logger
}

// NewHandlers wires the handler set. settings may be nil, disabling the
// settings endpoints.
func NewHandlers(searcher *pipeline.Searcher, processor *pipeline.Processor,
	pages *store.PageStore, settings *kv.Store, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		searcher:  searcher,
		processor: processor,
		pages:     pages,
		settings:  settings,
		log:       log,
	}
}

type searchResult struct {
	ID        int64   `json:"id"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	Timestamp int64   `json:"timestamp"`
	Score     float64 `json:"score"`
}

// HandleSearch answers GET /api/search?q=... . Searches never fail: a
// degraded backend still produces a (possibly empty) list.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}

	ranked := h.searcher.Search(r.Context(), query)
	results := make([]searchResult, len(ranked))
	for i, res := range ranked {
		results[i] = searchResult{
			ID:        res.Item.ID,
			URL:       res.Item.URL,
			Title:     res.Item.Title,
			Summary:   res.Item.Summary,
			Timestamp: res.Item.Timestamp,
			Score:     res.Score,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}

// HandleRecent answers GET /api/recent?limit=N with the newest pages.
func (h *Handlers) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	infos, err := h.pages.GetRecent(r.Context(), limit)
	if err != nil {
		h.log.Error("recent pages lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read pages")
		return
	}
	if infos == nil {
		infos = []store.PageInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": infos, "total": len(infos)})
}

// HandleSimilar answers GET /api/similar?id=N&limit=M.
func (h *Handlers) HandleSimilar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid 'id'")
		return
	}
	limit := queryInt(r, "limit", 10)

	similar, err := h.searcher.Similar(r.Context(), id, limit)
	if err != nil {
		h.log.Warn("similar lookup failed", "id", id, "error", err)
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sourceId": id,
		"results":  similar,
		"total":    len(similar),
	})
}

// HandleStats answers GET /api/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.searcher.Stats(r.Context())
	if err != nil {
		h.log.Error("stats lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleReindex answers POST /api/reindex with a JSON array of history
// items. The backfill runs synchronously and returns its summary.
func (h *Handlers) HandleReindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var items []pipeline.HistoryItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.processor.Backfill(r.Context(), items)
	if err != nil {
		h.log.Error("backfill aborted", "error", err)
		writeError(w, http.StatusInternalServerError, "backfill aborted")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleSettings answers GET and PUT /api/settings. Settings are an opaque
// JSON object persisted as-is; the daemon only stores them for its clients.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		writeError(w, http.StatusNotFound, "settings storage disabled")
		return
	}
	switch r.Method {
	case http.MethodGet:
		raw, err := h.settings.Get(r.Context(), settingsKey)
		if err != nil {
			h.log.Error("settings read failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not read settings")
			return
		}
		if raw == nil {
			raw = []byte("{}")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
	case http.MethodPut:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "settings must be a JSON object")
			return
		}
		if err := h.settings.PutJSON(r.Context(), settingsKey, body); err != nil {
			h.log.Error("settings write failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not save settings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleClear answers POST /api/clear, removing every indexed page.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.pages.Clear(r.Context()); err != nil {
		h.log.Error("clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not clear index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func queryInt(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
