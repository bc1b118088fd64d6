package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"MarketLens/internal/analyst"
	"MarketLens/internal/collector"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"
	"MarketLens/internal/presenter"
	"MarketLens/internal/recorder"
)

// DefaultLookbackYears sets start when a request omits it.
const DefaultLookbackYears = 2

// Analyzer answers free-text questions, e.g. *analyst.Client.
type Analyzer interface {
	Analyze(ctx context.Context, query, about string) (string, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	collector *collector.Collector
	analyst   Analyzer // nil disables /analyze
	recorder  recorder.Recorder
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(col *collector.Collector, an Analyzer, rec recorder.Recorder, m *metrics.Metrics) *Handler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Handler{collector: col, analyst: an, recorder: rec, metrics: m, now: time.Now}
}

// selection is the parsed (symbols, start, end, window) of a query string.
type selection struct {
	Symbols []string
	Start   time.Time
	End     time.Time
	Window  int
}

func (h *Handler) parseSelection(r *http.Request) (selection, error) {
	q := r.URL.Query()
	sel := selection{Symbols: parseSymbols(q.Get("symbols")), End: h.now()}

	var err error
	if v := q.Get("end"); v != "" {
		if sel.End, err = time.Parse(model.DateLayout, v); err != nil {
			return sel, fmt.Errorf("end: expected YYYY-MM-DD")
		}
	}
	sel.Start = sel.End.AddDate(-DefaultLookbackYears, 0, 0)
	if v := q.Get("start"); v != "" {
		if sel.Start, err = time.Parse(model.DateLayout, v); err != nil {
			return sel, fmt.Errorf("start: expected YYYY-MM-DD")
		}
	}
	if v := q.Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return sel, fmt.Errorf("window must be a positive integer")
		}
		sel.Window = n
	}
	return sel, nil
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request) (*collector.Report, bool) {
	sel, err := h.parseSelection(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return nil, false
	}
	began := time.Now()
	rep, err := h.collector.Collect(r.Context(), sel.Symbols, sel.Start, sel.End, sel.Window)
	if err != nil {
		respondError(w, statusFor(err), err)
		return nil, false
	}
	h.metrics.ObserveCompute(time.Since(began))
	return rep, true
}

// GetIndicators handles GET /api/v1/indicators
func (h *Handler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.collect(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"symbols":    rep.Symbols,
		"start":      rep.Start.Format(model.DateLayout),
		"end":        rep.End.Format(model.DateLayout),
		"window":     rep.Window,
		"indicators": rep.Indicators,
		"notes":      rep.Notes,
	})
}

// GetTechnical handles GET /api/v1/technical
func (h *Handler) GetTechnical(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.collect(w, r)
	if !ok {
		return
	}
	charts := make([]*presenter.TechnicalChart, 0, len(rep.Symbols))
	for _, sym := range rep.Symbols {
		charts = append(charts, presenter.Technical(rep.Indicators[sym]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"charts": charts, "notes": rep.Notes})
}

// GetReturns handles GET /api/v1/returns
func (h *Handler) GetReturns(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.collect(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"performance": presenter.Performance(rep.Returns, rep.Symbols),
		"notes":       rep.Notes,
	})
}

// GetCandles handles GET /api/v1/candles
func (h *Handler) GetCandles(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.collect(w, r)
	if !ok {
		return
	}
	charts := make([]*presenter.CandleChart, 0, len(rep.Symbols))
	for _, sym := range rep.Symbols {
		c := presenter.Candles(rep.Series[sym])
		c.Symbol = sym
		charts = append(charts, c)
	}
	respondJSON(w, http.StatusOK, map[string]any{"charts": charts})
}

// GetSnapshots handles GET /api/v1/snapshots/{symbol}
func (h *Handler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	limit := 30
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}
	snaps, err := h.recorder.Snapshots(symbol, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if snaps == nil {
		snaps = []recorder.Snapshot{}
	}
	respondJSON(w, http.StatusOK, snaps)
}

type analyzeRequest struct {
	Query   string   `json:"query"`
	Symbols []string `json:"symbols"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
}

// Analyze handles POST /api/v1/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.analyst == nil {
		respondError(w, http.StatusServiceUnavailable, fmt.Errorf("analyst not configured"))
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}

	end := h.now()
	if req.End != "" {
		t, err := time.Parse(model.DateLayout, req.End)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("end: expected YYYY-MM-DD"))
			return
		}
		end = t
	}
	start := end.AddDate(-DefaultLookbackYears, 0, 0)
	if req.Start != "" {
		t, err := time.Parse(model.DateLayout, req.Start)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("start: expected YYYY-MM-DD"))
			return
		}
		start = t
	}

	about := analyst.BuildContext(normalize(req.Symbols), start, end)
	reply, err := h.analyst.Analyze(r.Context(), req.Query, about)
	if err != nil {
		log.Printf("[ERROR] analyst: %v", err)
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"reply": reply, "context": about})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseSymbols(v string) []string {
	if v == "" {
		return nil
	}
	return normalize(strings.Split(v, ","))
}

// normalize trims symbols and keeps their case. Blank entries are kept so validation can reject them.
func normalize(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
