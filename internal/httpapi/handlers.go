package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// ErrResponse is the body of every non-2xx response.
type ErrResponse struct {
	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// InsightsResponse is the body of GET /api/insights.
type InsightsResponse struct {
	insights.Report
	Recommendations []suggest.Recommendation `json:"recommendations"`
}

// TrendResponse is the body of GET /api/trend.
type TrendResponse struct {
	Window      insights.Window        `json:"window"`
	Granularity insights.Granularity   `json:"granularity"`
	Buckets     []insights.TrendBucket `json:"buckets"`
}

// DistributionResponse is the body of GET /api/distribution.
type DistributionResponse struct {
	Window       insights.Window              `json:"window"`
	TotalOrders  int                          `json:"total_orders"`
	Distribution []insights.DistributionEntry `json:"distribution"`
}

// RecommendationsResponse is the body of GET /api/recommendations.
type RecommendationsResponse struct {
	Window          insights.Window          `json:"window"`
	MostSevere      suggest.Severity         `json:"most_severe"`
	Recommendations []suggest.Recommendation `json:"recommendations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	report, ok := s.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, InsightsResponse{
		Report:          report,
		Recommendations: s.engine.Evaluate(report),
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	fillGaps := false
	if v := r.URL.Query().Get("fill_gaps"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errors.New("fill_gaps must be a boolean"))
			return
		}
		fillGaps = b
	}

	report, ok := s.analyze(w, r)
	if !ok {
		return
	}
	buckets := report.Trend
	if fillGaps {
		buckets = insights.ContinuousTrend(report, s.cfg.Location)
	}
	writeJSON(w, http.StatusOK, TrendResponse{
		Window:      report.Window,
		Granularity: report.Granularity,
		Buckets:     buckets,
	})
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	report, ok := s.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DistributionResponse{
		Window:       report.Window,
		TotalOrders:  report.Summary.TotalOrders,
		Distribution: report.Distribution,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	report, ok := s.analyze(w, r)
	if !ok {
		return
	}
	recs := suggest.BySeverity(s.engine.Evaluate(report))
	writeJSON(w, http.StatusOK, RecommendationsResponse{
		Window:          report.Window,
		MostSevere:      suggest.MostSevere(recs),
		Recommendations: recs,
	})
}

// analyze resolves ?window=, loads orders and runs the pipeline. On failure
// it writes the error response and returns false.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (insights.Report, bool) {
	win := s.cfg.Window
	if v := r.URL.Query().Get("window"); v != "" {
		parsed, err := insights.ParseWindow(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return insights.Report{}, false
		}
		win = parsed
	}

	orders, err := s.source.Orders(r.Context())
	if err != nil {
		slog.Default().ErrorContext(r.Context(), "loading orders", slog.String("err", err.Error()))
		writeError(w, r, http.StatusInternalServerError, errors.New("orders unavailable"))
		return insights.Report{}, false
	}

	return insights.Analyze(orders, insights.Options{
		Window:   win,
		Now:      s.cfg.Now(),
		Location: s.cfg.Location,
	}), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		slog.Default().Warn("encoding response", slog.String("err", err.Error()))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, ErrResponse{
		StatusText: http.StatusText(status),
		ErrorText:  err.Error(),
		RequestID:  middleware.GetReqID(r.Context()),
	})
}
