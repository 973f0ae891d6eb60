package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// InsightsResult is the payload of get_order_insights.
type InsightsResult struct {
	insights.Report
	Recommendations []suggest.Recommendation `json:"recommendations"`
}

// RecommendationsResult is the payload of get_recommendations.
type RecommendationsResult struct {
	Window          insights.Window          `json:"window"`
	TotalOrders     int                      `json:"total_orders"`
	MostSevere      suggest.Severity         `json:"most_severe"`
	Recommendations []suggest.Recommendation `json:"recommendations"`
}

// TrendResult is the payload of get_order_trend.
type TrendResult struct {
	Window      insights.Window        `json:"window"`
	Granularity insights.Granularity   `json:"granularity"`
	Buckets     []insights.TrendBucket `json:"buckets"`
}

var (
	windowSchema = json.RawMessage(`{"type":"object","properties":{"window":{"type":"string","enum":["last_7_days","last_30_days","last_6_months","all_time"],"description":"Time window (default from config)"}},"additionalProperties":false}`)
	trendSchema  = json.RawMessage(`{"type":"object","properties":{"window":{"type":"string","enum":["last_7_days","last_30_days","last_6_months","all_time"],"description":"Time window (default from config)"},"fill_gaps":{"type":"boolean","description":"Emit empty buckets for days or months without orders"}},"additionalProperties":false}`)
)

// addTools registers the order insight tools on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "get_order_insights",
		Description: "Status distribution, trend, metrics and recommendations for a time window.",
		InputSchema: windowSchema,
		Handler:     s.handleGetOrderInsights,
	})
	s.registerTool(toolDef{
		Name:        "get_recommendations",
		Description: "Recommendations for a time window, most severe first. Equal severities keep rule order.",
		InputSchema: windowSchema,
		Handler:     s.handleGetRecommendations,
	})
	s.registerTool(toolDef{
		Name:        "get_order_trend",
		Description: "Order count, revenue and status breakdown per day or month.",
		InputSchema: trendSchema,
		Handler:     s.handleGetOrderTrend,
	})
}

type windowArgs struct {
	Window   string `json:"window"`
	FillGaps bool   `json:"fill_gaps"`
}

func (s *Server) parseArgs(args json.RawMessage) (windowArgs, insights.Window, error) {
	var params windowArgs
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &params); err != nil {
			return params, "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if params.Window == "" {
		return params, s.opts.Window, nil
	}
	w, err := insights.ParseWindow(params.Window)
	return params, w, err
}

// analyze loads the current orders and runs the pipeline for w.
func (s *Server) analyze(ctx context.Context, w insights.Window) (insights.Report, error) {
	orders, err := s.source.Orders(ctx)
	if err != nil {
		return insights.Report{}, fmt.Errorf("loading orders: %w", err)
	}
	return insights.Analyze(orders, insights.Options{
		Window:   w,
		Now:      s.opts.Now(),
		Location: s.opts.Location,
	}), nil
}

func (s *Server) handleGetOrderInsights(ctx context.Context, args json.RawMessage) (any, error) {
	_, w, err := s.parseArgs(args)
	if err != nil {
		return nil, err
	}
	report, err := s.analyze(ctx, w)
	if err != nil {
		return nil, err
	}
	return InsightsResult{Report: report, Recommendations: s.engine.Evaluate(report)}, nil
}

func (s *Server) handleGetRecommendations(ctx context.Context, args json.RawMessage) (any, error) {
	_, w, err := s.parseArgs(args)
	if err != nil {
		return nil, err
	}
	report, err := s.analyze(ctx, w)
	if err != nil {
		return nil, err
	}
	recs := suggest.BySeverity(s.engine.Evaluate(report))
	return RecommendationsResult{
		Window:          w,
		TotalOrders:     report.Summary.TotalOrders,
		MostSevere:      suggest.MostSevere(recs),
		Recommendations: recs,
	}, nil
}

func (s *Server) handleGetOrderTrend(ctx context.Context, args json.RawMessage) (any, error) {
	params, w, err := s.parseArgs(args)
	if err != nil {
		return nil, err
	}
	report, err := s.analyze(ctx, w)
	if err != nil {
		return nil, err
	}

	buckets := report.Trend
	if params.FillGaps {
		buckets = insights.ContinuousTrend(report, s.opts.Location)
	}

	return TrendResult{Window: w, Granularity: report.Granularity, Buckets: buckets}, nil
}
