package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// newFixtureServer serves ten orders from the last week: six delivered,
// three cancelled and one returned.
func newFixtureServer() *Server {
	statuses := []order.Status{
		order.StatusDelivered, order.StatusDelivered, order.StatusDelivered,
		order.StatusDelivered, order.StatusDelivered, order.StatusDelivered,
		order.StatusCancelled, order.StatusCancelled, order.StatusCancelled,
		order.StatusReturned,
	}
	orders := make([]order.Order, 0, len(statuses))
	for i, st := range statuses {
		orders = append(orders, order.Order{
			ID:        fmt.Sprintf("o-%d", i),
			CreatedAt: fixedNow.Add(-time.Duration(i%5+1) * 24 * time.Hour),
			Status:    st,
			Total:     decimal.NewFromInt(20),
		})
	}
	// One older order only visible outside the 7-day window.
	orders = append(orders, order.Order{
		ID:        "old",
		CreatedAt: fixedNow.Add(-60 * 24 * time.Hour),
		Status:    order.StatusDelivered,
		Total:     decimal.NewFromInt(20),
	})

	src := order.SourceFunc(func(context.Context) ([]order.Order, error) { return orders, nil })
	return NewServer(src, suggest.NewEngine(suggest.DefaultThresholds()), Options{
		Window:   insights.WindowLast7Days,
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
}

func TestAddTools_Registered(t *testing.T) {
	s := newFixtureServer()
	want := map[string]bool{
		"get_order_insights":  false,
		"get_recommendations": false,
		"get_order_trend":     false,
	}
	for _, tool := range s.tools {
		if _, ok := want[tool.Name]; !ok {
			t.Errorf("unexpected tool %q", tool.Name)
			continue
		}
		want[tool.Name] = true
		if !json.Valid(tool.InputSchema) {
			t.Errorf("tool %q has invalid input schema", tool.Name)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestGetOrderInsights_DefaultWindow(t *testing.T) {
	s := newFixtureServer()
	got, err := s.handleGetOrderInsights(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("handleGetOrderInsights: %v", err)
	}
	res := got.(InsightsResult)

	if res.Window != insights.WindowLast7Days {
		t.Errorf("window = %q, want last_7_days", res.Window)
	}
	if res.Summary.TotalOrders != 10 {
		t.Errorf("total orders = %d, want 10", res.Summary.TotalOrders)
	}
	if math.Abs(res.Metrics.CancellationRate-30) > 1e-9 {
		t.Errorf("cancellation rate = %v, want 30", res.Metrics.CancellationRate)
	}
	if len(res.Recommendations) == 0 || res.Recommendations[0].Rule != "high_cancellation" {
		t.Errorf("expected high_cancellation first, got %+v", res.Recommendations)
	}
}

func TestGetOrderInsights_ExplicitWindow(t *testing.T) {
	s := newFixtureServer()
	got, err := s.handleGetOrderInsights(context.Background(), json.RawMessage(`{"window":"all_time"}`))
	if err != nil {
		t.Fatalf("handleGetOrderInsights: %v", err)
	}
	if n := got.(InsightsResult).Summary.TotalOrders; n != 11 {
		t.Errorf("total orders = %d, want 11", n)
	}
}

func TestGetOrderInsights_BadWindow(t *testing.T) {
	s := newFixtureServer()
	_, err := s.handleGetOrderInsights(context.Background(), json.RawMessage(`{"window":"fortnight"}`))
	if !errors.Is(err, insights.ErrUnknownWindow) {
		t.Errorf("expected ErrUnknownWindow, got %v", err)
	}
}

func TestGetRecommendations(t *testing.T) {
	s := newFixtureServer()
	got, err := s.handleGetRecommendations(context.Background(), nil)
	if err != nil {
		t.Fatalf("handleGetRecommendations: %v", err)
	}
	res := got.(RecommendationsResult)
	if res.MostSevere != suggest.SeverityHigh {
		t.Errorf("most severe = %q, want high", res.MostSevere)
	}
	if res.TotalOrders != 10 {
		t.Errorf("total orders = %d, want 10", res.TotalOrders)
	}
	for i := 1; i < len(res.Recommendations); i++ {
		if res.Recommendations[i-1].Severity.Rank() > res.Recommendations[i].Severity.Rank() {
			t.Errorf("recommendation %d (%s) is more severe than %d (%s)", i,
				res.Recommendations[i].Severity, i-1, res.Recommendations[i-1].Severity)
		}
	}
}

func TestGetOrderTrend_FillGaps(t *testing.T) {
	s := newFixtureServer()

	got, err := s.handleGetOrderTrend(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("handleGetOrderTrend: %v", err)
	}
	sparse := got.(TrendResult)
	if len(sparse.Buckets) != 5 {
		t.Errorf("sparse buckets = %d, want 5", len(sparse.Buckets))
	}

	got, err = s.handleGetOrderTrend(context.Background(), json.RawMessage(`{"fill_gaps":true}`))
	if err != nil {
		t.Fatalf("handleGetOrderTrend: %v", err)
	}
	filled := got.(TrendResult)
	if len(filled.Buckets) != 8 {
		t.Errorf("filled buckets = %d, want 8", len(filled.Buckets))
	}
	if filled.Granularity != insights.GranularityDay {
		t.Errorf("granularity = %q, want day", filled.Granularity)
	}
}

func TestSourceError(t *testing.T) {
	src := order.SourceFunc(func(context.Context) ([]order.Order, error) {
		return nil, errors.New("disk gone")
	})
	s := NewServer(src, suggest.NewEngine(suggest.DefaultThresholds()), Options{})

	_, err := s.handleGetRecommendations(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Errorf("expected wrapped source error, got %v", err)
	}
}

func TestRun_ToolsCall(t *testing.T) {
	resp := exchange(t, newFixtureServer(),
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"get_recommendations","arguments":{"window":"7d"}}}`,
		`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"nope"}}`,
	)
	if len(resp) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(resp))
	}

	var parsed struct {
		Result toolsCallResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(resp[0]), &parsed); err != nil {
		t.Fatalf("unmarshal response: %v\nresponse: %s", err, resp[0])
	}
	if parsed.Result.IsError {
		t.Fatalf("unexpected tool error: %s", resp[0])
	}
	if len(parsed.Result.Content) != 1 || !strings.Contains(parsed.Result.Content[0].Text, "high_cancellation") {
		t.Errorf("expected high_cancellation in content, got %s", resp[0])
	}

	if !strings.Contains(resp[1], `"isError":true`) || !strings.Contains(resp[1], "unknown tool: nope") {
		t.Errorf("expected unknown tool error, got %s", resp[1])
	}
}

func TestRun_ToolErrorIsContent(t *testing.T) {
	resp := exchange(t, newFixtureServer(),
		`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"get_order_trend","arguments":{"window":"fortnight"}}}`,
	)
	if rpcError(t, resp[0]) != nil {
		t.Fatalf("tool failures must not be JSON-RPC errors: %s", resp[0])
	}
	if !strings.Contains(resp[0], `"isError":true`) {
		t.Errorf("expected isError, got %s", resp[0])
	}
}
