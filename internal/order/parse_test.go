package order

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseOrders_JSONArray(t *testing.T) {
	input := `[
		{"id": 1, "created_at": "2026-03-01T10:00:00Z", "status": "Delivered", "total_amount": 120.50},
		{"id": "ord-2", "created_at": "2026-03-02T11:30:00Z", "status": "canceled", "total": "45.00"}
	]`
	orders, stats, err := ParseOrders(strings.NewReader(input), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if stats.Records != 2 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 2 records and 0 skipped", stats)
	}

	first := orders[0]
	if first.ID != "1" {
		t.Errorf("ID = %q, want %q", first.ID, "1")
	}
	if first.Status != StatusDelivered {
		t.Errorf("Status = %q, want %q", first.Status, StatusDelivered)
	}
	if !first.Total.Equal(decimal.RequireFromString("120.50")) {
		t.Errorf("Total = %s, want 120.50", first.Total)
	}
	if !first.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", first.CreatedAt)
	}

	second := orders[1]
	if second.Status != StatusCancelled {
		t.Errorf("alias canceled should normalize to cancelled, got %q", second.Status)
	}
	if !second.Total.Equal(decimal.NewFromInt(45)) {
		t.Errorf("legacy total field not used: got %s", second.Total)
	}
}

func TestParseOrders_TotalAmountWinsOverTotal(t *testing.T) {
	input := `[{"id": "a", "created_at": "2026-03-01", "status": "pending", "total_amount": 10, "total": 99}]`
	orders, _, err := ParseOrders(strings.NewReader(input), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !orders[0].Total.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Total = %s, want 10", orders[0].Total)
	}
}

func TestParseOrders_MissingAndInvalidTotalsAreZero(t *testing.T) {
	input := `[
		{"id": "a", "created_at": "2026-03-01", "status": "pending"},
		{"id": "b", "created_at": "2026-03-01", "status": "pending", "total": "n/a"},
		{"id": "c", "created_at": "2026-03-01", "status": "pending", "total_amount": -5}
	]`
	orders, _, err := ParseOrders(strings.NewReader(input), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, o := range orders {
		if !o.Total.IsZero() {
			t.Errorf("order %s: Total = %s, want 0", o.ID, o.Total)
		}
	}
}

func TestParseOrders_Envelope(t *testing.T) {
	for _, key := range []string{"orders", "data"} {
		t.Run(key, func(t *testing.T) {
			input := `{"` + key + `": [{"id": "x", "created_at": "2026-03-01T00:00:00Z", "status": "shipped", "total": 3}], "count": 1}`
			orders, _, err := ParseOrders(strings.NewReader(input), time.UTC)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(orders) != 1 || orders[0].Status != StatusShipped {
				t.Fatalf("unexpected orders: %+v", orders)
			}
		})
	}
}

func TestParseOrders_JSONLines(t *testing.T) {
	input := `{"id": "1", "created_at": "2026-03-01T00:00:00Z", "status": "pending", "total": 1}
{"id": "2", "created_at": "2026-03-02T00:00:00Z", "status": "returned", "total": 2}

{"id": "3", "created_at": "2026-03-03T00:00:00Z", "status": "refunded", "total": 3}
`
	orders, stats, err := ParseOrders(strings.NewReader(input), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	if stats.Records != 3 {
		t.Errorf("Records = %d, want 3", stats.Records)
	}
	if orders[2].Status != StatusReturned {
		t.Errorf("refunded should map to returned, got %q", orders[2].Status)
	}
}

func TestParseOrders_LenientRecords(t *testing.T) {
	input := `[
		{"id": "ok", "created_at": "2026-03-01T00:00:00Z", "status": "delivered", "total": 1},
		{"id": "bad-date", "created_at": "yesterday", "status": "delivered", "total": 1},
		{"id": "bad-status", "created_at": "2026-03-01T00:00:00Z", "status": "lost_in_space", "total": 1},
		42,
		null
	]`
	orders, stats, err := ParseOrders(strings.NewReader(input), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	want := LoadStats{Records: 5, Skipped: 2, MalformedDates: 1, UnknownStatuses: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if orders[1].HasTimestamp() {
		t.Error("expected malformed created_at to leave a zero timestamp")
	}
	if orders[2].Status != StatusUnknown {
		t.Errorf("Status = %q, want unknown", orders[2].Status)
	}
}

func TestParseOrders_Empty(t *testing.T) {
	orders, stats, err := ParseOrders(strings.NewReader("   \n"), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 0 || stats.Records != 0 {
		t.Errorf("expected no orders, got %d (%+v)", len(orders), stats)
	}
}

func TestParseOrders_UnsupportedFormat(t *testing.T) {
	_, _, err := ParseOrders(strings.NewReader(`"just a string"`), time.UTC)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseOrders_InvalidJSON(t *testing.T) {
	_, _, err := ParseOrders(strings.NewReader(`[{"id": 1,`), time.UTC)
	if err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.json")
	data := `[{"id": "1", "created_at": "2026-03-01T00:00:00Z", "status": "PENDING", "total_amount": "19.99"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	orders, _, err := LoadFile(path, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].Status != StatusPending {
		t.Fatalf("unexpected orders: %+v", orders)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, _, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"), time.UTC)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-03-01T10:00:00Z", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-03-01T10:00:00.123456Z", time.Date(2026, 3, 1, 10, 0, 0, 123456000, time.UTC)},
		{"2026-03-01T10:00:00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-03-01 10:00:00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"not a date", time.Time{}},
	}

	for _, tc := range tests {
		got := ParseTimestamp(tc.input, time.UTC)
		if !got.Equal(tc.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestParseTimestamp_NaiveIsWallClockInLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-10-18T01:00:00", time.Date(2026, 10, 18, 1, 0, 0, 0, ny)},
		{"2026-10-18 01:00:00", time.Date(2026, 10, 18, 1, 0, 0, 0, ny)},
		{"2026-10-18", time.Date(2026, 10, 18, 0, 0, 0, 0, ny)},
		// An explicit offset wins over the location.
		{"2026-10-18T01:00:00Z", time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got := ParseTimestamp(tc.input, ny)
		if !got.Equal(tc.want) {
			t.Errorf("ParseTimestamp(%q, New York) = %v, want %v", tc.input, got, tc.want)
		}
		if tc.input[len(tc.input)-1] != 'Z' && got.In(ny).Day() != 18 {
			t.Errorf("ParseTimestamp(%q) moved to day %d in New York", tc.input, got.In(ny).Day())
		}
	}

	orders, _, err := ParseOrders(strings.NewReader(`[{"id": "a", "created_at": "2026-10-18T01:00:00", "status": "pending"}]`), ny)
	if err != nil {
		t.Fatalf("ParseOrders: %v", err)
	}
	if got := orders[0].CreatedAt.In(ny).Format("2006-01-02"); got != "2026-10-18" {
		t.Errorf("local date = %s, want 2026-10-18", got)
	}
}

func TestParseTimestamp_NilLocationIsLocal(t *testing.T) {
	want := time.Date(2026, 10, 18, 1, 0, 0, 0, time.Local)
	if got := ParseTimestamp("2026-10-18T01:00:00", nil); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
