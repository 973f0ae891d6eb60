package order

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedFormat is returned when order input is neither a JSON array,
// an envelope object, nor a stream of JSON objects.
var ErrUnsupportedFormat = errors.New("unsupported order format")

// LoadStats reports what ingestion did with the raw records.
type LoadStats struct {
	Records         int `json:"records"`
	Skipped         int `json:"skipped"`
	MalformedDates  int `json:"malformed_dates"`
	UnknownStatuses int `json:"unknown_statuses"`
}

// rawOrder is the wire shape of an order. Historical payloads carry the
// amount as either total_amount or total, as a number or a string.
type rawOrder struct {
	ID          json.RawMessage `json:"id"`
	CreatedAt   json.RawMessage `json:"created_at"`
	Status      string          `json:"status"`
	TotalAmount json.RawMessage `json:"total_amount"`
	Total       json.RawMessage `json:"total"`
}

// LoadFile reads orders from a JSON or JSON Lines file. Timestamps without
// an offset are read in loc (nil means time.Local).
func LoadFile(path string, loc *time.Location) ([]Order, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer func() { _ = f.Close() }()
	return ParseOrders(f, loc)
}

// ParseOrders decodes orders from r. Accepted layouts are a JSON array of
// records, an object wrapping the array under "orders" or "data", and a
// stream of record objects (JSON Lines). Records that are not objects are
// skipped; nothing about a single record makes the whole load fail.
// Timestamps without an offset are wall-clock times in loc (nil means
// time.Local).
func ParseOrders(r io.Reader, loc *time.Location) ([]Order, LoadStats, error) {
	var stats LoadStats

	records, err := splitRecords(r)
	if err != nil {
		return nil, stats, err
	}

	orders := make([]Order, 0, len(records))
	for _, rec := range records {
		stats.Records++
		var raw rawOrder
		if bytes.Equal(bytes.TrimSpace(rec), []byte("null")) {
			stats.Skipped++
			continue
		}
		if err := json.Unmarshal(rec, &raw); err != nil {
			stats.Skipped++
			continue
		}
		o := normalize(raw, loc)
		if !o.HasTimestamp() {
			stats.MalformedDates++
		}
		if o.Status == StatusUnknown {
			stats.UnknownStatuses++
		}
		orders = append(orders, o)
	}
	return orders, stats, nil
}

// splitRecords flattens every supported layout into individual raw records.
func splitRecords(r io.Reader) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	var records []json.RawMessage
	for {
		var v json.RawMessage
		err := dec.Decode(&v)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding orders: %w", err)
		}

		v = bytes.TrimSpace(v)
		if len(v) == 0 {
			continue
		}
		switch v[0] {
		case '[':
			var arr []json.RawMessage
			if err := json.Unmarshal(v, &arr); err != nil {
				return nil, fmt.Errorf("decoding order array: %w", err)
			}
			records = append(records, arr...)
		case '{':
			if wrapped, ok := unwrapEnvelope(v); ok {
				records = append(records, wrapped...)
			} else {
				records = append(records, v)
			}
		default:
			return nil, ErrUnsupportedFormat
		}
	}
	return records, nil
}

// unwrapEnvelope returns the records of {"orders": [...]} or {"data": [...]}.
func unwrapEnvelope(v json.RawMessage) ([]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err != nil {
		return nil, false
	}
	for _, key := range []string{"orders", "data"} {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(inner, &arr); err == nil {
			return arr, true
		}
	}
	return nil, false
}

func normalize(raw rawOrder, loc *time.Location) Order {
	return Order{
		ID:        rawString(raw.ID),
		CreatedAt: ParseTimestamp(rawString(raw.CreatedAt), loc),
		Status:    ParseStatus(raw.Status),
		Total:     normalizeTotal(raw.TotalAmount, raw.Total),
	}
}

// normalizeTotal prefers total_amount, falls back to total, and treats a
// missing, unparsable or negative amount as zero.
func normalizeTotal(candidates ...json.RawMessage) decimal.Decimal {
	for _, c := range candidates {
		d, ok := parseAmount(c)
		if !ok {
			continue
		}
		if d.IsNegative() {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	s := strings.TrimSpace(rawString(raw))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// rawString returns the text of a JSON string or the literal of any other
// scalar. null and absent values yield "".
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return ""
		}
		return out
	}
	if raw[0] == '{' || raw[0] == '[' {
		return ""
	}
	return string(raw)
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 style timestamp. Layouts without an
// offset are local times in loc (nil means time.Local), so an order keeps the
// calendar date it was written with. It returns the zero time when s matches
// none of the supported layouts.
func ParseTimestamp(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
