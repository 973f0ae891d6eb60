// Package simulate generates synthetic order histories for demos and for
// exercising ingestion against the field spellings seen in older exports.
package simulate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/orderwatch/internal/order"
)

// Mix weights statuses. Weights need not sum to 1.
type Mix map[order.Status]float64

// DefaultMix resembles a healthy storefront.
var DefaultMix = Mix{
	order.StatusPending:    0.10,
	order.StatusProcessing: 0.05,
	order.StatusShipped:    0.15,
	order.StatusDelivered:  0.60,
	order.StatusCancelled:  0.06,
	order.StatusReturned:   0.04,
}

// Options controls generation. Zero fields take the defaults noted.
type Options struct {
	Count int       // default 100
	Days  int       // span back from Now, default 90
	Now   time.Time // default time.Now
	Seed  int64
	Mix   Mix // default DefaultMix

	// Location is the zone legacy records write their naive timestamps in,
	// default UTC.
	Location *time.Location

	MinTotal int // whole currency units, default 5
	MaxTotal int // default 250

	// LegacyRatio is the share of records written the way older exports
	// did: amount under "total" as a string, an alias status spelling and
	// a naive timestamp.
	LegacyRatio float64

	// MalformedRatio is the share of records with an unparsable created_at.
	MalformedRatio float64

	// SequentialIDs replaces cuids with ord-000001 style ids.
	SequentialIDs bool
}

// Record is one raw order as written to disk.
type Record struct {
	ID          string `json:"id"`
	CreatedAt   string `json:"created_at"`
	Status      string `json:"status"`
	TotalAmount any    `json:"total_amount,omitempty"`
	Total       any    `json:"total,omitempty"`
	Customer    string `json:"customer,omitempty"`
	Email       string `json:"email,omitempty"`
}

var statusAliases = map[order.Status][]string{
	order.StatusPending:    {"placed", "Awaiting Payment"},
	order.StatusProcessing: {"confirmed", "Preparing"},
	order.StatusShipped:    {"in-transit", "SHIPPED"},
	order.StatusDelivered:  {"completed", "Complete"},
	order.StatusCancelled:  {"canceled", "Cancelled"},
	order.StatusReturned:   {"refunded"},
}

func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = 100
	}
	if o.Days <= 0 {
		o.Days = 90
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if len(o.Mix) == 0 {
		o.Mix = DefaultMix
	}
	if o.MinTotal <= 0 {
		o.MinTotal = 5
	}
	if o.MaxTotal <= o.MinTotal {
		o.MaxTotal = o.MinTotal + 245
	}
	return o
}

// Generate returns opts.Count records. Everything except cuid ids is a
// function of opts, so a fixed Seed and Now reproduce the same history.
func Generate(opts Options) []Record {
	opts = opts.withDefaults()
	fake := faker.NewWithSeed(rand.NewSource(opts.Seed))

	from := opts.Now.Add(-time.Duration(opts.Days) * 24 * time.Hour)
	records := make([]Record, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		status := pick(opts.Mix, unit(fake))
		created := fake.Time().TimeBetween(from, opts.Now).UTC()
		amount := decimal.NewFromFloat(fake.Float64(2, opts.MinTotal, opts.MaxTotal)).StringFixed(2)

		rec := Record{
			ID:       recordID(opts, i),
			Customer: fake.Person().Name(),
			Email:    fake.Internet().Email(),
		}

		if unit(fake) < opts.LegacyRatio {
			rec.Status = alias(fake, status)
			rec.CreatedAt = created.In(opts.Location).Format("2006-01-02 15:04:05")
			rec.Total = amount
		} else {
			rec.Status = string(status)
			rec.CreatedAt = created.Format(time.RFC3339)
			rec.TotalAmount = json.Number(amount)
		}

		if unit(fake) < opts.MalformedRatio {
			rec.CreatedAt = "not-a-date"
		}

		records = append(records, rec)
	}
	return records
}

// unit draws from [0, 1).
func unit(fake faker.Faker) float64 {
	return float64(fake.IntBetween(0, 999999)) / 1e6
}

func recordID(opts Options, i int) string {
	if opts.SequentialIDs {
		return fmt.Sprintf("ord-%06d", i+1)
	}
	return cuid.New()
}

// pick maps r in [0, 1) onto the cumulative weights of mix, walking
// statuses in lifecycle order.
func pick(mix Mix, r float64) order.Status {
	var sum float64
	for _, s := range order.AllStatuses {
		sum += mix[s]
	}
	if sum <= 0 {
		return order.StatusDelivered
	}

	target := r * sum
	var acc float64
	last := order.StatusDelivered
	for _, s := range order.AllStatuses {
		w := mix[s]
		if w <= 0 {
			continue
		}
		acc += w
		last = s
		if target < acc {
			return s
		}
	}
	return last
}

func alias(fake faker.Faker, s order.Status) string {
	names := statusAliases[s]
	if len(names) == 0 {
		return string(s)
	}
	return names[fake.IntBetween(0, len(names)-1)]
}

// ParseMix parses "delivered=60,cancelled=20,pending=20". Status names go
// through order.ParseStatus, so aliases are accepted.
func ParseMix(s string) (Mix, error) {
	mix := make(Mix)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, weight, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("mix entry %q: want status=weight", part)
		}
		status := order.ParseStatus(name)
		if !status.Known() {
			return nil, fmt.Errorf("mix entry %q: unknown status", part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("mix entry %q: weight must be a non-negative number", part)
		}
		mix[status] += w
	}
	if len(mix) == 0 {
		return nil, errors.New("empty status mix")
	}
	return mix, nil
}

// Format selects the output layout of Write.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// Write encodes records to w as an indented JSON array or as JSON Lines.
func Write(w io.Writer, records []Record, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if records == nil {
			records = []Record{}
		}
		return enc.Encode(records)
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
