package app

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/simulate"
	"github.com/blackwell-systems/orderwatch/internal/store"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

const testNow = "2026-10-18T12:00:00Z"

const fixtureOrders = `[
  {"id": "d1", "created_at": "2026-10-17T10:00:00Z", "status": "delivered", "total_amount": 10},
  {"id": "d2", "created_at": "2026-10-16T10:00:00Z", "status": "delivered", "total_amount": "20.00"},
  {"id": "d3", "created_at": "2026-10-15T10:00:00Z", "status": "delivered", "total": 30},
  {"id": "d4", "created_at": "2026-10-15T11:00:00Z", "status": "complete", "total_amount": 40},
  {"id": "c1", "created_at": "2026-10-14T09:00:00Z", "status": "cancelled", "total_amount": 15},
  {"id": "c2", "created_at": "2026-10-13T09:00:00Z", "status": "canceled", "total_amount": 5},
  {"id": "p1", "created_at": "2026-10-12T09:00:00Z", "status": "pending", "total_amount": 25},
  {"id": "old", "created_at": "2026-07-10T09:00:00Z", "status": "delivered", "total_amount": 100},
  {"id": "bad", "created_at": "yesterday", "status": "returned", "total_amount": 9}
]`

// testEnv isolates a command run: HOME, the database and the config file
// all live under a temp dir.
type testEnv struct {
	dir    string
	orders string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("ORDERWATCH_DATABASE", filepath.Join(dir, "orderwatch.db"))
	t.Setenv("ORDERWATCH_TIMEZONE", "UTC")

	orders := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(orders, []byte(fixtureOrders), 0o644))
	return &testEnv{dir: dir, orders: orders}
}

// run executes the command tree with args and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	base := []string{
		"--config", filepath.Join(e.dir, "config.yaml"),
		"--now", testNow,
		"--no-color",
	}
	if !containsFlag(args, "--orders") {
		base = append(base, "--orders", e.orders)
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append(args, base...))
	err := rootCmd.Execute()
	return out.String(), err
}

func containsFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name || strings.HasPrefix(a, name+"=") {
			return true
		}
	}
	return false
}

// resetFlags restores every flag in the tree to its default. Cobra keeps
// flag values in package variables between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestCommands_Registered(t *testing.T) {
	want := []string{"insights", "trend", "recommend", "orders", "import", "generate", "track", "watch", "serve", "mcp", "doctor"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "missing command %s", name)
	}
}

func TestInsights_JSON(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "insights", "--json")
	require.NoError(t, err)

	var got insightsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, insights.WindowLast30Days, got.Window)
	assert.Equal(t, 7, got.Summary.TotalOrders)
	assert.Equal(t, 2, got.Summary.Excluded)
	assert.True(t, got.Summary.Revenue.Equal(decimal.NewFromInt(145)), got.Summary.Revenue.String())
	assert.Equal(t, 4, got.Summary.StatusCounts[order.StatusDelivered])
	assert.Equal(t, 2, got.Summary.StatusCounts[order.StatusCancelled])
	require.NotEmpty(t, got.Recommendations)
	assert.Equal(t, "high_cancellation", got.Recommendations[0].Rule)
}

func TestInsights_WindowFlag(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "insights", "--json", "-w", "all")
	require.NoError(t, err)

	var got insightsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, insights.WindowAllTime, got.Window)
	assert.Equal(t, 9, got.Summary.TotalOrders)
}

func TestInsights_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "High Cancellation Rate")
	assert.Contains(t, out, "delivered")
}

func TestInsights_AllWindows(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "insights", "--all-windows", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"last_7_days"`)
	assert.Contains(t, out, `"all_time"`)
}

func TestInsights_BadWindow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "insights", "-w", "fortnight")
	require.Error(t, err)
}

func TestInsights_BadNow(t *testing.T) {
	env := newTestEnv(t)
	resetFlags(rootCmd)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs([]string{"insights", "--config", filepath.Join(env.dir, "config.yaml"), "--orders", env.orders, "--now", "soon"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--now")
}

func TestTrend_SparseAndFilled(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "trend", "--json", "-w", "7d")
	require.NoError(t, err)
	var sparse trendOutput
	require.NoError(t, json.Unmarshal([]byte(out), &sparse))
	assert.Equal(t, insights.GranularityDay, sparse.Granularity)
	require.Len(t, sparse.Buckets, 6)
	assert.Equal(t, "2026-10-12", sparse.Buckets[0].Key)
	assert.Equal(t, "2026-10-15", sparse.Buckets[3].Key)
	assert.Equal(t, 2, sparse.Buckets[3].OrderCount)

	out, err = env.run(t, "trend", "--json", "-w", "7d", "--fill-gaps")
	require.NoError(t, err)
	var filled trendOutput
	require.NoError(t, json.Unmarshal([]byte(out), &filled))
	require.Len(t, filled.Buckets, 8)
	assert.Equal(t, "2026-10-11", filled.Buckets[0].Key)
	assert.Equal(t, "2026-10-18", filled.Buckets[7].Key)
}

func TestRecommend_SeverityFilter(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "recommend", "--json", "--severity", "high")
	require.NoError(t, err)

	var recs []suggest.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.NotEmpty(t, recs)
	for _, r := range recs {
		assert.Equal(t, suggest.SeverityHigh, r.Severity)
	}

	out, err = env.run(t, "recommend", "--json", "--severity", "positive")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestOrders_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "orders", "--json", "--status", "canceled")
	require.NoError(t, err)

	var list []order.Order
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)
	assert.Equal(t, "c2", list[1].ID)

	_, err = env.run(t, "orders", "--status", "lost")
	require.Error(t, err)
}

func TestImport_ThenDatabaseSource(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "import", env.orders, "--json")
	require.NoError(t, err)

	var res importOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 9, res.Store.Upserted)
	assert.Equal(t, 9, res.Total)
	assert.Equal(t, 1, res.Load.MalformedDates)

	out, err = env.run(t, "insights", "--json", "--source", "db")
	require.NoError(t, err)
	var got insightsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 7, got.Summary.TotalOrders)
}

func TestGenerate_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "generated.json")

	_, err := env.run(t, "generate", "--count", "25", "--sequential-ids", "--seed", "7", "-o", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	orders, stats, err := order.ParseOrders(f, time.UTC)
	require.NoError(t, err)
	assert.Len(t, orders, 25)
	assert.Zero(t, stats.MalformedDates)
	assert.Equal(t, "ord-000001", orders[0].ID)

	out, err := env.run(t, "insights", "--json", "-w", "all", "--orders", path)
	require.NoError(t, err)
	var got insightsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 25, got.Summary.TotalOrders)
}

func TestGenerate_Stdout(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "generate", "--count", "3", "--format", "jsonl", "--sequential-ids")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	var rec simulate.Record
	require.NoError(t, json.Unmarshal([]byte(strings.Split(out, "\n")[0]), &rec))
	assert.Equal(t, "ord-000001", rec.ID)
}

func TestGenerate_BadRatio(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "generate", "--legacy", "1.5")
	require.Error(t, err)
}

func TestTrack_FirstThenCompare(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "track", "--json")
	require.NoError(t, err)
	var first trackOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	require.NotNil(t, first.Snapshot)
	assert.Nil(t, first.Diff)
	assert.Equal(t, "last_30_days", first.Snapshot.Window)
	require.NotEmpty(t, first.Recommendations)

	out, err = env.run(t, "track", "--json")
	require.NoError(t, err)
	var second trackOutput
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	require.NotNil(t, second.Diff)
	assert.Equal(t, first.Snapshot.ID, second.Diff.Previous.ID)
	for _, d := range second.Diff.Deltas {
		assert.Equal(t, store.DirectionUnchanged, d.Direction, d.Name)
	}
	// Still-firing rules are carried forward, not duplicated.
	assert.Len(t, second.Recommendations, len(first.Recommendations))

	out, err = env.run(t, "track", "--history", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Metric History")
	assert.Contains(t, out, "Cancellation %")
}

func TestTrack_TextFirstSnapshot(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "track")
	require.NoError(t, err)
	assert.Contains(t, out, "First snapshot recorded")
	assert.Contains(t, out, "High Cancellation Rate")
}

func TestTrack_Resolve(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "track", "--json")
	require.NoError(t, err)
	var first trackOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	require.NotEmpty(t, first.Recommendations)
	id := first.Recommendations[0].ID

	out, err = env.run(t, "track", "--resolve", strconv.FormatInt(id, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "Resolved recommendation")

	_, err = env.run(t, "track", "--resolve", strconv.FormatInt(id, 10))
	assert.ErrorIs(t, err, store.ErrNoRecommendation)
}

func TestDoctor_JSON(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "doctor", "--json")
	require.NoError(t, err)

	var got doctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	checks := map[string]doctorCheck{}
	for _, c := range got.Checks {
		checks[c.Name] = c
	}
	assert.True(t, checks["Configuration"].Passed)
	assert.True(t, checks["Orders file"].Passed)
	assert.False(t, checks["Order data"].Passed)
	assert.True(t, checks["Timezone"].Passed)
	assert.True(t, checks["SQLite database"].Passed, "missing db is fine for the file source")
	assert.False(t, checks["Watch daemon"].Passed)
	assert.Equal(t, len(got.Checks), got.TotalCount)
}

func TestDoctor_MissingOrders(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "doctor", "--json", "--orders", filepath.Join(env.dir, "nope.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "not found")
}

func TestWatch_IntervalTooShort(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "watch", "--interval", "1s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least")

	_, err = env.run(t, "watch", "--interval", "soon")
	require.Error(t, err)
}

func TestWatchStop_NoDaemon(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "watch", "--stop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no daemon running")
}

func TestWatchStop_StalePIDFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(pidFilePath()), 0o755))
	// PIDs are never this large on Linux or macOS.
	require.NoError(t, os.WriteFile(pidFilePath(), []byte("999999999\n"), 0o644))

	_, err := env.run(t, "watch", "--stop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale")
	_, statErr := os.Stat(pidFilePath())
	assert.True(t, os.IsNotExist(statErr))
}
