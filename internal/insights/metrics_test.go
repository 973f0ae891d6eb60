package insights

import (
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/blackwell-systems/orderwatch/internal/order"
)

func TestComputeMetrics_NoOrders(t *testing.T) {
	m := ComputeMetrics(nil, nil, testNow)

	assert.True(t, m.AverageOrderValue.IsZero())
	assert.Equal(t, 0.0, m.CompletionRate)
	assert.Equal(t, 0.0, m.CancellationRate)
	assert.Equal(t, 0.0, m.ReturnRate)
	assert.Equal(t, Frequency{Value: 0, Period: PeriodDay}, m.Frequency)
}

func TestComputeMetrics_AllDelivered(t *testing.T) {
	var orders []order.Order
	for i := 0; i < 10; i++ {
		orders = append(orders, mkOrder(fmt.Sprintf("a-%d", i), float64(i%3)+0.25, order.StatusDelivered, 100))
	}

	m := ComputeMetrics(orders, nil, testNow)
	assert.Equal(t, 100.0, m.CompletionRate)
	assert.Equal(t, 0.0, m.CancellationRate)
	assert.True(t, m.AverageOrderValue.Equal(decimal.NewFromInt(100)), m.AverageOrderValue.String())
	assert.Equal(t, PeriodDay, m.Frequency.Period)
}

func TestComputeMetrics_Cancellations(t *testing.T) {
	var orders []order.Order
	for i := 0; i < 20; i++ {
		status := order.StatusDelivered
		if i < 4 {
			status = order.StatusCancelled
		}
		orders = append(orders, mkOrder(fmt.Sprintf("b-%d", i), 1, status, 50))
	}

	m := ComputeMetrics(orders, nil, testNow)
	assert.Equal(t, 20.0, m.CancellationRate)
	assert.Equal(t, 100.0, m.CompletionRate, "cancelled orders leave the completion denominator")
}

func TestComputeMetrics_MonthlyFrequency(t *testing.T) {
	orders := []order.Order{
		mkOrder("c-1", 45, order.StatusDelivered, 10),
		mkOrder("c-2", 20, order.StatusDelivered, 10),
		mkOrder("c-3", 2, order.StatusDelivered, 10),
	}

	assert.Equal(t, 45.0, SpanDays(orders, testNow))

	m := ComputeMetrics(orders, nil, testNow)
	assert.Equal(t, PeriodMonth, m.Frequency.Period)
	assert.InDelta(t, 2.0, m.Frequency.Value, 1e-9)
}

func TestComputeMetrics_WeeklyFrequency(t *testing.T) {
	orders := []order.Order{
		mkOrder("w-1", 14, order.StatusShipped, 10),
		mkOrder("w-2", 3, order.StatusShipped, 10),
	}

	m := ComputeMetrics(orders, nil, testNow)
	assert.Equal(t, PeriodWeek, m.Frequency.Period)
	assert.InDelta(t, 1.0, m.Frequency.Value, 1e-9)
}

func TestComputeMetrics_AllCancelled(t *testing.T) {
	orders := []order.Order{
		mkOrder("x-1", 1, order.StatusCancelled, 10),
		mkOrder("x-2", 2, order.StatusCancelled, 10),
	}

	m := ComputeMetrics(orders, nil, testNow)
	assert.Equal(t, 0.0, m.CompletionRate)
	assert.Equal(t, 100.0, m.CancellationRate)
	assert.False(t, math.IsNaN(m.CompletionRate))
}

func TestComputeMetrics_ReturnRateAndAOVRounding(t *testing.T) {
	orders := []order.Order{
		mkOrder("r-1", 1, order.StatusReturned, 10),
		mkOrder("r-2", 1, order.StatusDelivered, 10),
		mkOrder("r-3", 1, order.StatusDelivered, 0),
	}

	m := ComputeMetrics(orders, nil, testNow)
	assert.InDelta(t, 33.333, m.ReturnRate, 0.001)
	assert.Equal(t, "6.67", m.AverageOrderValue.StringFixed(2))
	assert.InDelta(t, 66.667, m.CompletionRate, 0.001)
}

func TestComputeMetrics_RatesInRange(t *testing.T) {
	statuses := []order.Status{
		order.StatusPending, order.StatusProcessing, order.StatusShipped,
		order.StatusDelivered, order.StatusCancelled, order.StatusReturned, order.StatusUnknown,
	}
	for n := 1; n <= 30; n++ {
		var orders []order.Order
		for i := 0; i < n; i++ {
			orders = append(orders, mkOrder("", float64(i*n%50), statuses[(i+n)%len(statuses)], int64(i)))
		}
		m := ComputeMetrics(orders, nil, testNow)
		for _, rate := range []float64{m.CompletionRate, m.CancellationRate, m.ReturnRate} {
			assert.GreaterOrEqual(t, rate, 0.0)
			assert.LessOrEqual(t, rate, 100.0)
		}
		assert.Greater(t, m.Frequency.Value, 0.0)
	}
}

func TestSpanDays_MinimumOne(t *testing.T) {
	orders := []order.Order{mkOrder("now", 0, order.StatusPending, 1)}
	assert.Equal(t, 1.0, SpanDays(orders, testNow))
	assert.Equal(t, 1.0, SpanDays(nil, testNow))

	orders = []order.Order{mkOrder("partial", 2.1, order.StatusPending, 1)}
	assert.Equal(t, 3.0, SpanDays(orders, testNow))
}
