package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/taxlots/history"
	"github.com/robinvdvleuten/taxlots/lots"
)

func TestMetrics_Observer(t *testing.T) {
	m := New()

	m.RecordProcessed(history.Acquisition)
	m.RecordProcessed(history.Acquisition)
	m.RecordProcessed(history.Disposal)
	m.RecordSkipped("outside_year")

	m.Disposed("ETH", &lots.Disposal{
		Asset:      "ETH",
		GainOrLoss: decimal.RequireFromString("12.5"),
		Consumed:   make([]lots.Portion, 2),
	})
	m.Disposed("ETH", &lots.Disposal{
		Asset:      "ETH",
		GainOrLoss: decimal.RequireFromString("-2.5"),
		Consumed:   make([]lots.Portion, 1),
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("acquisition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("disposal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedTotal.WithLabelValues("outside_year")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DisposalsTotal.WithLabelValues("ETH")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.RealizedGain.WithLabelValues("ETH")))

	m.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(m.RealizedGain))
}

func TestReplay_Commit(t *testing.T) {
	m := New()

	first := m.NewReplay()
	first.RecordProcessed(history.Disposal)
	first.Disposed("ETH", &lots.Disposal{Asset: "ETH", GainOrLoss: decimal.NewFromInt(50), Consumed: make([]lots.Portion, 1)})
	first.Disposed("BTC", &lots.Disposal{Asset: "BTC", GainOrLoss: decimal.NewFromInt(-20), Consumed: make([]lots.Portion, 3)})

	// Counters are live, the gauge waits for Commit.
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("disposal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DisposalsTotal.WithLabelValues("BTC")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.RealizedGain))

	first.Commit()
	assert.Equal(t, 50.0, testutil.ToFloat64(m.RealizedGain.WithLabelValues("ETH")))
	assert.Equal(t, -20.0, testutil.ToFloat64(m.RealizedGain.WithLabelValues("BTC")))

	// An uncommitted replay leaves the previous gauge untouched.
	failed := m.NewReplay()
	failed.Disposed("ETH", &lots.Disposal{Asset: "ETH", GainOrLoss: decimal.NewFromInt(7), Consumed: make([]lots.Portion, 1)})
	assert.Equal(t, 50.0, testutil.ToFloat64(m.RealizedGain.WithLabelValues("ETH")))

	next := m.NewReplay()
	next.Disposed("ETH", &lots.Disposal{Asset: "ETH", GainOrLoss: decimal.NewFromInt(5), Consumed: make([]lots.Portion, 1)})
	next.Commit()
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RealizedGain.WithLabelValues("ETH")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RealizedGain))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordProcessed(history.Transfer)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `taxlots_records_total{kind="transfer"} 1`))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordSkipped("invalid")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SkippedTotal.WithLabelValues("invalid")))
}
