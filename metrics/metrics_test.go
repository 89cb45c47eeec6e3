package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupark12/fiado/models"
)

func TestObserveRows(t *testing.T) {
	m := New()
	m.ObserveRows([]models.Transaction{
		{Type: models.Debit, Amount: decimal.RequireFromString("120.50")},
		{Type: models.Debit, Amount: decimal.RequireFromString("30")},
		{Type: models.Credit, Amount: decimal.RequireFromString("100")},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransactionsRecorded.WithLabelValues("deuda")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsRecorded.WithLabelValues("pago")))
	assert.InDelta(t, 150.5, testutil.ToFloat64(m.AmountRecorded.WithLabelValues("deuda")), 1e-9)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveImport(models.StatusCompleted)
	m.OpenSessions.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fiado_import_jobs_total{status="completed"} 1`)
	assert.Contains(t, string(body), "fiado_entry_sessions_open 1")
}
