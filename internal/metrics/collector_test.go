package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector()

	c.RecordTrade("buy", 1000)
	c.RecordTrade("buy", 500)
	c.RecordTrade("sell", 200)
	c.SetActivePools(3)
	c.RecordGraduation("cpamm", 20*time.Millisecond, true)
	c.RecordGraduation("clmm", 0, false)
	c.AddDroppedEvents(0)
	c.AddDroppedEvents(4)
	c.RecordSweep(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.trades.WithLabelValues("buy")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(c.volume.WithLabelValues("buy")))
	assert.Equal(t, 200.0, testutil.ToFloat64(c.volume.WithLabelValues("sell")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.activePools))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.graduations.WithLabelValues("success", "cpamm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.graduations.WithLabelValues("failure", "clmm")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.droppedEvents))
	assert.Equal(t, 1, testutil.CollectAndCount(c.graduationDuration))

	c.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(c.trades))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordTrade("sell", 7)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `launchpad_trades_total{side="sell"} 1`)
}

func TestCollector_Independent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.RecordTrade("buy", 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.trades.WithLabelValues("buy")))
}
