package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("medscan", reg)

	m.ReportsStructured.WithLabelValues("rules").Inc()
	m.Fallbacks.WithLabelValues("ai_timeout").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "medscan_extraction_reports_total")
	assert.Contains(t, names, "medscan_extraction_fallbacks_total")
}

func TestCacheObserver(t *testing.T) {
	m := New("medscan", nil)
	obs := m.CacheObserver()

	obs.Hit()
	obs.Hit()
	obs.Miss()
	obs.Evicted()
	obs.Size(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheOperations.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOperations.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOperations.WithLabelValues("evicted")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.CacheEntries))
}
