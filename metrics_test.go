package goAccount

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func latencyMetrics() *Metrics {
	return NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
}

func TestMetricsCounting(t *testing.T) {
	t.Run("disabled ignores writes", func(t *testing.T) {
		m := NewMetrics(MetricsConfig{})
		m.Inc(MetricLoginSuccess)
		assert.Zero(t, m.Value(MetricLoginSuccess))
		assert.Empty(t, m.Snapshot().Counters)
	})

	t.Run("nil is inert", func(t *testing.T) {
		var m *Metrics
		m.Inc(MetricLogout)
		m.Observe(MetricAuthenticateLatency, time.Millisecond)
		assert.False(t, m.Enabled())
		assert.Zero(t, m.Value(MetricLogout))
	})

	t.Run("enabled counts", func(t *testing.T) {
		m := NewMetrics(MetricsConfig{Enabled: true})
		for range 3 {
			m.Inc(MetricCSRFRejected)
		}
		assert.Equal(t, uint64(3), m.Value(MetricCSRFRejected))
		assert.Zero(t, m.Value(MetricLogout))
	})

	t.Run("out of range id", func(t *testing.T) {
		m := NewMetrics(MetricsConfig{Enabled: true})
		m.Inc(metricIDCount)
		assert.Zero(t, m.Value(metricIDCount))
	})
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers, perWorker = 24, 5000
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				m.Inc(MetricSessionCreated)
				m.Observe(MetricAuthenticateLatency, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(workers*perWorker), m.Value(MetricSessionCreated))
}

func TestLatencyBuckets(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{5*time.Millisecond + time.Nanosecond, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{700 * time.Millisecond, 7},
		{time.Minute, 7},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, bucketIndex(tc.d), "duration %s", tc.d)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := latencyMetrics()
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)
	m.Observe(MetricAuthenticateLatency, 2*time.Millisecond)
	m.Observe(MetricAuthenticateLatency, 40*time.Millisecond)
	m.Observe(MetricAuthenticateLatency, time.Second)

	snap := m.Snapshot()
	assert.Len(t, snap.Counters, int(metricIDCount))
	assert.Equal(t, uint64(1), snap.Counters[MetricLoginSuccess])
	assert.Equal(t, uint64(2), snap.Counters[MetricLoginFailure])

	buckets := snap.Histograms[MetricAuthenticateLatency]
	require.Len(t, buckets, histBucketCount)
	assert.Equal(t, []uint64{1, 0, 0, 1, 0, 0, 0, 1}, buckets)

	// The snapshot is a copy.
	m.Inc(MetricLoginSuccess)
	assert.Equal(t, uint64(1), snap.Counters[MetricLoginSuccess])
}

func TestObserveOnlyFeedsLatency(t *testing.T) {
	m := latencyMetrics()
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	assert.NotContains(t, snap.Histograms, MetricLoginSuccess)
	assert.Zero(t, snap.Counters[MetricLoginSuccess])
	assert.Equal(t, make([]uint64, histBucketCount), snap.Histograms[MetricAuthenticateLatency])
}

func TestLatencyDisabledOmitsHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricAuthenticateLatency, time.Millisecond)

	assert.False(t, m.LatencyEnabled())
	assert.Empty(t, m.Snapshot().Histograms)
}

func TestLatencyRequiresMetricsEnabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{EnableLatencyHistograms: true})
	assert.False(t, m.LatencyEnabled())
}
