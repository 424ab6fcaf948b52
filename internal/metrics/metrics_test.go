package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := g.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, m := range family.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}

	return 0
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}

	for _, pair := range m.GetLabel() {
		if labels[pair.GetName()] != pair.GetValue() {
			return false
		}
	}

	return true
}

func TestPrometheus_WriteQueuePoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheus(reg)
	require.NoError(t, err)

	sink.WriteQueuePoint(QueuePoint{PartitionKey: "orders", Status: StatusOK, Enqueued: 2, Failed: 1})
	sink.WriteQueuePoint(QueuePoint{PartitionKey: "orders", Status: StatusOK})
	sink.WriteQueuePoint(QueuePoint{PartitionKey: "orders", Status: StatusDeadlocked})

	assert.InDelta(t, 2, counterValue(t, reg, "outbox_relay_queue_points_total",
		map[string]string{"partition_key": "orders", "status": StatusOK}), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "outbox_relay_queue_points_total",
		map[string]string{"partition_key": "orders", "status": StatusDeadlocked}), 0)
	assert.InDelta(t, 2, counterValue(t, reg, "outbox_relay_enqueued_total",
		map[string]string{"partition_key": "orders"}), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "outbox_relay_failed_total",
		map[string]string{"partition_key": "orders"}), 0)
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	_, err := NewPrometheus(reg)
	require.NoError(t, err)

	_, err = NewPrometheus(reg)
	require.Error(t, err)
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheus(reg)
	require.NoError(t, err)

	sink.WriteQueuePoint(QueuePoint{PartitionKey: "orders", Status: StatusLockTimeout})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `outbox_relay_queue_points_total{partition_key="orders",status="lock_timeout"} 1`)
}

func TestNop_DropsPoints(t *testing.T) {
	t.Parallel()

	var sink Sink = Nop{}
	sink.WriteQueuePoint(QueuePoint{PartitionKey: "orders", Status: StatusOK})
}
