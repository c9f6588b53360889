package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("clinic_worker")
	require.NoError(t, m.Register(reg))

	// a second registration of the same names is rejected, not a panic
	assert.Error(t, New("clinic_worker").Register(reg))

	m.OutboxEventsProcessed.Inc()
	m.OutboxEventsProcessed.Inc()
	m.NotificationsSent.WithLabelValues("appointment.created", "sent").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), values["clinic_worker_outbox_events_processed_total"])
	assert.Equal(t, float64(1), values["clinic_worker_notifications_sent_total"])
}
