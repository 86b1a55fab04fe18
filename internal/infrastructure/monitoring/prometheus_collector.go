package monitoring

import (
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exposes the orchestration and tracking metrics.
type PrometheusCollector struct {
	tokensIssuedTotal    prometheus.Counter
	consultationsActive  prometheus.Gauge
	consultationDuration prometheus.Histogram
	providerUp           *prometheus.GaugeVec
	healthCheckDuration  prometheus.Histogram
	technicalIssuesTotal *prometheus.CounterVec
	participantsOnline   *prometheus.GaugeVec
	sweepReclaimedTotal  prometheus.Counter
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		tokensIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consult_tokens_issued_total",
			Help: "Total number of meeting tokens issued",
		}),

		consultationsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "consult_consultations_active",
			Help: "Number of consultations currently active",
		}),

		consultationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "consult_consultation_duration_seconds",
			Help:    "Duration of completed consultations",
			Buckets: prometheus.ExponentialBuckets(60, 2, 8),
		}),

		providerUp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "consult_provider_up",
			Help: "Whether the video provider passed its last health check",
		}, []string{"provider"}),

		healthCheckDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "consult_health_check_duration_seconds",
			Help:    "Duration of provider health checks including retries",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),

		technicalIssuesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_technical_issues_total",
			Help: "Reported technical issues by kind",
		}, []string{"kind"}),

		participantsOnline: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "consult_participants_online",
			Help: "Participants currently online per consultation",
		}, []string{"appointment_id"}),

		sweepReclaimedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consult_sweep_reclaimed_total",
			Help: "Stale consultations reclaimed by the heartbeat sweep",
		}),
	}
}

func (c *PrometheusCollector) RecordTokenIssued() {
	c.tokensIssuedTotal.Inc()
}

func (c *PrometheusCollector) ConsultationStarted() {
	c.consultationsActive.Inc()
}

func (c *PrometheusCollector) ConsultationEnded(duration time.Duration) {
	c.consultationsActive.Dec()
	if duration > 0 {
		c.consultationDuration.Observe(duration.Seconds())
	}
}

func (c *PrometheusCollector) RecordProviderHealth(health domain.ProviderHealth, elapsed time.Duration) {
	v := 0.0
	if health.IsUp {
		v = 1.0
	}
	c.providerUp.WithLabelValues(health.Provider).Set(v)
	c.healthCheckDuration.Observe(elapsed.Seconds())
}

func (c *PrometheusCollector) RecordTechnicalIssue(kind domain.IssueKind) {
	c.technicalIssuesTotal.WithLabelValues(string(kind)).Inc()
}

func (c *PrometheusCollector) SetParticipantsOnline(id domain.AppointmentID, n int) {
	c.participantsOnline.WithLabelValues(string(id)).Set(float64(n))
}

func (c *PrometheusCollector) ClearParticipantsOnline(id domain.AppointmentID) {
	c.participantsOnline.DeleteLabelValues(string(id))
}

func (c *PrometheusCollector) RecordSweepReclaimed() {
	c.sweepReclaimedTotal.Inc()
}
