// Package metrics records conversation and collaborator metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives conversation events.
type Recorder interface {
	ConversationStarted()
	Classified(intent string)
	Finalized(editing bool)
	Action(action, outcome string)
	ObserveCall(call string, success bool, duration time.Duration)
}

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	conversationsTotal prometheus.Counter
	classifiedTotal    *prometheus.CounterVec
	finalizedTotal     *prometheus.CounterVec
	actionsTotal       *prometheus.CounterVec
	callDuration       *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		conversationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "jobpost_conversations_started_total",
			Help: "Total number of conversations started",
		}),
		classifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpost_classifications_total",
				Help: "Total number of classified conversation turns by intent",
			},
			[]string{"intent"},
		),
		finalizedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpost_finalized_total",
				Help: "Total number of conversations that reached confirmation",
			},
			[]string{"edited"},
		),
		actionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpost_actions_total",
				Help: "Total number of confirmation actions by outcome",
			},
			[]string{"action", "outcome"},
		),
		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobpost_collaborator_call_duration_seconds",
				Help:    "Duration of outbound collaborator calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"call", "status"},
		),
	}
}

func (p *PrometheusRecorder) ConversationStarted() {
	p.conversationsTotal.Inc()
}

func (p *PrometheusRecorder) Classified(intent string) {
	p.classifiedTotal.WithLabelValues(intent).Inc()
}

func (p *PrometheusRecorder) Finalized(editing bool) {
	edited := "false"
	if editing {
		edited = "true"
	}
	p.finalizedTotal.WithLabelValues(edited).Inc()
}

func (p *PrometheusRecorder) Action(action, outcome string) {
	p.actionsTotal.WithLabelValues(action, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveCall(call string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	p.callDuration.WithLabelValues(call, status).Observe(duration.Seconds())
}

// Nop discards everything.
type Nop struct{}

func (Nop) ConversationStarted()                    {}
func (Nop) Classified(string)                       {}
func (Nop) Finalized(bool)                          {}
func (Nop) Action(string, string)                   {}
func (Nop) ObserveCall(string, bool, time.Duration) {}
