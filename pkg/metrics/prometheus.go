package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names, shared with QueryService.
const (
	MetricSessionsStarted    = "clarifier_sessions_started_total"
	MetricClarifyRounds      = "clarifier_clarification_rounds_total"
	MetricQuestionFallbacks  = "clarifier_question_fallbacks_total"
	MetricReadinessDecisions = "clarifier_readiness_decisions_total"
	MetricTransitions        = "clarifier_status_transitions_total"
)

// PrometheusRecorder implements Recorder with Prometheus counters.
type PrometheusRecorder struct {
	sessionsStarted    prometheus.Counter
	clarifyRounds      *prometheus.CounterVec
	questionFallbacks  *prometheus.CounterVec
	readinessDecisions *prometheus.CounterVec
	transitions        *prometheus.CounterVec
}

// NewPrometheusRecorder registers the clarification collectors with reg
// (the default registerer when nil).
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: MetricSessionsStarted,
			Help: "Sessions created by Start",
		}),
		clarifyRounds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricClarifyRounds,
			Help: "Answers processed, by reply status",
		}, []string{"outcome"}),
		questionFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricQuestionFallbacks,
			Help: "Question batches replaced by the fallback list, by reason",
		}, []string{"reason"}),
		readinessDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricReadinessDecisions,
			Help: "Readiness evaluations, by decision source and verdict",
		}, []string{"source", "ready"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricTransitions,
			Help: "Session status transitions",
		}, []string{"from", "to"}),
	}
}

func (p *PrometheusRecorder) SessionStarted() {
	p.sessionsStarted.Inc()
}

func (p *PrometheusRecorder) ClarificationRound(outcome string) {
	p.clarifyRounds.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) QuestionFallback(reason string) {
	p.questionFallbacks.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) ReadinessDecision(source string, ready bool) {
	p.readinessDecisions.WithLabelValues(source, strconv.FormatBool(ready)).Inc()
}

func (p *PrometheusRecorder) Transition(from, to string) {
	p.transitions.WithLabelValues(from, to).Inc()
}
