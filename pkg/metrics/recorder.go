// Package metrics records clarification-flow metrics and queries them back from Prometheus.
package metrics

// Recorder observes the clarification flow.
type Recorder interface {
	// SessionStarted counts a persisted Start.
	SessionStarted()
	// ClarificationRound counts a persisted Clarify by its reply status.
	ClarificationRound(outcome string)
	// QuestionFallback counts a synthesis that returned the fallback list.
	QuestionFallback(reason string)
	// ReadinessDecision counts a readiness evaluation by its source.
	ReadinessDecision(source string, ready bool)
	// Transition counts a status change.
	Transition(from, to string)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

// Nop returns a recorder that discards all metrics.
func Nop() Recorder {
	return NoopRecorder{}
}

func (NoopRecorder) SessionStarted()                {}
func (NoopRecorder) ClarificationRound(string)      {}
func (NoopRecorder) QuestionFallback(string)        {}
func (NoopRecorder) ReadinessDecision(string, bool) {}
func (NoopRecorder) Transition(string, string)      {}
