package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// Summary aggregates clarification metrics over a window.
type Summary struct {
	Window             string             `json:"window"`
	SessionsStarted    float64            `json:"sessions_started"`
	Rounds             map[string]float64 `json:"rounds"`              // by outcome
	Fallbacks          map[string]float64 `json:"fallbacks"`           // by reason
	ReadinessBySource  map[string]float64 `json:"readiness_by_source"` // by decision source
	LLMRequestsByModel map[string]float64 `json:"llm_requests_by_model"`
}

// QueryService reads clarifier metrics back from a Prometheus server.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a query service for prometheusURL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetSummary aggregates counter increases over window (e.g. 24h).
func (q *QueryService) GetSummary(ctx context.Context, window time.Duration) (*Summary, error) {
	rng := model.Duration(window).String()
	summary := &Summary{Window: rng}

	started, err := q.scalar(ctx, fmt.Sprintf(`sum(increase(%s[%s]))`, MetricSessionsStarted, rng))
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions started: %w", err)
	}
	summary.SessionsStarted = started

	if summary.Rounds, err = q.byLabel(ctx, MetricClarifyRounds, "outcome", rng); err != nil {
		return nil, fmt.Errorf("failed to query clarification rounds: %w", err)
	}
	if summary.Fallbacks, err = q.byLabel(ctx, MetricQuestionFallbacks, "reason", rng); err != nil {
		return nil, fmt.Errorf("failed to query fallbacks: %w", err)
	}
	if summary.ReadinessBySource, err = q.byLabel(ctx, MetricReadinessDecisions, "source", rng); err != nil {
		return nil, fmt.Errorf("failed to query readiness decisions: %w", err)
	}
	if summary.LLMRequestsByModel, err = q.byLabel(ctx, "clarifier_llm_requests_total", "model", rng); err != nil {
		return nil, fmt.Errorf("failed to query llm requests: %w", err)
	}
	return summary, nil
}

func (q *QueryService) scalar(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return float64(vector[0].Value), nil
	}
	return 0, nil
}

func (q *QueryService) byLabel(ctx context.Context, metric, label, rng string) (map[string]float64, error) {
	query := fmt.Sprintf(`sum by (%s) (increase(%s[%s]))`, label, metric, rng)
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	if vector, ok := result.(model.Vector); ok {
		for _, sample := range vector {
			out[string(sample.Metric[model.LabelName(label)])] = float64(sample.Value)
		}
	}
	return out, nil
}
