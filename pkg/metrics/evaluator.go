package metrics

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlbench/pkg/compare"
	"github.com/leapstack-labs/sqlbench/pkg/verify"
)

// DefaultWorkers bounds concurrent evaluations in EvaluateBatch.
const DefaultWorkers = 4

// Request is one evaluation request.
type Request struct {
	GeneratedQuery  string     `json:"generated_query"`
	ReferenceQuery  string     `json:"reference_query"`
	QueryComplexity Complexity `json:"query_complexity"`
	DatabaseSchema  *string    `json:"database_schema,omitempty"`
	// ExecutionTimeout is the per-query timeout in milliseconds.
	ExecutionTimeout *int    `json:"execution_timeout,omitempty"`
	InferenceLatency float64 `json:"inference_latency,omitempty"`
}

// Validate checks that both queries are present and the complexity is known.
func (r Request) Validate() error {
	var errs []error
	if strings.TrimSpace(r.GeneratedQuery) == "" {
		errs = append(errs, errors.New("generated_query is required"))
	}
	if strings.TrimSpace(r.ReferenceQuery) == "" {
		errs = append(errs, errors.New("reference_query is required"))
	}
	if _, err := ParseComplexity(string(r.QueryComplexity)); err != nil {
		errs = append(errs, err)
	}
	if r.ExecutionTimeout != nil && *r.ExecutionTimeout <= 0 {
		errs = append(errs, errors.New("execution_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Response is the result of one evaluation.
type Response struct {
	Metrics         SQLMetrics `json:"metrics"`
	GeneratedQuery  string     `json:"generated_query"`
	ReferenceQuery  string     `json:"reference_query"`
	QueryComplexity Complexity `json:"query_complexity"`
	// EvaluationTime is the wall time of the evaluation in milliseconds.
	EvaluationTime float64 `json:"evaluation_time"`
}

// BatchResponse holds batch results in request order.
type BatchResponse struct {
	Responses []Response `json:"responses"`
	TotalTime float64    `json:"total_time"`
}

// Evaluator scores generated queries against references.
type Evaluator struct {
	Comparator *compare.Comparator
	Workers    int
	Logger     *slog.Logger
}

// NewEvaluator creates an Evaluator. verifier may be nil to run static
// comparison only.
func NewEvaluator(verifier *verify.Verifier, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{
		Comparator: compare.NewComparator(verifier, logger),
		Workers:    DefaultWorkers,
		Logger:     logger,
	}
}

// ExecutionEnabled reports whether evaluations run queries against a
// database.
func (e *Evaluator) ExecutionEnabled() bool {
	return e.Comparator.Verifier != nil
}

// Evaluate scores one request. Failures are reported in
// Metrics.ErrorMessages; Evaluate never returns an error.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Response {
	start := time.Now()
	resp := Response{
		GeneratedQuery:  req.GeneratedQuery,
		ReferenceQuery:  req.ReferenceQuery,
		QueryComplexity: req.QueryComplexity,
	}

	if err := req.Validate(); err != nil {
		resp.Metrics = SQLMetrics{ErrorMessages: []string{err.Error()}}
		resp.EvaluationTime = elapsedMS(start)
		return resp
	}

	cmp := e.comparatorFor(req)
	_, result := cmp.WithExecution(ctx, req.GeneratedQuery, req.ReferenceQuery)

	in := ScoreInput{
		Result:     result,
		Complexity: req.QueryComplexity,
		Schema:     req.DatabaseSchema,
		Latency:    req.InferenceLatency,
	}
	if gen, err := cmp.Facets(req.GeneratedQuery); err == nil {
		in.Generated = &gen
	}
	switch {
	case result.ExactMatch:
		in.SkipReason = "exact match"
	case cmp.Verifier == nil:
		in.SkipReason = verify.ErrEngineNotConfigured.Error()
	}

	resp.Metrics = Score(in)
	resp.EvaluationTime = elapsedMS(start)

	e.Logger.Debug("evaluated query",
		slog.String("complexity", string(req.QueryComplexity)),
		slog.Float64("logical_form", resp.Metrics.LogicalFormAccuracy),
		slog.Float64("complexity_handling", resp.Metrics.ComplexityHandling),
		slog.Float64("evaluation_ms", resp.EvaluationTime))
	return resp
}

// comparatorFor applies the request's execution timeout.
func (e *Evaluator) comparatorFor(req Request) *compare.Comparator {
	if req.ExecutionTimeout == nil || e.Comparator.Verifier == nil {
		return e.Comparator
	}
	cp := *e.Comparator
	cp.Verifier = cp.Verifier.WithTimeout(time.Duration(*req.ExecutionTimeout) * time.Millisecond)
	return &cp
}

// EvaluateBatch scores every request concurrently, bounded by Workers.
// Responses keep request order. One request's failure never affects the
// others.
func (e *Evaluator) EvaluateBatch(ctx context.Context, reqs []Request) BatchResponse {
	start := time.Now()
	responses := make([]Response, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, req := range reqs {
		g.Go(func() error {
			responses[i] = e.Evaluate(gctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return BatchResponse{Responses: responses, TotalTime: elapsedMS(start)}
}

func (e *Evaluator) workers() int {
	if e.Workers <= 0 {
		return DefaultWorkers
	}
	return e.Workers
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
