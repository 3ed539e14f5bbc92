package benchmark

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlbench/pkg/metrics"
)

// Options controls a benchmark run.
type Options struct {
	Workers int
	Logger  *slog.Logger
}

// Summary averages metrics over the scored queries of a model.
type Summary struct {
	Count               int      `json:"query_count"`
	ExactMatchAccuracy  float64  `json:"exact_match_accuracy"`
	LogicalFormAccuracy float64  `json:"logical_form_accuracy"`
	ComplexityHandling  float64  `json:"complexity_handling"`
	ExecutionAccuracy   float64  `json:"execution_accuracy"`
	InferenceLatency    float64  `json:"inference_latency"`
	ZeroShotPerformance *float64 `json:"zero_shot_performance,omitempty"`
}

// TierSummary averages exact match and logical form within one complexity
// tier.
type TierSummary struct {
	Count       int     `json:"count"`
	ExactMatch  float64 `json:"exact_match"`
	LogicalForm float64 `json:"logical_form"`
}

// QueryResult is the score of one model response.
type QueryResult struct {
	ID           string             `json:"id"`
	Text         string             `json:"text,omitempty"`
	Complexity   metrics.Complexity `json:"complexity"`
	ExpectedSQL  string             `json:"expected_sql"`
	GeneratedSQL string             `json:"generated_sql"`
	Metrics      metrics.SQLMetrics `json:"metrics"`
}

// ModelReport is the aggregated result for one model.
type ModelReport struct {
	Model        string                             `json:"model"`
	Overall      Summary                            `json:"overall"`
	ByComplexity map[metrics.Complexity]TierSummary `json:"by_complexity"`
	Queries      []QueryResult                      `json:"queries"`
	// Skipped counts queries with no expected SQL or no response.
	Skipped int `json:"skipped"`
}

// Report is the result of one benchmark run.
type Report struct {
	RunID     uuid.UUID     `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Models    []ModelReport `json:"models"`
}

type job struct {
	model string
	query Query
	resp  ModelResponse
}

// Run evaluates every model response in suite. Queries without expected
// SQL or without a response from a model are skipped for that model and
// excluded from its averages. Models are reported in name order and queries
// in suite order.
func Run(ctx context.Context, suite *Suite, evaluator *metrics.Evaluator, opts Options) *Report {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = metrics.DefaultWorkers
	}

	report := &Report{RunID: uuid.New(), StartedAt: time.Now()}
	logger = logger.With(slog.String("run_id", report.RunID.String()))

	models := make([]string, 0, len(suite.Models))
	for name := range suite.Models {
		models = append(models, name)
	}
	sort.Strings(models)

	var jobs []job
	skipped := make(map[string]int, len(models))
	for _, model := range models {
		responses := suite.Models[model]
		for _, q := range suite.Queries {
			resp, ok := responses[q.ID]
			if q.ExpectedSQL == "" || !ok {
				skipped[model]++
				continue
			}
			jobs = append(jobs, job{model: model, query: q, resp: resp})
		}
	}
	logger.Info("benchmark started", slog.Int("models", len(models)), slog.Int("evaluations", len(jobs)))

	results := make([]QueryResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			resp := evaluator.Evaluate(gctx, metrics.Request{
				GeneratedQuery:   j.resp.Response,
				ReferenceQuery:   j.query.ExpectedSQL,
				QueryComplexity:  j.query.Complexity,
				DatabaseSchema:   j.query.Schema,
				InferenceLatency: j.resp.ExecutionTime,
			})
			results[i] = QueryResult{
				ID:           j.query.ID,
				Text:         j.query.Text,
				Complexity:   j.query.Complexity,
				ExpectedSQL:  j.query.ExpectedSQL,
				GeneratedSQL: j.resp.Response,
				Metrics:      resp.Metrics,
			}
			return nil
		})
	}
	_ = g.Wait()

	byModel := make(map[string][]QueryResult, len(models))
	for i, j := range jobs {
		byModel[j.model] = append(byModel[j.model], results[i])
	}
	for _, model := range models {
		report.Models = append(report.Models, Aggregate(model, byModel[model], skipped[model]))
	}

	report.Duration = time.Since(report.StartedAt)
	logger.Info("benchmark finished", slog.Duration("duration", report.Duration))
	return report
}

// Aggregate builds a model report from its scored queries.
func Aggregate(model string, queries []QueryResult, skipped int) ModelReport {
	r := ModelReport{
		Model:        model,
		ByComplexity: make(map[metrics.Complexity]TierSummary),
		Queries:      queries,
		Skipped:      skipped,
	}
	for _, c := range metrics.Complexities() {
		r.ByComplexity[c] = TierSummary{}
	}

	var zeroShotSum float64
	var zeroShotCount int
	for _, q := range queries {
		m := q.Metrics
		r.Overall.Count++
		r.Overall.ExactMatchAccuracy += m.ExactMatchAccuracy
		r.Overall.LogicalFormAccuracy += m.LogicalFormAccuracy
		r.Overall.ComplexityHandling += m.ComplexityHandling
		r.Overall.ExecutionAccuracy += m.ExecutionAccuracy
		r.Overall.InferenceLatency += m.InferenceLatency
		if m.ZeroShotPerformance != nil {
			zeroShotSum += *m.ZeroShotPerformance
			zeroShotCount++
		}

		tier := r.ByComplexity[q.Complexity]
		tier.Count++
		tier.ExactMatch += m.ExactMatchAccuracy
		tier.LogicalForm += m.LogicalFormAccuracy
		r.ByComplexity[q.Complexity] = tier
	}

	if n := float64(r.Overall.Count); n > 0 {
		r.Overall.ExactMatchAccuracy /= n
		r.Overall.LogicalFormAccuracy /= n
		r.Overall.ComplexityHandling /= n
		r.Overall.ExecutionAccuracy /= n
		r.Overall.InferenceLatency /= n
	}
	if zeroShotCount > 0 {
		avg := zeroShotSum / float64(zeroShotCount)
		r.Overall.ZeroShotPerformance = &avg
	}
	for c, tier := range r.ByComplexity {
		if tier.Count > 0 {
			tier.ExactMatch /= float64(tier.Count)
			tier.LogicalForm /= float64(tier.Count)
			r.ByComplexity[c] = tier
		}
	}
	return r
}
