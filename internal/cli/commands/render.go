package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlbench/internal/cli/output"
	"github.com/leapstack-labs/sqlbench/pkg/adapter"
	"github.com/leapstack-labs/sqlbench/pkg/benchmark"
	"github.com/leapstack-labs/sqlbench/pkg/metrics"
)

// facetOrder lists parsing detail keys in display order.
var facetOrder = []string{
	"table_match", "column_match", "join_match", "where_match",
	"group_by_match", "order_by_match", "limit_match", "aggregation_match",
}

var titleCaser = cases.Title(language.English)

func score(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func facetLabel(key string) string {
	return titleCaser.String(strings.ReplaceAll(strings.TrimSuffix(key, "_match"), "_", " "))
}

func renderEvaluation(r *output.Renderer, resp metrics.Response) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(resp)
	}
	styles := r.Styles()
	m := resp.Metrics

	r.Header(1, "Evaluation")
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Complexity", titleCaser.String(string(resp.QueryComplexity))))
		r.Println(output.FormatKeyValue("Evaluation Time", fmt.Sprintf("%.2f ms", resp.EvaluationTime)))
		r.Println("")
	} else {
		r.Printf("%s %s  %s\n",
			styles.Verdict(m.LogicalFormAccuracy == 1).String(),
			titleCaser.String(string(resp.QueryComplexity)),
			styles.Muted.Render(fmt.Sprintf("%.2f ms", resp.EvaluationTime)))
	}

	rows := [][]string{
		{"Exact Match", score(m.ExactMatchAccuracy)},
		{"Logical Form", score(m.LogicalFormAccuracy)},
		{"Execution", score(m.ExecutionAccuracy)},
		{"Complexity Handling", score(m.ComplexityHandling)},
	}
	if m.ZeroShotPerformance != nil {
		rows = append(rows, []string{"Zero Shot", score(*m.ZeroShotPerformance)})
	}
	if m.InferenceLatency > 0 {
		rows = append(rows, []string{"Inference Latency (ms)", fmt.Sprintf("%.1f", m.InferenceLatency)})
	}
	r.Table([]string{"Metric", "Score"}, rows)

	if len(m.ParsingDetails) > 0 {
		r.Println("")
		r.Header(2, "Facets")
		facets := make([][]string, 0, len(facetOrder))
		for _, key := range facetOrder {
			ok, _ := m.ParsingDetails[key].(bool)
			facets = append(facets, []string{facetLabel(key), styles.Verdict(ok).String()})
		}
		r.Table([]string{"Facet", "Match"}, facets)
		if degraded, _ := m.ParsingDetails["degraded"].(bool); degraded {
			r.Println(styles.Warning.Render("! parsed with the permissive fallback parser"))
		}
	}

	if skipped, _ := m.ExecutionDetails["skipped"].(bool); skipped {
		r.Println(styles.Muted.Render(fmt.Sprintf("execution skipped: %v", m.ExecutionDetails["reason"])))
	}
	for _, msg := range m.ErrorMessages {
		r.Println(styles.Error.Render("error: " + msg))
	}
	return nil
}

func renderReport(r *output.Renderer, report *benchmark.Report) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}
	styles := r.Styles()

	r.Header(1, "Benchmark Results")
	r.Println(styles.Muted.Render(fmt.Sprintf("Run %s, %d models, %s",
		report.RunID, len(report.Models), report.Duration.Round(time.Millisecond))))
	r.Println("")

	rows := make([][]string, 0, len(report.Models))
	for _, m := range report.Models {
		zs := "-"
		if m.Overall.ZeroShotPerformance != nil {
			zs = score(*m.Overall.ZeroShotPerformance)
		}
		rows = append(rows, []string{
			m.Model,
			fmt.Sprintf("%d", m.Overall.Count),
			score(m.Overall.ExactMatchAccuracy),
			score(m.Overall.LogicalFormAccuracy),
			score(m.Overall.ExecutionAccuracy),
			score(m.Overall.ComplexityHandling),
			zs,
			fmt.Sprintf("%.1f", m.Overall.InferenceLatency),
			fmt.Sprintf("%d", m.Skipped),
		})
	}
	r.Table([]string{"Model", "Queries", "Exact", "Logical", "Execution", "Complexity", "Zero Shot", "Latency (ms)", "Skipped"}, rows)

	for _, m := range report.Models {
		r.Println("")
		r.Header(2, m.Model)
		tiers := make([][]string, 0, len(m.ByComplexity))
		for _, c := range metrics.Complexities() {
			t := m.ByComplexity[c]
			tiers = append(tiers, []string{
				titleCaser.String(string(c)),
				fmt.Sprintf("%d", t.Count),
				score(t.ExactMatch),
				score(t.LogicalForm),
			})
		}
		r.Table([]string{"Complexity", "Count", "Exact", "Logical"}, tiers)
	}
	return nil
}

func renderSchema(r *output.Renderer, schema *adapter.Schema) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(schema)
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(schema.Describe())
		return nil
	}

	tables := append([]adapter.Table(nil), schema.Tables...)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	for i, t := range tables {
		if i > 0 {
			r.Println("")
		}
		r.Header(2, t.Name)
		rows := make([][]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			nullable := ""
			if c.Nullable {
				nullable = "yes"
			}
			rows = append(rows, []string{c.Name, strings.ToLower(c.Type), nullable})
		}
		r.Table([]string{"Column", "Type", "Nullable"}, rows)
	}
	return nil
}
