// Package verify checks two queries for equivalence by running both against
// a live database and comparing their result sets as multisets.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds each query when the caller does not set one.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is wrapped by executors when a query exceeds its deadline.
	ErrTimeout = errors.New("query timed out")

	// ErrEngineNotConfigured is returned when execution is requested but no
	// database is configured.
	ErrEngineNotConfigured = errors.New("execution engine not configured")
)

// Field is one column value of a result row.
type Field struct {
	Column string
	Value  any
}

// Row is one result row with fields in select-list order.
type Row []Field

// Executor runs a query and returns all of its rows.
type Executor interface {
	Execute(ctx context.Context, query string, timeout time.Duration) ([]Row, error)
}

// ExecutionError reports which side of a comparison failed to run.
type ExecutionError struct {
	Side int
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Query %d failed: %v", e.Side, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Comparison is the outcome of executing both queries.
type Comparison struct {
	Query1Success bool    `json:"query1_success"`
	Query2Success bool    `json:"query2_success"`
	BothSucceeded bool    `json:"both_succeeded"`
	ResultMatch   bool    `json:"result_match"`
	RowCountMatch bool    `json:"row_count_match"`
	Query1Time    float64 `json:"query1_time"`
	Query2Time    float64 `json:"query2_time"`
	RowCount1     int     `json:"row_count1"`
	RowCount2     int     `json:"row_count2"`
	TimedOut      bool    `json:"timed_out,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Verifier executes query pairs through an Executor.
type Verifier struct {
	Executor Executor
	Timeout  time.Duration
	Logger   *slog.Logger
}

// New creates a Verifier. A zero timeout selects DefaultTimeout.
func New(exec Executor, timeout time.Duration, logger *slog.Logger) *Verifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Verifier{Executor: exec, Timeout: timeout, Logger: logger}
}

// WithTimeout returns a copy of v using timeout for each query.
func (v *Verifier) WithTimeout(timeout time.Duration) *Verifier {
	if timeout <= 0 {
		return v
	}
	cp := *v
	cp.Timeout = timeout
	return &cp
}

// ExecuteAndCompare runs a then b and reports whether both succeeded and
// returned the same multiset of rows. Row order and column order within a
// row are ignored.
func (v *Verifier) ExecuteAndCompare(ctx context.Context, a, b string) (bool, Comparison) {
	var cmp Comparison
	if v == nil || v.Executor == nil {
		cmp.Error = ErrEngineNotConfigured.Error()
		return false, cmp
	}

	rows1, elapsed1, err := v.run(ctx, a)
	cmp.Query1Time = elapsed1
	if err != nil {
		return false, v.fail(cmp, &ExecutionError{Side: 1, Err: err})
	}
	cmp.Query1Success = true
	cmp.RowCount1 = len(rows1)

	rows2, elapsed2, err := v.run(ctx, b)
	cmp.Query2Time = elapsed2
	if err != nil {
		return false, v.fail(cmp, &ExecutionError{Side: 2, Err: err})
	}
	cmp.Query2Success = true
	cmp.RowCount2 = len(rows2)
	cmp.BothSucceeded = true

	cmp.RowCountMatch = cmp.RowCount1 == cmp.RowCount2
	if !cmp.RowCountMatch {
		cmp.Error = fmt.Sprintf("Row count mismatch: %d vs %d", cmp.RowCount1, cmp.RowCount2)
		return false, cmp
	}

	cmp.ResultMatch = slices.Equal(canonicalRows(rows1), canonicalRows(rows2))
	v.Logger.Debug("compared results",
		slog.Int("rows", cmp.RowCount1),
		slog.Bool("match", cmp.ResultMatch))
	return cmp.ResultMatch, cmp
}

func (v *Verifier) run(ctx context.Context, query string) ([]Row, float64, error) {
	start := time.Now()
	rows, err := v.Executor.Execute(ctx, query, v.Timeout)
	return rows, float64(time.Since(start).Microseconds()) / 1000, err
}

func (v *Verifier) fail(cmp Comparison, err *ExecutionError) Comparison {
	cmp.Error = err.Error()
	cmp.TimedOut = errors.Is(err, ErrTimeout)
	v.Logger.Debug("query execution failed", slog.Int("side", err.Side), slog.String("error", err.Err.Error()))
	return cmp
}

// canonicalRows renders each row as sorted column=value pairs and sorts the
// rows, so equal multisets compare equal.
func canonicalRows(rows []Row) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		pairs := make([]string, len(row))
		for j, f := range row {
			pairs[j] = fieldKey(f)
		}
		slices.Sort(pairs)
		out[i] = strings.Join(pairs, ",")
	}
	slices.Sort(out)
	return out
}

// fieldKey encodes a field unambiguously: column and value are quoted, and
// NULL is an unquoted tag that no quoted value can equal.
func fieldKey(f Field) string {
	col := strconv.Quote(strings.ToLower(f.Column))
	if f.Value == nil {
		return col + "=null"
	}
	return col + "=" + strconv.Quote(CanonicalValue(f.Value))
}

// CanonicalValue renders a scanned driver value as text. NULL renders as
// "NULL"; comparisons keep it distinct from the string 'NULL'.
func CanonicalValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
