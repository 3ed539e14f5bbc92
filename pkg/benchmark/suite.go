// Package benchmark runs a suite of natural-language questions with
// reference SQL against the answers of one or more models and aggregates
// the metrics per model and per complexity tier.
package benchmark

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlbench/pkg/metrics"
)

// Query is one benchmark question.
type Query struct {
	ID          string             `yaml:"id" json:"id"`
	Text        string             `yaml:"text" json:"text"`
	ExpectedSQL string             `yaml:"expected_sql" json:"expected_sql"`
	Complexity  metrics.Complexity `yaml:"complexity" json:"complexity"`
	Schema      *string            `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// ModelResponse is one model's answer to a query.
type ModelResponse struct {
	Response string `yaml:"response" json:"response"`
	// ExecutionTime is the model's inference latency in milliseconds.
	ExecutionTime float64 `yaml:"execution_time" json:"execution_time"`
}

// Suite is a set of queries and, per model name, the responses keyed by
// query ID.
type Suite struct {
	Queries []Query                             `yaml:"queries" json:"queries"`
	Models  map[string]map[string]ModelResponse `yaml:"models" json:"models"`
}

// LoadSuite reads a suite from a YAML or JSON file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}
	return ParseSuite(data)
}

// ParseSuite decodes a YAML or JSON suite and validates it. Queries without
// a complexity default to medium.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	for i := range s.Queries {
		if s.Queries[i].Complexity == "" {
			s.Queries[i].Complexity = metrics.Medium
		}
	}
	return &s, nil
}

// Validate checks that query IDs are present and unique.
func (s *Suite) Validate() error {
	seen := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.ID == "" {
			return fmt.Errorf("query %d has no id", i+1)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate query id %q", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}
