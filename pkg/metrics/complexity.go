package metrics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidComplexity is returned for complexity values outside the
// known tiers.
var ErrInvalidComplexity = errors.New("invalid query complexity")

// Complexity is the difficulty tier assigned to a reference query.
type Complexity string

// Complexity tiers.
const (
	Simple  Complexity = "simple"
	Medium  Complexity = "medium"
	Complex Complexity = "complex"
)

// Complexities returns every tier in ascending order.
func Complexities() []Complexity {
	return []Complexity{Simple, Medium, Complex}
}

// ParseComplexity converts s (case-insensitive) to a Complexity.
func ParseComplexity(s string) (Complexity, error) {
	c := Complexity(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Simple, Medium, Complex:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q (expected simple, medium or complex)", ErrInvalidComplexity, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so JSON and YAML
// inputs are validated on decode.
func (c *Complexity) UnmarshalText(text []byte) error {
	parsed, err := ParseComplexity(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
