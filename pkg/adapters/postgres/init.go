package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/sqlbench/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "postgresql", "pg")
}
