package adapter

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// schemeTypes maps the built-in URL schemes to adapter type names.
var schemeTypes = map[string]string{
	"duckdb":     "duckdb",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"mysql":      "mysql",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"file":       "sqlite",
}

// ParseURL builds a Config from a database URL, inferring the adapter type
// from the scheme. ${VAR} references are expanded from the environment.
//
//	duckdb:///data/bench.duckdb     duckdb://  (in-memory)
//	sqlite:///tmp/bench.db          sqlite://:memory:
//	postgres://user:pw@host:5432/db?sslmode=disable
//	mysql://user:pw@host:3306/db
func ParseURL(dbURL string) (Config, error) {
	raw := os.ExpandEnv(strings.TrimSpace(dbURL))
	if raw == "" {
		return Config{}, fmt.Errorf("database URL is empty")
	}

	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return Config{}, fmt.Errorf("database URL %q has no scheme", raw)
	}
	typ, ok := schemeTypes[strings.ToLower(scheme)]
	if !ok {
		// Third-party drivers are reachable through their registered aliases.
		if typ, ok = Resolve(scheme); !ok {
			return Config{}, &UnknownAdapterError{Type: scheme, Available: ListAdapters()}
		}
	}

	cfg := Config{Type: typ, DSN: raw}
	if typ == "duckdb" || typ == "sqlite" {
		cfg.Path = filePath(rest)
		return cfg, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid database URL: %w", err)
	}
	cfg.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Config{}, fmt.Errorf("invalid port %q: %w", p, err)
		}
		cfg.Port = port
	}
	cfg.Database = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	if q := u.Query(); len(q) > 0 {
		cfg.Options = make(map[string]string, len(q))
		for k := range q {
			cfg.Options[k] = q.Get(k)
		}
	}
	return cfg, nil
}

// filePath extracts the path of a file-database URL. An empty path means an
// in-memory database.
func filePath(rest string) string {
	path := strings.TrimPrefix(rest, "//")
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	return path
}
