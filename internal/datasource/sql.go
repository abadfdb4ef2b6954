package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLConfig is the configuration of a SQL data source.
type SQLConfig struct {
	Common `yaml:",inline"`

	// Query is the raw statement to execute. Its semantics are not
	// validated here; restricting to read-only statements is the
	// responsibility of whoever authors the configuration.
	Query string `json:"query" yaml:"query"`
}

// SQLDataSource fetches rows from a SQL database.
type SQLDataSource struct {
	base
	cfg    SQLConfig
	fp     string
	driver string
	dsn    string
}

var _ DataSource = (*SQLDataSource)(nil)

// NewSQL validates the configuration and returns a SQL data source.
// The driver is resolved from the URL scheme; unsupported schemes are
// rejected here rather than at fetch time.
func NewSQL(cfg SQLConfig) (*SQLDataSource, error) {
	b, err := newBase(&cfg.Common, SourceTypeSQL)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Query) == "" {
		return nil, newValidationError("query", "cannot be empty")
	}

	driver, dsn, err := resolveDriver(cfg.URL)
	if err != nil {
		return nil, err
	}

	fpCfg := cfg
	fpCfg.ID = nil

	return &SQLDataSource{
		base:   b,
		cfg:    cfg,
		fp:     fingerprint(fpCfg),
		driver: driver,
		dsn:    dsn,
	}, nil
}

// resolveDriver maps a connection URL to a registered database/sql driver
// name and the DSN that driver expects.
func resolveDriver(rawURL string) (driver string, dsn string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", newValidationError("url", "not a valid connection URL: %v", err)
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
		return "postgres", rawURL, nil
	case "sqlite", "sqlite3":
		path := parsed.Opaque
		if path == "" {
			path = parsed.Path
		}
		return "sqlite3", path, nil
	case "file":
		// mattn/go-sqlite3 accepts file: URIs directly.
		return "sqlite3", rawURL, nil
	default:
		return "", "", newValidationError("url", "unsupported SQL scheme %q", parsed.Scheme)
	}
}

// Type returns the variant tag.
func (*SQLDataSource) Type() string {
	return SourceTypeSQL
}

// Fingerprint returns the cache key digest of this configuration.
func (s *SQLDataSource) Fingerprint() string {
	return s.fp
}

// Fetch connects to the database, executes the query, materializes all rows
// as mappings and returns the projected result. The timeout covers
// connection establishment, execution and materialization.
func (s *SQLDataSource) Fetch(ctx context.Context) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, s.driver, s.dsn)
	if err != nil {
		return nil, s.classify(ctx, fmt.Errorf("connecting: %w", err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Debug("Failed to close database", "source", s.Name(), "error", err)
		}
	}()

	rows, err := db.QueryxContext(ctx, s.cfg.Query)
	if err != nil {
		return nil, s.classify(ctx, fmt.Errorf("executing query: %w", err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Debug("Failed to close rows", "source", s.Name(), "error", err)
		}
	}()

	results := make([]map[string]any, 0)
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, s.classify(ctx, fmt.Errorf("scanning row: %w", err))
		}
		for key, value := range row {
			// Drivers hand text columns back as byte slices; JSON would
			// base64 them.
			if raw, ok := value.([]byte); ok {
				row[key] = string(raw)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(ctx, fmt.Errorf("iterating rows: %w", err))
	}

	return s.project(results)
}
