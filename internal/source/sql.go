package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/conduit-lang/relstore/internal/orm/store"
)

// SQLConfig holds the settings of a SQL source
type SQLConfig struct {
	// Driver is a database/sql driver name: sqlite3, pgx or postgres
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// Table has the columns (model, record_id, payload)
	Table string `mapstructure:"table"`
	// Placeholder is "?" or "$" (numbered, PostgreSQL style). Empty picks
	// the style of Driver.
	Placeholder string `mapstructure:"placeholder"`
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads records from a table of JSON payloads keyed by model and id
type SQLSource struct {
	db          *sql.DB
	table       string
	placeholder string
}

// OpenSQL opens and pings a database
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	return db, nil
}

// NewSQLSource creates a source over db
func NewSQLSource(db *sql.DB, cfg SQLConfig) (*SQLSource, error) {
	table := cfg.Table
	if table == "" {
		table = "relstore_records"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	placeholder := cfg.Placeholder
	if placeholder == "" {
		placeholder = "?"
		if cfg.Driver == "pgx" || cfg.Driver == "postgres" {
			placeholder = "$"
		}
	}
	if placeholder != "?" && placeholder != "$" {
		return nil, fmt.Errorf("invalid placeholder %q", placeholder)
	}

	return &SQLSource{db: db, table: table, placeholder: placeholder}, nil
}

// bind returns the n-th (1-based) bind parameter
func (s *SQLSource) bind(n int) string {
	if s.placeholder == "$" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Fetch reads the requested records of model
func (s *SQLSource) Fetch(ctx context.Context, model string, ids []any) ([]store.Values, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, model)
	binds := make([]string, len(ids))
	for i, id := range ids {
		binds[i] = s.bind(i + 2)
		args = append(args, idKey(id))
	}

	query := fmt.Sprintf(
		"SELECT payload FROM %s WHERE model = %s AND record_id IN (%s) ORDER BY record_id",
		s.table, s.bind(1), strings.Join(binds, ", "),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", model, err)
	}
	defer rows.Close()

	var result []store.Values
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", model, err)
		}
		values, err := decodeRecord([]byte(payload))
		if err != nil {
			return nil, err
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", model, err)
	}
	return result, nil
}

// Snapshot reads the whole table
func (s *SQLSource) Snapshot(ctx context.Context) (store.RawData, error) {
	query := fmt.Sprintf("SELECT model, payload FROM %s ORDER BY model, record_id", s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	defer rows.Close()

	raw := make(store.RawData)
	for rows.Next() {
		var model, payload string
		if err := rows.Scan(&model, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		values, err := decodeRecord([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", model, err)
		}
		raw[model] = append(raw[model], values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return raw, nil
}
