package source

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQL(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE relstore_records (
		model TEXT NOT NULL,
		record_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		PRIMARY KEY (model, record_id)
	)`)
	require.NoError(t, err)

	rows := [][3]string{
		{"Item", "1", `{"id": 1, "name": "Pen", "tag_ids": [1]}`},
		{"Item", "2", `{"id": 2, "name": "Ink"}`},
		{"Tag", "1", `{"id": 1, "name": "red"}`},
	}
	for _, row := range rows {
		_, err := db.Exec("INSERT INTO relstore_records (model, record_id, payload) VALUES (?, ?, ?)", row[0], row[1], row[2])
		require.NoError(t, err)
	}
	return db
}

func TestSQLSourceSQLite(t *testing.T) {
	db := setupSQLite(t)
	src, err := NewSQLSource(db, SQLConfig{Driver: "sqlite3"})
	require.NoError(t, err)
	ctx := context.Background()

	records, err := src.Fetch(ctx, "Item", []any{float64(2), int64(5)})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ink", records[0]["name"])

	raw, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, raw["Item"], 2)
	assert.Len(t, raw["Tag"], 1)
}

func TestSQLSourcePostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	src, err := NewSQLSource(db, SQLConfig{Driver: "pgx", Table: "public.records"})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM public.records WHERE model = $1 AND record_id IN ($2, $3) ORDER BY record_id").
		WithArgs("Item", "1", "2").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).
			AddRow(`{"id": 1}`).
			AddRow(`{"id": 2}`))

	records, err := src.Fetch(context.Background(), "Item", []any{1, 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSourceMalformedPayload(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	src, err := NewSQLSource(db, SQLConfig{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT model, payload FROM relstore_records").
		WillReturnRows(sqlmock.NewRows([]string{"model", "payload"}).AddRow("Item", "[1, 2]"))

	_, err = src.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestNewSQLSourceValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  SQLConfig
	}{
		{"injected table", SQLConfig{Table: "records; DROP TABLE x"}},
		{"bad placeholder", SQLConfig{Placeholder: ":"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLSource(nil, tt.cfg)
			assert.Error(t, err)
		})
	}
}
