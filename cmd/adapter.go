package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Error definitions for adapter resolution and snapshot copying
var (
	ErrUnsupportedAdapter     = errors.New("unsupported warehouse type")
	ErrSourceRelationNotFound = errors.New("source relation not found")
)

// ColumnStats holds the raw per-column aggregates from a single profile scan.
type ColumnStats struct {
	Nulls    int64
	Distinct int64
}

// ConnectionInfo is the warehouse connection target resolved from dbt
// profiles.yml. Resolved once per run, never mutated afterwards.
type ConnectionInfo struct {
	Type     string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// WarehouseAdapter is the per-dialect SQL capability contract. Every
// structural or statistical query the differ issues goes through this
// interface, so the orchestration layer never special-cases dialect SQL.
//
// Implementations must never interpolate a raw identifier into SQL; all
// identifier quoting funnels through QuoteIdent.
type WarehouseAdapter interface {
	// Name returns the dialect tag ("postgres", "redshift").
	Name() string

	// Connect opens and pings a database handle for the given target.
	Connect(ctx context.Context, info ConnectionInfo) (*sql.DB, error)

	// QuoteIdent returns a dialect-correct quoted identifier, doubling any
	// embedded quote characters.
	QuoteIdent(ident string) string

	// EnsureSchema creates the schema if it does not exist.
	EnsureSchema(ctx context.Context, db *sql.DB, schema string) error

	// DropSchema drops the schema and everything in it. Dropping a schema
	// that does not exist is not an error.
	DropSchema(ctx context.Context, db *sql.DB, schema string) error

	// CopyRelation materializes dstSchema.dstTable as an exact copy of
	// srcSchema.srcTable (drop-then-create-as-select), preserving column
	// order and names. Returns ErrSourceRelationNotFound (wrapped) when the
	// source relation is missing, distinguishable from connectivity errors.
	CopyRelation(ctx context.Context, db *sql.DB, srcSchema, srcTable, dstSchema, dstTable string) error

	// ListColumns returns column names ordered by ordinal position.
	ListColumns(ctx context.Context, db *sql.DB, schema, table string) ([]string, error)

	// RowCount counts rows of a relation expression, which may be a
	// parenthesized filtered subquery rather than a bare table.
	RowCount(ctx context.Context, db *sql.DB, relationSQL string) (int64, error)

	// ColumnProfile computes null and distinct counts for each column in a
	// single scan of the table. An empty column list returns an empty map
	// without querying.
	ColumnProfile(ctx context.Context, db *sql.DB, schema, table string, columns []string) (map[string]ColumnStats, error)

	// RowHashExpr returns a SQL expression computing a deterministic digest
	// over the given columns in order: each value string-cast, NULL-coalesced
	// to a sentinel, delimiter-joined, then hashed. An empty column list
	// yields the digest of the empty string.
	RowHashExpr(columns []string) string

	// Scalar runs a query expected to return a single integer value.
	Scalar(ctx context.Context, db *sql.DB, query string) (int64, error)

	// Rows runs a query and returns all result tuples as strings, with NULL
	// rendered as an empty string.
	Rows(ctx context.Context, db *sql.DB, query string) ([][]string, error)
}

// GetAdapter returns the adapter implementation for a warehouse type tag.
func GetAdapter(warehouseType string) (WarehouseAdapter, error) {
	switch warehouseType {
	case "postgres":
		return &PostgresAdapter{}, nil
	case "redshift":
		return &RedshiftAdapter{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAdapter, warehouseType)
	}
}
