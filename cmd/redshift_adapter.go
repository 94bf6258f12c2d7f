package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// RedshiftAdapter implements WarehouseAdapter for Amazon Redshift. Redshift
// speaks the libpq wire protocol, so connections reuse the postgres driver;
// only catalog views and cast syntax differ.
type RedshiftAdapter struct{}

func (a *RedshiftAdapter) Name() string { return "redshift" }

func (a *RedshiftAdapter) Connect(ctx context.Context, info ConnectionInfo) (*sql.DB, error) {
	return openLibpq(ctx, info)
}

func (a *RedshiftAdapter) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (a *RedshiftAdapter) EnsureSchema(ctx context.Context, db *sql.DB, schema string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("create schema if not exists %s", a.QuoteIdent(schema)))
	if err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	return nil
}

func (a *RedshiftAdapter) DropSchema(ctx context.Context, db *sql.DB, schema string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("drop schema if exists %s cascade", a.QuoteIdent(schema)))
	if err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", schema, err)
	}
	return nil
}

func (a *RedshiftAdapter) CopyRelation(ctx context.Context, db *sql.DB, srcSchema, srcTable, dstSchema, dstTable string) error {
	return copyRelationCTAS(ctx, db, a, srcSchema, srcTable, dstSchema, dstTable)
}

// ListColumns reads svv_columns, which covers both local and external
// tables. Boolean columns are excluded: the row hash path casts values to
// varchar and Redshift has no implicit boolean-to-varchar cast, so boolean
// columns never take part in profiling, hashing, or schema comparison on
// this dialect. The postgres adapter has no such exclusion.
func (a *RedshiftAdapter) ListColumns(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	query := `select column_name
		from svv_columns
		where table_schema = $1 and table_name = $2 and data_type != 'boolean'
		order by ordinal_position`
	return queryColumnNames(ctx, db, query, schema, table)
}

func (a *RedshiftAdapter) RowCount(ctx context.Context, db *sql.DB, relationSQL string) (int64, error) {
	return a.Scalar(ctx, db, fmt.Sprintf("select count(*) from %s t", relationSQL))
}

func (a *RedshiftAdapter) ColumnProfile(ctx context.Context, db *sql.DB, schema, table string, columns []string) (map[string]ColumnStats, error) {
	return profileColumns(ctx, db, a, schema, table, columns)
}

// RowHashExpr matches the postgres expression semantics (NULL-safe,
// order-sensitive, delimiter-joined, md5) with Redshift's varchar cast.
func (a *RedshiftAdapter) RowHashExpr(columns []string) string {
	if len(columns) == 0 {
		return "md5('')"
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("coalesce(%s::varchar,'%s')", a.QuoteIdent(c), nullSentinel)
	}
	return fmt.Sprintf("md5(%s)", strings.Join(parts, fmt.Sprintf(" || '%s' || ", hashDelimiter)))
}

func (a *RedshiftAdapter) Scalar(ctx context.Context, db *sql.DB, query string) (int64, error) {
	return execScalar(ctx, db, query)
}

func (a *RedshiftAdapter) Rows(ctx context.Context, db *sql.DB, query string) ([][]string, error) {
	return execRows(ctx, db, query)
}
