package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// nullSentinel substitutes for NULL values inside row hash input. It must be
// distinct from any plausible real value and stable across dialects so both
// sides of a diff hash NULLs identically.
const (
	nullSentinel  = "<NULL>"
	hashDelimiter = "|"
)

// PostgresAdapter implements WarehouseAdapter for PostgreSQL.
type PostgresAdapter struct{}

func (a *PostgresAdapter) Name() string { return "postgres" }

func (a *PostgresAdapter) Connect(ctx context.Context, info ConnectionInfo) (*sql.DB, error) {
	return openLibpq(ctx, info)
}

func (a *PostgresAdapter) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (a *PostgresAdapter) EnsureSchema(ctx context.Context, db *sql.DB, schema string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("create schema if not exists %s", a.QuoteIdent(schema)))
	if err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	return nil
}

func (a *PostgresAdapter) DropSchema(ctx context.Context, db *sql.DB, schema string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("drop schema if exists %s cascade", a.QuoteIdent(schema)))
	if err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", schema, err)
	}
	return nil
}

func (a *PostgresAdapter) CopyRelation(ctx context.Context, db *sql.DB, srcSchema, srcTable, dstSchema, dstTable string) error {
	return copyRelationCTAS(ctx, db, a, srcSchema, srcTable, dstSchema, dstTable)
}

func (a *PostgresAdapter) ListColumns(ctx context.Context, db *sql.DB, schema, table string) ([]string, error) {
	query := `select column_name
		from information_schema.columns
		where table_schema = $1 and table_name = $2
		order by ordinal_position`
	return queryColumnNames(ctx, db, query, schema, table)
}

func (a *PostgresAdapter) RowCount(ctx context.Context, db *sql.DB, relationSQL string) (int64, error) {
	return a.Scalar(ctx, db, fmt.Sprintf("select count(*) from %s t", relationSQL))
}

func (a *PostgresAdapter) ColumnProfile(ctx context.Context, db *sql.DB, schema, table string, columns []string) (map[string]ColumnStats, error) {
	return profileColumns(ctx, db, a, schema, table, columns)
}

// RowHashExpr builds a NULL-safe, order-sensitive md5 over the columns.
// Values are cast to text and NULLs replaced by a sentinel so that NULL and
// absent-vs-present differences change the digest.
func (a *PostgresAdapter) RowHashExpr(columns []string) string {
	if len(columns) == 0 {
		return "md5('')"
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("coalesce(%s::text,'%s')", a.QuoteIdent(c), nullSentinel)
	}
	return fmt.Sprintf("md5(%s)", strings.Join(parts, fmt.Sprintf(" || '%s' || ", hashDelimiter)))
}

func (a *PostgresAdapter) Scalar(ctx context.Context, db *sql.DB, query string) (int64, error) {
	return execScalar(ctx, db, query)
}

func (a *PostgresAdapter) Rows(ctx context.Context, db *sql.DB, query string) ([][]string, error) {
	return execRows(ctx, db, query)
}

// openLibpq opens and pings a database handle over the libpq wire protocol.
// Both supported dialects speak it.
func openLibpq(ctx context.Context, info ConnectionInfo) (*sql.DB, error) {
	sslMode := info.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		info.Host, info.Port, info.User, info.Password, info.DBName, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s:%d/%s: %w", info.Host, info.Port, info.DBName, err)
	}
	return db, nil
}

// copyRelationCTAS drops any prior copy and recreates it as a full
// select-star copy, which preserves column order and names.
func copyRelationCTAS(ctx context.Context, db *sql.DB, a WarehouseAdapter, srcSchema, srcTable, dstSchema, dstTable string) error {
	q := a.QuoteIdent
	if _, err := db.ExecContext(ctx, fmt.Sprintf("drop table if exists %s.%s", q(dstSchema), q(dstTable))); err != nil {
		return fmt.Errorf("failed to drop prior snapshot %s.%s: %w", dstSchema, dstTable, err)
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf("create table %s.%s as select * from %s.%s",
		q(dstSchema), q(dstTable), q(srcSchema), q(srcTable)))
	if err != nil {
		if isUndefinedRelation(err) {
			return fmt.Errorf("%w: %s.%s", ErrSourceRelationNotFound, srcSchema, srcTable)
		}
		return fmt.Errorf("failed to snapshot %s.%s: %w", srcSchema, srcTable, err)
	}
	return nil
}

// isUndefinedRelation reports whether err is the server telling us a table
// or schema does not exist (SQLSTATE 42P01 / 3F000), as opposed to a
// connectivity or permission failure.
func isUndefinedRelation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "42P01" || pqErr.Code == "3F000"
}

// profileColumns issues one aggregate query scanning the table once: a
// conditional null sum and a distinct count per column.
func profileColumns(ctx context.Context, db *sql.DB, a WarehouseAdapter, schema, table string, columns []string) (map[string]ColumnStats, error) {
	if len(columns) == 0 {
		return map[string]ColumnStats{}, nil
	}

	q := a.QuoteIdent
	parts := make([]string, 0, len(columns)*2)
	for _, c := range columns {
		qc := q(c)
		parts = append(parts,
			fmt.Sprintf("sum(case when %s is null then 1 else 0 end)", qc),
			fmt.Sprintf("count(distinct %s)", qc),
		)
	}
	query := fmt.Sprintf("select %s from %s.%s", strings.Join(parts, ", "), q(schema), q(table))

	values := make([]sql.NullInt64, len(columns)*2)
	dest := make([]interface{}, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := db.QueryRowContext(ctx, query).Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to profile %s.%s: %w", schema, table, err)
	}

	out := make(map[string]ColumnStats, len(columns))
	for i, c := range columns {
		out[c] = ColumnStats{
			Nulls:    values[i*2].Int64,
			Distinct: values[i*2+1].Int64,
		}
	}
	return out, nil
}

func queryColumnNames(ctx context.Context, db *sql.DB, query, schema, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func execScalar(ctx context.Context, db *sql.DB, query string) (int64, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, query).Scan(&v); err != nil {
		return 0, fmt.Errorf("scalar query failed: %w", err)
	}
	return v.Int64, nil
}

func execRows(ctx context.Context, db *sql.DB, query string) ([][]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("row query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]interface{}, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		tuple := make([]string, len(cols))
		for i, v := range values {
			tuple[i] = v.String
		}
		out = append(out, tuple)
	}
	return out, rows.Err()
}
