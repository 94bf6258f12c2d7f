package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dataops-tools/model-diff/cmd/report"
)

// Error definitions for row diff input validation
var (
	ErrNoKeyColumns   = errors.New("row diff requires at least one key column")
	ErrKeyNotInCommon = errors.New("key column is not present in both snapshots")
)

// RowDiffSpec describes one row-level comparison. BaseRel and HeadRel are
// parenthesized relation expressions (the snapshot tables, each wrapped with
// the same optional predicate), directly embeddable in a FROM clause.
type RowDiffSpec struct {
	BaseRel       string
	HeadRel       string
	KeyColumns    []string
	CommonColumns []string
	SampleLimit   int
}

// RowDiffer computes added/removed/changed row counts and samples changed
// keys. All heavy lifting is pushed to the warehouse as single-pass
// aggregate queries; no row content ever crosses the wire except the sampled
// key tuples.
type RowDiffer struct {
	adapter WarehouseAdapter
	db      *sql.DB
	logger  *slog.Logger
}

func NewRowDiffer(adapter WarehouseAdapter, db *sql.DB, logger *slog.Logger) *RowDiffer {
	return &RowDiffer{adapter: adapter, db: db, logger: logger}
}

// Run executes the row-level comparison. Key columns are validated as a
// subset of the common columns up front; emitting a malformed join is never
// an acceptable failure mode.
func (d *RowDiffer) Run(ctx context.Context, spec RowDiffSpec) (*report.RowDiff, error) {
	if len(spec.KeyColumns) == 0 {
		return nil, ErrNoKeyColumns
	}
	common := make(map[string]struct{}, len(spec.CommonColumns))
	for _, c := range spec.CommonColumns {
		common[c] = struct{}{}
	}
	for _, k := range spec.KeyColumns {
		if _, ok := common[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotInCommon, k)
		}
	}

	keySet := make(map[string]struct{}, len(spec.KeyColumns))
	for _, k := range spec.KeyColumns {
		keySet[k] = struct{}{}
	}
	var nonKeyColumns []string
	for _, c := range spec.CommonColumns {
		if _, ok := keySet[c]; !ok {
			nonKeyColumns = append(nonKeyColumns, c)
		}
	}
	// With no non-key payload the hash degenerates to a constant on both
	// sides and changed is always zero.
	hashExpr := d.adapter.RowHashExpr(nonKeyColumns)

	q := d.adapter.QuoteIdent
	quotedKeys := make([]string, len(spec.KeyColumns))
	joinConds := make([]string, len(spec.KeyColumns))
	for i, k := range spec.KeyColumns {
		quotedKeys[i] = q(k)
		joinConds[i] = fmt.Sprintf("b.%s = h.%s", q(k), q(k))
	}
	keyList := strings.Join(quotedKeys, ", ")
	joinOn := strings.Join(joinConds, " and ")
	firstKey := q(spec.KeyColumns[0])

	result := &report.RowDiff{SampleKeys: [][]string{}}

	var err error
	result.Added, err = d.adapter.Scalar(ctx, d.db, fmt.Sprintf(
		"select count(*) from %s h left join %s b on %s where b.%s is null",
		spec.HeadRel, spec.BaseRel, joinOn, firstKey))
	if err != nil {
		return nil, fmt.Errorf("failed to count added rows: %w", err)
	}

	result.Removed, err = d.adapter.Scalar(ctx, d.db, fmt.Sprintf(
		"select count(*) from %s b left join %s h on %s where h.%s is null",
		spec.BaseRel, spec.HeadRel, joinOn, firstKey))
	if err != nil {
		return nil, fmt.Errorf("failed to count removed rows: %w", err)
	}

	result.DuplicateKeyGroups.Base, err = d.duplicateKeyGroups(ctx, spec.BaseRel, keyList)
	if err != nil {
		return nil, fmt.Errorf("failed to check base key uniqueness: %w", err)
	}
	result.DuplicateKeyGroups.Head, err = d.duplicateKeyGroups(ctx, spec.HeadRel, keyList)
	if err != nil {
		return nil, fmt.Errorf("failed to check head key uniqueness: %w", err)
	}
	if result.DuplicateKeyGroups.Base > 0 || result.DuplicateKeyGroups.Head > 0 {
		d.logger.Warn(fmt.Sprintf(
			"Key columns do not uniquely identify rows (%d duplicate key groups in base, %d in head); changed count uses many-to-many join semantics",
			result.DuplicateKeyGroups.Base, result.DuplicateKeyGroups.Head))
	}

	hashJoin := fmt.Sprintf(
		"with base_h as (select %s, %s as row_hash from %s b), "+
			"head_h as (select %s, %s as row_hash from %s h) ",
		keyList, hashExpr, spec.BaseRel,
		keyList, hashExpr, spec.HeadRel)

	result.Changed, err = d.adapter.Scalar(ctx, d.db, hashJoin+fmt.Sprintf(
		"select count(*) from base_h b join head_h h using (%s) where b.row_hash <> h.row_hash",
		keyList))
	if err != nil {
		return nil, fmt.Errorf("failed to count changed rows: %w", err)
	}

	// Short-circuit: nothing changed or no sample requested means no extra
	// round trip.
	if result.Changed == 0 || spec.SampleLimit <= 0 {
		return result, nil
	}

	selectKeys := make([]string, len(spec.KeyColumns))
	for i, k := range spec.KeyColumns {
		selectKeys[i] = "b." + q(k)
	}
	sample, err := d.adapter.Rows(ctx, d.db, hashJoin+fmt.Sprintf(
		"select %s from base_h b join head_h h using (%s) where b.row_hash <> h.row_hash limit %d",
		strings.Join(selectKeys, ", "), keyList, spec.SampleLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to sample changed keys: %w", err)
	}
	result.SampleKeys = sample

	return result, nil
}

// duplicateKeyGroups counts key tuples matching more than one row in a
// relation expression.
func (d *RowDiffer) duplicateKeyGroups(ctx context.Context, rel, keyList string) (int64, error) {
	return d.adapter.Scalar(ctx, d.db, fmt.Sprintf(
		"select count(*) from (select %s from %s t group by %s having count(*) > 1) dup",
		keyList, rel, keyList))
}
