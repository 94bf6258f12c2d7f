package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dataops-tools/model-diff/cmd/report"
)

// Run steps emitted to the progress observer, in execution order.
const (
	StepWorktrees    = "Preparing worktrees"
	StepBuildBase    = "Building base model"
	StepSnapshotBase = "Snapshotting base"
	StepBuildHead    = "Building head model"
	StepSnapshotHead = "Snapshotting head"
	StepCompare      = "Comparing snapshots"
)

// Differ orchestrates a full diff run: materialize both revisions, build the
// model under each, snapshot the outputs, and compare. Everything runs
// strictly sequentially on one warehouse connection; later steps depend on
// the materialized state of earlier ones.
type Differ struct {
	config   *Config
	adapter  WarehouseAdapter
	connInfo ConnectionInfo
	logger   *slog.Logger

	// OnStep, when set, observes run progress. Called once per step.
	OnStep func(step string)

	// Seams for tests; production uses the package defaults.
	build   func(ctx context.Context, projectDir, profilesDir, model, target string) error
	resolve func(projectDir, model string) (schema, table string, err error)
}

// NewDiffer creates a differ for one comparison run.
func NewDiffer(config *Config, adapter WarehouseAdapter, connInfo ConnectionInfo, logger *slog.Logger) *Differ {
	return &Differ{
		config:   config,
		adapter:  adapter,
		connInfo: connInfo,
		logger:   logger,
		build:    dbtBuild,
		resolve:  resolveModelRelation,
	}
}

func (d *Differ) step(name string) {
	d.logger.Info(name)
	if d.OnStep != nil {
		d.OnStep(name)
	}
}

// Run executes the full diff flow and returns a complete report or an error,
// never both. Cleanup of worktrees, temp dirs, and the diff schema is
// best-effort on every exit path and never overrides the run error.
func (d *Differ) Run(ctx context.Context) (*report.Report, error) {
	cfg := d.config
	names := snapshotNames(cfg.Model, cfg.BaseRef, cfg.HeadRef)

	db, err := d.adapter.Connect(ctx, d.connInfo)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	d.step(StepWorktrees)
	worktrees, err := newWorktreeSet(ctx, cfg.ProjectDir, d.logger)
	if err != nil {
		return nil, err
	}
	// Cleanup must still run when ctx was canceled mid-run.
	cleanupCtx := context.WithoutCancel(ctx)
	defer worktrees.Cleanup(cleanupCtx)

	snapshots := NewSnapshotBuilder(d.adapter, db, names, d.logger)
	if err := snapshots.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if !cfg.KeepSchemas {
		defer snapshots.Cleanup(cleanupCtx)
	}

	if err := d.buildAndSnapshot(ctx, worktrees, snapshots, "base", cfg.BaseRef); err != nil {
		return nil, err
	}
	if err := d.buildAndSnapshot(ctx, worktrees, snapshots, "head", cfg.HeadRef); err != nil {
		return nil, err
	}

	d.step(StepCompare)
	return d.compareSnapshots(ctx, db, names)
}

// buildAndSnapshot materializes one side: check out the revision, rebuild
// the model there, resolve where the output landed, and freeze it.
func (d *Differ) buildAndSnapshot(ctx context.Context, worktrees *worktreeSet, snapshots *SnapshotBuilder, side, ref string) error {
	buildStep, snapStep := StepBuildBase, StepSnapshotBase
	if side == "head" {
		buildStep, snapStep = StepBuildHead, StepSnapshotHead
	}

	d.step(fmt.Sprintf("%s (%s)", buildStep, ref))
	projectDir, err := worktrees.Add(ctx, side, ref)
	if err != nil {
		return err
	}
	if err := d.build(ctx, projectDir, d.config.ProfilesDir, d.config.Model, d.config.Target); err != nil {
		return err
	}

	srcSchema, srcTable, err := d.resolve(projectDir, d.config.Model)
	if err != nil {
		return err
	}

	d.step(snapStep)
	if side == "base" {
		return snapshots.SnapshotBase(ctx, srcSchema, srcTable)
	}
	return snapshots.SnapshotHead(ctx, srcSchema, srcTable)
}

// compareSnapshots runs every comparison query against the two frozen
// snapshot tables and assembles the report.
func (d *Differ) compareSnapshots(ctx context.Context, db *sql.DB, names SnapshotNames) (*report.Report, error) {
	cfg := d.config
	q := d.adapter.QuoteIdent

	baseRel := relationExpr(q(names.Schema)+"."+q(names.BaseTable), cfg.Where)
	headRel := relationExpr(q(names.Schema)+"."+q(names.HeadTable), cfg.Where)

	rep := &report.Report{
		Meta: report.Meta{
			Model:      cfg.Model,
			Base:       cfg.BaseRef,
			Head:       cfg.HeadRef,
			Mode:       cfg.Mode(),
			Keys:       append([]string{}, cfg.KeyColumns...),
			DiffSchema: names.Schema,
			Tables:     report.SnapshotID{Base: names.BaseTable, Head: names.HeadTable},
		},
	}

	var err error
	rep.RowCounts.Base, err = d.adapter.RowCount(ctx, db, baseRel)
	if err != nil {
		return nil, fmt.Errorf("failed to count base rows: %w", err)
	}
	rep.RowCounts.Head, err = d.adapter.RowCount(ctx, db, headRel)
	if err != nil {
		return nil, fmt.Errorf("failed to count head rows: %w", err)
	}

	baseColumns, err := d.adapter.ListColumns(ctx, db, names.Schema, names.BaseTable)
	if err != nil {
		return nil, err
	}
	headColumns, err := d.adapter.ListColumns(ctx, db, names.Schema, names.HeadTable)
	if err != nil {
		return nil, err
	}
	rep.SchemaDiff = diffColumnSets(baseColumns, headColumns)

	if cfg.ColStats && len(rep.SchemaDiff.Common) > 0 {
		rep.ColumnProfile, err = d.profileColumns(ctx, db, names, rep.SchemaDiff.Common, rep.RowCounts)
		if err != nil {
			return nil, err
		}
	}

	if len(cfg.KeyColumns) == 0 {
		return rep, nil
	}

	rowDiffer := NewRowDiffer(d.adapter, db, d.logger)
	rep.RowDiff, err = rowDiffer.Run(ctx, RowDiffSpec{
		BaseRel:       baseRel,
		HeadRel:       headRel,
		KeyColumns:    cfg.KeyColumns,
		CommonColumns: rep.SchemaDiff.Common,
		SampleLimit:   cfg.Sample,
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// profileColumns gathers null/distinct counts per side (one scan each) and
// derives percentages against each side's own row count.
func (d *Differ) profileColumns(ctx context.Context, db *sql.DB, names SnapshotNames, common []string, counts report.RowCounts) (map[string]report.ColumnProfile, error) {
	baseStats, err := d.adapter.ColumnProfile(ctx, db, names.Schema, names.BaseTable, common)
	if err != nil {
		return nil, fmt.Errorf("failed to profile base snapshot: %w", err)
	}
	headStats, err := d.adapter.ColumnProfile(ctx, db, names.Schema, names.HeadTable, common)
	if err != nil {
		return nil, fmt.Errorf("failed to profile head snapshot: %w", err)
	}

	out := make(map[string]report.ColumnProfile, len(common))
	for _, col := range common {
		b := baseStats[col]
		h := headStats[col]
		out[col] = report.ColumnProfile{
			Base: report.ColumnSideStats{
				Nulls:    b.Nulls,
				Distinct: b.Distinct,
				NullPct:  report.Pct(b.Nulls, counts.Base),
				UniqPct:  report.Pct(b.Distinct, counts.Base),
			},
			Head: report.ColumnSideStats{
				Nulls:    h.Nulls,
				Distinct: h.Distinct,
				NullPct:  report.Pct(h.Nulls, counts.Head),
				UniqPct:  report.Pct(h.Distinct, counts.Head),
			},
		}
	}
	return out, nil
}

// relationExpr wraps a snapshot table in a subquery applying the shared
// predicate, so both sides are filtered identically.
func relationExpr(quotedTable, where string) string {
	if where == "" {
		return fmt.Sprintf("(select * from %s)", quotedTable)
	}
	return fmt.Sprintf("(select * from %s where %s)", quotedTable, where)
}
