package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// diffSchemaPrefix namespaces every disposable schema this tool creates, so
// leftovers from --keep-schemas runs are recognizable.
const diffSchemaPrefix = "model_diff__"

// maxWarehouseIdent is PostgreSQL's NAMEDATALEN limit of 63 bytes; Redshift
// allows 127, so the tighter limit governs both dialects.
const maxWarehouseIdent = 63

// SnapshotNames are the deterministic identifiers for one run's disposable
// schema and its two snapshot tables. Derived from model plus both revision
// identifiers (never wall-clock), so concurrent runs comparing different
// model/revision combinations cannot collide, while a rerun of the same
// comparison reuses and replaces its own schema.
type SnapshotNames struct {
	Schema    string
	BaseTable string
	HeadTable string
}

func snapshotNames(model, baseRef, headRef string) SnapshotNames {
	schema := diffSchemaPrefix + sanitizeIdent(fmt.Sprintf("%s_%s_%s", model, baseRef, headRef))
	if len(schema) > maxWarehouseIdent {
		schema = schema[:maxWarehouseIdent]
	}

	// The table fragment is cut so the __base/__head suffix always survives
	// and the two names stay distinct.
	table := sanitizeIdent(model)
	if max := maxWarehouseIdent - len("__base"); len(table) > max {
		table = table[:max]
	}

	return SnapshotNames{
		Schema:    schema,
		BaseTable: table + "__base",
		HeadTable: table + "__head",
	}
}

// SnapshotBuilder copies already-built model relations into the disposable
// diff schema as immutable snapshot tables, insulating comparison queries
// from concurrent mutation of the sources. The schema is the unit of
// cleanup: one drop-cascade removes both tables.
type SnapshotBuilder struct {
	adapter WarehouseAdapter
	db      *sql.DB
	names   SnapshotNames
	logger  *slog.Logger
}

func NewSnapshotBuilder(adapter WarehouseAdapter, db *sql.DB, names SnapshotNames, logger *slog.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{adapter: adapter, db: db, names: names, logger: logger}
}

// EnsureSchema creates the disposable schema. Called once before either copy.
func (b *SnapshotBuilder) EnsureSchema(ctx context.Context) error {
	return b.adapter.EnsureSchema(ctx, b.db, b.names.Schema)
}

// SnapshotBase copies the base side's built relation into the diff schema.
func (b *SnapshotBuilder) SnapshotBase(ctx context.Context, srcSchema, srcTable string) error {
	return b.copy(ctx, srcSchema, srcTable, b.names.BaseTable)
}

// SnapshotHead copies the head side's built relation into the diff schema.
func (b *SnapshotBuilder) SnapshotHead(ctx context.Context, srcSchema, srcTable string) error {
	return b.copy(ctx, srcSchema, srcTable, b.names.HeadTable)
}

func (b *SnapshotBuilder) copy(ctx context.Context, srcSchema, srcTable, dstTable string) error {
	b.logger.Debug(fmt.Sprintf("Snapshotting %s.%s into %s.%s", srcSchema, srcTable, b.names.Schema, dstTable))
	return b.adapter.CopyRelation(ctx, b.db, srcSchema, srcTable, b.names.Schema, dstTable)
}

// Cleanup drops the disposable schema with everything in it. Best-effort:
// failures are logged, never returned, so they cannot mask a run error.
func (b *SnapshotBuilder) Cleanup(ctx context.Context) {
	if err := b.adapter.DropSchema(ctx, b.db, b.names.Schema); err != nil {
		b.logger.Warn(fmt.Sprintf("Failed to drop diff schema %s: %v", b.names.Schema, err))
	}
}
