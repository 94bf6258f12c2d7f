// Package report defines the result structure produced by a model diff run.
// Formatters consume it read-only; field names are part of the JSON output
// contract and must stay stable.
package report

// Modes for a diff run. FULL_DIFF requires key columns; without keys the run
// stops after row counts, schema diff, and column statistics.
const (
	ModeFullDiff  = "FULL_DIFF"
	ModeStatsOnly = "STATS_ONLY"
)

// Report is the complete result of one diff run. It is only ever returned
// whole: a failed run yields an error, never a partially filled Report.
type Report struct {
	Meta          Meta                     `json:"meta"`
	RowCounts     RowCounts                `json:"rowcounts"`
	SchemaDiff    SchemaDiff               `json:"schema_diff"`
	ColumnProfile map[string]ColumnProfile `json:"column_profile,omitempty"`
	RowDiff       *RowDiff                 `json:"row_diff"`
}

// Meta carries run identification: what was compared and where the
// snapshots were materialized.
type Meta struct {
	Model      string     `json:"model"`
	Base       string     `json:"base"`
	Head       string     `json:"head"`
	Mode       string     `json:"mode"`
	Keys       []string   `json:"keys"`
	DiffSchema string     `json:"diff_schema"`
	Tables     SnapshotID `json:"tables"`
}

// SnapshotID names the two snapshot tables inside the diff schema.
type SnapshotID struct {
	Base string `json:"base"`
	Head string `json:"head"`
}

// RowCounts holds the (optionally predicate-filtered) row count per side.
type RowCounts struct {
	Base int64 `json:"base"`
	Head int64 `json:"head"`
}

// SchemaDiff partitions the two column lists. Common preserves the head
// snapshot's column order, which also fixes the hash input order downstream.
type SchemaDiff struct {
	OnlyInBase []string `json:"only_in_base"`
	OnlyInHead []string `json:"only_in_head"`
	Common     []string `json:"common"`
}

// ColumnProfile holds per-side statistics for one common column.
type ColumnProfile struct {
	Base ColumnSideStats `json:"base"`
	Head ColumnSideStats `json:"head"`
}

// ColumnSideStats are raw counts plus percentages derived against that
// side's own row count.
type ColumnSideStats struct {
	Nulls    int64   `json:"nulls"`
	Distinct int64   `json:"distinct"`
	NullPct  float64 `json:"null_pct"`
	UniqPct  float64 `json:"uniq_pct"`
}

// RowDiff is the key-based row comparison result. SampleKeys holds up to the
// requested number of changed key tuples, one value per key column, in no
// particular order. DuplicateKeyGroups counts key tuples that match more than
// one row on a side; when non-zero the changed count has many-to-many join
// semantics.
type RowDiff struct {
	Added              int64      `json:"added"`
	Removed            int64      `json:"removed"`
	Changed            int64      `json:"changed"`
	SampleKeys         [][]string `json:"sample_keys"`
	DuplicateKeyGroups RowCounts  `json:"duplicate_key_groups"`
}

// Pct computes a percentage with divide-by-zero safety.
func Pct(n, d int64) float64 {
	if d == 0 {
		return 0.0
	}
	return float64(n) / float64(d) * 100.0
}
