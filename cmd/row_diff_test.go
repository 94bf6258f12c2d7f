package cmd

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

// scriptedAdapter reuses postgres SQL generation while answering scalar and
// row queries from a script, in order.
type scriptedAdapter struct {
	PostgresAdapter
	queries    []string
	scalars    []int64
	rowResults [][][]string
}

func (f *scriptedAdapter) Scalar(_ context.Context, _ *sql.DB, query string) (int64, error) {
	f.queries = append(f.queries, query)
	if len(f.scalars) == 0 {
		return 0, errors.New("scripted adapter: no scalar left")
	}
	v := f.scalars[0]
	f.scalars = f.scalars[1:]
	return v, nil
}

func (f *scriptedAdapter) Rows(_ context.Context, _ *sql.DB, query string) ([][]string, error) {
	f.queries = append(f.queries, query)
	if len(f.rowResults) == 0 {
		return nil, errors.New("scripted adapter: no row result left")
	}
	r := f.rowResults[0]
	f.rowResults = f.rowResults[1:]
	return r, nil
}

func TestRowDifferValidation(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		common  []string
		wantErr error
	}{
		{
			name:    "no keys",
			keys:    nil,
			common:  []string{"id", "name"},
			wantErr: ErrNoKeyColumns,
		},
		{
			name:    "key missing from common columns",
			keys:    []string{"order_id"},
			common:  []string{"id", "name"},
			wantErr: ErrKeyNotInCommon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewRowDiffer(&scriptedAdapter{}, nil, newTestLogger())
			_, err := d.Run(context.Background(), RowDiffSpec{
				BaseRel:       "(select * from b)",
				HeadRel:       "(select * from h)",
				KeyColumns:    tt.keys,
				CommonColumns: tt.common,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRowDifferCounts(t *testing.T) {
	fake := &scriptedAdapter{
		// added, removed, dup base, dup head, changed
		scalars:    []int64{1, 2, 0, 0, 3},
		rowResults: [][][]string{{{"7"}, {"9"}}},
	}
	d := NewRowDiffer(fake, nil, newTestLogger())

	got, err := d.Run(context.Background(), RowDiffSpec{
		BaseRel:       "(select * from b)",
		HeadRel:       "(select * from h)",
		KeyColumns:    []string{"id"},
		CommonColumns: []string{"id", "name", "email"},
		SampleLimit:   20,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got.Added != 1 || got.Removed != 2 || got.Changed != 3 {
		t.Errorf("counts = added %d removed %d changed %d, want 1 2 3", got.Added, got.Removed, got.Changed)
	}
	if len(got.SampleKeys) != 2 || got.SampleKeys[0][0] != "7" {
		t.Errorf("SampleKeys = %v, want [[7] [9]]", got.SampleKeys)
	}

	if len(fake.queries) != 6 {
		t.Fatalf("issued %d queries, want 6: %v", len(fake.queries), fake.queries)
	}

	added := fake.queries[0]
	if !strings.Contains(added, "h left join") || !strings.Contains(added, `where b."id" is null`) {
		t.Errorf("added query shape wrong: %s", added)
	}
	removed := fake.queries[1]
	if !strings.Contains(removed, "b left join") || !strings.Contains(removed, `where h."id" is null`) {
		t.Errorf("removed query shape wrong: %s", removed)
	}
	for _, q := range fake.queries[2:4] {
		if !strings.Contains(q, "having count(*) > 1") {
			t.Errorf("duplicate key query shape wrong: %s", q)
		}
	}
	changed := fake.queries[4]
	// The hash covers only non-key columns, in common-column order.
	if !strings.Contains(changed, `coalesce("name"::text,'<NULL>') || '|' || coalesce("email"::text,'<NULL>')`) {
		t.Errorf("changed query must hash non-key columns: %s", changed)
	}
	if strings.Contains(changed, `coalesce("id"`) {
		t.Errorf("key column leaked into the row hash: %s", changed)
	}
	if !strings.Contains(changed, "b.row_hash <> h.row_hash") {
		t.Errorf("changed query shape wrong: %s", changed)
	}
	sample := fake.queries[5]
	if !strings.Contains(sample, "limit 20") {
		t.Errorf("sample query must carry the limit: %s", sample)
	}
}

func TestRowDifferNoChangesSkipsSample(t *testing.T) {
	fake := &scriptedAdapter{scalars: []int64{0, 0, 0, 0, 0}}
	d := NewRowDiffer(fake, nil, newTestLogger())

	got, err := d.Run(context.Background(), RowDiffSpec{
		BaseRel:       "(select * from b)",
		HeadRel:       "(select * from h)",
		KeyColumns:    []string{"id"},
		CommonColumns: []string{"id", "name"},
		SampleLimit:   20,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.queries) != 5 {
		t.Errorf("issued %d queries, want 5 (no sample round trip)", len(fake.queries))
	}
	if len(got.SampleKeys) != 0 {
		t.Errorf("SampleKeys = %v, want empty", got.SampleKeys)
	}
}

func TestRowDifferZeroSampleLimitSkipsSample(t *testing.T) {
	fake := &scriptedAdapter{scalars: []int64{0, 0, 0, 0, 5}}
	d := NewRowDiffer(fake, nil, newTestLogger())

	got, err := d.Run(context.Background(), RowDiffSpec{
		BaseRel:       "(select * from b)",
		HeadRel:       "(select * from h)",
		KeyColumns:    []string{"id"},
		CommonColumns: []string{"id", "name"},
		SampleLimit:   0,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Changed != 5 {
		t.Errorf("Changed = %d, want 5", got.Changed)
	}
	if len(fake.queries) != 5 {
		t.Errorf("issued %d queries, want 5 (no sample round trip)", len(fake.queries))
	}
}

func TestRowDifferAllColumnsAreKeys(t *testing.T) {
	fake := &scriptedAdapter{scalars: []int64{0, 0, 0, 0, 0}}
	d := NewRowDiffer(fake, nil, newTestLogger())

	_, err := d.Run(context.Background(), RowDiffSpec{
		BaseRel:       "(select * from b)",
		HeadRel:       "(select * from h)",
		KeyColumns:    []string{"id", "region"},
		CommonColumns: []string{"id", "region"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	changed := fake.queries[4]
	if !strings.Contains(changed, "md5('')") {
		t.Errorf("with no non-key payload the hash must be constant: %s", changed)
	}
}

func TestRowDifferDuplicateKeysReported(t *testing.T) {
	fake := &scriptedAdapter{scalars: []int64{0, 0, 2, 1, 0}}
	d := NewRowDiffer(fake, nil, newTestLogger())

	got, err := d.Run(context.Background(), RowDiffSpec{
		BaseRel:       "(select * from b)",
		HeadRel:       "(select * from h)",
		KeyColumns:    []string{"id"},
		CommonColumns: []string{"id", "name"},
	})
	if err != nil {
		t.Fatalf("duplicate keys must not fail the run: %v", err)
	}
	if got.DuplicateKeyGroups.Base != 2 || got.DuplicateKeyGroups.Head != 1 {
		t.Errorf("DuplicateKeyGroups = %+v, want {2 1}", got.DuplicateKeyGroups)
	}
}

func TestRowDifferCompositeKeyJoin(t *testing.T) {
	fake := &scriptedAdapter{scalars: []int64{0, 0, 0, 0, 0}}
	d := NewRowDiffer(fake, nil, newTestLogger())

	_, err := d.Run(context.Background(), RowDiffSpec{
		BaseRel:       "(select * from b)",
		HeadRel:       "(select * from h)",
		KeyColumns:    []string{"order_id", "line_no"},
		CommonColumns: []string{"order_id", "line_no", "qty"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	added := fake.queries[0]
	if !strings.Contains(added, `b."order_id" = h."order_id" and b."line_no" = h."line_no"`) {
		t.Errorf("composite join condition wrong: %s", added)
	}
	changed := fake.queries[4]
	if !strings.Contains(changed, `using ("order_id", "line_no")`) {
		t.Errorf("composite using clause wrong: %s", changed)
	}
}
