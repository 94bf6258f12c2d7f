package cmd

import "github.com/dataops-tools/model-diff/cmd/report"

// diffColumnSets partitions two ordered column lists into the columns common
// to both and each side's exclusive columns. Common iterates in head order;
// that order fixes every downstream column ordering, including the row hash
// input. No warehouse interaction.
func diffColumnSets(baseColumns, headColumns []string) report.SchemaDiff {
	baseSet := make(map[string]struct{}, len(baseColumns))
	for _, c := range baseColumns {
		baseSet[c] = struct{}{}
	}
	headSet := make(map[string]struct{}, len(headColumns))
	for _, c := range headColumns {
		headSet[c] = struct{}{}
	}

	d := report.SchemaDiff{
		Common:     []string{},
		OnlyInHead: []string{},
		OnlyInBase: []string{},
	}
	for _, c := range headColumns {
		if _, ok := baseSet[c]; ok {
			d.Common = append(d.Common, c)
		} else {
			d.OnlyInHead = append(d.OnlyInHead, c)
		}
	}
	for _, c := range baseColumns {
		if _, ok := headSet[c]; !ok {
			d.OnlyInBase = append(d.OnlyInBase, c)
		}
	}
	return d
}
