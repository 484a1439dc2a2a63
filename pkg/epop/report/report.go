package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/score"
)

// Section names the evaluation layer a row belongs to.
type Section string

const (
	SectionEntities  Section = "entities"
	SectionRelations Section = "relations"
	SectionCoref     Section = "coreference"
)

// Labels shared by aggregate rows.
const (
	LabelMicro  = "micro"
	LabelMacro  = "macro"
	LabelBCubed = "b_cubed"
	LabelChains = "chains"
)

// Settings echoes the configuration a report was produced under.
type Settings struct {
	EntityOverlapThreshold float64 `json:"entity_overlap_threshold"`
	OverlapScorer          string  `json:"overlap_scorer"`
	CorefPartialCredit     bool    `json:"coref_partial_credit"`
	CorefAwareRelations    bool    `json:"coref_aware_relations"`
	LinkingCaseSensitive   bool    `json:"linking_case_sensitive"`
}

// Row is one line of the corpus summary table.
type Row struct {
	Section   Section  `json:"section"`
	Label     string   `json:"label"`
	TP        int      `json:"tp"`
	FP        int      `json:"fp"`
	FN        int      `json:"fn"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        *float64 `json:"f1"`
}

// CorpusReport is the evaluation outcome over a whole corpus. Totals are
// summed counts, never averaged per-document ratios, so the corpus F1 is
// recomputed from pooled counts.
type CorpusReport struct {
	ID          string                   `json:"id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Settings    Settings                 `json:"settings"`
	PerDocument map[string]*score.Record `json:"per_document"`
	Totals      *score.Record            `json:"totals"`
	// Ignored lists predicted document IDs with no gold counterpart.
	Ignored []string `json:"ignored_predictions,omitempty"`
}

// New returns an empty report stamped with a fresh run ID.
func New(settings Settings) *CorpusReport {
	return &CorpusReport{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Settings:    settings,
		PerDocument: make(map[string]*score.Record),
		Totals:      score.NewRecord(),
	}
}

// AddDocument folds one document's record into the totals. Not safe for
// concurrent use; callers serialize.
func (r *CorpusReport) AddDocument(docID string, rec *score.Record) {
	r.PerDocument[docID] = rec
	r.Totals = r.Totals.Merge(rec)
}

// Documents returns the scored document IDs in sorted order.
func (r *CorpusReport) Documents() []string {
	ids := make([]string, 0, len(r.PerDocument))
	for id := range r.PerDocument {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rows renders the totals as summary rows: per-type lines in canonical
// order, then micro and macro aggregates, then the coreference line in
// whichever form the settings selected.
func (r *CorpusReport) Rows() []Row {
	rows := make([]Row, 0, len(epop.EntityTypes)+len(epop.RelationTypes)+5)

	for _, t := range epop.EntityTypes {
		rows = append(rows, countsRow(SectionEntities, string(t), r.Totals.Entities[t]))
	}
	rows = append(rows, countsRow(SectionEntities, LabelMicro, r.Totals.EntityMicro()))
	rows = append(rows, macroRow(SectionEntities, r.Totals.EntityMacro()))

	for _, t := range epop.RelationTypes {
		rows = append(rows, countsRow(SectionRelations, string(t), r.Totals.Relations[t]))
	}
	rows = append(rows, countsRow(SectionRelations, LabelMicro, r.Totals.RelationMicro()))
	rows = append(rows, macroRow(SectionRelations, r.Totals.RelationMacro()))

	if r.Settings.CorefPartialCredit {
		rows = append(rows, bcubedRow(r.Totals))
	} else {
		rows = append(rows, countsRow(SectionCoref, LabelChains, r.Totals.CorefChains))
	}
	return rows
}

// LinkingAccuracy exposes the pooled linking ratio.
func (r *CorpusReport) LinkingAccuracy() score.Ratio {
	return r.Totals.Linking
}

func countsRow(section Section, label string, c score.Counts) Row {
	return Row{
		Section:   section,
		Label:     label,
		TP:        c.TP,
		FP:        c.FP,
		FN:        c.FN,
		Precision: c.Precision(),
		Recall:    c.Recall(),
		F1:        c.F1(),
	}
}

func macroRow(section Section, m score.Macro) Row {
	return Row{
		Section:   section,
		Label:     LabelMacro,
		Precision: m.Precision,
		Recall:    m.Recall,
		F1:        m.F1,
	}
}

func bcubedRow(totals *score.Record) Row {
	row := Row{
		Section:   SectionCoref,
		Label:     LabelBCubed,
		Precision: totals.CorefPrecision.Value(),
		Recall:    totals.CorefRecall.Value(),
	}
	if totals.CorefPrecision.Den == 0 && totals.CorefRecall.Den == 0 {
		return row // no mentions on either side, F1 stays absent
	}
	f := 0.0
	if s := row.Precision + row.Recall; s > 0 {
		f = 2 * row.Precision * row.Recall / s
	}
	row.F1 = &f
	return row
}
