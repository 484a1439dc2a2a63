package report_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/report"
	"github.com/epopbench/epop-eval/pkg/epop/score"
)

func defaultSettings() report.Settings {
	return report.Settings{
		EntityOverlapThreshold: 0.5,
		OverlapScorer:          "iou",
		CorefPartialCredit:     true,
		CorefAwareRelations:    true,
		LinkingCaseSensitive:   true,
	}
}

func TestTotalsPoolCountsInsteadOfAveragingF1(t *testing.T) {
	rep := report.New(defaultSettings())
	require.NotEmpty(t, rep.ID)

	a := score.NewRecord()
	a.Entities[epop.EntityOrganism] = score.Counts{TP: 1, FP: 1}
	rep.AddDocument("doc-a", a)

	b := score.NewRecord()
	b.Entities[epop.EntityOrganism] = score.Counts{TP: 1, FN: 3}
	rep.AddDocument("doc-b", b)

	var organism report.Row
	for _, row := range rep.Rows() {
		if row.Section == report.SectionEntities && row.Label == string(epop.EntityOrganism) {
			organism = row
		}
	}

	// Per-document F1s are 2/3 and 2/5; their mean would be 8/15. Pooling
	// the counts first gives exactly 1/2.
	require.NotNil(t, organism.F1)
	assert.InDelta(t, 0.5, *organism.F1, 1e-9)
	assert.Equal(t, 2, organism.TP)
	assert.Equal(t, 1, organism.FP)
	assert.Equal(t, 3, organism.FN)

	assert.Equal(t, []string{"doc-a", "doc-b"}, rep.Documents())
}

func TestRowsLayout(t *testing.T) {
	rep := report.New(defaultSettings())
	rows := rep.Rows()

	require.Len(t, rows, 11, "4 entity types + 4 relation types + micro/macro pairs + coreference")
	assert.Equal(t, string(epop.EntityOrganism), rows[0].Label)
	assert.Equal(t, report.LabelMicro, rows[4].Label)
	assert.Equal(t, report.LabelMacro, rows[5].Label)
	assert.Equal(t, string(epop.RelationTransmits), rows[6].Label)
	assert.Equal(t, report.SectionCoref, rows[10].Section)
	assert.Equal(t, report.LabelBCubed, rows[10].Label)

	assert.Nil(t, rows[0].F1, "no instances means no F1")
	assert.Nil(t, rows[10].F1, "no mentions on either side means no coreference F1")

	binary := defaultSettings()
	binary.CorefPartialCredit = false
	rows = report.New(binary).Rows()
	assert.Equal(t, report.LabelChains, rows[10].Label)
}

func TestWriteTSV(t *testing.T) {
	rep := report.New(defaultSettings())
	rec := score.NewRecord()
	rec.Entities[epop.EntityDisease] = score.Counts{TP: 3, FP: 1}
	rep.AddDocument("doc-a", rec)

	out := report.RenderTSV(rep.Rows())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	require.Len(t, lines, 12)
	assert.Equal(t, "section\tlabel\ttp\tfp\tfn\tprecision\trecall\tf1", lines[0])
	assert.Equal(t, "entities\tDisease\t3\t1\t0\t0.7500\t1.0000\t0.8571", lines[2])
	assert.True(t, strings.HasSuffix(lines[1], "\t-"), "organism row has no F1")
}

func TestWriteMatrixRejectsRaggedRows(t *testing.T) {
	var sb strings.Builder
	err := report.WriteMatrix(&sb, []string{"document", "model-a"}, [][]string{{"doc-1"}})
	require.Error(t, err)

	sb.Reset()
	err = report.WriteMatrix(&sb, []string{"document", "model-a"}, [][]string{{"doc-1", "0.5000"}})
	require.NoError(t, err)
	assert.Equal(t, "document\tmodel-a\ndoc-1\t0.5000\n", sb.String())
}

func TestMarkdown(t *testing.T) {
	rep := report.New(defaultSettings())
	rec := score.NewRecord()
	rec.Entities[epop.EntityOrganism] = score.Counts{TP: 2}
	rec.Linking = score.Ratio{Correct: 1, Total: 2}
	rep.AddDocument("doc-a", rec)
	rep.Ignored = []string{"doc-zz"}

	md := report.Markdown(rep)

	assert.Contains(t, md, "# Corpus evaluation "+rep.ID)
	assert.Contains(t, md, "| Section ")
	assert.Contains(t, md, "Linking accuracy: 1/2 = 0.5000")
	assert.Contains(t, md, "Ignored predictions without gold: doc-zz")

	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "|") {
			assert.True(t, strings.HasSuffix(line, "|"), "table lines stay balanced: %q", line)
		}
	}
}

func TestFilter(t *testing.T) {
	rep := report.New(defaultSettings())
	rec := score.NewRecord()
	rec.Entities[epop.EntityOrganism] = score.Counts{TP: 9, FP: 1}
	rec.Entities[epop.EntityDisease] = score.Counts{TP: 1, FP: 9}
	rec.Relations[epop.RelationCauses] = score.Counts{TP: 1}
	rep.AddDocument("doc-a", rec)
	rows := rep.Rows()

	entities := report.NewFilter().WithSections(report.SectionEntities).Apply(rows)
	require.Len(t, entities, 6)

	labeled := report.NewFilter().WithLabels(string(epop.EntityOrganism)).Apply(rows)
	require.Len(t, labeled, 1)
	assert.Equal(t, 9, labeled[0].TP)

	strong := report.NewFilter().WithSections(report.SectionEntities).WithMinF1(0.8).Apply(rows)
	require.Len(t, strong, 1, "only the organism row reaches 0.8, absent F1 never passes")
	assert.Equal(t, string(epop.EntityOrganism), strong[0].Label)

	assert.Contains(t, report.NewFilter().WithMinF1(0.8).String(), "min_f1")
}

func TestD3ChartRender(t *testing.T) {
	rep := report.New(defaultSettings())
	rec := score.NewRecord()
	rec.Entities[epop.EntityOrganism] = score.Counts{TP: 1}
	rep.AddDocument("doc-a", rec)

	path := filepath.Join(t.TempDir(), "charts", "run.html")
	require.NoError(t, report.NewD3Chart(path).Render(rep))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(raw)
	assert.Contains(t, html, "d3.v7.min.js")
	assert.Contains(t, html, rep.ID)
	assert.Contains(t, html, `"section":"entities"`)
}
