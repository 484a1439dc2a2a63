package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/report"
	"github.com/epopbench/epop-eval/pkg/epop/score"
	"github.com/epopbench/epop-eval/pkg/epop/storage"
)

func sampleReport() *report.CorpusReport {
	rep := report.New(report.Settings{
		EntityOverlapThreshold: 0.5,
		OverlapScorer:          "iou",
		CorefPartialCredit:     true,
		CorefAwareRelations:    true,
		LinkingCaseSensitive:   true,
	})
	rec := score.NewRecord()
	rec.Entities[epop.EntityOrganism] = score.Counts{TP: 3, FP: 1, FN: 2}
	rec.Relations[epop.RelationCauses] = score.Counts{TP: 1}
	rec.Linking = score.Ratio{Correct: 2, Total: 3}
	rec.CorefPrecision = score.Fraction{Num: 2, Den: 3}
	rec.CorefRecall = score.Fraction{Num: 1, Den: 3}
	rep.AddDocument("doc-1", rec)
	return rep
}

func TestJSONReportStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	store := storage.NewJSONReportStore(path)

	rep := sampleReport()
	require.NoError(t, store.StoreReport(context.Background(), rep))

	loaded, err := store.LoadReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, rep.ID, loaded.ID)
	assert.Equal(t, rep.Settings, loaded.Settings)
	assert.Equal(t, rep.Totals, loaded.Totals)
	assert.Equal(t, rep.PerDocument["doc-1"], loaded.PerDocument["doc-1"])
	assert.Equal(t, rep.Rows(), loaded.Rows(), "a reloaded report renders identically")
}

func TestJSONReportStoreLoadMissing(t *testing.T) {
	store := storage.NewJSONReportStore(filepath.Join(t.TempDir(), "absent.json"))
	_, err := store.LoadReport(context.Background())
	assert.Error(t, err)
}

func TestRunLogAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "runs.jsonl")
	log := storage.NewRunLog(path)

	first := storage.EntryFor(sampleReport())
	second := storage.EntryFor(sampleReport())
	require.NoError(t, log.Append(first))
	require.NoError(t, log.Append(second))

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.RunID, entries[0].RunID)
	assert.Equal(t, second.RunID, entries[1].RunID)
	assert.NotEqual(t, entries[0].RunID, entries[1].RunID, "every run gets its own ID")

	require.NotNil(t, entries[0].EntityMicroF1)
	assert.InDelta(t, 2.0/3.0, *entries[0].EntityMicroF1, 1e-9)
	assert.InDelta(t, 2.0/3.0, entries[0].LinkingAccuracy, 1e-9)
}

func TestRunLogEntriesOnEmptyLog(t *testing.T) {
	log := storage.NewRunLog(filepath.Join(t.TempDir(), "never-written.jsonl"))
	entries, err := log.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
