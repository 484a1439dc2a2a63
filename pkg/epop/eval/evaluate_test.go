package eval_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/eval"
	"github.com/epopbench/epop-eval/pkg/epop/report"
)

var filler = strings.Repeat("x", 60)

func doc(t *testing.T, id string, entities ...epop.Entity) *epop.Document {
	t.Helper()
	d := &epop.Document{ID: id, Text: filler, Entities: entities}
	require.NoError(t, d.Index())
	return d
}

func entity(id string, typ epop.EntityType, start, end int) epop.Entity {
	return epop.Entity{ID: id, Type: typ, Span: epop.Span{Start: start, End: end}}
}

func corpus(t *testing.T, docs ...*epop.Document) *epop.Corpus {
	t.Helper()
	c := epop.NewCorpus()
	for _, d := range docs {
		require.NoError(t, c.Add(d))
	}
	return c
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*eval.Config)
		field  string
	}{
		{"threshold above one", func(c *eval.Config) { c.EntityOverlapThreshold = 1.5 }, "entity_overlap_threshold"},
		{"threshold below zero", func(c *eval.Config) { c.EntityOverlapThreshold = -0.1 }, "entity_overlap_threshold"},
		{"unknown scorer", func(c *eval.Config) { c.OverlapScorer = "levenshtein" }, "overlap_scorer"},
		{"negative workers", func(c *eval.Config) { c.Workers = -1 }, "workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := eval.DefaultConfig()
			tc.mutate(&cfg)

			_, err := eval.New(cfg)
			require.Error(t, err)

			var cfgErr *eval.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, eval.DefaultConfig().Validate())
}

func TestRunScoresPerfectPrediction(t *testing.T) {
	gold := corpus(t,
		doc(t, "doc-1", entity("G1", epop.EntityOrganism, 0, 10)),
		doc(t, "doc-2", entity("G1", epop.EntityDisease, 20, 30)),
	)
	pred := corpus(t,
		doc(t, "doc-1", entity("P1", epop.EntityOrganism, 0, 10)),
		doc(t, "doc-2", entity("P1", epop.EntityDisease, 20, 30)),
	)

	rep, err := eval.Evaluate(context.Background(), pred, gold, eval.DefaultConfig())
	require.NoError(t, err)

	micro := rep.Totals.EntityMicro()
	assert.Equal(t, 2, micro.TP)
	assert.Equal(t, 0, micro.FP)
	assert.Equal(t, 0, micro.FN)
	assert.Len(t, rep.PerDocument, 2)
	assert.Empty(t, rep.Ignored)
}

func TestRunScoresMissingPredictionAsEmpty(t *testing.T) {
	gold := corpus(t, doc(t, "doc-1",
		entity("G1", epop.EntityOrganism, 0, 10),
		entity("G2", epop.EntityLocation, 20, 30),
	))
	pred := corpus(t)

	rep, err := eval.Evaluate(context.Background(), pred, gold, eval.DefaultConfig())
	require.NoError(t, err)

	micro := rep.Totals.EntityMicro()
	assert.Equal(t, 0, micro.TP)
	assert.Equal(t, 0, micro.FP)
	assert.Equal(t, 2, micro.FN, "every gold mention becomes a miss")
	require.Contains(t, rep.PerDocument, "doc-1")
}

func TestRunIgnoresPredictionsWithoutGold(t *testing.T) {
	gold := corpus(t, doc(t, "doc-1", entity("G1", epop.EntityOrganism, 0, 10)))
	pred := corpus(t,
		doc(t, "doc-1", entity("P1", epop.EntityOrganism, 0, 10)),
		doc(t, "doc-99", entity("P1", epop.EntityOrganism, 0, 10)),
		doc(t, "doc-98", entity("P1", epop.EntityDisease, 0, 10)),
	)

	rep, err := eval.Evaluate(context.Background(), pred, gold, eval.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"doc-98", "doc-99"}, rep.Ignored)
	micro := rep.Totals.EntityMicro()
	assert.Equal(t, 1, micro.TP, "ignored predictions contribute nothing")
	assert.Equal(t, 0, micro.FP)
}

func TestRunTotalsDoNotDependOnOrderOrWorkers(t *testing.T) {
	docs := []*epop.Document{
		doc(t, "doc-1", entity("G1", epop.EntityOrganism, 0, 10)),
		doc(t, "doc-2", entity("G1", epop.EntityDisease, 0, 10), entity("G2", epop.EntityDisease, 20, 30)),
		doc(t, "doc-3", entity("G1", epop.EntityHabitat, 40, 50)),
	}
	preds := []*epop.Document{
		doc(t, "doc-1", entity("P1", epop.EntityOrganism, 0, 10)),
		doc(t, "doc-2", entity("P1", epop.EntityDisease, 0, 9)),
		doc(t, "doc-3", entity("P1", epop.EntityLocation, 40, 50)),
	}

	var reports []*report.CorpusReport
	for _, workers := range []int{1, 2, 8} {
		cfg := eval.DefaultConfig()
		cfg.Workers = workers

		gold := corpus(t, docs[workers%3], docs[(workers+1)%3], docs[(workers+2)%3])
		pred := corpus(t, preds[(workers+2)%3], preds[workers%3], preds[(workers+1)%3])

		rep, err := eval.Evaluate(context.Background(), pred, gold, cfg)
		require.NoError(t, err)
		reports = append(reports, rep)
	}

	for _, rep := range reports[1:] {
		assert.Equal(t, reports[0].Totals, rep.Totals)
		assert.Equal(t, reports[0].Rows(), rep.Rows())
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	gold := corpus(t, doc(t, "doc-1", entity("G1", epop.EntityOrganism, 0, 10)))
	pred := corpus(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := eval.Evaluate(ctx, pred, gold, eval.DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rep)
}
