package score_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/align"
	"github.com/epopbench/epop-eval/pkg/epop/score"
)

var filler = strings.Repeat("x", 60)

func mustDoc(t *testing.T, d *epop.Document) *epop.Document {
	t.Helper()
	require.NoError(t, d.Index())
	return d
}

func entity(id string, typ epop.EntityType, start, end int) epop.Entity {
	return epop.Entity{ID: id, Type: typ, Span: epop.Span{Start: start, End: end}}
}

func linked(id string, typ epop.EntityType, start, end int, auth epop.Authority, value string) epop.Entity {
	e := entity(id, typ, start, end)
	e.Linking = &epop.Linking{Authority: auth, Value: value}
	return e
}

func TestCountsF1(t *testing.T) {
	cases := []struct {
		name   string
		counts score.Counts
		want   *float64
	}{
		{"nothing to score", score.Counts{}, nil},
		{"all predictions wrong", score.Counts{FP: 2, FN: 1}, ptr(0.0)},
		{"perfect", score.Counts{TP: 3}, ptr(1.0)},
		{"balanced errors", score.Counts{TP: 1, FP: 1, FN: 1}, ptr(0.5)},
		{"skewed errors", score.Counts{TP: 3, FP: 1, FN: 2}, ptr(2.0 / 3.0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.counts.F1()
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tc.want, *got, 1e-9)
		})
	}
}

func ptr(f float64) *float64 { return &f }

func TestScoreEntityAndRelationCounts(t *testing.T) {
	gold := mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			entity("G1", epop.EntityOrganism, 0, 10),
			entity("G2", epop.EntityOrganism, 20, 30),
			entity("GD", epop.EntityDisease, 40, 50),
		},
		Relations: []epop.Relation{
			{ID: "RG", Type: epop.RelationTransmits, Modality: epop.ModalityAsserted, Arguments: []epop.Argument{
				{Role: "agent", Entity: "G1"},
				{Role: "host", Entity: "G2"},
			}},
		}})
	pred := mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			entity("P1", epop.EntityOrganism, 0, 10),
			entity("P2", epop.EntityOrganism, 20, 30),
			entity("PL", epop.EntityLocation, 50, 60),
		},
		Relations: []epop.Relation{
			{ID: "RP", Type: epop.RelationTransmits, Modality: epop.ModalityAsserted, Arguments: []epop.Argument{
				{Role: "agent", Entity: "P1"},
				{Role: "host", Entity: "P2"},
			}},
		}})

	res := align.New(align.Defaults()).Align(pred, gold)
	rec := score.Score(res, score.Options{CorefPartialCredit: true, LinkingCaseSensitive: true})

	assert.Equal(t, score.Counts{TP: 2}, rec.Entities[epop.EntityOrganism])
	assert.Equal(t, score.Counts{FN: 1}, rec.Entities[epop.EntityDisease])
	assert.Equal(t, score.Counts{FP: 1}, rec.Entities[epop.EntityLocation])
	assert.Equal(t, score.Counts{}, rec.Entities[epop.EntityHabitat])
	assert.Equal(t, score.Counts{TP: 1}, rec.Relations[epop.RelationTransmits])

	micro := rec.EntityMicro()
	assert.Equal(t, score.Counts{TP: 2, FP: 1, FN: 1}, micro)

	macro := rec.EntityMacro()
	assert.Equal(t, 3, macro.Types, "habitat has no instances and is excluded")
	assert.InDelta(t, 1.0/3.0, macro.Precision, 1e-9)
	assert.InDelta(t, 1.0/3.0, macro.Recall, 1e-9)
	require.NotNil(t, macro.F1)
	assert.InDelta(t, 1.0/3.0, *macro.F1, 1e-9)
}

func TestScoreLinkingAccuracy(t *testing.T) {
	gold := mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			linked("G1", epop.EntityOrganism, 0, 10, epop.AuthorityNCBITaxonomy, "9606"),
			linked("G2", epop.EntityLocation, 20, 30, epop.AuthorityGeoNames, "3169069"),
			entity("G3", epop.EntityDisease, 40, 50),
			linked("G4", epop.EntityOrganism, 50, 60, epop.AuthorityNCBITaxonomy, "2371"),
		}})
	pred := mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			// Right span, neighboring taxon: detection credit, no linking credit.
			linked("P1", epop.EntityOrganism, 0, 10, epop.AuthorityNCBITaxonomy, "9605"),
			// Right value in the wrong registry.
			linked("P2", epop.EntityLocation, 20, 30, epop.AuthorityName, "3169069"),
			// Gold mention is unlinked, so this pair never enters the ratio.
			linked("P3", epop.EntityDisease, 40, 50, epop.AuthorityNCBITaxonomy, "1"),
		}})

	res := align.New(align.Defaults()).Align(pred, gold)
	rec := score.Score(res, score.Options{CorefPartialCredit: true, LinkingCaseSensitive: true})

	// G4 is linked but unaligned; only aligned gold-linked pairs count.
	assert.Equal(t, score.Ratio{Correct: 0, Total: 2}, rec.Linking)
	assert.Equal(t, score.Counts{TP: 3, FN: 1}, rec.EntityMicro(),
		"wrong identifiers do not hurt detection counts")
}

func TestScoreLinkingCaseSensitivity(t *testing.T) {
	gold := mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			linked("G1", epop.EntityHabitat, 0, 10, epop.AuthorityOntoBiotope, "OBT:001234"),
		}})
	pred := mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			linked("P1", epop.EntityHabitat, 0, 10, epop.AuthorityOntoBiotope, "obt:001234"),
		}})

	res := align.New(align.Defaults()).Align(pred, gold)

	strict := score.Score(res, score.Options{LinkingCaseSensitive: true})
	assert.Equal(t, score.Ratio{Correct: 0, Total: 1}, strict.Linking)

	lax := score.Score(res, score.Options{LinkingCaseSensitive: false})
	assert.Equal(t, score.Ratio{Correct: 1, Total: 1}, lax.Linking)
}

func corefDocs(t *testing.T) (pred, gold *epop.Document) {
	t.Helper()
	gold = mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			entity("G1", epop.EntityOrganism, 0, 5),
			entity("G2", epop.EntityOrganism, 10, 15),
			entity("G3", epop.EntityOrganism, 20, 25),
			entity("G4", epop.EntityOrganism, 30, 35),
		},
		Chains: []epop.Chain{{ID: "CG", Members: []string{"G1", "G2", "G3"}}}})
	pred = mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			entity("P1", epop.EntityOrganism, 0, 5),
			entity("P2", epop.EntityOrganism, 10, 15),
			entity("P3", epop.EntityOrganism, 20, 25),
			entity("P4", epop.EntityOrganism, 30, 35),
		},
		Chains: []epop.Chain{{ID: "CP", Members: []string{"P1", "P2"}}}})
	return pred, gold
}

func TestScoreBCubed(t *testing.T) {
	pred, gold := corefDocs(t)
	res := align.New(align.Defaults()).Align(pred, gold)
	rec := score.Score(res, score.Options{CorefPartialCredit: true})

	// Every predicted cluster is pure, so precision is 1. The gold chain of
	// three is split 2+1 on the predicted side: recall (2/3+2/3+1/3+1)/4.
	assert.InDelta(t, 1.0, rec.CorefPrecision.Value(), 1e-9)
	assert.InDelta(t, 2.0/3.0, rec.CorefRecall.Value(), 1e-9)
	assert.Equal(t, score.Counts{}, rec.CorefChains, "chain counts stay empty in partial mode")
}

func TestScoreBCubedUnalignedMention(t *testing.T) {
	pred, gold := corefDocs(t)
	pred.Entities = append(pred.Entities, entity("P5", epop.EntityOrganism, 40, 45))
	require.NoError(t, pred.Index())

	res := align.New(align.Defaults()).Align(pred, gold)
	rec := score.Score(res, score.Options{CorefPartialCredit: true})

	assert.InDelta(t, 4.0/5.0, rec.CorefPrecision.Value(), 1e-9,
		"an unmatched mention earns zero credit but still counts")
	assert.InDelta(t, 2.0/3.0, rec.CorefRecall.Value(), 1e-9)
}

func TestScoreChainsBinary(t *testing.T) {
	gold := mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			entity("G1", epop.EntityOrganism, 0, 5),
			entity("G2", epop.EntityOrganism, 10, 15),
			entity("G3", epop.EntityOrganism, 20, 25),
			entity("G4", epop.EntityOrganism, 30, 35),
		},
		Chains: []epop.Chain{
			{ID: "CG1", Members: []string{"G1", "G2"}},
			{ID: "CG2", Members: []string{"G3", "G4"}},
		}})
	pred := mustDoc(t, &epop.Document{ID: "d", Text: filler,
		Entities: []epop.Entity{
			entity("P1", epop.EntityOrganism, 0, 5),
			entity("P3", epop.EntityOrganism, 20, 25),
		},
		Chains: []epop.Chain{{ID: "CP1", Members: []string{"P1", "P3"}}}})

	res := align.New(align.Defaults()).Align(pred, gold)
	rec := score.Score(res, score.Options{CorefPartialCredit: false})

	// CP1 straddles both gold chains with one shared mention each; the tie
	// resolves to the smaller gold chain ID and the other chain is missed.
	assert.Equal(t, score.Counts{TP: 1, FP: 0, FN: 1}, rec.CorefChains)
	assert.Equal(t, score.Fraction{}, rec.CorefPrecision, "B-cubed sums stay empty in binary mode")
}

func TestRecordMergeIsAssociativeAndCommutative(t *testing.T) {
	a := score.NewRecord()
	a.Entities[epop.EntityOrganism] = score.Counts{TP: 2, FP: 1}
	a.Linking = score.Ratio{Correct: 1, Total: 2}
	a.CorefPrecision = score.Fraction{Num: 1.5, Den: 3}

	b := score.NewRecord()
	b.Entities[epop.EntityOrganism] = score.Counts{FN: 4}
	b.Relations[epop.RelationCauses] = score.Counts{TP: 1, FN: 1}
	b.CorefRecall = score.Fraction{Num: 2, Den: 2}

	c := score.NewRecord()
	c.Entities[epop.EntityDisease] = score.Counts{TP: 1}
	c.Linking = score.Ratio{Correct: 2, Total: 2}
	c.CorefChains = score.Counts{TP: 1, FP: 1}

	left := a.Merge(b).Merge(c)
	right := a.Merge(b.Merge(c))
	assert.Equal(t, left, right)
	assert.Equal(t, a.Merge(b), b.Merge(a))

	assert.Equal(t, score.Counts{TP: 2, FP: 1, FN: 4}, left.Entities[epop.EntityOrganism])
	assert.Equal(t, score.Ratio{Correct: 3, Total: 4}, left.Linking)
}

func TestMicroEqualsSummedTypes(t *testing.T) {
	rec := score.NewRecord()
	rec.Relations[epop.RelationTransmits] = score.Counts{TP: 2, FP: 1}
	rec.Relations[epop.RelationCauses] = score.Counts{TP: 1, FN: 3}
	rec.Relations[epop.RelationAffects] = score.Counts{FP: 2}

	assert.Equal(t, score.Counts{TP: 3, FP: 3, FN: 3}, rec.RelationMicro())
}
