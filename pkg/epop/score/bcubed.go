package score

import (
	"sort"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/align"
)

// bcubed computes B-cubed precision and recall sums over mentions. Every
// mention is an item: unaligned ones contribute zero credit, mentions in no
// chain act as singleton chains. Denominators count all mentions on each
// side so records keep merging by addition.
func bcubed(res *align.Result) (precision, recall Fraction) {
	precision.Den = float64(len(res.Pred.Entities))
	recall.Den = float64(len(res.Gold.Entities))

	for _, co := range res.ChainOverlaps() {
		shared := float64(co.Shared)
		precision.Num += shared * shared / float64(co.PredSize)
		recall.Num += shared * shared / float64(co.GoldSize)
	}
	return precision, recall
}

// chainCounts scores coreference without partial credit: annotated chains
// pair up greedily one-to-one on shared aligned mentions, most shared
// first, smaller chain IDs breaking ties. Singleton pseudo-chains never
// count as chains here.
func chainCounts(res *align.Result) Counts {
	predReal := chainIDs(res.Pred)
	goldReal := chainIDs(res.Gold)

	overlaps := res.ChainOverlaps()
	kept := overlaps[:0]
	for _, co := range overlaps {
		if predReal[co.PredChainID] && goldReal[co.GoldChainID] {
			kept = append(kept, co)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Shared != kept[j].Shared {
			return kept[i].Shared > kept[j].Shared
		}
		if kept[i].PredChainID != kept[j].PredChainID {
			return kept[i].PredChainID < kept[j].PredChainID
		}
		return kept[i].GoldChainID < kept[j].GoldChainID
	})

	var c Counts
	usedPred := make(map[string]bool, len(kept))
	usedGold := make(map[string]bool, len(kept))
	for _, co := range kept {
		if usedPred[co.PredChainID] || usedGold[co.GoldChainID] {
			continue
		}
		usedPred[co.PredChainID] = true
		usedGold[co.GoldChainID] = true
		c.TP++
	}
	c.FP = len(predReal) - c.TP
	c.FN = len(goldReal) - c.TP
	return c
}

func chainIDs(d *epop.Document) map[string]bool {
	ids := make(map[string]bool, len(d.Chains))
	for i := range d.Chains {
		ids[d.Chains[i].ID] = true
	}
	return ids
}
