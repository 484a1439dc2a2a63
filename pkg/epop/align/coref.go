package align

import (
	"sort"

	"github.com/epopbench/epop-eval/pkg/epop"
)

// ChainOverlap counts the aligned mention pairs one predicted chain shares
// with one gold chain. Mentions outside every chain count as singleton
// chains, so sizes are never zero.
type ChainOverlap struct {
	PredChainID string
	GoldChainID string
	Shared      int
	PredSize    int
	GoldSize    int
}

// ChainOverlaps returns the raw shared counts for every chain pair with at
// least one aligned mention in common, ordered deterministically. The
// scorer decides what to make of them; no binary collapse happens here.
func (r *Result) ChainOverlaps() []ChainOverlap {
	counts := make(map[[2]string]*ChainOverlap)

	for _, pair := range r.Entities {
		predChain, predSize := chainKey(r.Pred, pair.PredID)
		goldChain, goldSize := chainKey(r.Gold, pair.GoldID)

		key := [2]string{predChain, goldChain}
		co := counts[key]
		if co == nil {
			co = &ChainOverlap{
				PredChainID: predChain,
				GoldChainID: goldChain,
				PredSize:    predSize,
				GoldSize:    goldSize,
			}
			counts[key] = co
		}
		co.Shared++
	}

	out := make([]ChainOverlap, 0, len(counts))
	for _, co := range counts {
		out = append(out, *co)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PredChainID != out[j].PredChainID {
			return out[i].PredChainID < out[j].PredChainID
		}
		return out[i].GoldChainID < out[j].GoldChainID
	})
	return out
}

// chainKey names the chain of a mention, synthesizing a singleton chain
// for mentions outside every chain.
func chainKey(d *epop.Document, entityID string) (string, int) {
	if ch, ok := d.ChainOf(entityID); ok {
		return ch.ID, len(ch.Members)
	}
	return "m/" + entityID, 1
}
