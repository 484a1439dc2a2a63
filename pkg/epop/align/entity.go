package align

import "sort"

// matchEntities runs greedy maximum-weight matching over same-type
// candidate pairs. Ties break on the lexicographically smaller predicted
// ID, then the smaller gold ID, so the alignment is deterministic.
func (a *Aligner) matchEntities(res *Result) {
	scorer := newOverlapScorer(a.opts.Scorer, res.Pred, res.Gold)

	candidates := make([]Pair, 0)
	for i := range res.Pred.Entities {
		p := &res.Pred.Entities[i]
		for j := range res.Gold.Entities {
			g := &res.Gold.Entities[j]
			if p.Type != g.Type {
				continue
			}
			score := scorer.score(p, g)
			if score < a.opts.Threshold {
				continue
			}
			candidates = append(candidates, Pair{PredID: p.ID, GoldID: g.ID, Score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].PredID != candidates[j].PredID {
			return candidates[i].PredID < candidates[j].PredID
		}
		return candidates[i].GoldID < candidates[j].GoldID
	})

	for _, c := range candidates {
		if _, taken := res.goldEntityOf[c.PredID]; taken {
			continue
		}
		if _, taken := res.predEntityOf[c.GoldID]; taken {
			continue
		}
		res.goldEntityOf[c.PredID] = c.GoldID
		res.predEntityOf[c.GoldID] = c.PredID
		res.Entities = append(res.Entities, c)
	}
}
