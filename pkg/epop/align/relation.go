package align

import (
	"sort"

	"github.com/epopbench/epop-eval/pkg/epop"
)

// matchRelations runs the strict second pass on top of the entity layer.
// A predicted relation matches a gold relation only when the type, the
// modality and the full role multiset agree, and every argument maps under
// the committed alignment. Predicted relations resolve innermost-first so
// nested arguments are already decided when an outer relation is tried.
func (a *Aligner) matchRelations(res *Result) {
	goldIDs := append([]string(nil), res.Gold.RelationOrder()...)
	sort.Strings(goldIDs)

	for _, predID := range res.Pred.RelationOrder() {
		pr, ok := res.Pred.RelationByID(predID)
		if !ok {
			continue
		}

		for _, goldID := range goldIDs {
			if _, taken := res.predRelOf[goldID]; taken {
				continue
			}
			gr, ok := res.Gold.RelationByID(goldID)
			if !ok || gr.Type != pr.Type || gr.Modality != pr.Modality {
				continue
			}
			if !a.argumentsMatch(res, pr, gr) {
				continue
			}

			res.goldRelOf[predID] = goldID
			res.predRelOf[goldID] = predID
			res.Relations = append(res.Relations, Pair{PredID: predID, GoldID: goldID, Score: 1})
			break
		}
	}
}

// argumentsMatch checks that both relations fill the same roles the same
// number of times and that the references pair off one-to-one.
func (a *Aligner) argumentsMatch(res *Result, pr, gr *epop.Relation) bool {
	predByRole := groupByRole(pr.Arguments)
	goldByRole := groupByRole(gr.Arguments)
	if len(predByRole) != len(goldByRole) {
		return false
	}

	for role, predArgs := range predByRole {
		goldArgs, ok := goldByRole[role]
		if !ok || len(goldArgs) != len(predArgs) {
			return false
		}
		if !a.refsPairOff(res, predArgs, goldArgs) {
			return false
		}
	}
	return true
}

// refsPairOff searches for a perfect one-to-one pairing of the role's
// references. Role arities are tiny, so plain backtracking suffices.
func (a *Aligner) refsPairOff(res *Result, predArgs, goldArgs []epop.Argument) bool {
	used := make([]bool, len(goldArgs))

	var match func(i int) bool
	match = func(i int) bool {
		if i == len(predArgs) {
			return true
		}
		for j := range goldArgs {
			if used[j] || !a.argMatch(res, predArgs[i], goldArgs[j]) {
				continue
			}
			used[j] = true
			if match(i + 1) {
				return true
			}
			used[j] = false
		}
		return false
	}
	return match(0)
}

// argMatch decides whether one predicted reference maps to one gold
// reference. Entity references go through the entity alignment, with
// chain-mate credit when enabled; relation references go through the
// already-committed relation pairs.
func (a *Aligner) argMatch(res *Result, predArg, goldArg epop.Argument) bool {
	if predArg.IsRelation() != goldArg.IsRelation() {
		return false
	}

	if predArg.IsRelation() {
		aligned, ok := res.goldRelOf[predArg.Relation]
		return ok && aligned == goldArg.Relation
	}

	aligned, ok := res.goldEntityOf[predArg.Entity]
	if !ok {
		return false
	}
	if aligned == goldArg.Entity {
		return true
	}
	return a.opts.CorefAwareArguments && res.Gold.Coreferent(aligned, goldArg.Entity)
}

func groupByRole(args []epop.Argument) map[string][]epop.Argument {
	grouped := make(map[string][]epop.Argument)
	for _, arg := range args {
		grouped[arg.Role] = append(grouped[arg.Role], arg)
	}
	return grouped
}
