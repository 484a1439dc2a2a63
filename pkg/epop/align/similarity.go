package align

import (
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/epopbench/epop-eval/pkg/epop"
)

// entityScorer computes the overlap score for one candidate pair. The name
// scorer tokenizes every mention once up front.
type entityScorer struct {
	kind       ScorerKind
	predTokens map[string][]string
	goldTokens map[string][]string
}

func newOverlapScorer(kind ScorerKind, pred, gold *epop.Document) *entityScorer {
	s := &entityScorer{kind: kind}
	if kind == ScorerName {
		s.predTokens = tokenizeMentions(pred.Entities)
		s.goldTokens = tokenizeMentions(gold.Entities)
	}
	return s
}

func (s *entityScorer) score(p, g *epop.Entity) float64 {
	if s.kind == ScorerName {
		return bestShiftJaccard(s.predTokens[p.ID], s.goldTokens[g.ID])
	}
	return p.Span.IoU(g.Span)
}

func tokenizeMentions(entities []epop.Entity) map[string][]string {
	tokens := make(map[string][]string, len(entities))
	for i := range entities {
		tokens[entities[i].ID] = mentionTokens(entities[i].Mention)
	}
	return tokens
}

// mentionTokens lowercases and tokenizes a mention, dropping wrapping
// quotes. Tagging and extraction are off; only the tokenizer runs.
func mentionTokens(mention string) []string {
	mention = strings.ToLower(strings.Trim(strings.TrimSpace(mention), `"'`))
	if mention == "" {
		return nil
	}

	doc, err := prose.NewDocument(mention, prose.WithTagging(false), prose.WithExtraction(false))
	if err != nil {
		return strings.Fields(mention)
	}

	toks := doc.Tokens()
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Text)
	}
	return out
}

// bestShiftJaccard slides one token sequence over the other, takes the
// contiguous shift with the most position-wise agreements, and scores it
// as Jaccard: matches / (len(a) + len(b) - matches).
func bestShiftJaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	best := 0
	for shift := -(len(b) - 1); shift < len(a); shift++ {
		matches := 0
		for i := range b {
			j := shift + i
			if j >= 0 && j < len(a) && a[j] == b[i] {
				matches++
			}
		}
		if matches > best {
			best = matches
		}
	}
	return float64(best) / float64(len(a)+len(b)-best)
}
