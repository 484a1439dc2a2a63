package score

import (
	"strings"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/align"
)

// Counts is a TP/FP/FN triple. Counts merge by plain addition, so folding
// per-document records in any order yields the same corpus totals.
type Counts struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

// Add returns the element-wise sum.
func (c Counts) Add(o Counts) Counts {
	return Counts{TP: c.TP + o.TP, FP: c.FP + o.FP, FN: c.FN + o.FN}
}

// Precision is TP/(TP+FP), zero when nothing was predicted.
func (c Counts) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall is TP/(TP+FN), zero when nothing was annotated.
func (c Counts) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// F1 is the harmonic mean of precision and recall. It is 0 when TP is zero
// but errors exist, and nil when there is nothing to score at all.
func (c Counts) F1() *float64 {
	if c.TP == 0 && c.FP == 0 && c.FN == 0 {
		return nil
	}
	f := 0.0
	if c.TP > 0 {
		p, r := c.Precision(), c.Recall()
		f = 2 * p * r / (p + r)
	}
	return &f
}

// Ratio is a correct/total pair for accuracy-style scores.
type Ratio struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Add returns the element-wise sum.
func (r Ratio) Add(o Ratio) Ratio {
	return Ratio{Correct: r.Correct + o.Correct, Total: r.Total + o.Total}
}

// Value is Correct/Total, zero when the denominator is empty.
func (r Ratio) Value() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// Fraction accumulates fractional credit against a denominator.
type Fraction struct {
	Num float64 `json:"num"`
	Den float64 `json:"den"`
}

// Add returns the element-wise sum.
func (f Fraction) Add(o Fraction) Fraction {
	return Fraction{Num: f.Num + o.Num, Den: f.Den + o.Den}
}

// Value is Num/Den, zero when the denominator is empty.
func (f Fraction) Value() float64 {
	if f.Den == 0 {
		return 0
	}
	return f.Num / f.Den
}

// Record carries every count one document pair contributes. Records merge
// by addition; ratios are recomputed from merged counts, never averaged.
type Record struct {
	Entities  map[epop.EntityType]Counts   `json:"entities"`
	Relations map[epop.RelationType]Counts `json:"relations"`
	Linking   Ratio                        `json:"linking"`

	// B-cubed sums when partial coreference credit is on.
	CorefPrecision Fraction `json:"coref_precision"`
	CorefRecall    Fraction `json:"coref_recall"`
	// Chain-level counts when partial credit is off.
	CorefChains Counts `json:"coref_chains"`
}

// NewRecord returns an empty record with every type tag present.
func NewRecord() *Record {
	rec := &Record{
		Entities:  make(map[epop.EntityType]Counts, len(epop.EntityTypes)),
		Relations: make(map[epop.RelationType]Counts, len(epop.RelationTypes)),
	}
	for _, t := range epop.EntityTypes {
		rec.Entities[t] = Counts{}
	}
	for _, t := range epop.RelationTypes {
		rec.Relations[t] = Counts{}
	}
	return rec
}

// Merge returns the sum of two records. The operation is associative and
// commutative, so parallel folds are order-independent.
func (r *Record) Merge(o *Record) *Record {
	out := NewRecord()
	for t, c := range r.Entities {
		out.Entities[t] = c
	}
	for t, c := range o.Entities {
		out.Entities[t] = out.Entities[t].Add(c)
	}
	for t, c := range r.Relations {
		out.Relations[t] = c
	}
	for t, c := range o.Relations {
		out.Relations[t] = out.Relations[t].Add(c)
	}
	out.Linking = r.Linking.Add(o.Linking)
	out.CorefPrecision = r.CorefPrecision.Add(o.CorefPrecision)
	out.CorefRecall = r.CorefRecall.Add(o.CorefRecall)
	out.CorefChains = r.CorefChains.Add(o.CorefChains)
	return out
}

// Options tune the scorer.
type Options struct {
	// CorefPartialCredit scores coreference with B-cubed partial credit;
	// when off, whole chains match one-to-one and score as TP/FP/FN.
	CorefPartialCredit bool
	// LinkingCaseSensitive compares linking identifier values exactly;
	// when off, values compare case-folded.
	LinkingCaseSensitive bool
}

// Score turns one document pair's alignment into a record. It has no side
// effects beyond the returned record.
func Score(res *align.Result, opts Options) *Record {
	rec := NewRecord()

	for _, pair := range res.Entities {
		p, _ := res.Pred.EntityByID(pair.PredID)
		c := rec.Entities[p.Type]
		c.TP++
		rec.Entities[p.Type] = c
	}
	for i := range res.Pred.Entities {
		e := &res.Pred.Entities[i]
		if _, ok := res.GoldEntityFor(e.ID); !ok {
			c := rec.Entities[e.Type]
			c.FP++
			rec.Entities[e.Type] = c
		}
	}
	for i := range res.Gold.Entities {
		e := &res.Gold.Entities[i]
		if _, ok := res.PredEntityFor(e.ID); !ok {
			c := rec.Entities[e.Type]
			c.FN++
			rec.Entities[e.Type] = c
		}
	}

	for _, pair := range res.Relations {
		r, _ := res.Pred.RelationByID(pair.PredID)
		c := rec.Relations[r.Type]
		c.TP++
		rec.Relations[r.Type] = c
	}
	for i := range res.Pred.Relations {
		r := &res.Pred.Relations[i]
		if _, ok := res.GoldRelationFor(r.ID); !ok {
			c := rec.Relations[r.Type]
			c.FP++
			rec.Relations[r.Type] = c
		}
	}
	for i := range res.Gold.Relations {
		r := &res.Gold.Relations[i]
		if _, ok := res.PredRelationFor(r.ID); !ok {
			c := rec.Relations[r.Type]
			c.FN++
			rec.Relations[r.Type] = c
		}
	}

	rec.Linking = scoreLinking(res, opts.LinkingCaseSensitive)

	if opts.CorefPartialCredit {
		rec.CorefPrecision, rec.CorefRecall = bcubed(res)
	} else {
		rec.CorefChains = chainCounts(res)
	}

	return rec
}

// scoreLinking checks identifier equality across aligned pairs where the
// gold mention is linked. Detection quality does not touch this ratio.
func scoreLinking(res *align.Result, caseSensitive bool) Ratio {
	var ratio Ratio
	for _, pair := range res.Entities {
		g, _ := res.Gold.EntityByID(pair.GoldID)
		if !g.Linked() {
			continue
		}
		ratio.Total++

		p, _ := res.Pred.EntityByID(pair.PredID)
		if !p.Linked() || p.Linking.Authority != g.Linking.Authority {
			continue
		}
		if caseSensitive {
			if p.Linking.Value == g.Linking.Value {
				ratio.Correct++
			}
		} else if strings.EqualFold(p.Linking.Value, g.Linking.Value) {
			ratio.Correct++
		}
	}
	return ratio
}

// Macro aggregates per-type scores by averaging.
type Macro struct {
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        *float64 `json:"f1"`
	Types     int      `json:"types"`
}

// EntityMicro pools entity counts across types.
func (r *Record) EntityMicro() Counts {
	var c Counts
	for _, t := range epop.EntityTypes {
		c = c.Add(r.Entities[t])
	}
	return c
}

// RelationMicro pools relation counts across types.
func (r *Record) RelationMicro() Counts {
	var c Counts
	for _, t := range epop.RelationTypes {
		c = c.Add(r.Relations[t])
	}
	return c
}

// EntityMacro averages per-type entity scores, skipping types with no gold
// and no predicted instances.
func (r *Record) EntityMacro() Macro {
	counts := make([]Counts, 0, len(epop.EntityTypes))
	for _, t := range epop.EntityTypes {
		counts = append(counts, r.Entities[t])
	}
	return macro(counts)
}

// RelationMacro averages per-type relation scores with the same exclusion.
func (r *Record) RelationMacro() Macro {
	counts := make([]Counts, 0, len(epop.RelationTypes))
	for _, t := range epop.RelationTypes {
		counts = append(counts, r.Relations[t])
	}
	return macro(counts)
}

func macro(counts []Counts) Macro {
	var m Macro
	var f1Sum float64
	for _, c := range counts {
		f1 := c.F1()
		if f1 == nil {
			continue // no gold and no predicted instances of this type
		}
		m.Types++
		m.Precision += c.Precision()
		m.Recall += c.Recall()
		f1Sum += *f1
	}
	if m.Types == 0 {
		return m
	}
	n := float64(m.Types)
	m.Precision /= n
	m.Recall /= n
	avg := f1Sum / n
	m.F1 = &avg
	return m
}
