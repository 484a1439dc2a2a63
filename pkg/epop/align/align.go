package align

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/epopbench/epop-eval/pkg/epop"
)

var (
	alignmentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "alignment_duration_seconds",
			Help: "Time spent aligning one document pair",
		},
		[]string{"layer"},
	)

	alignedPairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alignment_pairs_total",
			Help: "Committed one-to-one pairs",
		},
		[]string{"layer"},
	)
)

func init() {
	prometheus.MustRegister(alignmentDuration)
	prometheus.MustRegister(alignedPairs)
}

// ScorerKind selects the overlap score used for entity candidates.
type ScorerKind string

const (
	// ScorerIoU scores candidates by character-span intersection over union.
	ScorerIoU ScorerKind = "iou"
	// ScorerName scores candidates by token-level mention similarity, for
	// model output without trustworthy offsets.
	ScorerName ScorerKind = "name"
)

// Options tune the aligner. The zero value is not usable; take Defaults.
type Options struct {
	// Threshold is the minimum overlap score; candidates below it are
	// discarded before matching.
	Threshold float64
	// Scorer picks the overlap score for entity candidates.
	Scorer ScorerKind
	// CorefAwareArguments lets a relation argument match through any
	// mention of the same gold chain, not only the argument mention.
	CorefAwareArguments bool
}

// Defaults returns the standard alignment options.
func Defaults() Options {
	return Options{Threshold: 0.5, Scorer: ScorerIoU, CorefAwareArguments: true}
}

// Pair is one committed predicted-to-gold match.
type Pair struct {
	PredID string
	GoldID string
	Score  float64
}

// Result is the one-to-one alignment of one (predicted, gold) document
// pair. Alignment never fails: the worst input yields an empty result.
type Result struct {
	Pred *epop.Document
	Gold *epop.Document

	Entities  []Pair
	Relations []Pair

	goldEntityOf map[string]string
	predEntityOf map[string]string
	goldRelOf    map[string]string
	predRelOf    map[string]string
}

// GoldEntityFor returns the gold mention aligned to a predicted mention.
func (r *Result) GoldEntityFor(predID string) (string, bool) {
	id, ok := r.goldEntityOf[predID]
	return id, ok
}

// PredEntityFor returns the predicted mention aligned to a gold mention.
func (r *Result) PredEntityFor(goldID string) (string, bool) {
	id, ok := r.predEntityOf[goldID]
	return id, ok
}

// GoldRelationFor returns the gold relation aligned to a predicted one.
func (r *Result) GoldRelationFor(predID string) (string, bool) {
	id, ok := r.goldRelOf[predID]
	return id, ok
}

// PredRelationFor returns the predicted relation aligned to a gold one.
func (r *Result) PredRelationFor(goldID string) (string, bool) {
	id, ok := r.predRelOf[goldID]
	return id, ok
}

// Aligner matches predicted annotations to gold annotations.
type Aligner struct {
	opts   Options
	logger *logrus.Logger
}

// New creates an aligner with the given options.
func New(opts Options) *Aligner {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Aligner{opts: opts, logger: logger}
}

// Align builds the one-to-one alignment for one document pair: entities
// first, then relations innermost-first on top of the entity layer.
func (a *Aligner) Align(pred, gold *epop.Document) *Result {
	res := &Result{
		Pred:         pred,
		Gold:         gold,
		goldEntityOf: make(map[string]string),
		predEntityOf: make(map[string]string),
		goldRelOf:    make(map[string]string),
		predRelOf:    make(map[string]string),
	}

	timer := prometheus.NewTimer(alignmentDuration.WithLabelValues("entities"))
	a.matchEntities(res)
	timer.ObserveDuration()

	timer = prometheus.NewTimer(alignmentDuration.WithLabelValues("relations"))
	a.matchRelations(res)
	timer.ObserveDuration()

	alignedPairs.WithLabelValues("entities").Add(float64(len(res.Entities)))
	alignedPairs.WithLabelValues("relations").Add(float64(len(res.Relations)))

	a.logger.WithFields(logrus.Fields{
		"document":       gold.ID,
		"entity_pairs":   len(res.Entities),
		"relation_pairs": len(res.Relations),
	}).Debug("Alignment completed")

	return res
}
