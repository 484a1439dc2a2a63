package experiment

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/eval"
	"github.com/epopbench/epop-eval/pkg/epop/loaders"
)

var (
	experimentRepetitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experiment_repetitions_total",
			Help: "Repetition outputs scored per model",
		},
		[]string{"model", "status"},
	)

	experimentModelDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "experiment_model_duration_seconds",
			Help: "Time spent scoring all repetitions of one model",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(experimentRepetitions)
	prometheus.MustRegister(experimentModelDuration)
}

// Model names one system under test and the directory its repetition
// outputs live in, relative to the experiment output root.
type Model struct {
	Name      string
	OutputDir string
}

// Spec describes a repetition experiment: which gold corpus, which models,
// and how many repetitions per document.
type Spec struct {
	// GoldDir holds one <id>.json annotation file per document.
	GoldDir string
	// TextDir holds one <id>.txt raw text per document and drives the
	// document list.
	TextDir string
	// OutputRoot holds <model-dir>/<id>/<n>.txt repetition outputs.
	OutputRoot string
	Models     []Model
	Repeats    int
	Config     eval.Config
}

// Runner scores repetition experiments into a document-by-model matrix.
type Runner struct {
	spec      Spec
	evaluator *eval.Evaluator
	gold      *loaders.GoldLoader
	pred      *loaders.PredictionLoader
	logger    *logrus.Logger
}

// NewRunner validates the spec and builds a runner.
func NewRunner(spec Spec) (*Runner, error) {
	if len(spec.Models) == 0 {
		return nil, errors.New("experiment needs at least one model")
	}
	if spec.Repeats < 1 {
		return nil, errors.Errorf("experiment needs at least one repetition, got %d", spec.Repeats)
	}
	evaluator, err := eval.New(spec.Config)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Runner{
		spec:      spec,
		evaluator: evaluator,
		gold:      loaders.NewGoldLoader(),
		pred:      loaders.NewPredictionLoader(),
		logger:    logger,
	}, nil
}

// Run scores every model on every document. The matrix cell is the median
// relation F1 over the repetitions: repetitions sort ascending and the
// middle index N/2 wins, so even counts take the upper middle. A malformed
// repetition scores 0 and still counts; a missing repetition file is an
// error. Cancellation is honored between documents.
func (r *Runner) Run(ctx context.Context) (*Matrix, error) {
	texts, err := loaders.ReadTextDir(r.spec.TextDir)
	if err != nil {
		return nil, err
	}

	docIDs := make([]string, 0, len(texts))
	for id := range texts {
		if strings.Contains(id, "documents-metadata") {
			continue
		}
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	r.logger.WithFields(logrus.Fields{
		"documents": len(docIDs),
		"models":    len(r.spec.Models),
		"repeats":   r.spec.Repeats,
	}).Info("Starting repetition experiment")

	matrix := NewMatrix(modelNames(r.spec.Models))

	for _, model := range r.spec.Models {
		timer := prometheus.NewTimer(experimentModelDuration.WithLabelValues(model.Name))
		for _, docID := range docIDs {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "experiment cancelled")
			}

			goldDoc, err := r.loadGold(docID, texts[docID])
			if err != nil {
				if le, ok := epop.AsLoadError(err); ok {
					r.logger.WithField("doc_id", docID).WithError(le).Warn("Skipping rejected gold document")
					continue
				}
				return nil, err
			}

			median, err := r.medianScore(ctx, model, goldDoc)
			if err != nil {
				return nil, err
			}
			matrix.Set(docID, model.Name, median)
		}
		timer.ObserveDuration()
		r.logger.WithField("model", model.Name).Info("Model scored")
	}

	return matrix, nil
}

func (r *Runner) loadGold(docID, text string) (*epop.Document, error) {
	raw, err := os.ReadFile(filepath.Join(r.spec.GoldDir, docID+".json"))
	if err != nil {
		return nil, errors.Wrapf(err, "reading gold annotations for %s", docID)
	}
	return r.gold.Load(docID, text, raw)
}

func (r *Runner) medianScore(ctx context.Context, model Model, goldDoc *epop.Document) (float64, error) {
	scores := make([]float64, 0, r.spec.Repeats)
	for repeat := 1; repeat <= r.spec.Repeats; repeat++ {
		path := filepath.Join(r.spec.OutputRoot, model.OutputDir, goldDoc.ID, strconv.Itoa(repeat)+".txt")
		raw, err := os.ReadFile(path)
		if err != nil {
			return 0, errors.Wrapf(err, "reading repetition %d of %s for %s", repeat, model.Name, goldDoc.ID)
		}

		score, err := r.scoreRepetition(ctx, goldDoc, raw)
		if err != nil {
			if le, ok := epop.AsLoadError(err); ok {
				r.logger.WithField("doc_id", goldDoc.ID).WithField("model", model.Name).
					WithError(le).Warn("Malformed repetition scores zero")
				experimentRepetitions.WithLabelValues(model.Name, "malformed").Inc()
				scores = append(scores, 0)
				continue
			}
			return 0, err
		}
		experimentRepetitions.WithLabelValues(model.Name, "scored").Inc()
		scores = append(scores, score)
	}

	sort.Float64s(scores)
	return scores[len(scores)/2], nil
}

func (r *Runner) scoreRepetition(ctx context.Context, goldDoc *epop.Document, raw []byte) (float64, error) {
	predDoc, err := r.pred.Load(goldDoc.ID, goldDoc.Text, raw)
	if err != nil {
		return 0, err
	}

	gold := epop.NewCorpus()
	if err := gold.Add(goldDoc); err != nil {
		return 0, err
	}
	pred := epop.NewCorpus()
	if err := pred.Add(predDoc); err != nil {
		return 0, err
	}

	rep, err := r.evaluator.Run(ctx, pred, gold)
	if err != nil {
		return 0, err
	}
	f1 := rep.Totals.RelationMicro().F1()
	if f1 == nil {
		return 0, nil
	}
	return *f1, nil
}

func modelNames(models []Model) []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return names
}
