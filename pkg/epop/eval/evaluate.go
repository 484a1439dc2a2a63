package eval

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/epopbench/epop-eval/pkg/epop"
	"github.com/epopbench/epop-eval/pkg/epop/align"
	"github.com/epopbench/epop-eval/pkg/epop/report"
	"github.com/epopbench/epop-eval/pkg/epop/score"
)

var (
	evaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "evaluation_document_duration_seconds",
			Help: "Time spent evaluating one document pair",
		},
		[]string{"status"},
	)

	evaluationDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_documents_total",
			Help: "Documents evaluated, by prediction availability",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(evaluationDuration)
	prometheus.MustRegister(evaluationDocuments)
}

// Evaluator scores predicted corpora against gold annotations.
type Evaluator struct {
	cfg     Config
	aligner *align.Aligner
	logger  *logrus.Logger
}

// New validates the configuration and builds an evaluator.
func New(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Evaluator{
		cfg:     cfg,
		aligner: align.New(cfg.alignOptions()),
		logger:  logger,
	}, nil
}

// Evaluate scores predicted against gold with the given configuration.
func Evaluate(ctx context.Context, pred, gold *epop.Corpus, cfg Config) (*report.CorpusReport, error) {
	ev, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return ev.Run(ctx, pred, gold)
}

type outcome struct {
	docID string
	rec   *score.Record
}

// Run pairs documents by ID over the gold corpus and scores every pair on
// a bounded worker pool. A gold document without a prediction scores
// against an empty prediction; predictions without gold are listed as
// ignored. Record merging is associative and commutative, so the totals do
// not depend on scheduling.
func (e *Evaluator) Run(ctx context.Context, pred, gold *epop.Corpus) (*report.CorpusReport, error) {
	e.logger.WithFields(logrus.Fields{
		"gold_documents":      gold.Len(),
		"predicted_documents": pred.Len(),
	}).Info("Starting corpus evaluation")

	rep := report.New(e.cfg.Settings())
	for _, id := range pred.IDs() {
		if _, ok := gold.Get(id); !ok {
			e.logger.WithField("doc_id", id).Warn("Prediction has no gold counterpart, ignoring")
			rep.Ignored = append(rep.Ignored, id)
		}
	}
	sort.Strings(rep.Ignored)

	goldIDs := gold.IDs()
	records := make(map[string]*score.Record, len(goldIDs))
	workers := e.cfg.workers()

	for start := 0; start < len(goldIDs); start += workers {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "evaluation cancelled")
		}

		end := start + workers
		if end > len(goldIDs) {
			end = len(goldIDs)
		}
		batch := goldIDs[start:end]

		results := make(chan outcome, len(batch))
		var wg sync.WaitGroup

		for _, id := range batch {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				results <- outcome{docID: id, rec: e.scoreDocument(pred, gold, id)}
			}(id)
		}

		wg.Wait()
		close(results)

		for out := range results {
			records[out.docID] = out.rec
		}
	}

	for _, id := range goldIDs {
		rep.AddDocument(id, records[id])
	}

	e.logger.WithFields(logrus.Fields{
		"run_id":    rep.ID,
		"documents": len(records),
		"ignored":   len(rep.Ignored),
	}).Info("Corpus evaluation completed")
	return rep, nil
}

func (e *Evaluator) scoreDocument(pred, gold *epop.Corpus, id string) *score.Record {
	goldDoc, _ := gold.Get(id)

	status := "scored"
	predDoc, ok := pred.Get(id)
	if !ok {
		// Everything annotated becomes a miss, nothing becomes noise.
		status = "missing_prediction"
		predDoc = &epop.Document{ID: id, Text: goldDoc.Text}
		if err := predDoc.Index(); err != nil {
			e.logger.WithError(err).WithField("doc_id", id).Error("Empty prediction failed to index")
		}
		e.logger.WithField("doc_id", id).Warn("No prediction for gold document")
	}

	timer := prometheus.NewTimer(evaluationDuration.WithLabelValues(status))
	res := e.aligner.Align(predDoc, goldDoc)
	rec := score.Score(res, e.cfg.scoreOptions())
	timer.ObserveDuration()

	evaluationDocuments.WithLabelValues(status).Inc()
	e.logger.WithFields(logrus.Fields{
		"doc_id":           id,
		"entity_pairs":     len(res.Entities),
		"relation_pairs":   len(res.Relations),
		"gold_entities":    len(goldDoc.Entities),
		"predicted_extras": rec.EntityMicro().FP,
	}).Debug("Document scored")
	return rec
}
