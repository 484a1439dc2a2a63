package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/epopbench/epop-eval/pkg/epop/eval"
	"github.com/epopbench/epop-eval/pkg/epop/loaders"
	"github.com/epopbench/epop-eval/pkg/epop/metrics"
	"github.com/epopbench/epop-eval/pkg/epop/report"
	"github.com/epopbench/epop-eval/pkg/epop/storage"
)

var (
	goldDir     = flag.String("gold", "", "Directory containing gold annotation files (<id>.json)")
	textDir     = flag.String("texts", "", "Directory containing document texts (<id>.txt)")
	predDir     = flag.String("pred", "", "Directory containing predicted annotations")
	threshold   = flag.Float64("threshold", 0.5, "Minimum span overlap for two mentions to align")
	scorer      = flag.String("scorer", "iou", "Span overlap scorer (iou or name)")
	strictCoref = flag.Bool("strict-coref", false, "Score coreference as whole chains instead of B-cubed")
	laxLinking  = flag.Bool("lax-linking", false, "Compare linking identifiers case-insensitively")
	noCorefRel  = flag.Bool("no-coref-relations", false, "Disable coreference-aware relation argument matching")
	workers     = flag.Int("workers", 0, "Documents scored in parallel (0 = all CPUs)")
	reportPath  = flag.String("report", "", "Write the full report as JSON to this path")
	tsvPath     = flag.String("tsv", "", "Write the summary rows as TSV to this path")
	htmlPath    = flag.String("html", "", "Write an interactive score chart to this path")
	runLogPath  = flag.String("runlog", "", "Append a one-line summary to this JSONL run log")
	logLevel    = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if *goldDir == "" || *textDir == "" || *predDir == "" {
		logger.Fatal("-gold, -texts and -pred must be specified")
	}

	cfg := eval.DefaultConfig()
	cfg.EntityOverlapThreshold = *threshold
	cfg.OverlapScorer = *scorer
	cfg.CorefPartialCredit = !*strictCoref
	cfg.CorefAwareRelations = !*noCorefRel
	cfg.LinkingCaseSensitive = !*laxLinking
	cfg.Workers = *workers
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	gold, rejected, err := loaders.NewGoldLoader().LoadDir(*goldDir, *textDir)
	if err != nil {
		logger.Fatalf("Failed to load gold corpus: %v", err)
	}
	for _, le := range rejected {
		logger.Warnf("Gold document %s rejected: %s (%s)", le.DocumentID, le.Kind, le.Detail)
	}
	logger.Infof("Loaded %d gold documents", gold.Len())

	pred, skipped, err := loaders.NewPredictionLoader().LoadDir(*predDir, gold)
	if err != nil {
		logger.Fatalf("Failed to load predictions: %v", err)
	}
	for _, le := range skipped {
		logger.Warnf("Prediction %s rejected: %s (%s)", le.DocumentID, le.Kind, le.Detail)
	}
	logger.Infof("Loaded %d prediction documents", pred.Len())

	metrics.ObserveCorpus("gold", gold)
	metrics.ObserveCorpus("prediction", pred)

	ctx := context.Background()
	rep, err := eval.Evaluate(ctx, pred, gold, cfg)
	if err != nil {
		logger.Fatalf("Evaluation failed: %v", err)
	}

	fmt.Print(report.Markdown(rep))

	if *reportPath != "" {
		store := storage.NewJSONReportStore(*reportPath)
		if err := store.StoreReport(ctx, rep); err != nil {
			logger.Fatalf("Failed to store report: %v", err)
		}
		logger.Infof("Report saved to %s", *reportPath)
	}

	if *tsvPath != "" {
		f, err := os.Create(*tsvPath)
		if err != nil {
			logger.Fatalf("Failed to create TSV file: %v", err)
		}
		if err := report.WriteTSV(f, rep.Rows()); err != nil {
			f.Close()
			logger.Fatalf("Failed to write TSV: %v", err)
		}
		if err := f.Close(); err != nil {
			logger.Fatalf("Failed to close TSV file: %v", err)
		}
		logger.Infof("TSV summary saved to %s", *tsvPath)
	}

	if *htmlPath != "" {
		chart := report.NewD3Chart(*htmlPath)
		if err := chart.Render(rep); err != nil {
			logger.Errorf("Failed to render chart: %v", err)
		} else {
			logger.Infof("Chart saved to %s", *htmlPath)
		}
	}

	if *runLogPath != "" {
		if err := storage.NewRunLog(*runLogPath).Append(storage.EntryFor(rep)); err != nil {
			logger.Errorf("Failed to append run log entry: %v", err)
		}
	}
}
