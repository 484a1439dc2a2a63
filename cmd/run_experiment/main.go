package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/epopbench/epop-eval/pkg/epop/eval"
	"github.com/epopbench/epop-eval/pkg/epop/experiment"
)

var (
	goldDir    = flag.String("gold", "", "Directory containing gold annotation files (<id>.json)")
	textDir    = flag.String("texts", "", "Directory containing document texts (<id>.txt)")
	outputRoot = flag.String("output", "", "Root directory of model outputs (<model-dir>/<doc-id>/<n>.txt)")
	models     = flag.String("models", "", "Comma-separated models as name or name:output-subdir")
	repeats    = flag.Int("repeats", 5, "Repetitions per document and model")
	threshold  = flag.Float64("threshold", 0.5, "Minimum span overlap for two mentions to align")
	scorer     = flag.String("scorer", "iou", "Span overlap scorer (iou or name)")
	tsvPath    = flag.String("tsv", "", "Write the score matrix as TSV to this path (default: stdout)")
	logLevel   = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
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

	if *goldDir == "" || *textDir == "" || *outputRoot == "" || *models == "" {
		logger.Fatal("-gold, -texts, -output and -models must be specified")
	}

	cfg := eval.DefaultConfig()
	cfg.EntityOverlapThreshold = *threshold
	cfg.OverlapScorer = *scorer

	spec := experiment.Spec{
		GoldDir:    *goldDir,
		TextDir:    *textDir,
		OutputRoot: *outputRoot,
		Models:     parseModels(*models),
		Repeats:    *repeats,
		Config:     cfg,
	}

	runner, err := experiment.NewRunner(spec)
	if err != nil {
		logger.Fatalf("Invalid experiment: %v", err)
	}

	matrix, err := runner.Run(context.Background())
	if err != nil {
		logger.Fatalf("Experiment failed: %v", err)
	}

	if *tsvPath == "" {
		fmt.Print(matrix.String())
		return
	}

	f, err := os.Create(*tsvPath)
	if err != nil {
		logger.Fatalf("Failed to create TSV file: %v", err)
	}
	if err := matrix.WriteTSV(f); err != nil {
		f.Close()
		logger.Fatalf("Failed to write matrix: %v", err)
	}
	if err := f.Close(); err != nil {
		logger.Fatalf("Failed to close TSV file: %v", err)
	}
	logger.Infof("Score matrix saved to %s", *tsvPath)
}

// parseModels splits "deepseek,kimi:kimi/short" into model specs; the
// output subdirectory defaults to the model name.
func parseModels(arg string) []experiment.Model {
	parts := strings.Split(arg, ",")
	out := make([]experiment.Model, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, dir, found := strings.Cut(p, ":")
		if !found {
			dir = name
		}
		out = append(out, experiment.Model{Name: name, OutputDir: dir})
	}
	return out
}
