package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/epopbench/epop-eval/pkg/epop/loaders"
	"github.com/epopbench/epop-eval/pkg/epop/metrics"
	"github.com/epopbench/epop-eval/pkg/epop/storage"
)

var (
	goldDir  = flag.String("gold", "", "Directory containing gold annotation files (<id>.json)")
	textDir  = flag.String("texts", "", "Directory containing document texts (<id>.txt)")
	neoURI   = flag.String("neo4j-uri", "bolt://localhost:7687", "Neo4j connection URI")
	neoUser  = flag.String("neo4j-user", "neo4j", "Neo4j user")
	logLevel = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
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

	if *goldDir == "" || *textDir == "" {
		logger.Fatal("-gold and -texts must be specified")
	}

	password := os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		logger.Fatal("NEO4J_PASSWORD environment variable is not set")
	}

	corpus, skipped, err := loaders.NewGoldLoader().LoadDir(*goldDir, *textDir)
	if err != nil {
		logger.Fatalf("Failed to load gold corpus: %v", err)
	}
	for _, le := range skipped {
		logger.Warnf("Document %s rejected: %s (%s)", le.DocumentID, le.Kind, le.Detail)
	}
	metrics.ObserveCorpus("gold", corpus)

	exporter, err := storage.NewNeo4jExporter(*neoURI, *neoUser, password)
	if err != nil {
		logger.Fatalf("Failed to create exporter: %v", err)
	}
	defer exporter.Close()

	ctx := context.Background()
	if err := exporter.Connect(ctx); err != nil {
		logger.Fatalf("Failed to connect to Neo4j: %v", err)
	}

	if err := exporter.ExportCorpus(ctx, corpus); err != nil {
		logger.Fatalf("Export failed: %v", err)
	}

	logger.Infof("Exported %d documents to %s", corpus.Len(), *neoURI)
}
