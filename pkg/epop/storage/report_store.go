package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/epopbench/epop-eval/pkg/epop/metrics"
	"github.com/epopbench/epop-eval/pkg/epop/report"
)

// ReportStore defines an interface for persisting evaluation reports
type ReportStore interface {
	// StoreReport persists a corpus report
	StoreReport(ctx context.Context, rep *report.CorpusReport) error

	// LoadReport loads a corpus report from storage
	LoadReport(ctx context.Context) (*report.CorpusReport, error)
}

// JSONReportStore implements ReportStore using JSON files
type JSONReportStore struct {
	filePath string
}

// NewJSONReportStore creates a new JSON report store
func NewJSONReportStore(filePath string) *JSONReportStore {
	return &JSONReportStore{
		filePath: filePath,
	}
}

// StoreReport stores the corpus report as JSON
func (s *JSONReportStore) StoreReport(ctx context.Context, rep *report.CorpusReport) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return err
	}
	metrics.ReportsStored.Inc()
	return nil
}

// LoadReport loads a corpus report from a JSON file
func (s *JSONReportStore) LoadReport(ctx context.Context) (*report.CorpusReport, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, err
	}

	var rep report.CorpusReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, err
	}

	return &rep, nil
}
