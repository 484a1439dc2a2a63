package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/epopbench/epop-eval/pkg/epop/report"
)

// RunEntry is one line of the run log: enough to compare runs without
// reopening their full reports.
type RunEntry struct {
	RunID           string          `json:"run_id"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Documents       int             `json:"documents"`
	Settings        report.Settings `json:"settings"`
	EntityMicroF1   *float64        `json:"entity_micro_f1"`
	RelationMicroF1 *float64        `json:"relation_micro_f1"`
	LinkingAccuracy float64         `json:"linking_accuracy"`
}

// EntryFor summarizes a report into a run log line.
func EntryFor(rep *report.CorpusReport) RunEntry {
	return RunEntry{
		RunID:           rep.ID,
		GeneratedAt:     rep.GeneratedAt,
		Documents:       len(rep.PerDocument),
		Settings:        rep.Settings,
		EntityMicroF1:   rep.Totals.EntityMicro().F1(),
		RelationMicroF1: rep.Totals.RelationMicro().F1(),
		LinkingAccuracy: rep.Totals.Linking.Value(),
	}
}

// RunLog appends run summaries to a JSONL file, one JSON object per line.
type RunLog struct {
	path string
	mu   sync.Mutex
}

// NewRunLog creates a run log writer targeting the given file.
func NewRunLog(path string) *RunLog {
	return &RunLog{path: path}
}

// Append writes one entry at the end of the log, creating it on first use.
func (l *RunLog) Append(entry RunEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return errors.Wrap(err, "creating run log directory")
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "opening run log")
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "encoding run log entry")
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "appending run log entry")
	}
	return nil
}

// Entries reads the whole log back, skipping blank lines.
func (l *RunLog) Entries() ([]RunEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading run log")
	}

	var entries []RunEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var entry RunEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, errors.Wrap(err, "decoding run log entry")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
