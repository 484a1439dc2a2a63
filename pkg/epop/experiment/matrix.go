package experiment

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/epopbench/epop-eval/pkg/epop/report"
)

// Matrix holds one median score per document and model.
type Matrix struct {
	models []string
	cells  map[string]map[string]float64
}

// NewMatrix creates an empty matrix with a fixed model column order.
func NewMatrix(models []string) *Matrix {
	return &Matrix{
		models: models,
		cells:  make(map[string]map[string]float64),
	}
}

// Set stores one cell.
func (m *Matrix) Set(docID, model string, score float64) {
	row := m.cells[docID]
	if row == nil {
		row = make(map[string]float64, len(m.models))
		m.cells[docID] = row
	}
	row[model] = score
}

// Get reads one cell.
func (m *Matrix) Get(docID, model string) (float64, bool) {
	row, ok := m.cells[docID]
	if !ok {
		return 0, false
	}
	score, ok := row[model]
	return score, ok
}

// Documents returns the row keys in sorted order.
func (m *Matrix) Documents() []string {
	docs := make([]string, 0, len(m.cells))
	for id := range m.cells {
		docs = append(docs, id)
	}
	sort.Strings(docs)
	return docs
}

// Models returns the column order.
func (m *Matrix) Models() []string { return m.models }

// WriteTSV writes the matrix as one header line and one row per document.
func (m *Matrix) WriteTSV(w io.Writer) error {
	header := append([]string{"document"}, m.models...)
	rows := make([][]string, 0, len(m.cells))
	for _, docID := range m.Documents() {
		row := make([]string, 0, len(header))
		row = append(row, docID)
		for _, model := range m.models {
			row = append(row, fmt.Sprintf("%.4f", m.cells[docID][model]))
		}
		rows = append(rows, row)
	}
	return report.WriteMatrix(w, header, rows)
}

// String renders the TSV form.
func (m *Matrix) String() string {
	var sb strings.Builder
	_ = m.WriteTSV(&sb)
	return sb.String()
}
