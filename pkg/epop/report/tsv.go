package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var tsvHeader = []string{"section", "label", "tp", "fp", "fn", "precision", "recall", "f1"}

// WriteTSV writes summary rows as tab-separated values with a header line.
// Absent F1 values render as "-".
func WriteTSV(w io.Writer, rows []Row) error {
	if _, err := io.WriteString(w, strings.Join(tsvHeader, "\t")+"\n"); err != nil {
		return errors.Wrap(err, "writing TSV header")
	}
	for _, row := range rows {
		fields := []string{
			string(row.Section),
			row.Label,
			strconv.Itoa(row.TP),
			strconv.Itoa(row.FP),
			strconv.Itoa(row.FN),
			formatScore(row.Precision),
			formatScore(row.Recall),
			formatOptScore(row.F1),
		}
		if _, err := io.WriteString(w, strings.Join(fields, "\t")+"\n"); err != nil {
			return errors.Wrapf(err, "writing TSV row %s/%s", row.Section, row.Label)
		}
	}
	return nil
}

// RenderTSV is WriteTSV into a string.
func RenderTSV(rows []Row) string {
	var sb strings.Builder
	_ = WriteTSV(&sb, rows)
	return sb.String()
}

// WriteMatrix writes an arbitrary table as TSV, one header line then one
// line per row. Experiment matrices (documents by models) use this.
func WriteMatrix(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, strings.Join(header, "\t")+"\n"); err != nil {
		return errors.Wrap(err, "writing matrix header")
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return errors.Errorf("matrix row %d has %d cells, header has %d", i, len(row), len(header))
		}
		if _, err := io.WriteString(w, strings.Join(row, "\t")+"\n"); err != nil {
			return errors.Wrapf(err, "writing matrix row %d", i)
		}
	}
	return nil
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func formatOptScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatScore(*v)
}
