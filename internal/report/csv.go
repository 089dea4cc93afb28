// Package report writes the final recommendation list and its run summary.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// Header is the CSV column order.
var Header = []string{
	"table", "category", "priority", "source",
	"impact_low", "impact_high", "description", "implementation", "detail",
}

// WriteCSV writes one row per recommendation after the header.
// Indirect impacts leave both impact columns empty.
func WriteCSV(w io.Writer, recs []domain.Recommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range recs {
		if err := cw.Write(row(&recs[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the CSV report to path, creating parent directories.
func WriteFile(path string, recs []domain.Recommendation) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()
	return WriteCSV(f, recs)
}

func row(r *domain.Recommendation) []string {
	low, high := "", ""
	if !r.Impact.Indirect {
		low = strconv.FormatFloat(r.Impact.Low, 'f', -1, 64)
		high = strconv.FormatFloat(r.Impact.High, 'f', -1, 64)
	}
	return []string{
		r.TableID,
		string(r.Category),
		string(r.Priority),
		string(r.Source),
		low,
		high,
		r.Description,
		r.Implementation,
		r.Detail,
	}
}
