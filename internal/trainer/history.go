package trainer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// historyWriter appends scalar training metrics to a CSV file, one row
// per logged window or validation sweep.
type historyWriter struct {
	file *os.File
	w    *csv.Writer
}

func newHistoryWriter(path string) (*historyWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trainer: create history %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	if err := w.Write([]string{"step", "split", "loss", "accuracy"}); err != nil {
		file.Close()
		return nil, fmt.Errorf("trainer: write history header: %w", err)
	}
	return &historyWriter{file: file, w: w}, nil
}

// Write records one metric row and flushes it to disk.
func (h *historyWriter) Write(step int, split string, loss, accuracy float64) error {
	row := []string{
		strconv.Itoa(step),
		split,
		strconv.FormatFloat(loss, 'f', 6, 64),
		strconv.FormatFloat(accuracy, 'f', 6, 64),
	}
	if err := h.w.Write(row); err != nil {
		return fmt.Errorf("trainer: write history row: %w", err)
	}
	h.w.Flush()
	return h.w.Error()
}

// Close flushes and closes the underlying file.
func (h *historyWriter) Close() error {
	h.w.Flush()
	if err := h.w.Error(); err != nil {
		h.file.Close()
		return err
	}
	return h.file.Close()
}
