package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Writer emits a semicolon-separated CSV file with a header row.
type Writer struct {
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// NewWriter creates (truncating) the file and writes the header.
func NewWriter(path string, header []string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	writer.Comma = Separator
	if err := writer.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing header of %s: %w", path, err)
	}

	return &Writer{path: path, file: file, writer: writer}, nil
}

// Write appends one data row.
func (w *Writer) Write(fields ...string) error {
	if err := w.writer.Write(fields); err != nil {
		return fmt.Errorf("writing %s: %w", w.path, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (w *Writer) Rows() int {
	return w.rows
}

// Close flushes and closes the file. Flush errors surface here, so Close
// must be checked.
func (w *Writer) Close() error {
	w.writer.Flush()
	flushErr := w.writer.Error()
	closeErr := w.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flushing %s: %w", w.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", w.path, closeErr)
	}
	return nil
}
