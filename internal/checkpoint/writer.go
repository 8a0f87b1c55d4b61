package checkpoint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/likeligrid/likeligrid/internal/zio"
)

// Writer buffers result lines in memory and appends them to a file on Flush.
// A process killed between flushes loses at most the buffered rows.
type Writer struct {
	path    string
	out     *zio.Writer
	buf     bytes.Buffer
	pending int
}

// Create opens path for writing from scratch
func Create(path string) (*Writer, error) {
	out, err := zio.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create result file %s: %w", path, err)
	}
	return &Writer{path: path, out: out}, nil
}

// Append opens path for appending; the file is created when missing
func Append(path string) (*Writer, error) {
	out, err := zio.Append(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file %s: %w", path, err)
	}
	return &Writer{path: path, out: out}, nil
}

// Path returns the file the writer appends to
func (w *Writer) Path() string {
	return w.path
}

// WriteMeta buffers the metadata block and header line
func (w *Writer) WriteMeta(meta Meta, names []string) {
	w.buf.WriteString(FormatMeta(meta, names))
}

// Add buffers one data row
func (w *Writer) Add(r Row) {
	w.buf.WriteString(FormatRow(r))
	w.pending++
}

// Pending returns the number of buffered rows
func (w *Writer) Pending() int {
	return w.pending
}

// Flush appends the buffered lines to the file and returns how many rows were written
func (w *Writer) Flush() (int, error) {
	n := w.pending
	if w.buf.Len() > 0 {
		if _, err := w.out.Write(w.buf.Bytes()); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", w.path, err)
		}
		w.buf.Reset()
		w.pending = 0
	}
	if err := w.out.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	return n, nil
}

// Close flushes and closes the file
func (w *Writer) Close() error {
	if _, err := w.Flush(); err != nil {
		w.out.Close()
		return err
	}
	if err := w.out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}
	return nil
}

// Rewrite replaces path with a clean copy of meta, names and rows.
// The new content is written next to path and renamed over it.
func Rewrite(path string, meta Meta, names []string, rows []Row) error {
	dir, base := filepath.Split(path)
	tmp := filepath.Join(dir, ".tmp-"+base)
	w, err := Create(tmp)
	if err != nil {
		return err
	}
	w.WriteMeta(meta, names)
	for _, r := range rows {
		w.Add(r)
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
