// Package zio opens plain and gzip-compressed files behind the same reader and writer interfaces.
// A path ending in ".gz" is compressed; "-" means stdin or stdout.
package zio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// IsCompressed reports whether path is handled through gzip
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".gz")
}

// Open opens path for reading. Concatenated gzip members are read as one stream.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		return f, nil
	}
	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			// empty file: nothing was ever flushed
			return io.NopCloser(strings.NewReader("")), nil
		}
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
}

// Create truncates or creates path for writing
func Create(path string) (*Writer, error) {
	return openWriter(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}

// Append opens path for appending, creating it when missing.
// For gzip paths every Append session adds one gzip member.
func Append(path string) (*Writer, error) {
	return openWriter(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

func openWriter(path string, flag int) (*Writer, error) {
	if path == "-" {
		return &Writer{w: os.Stdout}, nil
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	w := &Writer{w: f, file: f}
	if IsCompressed(path) {
		w.zw = gzip.NewWriter(f)
		w.w = w.zw
	}
	return w, nil
}

// Writer writes plain or gzip output and pushes data to the file on Flush
type Writer struct {
	w    io.Writer
	zw   *gzip.Writer
	file *os.File
}

// Write implements io.Writer
func (w *Writer) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

// Flush makes everything written so far durable in the underlying file
func (w *Writer) Flush() error {
	if w.zw != nil {
		if err := w.zw.Flush(); err != nil {
			return err
		}
	}
	if w.file != nil {
		return w.file.Sync()
	}
	return nil
}

// Close finishes the gzip member, if any, and closes the file
func (w *Writer) Close() error {
	var errs []error
	if w.zw != nil {
		errs = append(errs, w.zw.Close())
	}
	if w.file != nil {
		errs = append(errs, w.file.Close())
	}
	return errors.Join(errs...)
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
