// Package checkpoint reads and writes resumable result files.
//
// A result file is tab-separated text, optionally gzip-compressed:
//
//	##max_count=125
//	##max_sites=4
//	##step=0.4
//	loglik	A	B
//	-10.75	1.2	1.2
//	...
package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/likeligrid/likeligrid/internal/zio"
	"github.com/likeligrid/likeligrid/pkg/utils"
)

// LogLikColumn is the name of the first header column
const LogLikColumn = "loglik"

// ErrSchemaMismatch reports a result file whose parameter columns differ from the model's
var ErrSchemaMismatch = errors.New("result file columns do not match")

// SchemaMismatchError carries the expected and found parameter names
type SchemaMismatchError struct {
	Path string
	Want []string
	Got  []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: contradiction in column names: model has %v, result file has %v",
		e.Path, e.Want, e.Got)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// Meta is the comment block at the top of a result file
type Meta struct {
	MaxCount int     // number of grid points of the stage, 0 when not a grid
	MaxSites int     // mutation ceiling the likelihood was computed with
	Step     float64 // grid step of the stage
}

// Row is one evaluated parameter vector
type Row struct {
	LogLik float64
	Params []float64
}

// File is the parsed content of a result file
type File struct {
	Path  string
	Meta  Meta
	Names []string
	Rows  []Row
	// HasHeader is false for files that were created but never received their header
	HasHeader bool
	// Truncated is set when the file ended inside a line or a gzip member;
	// only complete rows are kept and the file must be rewritten before appending.
	Truncated bool
}

// Complete reports whether every grid point recorded in the metadata was evaluated
func (f *File) Complete() bool {
	return f.Meta.MaxCount > 0 && len(f.Rows) == f.Meta.MaxCount
}

// Best returns the row with the largest log-likelihood; ties keep the earliest row
func (f *File) Best() (Row, bool) {
	if len(f.Rows) == 0 {
		return Row{}, false
	}
	logliks := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		logliks[i] = r.LogLik
	}
	return f.Rows[utils.ArgMax(logliks)], true
}

// Read parses the result file at path and checks its columns against names.
// A missing file yields (nil, nil): there is no prior progress.
func Read(path string, names []string) (*File, error) {
	r, err := zio.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open result file %s: %w", path, err)
	}
	defer r.Close()

	f, err := Parse(r, names)
	if err != nil {
		var schema *SchemaMismatchError
		if errors.As(err, &schema) {
			schema.Path = path
			return nil, schema
		}
		return nil, fmt.Errorf("failed to read result file %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse reads a result file from r. A nil names skips the column check.
func Parse(r io.Reader, names []string) (*File, error) {
	f := &File{}
	br := bufio.NewReader(r)
	headerSeen := false
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			f.Truncated = true
		}
		if line != "" && !strings.HasSuffix(line, "\n") {
			// interrupted write: drop the partial line
			f.Truncated = true
			break
		}
		if line != "" {
			lineNo++
			text := strings.TrimRight(line, "\r\n")
			switch {
			case text == "":
			case strings.HasPrefix(text, "##"):
				if err := f.Meta.parse(text[2:]); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
			case strings.HasPrefix(text, "#"):
			case !headerSeen:
				cols := strings.Split(text, "\t")
				if cols[0] != LogLikColumn {
					return nil, fmt.Errorf("line %d: header must start with %q, got %q", lineNo, LogLikColumn, cols[0])
				}
				f.Names = cols[1:]
				if names != nil && !slices.Equal(f.Names, names) {
					return nil, &SchemaMismatchError{Want: names, Got: f.Names}
				}
				headerSeen = true
			default:
				row, err := parseRow(text, len(f.Names))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				f.Rows = append(f.Rows, row)
			}
		}
		if err != nil {
			break
		}
	}
	f.HasHeader = headerSeen
	return f, nil
}

func (m *Meta) parse(kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("malformed metadata %q", kv)
	}
	var err error
	switch key {
	case "max_count":
		m.MaxCount, err = strconv.Atoi(value)
	case "max_sites":
		m.MaxSites, err = strconv.Atoi(value)
	case "step":
		m.Step, err = strconv.ParseFloat(value, 64)
	}
	if err != nil {
		return fmt.Errorf("malformed metadata %q: %w", kv, err)
	}
	return nil
}

func parseRow(text string, ncol int) (Row, error) {
	fields := strings.Split(text, "\t")
	if len(fields) != ncol+1 {
		return Row{}, fmt.Errorf("row has %d columns, want %d", len(fields), ncol+1)
	}
	ll, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Row{}, fmt.Errorf("bad loglik %q: %w", fields[0], err)
	}
	params := make([]float64, ncol)
	for i, s := range fields[1:] {
		if params[i], err = strconv.ParseFloat(s, 64); err != nil {
			return Row{}, fmt.Errorf("bad parameter %q: %w", s, err)
		}
	}
	return Row{LogLik: ll, Params: params}, nil
}

// FormatMeta renders the metadata block and the header line
func FormatMeta(meta Meta, names []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "##max_count=%d\n", meta.MaxCount)
	fmt.Fprintf(&sb, "##max_sites=%d\n", meta.MaxSites)
	fmt.Fprintf(&sb, "##step=%s\n", strconv.FormatFloat(meta.Step, 'g', -1, 64))
	sb.WriteString(LogLikColumn)
	for _, n := range names {
		sb.WriteByte('\t')
		sb.WriteString(n)
	}
	sb.WriteByte('\n')
	return sb.String()
}

// FormatRow renders one data line including the newline
func FormatRow(r Row) string {
	return formatLogLik(r.LogLik) + "\t" + Key(r.Params) + "\n"
}

// Key encodes params in fixed-point notation joined by tabs.
// Parsing a key back yields exactly the same values.
func Key(params []float64) string {
	parts := make([]string, len(params))
	for i, x := range params {
		parts[i] = strconv.FormatFloat(x, 'f', -1, 64)
	}
	return strings.Join(parts, "\t")
}

func formatLogLik(x float64) string {
	if math.IsInf(x, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}
