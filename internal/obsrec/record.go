// Package obsrec reads and writes observation record files.
//
// A record file is whitespace-delimited text, one row per sample: a
// timestamp, the observed values, and a trailing tag column readers skip.
// Rows are sampled finer than the assimilation interval; a record opened
// with stride k serves row n*k for assimilation step n.
package obsrec

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrOutOfRange reports an assimilation step beyond the record.
var ErrOutOfRange = errors.New("obsrec: no observation at requested step")

// DefaultStride is the row spacing between consecutive assimilation steps.
const DefaultStride = 10

// Record is an observation table held in memory.
type Record struct {
	times  []float64
	values [][]float64
	stride int
}

// Load reads a record file. Blank lines and lines starting with '#' are
// skipped; every data row needs a time column, at least one value column and
// a trailing tag column. stride <= 0 selects DefaultStride.
func Load(path string, stride int) (*Record, error) {
	if stride <= 0 {
		stride = DefaultStride
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("obsrec: %w", err)
	}
	defer f.Close()

	r := &Record{stride: stride}
	scanner := bufio.NewScanner(f)
	line := 0
	width := -1
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 3 {
			return nil, fmt.Errorf("obsrec: %s:%d: need time, values and tag, got %d columns", path, line, len(fields))
		}
		if width == -1 {
			width = len(fields)
		} else if len(fields) != width {
			return nil, fmt.Errorf("obsrec: %s:%d: ragged row: %d columns, want %d", path, line, len(fields), width)
		}

		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("obsrec: %s:%d: %w", path, line, err)
			}
			row[i] = v
		}
		r.times = append(r.times, row[0])
		r.values = append(r.values, row[1:len(row)-1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("obsrec: %w", err)
	}
	if len(r.values) == 0 {
		return nil, fmt.Errorf("obsrec: %s: empty record", path)
	}
	return r, nil
}

// Len is the number of rows.
func (r *Record) Len() int { return len(r.values) }

// Width is the number of observed values per row.
func (r *Record) Width() int { return len(r.values[0]) }

// Stride is the row spacing this record was opened with.
func (r *Record) Stride() int { return r.stride }

// Steps is the number of complete assimilation steps the record covers.
func (r *Record) Steps() int { return (len(r.values) - 1) / r.stride }

// At returns a copy of the observed values for assimilation step n, row
// n*stride of the table.
func (r *Record) At(step int) ([]float64, error) {
	if step < 0 {
		return nil, fmt.Errorf("obsrec: step %d: %w", step, ErrOutOfRange)
	}
	row := step * r.stride
	if row >= len(r.values) {
		return nil, fmt.Errorf("obsrec: step %d is row %d of %d: %w", step, row, len(r.values), ErrOutOfRange)
	}
	out := make([]float64, len(r.values[row]))
	copy(out, r.values[row])
	return out, nil
}

// TimeAt returns the timestamp of assimilation step n.
func (r *Record) TimeAt(step int) (float64, error) {
	if step < 0 || step*r.stride >= len(r.times) {
		return 0, fmt.Errorf("obsrec: step %d: %w", step, ErrOutOfRange)
	}
	return r.times[step*r.stride], nil
}

// Row is one line of a record file.
type Row struct {
	Time   float64
	Values []float64
	Tag    float64
}

// Write stores rows as whitespace-delimited text readable by Load.
func Write(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("obsrec: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, row := range rows {
		fmt.Fprintf(w, "%.8e", row.Time)
		for _, v := range row.Values {
			fmt.Fprintf(w, " %.8e", v)
		}
		fmt.Fprintf(w, " %.8e\n", row.Tag)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("obsrec: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("obsrec: %w", err)
	}
	return nil
}
