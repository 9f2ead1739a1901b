package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// CSVOptions configures CSV parsing.
type CSVOptions struct {
	// Delimiter separates fields. Zero means comma.
	Delimiter rune
	// Comment starts a comment line when non-zero.
	Comment rune
	// KeepText disables value inference: every non-empty field becomes tuple.Text.
	KeepText bool
}

// CSV reads rows from delimited text. The first record is the header.
// An empty field is NULL and a record whose fields are all empty is an absent row.
// encoding/csv skips blank lines, so a single-column file spells an absent row
// as a quoted empty field ("") rather than an empty line.
type CSV struct {
	reader  *csv.Reader
	closer  io.Closer
	columns []string
	opts    CSVOptions
	line    int64
	done    bool
}

// NewCSV reads the header from r.
func NewCSV(r io.Reader, opts CSVOptions) (*CSV, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	reader.Comment = opts.Comment
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing csv header", ErrEmptyInput)
	}

	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	if len(header) == 0 || (len(header) == 1 && header[0] == "") {
		return nil, fmt.Errorf("%w: blank csv header", ErrEmptyInput)
	}

	return &CSV{
		reader:  reader,
		columns: slices.Clone(header),
		opts:    opts,
		line:    1,
	}, nil
}

// OpenCSV opens a CSV file. Close releases the file.
func OpenCSV(path string, opts CSVOptions) (*CSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}

	src, err := NewCSV(f, opts)
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("%s: %w", path, err)
	}

	src.closer = f

	return src, nil
}

// Columns returns the header.
func (c *CSV) Columns() []string { return c.columns }

// Next returns the next row.
func (c *CSV) Next(_ context.Context) (tuple.Tuple, error) {
	if c.done {
		return nil, io.EOF
	}

	record, err := c.reader.Read()
	if errors.Is(err, io.EOF) {
		c.done = true

		return nil, io.EOF
	}

	c.line++

	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if blank(record) {
		return nil, nil
	}

	err = checkArity(c.line, len(record), len(c.columns))
	if err != nil {
		return nil, err
	}

	if c.opts.KeepText {
		return textRecord(record), nil
	}

	return tuple.InferRecord(record), nil
}

// Close releases the underlying file, if any.
func (c *CSV) Close() error {
	c.done = true

	if c.closer == nil {
		return nil
	}

	return c.closer.Close()
}

func blank(record []string) bool {
	for _, field := range record {
		if field != "" {
			return false
		}
	}

	return true
}

func textRecord(record []string) tuple.Tuple {
	t := make(tuple.Tuple, len(record))

	for i, field := range record {
		if field == "" {
			t[i] = tuple.Null{}
		} else {
			t[i] = tuple.Text(field)
		}
	}

	return t
}
