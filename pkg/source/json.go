package source

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

//go:embed schema.json
var documentSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(documentSchema)

// document is the JSON input layout: {"columns": [...], "rows": [[...], null, ...]}.
type document struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// JSON serves rows from a validated in-memory document.
type JSON struct {
	doc  document
	next int
}

// NewJSON reads, validates and decodes a whole document from r.
func NewJSON(r io.Reader) (*JSON, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty json document", ErrEmptyInput)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		return nil, validationError(result.Errors())
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc document

	err = dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	return &JSON{doc: doc}, nil
}

// OpenJSON reads a JSON document from a file.
func OpenJSON(path string) (*JSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()

	src, err := NewJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return src, nil
}

// Columns returns the document's column names.
func (j *JSON) Columns() []string { return j.doc.Columns }

// Len returns the number of rows in the document, absent rows included.
func (j *JSON) Len() int { return len(j.doc.Rows) }

// Next returns the next row.
func (j *JSON) Next(_ context.Context) (tuple.Tuple, error) {
	if j.next >= len(j.doc.Rows) {
		return nil, io.EOF
	}

	idx := j.next
	j.next++

	raw := j.doc.Rows[idx]
	if raw == nil {
		return nil, nil
	}

	err := checkArity(int64(idx), len(raw), len(j.doc.Columns))
	if err != nil {
		return nil, err
	}

	t, err := tuple.FromAnySlice(raw)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", idx, err)
	}

	return t, nil
}

// Close releases the decoded rows.
func (j *JSON) Close() error {
	j.next = len(j.doc.Rows)

	return nil
}

func validationError(results []gojsonschema.ResultError) error {
	msgs := make([]string, 0, len(results))

	for _, r := range results {
		msgs = append(msgs, r.String())
	}

	return errors.Join(ErrInvalidDocument, errors.New(strings.Join(msgs, "; ")))
}
