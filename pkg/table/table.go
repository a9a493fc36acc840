// Package table fetches and decodes tabular resource payloads. CSV and
// parquet are supported, which covers every tabular distribution the
// catalogue publishes.
package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/segmentio/parquet-go"

	"github.com/opendatazurich/opendata-go/pkg/errs"
)

// Table is a decoded tabular payload, one slice of cells per row. All
// cells are kept as strings, interpretation is left to the caller.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t *Table) NumColumns() int {
	return len(t.Columns)
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Extension returns the file extension of a resource URL, the part
// after the last dot.
func Extension(rawURL string) string {
	i := strings.LastIndex(rawURL, ".")
	if i < 0 {
		return ""
	}

	return rawURL[i+1:]
}

// Fetch downloads the resource at rawURL and decodes it based on its
// file extension.
func Fetch(ctx context.Context, client *http.Client, rawURL string, log zerolog.Logger) (*Table, error) {
	const op errs.Op = "table.Fetch"

	ext := strings.ToLower(Extension(rawURL))
	switch ext {
	case "csv", "parquet":
	default:
		log.Warn().Msgf("cannot load data from %s: provide an url with csv or parquet extension", rawURL)
		return nil, errs.E(op, errs.InvalidRequest, errs.Parameter("url"), errs.Str("unsupported file extension: "+ext))
	}

	data, err := download(ctx, client, rawURL)
	if err != nil {
		return nil, errs.E(op, errs.IO, err)
	}

	switch ext {
	case "parquet":
		t, err := DecodeParquet(data)
		if err != nil {
			return nil, errs.E(op, err)
		}

		return t, nil
	default:
		return DecodeCSV(data, log), nil
	}
}

// DecodeCSV parses comma separated data. If the result has one column
// or less the data is most likely not comma separated and parsing is
// retried with a semicolon. A still degenerate result is returned as-is
// with a diagnostic.
func DecodeCSV(data []byte, log zerolog.Logger) *Table {
	t := decodeCSVWith(data, ',', log)
	if t.NumColumns() > 1 {
		return t
	}

	t = decodeCSVWith(data, ';', log)
	if t.NumColumns() <= 1 {
		log.Warn().Msg("the data wasn't imported properly, very likely the correct separator couldn't be found; please check the dataset manually")
	}

	return t
}

func decodeCSVWith(data []byte, sep rune, log zerolog.Logger) *Table {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sep
	r.LazyQuotes = true

	columns, err := r.Read()
	if err != nil {
		return &Table{}
	}

	t := &Table{Columns: columns}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Bad lines are dropped, not fatal.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				log.Warn().Msgf("skipping malformed row %d: %v", parseErr.Line, parseErr.Err)
				continue
			}

			log.Warn().Err(err).Msg("skipping unreadable row")
			continue
		}

		t.Rows = append(t.Rows, record)
	}

	return t
}

// DecodeParquet reads a parquet payload into a Table, rendering every
// value through its parquet string representation.
func DecodeParquet(data []byte) (*Table, error) {
	const op errs.Op = "table.DecodeParquet"

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errs.E(op, errs.InvalidRequest, fmt.Errorf("opening parquet payload: %w", err))
	}

	fields := file.Schema().Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name()
	}

	t := &Table{Columns: columns}

	for _, rowGroup := range file.RowGroups() {
		rows := rowGroup.Rows()

		buf := make([]parquet.Row, 64)
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				cells := make([]string, len(columns))
				for _, value := range row {
					col := value.Column()
					if col < 0 || col >= len(cells) || value.IsNull() {
						continue
					}
					cells[col] = value.String()
				}
				t.Rows = append(t.Rows, cells)
			}

			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = rows.Close()
				return nil, errs.E(op, errs.IO, fmt.Errorf("reading parquet rows: %w", err))
			}
		}

		if err := rows.Close(); err != nil {
			return nil, errs.E(op, errs.IO, err)
		}
	}

	return t, nil
}

func download(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return data, nil
}
