// Package importer reads transaction exports into the domain model. Parsers
// report per-record outcomes instead of aborting a whole file on one bad
// row, so the caller can render an import report.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tributary/internal/model"
)

// Result is the outcome of parsing a single record. Exactly one of
// Transaction or Err is meaningful.
type Result struct {
	Err         error
	Line        int
	Transaction model.Transaction
}

// Ok reports whether the record parsed successfully.
func (r Result) Ok() bool {
	return r.Err == nil
}

// expected CSV header, lower-cased. Note and category are optional columns.
var csvColumns = []string{"date", "amount", "name", "merchant", "category", "note", "account"}

// dateFormats are tried in order when parsing the date column.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
	"01/02/2006",
}

// CSVParser reads the generic tributary CSV export format: a header row
// naming at least date, amount and name, then one transaction per row.
type CSVParser struct{}

// NewCSVParser creates a new CSV parser.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// ParseFile reads all records from the reader. The returned slice has one
// Result per data row, in file order. A header that cannot be understood is
// a file-level error.
func (p *CSVParser) ParseFile(ctx context.Context, reader io.Reader) ([]Result, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var results []Result
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		record, readErr := r.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			results = append(results, Result{Line: line, Err: readErr})
			continue
		}

		txn, parseErr := parseRecord(record, columns)
		if parseErr != nil {
			results = append(results, Result{Line: line, Err: fmt.Errorf("line %d: %w", line, parseErr)})
			continue
		}
		results = append(results, Result{Line: line, Transaction: txn})
	}

	return results, nil
}

// mapColumns matches header names to indices. Date, amount and name are
// required; the rest fall back to -1 (absent).
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(csvColumns))
	for _, name := range csvColumns {
		columns[name] = -1
	}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, ok := columns[name]; ok {
			columns[name] = i
		}
	}
	for _, required := range []string{"date", "amount", "name"} {
		if columns[required] < 0 {
			return nil, fmt.Errorf("CSV header is missing required column %q", required)
		}
	}
	return columns, nil
}

func field(record []string, columns map[string]int, name string) string {
	idx := columns[name]
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseRecord(record []string, columns map[string]int) (model.Transaction, error) {
	rawDate := field(record, columns, "date")
	date, err := parseDate(rawDate)
	if err != nil {
		return model.Transaction{}, err
	}

	rawAmount := field(record, columns, "amount")
	amount, err := strconv.ParseFloat(strings.ReplaceAll(rawAmount, ",", "."), 64)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("unparseable amount %q", rawAmount)
	}

	name := field(record, columns, "name")
	if name == "" {
		return model.Transaction{}, fmt.Errorf("missing transaction name")
	}

	txn := model.Transaction{
		Date:         date,
		Name:         name,
		MerchantName: field(record, columns, "merchant"),
		Category:     field(record, columns, "category"),
		Note:         field(record, columns, "note"),
		AccountID:    field(record, columns, "account"),
		Amount:       amount,
		Source:       model.SourceCSV,
	}
	if txn.MerchantName == "" {
		txn.MerchantName = name
	}
	txn.Hash = txn.GenerateHash()
	txn.ID = txn.Hash
	return txn, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
