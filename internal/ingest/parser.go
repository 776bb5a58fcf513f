// internal/ingest/parser.go
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/domain"
)

// RowError describes one rejected input row.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// header aliases accepted for each field, normalized form.
var (
	productColumns  = []string{"productid", "sku", "product"}
	locationColumns = []string{"locationid", "storeid", "location", "store"}
	dateColumns     = []string{"date", "salesdate", "orderdate"}
	unitsColumns    = []string{"unitssold", "units", "qty", "quantity"}
	revenueColumns  = []string{"revenue", "sales", "amount"}
	currencyColumns = []string{"currency"}
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", time.RFC3339}

type columnMap struct {
	product  int
	location int
	date     int
	units    int
	revenue  int
	currency int
}

func mapHeader(header []string) (columnMap, error) {
	cm := columnMap{product: -1, location: -1, date: -1, units: -1, revenue: -1, currency: -1}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeColumnName(h)] = i
	}

	find := func(aliases []string) int {
		for _, a := range aliases {
			if i, ok := index[a]; ok {
				return i
			}
		}
		return -1
	}

	cm.product = find(productColumns)
	cm.location = find(locationColumns)
	cm.date = find(dateColumns)
	cm.units = find(unitsColumns)
	cm.revenue = find(revenueColumns)
	cm.currency = find(currencyColumns)

	var missing []string
	if cm.product < 0 {
		missing = append(missing, "product_id")
	}
	if cm.location < 0 {
		missing = append(missing, "location_id")
	}
	if cm.date < 0 {
		missing = append(missing, "date")
	}
	if cm.units < 0 {
		missing = append(missing, "units_sold")
	}
	if len(missing) > 0 {
		return cm, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return cm, nil
}

// ParseCSV reads daily sales rows from r. Invalid rows are collected, not
// fatal: a single bad line in a large export should not sink the import.
func ParseCSV(r io.Reader) ([]domain.SalesHistoryEntry, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	cm, err := mapHeader(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		entries []domain.SalesHistoryEntry
		rowErrs []RowError
		line    = 1
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}

		entry, rerr := parseRecord(record, cm)
		if rerr != "" {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: rerr})
			continue
		}
		entries = append(entries, entry)
	}

	return entries, rowErrs, nil
}

func parseRecord(record []string, cm columnMap) (domain.SalesHistoryEntry, string) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	entry := domain.SalesHistoryEntry{
		ProductID:  field(cm.product),
		LocationID: field(cm.location),
		Currency:   strings.ToUpper(field(cm.currency)),
		Source:     domain.SourceImported,
	}

	if entry.ProductID == "" {
		return entry, "empty product id"
	}
	if entry.LocationID == "" {
		return entry, "empty location id"
	}

	date, ok := parseDate(field(cm.date))
	if !ok {
		return entry, "unparseable date: " + field(cm.date)
	}
	entry.Date = date

	units, err := strconv.Atoi(field(cm.units))
	if err != nil {
		return entry, "unparseable units: " + field(cm.units)
	}
	if units < 0 {
		return entry, "negative units"
	}
	entry.UnitsSold = units

	if raw := field(cm.revenue); raw != "" {
		revenue, err := decimal.NewFromString(raw)
		if err != nil {
			return entry, "unparseable revenue: " + raw
		}
		if revenue.IsNegative() {
			return entry, "negative revenue"
		}
		entry.Revenue = revenue
	}

	return entry, ""
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			// Normalize to the calendar day.
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
