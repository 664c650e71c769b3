// Package importer bulk-loads inventory items from spreadsheets.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/vesaa/invmon/internal/models"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// RequiredColumns must all appear in the header row of the first sheet.
var RequiredColumns = []string{
	"itemId", "name", "description", "unit", "quantity", "price",
	"delivery_date", "damagedItems",
	"unusedItems", "unusedMonth", "supplier", "category", "brand",
}

const defaultWarranty = "warranty details not found"

// ErrNoRows means the sheet has a header but nothing under it.
var ErrNoRows = errors.New("spreadsheet has no data rows")

// MissingColumnsError lists required header columns absent from the sheet.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// RowError is a row that could not be converted or stored. Row is the
// 1-based spreadsheet row, header included.
type RowError struct {
	Row  int
	Name string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (item %q): %v", e.Row, e.Name, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Parse reads the first sheet of an .xlsx workbook into items. The first
// row is the header; column order is free.
func Parse(r io.Reader) ([]models.Item, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	items := make([]models.Item, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		rec := record{header: header, cells: cells}
		item, err := rec.item()
		if err != nil {
			return nil, &RowError{Row: i + 2, Name: rec.get("name"), Err: err}
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, ErrNoRows
	}
	return items, nil
}

// Import stores items in one transaction; the first invalid item aborts the
// whole batch.
func Import(ctx context.Context, db *gorm.DB, items []models.Item) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range items {
			if err := tx.Create(&items[i]).Error; err != nil {
				return &RowError{Row: i + 2, Name: items[i].Name, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("[import] stored %d items", len(items))
	return nil
}

type record struct {
	header map[string]int
	cells  []string
}

func (r record) get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r record) item() (models.Item, error) {
	it := models.Item{
		ItemCode:    r.get("itemId"),
		Name:        r.get("name"),
		ProductID:   r.get("ProductID"),
		Description: r.get("description"),
		InvoiceNo:   r.get("InvoiceNo"),
		Unit:        r.get("unit"),
		Suppliers:   names(r.get("supplier")),
		Categories:  names(r.get("category")),
		Brand:       r.get("brand"),
		Warranty:    r.get("warrantydetails"),
	}
	if it.Warranty == "" {
		it.Warranty = defaultWarranty
	}

	var err error
	if it.Price, err = number(r.get("price")); err != nil {
		return it, fmt.Errorf("price: %w", err)
	}
	ints := []struct {
		col string
		dst *int
	}{
		{"quantity", &it.Quantity},
		{"damagedItems", &it.DamagedItems},
		{"unusedItems", &it.UnusedItems},
		{"unusedMonth", &it.UnusedMonth},
	}
	for _, f := range ints {
		v, err := number(r.get(f.col))
		if err != nil {
			return it, fmt.Errorf("%s: %w", f.col, err)
		}
		*f.dst = int(v)
	}
	if it.DeliveryDate, err = date(r.get("delivery_date")); err != nil {
		return it, fmt.Errorf("delivery_date: %w", err)
	}
	return it, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// names splits "a, b" into [{a} {b}].
func names(s string) []models.NameRef {
	if s == "" {
		return nil
	}
	var out []models.NameRef
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, models.NameRef{Name: part})
		}
	}
	return out
}

func number(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006", "1/2/2006", "2006/01/02"}

// date accepts an Excel serial day number or a formatted date.
func date(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("is required")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
