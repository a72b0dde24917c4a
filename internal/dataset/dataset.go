// Package dataset reads POS transaction exports from CSV or Excel files
// into typed transaction records.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"

	"github.com/niagalab/niaga/internal/database"
)

// Column aliases accepted in export headers, lowercased. Retail POS
// exports are inconsistent about naming, so each logical column maps
// from several spellings.
var columnAliases = map[string][]string{
	"invoice":  {"invoice", "invoiceno", "invoice_no", "no_invoice"},
	"date":     {"date", "invoicedate", "invoice_date", "tanggal"},
	"region":   {"region", "pulau", "island"},
	"category": {"category", "product_category", "productcategory", "kategori"},
	"quantity": {"quantity", "qty", "jumlah"},
}

// Read loads a transaction dataset, dispatching on the file extension.
// Supported formats are .csv, .xlsx and .xlsm.
func Read(path string) ([]database.Transaction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx", ".xlsm":
		return readExcel(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func readCSV(path string) ([]database.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var txs []database.Transaction
	line := 1
	skipped := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line+1, err)
		}
		line++

		tx, err := parseRow(record, cols)
		if err != nil {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	logLoaded(path, len(txs), skipped)
	return txs, nil
}

func readExcel(path string) ([]database.Transaction, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var txs []database.Transaction
	skipped := 0
	for _, record := range rows[1:] {
		tx, err := parseRow(record, cols)
		if err != nil {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	logLoaded(path, len(txs), skipped)
	return txs, nil
}

// mapColumns resolves the header row to logical column indexes. All five
// logical columns are required.
func mapColumns(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := make(map[string]int, len(columnAliases))
	var missing []string
	for logical, aliases := range columnAliases {
		found := false
		for _, alias := range aliases {
			if idx, ok := byName[alias]; ok {
				cols[logical] = idx
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, logical)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset is missing required column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseRow converts one record into a transaction. Rows with malformed
// dates or quantities are reported as errors and skipped by the caller;
// negative quantities (returns) are kept and handled downstream.
func parseRow(record []string, cols map[string]int) (database.Transaction, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	dateText := field("date")
	if dateText == "" {
		return database.Transaction{}, fmt.Errorf("empty date")
	}
	date, err := dateparse.ParseAny(dateText)
	if err != nil {
		return database.Transaction{}, fmt.Errorf("parsing date %q: %w", dateText, err)
	}

	qtyText := field("quantity")
	qty, err := strconv.ParseFloat(strings.ReplaceAll(qtyText, ",", ""), 64)
	if err != nil {
		return database.Transaction{}, fmt.Errorf("parsing quantity %q: %w", qtyText, err)
	}

	region := field("region")
	category := field("category")
	if region == "" || category == "" {
		return database.Transaction{}, fmt.Errorf("empty region or category")
	}

	return database.Transaction{
		Invoice:  field("invoice"),
		Date:     date,
		Region:   region,
		Category: category,
		Quantity: qty,
	}, nil
}

func logLoaded(path string, loaded, skipped int) {
	if skipped > 0 {
		log.Printf("Loaded %d transactions from %s (%d malformed rows skipped)", loaded, filepath.Base(path), skipped)
		return
	}
	log.Printf("Loaded %d transactions from %s", loaded, filepath.Base(path))
}
