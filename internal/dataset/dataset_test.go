package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeCSV(t, `InvoiceNo,InvoiceDate,PULAU,PRODUCT_CATEGORY,Quantity
INV-1,2024-01-02,JAWA,BREAD,3
INV-1,2024-01-02,JAWA,BUTTER,1
INV-2,2024-01-09,SUMATERA,MILK,-2
`)

	txs, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}

	first := txs[0]
	if first.Invoice != "INV-1" || first.Region != "JAWA" || first.Category != "BREAD" {
		t.Errorf("first row = %+v", first)
	}
	if first.Quantity != 3 {
		t.Errorf("quantity = %f, expected 3", first.Quantity)
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(want) {
		t.Errorf("date = %v, expected %v", first.Date, want)
	}

	// Returns are kept; downstream stages decide how to treat them.
	if txs[2].Quantity != -2 {
		t.Errorf("return quantity = %f, expected -2", txs[2].Quantity)
	}
}

func TestReadCSVAlternateHeaders(t *testing.T) {
	path := writeCSV(t, `invoice,date,region,category,qty
INV-1,02/01/2024,JAWA,BREAD,3
`)

	txs, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}

func TestReadCSVSkipsMalformedRows(t *testing.T) {
	path := writeCSV(t, `InvoiceNo,InvoiceDate,PULAU,PRODUCT_CATEGORY,Quantity
INV-1,2024-01-02,JAWA,BREAD,3
INV-2,not-a-date,JAWA,BREAD,2
INV-3,2024-01-03,JAWA,BREAD,not-a-number
INV-4,2024-01-04,,BREAD,2
`)

	txs, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("expected 1 usable transaction, got %d", len(txs))
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	path := writeCSV(t, `InvoiceNo,InvoiceDate,PULAU,Quantity
INV-1,2024-01-02,JAWA,3
`)

	if _, err := Read(path); err == nil {
		t.Error("expected error for missing category column")
	}
}

func TestReadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	os.WriteFile(path, []byte("{}"), 0o644)

	if _, err := Read(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestReadExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"InvoiceNo", "InvoiceDate", "PULAU", "PRODUCT_CATEGORY", "Quantity"},
		{"INV-1", "2024-01-02", "JAWA", "BREAD", 3},
		{"INV-2", "2024-01-09", "SUMATERA", "MILK", 2},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("failed to build workbook: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	f.Close()

	txs, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[1].Region != "SUMATERA" || txs[1].Quantity != 2 {
		t.Errorf("second row = %+v", txs[1])
	}
}
