package database

import (
	"database/sql"
	"fmt"
)

// ReplaceTransactions replaces the stored dataset with the given rows.
// Derived results are cleared too: they belong to the previous dataset.
func (db *DB) ReplaceTransactions(txs []Transaction) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin replace transactions: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"transactions", "forecasts", "model_metrics", "basket_rules", "recommendations",
	} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	stmt, err := tx.Prepare(
		"INSERT INTO transactions (invoice, date, region, category, quantity) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.Exec(t.Invoice, formatDate(t.Date), t.Region, t.Category, t.Quantity); err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns all transactions in insertion order, which
// preserves the row order of the ingested file.
func (db *DB) GetTransactions() ([]Transaction, error) {
	rows, err := db.conn.Query(
		"SELECT id, invoice, date, region, category, quantity FROM transactions ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// GetRegions returns distinct region names in order of first appearance
// in the dataset.
func (db *DB) GetRegions() ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT region FROM transactions GROUP BY region ORDER BY MIN(id)",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	var txs []Transaction
	for rows.Next() {
		var t Transaction
		var date string
		if err := rows.Scan(&t.ID, &t.Invoice, &date, &t.Region, &t.Category, &t.Quantity); err != nil {
			return nil, err
		}
		t.Date = parseDate(date)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
