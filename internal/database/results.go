package database

import (
	"database/sql"
	"fmt"
)

// ReplaceResults atomically replaces all derived pipeline output: forecast
// rows, model metrics, association rules and recommendations. A failed run
// never leaves a mix of old and new results behind.
func (db *DB) ReplaceResults(forecasts []Forecast, metrics []ModelMetric, rules []Rule, recs []Recommendation) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin replace results: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"forecasts", "model_metrics", "basket_rules", "recommendations"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err := insertForecasts(tx, forecasts); err != nil {
		return err
	}
	if err := insertMetrics(tx, metrics); err != nil {
		return err
	}
	if err := insertRules(tx, rules); err != nil {
		return err
	}
	if err := insertRecommendations(tx, recs); err != nil {
		return err
	}

	return tx.Commit()
}

func insertForecasts(tx *sql.Tx, forecasts []Forecast) error {
	stmt, err := tx.Prepare(
		"INSERT INTO forecasts (region, category, week, actual, predicted, is_forecast) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing forecast insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range forecasts {
		isForecast := 0
		if f.IsForecast {
			isForecast = 1
		}
		if _, err := stmt.Exec(f.Region, f.Category, formatDate(f.Week), f.Actual, f.Predicted, isForecast); err != nil {
			return fmt.Errorf("inserting forecast: %w", err)
		}
	}
	return nil
}

func insertMetrics(tx *sql.Tx, metrics []ModelMetric) error {
	stmt, err := tx.Prepare(
		"INSERT INTO model_metrics (region, category, mae, mape, sample_size) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing metric insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		if _, err := stmt.Exec(m.Region, m.Category, m.MAE, m.MAPE, m.SampleSize); err != nil {
			return fmt.Errorf("inserting metric: %w", err)
		}
	}
	return nil
}

func insertRules(tx *sql.Tx, rules []Rule) error {
	stmt, err := tx.Prepare(
		"INSERT INTO basket_rules (region, antecedents, consequents, support, confidence, lift) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing rule insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rules {
		if _, err := stmt.Exec(r.Region, r.Antecedents, r.Consequents, r.Support, r.Confidence, r.Lift); err != nil {
			return fmt.Errorf("inserting rule: %w", err)
		}
	}
	return nil
}

func insertRecommendations(tx *sql.Tx, recs []Recommendation) error {
	stmt, err := tx.Prepare(
		"INSERT INTO recommendations (region, type, product, related_product, action, priority, confidence) VALUES (?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing recommendation insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.Exec(r.Region, r.Type, r.Product, r.Related, r.Action, r.Priority, r.Confidence); err != nil {
			return fmt.Errorf("inserting recommendation: %w", err)
		}
	}
	return nil
}

// GetForecasts returns stored forecast rows, optionally filtered by region.
func (db *DB) GetForecasts(region *string) ([]Forecast, error) {
	query := "SELECT id, region, category, week, actual, predicted, is_forecast FROM forecasts"
	var args []any
	if region != nil {
		query += " WHERE region = ?"
		args = append(args, *region)
	}
	query += " ORDER BY id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []Forecast
	for rows.Next() {
		var f Forecast
		var week string
		var isForecast int
		if err := rows.Scan(&f.ID, &f.Region, &f.Category, &week, &f.Actual, &f.Predicted, &isForecast); err != nil {
			return nil, err
		}
		f.Week = parseDate(week)
		f.IsForecast = isForecast != 0
		forecasts = append(forecasts, f)
	}
	return forecasts, rows.Err()
}

// GetMetrics returns stored model metrics, optionally filtered by region.
func (db *DB) GetMetrics(region *string) ([]ModelMetric, error) {
	query := "SELECT id, region, category, mae, mape, sample_size FROM model_metrics"
	var args []any
	if region != nil {
		query += " WHERE region = ?"
		args = append(args, *region)
	}
	query += " ORDER BY id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []ModelMetric
	for rows.Next() {
		var m ModelMetric
		if err := rows.Scan(&m.ID, &m.Region, &m.Category, &m.MAE, &m.MAPE, &m.SampleSize); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// GetRules returns stored association rules, optionally filtered by region.
func (db *DB) GetRules(region *string) ([]Rule, error) {
	query := "SELECT id, region, antecedents, consequents, support, confidence, lift FROM basket_rules"
	var args []any
	if region != nil {
		query += " WHERE region = ?"
		args = append(args, *region)
	}
	query += " ORDER BY id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.Region, &r.Antecedents, &r.Consequents, &r.Support, &r.Confidence, &r.Lift); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// GetRecommendations returns stored recommendations, optionally filtered by region.
func (db *DB) GetRecommendations(region *string) ([]Recommendation, error) {
	query := "SELECT id, region, type, product, related_product, action, priority, confidence FROM recommendations"
	var args []any
	if region != nil {
		query += " WHERE region = ?"
		args = append(args, *region)
	}
	query += " ORDER BY id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Recommendation
	for rows.Next() {
		var r Recommendation
		if err := rows.Scan(&r.ID, &r.Region, &r.Type, &r.Product, &r.Related, &r.Action, &r.Priority, &r.Confidence); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
