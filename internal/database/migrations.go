package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    invoice TEXT NOT NULL,
    date TEXT NOT NULL,
    region TEXT NOT NULL,
    category TEXT NOT NULL,
    quantity REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS forecasts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    region TEXT NOT NULL,
    category TEXT NOT NULL,
    week TEXT NOT NULL,
    actual REAL,
    predicted REAL NOT NULL,
    is_forecast INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS model_metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    region TEXT NOT NULL,
    category TEXT NOT NULL,
    mae REAL NOT NULL,
    mape REAL NOT NULL,
    sample_size INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS basket_rules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    region TEXT NOT NULL,
    antecedents TEXT NOT NULL,
    consequents TEXT NOT NULL,
    support REAL NOT NULL,
    confidence REAL NOT NULL,
    lift REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS recommendations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    region TEXT NOT NULL,
    type TEXT NOT NULL CHECK(type IN ('derived_demand', 'dead_stock')),
    product TEXT NOT NULL,
    related_product TEXT,
    action TEXT NOT NULL,
    priority TEXT NOT NULL CHECK(priority IN ('high', 'medium', 'low')),
    confidence REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    body_markdown TEXT NOT NULL,
    region_count INTEGER DEFAULT 0,
    rule_count INTEGER DEFAULT 0,
    recommendation_count INTEGER DEFAULT 0,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transactions_region ON transactions(region);
CREATE INDEX IF NOT EXISTS idx_forecasts_region ON forecasts(region);
CREATE INDEX IF NOT EXISTS idx_forecasts_region_category ON forecasts(region, category);
CREATE INDEX IF NOT EXISTS idx_metrics_region ON model_metrics(region);
CREATE INDEX IF NOT EXISTS idx_rules_region ON basket_rules(region);
CREATE INDEX IF NOT EXISTS idx_recommendations_region ON recommendations(region);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
