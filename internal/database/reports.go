package database

import "database/sql"

// InsertReport stores a composed planning report.
func (db *DB) InsertReport(bodyMarkdown string, regionCount, ruleCount, recommendationCount int) error {
	_, err := db.conn.Exec(
		"INSERT INTO reports (body_markdown, region_count, rule_count, recommendation_count) VALUES (?, ?, ?, ?)",
		bodyMarkdown, regionCount, ruleCount, recommendationCount,
	)
	return err
}

// GetLatestReport returns the most recently generated report, or nil if
// no pipeline run has completed yet.
func (db *DB) GetLatestReport() (*Report, error) {
	row := db.conn.QueryRow(
		`SELECT id, body_markdown, region_count, rule_count, recommendation_count, generated_at
		FROM reports ORDER BY id DESC LIMIT 1`,
	)

	var r Report
	err := row.Scan(&r.ID, &r.BodyMarkdown, &r.RegionCount, &r.RuleCount, &r.RecommendationCount, &r.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
