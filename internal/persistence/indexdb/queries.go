package indexdb

import (
	"context"
	"fmt"
)

type ProjectRow struct {
	ProjectID        string
	Name             string
	Style            string
	Status           string
	Success          bool
	FailedDeadline   bool
	LeaderID         string
	AcceptedDay      int
	CompletedDay     int
	Trainings        int
	TrainingNeeded   int
	CostumeMatch     int
	Likes            int
	Dislikes         int
	PopularityChange int
	ReputationChange int
}

// RecentProjects lists archived projects, latest first. limit <= 0 returns all.
func (s *Index) RecentProjects(ctx context.Context, limit int) ([]ProjectRow, error) {
	s.Flush()
	q := `SELECT project_id, name, style, status, success, failed_deadline, leader_id,
		accepted_day, completed_day, trainings_completed, training_needed, costume_match,
		likes, dislikes, popularity_change, reputation_change
		FROM projects ORDER BY completed_day DESC, project_id`
	var args []any
	if limit > 0 {
		q += " LIMIT " + s.dialect.bind(1)
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectRow
	for rows.Next() {
		var r ProjectRow
		if err := rows.Scan(&r.ProjectID, &r.Name, &r.Style, &r.Status, &r.Success, &r.FailedDeadline, &r.LeaderID,
			&r.AcceptedDay, &r.CompletedDay, &r.Trainings, &r.TrainingNeeded, &r.CostumeMatch,
			&r.Likes, &r.Dislikes, &r.PopularityChange, &r.ReputationChange); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Career totals the archive.
type Career struct {
	Completed       int
	Failed          int
	Cancelled       int
	PopularityGain  int
	ReputationDelta int
}

func (s *Index) Career(ctx context.Context) (Career, error) {
	s.Flush()
	var c Career
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*), CAST(COALESCE(SUM(popularity_change), 0) AS BIGINT), CAST(COALESCE(SUM(reputation_change), 0) AS BIGINT)
		FROM projects GROUP BY status`)
	if err != nil {
		return c, fmt.Errorf("query career: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n, pop, rep int
		if err := rows.Scan(&status, &n, &pop, &rep); err != nil {
			return c, fmt.Errorf("scan career: %w", err)
		}
		switch status {
		case "completed":
			c.Completed = n
		case "failed":
			c.Failed = n
		case "cancelled":
			c.Cancelled = n
		}
		c.PopularityGain += pop
		c.ReputationDelta += rep
	}
	return c, rows.Err()
}

// EventCounts counts indexed events by type.
func (s *Index) EventCounts(ctx context.Context) (map[string]int, error) {
	s.Flush()
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM events GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan events: %w", err)
		}
		out[typ] = n
	}
	return out, rows.Err()
}

// EventsFor returns the raw events about one target in journal order.
func (s *Index) EventsFor(ctx context.Context, target string) ([]string, error) {
	s.Flush()
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM events WHERE target = `+s.dialect.bind(1)+` ORDER BY id`, target)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

type SaveRow struct {
	SaveID     string
	SaveName   string
	Path       string
	Day        int
	Money      int
	Popularity int
	Reputation int
	SavedAt    string
}

func (s *Index) Saves(ctx context.Context) ([]SaveRow, error) {
	s.Flush()
	rows, err := s.db.QueryContext(ctx, `SELECT save_id, save_name, path, day, money, popularity, reputation, saved_at
		FROM saves ORDER BY saved_at, save_id`)
	if err != nil {
		return nil, fmt.Errorf("query saves: %w", err)
	}
	defer rows.Close()
	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		if err := rows.Scan(&r.SaveID, &r.SaveName, &r.Path, &r.Day, &r.Money, &r.Popularity, &r.Reputation, &r.SavedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CatalogDigest returns the stored digest of one catalog.
func (s *Index) CatalogDigest(ctx context.Context, name string) (string, error) {
	s.Flush()
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = `+s.dialect.bind(1), name).Scan(&d)
	return d, err
}
