package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

// StatisticsRepository stores usage counters and the visitor IP table used to count unique visitors.
type StatisticsRepository struct {
	db *sql.DB
}

// NewStatisticsRepository creates a new [StatisticsRepository] with the given database connection
func NewStatisticsRepository(db *sql.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// All returns every counter by name. The signup counter reports the number of active users.
func (r *StatisticsRepository) All() (map[string]int64, error) {
	rows, err := r.db.Query("SELECT metric_name, metric_value FROM statistics")
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	stats := map[string]int64{}
	for rows.Next() {
		var (
			name  string
			value int64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan statistic: %w", err)
		}
		stats[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	users, err := NewUserRepository(r.db).Count()
	if err != nil {
		return nil, err
	}
	stats[string(models.MetricUserSignups)] = users

	return stats, nil
}

// Increment adds one to a counter.
func (r *StatisticsRepository) Increment(metric models.Metric) error {
	query := shared.Rebind(r.db, "UPDATE statistics SET metric_value = metric_value + 1, updated_at = ? WHERE metric_name = ?")

	result, err := r.db.Exec(query, now(), string(metric))
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", metric, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUnknownMetric, metric)
	}
	return nil
}

// RecordVisitor refreshes the last visit of ip and reports whether it was seen for the first time.
//
// A first visit also increments the unique visitor counter in the same transaction.
func (r *StatisticsRepository) RecordVisitor(ip string) (bool, error) {
	if ip == "" {
		ip = "unknown"
	}

	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := now()

	var existing string
	err = tx.QueryRow(shared.Rebind(r.db, "SELECT ip FROM visitor_ips WHERE ip = ?"), ip).Scan(&existing)
	switch {
	case err == nil:
		if _, err := tx.Exec(shared.Rebind(r.db, "UPDATE visitor_ips SET last_visit = ? WHERE ip = ?"), ts, ip); err != nil {
			return false, fmt.Errorf("failed to refresh visitor: %w", err)
		}
		return false, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to query visitor: %w", err)
	}

	insert := shared.Rebind(r.db, "INSERT INTO visitor_ips (ip, first_visit, last_visit) VALUES (?, ?, ?)")
	if _, err := tx.Exec(insert, ip, ts, ts); err != nil {
		return false, fmt.Errorf("failed to insert visitor: %w", err)
	}

	increment := shared.Rebind(r.db, "UPDATE statistics SET metric_value = metric_value + 1, updated_at = ? WHERE metric_name = ?")
	if _, err := tx.Exec(increment, ts, string(models.MetricUniqueVisitors)); err != nil {
		return false, fmt.Errorf("failed to increment %s: %w", models.MetricUniqueVisitors, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit visitor transaction: %w", err)
	}
	return true, nil
}

// Track applies a tracking event. Unique visitor events are deduplicated by ip.
func (r *StatisticsRepository) Track(event models.TrackEvent, ip string) error {
	metric, err := event.Metric()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUnknownMetric, err)
	}

	if metric == models.MetricUniqueVisitors {
		_, err := r.RecordVisitor(ip)
		return err
	}
	return r.Increment(metric)
}
