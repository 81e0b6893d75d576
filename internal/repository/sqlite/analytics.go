package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// compile-time check that *DB implements repository.AnalyticsRepository
var _ repository.AnalyticsRepository = (*DB)(nil)

// SaveSnapshot inserts or replaces the snapshot for (user, habit, date).
// The nightly job re-runs safely: a second run for the same day just
// overwrites the earlier numbers.
func (db *DB) SaveSnapshot(ctx context.Context, snap *model.AnalyticsSnapshot) error {
	if snap.ID == "" {
		snap.ID = xid.New().String()
	}
	snap.UpdatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO analytics (id, user_id, habit_id, date, completion_rate,
			weekly_completions, monthly_completions, average_streak, best_day, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, habit_id, date) DO UPDATE SET
			completion_rate = excluded.completion_rate,
			weekly_completions = excluded.weekly_completions,
			monthly_completions = excluded.monthly_completions,
			average_streak = excluded.average_streak,
			best_day = excluded.best_day,
			updated_at = excluded.updated_at`,
		snap.ID, snap.UserID, snap.HabitID, dayString(snap.Date),
		snap.CompletionRate, snap.WeeklyCompletions, snap.MonthlyCompletions,
		snap.AverageStreak, snap.BestDay, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving analytics snapshot: %w", err)
	}
	return nil
}

func (db *DB) ListSnapshots(ctx context.Context, userID, habitID string, opts repository.ListOptions) ([]model.AnalyticsSnapshot, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 30
	}
	if limit > 365 {
		limit = 365
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, habit_id, date, completion_rate, weekly_completions,
			monthly_completions, average_streak, best_day, updated_at
		 FROM analytics
		 WHERE user_id = ? AND habit_id = ?
		 ORDER BY date DESC
		 LIMIT ? OFFSET ?`,
		userID, habitID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing analytics snapshots: %w", err)
	}
	defer rows.Close()

	snaps := make([]model.AnalyticsSnapshot, 0, limit)
	for rows.Next() {
		var (
			s   model.AnalyticsSnapshot
			day string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.HabitID, &day, &s.CompletionRate,
			&s.WeeklyCompletions, &s.MonthlyCompletions, &s.AverageStreak,
			&s.BestDay, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snapshot row: %w", err)
		}
		if s.Date, err = parseDay(day); err != nil {
			return nil, fmt.Errorf("sqlite: parsing snapshot date: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snapshots: %w", err)
	}
	return snaps, nil
}
