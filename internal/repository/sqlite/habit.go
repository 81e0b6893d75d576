package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// compile-time check that *DB implements repository.HabitRepository
var _ repository.HabitRepository = (*DB)(nil)

const habitColumns = `id, user_id, name, description, category, frequency,
	frequency_days, target_count, unit, priority, color, icon,
	current_streak, longest_streak, total_completions, is_active,
	reminder_time, reminder_enabled, created_at, updated_at`

func scanHabit(row interface{ Scan(...any) error }) (*model.Habit, error) {
	var h model.Habit
	err := row.Scan(
		&h.ID, &h.UserID, &h.Name, &h.Description, &h.Category, &h.Frequency,
		&h.FrequencyDays, &h.TargetCount, &h.Unit, &h.Priority, &h.Color, &h.Icon,
		&h.CurrentStreak, &h.LongestStreak, &h.TotalCompletions, &h.IsActive,
		&h.ReminderTime, &h.ReminderEnabled, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (db *DB) CreateHabit(ctx context.Context, habit *model.Habit) error {
	habit.ID = xid.New().String()
	now := time.Now()
	habit.CreatedAt = now
	habit.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO habits (id, user_id, name, description, category, frequency,
			frequency_days, target_count, unit, priority, color, icon,
			current_streak, longest_streak, total_completions, is_active,
			reminder_time, reminder_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.UserID, habit.Name, habit.Description, habit.Category,
		habit.Frequency, habit.FrequencyDays, habit.TargetCount, habit.Unit,
		habit.Priority, habit.Color, habit.Icon, habit.CurrentStreak,
		habit.LongestStreak, habit.TotalCompletions, habit.IsActive,
		habit.ReminderTime, habit.ReminderEnabled, habit.CreatedAt, habit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating habit: %w", err)
	}
	return nil
}

func (db *DB) GetHabitByID(ctx context.Context, id string) (*model.Habit, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	habit, err := scanHabit(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("habit", id)
		}
		return nil, fmt.Errorf("sqlite: getting habit %s: %w", id, err)
	}
	return habit, nil
}

// ListHabitsByUser returns the user's habits, highest priority first.
func (db *DB) ListHabitsByUser(ctx context.Context, userID string) ([]model.Habit, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits
		 WHERE user_id = ?
		 ORDER BY priority DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing habits: %w", err)
	}
	defer rows.Close()

	return collectHabits(rows)
}

func (db *DB) ListHabitsByCategory(ctx context.Context, userID, category string) ([]model.Habit, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits
		 WHERE user_id = ? AND category = ?
		 ORDER BY priority DESC, created_at DESC`,
		userID, category,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing habits by category: %w", err)
	}
	defer rows.Close()

	return collectHabits(rows)
}

// ListActiveHabits returns active habits across all users, for the cron jobs.
func (db *DB) ListActiveHabits(ctx context.Context) ([]model.Habit, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits
		 WHERE is_active = 1
		 ORDER BY user_id, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing active habits: %w", err)
	}
	defer rows.Close()

	return collectHabits(rows)
}

func collectHabits(rows *sql.Rows) ([]model.Habit, error) {
	habits := make([]model.Habit, 0, 16)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning habit row: %w", err)
		}
		habits = append(habits, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating habits: %w", err)
	}
	return habits, nil
}

func (db *DB) UpdateHabit(ctx context.Context, habit *model.Habit) error {
	habit.UpdatedAt = time.Now()
	result, err := db.conn.ExecContext(ctx,
		`UPDATE habits
		 SET name = ?, description = ?, category = ?, frequency = ?,
		     frequency_days = ?, target_count = ?, unit = ?, priority = ?,
		     color = ?, icon = ?, current_streak = ?, longest_streak = ?,
		     total_completions = ?, is_active = ?, reminder_time = ?,
		     reminder_enabled = ?, updated_at = ?
		 WHERE id = ?`,
		habit.Name, habit.Description, habit.Category, habit.Frequency,
		habit.FrequencyDays, habit.TargetCount, habit.Unit, habit.Priority,
		habit.Color, habit.Icon, habit.CurrentStreak, habit.LongestStreak,
		habit.TotalCompletions, habit.IsActive, habit.ReminderTime,
		habit.ReminderEnabled, habit.UpdatedAt, habit.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating habit %s: %w", habit.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("habit", habit.ID)
	}
	return nil
}

// DeleteHabit removes a habit, its streak record, and all of its check-ins
// in one transaction, so a partial cascade can never be observed.
func (db *DB) DeleteHabit(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning habit delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checkins WHERE habit_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting check-ins for habit %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM streaks WHERE habit_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting streak for habit %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM analytics WHERE habit_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting snapshots for habit %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting habit %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("habit", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing habit delete: %w", err)
	}
	return nil
}
