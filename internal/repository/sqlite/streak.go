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

// compile-time check that *DB implements repository.StreakRepository
var _ repository.StreakRepository = (*DB)(nil)

const streakColumns = `id, habit_id, user_id, current_streak, longest_streak,
	last_check_in, completion_dates, missed_dates, updated_at`

func scanStreak(row interface{ Scan(...any) error }) (*model.Streak, error) {
	var (
		s           model.Streak
		lastCheckIn sql.NullString
		completed   string
		missed      string
	)
	err := row.Scan(
		&s.ID, &s.HabitID, &s.UserID, &s.CurrentStreak, &s.LongestStreak,
		&lastCheckIn, &completed, &missed, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastCheckIn.Valid {
		day, err := parseDay(lastCheckIn.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_check_in: %w", err)
		}
		s.LastCheckIn = &day
	}
	if s.CompletionDates, err = unmarshalDays(completed); err != nil {
		return nil, err
	}
	if s.MissedDates, err = unmarshalDays(missed); err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) CreateStreak(ctx context.Context, streak *model.Streak) error {
	streak.ID = xid.New().String()
	streak.UpdatedAt = time.Now()

	completed, err := marshalDays(streak.CompletionDates)
	if err != nil {
		return fmt.Errorf("sqlite: creating streak: %w", err)
	}
	missed, err := marshalDays(streak.MissedDates)
	if err != nil {
		return fmt.Errorf("sqlite: creating streak: %w", err)
	}

	var lastCheckIn any
	if streak.LastCheckIn != nil {
		lastCheckIn = dayString(*streak.LastCheckIn)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO streaks (id, habit_id, user_id, current_streak,
			longest_streak, last_check_in, completion_dates, missed_dates, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		streak.ID, streak.HabitID, streak.UserID, streak.CurrentStreak,
		streak.LongestStreak, lastCheckIn, completed, missed, streak.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating streak: %w", err)
	}
	return nil
}

func (db *DB) GetStreakByHabit(ctx context.Context, userID, habitID string) (*model.Streak, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+streakColumns+` FROM streaks WHERE user_id = ? AND habit_id = ?`,
		userID, habitID,
	)
	streak, err := scanStreak(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("streak", habitID)
		}
		return nil, fmt.Errorf("sqlite: getting streak for habit %s: %w", habitID, err)
	}
	return streak, nil
}

// ListStreaksByUser returns all of the user's streaks, longest current
// streak first.
func (db *DB) ListStreaksByUser(ctx context.Context, userID string) ([]model.Streak, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+streakColumns+` FROM streaks
		 WHERE user_id = ?
		 ORDER BY current_streak DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing streaks: %w", err)
	}
	defer rows.Close()

	streaks := make([]model.Streak, 0, 16)
	for rows.Next() {
		s, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning streak row: %w", err)
		}
		streaks = append(streaks, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating streaks: %w", err)
	}
	return streaks, nil
}

func (db *DB) UpdateStreak(ctx context.Context, streak *model.Streak) error {
	return db.updateStreakExec(ctx, db.conn, streak)
}

// execer covers both *sql.DB and *sql.Tx so streak updates can run inside
// the check-in batch transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) updateStreakExec(ctx context.Context, ex execer, streak *model.Streak) error {
	streak.UpdatedAt = time.Now()

	completed, err := marshalDays(streak.CompletionDates)
	if err != nil {
		return fmt.Errorf("sqlite: updating streak: %w", err)
	}
	missed, err := marshalDays(streak.MissedDates)
	if err != nil {
		return fmt.Errorf("sqlite: updating streak: %w", err)
	}

	var lastCheckIn any
	if streak.LastCheckIn != nil {
		lastCheckIn = dayString(*streak.LastCheckIn)
	}

	result, err := ex.ExecContext(ctx,
		`UPDATE streaks
		 SET current_streak = ?, longest_streak = ?, last_check_in = ?,
		     completion_dates = ?, missed_dates = ?, updated_at = ?
		 WHERE id = ?`,
		streak.CurrentStreak, streak.LongestStreak, lastCheckIn,
		completed, missed, streak.UpdatedAt, streak.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating streak %s: %w", streak.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("streak", streak.ID)
	}
	return nil
}
