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

// compile-time check that *DB implements repository.CheckInRepository
var _ repository.CheckInRepository = (*DB)(nil)

const checkInColumns = `id, habit_id, user_id, date, completed, count, note,
	streak, points_earned, created_at`

func scanCheckIn(row interface{ Scan(...any) error }) (*model.CheckIn, error) {
	var (
		c   model.CheckIn
		day string
	)
	err := row.Scan(
		&c.ID, &c.HabitID, &c.UserID, &day, &c.Completed, &c.Count, &c.Note,
		&c.Streak, &c.PointsEarned, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.Date, err = parseDay(day); err != nil {
		return nil, fmt.Errorf("parsing check-in date: %w", err)
	}
	return &c, nil
}

func (db *DB) GetCheckInByID(ctx context.Context, id string) (*model.CheckIn, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+checkInColumns+` FROM checkins WHERE id = ?`, id)
	checkIn, err := scanCheckIn(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("check-in", id)
		}
		return nil, fmt.Errorf("sqlite: getting check-in %s: %w", id, err)
	}
	return checkIn, nil
}

func (db *DB) GetCheckInByDay(ctx context.Context, userID, habitID string, day time.Time) (*model.CheckIn, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+checkInColumns+` FROM checkins
		 WHERE user_id = ? AND habit_id = ? AND date = ?`,
		userID, habitID, dayString(day),
	)
	checkIn, err := scanCheckIn(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("check-in", dayString(day))
		}
		return nil, fmt.Errorf("sqlite: getting check-in for day %s: %w", dayString(day), err)
	}
	return checkIn, nil
}

func (db *DB) ListCheckInsByHabit(ctx context.Context, userID, habitID string) ([]model.CheckIn, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+checkInColumns+` FROM checkins
		 WHERE user_id = ? AND habit_id = ?
		 ORDER BY date DESC`,
		userID, habitID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing check-ins: %w", err)
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

func (db *DB) ListCheckInsByHabitSince(ctx context.Context, userID, habitID string, since time.Time) ([]model.CheckIn, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+checkInColumns+` FROM checkins
		 WHERE user_id = ? AND habit_id = ? AND date >= ?
		 ORDER BY date ASC`,
		userID, habitID, dayString(since),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing check-ins since %s: %w", dayString(since), err)
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

func (db *DB) ListCheckInsByRange(ctx context.Context, userID string, from, to time.Time) ([]model.CheckIn, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+checkInColumns+` FROM checkins
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC`,
		userID, dayString(from), dayString(to),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing check-ins in range: %w", err)
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

func collectCheckIns(rows *sql.Rows) ([]model.CheckIn, error) {
	checkIns := make([]model.CheckIn, 0, 32)
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning check-in row: %w", err)
		}
		checkIns = append(checkIns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating check-ins: %w", err)
	}
	return checkIns, nil
}

func (db *DB) CountCompletedOnDay(ctx context.Context, userID string, day time.Time) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkins
		 WHERE user_id = ? AND date = ? AND completed = 1`,
		userID, dayString(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting completed check-ins: %w", err)
	}
	return n, nil
}

func (db *DB) CountCompletedByHabit(ctx context.Context, userID, habitID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkins
		 WHERE user_id = ? AND habit_id = ? AND completed = 1`,
		userID, habitID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting completed check-ins for habit: %w", err)
	}
	return n, nil
}

func (db *DB) UpdateCheckIn(ctx context.Context, checkIn *model.CheckIn) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE checkins
		 SET completed = ?, count = ?, note = ?, streak = ?, points_earned = ?
		 WHERE id = ?`,
		checkIn.Completed, checkIn.Count, checkIn.Note,
		checkIn.Streak, checkIn.PointsEarned, checkIn.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating check-in %s: %w", checkIn.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("check-in", checkIn.ID)
	}
	return nil
}

func (db *DB) DeleteCheckIn(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM checkins WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting check-in %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("check-in", id)
	}
	return nil
}

// SaveCheckInBatch persists one check-in and every record it mutates —
// streak, habit aggregates, user points — inside a single transaction.
//
// The original design saved these with four independent writes, so a crash
// partway through could leave (say) the habit counter bumped but the points
// never awarded. Grouping them in one transaction closes that gap: either
// the whole check-in lands or none of it does.
//
// The check-in row itself is written with INSERT ... ON CONFLICT so that the
// UNIQUE(user_id, habit_id, date) index enforces the one-record-per-day
// invariant even if two requests race past the service-level lock.
func (db *DB) SaveCheckInBatch(ctx context.Context, batch *repository.CheckInBatch) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning check-in batch: %w", err)
	}
	defer tx.Rollback()

	c := batch.CheckIn
	if c.ID == "" {
		c.ID = xid.New().String()
		c.CreatedAt = time.Now()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkins (id, habit_id, user_id, date, completed, count,
			note, streak, points_earned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			completed = excluded.completed,
			count = excluded.count,
			note = excluded.note,
			streak = excluded.streak,
			points_earned = excluded.points_earned
		 ON CONFLICT(user_id, habit_id, date) DO UPDATE SET
			completed = excluded.completed,
			count = excluded.count,
			note = excluded.note,
			streak = excluded.streak,
			points_earned = excluded.points_earned`,
		c.ID, c.HabitID, c.UserID, dayString(c.Date), c.Completed, c.Count,
		c.Note, c.Streak, c.PointsEarned, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving check-in: %w", err)
	}

	if batch.Streak != nil {
		if err := db.updateStreakExec(ctx, tx, batch.Streak); err != nil {
			return err
		}
	}

	h := batch.Habit
	h.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE habits
		 SET current_streak = ?, longest_streak = ?, total_completions = ?, updated_at = ?
		 WHERE id = ?`,
		h.CurrentStreak, h.LongestStreak, h.TotalCompletions, h.UpdatedAt, h.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating habit aggregates %s: %w", h.ID, err)
	}

	u := batch.User
	u.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET total_points = ?, level = ?, updated_at = ? WHERE id = ?`,
		u.TotalPoints, u.Level, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user points %s: %w", u.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing check-in batch: %w", err)
	}
	return nil
}
