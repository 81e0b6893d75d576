// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-tier split:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Each service takes repository interfaces, not *sqlite.DB — tests inject
// in-memory mocks, and the services never see SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// checkInLockCount is the size of the striped lock table used to serialize
// check-ins per (user, habit) pair. 64 stripes keeps contention negligible
// for a single-server deployment while bounding memory — a map of one mutex
// per pair would grow forever.
const checkInLockCount = 64

// stripedLocks serializes work keyed by an arbitrary string. Two different
// keys may share a stripe (harmless — they just wait), but the same key
// always maps to the same stripe, which is what correctness needs.
type stripedLocks [checkInLockCount]sync.Mutex

func (s *stripedLocks) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &s[h.Sum32()%checkInLockCount]
	mu.Lock()
	return mu
}

// CheckInResult is what a recorded check-in returns to the client: the
// stored record plus the points awarded and the user's new totals.
type CheckInResult struct {
	CheckIn    *model.CheckIn `json:"checkIn"`
	Points     int            `json:"points"`
	UserLevel  int            `json:"userLevel"`
	UserPoints int            `json:"userPoints"`
}

// CheckInService records habit completions and maintains every derived
// record that depends on them: the streak, the habit's aggregate counters,
// and the user's points and level.
type CheckInService struct {
	checkIns repository.CheckInRepository
	streaks  repository.StreakRepository
	habits   repository.HabitRepository
	users    repository.UserRepository
	logger   *slog.Logger
	locks    stripedLocks

	// now is a hook for tests; production always uses time.Now.
	now func() time.Time
}

func NewCheckInService(
	checkIns repository.CheckInRepository,
	streaks repository.StreakRepository,
	habits repository.HabitRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CheckInService {
	return &CheckInService{
		checkIns: checkIns,
		streaks:  streaks,
		habits:   habits,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordCheckIn marks the habit as done for today and updates streak,
// habit aggregates, and user points.
//
// CONCURRENCY:
// Two simultaneous check-ins for the same (user, habit) would both read
// "no record for today" and both read the same stale streak, double-counting
// everything. The striped mutex serializes the read-compute-write sequence
// per pair; the UNIQUE(user, habit, date) index in the store backstops the
// one-record-per-day invariant should anything slip through.
//
// count == 0 means "not supplied": a new record gets count 1, an existing
// record is incremented by 1. A supplied count overwrites. A non-empty note
// overwrites; an empty one leaves the existing note alone.
func (s *CheckInService) RecordCheckIn(ctx context.Context, userID, habitID string, count int, note string) (*CheckInResult, error) {
	if count < 0 {
		return nil, apperror.ValidationFailed("count", "count cannot be negative")
	}

	// Ownership check before anything else. A habit that exists but belongs
	// to someone else is reported exactly like a missing one, so the API
	// doesn't leak which habit IDs exist.
	habit, err := s.habits.GetHabitByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, apperror.NotFound("habit", habitID)
	}

	mu := s.locks.lock(userID + "/" + habitID)
	defer mu.Unlock()

	today := model.Day(s.now())

	// Same-day check-ins update the existing record in place — the natural
	// key (user, habit, day) never gets a second row.
	checkIn, err := s.checkIns.GetCheckInByDay(ctx, userID, habitID, today)
	switch {
	case err == nil:
		checkIn.Completed = true
		if count > 0 {
			checkIn.Count = count
		} else {
			checkIn.Count++
		}
		if note != "" {
			checkIn.Note = note
		}
	case errors.Is(err, apperror.ErrNotFound):
		if count == 0 {
			count = 1
		}
		checkIn = &model.CheckIn{
			HabitID:   habitID,
			UserID:    userID,
			Date:      today,
			Completed: true,
			Count:     count,
			Note:      note,
		}
	default:
		return nil, fmt.Errorf("looking up today's check-in: %w", err)
	}

	// Streak update. Every habit gets a streak record at creation time, but
	// records imported from older data may lack one — then the habit simply
	// mirrors a one-day streak below.
	streak, err := s.streaks.GetStreakByHabit(ctx, userID, habitID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up streak: %w", err)
	}

	if streak != nil {
		s.advanceStreak(ctx, streak, userID, habitID, today)
		checkIn.Streak = streak.CurrentStreak
	}

	// Habit aggregates mirror the streak so list views never need a join.
	habit.TotalCompletions++
	if streak != nil {
		habit.CurrentStreak = streak.CurrentStreak
		// The streak record only absorbs CurrentStreak into LongestStreak
		// when a streak breaks; the habit's cached copy must satisfy
		// longest >= current at all times, so clamp here.
		habit.LongestStreak = max(streak.LongestStreak, streak.CurrentStreak)
	} else {
		habit.CurrentStreak = 1
		habit.LongestStreak = max(habit.LongestStreak, 1)
	}

	// Points scale with the streak: 10 points per consecutive day, minimum
	// one day's worth even when no streak record exists.
	pointsEarned := 10 * max(checkIn.Streak, 1)
	checkIn.PointsEarned = pointsEarned

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	user.TotalPoints += pointsEarned
	user.Level = model.LevelForPoints(user.TotalPoints)

	// One transaction for all four records — a failure partway through must
	// not leave the habit counter bumped without the points awarded.
	batch := &repository.CheckInBatch{
		CheckIn: checkIn,
		Streak:  streak,
		Habit:   habit,
		User:    user,
	}
	if err := s.checkIns.SaveCheckInBatch(ctx, batch); err != nil {
		s.logger.Error("failed to save check-in",
			slog.String("userID", userID),
			slog.String("habitID", habitID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving check-in: %w", err)
	}

	s.logger.Info("check-in recorded",
		slog.String("habitID", habitID),
		slog.String("userID", userID),
		slog.Int("streak", checkIn.Streak),
		slog.Int("points", pointsEarned),
	)

	return &CheckInResult{
		CheckIn:    checkIn,
		Points:     pointsEarned,
		UserLevel:  user.Level,
		UserPoints: user.TotalPoints,
	}, nil
}

// advanceStreak applies the consecutive-day rules to the streak record:
//
//   - yesterday has a completed check-in → the streak continues, +1
//   - yesterday is empty but a streak was running → the streak broke;
//     fold it into longestStreak if it's a new record, then restart at 1
//   - no streak was running → start at 1
//
// longestStreak never decreases.
func (s *CheckInService) advanceStreak(ctx context.Context, streak *model.Streak, userID, habitID string, today time.Time) {
	yesterday := today.AddDate(0, 0, -1)

	completedYesterday := false
	if prev, err := s.checkIns.GetCheckInByDay(ctx, userID, habitID, yesterday); err == nil {
		completedYesterday = prev.Completed
	}

	switch {
	case completedYesterday:
		streak.CurrentStreak++
	case streak.CurrentStreak > 0:
		if streak.CurrentStreak > streak.LongestStreak {
			streak.LongestStreak = streak.CurrentStreak
		}
		streak.CurrentStreak = 1
	default:
		streak.CurrentStreak = 1
	}

	streak.LastCheckIn = &today
	streak.CompletionDates = append(streak.CompletionDates, today)
}

// GetByHabit returns all check-ins for one habit, newest first.
func (s *CheckInService) GetByHabit(ctx context.Context, userID, habitID string) ([]model.CheckIn, error) {
	checkIns, err := s.checkIns.ListCheckInsByHabit(ctx, userID, habitID)
	if err != nil {
		return nil, fmt.Errorf("listing check-ins: %w", err)
	}
	return checkIns, nil
}

// GetToday returns the user's check-ins for the current day across all habits.
func (s *CheckInService) GetToday(ctx context.Context, userID string) ([]model.CheckIn, error) {
	today := model.Day(s.now())
	checkIns, err := s.checkIns.ListCheckInsByRange(ctx, userID, today, today)
	if err != nil {
		return nil, fmt.Errorf("listing today's check-ins: %w", err)
	}
	return checkIns, nil
}

// GetRange returns the user's check-ins between two dates, inclusive.
func (s *CheckInService) GetRange(ctx context.Context, userID string, from, to time.Time) ([]model.CheckIn, error) {
	if to.Before(from) {
		return nil, apperror.ValidationFailed("endDate", "end date is before start date")
	}
	checkIns, err := s.checkIns.ListCheckInsByRange(ctx, userID, model.Day(from), model.Day(to))
	if err != nil {
		return nil, fmt.Errorf("listing check-ins in range: %w", err)
	}
	return checkIns, nil
}

// UpdateNote modifies an existing check-in's completed/count/note fields.
// Streaks and points are not recomputed retroactively.
func (s *CheckInService) UpdateNote(ctx context.Context, userID, checkInID string, completed *bool, count *int, note *string) (*model.CheckIn, error) {
	checkIn, err := s.checkIns.GetCheckInByID(ctx, checkInID)
	if err != nil {
		return nil, err
	}
	if checkIn.UserID != userID {
		return nil, apperror.NotFound("check-in", checkInID)
	}

	if completed != nil {
		checkIn.Completed = *completed
	}
	if count != nil {
		if *count < 0 {
			return nil, apperror.ValidationFailed("count", "count cannot be negative")
		}
		checkIn.Count = *count
	}
	if note != nil {
		checkIn.Note = *note
	}

	if err := s.checkIns.UpdateCheckIn(ctx, checkIn); err != nil {
		return nil, fmt.Errorf("updating check-in: %w", err)
	}
	return checkIn, nil
}

// Delete removes a check-in owned by the user.
func (s *CheckInService) Delete(ctx context.Context, userID, checkInID string) error {
	checkIn, err := s.checkIns.GetCheckInByID(ctx, checkInID)
	if err != nil {
		return err
	}
	if checkIn.UserID != userID {
		return apperror.NotFound("check-in", checkInID)
	}
	if err := s.checkIns.DeleteCheckIn(ctx, checkInID); err != nil {
		return fmt.Errorf("deleting check-in: %w", err)
	}
	s.logger.Info("check-in deleted", slog.String("id", checkInID))
	return nil
}
