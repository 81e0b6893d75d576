package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
)

// ":memory:" gives each test its own throwaway database: no disk I/O, no
// cross-test contamination, destroyed when the connection closes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Foreign keys are enforced, so check-ins and streaks need real user and
// habit rows behind them.
func createTestUser(t *testing.T, db *DB) *model.User {
	t.Helper()
	user := &model.User{Username: "alice", Email: "alice@example.com", Level: 1}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestHabit(t *testing.T, db *DB, userID, name string) *model.Habit {
	t.Helper()
	habit := &model.Habit{
		UserID:    userID,
		Name:      name,
		Category:  model.CategoryFitness,
		Frequency: model.FrequencyDaily,
		Priority:  3,
		IsActive:  true,
	}
	if err := db.CreateHabit(context.Background(), habit); err != nil {
		t.Fatalf("failed to create test habit: %v", err)
	}
	return habit
}

func createTestStreak(t *testing.T, db *DB, userID, habitID string) *model.Streak {
	t.Helper()
	streak := &model.Streak{HabitID: habitID, UserID: userID}
	if err := db.CreateStreak(context.Background(), streak); err != nil {
		t.Fatalf("failed to create test streak: %v", err)
	}
	return streak
}

// localDay is a midnight timestamp in the local zone — what parseDay hands
// back after a round-trip.
func localDay(year int, month time.Month, dom int) time.Time {
	return time.Date(year, month, dom, 0, 0, 0, 0, time.Local)
}

func TestCreateUser_AndLookups(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)

	if user.ID == "" {
		t.Fatal("CreateUser() did not set user.ID")
	}

	byID, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Username != "alice" {
		t.Errorf("Username = %q, want %q", byID.Username, "alice")
	}

	byEmail, err := db.GetUserByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail returned different user: %s", byEmail.ID)
	}

	if _, err := db.GetUserByUsername(context.Background(), "alice"); err != nil {
		t.Errorf("GetUserByUsername() error = %v", err)
	}

	if _, err := db.GetUserByID(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing user: error = %v, want ErrNotFound", err)
	}
}

func TestUpsertUserByGitHubID(t *testing.T) {
	db := newTestDB(t)

	first := &model.User{GitHubID: 42, Username: "octo", AvatarURL: "http://a/1.png", Level: 1}
	if err := db.UpsertUserByGitHubID(context.Background(), first); err != nil {
		t.Fatalf("first upsert error = %v", err)
	}

	// Accumulate points between logins.
	first.TotalPoints = 90
	first.Level = 1
	if err := db.UpdateUser(context.Background(), first); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	second := &model.User{GitHubID: 42, Username: "octo-renamed", AvatarURL: "http://a/2.png"}
	if err := db.UpsertUserByGitHubID(context.Background(), second); err != nil {
		t.Fatalf("second upsert error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("upsert created a new row: %s != %s", second.ID, first.ID)
	}
	if second.TotalPoints != 90 {
		t.Errorf("TotalPoints = %d, want 90 preserved across logins", second.TotalPoints)
	}
	if second.Username != "octo-renamed" {
		t.Errorf("Username = %q, want refreshed profile", second.Username)
	}
}

func TestStreakRoundTrip(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	habit := createTestHabit(t, db, user.ID, "run")
	streak := createTestStreak(t, db, user.ID, habit.ID)

	d1 := localDay(2026, time.March, 10)
	d2 := localDay(2026, time.March, 11)
	streak.CurrentStreak = 2
	streak.LongestStreak = 5
	streak.LastCheckIn = &d2
	streak.CompletionDates = []time.Time{d1, d2}
	if err := db.UpdateStreak(context.Background(), streak); err != nil {
		t.Fatalf("UpdateStreak() error = %v", err)
	}

	got, err := db.GetStreakByHabit(context.Background(), user.ID, habit.ID)
	if err != nil {
		t.Fatalf("GetStreakByHabit() error = %v", err)
	}
	if got.CurrentStreak != 2 || got.LongestStreak != 5 {
		t.Errorf("streak = (%d, %d), want (2, 5)", got.CurrentStreak, got.LongestStreak)
	}
	if got.LastCheckIn == nil || !got.LastCheckIn.Equal(d2) {
		t.Errorf("LastCheckIn = %v, want %v", got.LastCheckIn, d2)
	}
	if len(got.CompletionDates) != 2 || !got.CompletionDates[0].Equal(d1) {
		t.Errorf("CompletionDates = %v, want [%v %v]", got.CompletionDates, d1, d2)
	}
}
