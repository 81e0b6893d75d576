package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

func TestCreateHabit_AndGet(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)

	habit := createTestHabit(t, db, user.ID, "morning run")
	if habit.ID == "" {
		t.Fatal("CreateHabit() did not set habit.ID")
	}
	if habit.CreatedAt.IsZero() {
		t.Error("CreateHabit() did not set CreatedAt")
	}

	got, err := db.GetHabitByID(context.Background(), habit.ID)
	if err != nil {
		t.Fatalf("GetHabitByID() error = %v", err)
	}
	if got.Name != "morning run" {
		t.Errorf("Name = %q, want %q", got.Name, "morning run")
	}
	if got.Category != model.CategoryFitness {
		t.Errorf("Category = %q, want %q", got.Category, model.CategoryFitness)
	}
}

func TestListHabitsByUser_PriorityOrder(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)

	low := &model.Habit{UserID: user.ID, Name: "low", Priority: 1, IsActive: true}
	high := &model.Habit{UserID: user.ID, Name: "high", Priority: 5, IsActive: true}
	for _, h := range []*model.Habit{low, high} {
		if err := db.CreateHabit(context.Background(), h); err != nil {
			t.Fatalf("CreateHabit() error = %v", err)
		}
	}

	habits, err := db.ListHabitsByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListHabitsByUser() error = %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("len(habits) = %d, want 2", len(habits))
	}
	if habits[0].Name != "high" {
		t.Errorf("habits[0].Name = %q, want highest priority first", habits[0].Name)
	}
}

func TestListActiveHabits_FiltersInactive(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)

	active := createTestHabit(t, db, user.ID, "active")
	paused := createTestHabit(t, db, user.ID, "paused")
	paused.IsActive = false
	if err := db.UpdateHabit(context.Background(), paused); err != nil {
		t.Fatalf("UpdateHabit() error = %v", err)
	}

	habits, err := db.ListActiveHabits(context.Background())
	if err != nil {
		t.Fatalf("ListActiveHabits() error = %v", err)
	}
	if len(habits) != 1 || habits[0].ID != active.ID {
		t.Errorf("ListActiveHabits() = %d habits, want only the active one", len(habits))
	}
}

func TestUpdateHabit_Missing(t *testing.T) {
	db := newTestDB(t)

	habit := &model.Habit{ID: "ghost", Name: "x"}
	if err := db.UpdateHabit(context.Background(), habit); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteHabit_Cascades(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)
	habit := createTestHabit(t, db, user.ID, "run")
	streak := createTestStreak(t, db, user.ID, habit.ID)

	// One check-in and one snapshot hanging off the habit.
	d := localDay(2026, time.March, 10)
	batch := &repository.CheckInBatch{
		CheckIn: &model.CheckIn{UserID: user.ID, HabitID: habit.ID, Date: d, Completed: true, Count: 1, Streak: 1, PointsEarned: 10},
		Streak:  streak,
		Habit:   habit,
		User:    user,
	}
	if err := db.SaveCheckInBatch(context.Background(), batch); err != nil {
		t.Fatalf("SaveCheckInBatch() error = %v", err)
	}
	if err := db.SaveSnapshot(context.Background(), &model.AnalyticsSnapshot{
		UserID: user.ID, HabitID: habit.ID, Date: d, CompletionRate: 50,
	}); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	if err := db.DeleteHabit(context.Background(), habit.ID); err != nil {
		t.Fatalf("DeleteHabit() error = %v", err)
	}

	if _, err := db.GetHabitByID(context.Background(), habit.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("habit still present after delete")
	}
	if _, err := db.GetStreakByHabit(context.Background(), user.ID, habit.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("streak still present after delete")
	}
	checkIns, err := db.ListCheckInsByHabit(context.Background(), user.ID, habit.ID)
	if err != nil {
		t.Fatalf("ListCheckInsByHabit() error = %v", err)
	}
	if len(checkIns) != 0 {
		t.Errorf("check-ins remaining = %d, want 0", len(checkIns))
	}
	snaps, err := db.ListSnapshots(context.Background(), user.ID, habit.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("snapshots remaining = %d, want 0", len(snaps))
	}
}

func TestDeleteHabit_Missing(t *testing.T) {
	db := newTestDB(t)

	if err := db.DeleteHabit(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
