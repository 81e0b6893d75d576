package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
)

func newTestHabitService(store *mockStore) *HabitService {
	return NewHabitService(store, store, testLogger())
}

func TestHabitCreate_Defaults(t *testing.T) {
	store := newMockStore()
	user := seedUser(t, store)
	svc := newTestHabitService(store)

	habit, err := svc.Create(context.Background(), user.ID, CreateHabitInput{Name: "  drink water  "})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if habit.Name != "drink water" {
		t.Errorf("Name = %q, want trimmed", habit.Name)
	}
	if habit.Category != model.CategoryOther {
		t.Errorf("Category = %q, want default %q", habit.Category, model.CategoryOther)
	}
	if habit.Frequency != model.FrequencyDaily {
		t.Errorf("Frequency = %q, want default %q", habit.Frequency, model.FrequencyDaily)
	}
	if habit.Priority != 3 {
		t.Errorf("Priority = %d, want default 3", habit.Priority)
	}
	if habit.TargetCount != 1 {
		t.Errorf("TargetCount = %d, want default 1", habit.TargetCount)
	}
	if !habit.IsActive {
		t.Error("new habit should be active")
	}

	// The companion streak record exists from the start.
	if _, err := store.GetStreakByHabit(context.Background(), user.ID, habit.ID); err != nil {
		t.Errorf("streak record missing after create: %v", err)
	}
}

func TestHabitCreate_Validation(t *testing.T) {
	store := newMockStore()
	user := seedUser(t, store)
	svc := newTestHabitService(store)

	cases := []struct {
		name string
		in   CreateHabitInput
	}{
		{"empty name", CreateHabitInput{Name: "   "}},
		{"bad category", CreateHabitInput{Name: "x", Category: "gaming"}},
		{"bad frequency", CreateHabitInput{Name: "x", Frequency: "hourly"}},
		{"priority out of range", CreateHabitInput{Name: "x", Priority: 6}},
		{"bad reminder time", CreateHabitInput{Name: "x", ReminderTime: "25:99"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), user.ID, tc.in); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestHabitUpdate_Partial(t *testing.T) {
	store := newMockStore()
	user := seedUser(t, store)
	habit := seedHabit(t, store, user.ID, "run")
	svc := newTestHabitService(store)

	newName := "morning run"
	inactive := false
	updated, err := svc.Update(context.Background(), user.ID, habit.ID, UpdateHabitInput{
		Name:     &newName,
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != newName {
		t.Errorf("Name = %q, want %q", updated.Name, newName)
	}
	if updated.IsActive {
		t.Error("IsActive should be false")
	}
	// Untouched fields stay put.
	if updated.Category != habit.Category {
		t.Errorf("Category changed: %q → %q", habit.Category, updated.Category)
	}
}

func TestHabitGet_NotOwned(t *testing.T) {
	store := newMockStore()
	owner := seedUser(t, store)
	habit := seedHabit(t, store, owner.ID, "run")
	svc := newTestHabitService(store)

	_, err := svc.Get(context.Background(), "intruder", habit.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestHabitDelete_Cascades(t *testing.T) {
	store := newMockStore()
	user := seedUser(t, store)
	habit := seedHabit(t, store, user.ID, "run")
	seedCheckIn(t, store, user.ID, habit.ID, baseDay, 1)
	svc := newTestHabitService(store)

	if err := svc.Delete(context.Background(), user.ID, habit.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.GetHabitByID(context.Background(), habit.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("habit still present after delete")
	}
	if _, err := store.GetStreakByHabit(context.Background(), user.ID, habit.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("streak still present after delete")
	}
	checkIns, _ := store.ListCheckInsByHabit(context.Background(), user.ID, habit.ID)
	if len(checkIns) != 0 {
		t.Errorf("check-ins still present after delete: %d", len(checkIns))
	}
}

func TestHabitListByCategory_Validates(t *testing.T) {
	store := newMockStore()
	user := seedUser(t, store)
	svc := newTestHabitService(store)

	if _, err := svc.ListByCategory(context.Background(), user.ID, "nonsense"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestValidClockTime(t *testing.T) {
	valid := []string{"00:00", "07:30", "23:59"}
	invalid := []string{"24:00", "7:30", "12:60", "ab:cd", "12-30", ""}

	for _, v := range valid {
		if !validClockTime(v) {
			t.Errorf("validClockTime(%q) = false, want true", v)
		}
	}
	for _, v := range invalid {
		if validClockTime(v) {
			t.Errorf("validClockTime(%q) = true, want false", v)
		}
	}
}
