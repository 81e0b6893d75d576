package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// CreateHabitInput carries the client-supplied fields for a new habit.
// Zero values get sensible defaults in Create.
type CreateHabitInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Frequency       string `json:"frequency"`
	FrequencyDays   int    `json:"frequencyDays"`
	TargetCount     int    `json:"targetCount"`
	Unit            string `json:"unit"`
	Priority        int    `json:"priority"`
	Color           string `json:"color"`
	Icon            string `json:"icon"`
	ReminderTime    string `json:"reminderTime"`
	ReminderEnabled bool   `json:"reminderEnabled"`
}

// UpdateHabitInput carries a partial habit update. Nil pointers mean
// "leave unchanged".
type UpdateHabitInput struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Category        *string `json:"category"`
	Frequency       *string `json:"frequency"`
	FrequencyDays   *int    `json:"frequencyDays"`
	TargetCount     *int    `json:"targetCount"`
	Unit            *string `json:"unit"`
	Priority        *int    `json:"priority"`
	Color           *string `json:"color"`
	Icon            *string `json:"icon"`
	IsActive        *bool   `json:"isActive"`
	ReminderTime    *string `json:"reminderTime"`
	ReminderEnabled *bool   `json:"reminderEnabled"`
}

// HabitService owns habit CRUD. Creating a habit also creates its streak
// record; deleting one cascades to check-ins, streak, and snapshots.
type HabitService struct {
	habits  repository.HabitRepository
	streaks repository.StreakRepository
	logger  *slog.Logger
}

func NewHabitService(habits repository.HabitRepository, streaks repository.StreakRepository, logger *slog.Logger) *HabitService {
	return &HabitService{habits: habits, streaks: streaks, logger: logger}
}

func (s *HabitService) Create(ctx context.Context, userID string, in CreateHabitInput) (*model.Habit, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if in.Category == "" {
		in.Category = model.CategoryOther
	}
	if !model.ValidCategory(in.Category) {
		return nil, apperror.ValidationFailed("category", "unknown category")
	}
	if in.Frequency == "" {
		in.Frequency = model.FrequencyDaily
	}
	if !model.ValidFrequency(in.Frequency) {
		return nil, apperror.ValidationFailed("frequency", "unknown frequency")
	}
	if in.Priority < 0 || in.Priority > 5 {
		return nil, apperror.ValidationFailed("priority", "priority must be between 1 and 5")
	}
	if in.Priority == 0 {
		in.Priority = 3
	}
	if in.TargetCount <= 0 {
		in.TargetCount = 1
	}
	if in.ReminderTime != "" && !validClockTime(in.ReminderTime) {
		return nil, apperror.ValidationFailed("reminderTime", "reminder time must be HH:MM")
	}

	habit := &model.Habit{
		UserID:          userID,
		Name:            name,
		Description:     in.Description,
		Category:        in.Category,
		Frequency:       in.Frequency,
		FrequencyDays:   in.FrequencyDays,
		TargetCount:     in.TargetCount,
		Unit:            in.Unit,
		Priority:        in.Priority,
		Color:           in.Color,
		Icon:            in.Icon,
		IsActive:        true,
		ReminderTime:    in.ReminderTime,
		ReminderEnabled: in.ReminderEnabled,
	}
	if err := s.habits.CreateHabit(ctx, habit); err != nil {
		return nil, fmt.Errorf("creating habit: %w", err)
	}

	// The streak record is born alongside the habit so the check-in path
	// never has to create one lazily.
	streak := &model.Streak{
		HabitID: habit.ID,
		UserID:  userID,
	}
	if err := s.streaks.CreateStreak(ctx, streak); err != nil {
		return nil, fmt.Errorf("creating streak for habit %s: %w", habit.ID, err)
	}

	s.logger.Info("habit created",
		slog.String("habitID", habit.ID),
		slog.String("userID", userID),
		slog.String("category", habit.Category),
	)
	return habit, nil
}

// Get returns one habit after verifying ownership. A habit owned by someone
// else reads as not found.
func (s *HabitService) Get(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	habit, err := s.habits.GetHabitByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, apperror.NotFound("habit", habitID)
	}
	return habit, nil
}

func (s *HabitService) List(ctx context.Context, userID string) ([]model.Habit, error) {
	habits, err := s.habits.ListHabitsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	return habits, nil
}

func (s *HabitService) ListByCategory(ctx context.Context, userID, category string) ([]model.Habit, error) {
	if !model.ValidCategory(category) {
		return nil, apperror.ValidationFailed("category", "unknown category")
	}
	habits, err := s.habits.ListHabitsByCategory(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("listing habits by category: %w", err)
	}
	return habits, nil
}

func (s *HabitService) Update(ctx context.Context, userID, habitID string, in UpdateHabitInput) (*model.Habit, error) {
	habit, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name cannot be empty")
		}
		habit.Name = name
	}
	if in.Description != nil {
		habit.Description = *in.Description
	}
	if in.Category != nil {
		if !model.ValidCategory(*in.Category) {
			return nil, apperror.ValidationFailed("category", "unknown category")
		}
		habit.Category = *in.Category
	}
	if in.Frequency != nil {
		if !model.ValidFrequency(*in.Frequency) {
			return nil, apperror.ValidationFailed("frequency", "unknown frequency")
		}
		habit.Frequency = *in.Frequency
	}
	if in.FrequencyDays != nil {
		habit.FrequencyDays = *in.FrequencyDays
	}
	if in.TargetCount != nil {
		if *in.TargetCount <= 0 {
			return nil, apperror.ValidationFailed("targetCount", "target count must be positive")
		}
		habit.TargetCount = *in.TargetCount
	}
	if in.Unit != nil {
		habit.Unit = *in.Unit
	}
	if in.Priority != nil {
		if *in.Priority < 1 || *in.Priority > 5 {
			return nil, apperror.ValidationFailed("priority", "priority must be between 1 and 5")
		}
		habit.Priority = *in.Priority
	}
	if in.Color != nil {
		habit.Color = *in.Color
	}
	if in.Icon != nil {
		habit.Icon = *in.Icon
	}
	if in.IsActive != nil {
		habit.IsActive = *in.IsActive
	}
	if in.ReminderTime != nil {
		if *in.ReminderTime != "" && !validClockTime(*in.ReminderTime) {
			return nil, apperror.ValidationFailed("reminderTime", "reminder time must be HH:MM")
		}
		habit.ReminderTime = *in.ReminderTime
	}
	if in.ReminderEnabled != nil {
		habit.ReminderEnabled = *in.ReminderEnabled
	}

	if err := s.habits.UpdateHabit(ctx, habit); err != nil {
		return nil, fmt.Errorf("updating habit: %w", err)
	}
	return habit, nil
}

// Delete removes the habit and everything hanging off it. The storage layer
// runs the cascade in one transaction.
func (s *HabitService) Delete(ctx context.Context, userID, habitID string) error {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return err
	}
	if err := s.habits.DeleteHabit(ctx, habitID); err != nil {
		return fmt.Errorf("deleting habit: %w", err)
	}
	s.logger.Info("habit deleted",
		slog.String("habitID", habitID),
		slog.String("userID", userID),
	)
	return nil
}

// Categories returns the known habit categories for client pickers.
func (s *HabitService) Categories() []string {
	return []string{
		model.CategoryHealth,
		model.CategoryFitness,
		model.CategoryLearning,
		model.CategoryProductivity,
		model.CategoryMindfulness,
		model.CategorySocial,
		model.CategoryOther,
	}
}

// validClockTime reports whether s looks like "HH:MM" in 24-hour time.
func validClockTime(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	for _, c := range []byte{s[0], s[1], s[3], s[4]} {
		if c < '0' || c > '9' {
			return false
		}
	}
	return hh < 24 && mm < 60
}
