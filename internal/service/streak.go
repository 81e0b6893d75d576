package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// StreakLeader is one row of the longest-streak leaderboard.
type StreakLeader struct {
	Rank          int    `json:"rank"`
	HabitID       string `json:"habitId"`
	HabitName     string `json:"habitName"`
	LongestStreak int    `json:"longestStreak"`
	CurrentStreak int    `json:"currentStreak"`
}

// StreakSummary aggregates the user's streaks for the stats endpoint.
// AverageStreak is formatted with one decimal like the completion rates.
type StreakSummary struct {
	TotalHabits   int    `json:"totalHabits"`
	ActiveStreaks int    `json:"activeStreaks"`
	MaxStreak     int    `json:"maxStreak"`
	AverageStreak string `json:"averageStreak"`
}

// StreakService exposes read-only views over streak records. All mutation
// happens through the check-in service.
type StreakService struct {
	streaks repository.StreakRepository
	habits  repository.HabitRepository
}

func NewStreakService(streaks repository.StreakRepository, habits repository.HabitRepository) *StreakService {
	return &StreakService{streaks: streaks, habits: habits}
}

// List returns all of the user's streaks, highest current streak first.
func (s *StreakService) List(ctx context.Context, userID string) ([]model.Streak, error) {
	streaks, err := s.streaks.ListStreaksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing streaks: %w", err)
	}
	return streaks, nil
}

// Get returns the streak for one habit, with the usual ownership check.
func (s *StreakService) Get(ctx context.Context, userID, habitID string) (*model.Streak, error) {
	habit, err := s.habits.GetHabitByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, apperror.NotFound("habit", habitID)
	}
	return s.streaks.GetStreakByHabit(ctx, userID, habitID)
}

// Leaderboard ranks the user's habits by longest streak, top 10.
func (s *StreakService) Leaderboard(ctx context.Context, userID string) ([]StreakLeader, error) {
	streaks, err := s.streaks.ListStreaksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing streaks: %w", err)
	}
	habits, err := s.habits.ListHabitsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	names := make(map[string]string, len(habits))
	for _, h := range habits {
		names[h.ID] = h.Name
	}

	sort.SliceStable(streaks, func(i, j int) bool {
		return streaks[i].LongestStreak > streaks[j].LongestStreak
	})
	if len(streaks) > 10 {
		streaks = streaks[:10]
	}

	leaders := make([]StreakLeader, 0, len(streaks))
	for i, st := range streaks {
		leaders = append(leaders, StreakLeader{
			Rank:          i + 1,
			HabitID:       st.HabitID,
			HabitName:     names[st.HabitID],
			LongestStreak: st.LongestStreak,
			CurrentStreak: st.CurrentStreak,
		})
	}
	return leaders, nil
}

// Active returns only the streaks currently running (current > 0).
func (s *StreakService) Active(ctx context.Context, userID string) ([]model.Streak, error) {
	streaks, err := s.streaks.ListStreaksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing streaks: %w", err)
	}
	active := make([]model.Streak, 0, len(streaks))
	for _, st := range streaks {
		if st.CurrentStreak > 0 {
			active = append(active, st)
		}
	}
	return active, nil
}

// Summary computes the stats block for the user's streaks page.
func (s *StreakService) Summary(ctx context.Context, userID string) (*StreakSummary, error) {
	streaks, err := s.streaks.ListStreaksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing streaks: %w", err)
	}

	summary := &StreakSummary{TotalHabits: len(streaks)}
	sum := 0
	for _, st := range streaks {
		sum += st.CurrentStreak
		if st.CurrentStreak > 0 {
			summary.ActiveStreaks++
		}
		if st.LongestStreak > summary.MaxStreak {
			summary.MaxStreak = st.LongestStreak
		}
	}

	avg := 0.0
	if len(streaks) > 0 {
		avg = float64(sum) / float64(len(streaks))
	}
	summary.AverageStreak = formatRate(avg)
	return summary, nil
}
