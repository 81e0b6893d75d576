package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// DefaultRateWindowDays is the trailing window used when the client doesn't
// supply one.
const DefaultRateWindowDays = 30

// CompletionStats is the result of a completion-rate query.
// CompletionRate is a percentage formatted with one decimal ("50.0") — the
// clients render it directly, so the server owns the formatting.
type CompletionStats struct {
	Completed      int    `json:"completed"`
	Total          int    `json:"total"`
	CompletionRate string `json:"completionRate"`
}

// DaySummary is one day of a weekly breakdown.
type DaySummary struct {
	Date        string `json:"date"` // "2006-01-02"
	Day         string `json:"day"`  // "Sun".."Sat"
	Completed   bool   `json:"completed"`
	Count       int    `json:"count"`
	Completions int    `json:"completions"`
}

// MonthDay is one day of a monthly breakdown.
type MonthDay struct {
	Day       int  `json:"date"`
	Completed bool `json:"completed"`
	Count     int  `json:"count"`
}

// MonthlyStats is the result of a monthly breakdown.
type MonthlyStats struct {
	Month          int        `json:"month"` // 1-12
	Year           int        `json:"year"`
	TotalDays      int        `json:"totalDays"`
	Completed      int        `json:"completed"`
	CompletionRate string     `json:"completionRate"`
	DailyBreakdown []MonthDay `json:"dailyBreakdown"`
}

// HabitSummary is one habit's row on the dashboard.
type HabitSummary struct {
	HabitID          string `json:"habitId"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	CurrentStreak    int    `json:"currentStreak"`
	LongestStreak    int    `json:"longestStreak"`
	TotalCompletions int    `json:"totalCompletions"`
	CompletionRate   string `json:"completionRate"`
	IsCompleteToday  bool   `json:"isCompleteToday"`
}

// HabitPerformance is one habit's row in the best/worst ranking.
type HabitPerformance struct {
	HabitID        string `json:"habitId"`
	Name           string `json:"name"`
	CompletionRate string `json:"completionRate"`
	Streak         int    `json:"streak"`

	rate float64 // unexported sort key, pre-formatting
}

// PerformanceInsights ranks the user's habits by completion ratio.
type PerformanceInsights struct {
	BestHabits  []HabitPerformance `json:"bestHabits"`
	WorstHabits []HabitPerformance `json:"worstHabits"`
}

// AnalyticsService derives read-only reports from historical check-in
// records. It writes nothing back except the daily snapshots produced by
// SnapshotAll (the cron job's entry point).
type AnalyticsService struct {
	checkIns  repository.CheckInRepository
	habits    repository.HabitRepository
	snapshots repository.AnalyticsRepository
	logger    *slog.Logger

	now func() time.Time // test hook
}

func NewAnalyticsService(
	checkIns repository.CheckInRepository,
	habits repository.HabitRepository,
	snapshots repository.AnalyticsRepository,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		checkIns:  checkIns,
		habits:    habits,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// formatRate renders a percentage with one decimal, e.g. 50.0 → "50.0".
func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64)
}

// CompletionRate counts completed check-ins in the trailing windowDays and
// expresses them as a percentage of the window.
//
// The rate is deliberately NOT clamped to 100: the one-record-per-day
// invariant should make that impossible, so a rate above 100 is a data
// problem worth seeing rather than hiding.
func (s *AnalyticsService) CompletionRate(ctx context.Context, userID, habitID string, windowDays int) (*CompletionStats, error) {
	if windowDays <= 0 {
		windowDays = DefaultRateWindowDays
	}

	since := model.Day(s.now().AddDate(0, 0, -windowDays))
	checkIns, err := s.checkIns.ListCheckInsByHabitSince(ctx, userID, habitID, since)
	if err != nil {
		return nil, fmt.Errorf("loading check-ins: %w", err)
	}

	completed := 0
	for _, c := range checkIns {
		if c.Completed {
			completed++
		}
	}

	rate := float64(completed) / float64(windowDays) * 100
	return &CompletionStats{
		Completed:      completed,
		Total:          windowDays,
		CompletionRate: formatRate(rate),
	}, nil
}

// WeeklyBreakdown summarizes the last 7 days, one entry per day, oldest
// first. Every day appears whether or not any check-in exists for it.
//
// Check-ins are matched to their bucket by comparing the normalized
// calendar date, not by a range sub-query per day.
func (s *AnalyticsService) WeeklyBreakdown(ctx context.Context, userID, habitID string) ([]DaySummary, error) {
	start := model.Day(s.now().AddDate(0, 0, -7))

	checkIns, err := s.checkIns.ListCheckInsByHabitSince(ctx, userID, habitID, start)
	if err != nil {
		return nil, fmt.Errorf("loading check-ins: %w", err)
	}

	week := make([]DaySummary, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)

		summary := DaySummary{
			Date: day.Format("2006-01-02"),
			Day:  day.Weekday().String()[:3],
		}
		for _, c := range checkIns {
			if !c.Date.Equal(day) {
				continue
			}
			summary.Count++
			if c.Completed {
				summary.Completed = true
				summary.Completions++
			}
		}
		week = append(week, summary)
	}

	return week, nil
}

// MonthlyBreakdown summarizes one calendar month (1-12). Zero month or year
// means the current one.
func (s *AnalyticsService) MonthlyBreakdown(ctx context.Context, userID, habitID string, month, year int) (*MonthlyStats, error) {
	now := s.now()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return nil, apperror.ValidationFailed("month", "month must be between 1 and 12")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	// Day 0 of the next month is the last day of this one.
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, now.Location())
	totalDays := last.Day()

	checkIns, err := s.checkIns.ListCheckInsByHabitSince(ctx, userID, habitID, first)
	if err != nil {
		return nil, fmt.Errorf("loading check-ins: %w", err)
	}

	completed := 0
	perDay := make(map[int]*MonthDay, totalDays)
	for _, c := range checkIns {
		if c.Date.After(last) {
			continue
		}
		d := perDay[c.Date.Day()]
		if d == nil {
			d = &MonthDay{}
			perDay[c.Date.Day()] = d
		}
		if c.Completed {
			completed++
			d.Completed = true
			d.Count++
		}
	}

	breakdown := make([]MonthDay, 0, totalDays)
	for i := 1; i <= totalDays; i++ {
		entry := MonthDay{Day: i}
		if d := perDay[i]; d != nil {
			entry.Completed = d.Completed
			entry.Count = d.Count
		}
		breakdown = append(breakdown, entry)
	}

	rate := float64(completed) / float64(totalDays) * 100
	return &MonthlyStats{
		Month:          month,
		Year:           year,
		TotalDays:      totalDays,
		Completed:      completed,
		CompletionRate: formatRate(rate),
		DailyBreakdown: breakdown,
	}, nil
}

// DashboardSummary produces one row per active habit: the cached aggregates
// plus a trailing-30-day completion rate and a done-today flag.
func (s *AnalyticsService) DashboardSummary(ctx context.Context, userID string) ([]HabitSummary, error) {
	habits, err := s.habits.ListHabitsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading habits: %w", err)
	}

	today := model.Day(s.now())
	todayCheckIns, err := s.checkIns.ListCheckInsByRange(ctx, userID, today, today)
	if err != nil {
		return nil, fmt.Errorf("loading today's check-ins: %w", err)
	}
	completedToday := make(map[string]bool, len(todayCheckIns))
	for _, c := range todayCheckIns {
		if c.Completed {
			completedToday[c.HabitID] = true
		}
	}

	summaries := make([]HabitSummary, 0, len(habits))
	for _, h := range habits {
		if !h.IsActive {
			continue
		}

		stats, err := s.CompletionRate(ctx, userID, h.ID, DefaultRateWindowDays)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, HabitSummary{
			HabitID:          h.ID,
			Name:             h.Name,
			Category:         h.Category,
			CurrentStreak:    h.CurrentStreak,
			LongestStreak:    h.LongestStreak,
			TotalCompletions: h.TotalCompletions,
			CompletionRate:   stats.CompletionRate,
			IsCompleteToday:  completedToday[h.ID],
		})
	}

	return summaries, nil
}

// PerformanceInsights ranks habits by the ratio of all-time completed
// check-ins to the habit's totalCompletions counter, best five and worst
// five (worst-first).
//
// For a habit whose counter stays in sync with its check-ins this ratio sits
// at 1.0, so in practice it surfaces habits whose counter has drifted from
// the underlying records as much as genuinely under-performed ones.
func (s *AnalyticsService) PerformanceInsights(ctx context.Context, userID string) (*PerformanceInsights, error) {
	habits, err := s.habits.ListHabitsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading habits: %w", err)
	}

	perf := make([]HabitPerformance, 0, len(habits))
	for _, h := range habits {
		completed, err := s.checkIns.CountCompletedByHabit(ctx, userID, h.ID)
		if err != nil {
			return nil, fmt.Errorf("counting completions for habit %s: %w", h.ID, err)
		}

		rate := float64(completed) / float64(max(h.TotalCompletions, 1))
		perf = append(perf, HabitPerformance{
			HabitID:        h.ID,
			Name:           h.Name,
			CompletionRate: formatRate(rate * 100),
			Streak:         h.CurrentStreak,
			rate:           rate,
		})
	}

	sort.SliceStable(perf, func(i, j int) bool { return perf[i].rate > perf[j].rate })

	best := perf
	if len(best) > 5 {
		best = best[:5]
	}

	// Worst five, worst first.
	worst := make([]HabitPerformance, 0, 5)
	start := max(len(perf)-5, 0)
	for i := len(perf) - 1; i >= start; i-- {
		worst = append(worst, perf[i])
	}

	return &PerformanceInsights{BestHabits: best, WorstHabits: worst}, nil
}

// History returns the stored daily snapshots for one habit, newest first.
func (s *AnalyticsService) History(ctx context.Context, userID, habitID string, limit int) ([]model.AnalyticsSnapshot, error) {
	snaps, err := s.snapshots.ListSnapshots(ctx, userID, habitID, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}
	return snaps, nil
}

// SnapshotAll computes and stores today's analytics snapshot for every
// active habit. The nightly cron job calls this; re-running it for the same
// day overwrites rather than duplicates.
func (s *AnalyticsService) SnapshotAll(ctx context.Context) error {
	habits, err := s.habits.ListActiveHabits(ctx)
	if err != nil {
		return fmt.Errorf("loading active habits: %w", err)
	}

	today := model.Day(s.now())
	var failed int
	for _, h := range habits {
		if err := s.snapshotHabit(ctx, &h, today); err != nil {
			failed++
			s.logger.Error("snapshot failed",
				slog.String("habitID", h.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("analytics snapshots written",
		slog.Int("habits", len(habits)),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("snapshotting: %d of %d habits failed", failed, len(habits))
	}
	return nil
}

func (s *AnalyticsService) snapshotHabit(ctx context.Context, habit *model.Habit, today time.Time) error {
	since := today.AddDate(0, 0, -DefaultRateWindowDays)
	checkIns, err := s.checkIns.ListCheckInsByHabitSince(ctx, habit.UserID, habit.ID, since)
	if err != nil {
		return err
	}

	weekStart := today.AddDate(0, 0, -7)
	var (
		completed   int
		weekly      int
		streakSum   int
		byWeekday   [7]int
		bestWeekday time.Weekday
	)
	for _, c := range checkIns {
		if !c.Completed {
			continue
		}
		completed++
		streakSum += c.Streak
		byWeekday[c.Date.Weekday()]++
		if !c.Date.Before(weekStart) {
			weekly++
		}
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if byWeekday[wd] > byWeekday[bestWeekday] {
			bestWeekday = wd
		}
	}

	snap := &model.AnalyticsSnapshot{
		UserID:             habit.UserID,
		HabitID:            habit.ID,
		Date:               today,
		CompletionRate:     float64(completed) / float64(DefaultRateWindowDays) * 100,
		WeeklyCompletions:  weekly,
		MonthlyCompletions: completed,
		BestDay:            bestWeekday.String(),
	}
	if completed > 0 {
		snap.AverageStreak = float64(streakSum) / float64(completed)
	}

	return s.snapshots.SaveSnapshot(ctx, snap)
}
