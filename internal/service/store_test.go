package service

// In-memory implementation of every repository interface, shared by the
// service tests in this package. Like the real sqlite.DB, one value
// implements all the interfaces; unlike it, everything lives in maps and
// tests run in microseconds with no database setup.
//
// Methods store and return copies so a test can't accidentally mutate the
// store's internal state through a returned pointer.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

type mockStore struct {
	users      map[string]*model.User
	habits     map[string]*model.Habit
	streaks    map[string]*model.Streak // keyed by habitID
	checkIns   map[string]*model.CheckIn
	challenges map[string]*model.Challenge
	snapshots  []model.AnalyticsSnapshot
	seq        int

	// failSave simulates a storage failure inside SaveCheckInBatch.
	failSave bool
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      make(map[string]*model.User),
		habits:     make(map[string]*model.Habit),
		streaks:    make(map[string]*model.Streak),
		checkIns:   make(map[string]*model.CheckIn),
		challenges: make(map[string]*model.Challenge),
	}
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// day is shorthand for a midnight timestamp in tests.
func day(t time.Time) time.Time { return model.Day(t) }

// --- UserRepository ---

func (m *mockStore) CreateUser(_ context.Context, user *model.User) error {
	user.ID = m.nextID("user")
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockStore) UpsertUserByGitHubID(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.GitHubID == user.GitHubID {
			u.Username = user.Username
			u.Email = user.Email
			u.AvatarURL = user.AvatarURL
			*user = *u
			return nil
		}
	}
	user.ID = m.nextID("user")
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockStore) UpdateUser(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// --- HabitRepository ---

func (m *mockStore) CreateHabit(_ context.Context, habit *model.Habit) error {
	habit.ID = m.nextID("habit")
	habit.CreatedAt = time.Now()
	habit.UpdatedAt = habit.CreatedAt
	stored := *habit
	m.habits[habit.ID] = &stored
	return nil
}

func (m *mockStore) GetHabitByID(_ context.Context, id string) (*model.Habit, error) {
	h, ok := m.habits[id]
	if !ok {
		return nil, apperror.NotFound("habit", id)
	}
	result := *h
	return &result, nil
}

func (m *mockStore) ListHabitsByUser(_ context.Context, userID string) ([]model.Habit, error) {
	result := make([]model.Habit, 0)
	for _, h := range m.habits {
		if h.UserID == userID {
			result = append(result, *h)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Priority > result[j].Priority })
	return result, nil
}

func (m *mockStore) ListHabitsByCategory(ctx context.Context, userID, category string) ([]model.Habit, error) {
	all, _ := m.ListHabitsByUser(ctx, userID)
	result := make([]model.Habit, 0)
	for _, h := range all {
		if h.Category == category {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *mockStore) ListActiveHabits(_ context.Context) ([]model.Habit, error) {
	result := make([]model.Habit, 0)
	for _, h := range m.habits {
		if h.IsActive {
			result = append(result, *h)
		}
	}
	return result, nil
}

func (m *mockStore) UpdateHabit(_ context.Context, habit *model.Habit) error {
	if _, ok := m.habits[habit.ID]; !ok {
		return apperror.NotFound("habit", habit.ID)
	}
	stored := *habit
	m.habits[habit.ID] = &stored
	return nil
}

func (m *mockStore) DeleteHabit(_ context.Context, id string) error {
	if _, ok := m.habits[id]; !ok {
		return apperror.NotFound("habit", id)
	}
	delete(m.habits, id)
	delete(m.streaks, id)
	for cid, c := range m.checkIns {
		if c.HabitID == id {
			delete(m.checkIns, cid)
		}
	}
	return nil
}

// --- StreakRepository ---

func (m *mockStore) CreateStreak(_ context.Context, streak *model.Streak) error {
	streak.ID = m.nextID("streak")
	stored := *streak
	m.streaks[streak.HabitID] = &stored
	return nil
}

func (m *mockStore) GetStreakByHabit(_ context.Context, userID, habitID string) (*model.Streak, error) {
	s, ok := m.streaks[habitID]
	if !ok || s.UserID != userID {
		return nil, apperror.NotFound("streak", habitID)
	}
	result := *s
	return &result, nil
}

func (m *mockStore) ListStreaksByUser(_ context.Context, userID string) ([]model.Streak, error) {
	result := make([]model.Streak, 0)
	for _, s := range m.streaks {
		if s.UserID == userID {
			result = append(result, *s)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CurrentStreak > result[j].CurrentStreak })
	return result, nil
}

func (m *mockStore) UpdateStreak(_ context.Context, streak *model.Streak) error {
	if _, ok := m.streaks[streak.HabitID]; !ok {
		return apperror.NotFound("streak", streak.HabitID)
	}
	stored := *streak
	m.streaks[streak.HabitID] = &stored
	return nil
}

// --- CheckInRepository ---

func (m *mockStore) GetCheckInByID(_ context.Context, id string) (*model.CheckIn, error) {
	c, ok := m.checkIns[id]
	if !ok {
		return nil, apperror.NotFound("check-in", id)
	}
	result := *c
	return &result, nil
}

func (m *mockStore) GetCheckInByDay(_ context.Context, userID, habitID string, d time.Time) (*model.CheckIn, error) {
	for _, c := range m.checkIns {
		if c.UserID == userID && c.HabitID == habitID && c.Date.Equal(day(d)) {
			result := *c
			return &result, nil
		}
	}
	return nil, apperror.NotFound("check-in", habitID)
}

func (m *mockStore) ListCheckInsByHabit(_ context.Context, userID, habitID string) ([]model.CheckIn, error) {
	result := make([]model.CheckIn, 0)
	for _, c := range m.checkIns {
		if c.UserID == userID && c.HabitID == habitID {
			result = append(result, *c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (m *mockStore) ListCheckInsByHabitSince(_ context.Context, userID, habitID string, since time.Time) ([]model.CheckIn, error) {
	result := make([]model.CheckIn, 0)
	for _, c := range m.checkIns {
		if c.UserID == userID && c.HabitID == habitID && !c.Date.Before(since) {
			result = append(result, *c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockStore) ListCheckInsByRange(_ context.Context, userID string, from, to time.Time) ([]model.CheckIn, error) {
	result := make([]model.CheckIn, 0)
	for _, c := range m.checkIns {
		if c.UserID == userID && !c.Date.Before(from) && !c.Date.After(to) {
			result = append(result, *c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (m *mockStore) CountCompletedOnDay(_ context.Context, userID string, d time.Time) (int, error) {
	n := 0
	for _, c := range m.checkIns {
		if c.UserID == userID && c.Completed && c.Date.Equal(day(d)) {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) CountCompletedByHabit(_ context.Context, userID, habitID string) (int, error) {
	n := 0
	for _, c := range m.checkIns {
		if c.UserID == userID && c.HabitID == habitID && c.Completed {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) UpdateCheckIn(_ context.Context, checkIn *model.CheckIn) error {
	if _, ok := m.checkIns[checkIn.ID]; !ok {
		return apperror.NotFound("check-in", checkIn.ID)
	}
	stored := *checkIn
	m.checkIns[checkIn.ID] = &stored
	return nil
}

func (m *mockStore) DeleteCheckIn(_ context.Context, id string) error {
	if _, ok := m.checkIns[id]; !ok {
		return apperror.NotFound("check-in", id)
	}
	delete(m.checkIns, id)
	return nil
}

func (m *mockStore) SaveCheckInBatch(_ context.Context, batch *repository.CheckInBatch) error {
	if m.failSave {
		return apperror.Unavailable("check-in batch")
	}

	c := batch.CheckIn
	if c.ID == "" {
		// New record unless the natural key already has one.
		for _, existing := range m.checkIns {
			if existing.UserID == c.UserID && existing.HabitID == c.HabitID && existing.Date.Equal(c.Date) {
				c.ID = existing.ID
				break
			}
		}
	}
	if c.ID == "" {
		c.ID = m.nextID("checkin")
		c.CreatedAt = time.Now()
	}
	storedC := *c
	m.checkIns[c.ID] = &storedC

	if batch.Streak != nil {
		storedS := *batch.Streak
		m.streaks[storedS.HabitID] = &storedS
	}
	storedH := *batch.Habit
	m.habits[storedH.ID] = &storedH
	storedU := *batch.User
	m.users[storedU.ID] = &storedU
	return nil
}

// --- ChallengeRepository ---

func (m *mockStore) CreateChallenge(_ context.Context, challenge *model.Challenge) error {
	challenge.ID = m.nextID("challenge")
	challenge.CreatedAt = time.Now()
	stored := *challenge
	stored.Participants = append([]model.Participant(nil), challenge.Participants...)
	m.challenges[challenge.ID] = &stored
	return nil
}

func (m *mockStore) GetChallengeByID(_ context.Context, id string) (*model.Challenge, error) {
	c, ok := m.challenges[id]
	if !ok {
		return nil, apperror.NotFound("challenge", id)
	}
	result := *c
	result.Participants = append([]model.Participant(nil), c.Participants...)
	return &result, nil
}

func (m *mockStore) ListActiveChallenges(_ context.Context) ([]model.Challenge, error) {
	result := make([]model.Challenge, 0)
	for _, c := range m.challenges {
		if c.IsActive {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockStore) ListChallengesByParticipant(_ context.Context, userID string) ([]model.Challenge, error) {
	result := make([]model.Challenge, 0)
	for _, c := range m.challenges {
		for _, p := range c.Participants {
			if p.UserID == userID {
				result = append(result, *c)
				break
			}
		}
	}
	return result, nil
}

func (m *mockStore) AddParticipant(_ context.Context, challengeID string, p *model.Participant) error {
	c, ok := m.challenges[challengeID]
	if !ok {
		return apperror.NotFound("challenge", challengeID)
	}
	c.Participants = append(c.Participants, *p)
	return nil
}

func (m *mockStore) UpdateParticipants(_ context.Context, challengeID string, ps []model.Participant) error {
	c, ok := m.challenges[challengeID]
	if !ok {
		return apperror.NotFound("challenge", challengeID)
	}
	c.Participants = append([]model.Participant(nil), ps...)
	return nil
}

func (m *mockStore) SetChallengeActive(_ context.Context, challengeID string, active bool) error {
	c, ok := m.challenges[challengeID]
	if !ok {
		return apperror.NotFound("challenge", challengeID)
	}
	c.IsActive = active
	return nil
}

// --- AnalyticsRepository ---

func (m *mockStore) SaveSnapshot(_ context.Context, snap *model.AnalyticsSnapshot) error {
	for i := range m.snapshots {
		s := &m.snapshots[i]
		if s.UserID == snap.UserID && s.HabitID == snap.HabitID && s.Date.Equal(snap.Date) {
			*s = *snap
			s.ID = m.snapshots[i].ID
			return nil
		}
	}
	snap.ID = m.nextID("snap")
	m.snapshots = append(m.snapshots, *snap)
	return nil
}

func (m *mockStore) ListSnapshots(_ context.Context, userID, habitID string, opts repository.ListOptions) ([]model.AnalyticsSnapshot, error) {
	result := make([]model.AnalyticsSnapshot, 0)
	for _, s := range m.snapshots {
		if s.UserID == userID && s.HabitID == habitID {
			result = append(result, s)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

// --- shared fixtures ---

// seedUser inserts a user directly into the store.
func seedUser(t *testing.T, store *mockStore) *model.User {
	t.Helper()
	user := &model.User{Username: "alice", Email: "alice@example.com", Level: 1}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

// seedHabit inserts an active habit with its streak record.
func seedHabit(t *testing.T, store *mockStore, userID, name string) *model.Habit {
	t.Helper()
	habit := &model.Habit{
		UserID:    userID,
		Name:      name,
		Category:  model.CategoryFitness,
		Frequency: model.FrequencyDaily,
		Priority:  3,
		IsActive:  true,
	}
	if err := store.CreateHabit(context.Background(), habit); err != nil {
		t.Fatalf("seeding habit: %v", err)
	}
	streak := &model.Streak{HabitID: habit.ID, UserID: userID}
	if err := store.CreateStreak(context.Background(), streak); err != nil {
		t.Fatalf("seeding streak: %v", err)
	}
	return habit
}
