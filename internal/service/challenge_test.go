package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
)

func newTestChallengeService(store *mockStore) *ChallengeService {
	svc := NewChallengeService(store, store, store, testLogger())
	svc.now = func() time.Time { return baseDay }
	return svc
}

func seedSecondUser(t *testing.T, store *mockStore) *model.User {
	t.Helper()
	user := &model.User{Username: "bob", Email: "bob@example.com", Level: 1}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func TestChallengeCreate_CreatorAutoJoins(t *testing.T) {
	store := newMockStore()
	creator := seedUser(t, store)
	svc := newTestChallengeService(store)

	challenge, err := svc.Create(context.Background(), creator.ID, CreateChallengeInput{
		Name:     "30-day running",
		Duration: 30,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(challenge.Participants) != 1 || challenge.Participants[0].UserID != creator.ID {
		t.Errorf("creator not auto-joined: %+v", challenge.Participants)
	}
	if !challenge.IsActive {
		t.Error("new challenge should be active")
	}
	wantEnd := baseDay.AddDate(0, 0, 30)
	if !challenge.EndDate.Equal(wantEnd) {
		t.Errorf("EndDate = %v, want start + 30 days", challenge.EndDate)
	}
	if challenge.Frequency != model.ChallengeDaily {
		t.Errorf("Frequency = %q, want default daily", challenge.Frequency)
	}
}

func TestChallengeCreate_Validation(t *testing.T) {
	store := newMockStore()
	creator := seedUser(t, store)
	svc := newTestChallengeService(store)

	if _, err := svc.Create(context.Background(), creator.ID, CreateChallengeInput{Duration: 7}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("missing name: error = %v, want ErrValidation", err)
	}
	if _, err := svc.Create(context.Background(), creator.ID, CreateChallengeInput{Name: "x"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("zero duration: error = %v, want ErrValidation", err)
	}
}

func TestChallengeJoin_DuplicateIsConflict(t *testing.T) {
	store := newMockStore()
	creator := seedUser(t, store)
	joiner := seedSecondUser(t, store)
	svc := newTestChallengeService(store)

	challenge, err := svc.Create(context.Background(), creator.ID, CreateChallengeInput{Name: "c", Duration: 7})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Join(context.Background(), joiner.ID, challenge.ID); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if _, err := svc.Join(context.Background(), joiner.ID, challenge.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second join: error = %v, want ErrConflict", err)
	}
	// The creator is a participant too.
	if _, err := svc.Join(context.Background(), creator.ID, challenge.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("creator join: error = %v, want ErrConflict", err)
	}
}

func TestChallengeUpdateScores_CreatorOnly(t *testing.T) {
	store := newMockStore()
	creator := seedUser(t, store)
	joiner := seedSecondUser(t, store)
	svc := newTestChallengeService(store)

	challenge, err := svc.Create(context.Background(), creator.ID, CreateChallengeInput{Name: "c", Duration: 7})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Join(context.Background(), joiner.ID, challenge.ID); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if _, err := svc.UpdateScores(context.Background(), joiner.ID, challenge.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-creator: error = %v, want ErrForbidden", err)
	}

	// The joiner completed two habits today.
	habitA := seedHabit(t, store, joiner.ID, "a")
	habitB := seedHabit(t, store, joiner.ID, "b")
	seedCheckIn(t, store, joiner.ID, habitA.ID, baseDay, 1)
	seedCheckIn(t, store, joiner.ID, habitB.ID, baseDay, 1)

	updated, err := svc.UpdateScores(context.Background(), creator.ID, challenge.ID)
	if err != nil {
		t.Fatalf("UpdateScores() error = %v", err)
	}

	var joinerEntry *model.Participant
	for i := range updated.Participants {
		if updated.Participants[i].UserID == joiner.ID {
			joinerEntry = &updated.Participants[i]
		}
	}
	if joinerEntry == nil {
		t.Fatal("joiner missing from participants")
	}
	if joinerEntry.Completions != 2 {
		t.Errorf("Completions = %d, want 2", joinerEntry.Completions)
	}
	if joinerEntry.Score != 20 {
		t.Errorf("Score = %d, want 20", joinerEntry.Score)
	}
}

func TestChallengeLeaderboard_SortedByScore(t *testing.T) {
	store := newMockStore()
	creator := seedUser(t, store)
	joiner := seedSecondUser(t, store)
	svc := newTestChallengeService(store)

	challenge, err := svc.Create(context.Background(), creator.ID, CreateChallengeInput{Name: "c", Duration: 7})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Join(context.Background(), joiner.ID, challenge.ID); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	stored := store.challenges[challenge.ID]
	for i := range stored.Participants {
		if stored.Participants[i].UserID == joiner.ID {
			stored.Participants[i].Completions = 5
			stored.Participants[i].Score = 50
		}
	}

	entries, err := svc.Leaderboard(context.Background(), challenge.ID)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].UserID != joiner.ID || entries[0].Rank != 1 {
		t.Errorf("entries[0] = {%s, rank %d}, want joiner at rank 1", entries[0].UserID, entries[0].Rank)
	}
}

func TestChallengeEnd_CreatorOnly(t *testing.T) {
	store := newMockStore()
	creator := seedUser(t, store)
	other := seedSecondUser(t, store)
	svc := newTestChallengeService(store)

	challenge, err := svc.Create(context.Background(), creator.ID, CreateChallengeInput{Name: "c", Duration: 7})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.End(context.Background(), other.ID, challenge.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-creator end: error = %v, want ErrForbidden", err)
	}
	if err := svc.End(context.Background(), creator.ID, challenge.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	stored, _ := store.GetChallengeByID(context.Background(), challenge.ID)
	if stored.IsActive {
		t.Error("challenge still active after End()")
	}

	// Ended challenges reject new joins.
	if _, err := svc.Join(context.Background(), other.ID, challenge.ID); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("join ended: error = %v, want ErrValidation", err)
	}
}
