package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// CreateChallengeInput carries the client-supplied fields for a new challenge.
type CreateChallengeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HabitID     string `json:"habitId"`
	Frequency   string `json:"frequency"`
	Duration    int    `json:"duration"` // days
	Rewards     string `json:"rewards"`
}

// pointsPerCompletion is the challenge scoring rate. It deliberately matches
// the base check-in award so a day counts the same inside and outside a
// challenge.
const pointsPerCompletion = 10

// ChallengeService manages shared competitions. Scores are pull-based:
// UpdateScores recomputes every participant's completions from their
// check-in records when the creator asks for it.
type ChallengeService struct {
	challenges repository.ChallengeRepository
	checkIns   repository.CheckInRepository
	users      repository.UserRepository
	logger     *slog.Logger

	now func() time.Time // test hook
}

func NewChallengeService(
	challenges repository.ChallengeRepository,
	checkIns repository.CheckInRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *ChallengeService {
	return &ChallengeService{
		challenges: challenges,
		checkIns:   checkIns,
		users:      users,
		logger:     logger,
		now:        time.Now,
	}
}

// Create starts a new challenge with the creator as its first participant.
// EndDate is derived from StartDate plus the duration in days.
func (s *ChallengeService) Create(ctx context.Context, creatorID string, in CreateChallengeInput) (*model.Challenge, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if in.Duration <= 0 {
		return nil, apperror.ValidationFailed("duration", "duration must be a positive number of days")
	}
	if in.Frequency == "" {
		in.Frequency = model.ChallengeDaily
	}
	switch in.Frequency {
	case model.ChallengeDaily, model.ChallengeWeekly, model.ChallengeMonthly:
	default:
		return nil, apperror.ValidationFailed("frequency", "unknown frequency")
	}

	creator, err := s.users.GetUserByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	challenge := &model.Challenge{
		Name:        name,
		Description: in.Description,
		CreatorID:   creatorID,
		HabitID:     in.HabitID,
		Frequency:   in.Frequency,
		Duration:    in.Duration,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, in.Duration),
		Rewards:     in.Rewards,
		IsActive:    true,
		Participants: []model.Participant{{
			UserID:    creatorID,
			Username:  creator.Username,
			AvatarURL: creator.AvatarURL,
			JoinedAt:  start,
		}},
	}
	if err := s.challenges.CreateChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("creating challenge: %w", err)
	}

	s.logger.Info("challenge created",
		slog.String("challengeID", challenge.ID),
		slog.String("creatorID", creatorID),
		slog.Int("duration", in.Duration),
	)
	return challenge, nil
}

func (s *ChallengeService) Get(ctx context.Context, challengeID string) (*model.Challenge, error) {
	return s.challenges.GetChallengeByID(ctx, challengeID)
}

// ListActive returns every active challenge — they are public, any user may
// browse and join.
func (s *ChallengeService) ListActive(ctx context.Context) ([]model.Challenge, error) {
	challenges, err := s.challenges.ListActiveChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing challenges: %w", err)
	}
	return challenges, nil
}

// ListMine returns the challenges the user participates in.
func (s *ChallengeService) ListMine(ctx context.Context, userID string) ([]model.Challenge, error) {
	challenges, err := s.challenges.ListChallengesByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing joined challenges: %w", err)
	}
	return challenges, nil
}

// Join adds the user to an active challenge. Joining twice is a conflict.
func (s *ChallengeService) Join(ctx context.Context, userID, challengeID string) (*model.Challenge, error) {
	challenge, err := s.challenges.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.IsActive {
		return nil, apperror.ValidationFailed("challengeId", "challenge has ended")
	}
	for _, p := range challenge.Participants {
		if p.UserID == userID {
			return nil, apperror.Conflict("challenge", "already joined this challenge")
		}
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	participant := &model.Participant{
		UserID:    userID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		JoinedAt:  s.now(),
	}
	if err := s.challenges.AddParticipant(ctx, challengeID, participant); err != nil {
		return nil, fmt.Errorf("joining challenge: %w", err)
	}

	challenge.Participants = append(challenge.Participants, *participant)
	s.logger.Info("challenge joined",
		slog.String("challengeID", challengeID),
		slog.String("userID", userID),
	)
	return challenge, nil
}

// UpdateScores recomputes every participant's score from today's completed
// check-ins. Only the creator may trigger it.
func (s *ChallengeService) UpdateScores(ctx context.Context, userID, challengeID string) (*model.Challenge, error) {
	challenge, err := s.challenges.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.CreatorID != userID {
		return nil, apperror.Forbidden("only the challenge creator can update scores")
	}

	today := model.Day(s.now())
	for i := range challenge.Participants {
		p := &challenge.Participants[i]
		completed, err := s.checkIns.CountCompletedOnDay(ctx, p.UserID, today)
		if err != nil {
			return nil, fmt.Errorf("counting completions for participant %s: %w", p.UserID, err)
		}
		p.Completions += completed
		p.Score = p.Completions * pointsPerCompletion
	}

	if err := s.challenges.UpdateParticipants(ctx, challengeID, challenge.Participants); err != nil {
		return nil, fmt.Errorf("saving scores: %w", err)
	}
	return challenge, nil
}

// Leaderboard ranks a challenge's participants by score, highest first.
func (s *ChallengeService) Leaderboard(ctx context.Context, challengeID string) ([]model.LeaderboardEntry, error) {
	challenge, err := s.challenges.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	participants := make([]model.Participant, len(challenge.Participants))
	copy(participants, challenge.Participants)
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].Score > participants[j].Score
	})

	entries := make([]model.LeaderboardEntry, 0, len(participants))
	for i, p := range participants {
		entries = append(entries, model.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.UserID,
			Username:    p.Username,
			AvatarURL:   p.AvatarURL,
			Completions: p.Completions,
			Score:       p.Score,
		})
	}
	return entries, nil
}

// End deactivates a challenge. Creator only.
func (s *ChallengeService) End(ctx context.Context, userID, challengeID string) error {
	challenge, err := s.challenges.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge.CreatorID != userID {
		return apperror.Forbidden("only the challenge creator can end it")
	}
	if err := s.challenges.SetChallengeActive(ctx, challengeID, false); err != nil {
		return fmt.Errorf("ending challenge: %w", err)
	}
	s.logger.Info("challenge ended", slog.String("challengeID", challengeID))
	return nil
}
