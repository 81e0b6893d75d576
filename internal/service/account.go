package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/auth"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// RegisterInput carries the fields for email/password registration.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult pairs the signed-in user with a fresh access token.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// AccountService handles registration, login, and OAuth sign-in.
type AccountService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates a password account and returns a signed-in session.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "invalid email address")
	}
	if len(in.Password) < 6 {
		return nil, apperror.ValidationFailed("password", "password must be at least 6 characters")
	}

	// Friendlier duplicate messages than what a raw UNIQUE violation yields.
	// The index still catches the race where two registrations interleave.
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("user", "email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("user", "username already taken")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking username: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 characters or fewer")
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		TotalPoints:  0,
		Level:        model.LevelForPoints(0),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", username),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies email/password credentials and returns a session.
// Wrong email and wrong password produce the same error so the endpoint
// can't be used to probe which emails are registered.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user.PasswordHash == "" {
		// OAuth-only account; there is no password to check.
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// Me returns the authenticated user's profile.
func (s *AccountService) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// SignInWithGitHub upserts a user keyed by their GitHub ID and returns a
// session. Repeat logins refresh the profile fields but keep the internal
// ID and accumulated points.
func (s *AccountService) SignInWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	user := &model.User{
		GitHubID:  gh.ID,
		Username:  gh.Login,
		Email:     gh.Email,
		AvatarURL: gh.AvatarURL,
		Level:     model.LevelForPoints(0),
	}
	if err := s.users.UpsertUserByGitHubID(ctx, user); err != nil {
		return nil, fmt.Errorf("upserting OAuth user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in via GitHub",
		slog.String("userID", user.ID),
		slog.Int64("githubID", gh.ID),
	)
	return &AuthResult{User: user, Token: token}, nil
}
