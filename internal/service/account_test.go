package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/auth"
)

func newTestAccountService(t *testing.T, store *mockStore) *AccountService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-test-secret")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}
	// Minimum bcrypt cost keeps the tests fast.
	passwords := auth.NewPasswordServiceForTest(4)
	return NewAccountService(store, passwords, tokens, testLogger())
}

func TestRegister_Success(t *testing.T) {
	store := newMockStore()
	svc := newTestAccountService(t, store)

	result, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol",
		Email:    "Carol@Example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if result.Token == "" {
		t.Error("expected a token")
	}
	if result.User.Email != "carol@example.com" {
		t.Errorf("Email = %q, want lowercased", result.User.Email)
	}
	if result.User.Level != 1 {
		t.Errorf("Level = %d, want 1", result.User.Level)
	}
	if result.User.PasswordHash == "hunter22" {
		t.Error("password stored in plaintext")
	}
}

func TestRegister_Validation(t *testing.T) {
	store := newMockStore()
	svc := newTestAccountService(t, store)

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@b.com", Password: "secret1"}},
		{"bad email", RegisterInput{Username: "x", Email: "not-an-email", Password: "secret1"}},
		{"short password", RegisterInput{Username: "x", Email: "a@b.com", Password: "12345"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tc.in); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMockStore()
	svc := newTestAccountService(t, store)

	in := RegisterInput{Username: "carol", Email: "carol@example.com", Password: "hunter22"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	in.Username = "carol2"
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}

	in.Username = "carol"
	in.Email = "other@example.com"
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate username: error = %v, want ErrConflict", err)
	}
}

func TestLogin_RoundTrip(t *testing.T) {
	store := newMockStore()
	svc := newTestAccountService(t, store)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol", Email: "carol@example.com", Password: "hunter22",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(context.Background(), "carol@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	store := newMockStore()
	svc := newTestAccountService(t, store)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol", Email: "carol@example.com", Password: "hunter22",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Wrong password and unknown email must be indistinguishable.
	_, err1 := svc.Login(context.Background(), "carol@example.com", "wrong")
	_, err2 := svc.Login(context.Background(), "nobody@example.com", "hunter22")

	for _, err := range []error{err1, err2} {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("error = %v, want ErrUnauthorized", err)
		}
	}
	if err1.Error() != err2.Error() {
		t.Errorf("error messages differ: %q vs %q", err1.Error(), err2.Error())
	}
}

func TestSignInWithGitHub_UpsertPreservesPoints(t *testing.T) {
	store := newMockStore()
	svc := newTestAccountService(t, store)

	gh := &auth.GitHubUser{ID: 42, Login: "octo", Email: "octo@example.com", AvatarURL: "http://a/1.png"}

	first, err := svc.SignInWithGitHub(context.Background(), gh)
	if err != nil {
		t.Fatalf("first SignInWithGitHub() error = %v", err)
	}

	// Earn some points between logins.
	stored := store.users[first.User.ID]
	stored.TotalPoints = 120
	stored.Level = 2

	gh.AvatarURL = "http://a/2.png"
	second, err := svc.SignInWithGitHub(context.Background(), gh)
	if err != nil {
		t.Fatalf("second SignInWithGitHub() error = %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("second login created a new account: %s != %s", second.User.ID, first.User.ID)
	}
	if second.User.TotalPoints != 120 {
		t.Errorf("TotalPoints = %d, want 120 preserved", second.User.TotalPoints)
	}
	if second.User.AvatarURL != "http://a/2.png" {
		t.Errorf("AvatarURL = %q, want refreshed", second.User.AvatarURL)
	}
}
