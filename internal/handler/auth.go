package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/auth"
	"github.com/sakif/habitflow/internal/service"
)

// AuthHandler serves registration, login, and the GitHub OAuth flow.
//
// Password endpoints return the token in the JSON body (the SPA stores it
// and sends it as a bearer header). The OAuth callback instead sets an
// HttpOnly "token" cookie, because a browser redirect has nowhere to put a
// JSON response.
type AuthHandler struct {
	accounts *service.AccountService
	github   *auth.GitHubProvider // nil when OAuth is not configured
	logger   *slog.Logger
}

func NewAuthHandler(accounts *service.AccountService, github *auth.GitHubProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, github: github, logger: logger}
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.accounts.Me(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the session cookie. Bearer tokens are stateless, so
// for SPA clients "logout" is just the client discarding its token.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin starts the OAuth flow by redirecting to GitHub.
//
// HTTP: GET /api/auth/github/login
//
// The random state value goes into a short-lived HttpOnly cookie; the
// callback checks it to make sure the flow started here and not on an
// attacker's page.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.Unavailable("github login"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow: verify state, exchange the
// code, upsert the user, set the session cookie, redirect home.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.Unavailable("github login"))
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: bad state")
		writeError(w, apperror.Unauthorized("invalid OAuth state"))
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing authorization code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: code exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("GitHub authorization failed"))
		return
	}

	result, err := h.accounts.SignInWithGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    result.Token,
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}
