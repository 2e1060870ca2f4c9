package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fitplan/internal/auth"
	"github.com/sakif/fitplan/internal/service"
)

const (
	tokenCookie = "token"
	stateCookie = "oauth_state"
)

// GitHubExchanger is the part of auth.GitHubProvider the OAuth flow needs.
type GitHubExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages password sign-up and login, the GitHub OAuth flow and
// session management.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create a password account
//   - HandleLogin          → verify credentials, issue a JWT
//   - HandleLogout         → revoke the current JWT and clear the cookie
//   - HandleMe             → return the logged-in user's profile
//   - HandleGitHubLogin    → redirect the browser to GitHub
//   - HandleGitHubCallback → receive the code, log the user in, set the cookie
//
// github is nil when OAuth is not configured; the GitHub routes are then
// not mounted at all.
type AuthHandler struct {
	auth     *service.AuthService
	github   GitHubExchanger
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. tokenTTL is the cookie lifetime and
// should match the token lifetime.
func NewAuthHandler(
	authService *service.AuthService,
	github GitHubExchanger,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		github:   github,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// HandleRegister creates a password account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"username": "ada", "email": "ada@example.com", "name": "Ada", "password": "..."}
// RESPONSE: 201 with the user (never the password hash)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeRequest(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin checks a username and password and returns a bearer token.
//
// HTTP: POST /api/auth/login
// RESPONSE: {"user": {...}, "token": "eyJ..."}
//
// Unknown users and wrong passwords get the same 401.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeRequest(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleLogout revokes the caller's token and clears the cookie.
//
// HTTP: POST /api/auth/logout
//
// The token id is stored in the revocation store until the token would have
// expired, so a copied token stops working immediately rather than at expiry.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), claims); err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("HandleMe: user lookup failed", slog.String("user_id", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL. HandleGitHubCallback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Create or refresh the account and issue a JWT
//  4. Store the JWT in an HttpOnly cookie and redirect to the app
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		writeBadRequest(w, "invalid OAuth state")
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeBadRequest(w, "invalid OAuth state")
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		writeBadRequest(w, "missing OAuth code")
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "authentication_failed",
			Message: "GitHub authentication failed",
		})
		return
	}

	// --- Step 3: Log in (or sign up) ---
	res, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("github_id", ghUser.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	// --- Step 4: Issue JWT cookie ---
	// Secure should be set when served over HTTPS.
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// requireUser returns the authenticated user id, answering 401 itself when
// the request is anonymous. Only reachable without a user when a route was
// mounted outside RequireAuth.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return "", false
	}
	return userID, true
}
