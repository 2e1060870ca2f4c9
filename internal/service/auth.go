package service

// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//	                   ↘ RevocationStore (logout)
//
// KEY RESPONSIBILITIES:
//   - Password registration and login, with default gestures seeded for
//     every new account
//   - The GitHub OAuth callback: upsert the user, issue a token
//   - Logout: remember the token id until the token would have expired
//
// Handlers never see a password hash or a bcrypt error; every failure that
// reaches them is an *apperror.AppError.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/auth"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 50
)

// invalidCredentials is the single message for unknown users and wrong
// passwords alike.
const invalidCredentials = "invalid credentials"

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - revoked    repository.RevocationStore → logged-out token ids
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	revoked   repository.RevocationStore
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	revoked repository.RevocationStore,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		revoked:   revoked,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// respond (and set the cookie) in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// RegisterInput is a password sign-up. Every field is required.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginInput is a username/password login.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a password account and seeds its default gestures.
// A taken username or email is a Conflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	user, err := validateRegistration(in)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		// only the 72-byte bcrypt limit gets here with valid input
		return nil, apperror.ValidationFailed("password", "password is too long")
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user, model.DefaultGestures()); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage("username or email already registered")
		}
		s.logger.Error("failed to create user",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Wrap("creating user", err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func validateRegistration(in RegisterInput) (*model.User, error) {
	user := &model.User{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Name:     strings.TrimSpace(in.Name),
	}

	switch {
	case user.Username == "":
		return nil, apperror.ValidationFailed("username", "username is required")
	case utf8.RuneCountInString(user.Username) > MaxUsernameLength:
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	case user.Email == "":
		return nil, apperror.ValidationFailed("email", "email is required")
	case user.Name == "":
		return nil, apperror.ValidationFailed("name", "name is required")
	case len(in.Password) < MinPasswordLength:
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, apperror.ValidationFailed("email", "email is not a valid address")
	}
	return user, nil
}

// Login checks a username and password and issues a token. Unknown users
// and wrong passwords produce the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("", "username and password required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		s.logger.Error("failed to load user", slog.String("username", username), slog.String("error", err.Error()))
		return nil, apperror.Wrap("loading user", err)
	}

	// OAuth-only accounts have no password and cannot log in this way.
	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized(invalidCredentials)
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("password verification failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// Logout revokes the token described by claims until it expires. Revoking
// an already-expired token is a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.TokenID == "" {
		return apperror.Unauthorized("no active session")
	}
	if !claims.ExpiresAt.After(time.Now()) {
		return nil
	}

	if err := s.revoked.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		s.logger.Error("failed to revoke token",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		return apperror.Wrap("revoking token", err)
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the GitHub code for a GitHubUser profile, this
// method:
//
//  1. Upserts the user on github_id (create on first login, refresh the
//     email/avatar on later ones)
//  2. Generates a JWT access token for the account
//  3. Returns both so the handler can set the HttpOnly cookie and redirect
//
// It does NOT set cookies or read HTTP requests; those are handler concerns.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	githubID := ghUser.ID
	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}
	user := &model.User{
		Username:  ghUser.Login,
		Email:     ghUser.Email,
		Name:      name,
		GitHubID:  &githubID,
		AvatarURL: ghUser.AvatarURL,
	}

	if err := s.users.UpsertGitHub(ctx, user, model.DefaultGestures()); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage("username already taken by another account")
		}
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("user_id", user.ID),
		slog.String("login", user.Username),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID. Used by /api/auth/me
// after the middleware has validated the token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("no active session")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.Wrap("fetching user", err)
	}
	return user, nil
}

// ValidateToken validates a JWT string and returns its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return claims, nil
}
