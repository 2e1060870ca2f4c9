// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Users sign up either with a username and password or through GitHub OAuth.
// OAuth accounts have an empty PasswordHash and a non-nil GitHubID; the
// UNIQUE constraint on github_id maps one GitHub account to one app account.
//
// PasswordHash is tagged json:"-" so it can never leak into a response.
type User struct {
	ID           string    `json:"id"                 db:"id"`
	Username     string    `json:"username"           db:"username"`
	Email        string    `json:"email"              db:"email"`
	Name         string    `json:"name"               db:"name"`
	PasswordHash string    `json:"-"                  db:"password_hash"`
	GitHubID     *int64    `json:"githubId,omitempty" db:"github_id"`
	AvatarURL    string    `json:"avatarUrl"          db:"avatar_url"`
	CreatedAt    time.Time `json:"createdAt"          db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"          db:"updated_at"`
}
