package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
)

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "alice")

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}

	gestures, err := db.Users().ListGestures(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListGestures() error = %v", err)
	}
	if len(gestures) != len(model.DefaultGestures()) {
		t.Errorf("got %d gestures, want %d", len(gestures), len(model.DefaultGestures()))
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	dup := &model.User{Username: "alice", Email: "other@example.com"}
	err := db.Users().Create(context.Background(), dup, nil)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")

	dup := &model.User{Username: "alice2", Email: "alice@example.com"}
	err := db.Users().Create(context.Background(), dup, nil)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_EmptyEmailsDoNotCollide(t *testing.T) {
	db := newTestDB(t)

	for _, name := range []string{"a", "b"} {
		if err := db.Users().Create(context.Background(), &model.User{Username: name}, nil); err != nil {
			t.Fatalf("Create(%q) error = %v", name, err)
		}
	}
}

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "bob")

	found, err := db.Users().GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Username != "bob" {
		t.Errorf("Username = %q, want %q", found.Username, "bob")
	}
	if found.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, "hash")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "carol")

	found, err := db.Users().GetByUsername(context.Background(), "carol")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	if _, err := db.Users().GetByUsername(context.Background(), "nobody"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByUsername(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestUserUpsertGitHub_NewThenExisting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ghID := int64(66666)

	first := &model.User{Username: "octo", Email: "old@example.com", GitHubID: &ghID, AvatarURL: "old.png"}
	if err := db.Users().UpsertGitHub(ctx, first, model.DefaultGestures()); err != nil {
		t.Fatalf("UpsertGitHub() first: %v", err)
	}
	originalID := first.ID

	second := &model.User{Username: "octo", Email: "new@example.com", GitHubID: &ghID, AvatarURL: "new.png"}
	if err := db.Users().UpsertGitHub(ctx, second, model.DefaultGestures()); err != nil {
		t.Fatalf("UpsertGitHub() second: %v", err)
	}

	if second.ID != originalID {
		t.Errorf("UpsertGitHub() changed user ID: got %q, want %q", second.ID, originalID)
	}
	if second.Email != "new@example.com" || second.AvatarURL != "new.png" {
		t.Errorf("profile not refreshed: %+v", second)
	}

	gestures, err := db.Users().ListGestures(ctx, originalID)
	if err != nil {
		t.Fatalf("ListGestures() error = %v", err)
	}
	if len(gestures) != len(model.DefaultGestures()) {
		t.Errorf("gestures seeded %d times over, got %d rows", len(gestures)/len(model.DefaultGestures()), len(gestures))
	}
}

func TestUserUpsertGitHub_UsernameTaken(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "octo")

	ghID := int64(1)
	err := db.Users().UpsertGitHub(context.Background(), &model.User{Username: "octo", GitHubID: &ghID}, nil)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("UpsertGitHub() error = %v, want ErrConflict", err)
	}
}

func TestUserReplaceGestures(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "dave")

	replacement := []model.Gesture{{Name: "double_tap", Action: "start"}}
	if err := db.Users().ReplaceGestures(ctx, user.ID, replacement); err != nil {
		t.Fatalf("ReplaceGestures() error = %v", err)
	}

	got, err := db.Users().ListGestures(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListGestures() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "double_tap" || got[0].Action != "start" {
		t.Errorf("gestures = %+v", got)
	}
}
