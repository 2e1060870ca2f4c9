package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

const maxGestures = 32

// GestureService manages a user's gesture-to-action mappings.
type GestureService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewGestureService(users repository.UserRepository, logger *slog.Logger) *GestureService {
	return &GestureService{users: users, logger: logger}
}

// GestureMapping is one requested mapping.
type GestureMapping struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

func (s *GestureService) List(ctx context.Context, userID string) ([]model.Gesture, error) {
	gestures, err := s.users.ListGestures(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap("listing gestures", err)
	}
	return gestures, nil
}

// Replace swaps all of the user's mappings for mappings. A gesture name may
// appear once; a later duplicate is rejected rather than silently dropped.
func (s *GestureService) Replace(ctx context.Context, userID string, mappings []GestureMapping) ([]model.Gesture, error) {
	if len(mappings) > maxGestures {
		return nil, apperror.ValidationFailed("mappings", fmt.Sprintf("at most %d gestures are allowed", maxGestures))
	}

	gestures := make([]model.Gesture, 0, len(mappings))
	seen := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		name := strings.TrimSpace(m.Name)
		action := strings.TrimSpace(m.Action)
		if name == "" || action == "" {
			return nil, apperror.ValidationFailed("mappings", "every gesture needs a name and an action")
		}
		if seen[strings.ToLower(name)] {
			return nil, apperror.ValidationFailed("mappings", fmt.Sprintf("gesture %q is mapped twice", name))
		}
		seen[strings.ToLower(name)] = true
		gestures = append(gestures, model.Gesture{Name: name, Action: action})
	}

	if err := s.users.ReplaceGestures(ctx, userID, gestures); err != nil {
		s.logger.Error("failed to replace gestures", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, apperror.Wrap("replacing gestures", err)
	}
	return gestures, nil
}
