package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

const (
	maxReminderTimeLength        = 64
	maxReminderDescriptionLength = 500
)

// ReminderService manages a user's reminders. Every operation is scoped to
// the caller; foreign reminders look missing.
type ReminderService struct {
	reminders repository.ReminderRepository
	logger    *slog.Logger
}

func NewReminderService(reminders repository.ReminderRepository, logger *slog.Logger) *ReminderService {
	return &ReminderService{reminders: reminders, logger: logger}
}

// ReminderInput creates or replaces a reminder. Time is required.
type ReminderInput struct {
	Time        string `json:"time"`
	Description string `json:"description"`
}

func (in ReminderInput) validate() (ReminderInput, error) {
	out := ReminderInput{
		Time:        strings.TrimSpace(in.Time),
		Description: strings.TrimSpace(in.Description),
	}
	if out.Time == "" {
		return out, apperror.ValidationFailed("time", "reminder time is required")
	}
	if utf8.RuneCountInString(out.Time) > maxReminderTimeLength {
		return out, apperror.ValidationFailed("time",
			fmt.Sprintf("reminder time must be %d characters or less", maxReminderTimeLength))
	}
	if utf8.RuneCountInString(out.Description) > maxReminderDescriptionLength {
		return out, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", maxReminderDescriptionLength))
	}
	return out, nil
}

func (s *ReminderService) Create(ctx context.Context, userID string, in ReminderInput) (*model.Reminder, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	r := &model.Reminder{UserID: userID, Time: in.Time, Description: in.Description}
	if err := s.reminders.Create(ctx, r); err != nil {
		s.logger.Error("failed to create reminder", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, apperror.Wrap("creating reminder", err)
	}
	return r, nil
}

// List returns the user's reminders ordered by time.
func (s *ReminderService) List(ctx context.Context, userID string) ([]model.Reminder, error) {
	reminders, err := s.reminders.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap("listing reminders", err)
	}
	return reminders, nil
}

func (s *ReminderService) Update(ctx context.Context, userID, id string, in ReminderInput) (*model.Reminder, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	r, err := s.reminders.Get(ctx, userID, id)
	if err != nil {
		return nil, reminderError("loading reminder", err)
	}
	r.Time = in.Time
	r.Description = in.Description

	if err := s.reminders.Update(ctx, r); err != nil {
		return nil, reminderError("updating reminder", err)
	}
	return r, nil
}

func (s *ReminderService) Delete(ctx context.Context, userID, id string) error {
	if err := s.reminders.Delete(ctx, userID, id); err != nil {
		return reminderError("deleting reminder", err)
	}
	return nil
}

func reminderError(op string, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NotAllowed("reminder")
	}
	return apperror.Wrap(op, err)
}
