package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

// CatalogService serves the read-only template catalog and replaces it
// wholesale from the loader.
type CatalogService struct {
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

func NewCatalogService(catalog repository.CatalogRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, logger: logger}
}

// List returns the templates matching filter, ordered by id.
func (s *CatalogService) List(ctx context.Context, filter model.CatalogFilter) ([]model.CatalogWorkout, error) {
	filter = model.CatalogFilter{
		Type:   strings.TrimSpace(filter.Type),
		Muscle: strings.TrimSpace(filter.Muscle),
		Level:  strings.TrimSpace(filter.Level),
	}

	templates, err := s.catalog.ListTemplates(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list catalog", slog.String("error", err.Error()))
		return nil, apperror.Wrap("listing catalog", err)
	}
	return templates, nil
}

// Get returns one template.
func (s *CatalogService) Get(ctx context.Context, id int64) (*model.CatalogWorkout, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "catalog id must be a positive integer")
	}
	t, err := s.catalog.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.Wrap("loading template", err)
	}
	return t, nil
}

// Replace validates templates and makes the catalog equal to them.
// Ids must be positive and unique and every template needs a name.
func (s *CatalogService) Replace(ctx context.Context, templates []model.CatalogWorkout) error {
	seen := make(map[int64]bool, len(templates))
	for i, t := range templates {
		switch {
		case t.ID <= 0:
			return apperror.ValidationFailed("id", fmt.Sprintf("template %d: id must be positive", i))
		case seen[t.ID]:
			return apperror.ValidationFailed("id", fmt.Sprintf("template %d: duplicate id %d", i, t.ID))
		case strings.TrimSpace(t.Name) == "":
			return apperror.ValidationFailed("name", fmt.Sprintf("template %d: name is required", t.ID))
		}
		seen[t.ID] = true
	}

	if err := s.catalog.ReplaceCatalog(ctx, templates); err != nil {
		return apperror.Wrap("replacing catalog", err)
	}
	s.logger.Info("catalog replaced", slog.Int("templates", len(templates)))
	return nil
}
