package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
)

func templateIDs(templates []model.CatalogWorkout) []int64 {
	ids := make([]int64, 0, len(templates))
	for _, t := range templates {
		ids = append(ids, t.ID)
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListTemplates_Filters(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)

	tests := []struct {
		name   string
		filter model.CatalogFilter
		want   []int64
	}{
		{"no filter", model.CatalogFilter{}, []int64{1, 2, 3, 4}},
		{"type", model.CatalogFilter{Type: "strength"}, []int64{1, 2}},
		{"type is case-insensitive", model.CatalogFilter{Type: "CARDIO"}, []int64{3}},
		{"muscle substring", model.CatalogFilter{Muscle: "chest"}, []int64{1, 2}},
		{"muscle partial", model.CatalogFilter{Muscle: "quad"}, []int64{3}},
		{"level", model.CatalogFilter{Level: "beginner"}, []int64{1, 3}},
		{"combined", model.CatalogFilter{Type: "strength", Level: "beginner"}, []int64{1}},
		{"no match", model.CatalogFilter{Muscle: "neck"}, []int64{}},
		{"wildcards are literal", model.CatalogFilter{Type: "%"}, []int64{}},
		{"blank ignored", model.CatalogFilter{Type: "   "}, []int64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Catalog().ListTemplates(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListTemplates() error = %v", err)
			}
			if ids := templateIDs(got); !equalIDs(ids, tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestGetTemplate(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)

	got, err := db.Catalog().GetTemplate(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}
	if got.Name != "Bench Press" {
		t.Errorf("Name = %q", got.Name)
	}
	if len(got.Equipment) != 2 || got.Equipment[1] != "bench" {
		t.Errorf("Equipment = %v", got.Equipment)
	}

	if _, err := db.Catalog().GetTemplate(context.Background(), 99); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTemplate(99) error = %v, want ErrNotFound", err)
	}
}

func TestReplaceCatalog_PrunesAndKeepsSavedCopies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)
	user := createTestUser(t, db, "alice")

	saved := adoptTemplate(t, db, user.ID, 3)

	// Template 3 disappears, template 1 is renamed.
	next := []model.CatalogWorkout{
		{ID: 1, Name: "Knee Push Ups", Type: "strength"},
		{ID: 2, Name: "Bench Press", Type: "strength"},
	}
	if err := db.Catalog().ReplaceCatalog(ctx, next); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}

	all, err := db.Catalog().ListTemplates(ctx, model.CatalogFilter{})
	if err != nil {
		t.Fatalf("ListTemplates() error = %v", err)
	}
	if ids := templateIDs(all); !equalIDs(ids, []int64{1, 2}) {
		t.Errorf("ids = %v, want [1 2]", ids)
	}
	if all[0].Name != "Knee Push Ups" {
		t.Errorf("template 1 not updated: %q", all[0].Name)
	}

	got, err := db.Workouts().GetSaved(ctx, saved.ID)
	if err != nil {
		t.Fatalf("saved copy lost: %v", err)
	}
	if got.TemplateID != nil {
		t.Errorf("TemplateID = %v, want nil after template removal", *got.TemplateID)
	}
}

func TestReplaceCatalog_Empty(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)

	if err := db.Catalog().ReplaceCatalog(context.Background(), nil); err != nil {
		t.Fatalf("ReplaceCatalog(nil) error = %v", err)
	}
	got, err := db.Catalog().ListTemplates(context.Background(), model.CatalogFilter{})
	if err != nil {
		t.Fatalf("ListTemplates() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d templates, want 0", len(got))
	}
}
