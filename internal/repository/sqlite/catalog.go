package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/fitplan/internal/apperror"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/repository"
)

var _ repository.CatalogRepository = (*CatalogDB)(nil)

// CatalogDB is the read path over catalog templates.
type CatalogDB struct {
	db *DB
}

const catalogColumns = `id, name, equipment, muscles, type, level, instructions`

// filterField tags one catalog filter. Each tag owns exactly one SQL
// fragment; a listing ANDs together the fragments of the filters that are set.
type filterField int

const (
	filterType filterField = iota
	filterMuscle
	filterLevel
)

var filterSQL = map[filterField]string{
	filterType:  `lower(c.type) LIKE ? ESCAPE '\'`,
	filterLevel: `lower(c.level) LIKE ? ESCAPE '\'`,
	// Muscles are a JSON array; the filter matches if any tag matches.
	filterMuscle: `EXISTS (SELECT 1 FROM json_each(c.muscles) m WHERE lower(m.value) LIKE ? ESCAPE '\')`,
}

// whereClause compiles a filter into a WHERE clause and its arguments.
// An empty filter compiles to "" and no arguments.
func whereClause(f model.CatalogFilter) (string, []any) {
	values := []struct {
		field filterField
		value string
	}{
		{filterType, f.Type},
		{filterMuscle, f.Muscle},
		{filterLevel, f.Level},
	}

	var parts []string
	var args []any
	for _, v := range values {
		if strings.TrimSpace(v.value) == "" {
			continue
		}
		parts = append(parts, filterSQL[v.field])
		args = append(args, containsPattern(strings.TrimSpace(v.value)))
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// ListTemplates returns templates matching every set filter, ordered by id.
func (c *CatalogDB) ListTemplates(ctx context.Context, filter model.CatalogFilter) ([]model.CatalogWorkout, error) {
	where, args := whereClause(filter)

	templates := []model.CatalogWorkout{}
	err := c.db.x.SelectContext(ctx, &templates,
		`SELECT `+catalogColumns+` FROM catalog_workouts c`+where+` ORDER BY c.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing catalog: %w", err)
	}
	return templates, nil
}

// GetTemplate returns one template or apperror.ErrNotFound.
func (c *CatalogDB) GetTemplate(ctx context.Context, id int64) (*model.CatalogWorkout, error) {
	var t model.CatalogWorkout
	err := c.db.x.GetContext(ctx, &t, `SELECT `+catalogColumns+` FROM catalog_workouts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("catalog workout", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting catalog workout %d: %w", id, err)
	}
	return &t, nil
}

// ReplaceCatalog makes the catalog equal to templates. Rows are upserted by
// id so saved workouts keep their template link; templates that disappear
// are deleted and the saved copies' template_id becomes NULL.
func (c *CatalogDB) ReplaceCatalog(ctx context.Context, templates []model.CatalogWorkout) error {
	return c.db.withTx(ctx, func(tx *sqlx.Tx) error {
		ids := make([]int64, 0, len(templates))
		for _, t := range templates {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO catalog_workouts (`+catalogColumns+`)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET
				     name = excluded.name,
				     equipment = excluded.equipment,
				     muscles = excluded.muscles,
				     type = excluded.type,
				     level = excluded.level,
				     instructions = excluded.instructions`,
				t.ID, t.Name, t.Equipment, t.Muscles, t.Type, t.Level, t.Instructions,
			)
			if err != nil {
				return fmt.Errorf("sqlite: upserting catalog workout %d: %w", t.ID, err)
			}
			ids = append(ids, t.ID)
		}

		if len(ids) == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_workouts`); err != nil {
				return fmt.Errorf("sqlite: clearing catalog: %w", err)
			}
			return nil
		}

		query, args, err := sqlx.In(`DELETE FROM catalog_workouts WHERE id NOT IN (?)`, ids)
		if err != nil {
			return fmt.Errorf("sqlite: building catalog prune: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("sqlite: pruning catalog: %w", err)
		}
		return nil
	})
}
