package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/sakif/fitplan/internal/catalog"
	"github.com/sakif/fitplan/internal/model"
	"github.com/sakif/fitplan/internal/service"
)

// errLoaderBusy is returned when another catalog load holds the lock.
var errLoaderBusy = errors.New("another catalog load is in progress")

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the public workout catalog",
	}

	catalogCmd.AddCommand(newCatalogLoadCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))

	return catalogCmd
}

func newCatalogLoadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Replace the catalog with the templates in a seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := ensureDatabaseDir(cfg.Database.Path); err != nil {
				return err
			}
			lock := flock.New(catalogLockPath(cfg.Database.Path))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire catalog lock: %w", err)
			}
			if !ok {
				return errLoaderBusy
			}
			defer lock.Unlock()

			db, err := ctx.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := service.NewCatalogService(db.Catalog(), ctx.logger(cmd.ErrOrStderr()))
			if err := svc.Replace(cmd.Context(), templates); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d templates from %s\n", len(templates), args[0])
			return nil
		},
	}
}

// catalogLockPath sits next to the database so loaders against the same file
// serialize.
func catalogLockPath(dbPath string) string {
	return dbPath + ".catalog.lock"
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var filter model.CatalogFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show catalog templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := service.NewCatalogService(db.Catalog(), ctx.logger(os.Stderr))
			templates, err := svc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(templates) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			fmt.Fprintln(out, renderCatalog(templates))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Type, "type", "", "Only templates of this type")
	cmd.Flags().StringVar(&filter.Muscle, "muscle", "", "Only templates working this muscle")
	cmd.Flags().StringVar(&filter.Level, "level", "", "Only templates of this level")
	return cmd
}

func renderCatalog(templates []model.CatalogWorkout) string {
	headers := []string{"ID", "Name", "Type", "Level", "Equipment", "Muscles"}
	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Name,
			dash(t.Type),
			dash(t.Level),
			dash(strings.Join(t.Equipment, ", ")),
			dash(strings.Join(t.Muscles, ", ")),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignRight})
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
