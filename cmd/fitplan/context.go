package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sakif/fitplan/internal/config"
	"github.com/sakif/fitplan/internal/repository/sqlite"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configFile string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, file, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configFile = file
	})
	return c.config, c.configErr
}

// logger writes text logs at the configured level.
func (c *commandContext) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if c.config != nil {
		level = c.config.LogLevel()
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openDatabase opens (and migrates) the configured sqlite file.
func (c *commandContext) openDatabase() (*sqlite.DB, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := ensureDatabaseDir(cfg.Database.Path); err != nil {
		return nil, err
	}
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	return db, nil
}

// ensureDatabaseDir creates the directory holding the database file and
// its lock files.
func ensureDatabaseDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory %q: %w", dir, err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
