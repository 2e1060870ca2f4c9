package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedFile = `[
	{"name":"Push-ups","equipment":["mat"],"muscles":["chest","triceps"],"type":"strength","level":"beginner"},
	{"name":"Jump Rope","equipment":"jump rope","muscles":"calves","type":"cardio","level":"beginner"}
]`

func writeTestConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "data", "fitplan.db")
	configPath = filepath.Join(dir, "fitplan.toml")
	contents := fmt.Sprintf("[database]\npath = %q\n\n[auth]\njwt_secret = \"cli-test-secret-0123456789\"\n", dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0o600))
	return configPath, dbPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "fitplan.toml")

	out, err := runCLI(t, "config", "init", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)
	_, err = os.Stat(target)
	require.NoError(t, err)

	_, err = runCLI(t, "config", "init", target)
	assert.ErrorContains(t, err, "already exists")

	_, err = runCLI(t, "config", "init", target, "--overwrite")
	assert.NoError(t, err)
}

func TestConfigValidate(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	out, err := runCLI(t, "config", "validate", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, dbPath)
	assert.Contains(t, out, "github:   no")
}

func TestMissingConfigFails(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "absent.toml"), "migrate")
	assert.Error(t, err)
}

func TestMigrateCreatesDatabase(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestCatalogLoadAndList(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	seed := filepath.Join(t.TempDir(), "workouts.json")
	require.NoError(t, os.WriteFile(seed, []byte(seedFile), 0o644))

	out, err := runCLI(t, "--config", configPath, "catalog", "load", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 templates")

	out, err = runCLI(t, "--config", configPath, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Push-ups")
	assert.Contains(t, out, "Jump Rope")
	assert.Contains(t, out, "chest, triceps")

	out, err = runCLI(t, "--config", configPath, "catalog", "list", "--type", "cardio")
	require.NoError(t, err)
	assert.Contains(t, out, "Jump Rope")
	assert.NotContains(t, out, "Push-ups")

	out, err = runCLI(t, "--config", configPath, "catalog", "list", "--level", "expert")
	require.NoError(t, err)
	assert.Equal(t, "Catalog is empty", strings.TrimSpace(out))
}

func TestCatalogLoadOnFreshInstall(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)
	seed := filepath.Join(t.TempDir(), "workouts.json")
	require.NoError(t, os.WriteFile(seed, []byte(seedFile), 0o644))

	_, err := os.Stat(filepath.Dir(dbPath))
	require.True(t, os.IsNotExist(err), "database directory must not exist yet")

	out, err := runCLI(t, "--config", configPath, "catalog", "load", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 templates")
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestCatalogLoadRejectsBadSeed(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	seed := filepath.Join(t.TempDir(), "workouts.json")
	require.NoError(t, os.WriteFile(seed, []byte(`{"name":"not a list"}`), 0o644))

	_, err := runCLI(t, "--config", configPath, "catalog", "load", seed)
	assert.Error(t, err)
}

func TestCatalogLoadWhileLocked(t *testing.T) {
	configPath, dbPath := writeTestConfig(t)
	seed := filepath.Join(t.TempDir(), "workouts.json")
	require.NoError(t, os.WriteFile(seed, []byte(seedFile), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))

	held := flock.New(catalogLockPath(dbPath))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	_, err = runCLI(t, "--config", configPath, "catalog", "load", seed)
	assert.ErrorIs(t, err, errLoaderBusy)
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Name"}, [][]string{{"1", "Push-ups"}, {"2"}}, []columnAlignment{alignRight, alignLeft})
	assert.Contains(t, out, "Push-ups")
	assert.Contains(t, out, "ID")
	assert.Empty(t, renderTable(nil, nil, nil))
}
