// Package catalog reads the template seed file into catalog rows.
//
// The seed is a JSON array of objects. equipment and muscles may be a list
// or a single comma-separated string; id is optional and defaults to the
// 1-based position in the array so repeated loads keep ids stable.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sakif/fitplan/internal/checklist"
	"github.com/sakif/fitplan/internal/model"
)

// ErrInvalidSeed is returned when the input is not a JSON array of objects.
var ErrInvalidSeed = errors.New("catalog: seed must be a JSON array of objects")

// LoadFile parses the seed file at path.
func LoadFile(path string) ([]model.CatalogWorkout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a seed document from r.
func Load(r io.Reader) ([]model.CatalogWorkout, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidSeed
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, ErrInvalidSeed
	}

	entries := doc.Array()
	templates := make([]model.CatalogWorkout, 0, len(entries))
	for i, entry := range entries {
		if !entry.IsObject() {
			return nil, fmt.Errorf("%w: entry %d is %s", ErrInvalidSeed, i+1, entry.Type)
		}
		t, err := parseEntry(entry, int64(i+1))
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func parseEntry(entry gjson.Result, position int64) (model.CatalogWorkout, error) {
	id := position
	if v := entry.Get("id"); v.Exists() && v.Type != gjson.Null {
		if v.Type != gjson.Number || v.Num != float64(v.Int()) {
			return model.CatalogWorkout{}, fmt.Errorf("id %s is not an integer", v.Raw)
		}
		id = v.Int()
	}

	instructions := entry.Get("instructions")
	if !instructions.Exists() {
		instructions = entry.Get("description")
	}

	return model.CatalogWorkout{
		ID:           id,
		Name:         strings.TrimSpace(entry.Get("name").String()),
		Equipment:    stringList(entry.Get("equipment")),
		Muscles:      stringList(entry.Get("muscles")),
		Type:         strings.TrimSpace(entry.Get("type").String()),
		Level:        strings.TrimSpace(entry.Get("level").String()),
		Instructions: strings.TrimSpace(instructions.String()),
	}, nil
}

// stringList accepts an array of strings, a comma-separated string or
// nothing at all.
func stringList(v gjson.Result) model.StringList {
	switch {
	case v.IsArray():
		items := make([]string, 0, len(v.Array()))
		for _, item := range v.Array() {
			items = append(items, item.String())
		}
		return checklist.Normalize(items)
	case v.Type == gjson.String:
		return checklist.Split(v.Str)
	default:
		return model.StringList{}
	}
}
