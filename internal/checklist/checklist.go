// Package checklist derives a preparation checklist from a workout's
// equipment list.
//
// Generate is a pure function: no I/O, no clock, no randomness. Calling it
// twice with the same input yields identical output in identical order,
// which makes regenerating a checklist after an equipment edit safe.
package checklist

import (
	"strings"

	"github.com/sakif/fitplan/internal/model"
)

// knownTasks maps lower-cased equipment names to a curated task.
// Anything not listed falls back to "Prepare <equipment>".
var knownTasks = map[string]string{
	"mat":             "Lay out your mat",
	"yoga mat":        "Lay out your yoga mat",
	"exercise mat":    "Lay out your exercise mat",
	"dumbbell":        "Set out your dumbbells",
	"dumbbells":       "Set out your dumbbells",
	"barbell":         "Load and secure the barbell",
	"kettlebell":      "Set out your kettlebell",
	"kettlebells":     "Set out your kettlebells",
	"bands":           "Check resistance bands for wear",
	"resistance band": "Check resistance bands for wear",
	"cable":           "Adjust the cable machine",
	"machine":         "Adjust the machine settings",
	"medicine ball":   "Grab a medicine ball",
	"exercise ball":   "Inflate and position the exercise ball",
	"foam roll":       "Grab your foam roller",
	"foam roller":     "Grab your foam roller",
	"e-z curl bar":    "Load the EZ curl bar",
	"ez bar":          "Load the EZ curl bar",
	"bench":           "Position the bench",
	"pull-up bar":     "Check the pull-up bar is secure",
	"jump rope":       "Untangle your jump rope",
	"towel":           "Grab a towel",
	"water bottle":    "Fill your water bottle",
	"body only":       "Clear enough floor space to move",
	"bodyweight":      "Clear enough floor space to move",
	"none":            "Clear enough floor space to move",
}

// Generate maps an ordered equipment list to an ordered task list.
//
// Entries are trimmed; blank entries are skipped and case-insensitive
// duplicates collapse onto their first occurrence. Every task starts with
// Done=false. An empty input yields an empty, non-nil slice.
func Generate(equipment []string) []model.ChecklistTask {
	tasks := make([]model.ChecklistTask, 0, len(equipment))
	seen := make(map[string]struct{}, len(equipment))

	for _, raw := range equipment {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		tasks = append(tasks, model.ChecklistTask{Task: taskFor(name, key)})
	}

	return tasks
}

func taskFor(name, key string) string {
	if task, ok := knownTasks[key]; ok {
		return task
	}
	return "Prepare " + name
}

// Normalize trims equipment names and drops blanks, keeping order. It is the
// canonical form stored alongside a workout.
func Normalize(equipment []string) []string {
	out := make([]string, 0, len(equipment))
	for _, raw := range equipment {
		if name := strings.TrimSpace(raw); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Split parses a comma-separated equipment string, as used by form posts and
// the catalog seed file.
func Split(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return []string{}
	}
	return Normalize(strings.Split(csv, ","))
}
