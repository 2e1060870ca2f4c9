package model

import "time"

// Reminder is a user-defined nudge. Time is free-form ("07:30", "Mon 6pm")
// and only has to be non-empty; clients interpret it.
type Reminder struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"-"           db:"user_id"`
	Time        string    `json:"time"        db:"time"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// Gesture maps a device gesture to an app action for one user.
type Gesture struct {
	ID     string `json:"id"     db:"id"`
	UserID string `json:"-"      db:"user_id"`
	Name   string `json:"name"   db:"name"`
	Action string `json:"action" db:"action"`
}

// DefaultGestures are seeded for every new account.
func DefaultGestures() []Gesture {
	return []Gesture{
		{Name: "swipe_left", Action: "delete"},
		{Name: "swipe_right", Action: "mark as done"},
		{Name: "shake", Action: "reset"},
	}
}
