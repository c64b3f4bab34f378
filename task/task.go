// Package task defines the task model and persistence for user reminders
// and trained browsing tasks.
package task

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of a task. Transitions only move
// forward: pending -> trained and/or -> notified, never back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusTrained  Status = "trained"
	StatusNotified Status = "notified"
)

// Sentinel errors returned by Store implementations.
var (
	ErrNotFound   = errors.New("task not found")
	ErrValidation = errors.New("missing required task fields")
)

// RecordedAction is a single step of a recorded action plan, captured during
// an interactive training session.
type RecordedAction struct {
	Type      string `json:"type"`
	Selector  string `json:"selector,omitempty"`
	Value     string `json:"value,omitempty"`
	URL       string `json:"url,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Task is a unit of user-defined browsing intent with optional schedule and
// training metadata.
type Task struct {
	ID                      string           `json:"id"`
	UserID                  string           `json:"user_id"`
	Title                   string           `json:"title"`
	Notes                   string           `json:"notes,omitempty"`
	URL                     string           `json:"url,omitempty"`
	DueTime                 *time.Time       `json:"due_time,omitempty"`
	RepeatRule              string           `json:"repeat_rule,omitempty"`
	Priority                string           `json:"priority,omitempty"`
	IsFlagged               bool             `json:"is_flagged"`
	TagsCSV                 string           `json:"tags_csv,omitempty"`
	EarlyReminderOffsetMins int              `json:"early_reminder_offset_mins,omitempty"`
	Status                  Status           `json:"status"`
	IsTrainingRequired      bool             `json:"is_training_required"`
	ActionPlan              []RecordedAction `json:"action_plan,omitempty"`
	TrainingTranscript      string           `json:"training_transcript,omitempty"`
	CreationDate            time.Time        `json:"creation_date"`
	LastRunLog              string           `json:"last_run_log,omitempty"`
}

// Store persists tasks and push tokens.
type Store interface {
	// Create persists a new task, assigning its ID, CreationDate, and
	// pending status. Returns ErrValidation if UserID or Title is empty.
	Create(t *Task) (string, error)

	// Get retrieves a task by ID.
	Get(id string) (*Task, error)

	// ListByUser returns all tasks belonging to a user.
	ListByUser(userID string) ([]*Task, error)

	// CompleteTraining atomically stores the recorded action plan and
	// transcript and moves the task to trained.
	CompleteTraining(id string, plan []RecordedAction, transcript string) error

	// UpsertPushToken registers a device token for a user, replacing any
	// previous one.
	UpsertPushToken(userID, token string) error

	// PushToken returns the registered token for a user, or ErrNotFound.
	PushToken(userID string) (string, error)

	// FindDue returns pending tasks whose due time has passed as of now.
	FindDue(now time.Time) ([]*Task, error)

	// MarkNotified moves a task to notified after successful delivery.
	MarkNotified(id string) error
}
