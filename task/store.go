package task

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                         TEXT PRIMARY KEY,
	user_id                    TEXT NOT NULL,
	title                      TEXT NOT NULL,
	notes                      TEXT NOT NULL DEFAULT '',
	url                        TEXT NOT NULL DEFAULT '',
	due_time                   DATETIME,
	repeat_rule                TEXT NOT NULL DEFAULT '',
	priority                   TEXT NOT NULL DEFAULT '',
	is_flagged                 BOOLEAN NOT NULL DEFAULT 0,
	tags_csv                   TEXT NOT NULL DEFAULT '',
	early_reminder_offset_mins INTEGER NOT NULL DEFAULT 0,
	status                     TEXT NOT NULL,
	is_training_required       BOOLEAN NOT NULL DEFAULT 0,
	action_plan_json           TEXT NOT NULL DEFAULT '[]',
	training_transcript        TEXT NOT NULL DEFAULT '',
	creation_date              DATETIME NOT NULL,
	last_run_log               TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS push_tokens (
	user_id TEXT PRIMARY KEY,
	token   TEXT NOT NULL
);
`

// SQLiteStore persists tasks and push tokens in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tables exist. The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Create persists a new task and sets its ID, CreationDate, and Status.
func (s *SQLiteStore) Create(t *Task) (string, error) {
	if t.UserID == "" || t.Title == "" {
		return "", fmt.Errorf("%w: user_id and title are required", ErrValidation)
	}

	t.ID = "task_" + uuid.NewString()
	t.Status = StatusPending
	t.CreationDate = time.Now().UTC()

	plan, _ := json.Marshal(t.ActionPlan)
	if t.ActionPlan == nil {
		plan = []byte("[]")
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks
			(id, user_id, title, notes, url, due_time, repeat_rule, priority, is_flagged,
			 tags_csv, early_reminder_offset_mins, status, is_training_required,
			 action_plan_json, training_transcript, creation_date, last_run_log)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.Title, t.Notes, t.URL, nullTime(t.DueTime),
		t.RepeatRule, t.Priority, t.IsFlagged,
		t.TagsCSV, t.EarlyReminderOffsetMins, string(t.Status), t.IsTrainingRequired,
		string(plan), t.TrainingTranscript, t.CreationDate, t.LastRunLog,
	)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return t.ID, nil
}

// Get retrieves a task by ID.
func (s *SQLiteStore) Get(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT * FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListByUser returns all tasks for the given user.
func (s *SQLiteStore) ListByUser(userID string) ([]*Task, error) {
	rows, err := s.db.Query(`SELECT * FROM tasks WHERE user_id = ? ORDER BY creation_date ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTraining stores the recorded action plan and transcript and moves
// the task to trained in a single statement.
func (s *SQLiteStore) CompleteTraining(id string, plan []RecordedAction, transcript string) error {
	if plan == nil {
		plan = []RecordedAction{}
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal action plan: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE tasks SET action_plan_json = ?, training_transcript = ?, status = ?
		WHERE id = ?`,
		string(data), transcript, string(StatusTrained), id,
	)
	if err != nil {
		return fmt.Errorf("complete training: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertPushToken registers a device token for a user, replacing any prior one.
func (s *SQLiteStore) UpsertPushToken(userID, token string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO push_tokens (user_id, token) VALUES (?, ?)`, userID, token)
	if err != nil {
		return fmt.Errorf("upsert push token: %w", err)
	}
	return nil
}

// PushToken returns the registered token for a user.
func (s *SQLiteStore) PushToken(userID string) (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT token FROM push_tokens WHERE user_id = ?`, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("push token for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get push token: %w", err)
	}
	return token, nil
}

// FindDue returns pending tasks whose due time has passed as of now.
func (s *SQLiteStore) FindDue(now time.Time) ([]*Task, error) {
	rows, err := s.db.Query(`
		SELECT * FROM tasks
		WHERE due_time IS NOT NULL AND due_time <= ? AND status = ?
		ORDER BY due_time ASC`,
		now.UTC(), string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("find due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkNotified moves a task to notified.
func (s *SQLiteStore) MarkNotified(id string) error {
	res, err := s.db.Exec(`UPDATE tasks SET status = ? WHERE id = ?`, string(StatusNotified), id)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var status, planJSON string
	var dueTime sql.NullTime

	err := s.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Notes, &t.URL, &dueTime,
		&t.RepeatRule, &t.Priority, &t.IsFlagged,
		&t.TagsCSV, &t.EarlyReminderOffsetMins, &status, &t.IsTrainingRequired,
		&planJSON, &t.TrainingTranscript, &t.CreationDate, &t.LastRunLog,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	if dueTime.Valid {
		t.DueTime = &dueTime.Time
	}
	_ = json.Unmarshal([]byte(planJSON), &t.ActionPlan)
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
