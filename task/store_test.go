package task

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	due := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	in := &Task{
		UserID:             "user1",
		Title:              "Check HN headline",
		Notes:              "morning routine",
		URL:                "https://news.ycombinator.com",
		DueTime:            &due,
		Priority:           "high",
		IsFlagged:          true,
		TagsCSV:            "news,daily",
		IsTrainingRequired: true,
	}
	id, err := store.Create(in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" || id != in.ID {
		t.Errorf("id = %q, in.ID = %q", id, in.ID)
	}
	if in.Status != StatusPending {
		t.Errorf("Status = %q, want pending", in.Status)
	}
	if in.CreationDate.IsZero() {
		t.Error("CreationDate not set")
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != in.Title || got.UserID != in.UserID || got.URL != in.URL {
		t.Errorf("Get = %+v", got)
	}
	if got.DueTime == nil || !got.DueTime.Equal(due) {
		t.Errorf("DueTime = %v, want %v", got.DueTime, due)
	}
	if !got.IsFlagged || got.TagsCSV != "news,daily" {
		t.Errorf("flags not persisted: %+v", got)
	}
	if !got.IsTrainingRequired {
		t.Error("IsTrainingRequired not persisted")
	}
}

func TestCreateValidation(t *testing.T) {
	store := newTestStore(t)

	for _, tc := range []struct {
		name string
		task *Task
	}{
		{"missing user", &Task{Title: "t"}},
		{"missing title", &Task{UserID: "u"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.Create(tc.task); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("task_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListByUser(t *testing.T) {
	store := newTestStore(t)

	for _, title := range []string{"first", "second"} {
		if _, err := store.Create(&Task{UserID: "alice", Title: title}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := store.Create(&Task{UserID: "bob", Title: "other"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tasks, err := store.ListByUser("alice")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len = %d, want 2", len(tasks))
	}
	for _, tk := range tasks {
		if tk.UserID != "alice" {
			t.Errorf("leaked task for %q", tk.UserID)
		}
	}

	none, err := store.ListByUser("nobody")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len = %d, want 0", len(none))
	}
}

func TestCompleteTraining(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create(&Task{UserID: "u", Title: "train me", IsTrainingRequired: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	plan := []RecordedAction{
		{Type: "click", Selector: "#login", Timestamp: 100},
		{Type: "input", Selector: "#q", Value: "weather", Timestamp: 250},
	}
	if err := store.CompleteTraining(id, plan, "user clicked login then searched"); err != nil {
		t.Fatalf("CompleteTraining: %v", err)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusTrained {
		t.Errorf("Status = %q, want trained", got.Status)
	}
	if len(got.ActionPlan) != 2 || got.ActionPlan[1].Value != "weather" {
		t.Errorf("ActionPlan = %+v", got.ActionPlan)
	}
	if got.TrainingTranscript != "user clicked login then searched" {
		t.Errorf("TrainingTranscript = %q", got.TrainingTranscript)
	}
}

func TestCompleteTrainingNotFound(t *testing.T) {
	store := newTestStore(t)
	if err := store.CompleteTraining("task_missing", nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCompleteTrainingNilPlan(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create(&Task{UserID: "u", Title: "t"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.CompleteTraining(id, nil, ""); err != nil {
		t.Fatalf("CompleteTraining: %v", err)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusTrained {
		t.Errorf("Status = %q, want trained", got.Status)
	}
	if len(got.ActionPlan) != 0 {
		t.Errorf("ActionPlan = %+v, want empty", got.ActionPlan)
	}
}

func TestPushTokenUpsert(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.PushToken("u"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound before registration", err)
	}

	if err := store.UpsertPushToken("u", "token-one"); err != nil {
		t.Fatalf("UpsertPushToken: %v", err)
	}
	if err := store.UpsertPushToken("u", "token-two"); err != nil {
		t.Fatalf("UpsertPushToken replace: %v", err)
	}

	tok, err := store.PushToken("u")
	if err != nil {
		t.Fatalf("PushToken: %v", err)
	}
	if tok != "token-two" {
		t.Errorf("token = %q, want the replacement", tok)
	}
}

func TestFindDue(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	mustCreate := func(tk *Task) string {
		t.Helper()
		id, err := store.Create(tk)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		return id
	}

	dueID := mustCreate(&Task{UserID: "u", Title: "due now", DueTime: &past})
	mustCreate(&Task{UserID: "u", Title: "due later", DueTime: &future})
	mustCreate(&Task{UserID: "u", Title: "no schedule"})

	trainedID := mustCreate(&Task{UserID: "u", Title: "already trained", DueTime: &past})
	if err := store.CompleteTraining(trainedID, nil, ""); err != nil {
		t.Fatalf("CompleteTraining: %v", err)
	}
	notifiedID := mustCreate(&Task{UserID: "u", Title: "already notified", DueTime: &past})
	if err := store.MarkNotified(notifiedID); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	due, err := store.FindDue(now)
	if err != nil {
		t.Fatalf("FindDue: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("len = %d, want 1: %+v", len(due), due)
	}
	if due[0].ID != dueID {
		t.Errorf("due task = %q, want %q", due[0].ID, dueID)
	}
}

func TestMarkNotified(t *testing.T) {
	store := newTestStore(t)

	past := time.Now().UTC().Add(-time.Minute)
	id, err := store.Create(&Task{UserID: "u", Title: "remind", DueTime: &past})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.MarkNotified(id); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusNotified {
		t.Errorf("Status = %q, want notified", got.Status)
	}

	// A notified task must not come due again.
	due, err := store.FindDue(time.Now().UTC())
	if err != nil {
		t.Fatalf("FindDue: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("len = %d, want 0", len(due))
	}

	if err := store.MarkNotified("task_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
