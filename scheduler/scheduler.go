// Package scheduler periodically delivers reminders for due tasks.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/remoproj/remo/push"
	"github.com/remoproj/remo/task"
)

// NotificationTitle is the fixed title of every reminder push.
const NotificationTitle = "Remo Reminder!"

// Scheduler sweeps the store for due tasks on a fixed interval and pushes a
// reminder for each. A task is only marked notified after its push was
// accepted; failed deliveries stay pending and are retried next sweep.
type Scheduler struct {
	Store    task.Store
	Notifier push.Notifier
	Interval time.Duration
	Logger   *slog.Logger

	// Now is the clock used for due checks. Nil means time.Now.
	Now func() time.Time
}

// Run sweeps immediately, then on every interval tick until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.Logger.Info("reminder scheduler started", slog.Duration("interval", s.Interval))

	s.Sweep(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep finds all currently due tasks and attempts one delivery each.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	due, err := s.Store.FindDue(now)
	if err != nil {
		s.Logger.Error("find due tasks", slog.String("error", err.Error()))
		return
	}

	for _, t := range due {
		if ctx.Err() != nil {
			return
		}
		s.deliver(ctx, t)
	}
}

func (s *Scheduler) deliver(ctx context.Context, t *task.Task) {
	token, err := s.Store.PushToken(t.UserID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.Logger.Warn("no push token registered",
				slog.String("task_id", t.ID),
				slog.String("user_id", t.UserID),
			)
		} else {
			s.Logger.Error("look up push token",
				slog.String("task_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	n := push.Notification{Title: NotificationTitle, Body: t.Title}
	if err := s.Notifier.Send(ctx, token, n); err != nil {
		// Leave the task pending so the next sweep retries it.
		s.Logger.Error("send reminder",
			slog.String("task_id", t.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.Store.MarkNotified(t.ID); err != nil {
		s.Logger.Error("mark notified",
			slog.String("task_id", t.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.Logger.Info("reminder sent",
		slog.String("task_id", t.ID),
		slog.String("user_id", t.UserID),
		slog.String("title", t.Title),
	)
}
