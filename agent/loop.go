package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/remoproj/remo/browse"
)

// MaxIterations bounds the number of planner calls for a single run. The
// cap bounds cost and latency; reaching it is not an error.
const MaxIterations = 5

// Session holds the mutable state of one loop run: the user's goal, the
// starting location, and the most recent page observation. A session
// belongs exclusively to the run that created it and is never persisted.
type Session struct {
	Goal        string
	StartURL    string
	Observation browse.Observation
}

// Result is the terminal state of a loop run. When Finished is false the
// iteration cap was reached and Observation carries the last state.
type Result struct {
	Finished    bool               `json:"finished"`
	Reason      string             `json:"reason,omitempty"`
	Observation browse.Observation `json:"observation"`
	Iterations  int                `json:"iterations"`
}

// FinalText is what a client sees as the run's outcome: the finish reason,
// or the last observation when the cap was exhausted.
func (r *Result) FinalText() string {
	if r.Finished {
		return r.Reason
	}
	return r.Observation.Summary()
}

// PlannerStep picks exactly one next action for a session.
type PlannerStep interface {
	Decide(ctx context.Context, s *Session) (Action, error)
}

// Fetcher produces an observation for a URL. Failures come back as the
// observation's error variant, never as a Go error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) browse.Observation
}

// Loop alternates between the planner step and the browser tool until the
// planner finishes or the iteration cap is hit. A Loop is stateless across
// runs; all per-run state lives in the Session.
type Loop struct {
	Planner PlannerStep
	Fetcher Fetcher
	Logger  *slog.Logger
}

// Run executes the bounded loop for one session. It is not resumable.
func (l *Loop) Run(ctx context.Context, s *Session) (*Result, error) {
	for i := 1; i <= MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		action, err := l.Planner.Decide(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		switch action.Kind {
		case ActionFinish:
			l.Logger.Info("loop finished",
				slog.Int("iterations", i),
				slog.String("reason", action.Reason),
			)
			return &Result{
				Finished:    true,
				Reason:      action.Reason,
				Observation: s.Observation,
				Iterations:  i,
			}, nil

		case ActionFetch:
			l.Logger.Debug("loop fetching", slog.Int("iteration", i), slog.String("url", action.URL))
			// The tool's error variant is fed back to the planner, which
			// may retry with a new fetch or give up and finish.
			s.Observation = l.Fetcher.Fetch(ctx, action.URL)

		default:
			return nil, fmt.Errorf("iteration %d: unknown action kind %q", i, action.Kind)
		}
	}

	l.Logger.Info("loop reached iteration cap", slog.Int("iterations", MaxIterations))
	return &Result{
		Finished:    false,
		Observation: s.Observation,
		Iterations:  MaxIterations,
	}, nil
}
