package browse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

const (
	defaultFetchTimeout = 30 * time.Second

	// Pages can be enormous; the planner only needs enough text to reason
	// about the page.
	maxObservationChars = 4000
)

// Fetcher opens a page, waits for DOM content, and returns a simplified
// observation. Every failure is folded into the error variant; Fetch never
// returns a Go error or panics to its caller.
type Fetcher struct {
	Manager *Manager
	Timeout time.Duration
	Logger  *slog.Logger
}

// Fetch navigates a fresh page to url and observes its content. The page is
// torn down on every exit path.
func (f *Fetcher) Fetch(ctx context.Context, url string) (obs Observation) {
	// Rod helpers can panic when the browser dies mid-call; fold that into
	// the error variant like any other fetch failure.
	defer func() {
		if r := recover(); r != nil {
			obs = ErrorObservation(fmt.Sprintf("browser failure: %v", r))
		}
	}()

	f.Logger.Debug("fetching page", slog.String("url", url))

	page, err := f.Manager.Page()
	if err != nil {
		return ErrorObservation(err.Error())
	}
	defer func() { _ = page.Close() }()

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	page = page.Context(ctx)

	// DOM content loaded is the completion signal; full resource load is
	// not awaited.
	wait := page.WaitEvent(&proto.PageDomContentEventFired{})
	if err := page.Navigate(url); err != nil {
		return ErrorObservation(fmt.Sprintf("navigate to %s: %v", url, err))
	}
	wait()
	if ctx.Err() != nil {
		return ErrorObservation(fmt.Sprintf("navigate to %s: %v", url, ctx.Err()))
	}

	titleRes, err := page.Eval(`() => document.title`)
	if err != nil {
		return ErrorObservation(fmt.Sprintf("read page title: %v", err))
	}
	textRes, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return ErrorObservation(fmt.Sprintf("read page text: %v", err))
	}

	content := simplify(titleRes.Value.String(), textRes.Value.String())
	f.Logger.Debug("fetched page", slog.String("url", url), slog.Int("chars", len(content)))
	return SuccessObservation(content)
}

// simplify reduces a page to a title line plus truncated body text.
func simplify(title, text string) string {
	if len(text) > maxObservationChars {
		text = text[:maxObservationChars]
	}
	if title == "" {
		return text
	}
	return "Title: " + title + "\n\n" + text
}
