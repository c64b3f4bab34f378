package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// startRecordingJS hooks the injected rrweb bundle up to the exposed
// binding so every DOM event is pushed as it occurs.
const startRecordingJS = `rrweb.record({ emit(event) { window.emitRecordEvent(event); } });`

// EventSink receives recorded DOM events and status frames as JSON.
type EventSink interface {
	Send(data []byte) error
}

// Recorder runs interactive recording sessions: it opens a visible browser,
// injects a DOM-event recorder into the page, and forwards every emitted
// event to the sink until the user closes the page.
type Recorder struct {
	ScriptPath string // rrweb bundle on disk
	Logger     *slog.Logger
}

// Record streams one recording session for url into sink. It blocks until
// the page is closed by the user or ctx is canceled. A terminal status
// frame is sent to the sink on every exit path.
func (r *Recorder) Record(ctx context.Context, url string, sink EventSink) error {
	script, err := os.ReadFile(r.ScriptPath)
	if err != nil {
		// No browser is opened when the recording script is missing; the
		// client gets a single error frame instead.
		r.Logger.Error("recording script missing", slog.String("path", r.ScriptPath), slog.Any("err", err))
		_ = sink.Send(statusFrame("error", "recording script not available on server"))
		return nil
	}

	// Recording sessions are interactive, so the browser is always headed.
	l := launcher.New().Headless(false)
	controlURL, err := l.Launch()
	if err != nil {
		_ = sink.Send(statusFrame("error", "could not launch browser"))
		return fmt.Errorf("launch recording browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = sink.Send(statusFrame("error", "could not connect to browser"))
		return fmt.Errorf("connect to recording browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = sink.Send(statusFrame("error", "could not open page"))
		return fmt.Errorf("create recording page: %w", err)
	}

	stop, err := page.Expose("emitRecordEvent", func(event gson.JSON) (any, error) {
		if err := sink.Send([]byte(event.JSON("", ""))); err != nil {
			r.Logger.Debug("drop recorded event, sink closed", slog.Any("err", err))
		}
		return nil, nil
	})
	if err != nil {
		_ = sink.Send(statusFrame("error", "could not wire event recorder"))
		return fmt.Errorf("expose record binding: %w", err)
	}
	defer func() { _ = stop() }()

	wait := page.WaitEvent(&proto.PageLoadEventFired{})
	if err := page.Navigate(url); err != nil {
		_ = sink.Send(statusFrame("error", "could not open "+url))
		return fmt.Errorf("navigate recording page: %w", err)
	}
	wait()

	if _, err := (proto.RuntimeEvaluate{Expression: string(script)}.Call(page)); err != nil {
		_ = sink.Send(statusFrame("error", "could not inject recorder"))
		return fmt.Errorf("inject recording script: %w", err)
	}
	if _, err := (proto.RuntimeEvaluate{Expression: startRecordingJS}.Call(page)); err != nil {
		_ = sink.Send(statusFrame("error", "could not start recorder"))
		return fmt.Errorf("start recording: %w", err)
	}

	r.Logger.Info("recording session streaming", slog.String("url", url))

	// The session lives until the user closes the page or the client goes
	// away.
	targetID := page.TargetID
	closed := make(chan struct{})
	go func() {
		browser.EachEvent(func(e *proto.TargetTargetDestroyed) bool {
			return e.TargetID == targetID
		})()
		close(closed)
	}()

	select {
	case <-ctx.Done():
		_ = sink.Send(statusFrame("status", "session canceled"))
		return nil
	case <-closed:
		_ = sink.Send(statusFrame("status", "browser closed"))
		return nil
	}
}

// statusFrame builds a small JSON control frame for the sink.
func statusFrame(frameType, message string) []byte {
	data, _ := json.Marshal(map[string]string{
		"type":    frameType,
		"message": message,
	})
	return data
}
