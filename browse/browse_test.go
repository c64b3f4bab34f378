package browse

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestObservation_Variants(t *testing.T) {
	ok := SuccessObservation("some text")
	if ok.IsError() || ok.Empty() {
		t.Errorf("success observation misclassified: %+v", ok)
	}
	if ok.Summary() != "some text" {
		t.Errorf("Summary = %q, want content", ok.Summary())
	}

	bad := ErrorObservation("dns failure")
	if !bad.IsError() {
		t.Errorf("error observation misclassified: %+v", bad)
	}
	if !strings.Contains(bad.Summary(), "dns failure") {
		t.Errorf("Summary = %q, want failure message", bad.Summary())
	}

	var none Observation
	if !none.Empty() {
		t.Error("zero observation should be empty")
	}
}

func TestSimplify_Truncates(t *testing.T) {
	long := strings.Repeat("x", maxObservationChars+500)
	got := simplify("Page", long)
	if len(got) > maxObservationChars+len("Title: Page\n\n") {
		t.Errorf("simplify did not truncate: %d chars", len(got))
	}
	if !strings.HasPrefix(got, "Title: Page") {
		t.Errorf("simplify dropped title: %q", got[:20])
	}

	if got := simplify("", "body only"); got != "body only" {
		t.Errorf("simplify without title = %q, want body only", got)
	}
}

// collectSink records every frame sent to it.
type collectSink struct {
	frames [][]byte
}

func (s *collectSink) Send(data []byte) error {
	s.frames = append(s.frames, data)
	return nil
}

func TestRecorder_MissingScript(t *testing.T) {
	rec := &Recorder{
		ScriptPath: filepath.Join(t.TempDir(), "does-not-exist.js"),
		Logger:     discardLogger(),
	}

	sink := &collectSink{}
	if err := rec.Record(context.Background(), "https://example.com", sink); err != nil {
		t.Fatalf("Record with missing script: %v", err)
	}

	if len(sink.frames) != 1 {
		t.Fatalf("frames = %d, want exactly one error frame", len(sink.frames))
	}
	var frame map[string]string
	if err := json.Unmarshal(sink.frames[0], &frame); err != nil {
		t.Fatalf("frame is not JSON: %v", err)
	}
	if frame["type"] != "error" {
		t.Errorf("frame type = %q, want error", frame["type"])
	}
	if frame["message"] == "" {
		t.Error("error frame has empty message")
	}
}
