package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewLogEmitter(&buf, false)

		e.Emit(Event{RunID: "run-1", Step: 2, Stage: "executive", Msg: "stage_end"})

		out := buf.String()
		if !strings.Contains(out, "[stage_end]") {
			t.Errorf("missing message tag: %q", out)
		}
		if !strings.Contains(out, "runID=run-1") || !strings.Contains(out, "step=2") {
			t.Errorf("missing fields: %q", out)
		}
		if !strings.Contains(out, "stage=executive") {
			t.Errorf("missing stage: %q", out)
		}
	})

	t.Run("text format includes metadata", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewLogEmitter(&buf, false)

		e.Emit(Event{
			RunID: "run-1",
			Msg:   "stage_degraded",
			Meta:  map[string]interface{}{"error": "timed out"},
		})

		if !strings.Contains(buf.String(), "timed out") {
			t.Errorf("missing metadata: %q", buf.String())
		}
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewLogEmitter(&buf, true)

		e.Emit(Event{RunID: "run-1", Step: 1, Stage: "a", Msg: "stage_end"})

		var decoded struct {
			RunID string `json:"runID"`
			Step  int    `json:"step"`
			Stage string `json:"stage"`
			Msg   string `json:"msg"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
		}
		if decoded.RunID != "run-1" || decoded.Step != 1 || decoded.Msg != "stage_end" {
			t.Errorf("unexpected decoded event: %+v", decoded)
		}
	})

	t.Run("one line per event", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewLogEmitter(&buf, true)

		e.Emit(Event{Msg: "a"})
		e.Emit(Event{Msg: "b"})

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if len(lines) != 2 {
			t.Errorf("expected 2 lines, got %d: %q", len(lines), buf.String())
		}
	})
}

func TestNullEmitter(t *testing.T) {
	e := NewNullEmitter()
	// Must not panic.
	e.Emit(Event{RunID: "run-1", Msg: "anything"})
}
