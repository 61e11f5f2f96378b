package pipeline

import (
	"strings"
	"testing"
)

func TestNewPartialFailure_PreviewTruncated(t *testing.T) {
	failures := []FailurePreview{
		{ID: "clip-01", Reason: "timeout"},
		{ID: "clip-02", Reason: "parse failure"},
		{ID: "clip-03", Reason: "timeout"},
		{ID: "clip-04", Reason: "timeout"},
		{ID: "clip-05", Reason: "timeout"},
	}

	err := NewPartialFailure("STORY_TO_SCRIPT_PARTIAL_FAILED", 10, failures)
	if err.FailedCount != 5 || err.TotalCount != 10 {
		t.Errorf("counts wrong: %d/%d", err.FailedCount, err.TotalCount)
	}
	if len(err.Preview) != 3 {
		t.Fatalf("preview not truncated: %d items", len(err.Preview))
	}

	msg := err.Error()
	if !strings.Contains(msg, "STORY_TO_SCRIPT_PARTIAL_FAILED") {
		t.Errorf("message missing code: %q", msg)
	}
	if !strings.Contains(msg, "5 of 10 units failed") {
		t.Errorf("message missing counts: %q", msg)
	}
	if !strings.Contains(msg, "clip-01: timeout") {
		t.Errorf("message missing first preview item: %q", msg)
	}
	if strings.Contains(msg, "clip-04") {
		t.Errorf("message leaks truncated items: %q", msg)
	}
}

func TestStepMeta_AttemptID(t *testing.T) {
	meta := StepMeta{ID: "voice_analysis"}
	if got := meta.AttemptID(); got != "voice_analysis" {
		t.Errorf("first attempt must keep the plain ID, got %q", got)
	}
	meta.Attempt = 2
	if got := meta.AttemptID(); got != "voice_analysis#retry2" {
		t.Errorf("unexpected retry ID %q", got)
	}
}
