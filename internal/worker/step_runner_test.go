package worker

import (
	"context"
	"io"
	"testing"

	"github.com/novelreel/api/internal/audit"
	"github.com/novelreel/api/internal/client"
	"github.com/novelreel/api/internal/pipeline"
)

func newTestRunner(tasks *fakeTasks, llm *fakeLLM) *stepRunner {
	return newStepRunner("job-1", "t-1", "u-1", "test-model", client.GenerationOptions{Temperature: 0.7},
		tasks, llm, audit.NewLoggerTo(io.Discard), &fakeHub{})
}

func TestStepRunner_ReportsWithinBand(t *testing.T) {
	tasks := &fakeTasks{}
	llm := &fakeLLM{responses: []string{`{"ok":true}`, `{"ok":true}`}}
	r := newTestRunner(tasks, llm)

	metas := []pipeline.StepMeta{
		{ID: "s1", Title: "First", Index: 0, Total: 2},
		{ID: "s2", Title: "Second", Index: 1, Total: 2},
	}
	for _, meta := range metas {
		if _, err := r.run(context.Background(), meta, "prompt", "action", 1024); err != nil {
			t.Fatalf("step failed: %v", err)
		}
	}

	if len(tasks.progress) != 4 {
		t.Fatalf("expected 4 progress reports, got %d", len(tasks.progress))
	}
	last := -1
	for _, p := range tasks.progress {
		if p < 15 || p > 70 {
			t.Errorf("step progress %d outside the 15-70 band", p)
		}
		if p < last {
			t.Errorf("progress regressed: %v", tasks.progress)
		}
		last = p
	}
	if tasks.progress[len(tasks.progress)-1] != 70 {
		t.Errorf("final step must reach the band ceiling, got %d", tasks.progress[len(tasks.progress)-1])
	}
}

func TestStepRunner_LivenessGateBeforeCompletion(t *testing.T) {
	tasks := &fakeTasks{terminateAt: "s1"}
	llm := &fakeLLM{responses: []string{`{"ok":true}`}}
	r := newTestRunner(tasks, llm)

	_, err := r.run(context.Background(), pipeline.StepMeta{ID: "s1", Title: "First", Total: 1}, "prompt", "action", 1024)
	if !pipeline.IsTerminated(err) {
		t.Fatalf("expected termination, got %v", err)
	}
	if llm.calls != 0 {
		t.Error("terminated step must never reach the completion API")
	}
}

func TestStepRunner_RetryAttemptGatesOnRetryID(t *testing.T) {
	tasks := &fakeTasks{terminateAt: "s1#retry1"}
	llm := &fakeLLM{responses: []string{`{"ok":true}`, `{"ok":true}`}}
	r := newTestRunner(tasks, llm)

	meta := pipeline.StepMeta{ID: "s1", Title: "First", Total: 1}
	if _, err := r.run(context.Background(), meta, "prompt", "action", 1024); err != nil {
		t.Fatalf("first attempt must pass: %v", err)
	}

	meta.Attempt = 1
	_, err := r.run(context.Background(), meta, "prompt", "action", 1024)
	if !pipeline.IsTerminated(err) {
		t.Fatalf("retry attempt must gate on its own checkpoint, got %v", err)
	}
}

func TestStepPercent(t *testing.T) {
	if got := stepPercent(0, 4); got != 15 {
		t.Errorf("band floor: got %d", got)
	}
	if got := stepPercent(4, 4); got != 70 {
		t.Errorf("band ceiling: got %d", got)
	}
	if got := stepPercent(9, 4); got != 70 {
		t.Errorf("overshoot not clamped: got %d", got)
	}
	if got := stepPercent(0, 0); got != 15 {
		t.Errorf("zero total not defended: got %d", got)
	}
}
