package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func testPromptBuilder() PromptBuilder {
	return func(promptID string, vars map[string]string) (string, error) {
		return "prompt:" + promptID, nil
	}
}

// scriptedStep returns canned JSON per action and records every StepMeta it
// saw. A per-step override (keyed by meta ID) wins over the action response.
type scriptedStep struct {
	responses map[string]string
	overrides map[string]string
	metas     []StepMeta
	calls     int

	// failOnCall makes the Nth call (1-based) fail with failErr
	failOnCall int
	failErr    error
}

func (s *scriptedStep) run(ctx context.Context, meta StepMeta, prompt, action string, maxTokens int) (StepOutput, error) {
	s.calls++
	s.metas = append(s.metas, meta)
	if s.failOnCall != 0 && s.calls == s.failOnCall {
		return StepOutput{}, s.failErr
	}
	if text, ok := s.overrides[meta.ID]; ok {
		return StepOutput{Text: text}, nil
	}
	text, ok := s.responses[action]
	if !ok {
		return StepOutput{}, fmt.Errorf("unexpected action %q", action)
	}
	return StepOutput{Text: text}, nil
}

func storyResponses() map[string]string {
	return map[string]string{
		"character_profiles": `{"characters":[
			{"name":"Mira","role":"lead","appearance":"short hair","personality":"stubborn"},
			{"name":"Joss","role":"rival","appearance":"tall","personality":"calculating"}]}`,
		"location_selection": `{"locations":[
			{"name":"Harbor","description":"old docks","atmosphere":"fog"}]}`,
		"clip_segmentation": `{"clips":[
			{"title":"Opening","summary":"Mira arrives","sourceExcerpt":"The boat..."},
			{"title":"Chase","summary":"Joss follows","sourceExcerpt":"Footsteps..."}]}`,
		"screenplay_conversion": `{"sceneHeading":"EXT. HARBOR - NIGHT","action":"Mira runs.",
			"dialogue":[{"character":"Mira","line":"Wait!","emotion":"urgent"}]}`,
	}
}

func TestRunStoryToScript_Success(t *testing.T) {
	step := &scriptedStep{responses: storyResponses()}
	in := StoryToScriptInput{EpisodeTitle: "Ep 1", NovelText: "some novel text", BuildPrompt: testPromptBuilder()}

	res, err := RunStoryToScript(context.Background(), in, step.run)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.AnalyzedCharacters) != 2 {
		t.Errorf("expected 2 characters, got %d", len(res.AnalyzedCharacters))
	}
	if len(res.AnalyzedLocations) != 1 {
		t.Errorf("expected 1 location, got %d", len(res.AnalyzedLocations))
	}
	if len(res.ClipList) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(res.ClipList))
	}
	if res.ClipList[0].ID != "clip-01" || res.ClipList[1].ID != "clip-02" {
		t.Errorf("clip IDs not positional: %s, %s", res.ClipList[0].ID, res.ClipList[1].ID)
	}
	if res.ClipList[0].Index != 0 || res.ClipList[1].Index != 1 {
		t.Errorf("clip indexes wrong: %d, %d", res.ClipList[0].Index, res.ClipList[1].Index)
	}

	s := res.Summary
	if s.ClipCount != 2 || s.ScreenplaySuccessCount != 2 || s.ScreenplayFailedCount != 0 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.TotalStepCount != 5 {
		t.Errorf("expected 5 total steps, got %d", s.TotalStepCount)
	}

	for _, r := range res.ScreenplayResults {
		if r.Success && r.Screenplay == nil {
			t.Errorf("successful result %s has no screenplay", r.ClipID)
		}
		if r.Success && r.Error != "" {
			t.Errorf("successful result %s carries an error", r.ClipID)
		}
	}

	// Step ordering: 3 fixed steps then one per clip
	if step.calls != 5 {
		t.Fatalf("expected 5 step calls, got %d", step.calls)
	}
	wantIDs := []string{"character_profiles", "location_selection", "clip_segmentation", "screenplay_clip-01", "screenplay_clip-02"}
	for i, want := range wantIDs {
		if step.metas[i].ID != want {
			t.Errorf("step %d: expected ID %s, got %s", i, want, step.metas[i].ID)
		}
	}
	if step.metas[3].Index != 3 || step.metas[3].Total != 5 {
		t.Errorf("per-clip meta wrong: index %d total %d", step.metas[3].Index, step.metas[3].Total)
	}
}

func TestRunStoryToScript_EmptyNovelText(t *testing.T) {
	step := &scriptedStep{responses: storyResponses()}
	in := StoryToScriptInput{EpisodeTitle: "Ep 1", NovelText: "   ", BuildPrompt: testPromptBuilder()}

	_, err := RunStoryToScript(context.Background(), in, step.run)
	if err == nil {
		t.Fatal("expected error for empty novel text")
	}
	if step.calls != 0 {
		t.Errorf("no steps should run, got %d calls", step.calls)
	}
}

func TestRunStoryToScript_ClipFailureCaptured(t *testing.T) {
	// Call 5 is the second screenplay conversion
	step := &scriptedStep{
		responses:  storyResponses(),
		failOnCall: 5,
		failErr:    fmt.Errorf("completion API error (status 500)"),
	}
	in := StoryToScriptInput{EpisodeTitle: "Ep 1", NovelText: "text", BuildPrompt: testPromptBuilder()}

	res, err := RunStoryToScript(context.Background(), in, step.run)
	if err != nil {
		t.Fatalf("per-clip failure must not abort the run: %v", err)
	}

	if res.Summary.ScreenplaySuccessCount != 1 || res.Summary.ScreenplayFailedCount != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	var failed *ScreenplayResult
	for i := range res.ScreenplayResults {
		if !res.ScreenplayResults[i].Success {
			failed = &res.ScreenplayResults[i]
		}
	}
	if failed == nil {
		t.Fatal("expected a failed screenplay result")
	}
	if failed.ClipID != "clip-02" {
		t.Errorf("expected clip-02 to fail, got %s", failed.ClipID)
	}
	if failed.Screenplay != nil {
		t.Error("failed result must not carry a screenplay")
	}
	if !strings.Contains(failed.Error, "status 500") {
		t.Errorf("failure reason not captured: %q", failed.Error)
	}
}

func TestRunStoryToScript_TerminationNotCaptured(t *testing.T) {
	term := &TerminatedError{JobID: "job-1", Checkpoint: "screenplay_clip-01"}
	step := &scriptedStep{
		responses:  storyResponses(),
		failOnCall: 4,
		failErr:    term,
	}
	in := StoryToScriptInput{EpisodeTitle: "Ep 1", NovelText: "text", BuildPrompt: testPromptBuilder()}

	res, err := RunStoryToScript(context.Background(), in, step.run)
	if res != nil {
		t.Error("terminated run must not return a result")
	}
	if !IsTerminated(err) {
		t.Fatalf("expected termination signal, got %v", err)
	}
	// Termination aborts the loop: the second clip is never attempted
	if step.calls != 4 {
		t.Errorf("expected 4 calls, got %d", step.calls)
	}
}

func TestRunStoryToScript_WrappedTerminationNotCaptured(t *testing.T) {
	term := fmt.Errorf("step failed: %w", &TerminatedError{JobID: "job-1", Checkpoint: "x"})
	step := &scriptedStep{responses: storyResponses(), failOnCall: 4, failErr: term}
	in := StoryToScriptInput{EpisodeTitle: "Ep 1", NovelText: "text", BuildPrompt: testPromptBuilder()}

	_, err := RunStoryToScript(context.Background(), in, step.run)
	if !IsTerminated(err) {
		t.Fatalf("wrapped termination must still propagate, got %v", err)
	}
}

func TestRunStoryToScript_ParseErrorCarriesRawText(t *testing.T) {
	responses := storyResponses()
	responses["character_profiles"] = "I could not produce JSON, sorry."
	step := &scriptedStep{responses: responses}
	in := StoryToScriptInput{EpisodeTitle: "Ep 1", NovelText: "text", BuildPrompt: testPromptBuilder()}

	_, err := RunStoryToScript(context.Background(), in, step.run)
	perr, ok := AsParseError(err)
	if !ok {
		t.Fatalf("expected parse error, got %v", err)
	}
	if perr.Action != "character_profiles" {
		t.Errorf("wrong action: %s", perr.Action)
	}
	if !strings.Contains(perr.RawText, "could not produce JSON") {
		t.Errorf("raw text not preserved: %q", perr.RawText)
	}
}
