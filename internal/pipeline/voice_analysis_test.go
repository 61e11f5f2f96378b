package pipeline

import (
	"context"
	"testing"
)

func voiceStoryboards() []StoryboardUnit {
	return []StoryboardUnit{
		{ClipID: "c-1", Index: 0, Title: "SB Opening", Panels: []PanelDraft{{Index: 0}, {Index: 1}}},
		{ClipID: "c-2", Index: 1, Title: "SB Chase", Panels: []PanelDraft{{Index: 0}}},
	}
}

func voiceResponse() string {
	return `{"voiceLines":[
		{"character":"Mira","line":"Wait!","emotion":"urgent","storyboardIndex":0,"panelIndex":1},
		{"character":"Joss","line":"Too late.","emotion":"cold","storyboardIndex":1,"panelIndex":0}]}`
}

func TestRunVoiceAnalysis_Success(t *testing.T) {
	step := &scriptedStep{responses: map[string]string{"voice_analysis": voiceResponse()}}
	in := VoiceAnalysisInput{
		EpisodeTitle: "Ep 1",
		Storyboards:  voiceStoryboards(),
		BuildPrompt:  testPromptBuilder(),
		StepIndex:    8,
		StepTotal:    9,
	}

	lines, err := RunVoiceAnalysis(context.Background(), in, step.run)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 voice lines, got %d", len(lines))
	}
	if lines[0].Index != 0 || lines[1].Index != 1 {
		t.Errorf("line indexes not positional: %d, %d", lines[0].Index, lines[1].Index)
	}
	if lines[0].MatchedPanel.StoryboardIndex != 0 || lines[0].MatchedPanel.PanelIndex != 1 {
		t.Errorf("matched panel wrong: %+v", lines[0].MatchedPanel)
	}

	meta := step.metas[0]
	if meta.ID != "voice_analysis" || meta.Index != 8 || meta.Total != 9 {
		t.Errorf("unexpected step meta: %+v", meta)
	}
}

func TestRunVoiceAnalysis_AttemptInStepID(t *testing.T) {
	step := &scriptedStep{responses: map[string]string{"voice_analysis": voiceResponse()}}
	in := VoiceAnalysisInput{
		EpisodeTitle: "Ep 1",
		Storyboards:  voiceStoryboards(),
		BuildPrompt:  testPromptBuilder(),
		Attempt:      1,
	}

	if _, err := RunVoiceAnalysis(context.Background(), in, step.run); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := step.metas[0].AttemptID(); got != "voice_analysis#retry1" {
		t.Errorf("expected retry attempt ID, got %q", got)
	}
}

func TestRunVoiceAnalysis_NoStoryboards(t *testing.T) {
	step := &scriptedStep{responses: map[string]string{"voice_analysis": voiceResponse()}}
	in := VoiceAnalysisInput{EpisodeTitle: "Ep 1", BuildPrompt: testPromptBuilder()}

	if _, err := RunVoiceAnalysis(context.Background(), in, step.run); err == nil {
		t.Fatal("expected error for empty storyboard set")
	}
}

func TestRunVoiceAnalysis_UnknownStoryboardIndex(t *testing.T) {
	resp := `{"voiceLines":[{"character":"Mira","line":"x","storyboardIndex":5,"panelIndex":0}]}`
	step := &scriptedStep{responses: map[string]string{"voice_analysis": resp}}
	in := VoiceAnalysisInput{EpisodeTitle: "Ep 1", Storyboards: voiceStoryboards(), BuildPrompt: testPromptBuilder()}

	if _, err := RunVoiceAnalysis(context.Background(), in, step.run); err == nil {
		t.Fatal("expected error for out-of-range storyboard index")
	}
}

func TestRunVoiceAnalysis_UnknownPanelIndex(t *testing.T) {
	resp := `{"voiceLines":[{"character":"Mira","line":"x","storyboardIndex":1,"panelIndex":2}]}`
	step := &scriptedStep{responses: map[string]string{"voice_analysis": resp}}
	in := VoiceAnalysisInput{EpisodeTitle: "Ep 1", Storyboards: voiceStoryboards(), BuildPrompt: testPromptBuilder()}

	if _, err := RunVoiceAnalysis(context.Background(), in, step.run); err == nil {
		t.Fatal("expected error for out-of-range panel index")
	}
}

func TestRunVoiceAnalysis_MissingCharacter(t *testing.T) {
	resp := `{"voiceLines":[{"character":"","line":"x","storyboardIndex":0,"panelIndex":0}]}`
	step := &scriptedStep{responses: map[string]string{"voice_analysis": resp}}
	in := VoiceAnalysisInput{EpisodeTitle: "Ep 1", Storyboards: voiceStoryboards(), BuildPrompt: testPromptBuilder()}

	if _, err := RunVoiceAnalysis(context.Background(), in, step.run); err == nil {
		t.Fatal("expected error for empty character")
	}
}
