package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/novelreel/api/internal/prompt"
)

// PanelRef points at a panel by position within the run's storyboard set.
// Persistence resolves it against the panels created in the same transaction.
type PanelRef struct {
	StoryboardIndex int `json:"storyboardIndex"`
	PanelIndex      int `json:"panelIndex"`
}

// VoiceLineDraft is one spoken line produced by voice analysis
type VoiceLineDraft struct {
	Index        int      `json:"index"`
	Character    string   `json:"character"`
	Line         string   `json:"line"`
	Emotion      string   `json:"emotion"`
	MatchedPanel PanelRef `json:"matchedPanel"`
}

// VoiceAnalysisInput carries everything the voice-analysis step needs.
// StepIndex/StepTotal continue the storyboard run's progress math; Attempt is
// set by the task handler's retry loop.
type VoiceAnalysisInput struct {
	EpisodeTitle string
	Storyboards  []StoryboardUnit
	BuildPrompt  PromptBuilder
	StepIndex    int
	StepTotal    int
	Attempt      int
}

// RunVoiceAnalysis extracts voice lines from the storyboarded screenplay and
// matches each to the panel it plays over. A matched reference outside the
// run's storyboard/panel set means corrupted output and fails the step.
func RunVoiceAnalysis(ctx context.Context, in VoiceAnalysisInput, step StepFunc) ([]VoiceLineDraft, error) {
	if len(in.Storyboards) == 0 {
		return nil, fmt.Errorf("no storyboards to analyze")
	}

	p, err := in.BuildPrompt(prompt.VoiceAnalysis, map[string]string{
		"episode_title": in.EpisodeTitle,
		"storyboards":   storyboardDigest(in.Storyboards),
	})
	if err != nil {
		return nil, err
	}

	meta := StepMeta{
		ID:      "voice_analysis",
		Title:   "Analyzing voice lines",
		Index:   in.StepIndex,
		Total:   in.StepTotal,
		Attempt: in.Attempt,
	}
	out, err := step(ctx, meta, p, "voice_analysis", 8192)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		VoiceLines []struct {
			Character       string `json:"character"`
			Line            string `json:"line"`
			Emotion         string `json:"emotion"`
			StoryboardIndex int    `json:"storyboardIndex"`
			PanelIndex      int    `json:"panelIndex"`
		} `json:"voiceLines"`
	}
	if err := decodeStepOutput("voice_analysis", out.Text, &parsed); err != nil {
		return nil, err
	}

	drafts := make([]VoiceLineDraft, len(parsed.VoiceLines))
	for i, vl := range parsed.VoiceLines {
		if strings.TrimSpace(vl.Character) == "" || strings.TrimSpace(vl.Line) == "" {
			return nil, fmt.Errorf("voice line %d is missing character or line", i)
		}
		if vl.StoryboardIndex < 0 || vl.StoryboardIndex >= len(in.Storyboards) {
			return nil, fmt.Errorf("voice line %d references unknown storyboard index %d", i, vl.StoryboardIndex)
		}
		unit := in.Storyboards[vl.StoryboardIndex]
		if vl.PanelIndex < 0 || vl.PanelIndex >= len(unit.Panels) {
			return nil, fmt.Errorf("voice line %d references unknown panel %d of storyboard %d", i, vl.PanelIndex, vl.StoryboardIndex)
		}
		drafts[i] = VoiceLineDraft{
			Index:     i,
			Character: vl.Character,
			Line:      vl.Line,
			Emotion:   vl.Emotion,
			MatchedPanel: PanelRef{
				StoryboardIndex: vl.StoryboardIndex,
				PanelIndex:      vl.PanelIndex,
			},
		}
	}
	return drafts, nil
}

func storyboardDigest(units []StoryboardUnit) string {
	var b strings.Builder
	for _, u := range units {
		fmt.Fprintf(&b, "[storyboard %d] %s: %s\n", u.Index, u.Title, u.Summary)
		for _, p := range u.Panels {
			fmt.Fprintf(&b, "  panel %d: %s\n", p.Index, p.Description)
		}
	}
	return b.String()
}
