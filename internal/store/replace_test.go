package store

import (
	"strings"
	"testing"

	"github.com/novelreel/api/internal/pipeline"
)

func matchInput() ([]pipeline.VoiceLineDraft, []string, map[string]string) {
	drafts := []pipeline.VoiceLineDraft{
		{Index: 0, Character: "Mira", Line: "Wait!", Emotion: "urgent",
			MatchedPanel: pipeline.PanelRef{StoryboardIndex: 0, PanelIndex: 1}},
		{Index: 1, Character: "Joss", Line: "Too late.",
			MatchedPanel: pipeline.PanelRef{StoryboardIndex: 1, PanelIndex: 0}},
	}
	storyboardIDs := []string{"sb-a", "sb-b"}
	panelIDs := map[string]string{
		panelKey("sb-a", 0): "pn-1",
		panelKey("sb-a", 1): "pn-2",
		panelKey("sb-b", 0): "pn-3",
	}
	return drafts, storyboardIDs, panelIDs
}

func TestMatchVoiceLines_ResolvesAgainstNewPanels(t *testing.T) {
	drafts, sbIDs, panelIDs := matchInput()

	lines, err := matchVoiceLines("ep-1", drafts, sbIDs, panelIDs)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].MatchedPanelID != "pn-2" {
		t.Errorf("line 0 matched %s, want pn-2", lines[0].MatchedPanelID)
	}
	if lines[1].MatchedPanelID != "pn-3" {
		t.Errorf("line 1 matched %s, want pn-3", lines[1].MatchedPanelID)
	}
	if lines[0].EpisodeID != "ep-1" || lines[0].ID == "" {
		t.Errorf("line identity not assigned: %+v", lines[0])
	}
}

func TestMatchVoiceLines_UnknownStoryboardIndex(t *testing.T) {
	drafts, sbIDs, panelIDs := matchInput()
	drafts[1].MatchedPanel.StoryboardIndex = 7

	_, err := matchVoiceLines("ep-1", drafts, sbIDs, panelIDs)
	if err == nil {
		t.Fatal("expected error for out-of-range storyboard index")
	}
}

func TestMatchVoiceLines_MissingPanelAborts(t *testing.T) {
	drafts, sbIDs, panelIDs := matchInput()
	drafts[1].MatchedPanel.PanelIndex = 9

	_, err := matchVoiceLines("ep-1", drafts, sbIDs, panelIDs)
	if err == nil {
		t.Fatal("expected error for missing panel reference")
	}
	if !strings.Contains(err.Error(), "references missing panel sb-b:9") {
		t.Errorf("error must name the composite key: %v", err)
	}
}

func TestMatchVoiceLines_InvalidDraft(t *testing.T) {
	drafts, sbIDs, panelIDs := matchInput()
	drafts[0].Character = "  "

	if _, err := matchVoiceLines("ep-1", drafts, sbIDs, panelIDs); err == nil {
		t.Fatal("expected validation error for empty character")
	}
}
