package store

import (
	"testing"

	"github.com/novelreel/api/internal/pipeline"
)

func TestValidateClip(t *testing.T) {
	ok := pipeline.ClipDraft{ID: "clip-01", Index: 0, Summary: "Mira arrives"}
	if err := validateClip(ok); err != nil {
		t.Errorf("valid clip rejected: %v", err)
	}
	if err := validateClip(pipeline.ClipDraft{ID: "clip-01", Index: -1, Summary: "x"}); err == nil {
		t.Error("negative index accepted")
	}
	if err := validateClip(pipeline.ClipDraft{ID: "clip-01", Index: 0, Summary: "  "}); err == nil {
		t.Error("empty summary accepted")
	}
}

func TestValidateStoryboard(t *testing.T) {
	ok := pipeline.StoryboardUnit{ClipID: "c-1", Index: 0, Panels: []pipeline.PanelDraft{{}}}
	if err := validateStoryboard(ok); err != nil {
		t.Errorf("valid storyboard rejected: %v", err)
	}
	if err := validateStoryboard(pipeline.StoryboardUnit{Index: 0, Panels: []pipeline.PanelDraft{{}}}); err == nil {
		t.Error("missing clip reference accepted")
	}
	if err := validateStoryboard(pipeline.StoryboardUnit{ClipID: "c-1", Index: 0}); err == nil {
		t.Error("storyboard without panels accepted")
	}
}

func TestValidatePanel(t *testing.T) {
	ok := pipeline.PanelDraft{Index: 0, Description: "fog on the dock", DurationSec: 3.5}
	if err := validatePanel(0, ok); err != nil {
		t.Errorf("valid panel rejected: %v", err)
	}
	if err := validatePanel(0, pipeline.PanelDraft{Index: 0, Description: " "}); err == nil {
		t.Error("empty description accepted")
	}
	if err := validatePanel(0, pipeline.PanelDraft{Index: 0, Description: "x", DurationSec: -1}); err == nil {
		t.Error("negative duration accepted")
	}
	if err := validatePanel(0, pipeline.PanelDraft{Index: 0, Description: "x", DurationSec: 601}); err == nil {
		t.Error("out-of-range duration accepted")
	}
}

func TestValidateCharacterAndLocation(t *testing.T) {
	if err := validateCharacter(pipeline.AnalyzedCharacter{Name: "Mira"}); err != nil {
		t.Errorf("valid character rejected: %v", err)
	}
	if err := validateCharacter(pipeline.AnalyzedCharacter{Name: " "}); err == nil {
		t.Error("empty character name accepted")
	}
	if err := validateLocation(pipeline.AnalyzedLocation{Name: "Harbor"}); err != nil {
		t.Errorf("valid location rejected: %v", err)
	}
	if err := validateLocation(pipeline.AnalyzedLocation{}); err == nil {
		t.Error("empty location name accepted")
	}
}
