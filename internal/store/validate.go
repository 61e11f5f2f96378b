package store

import (
	"fmt"
	"strings"

	"github.com/novelreel/api/internal/pipeline"
)

// maxPanelDurationSec bounds a single shot; generated durations beyond this
// indicate a malformed generation, not a long shot.
const maxPanelDurationSec = 600

// Generated content that fails shape validation is never persisted with
// guessed defaults: each check aborts the surrounding transaction.

func validateCharacter(c pipeline.AnalyzedCharacter) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("character has an empty name")
	}
	return nil
}

func validateLocation(l pipeline.AnalyzedLocation) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("location has an empty name")
	}
	return nil
}

func validateClip(c pipeline.ClipDraft) error {
	if c.Index < 0 {
		return fmt.Errorf("clip %s has a negative index", c.ID)
	}
	if strings.TrimSpace(c.Summary) == "" {
		return fmt.Errorf("clip %s has an empty summary", c.ID)
	}
	return nil
}

func validateStoryboard(u pipeline.StoryboardUnit) error {
	if u.ClipID == "" {
		return fmt.Errorf("storyboard %d has no clip reference", u.Index)
	}
	if u.Index < 0 {
		return fmt.Errorf("storyboard for clip %s has a negative index", u.ClipID)
	}
	if len(u.Panels) == 0 {
		return fmt.Errorf("storyboard %d has no panels", u.Index)
	}
	return nil
}

func validatePanel(storyboardIndex int, p pipeline.PanelDraft) error {
	if p.Index < 0 {
		return fmt.Errorf("panel of storyboard %d has a negative index", storyboardIndex)
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("panel %d of storyboard %d has an empty description", p.Index, storyboardIndex)
	}
	if p.DurationSec < 0 || p.DurationSec > maxPanelDurationSec {
		return fmt.Errorf("panel %d of storyboard %d has duration %.1fs out of range", p.Index, storyboardIndex, p.DurationSec)
	}
	return nil
}

func validateVoiceLine(d pipeline.VoiceLineDraft) error {
	if strings.TrimSpace(d.Character) == "" {
		return fmt.Errorf("voice line %d has an empty character", d.Index)
	}
	if strings.TrimSpace(d.Line) == "" {
		return fmt.Errorf("voice line %d has an empty line", d.Index)
	}
	return nil
}
