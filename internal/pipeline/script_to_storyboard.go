package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/novelreel/api/internal/prompt"
)

// ClipScript is one persisted clip with its screenplay, the input unit of the
// script-to-storyboard workflow.
type ClipScript struct {
	ClipID     string
	Index      int
	Title      string
	Screenplay string
}

// ScriptToStoryboardInput carries everything the workflow needs.
type ScriptToStoryboardInput struct {
	EpisodeTitle string
	Clips        []ClipScript
	BuildPrompt  PromptBuilder
}

// PanelDraft is one shot within a storyboard unit. DetailError records a
// failed detail-expansion step; the panel keeps its planning-stage beat as the
// description in that case.
type PanelDraft struct {
	Index       int     `json:"index"`
	Description string  `json:"description"`
	Shot        string  `json:"shot"`
	CameraMove  string  `json:"cameraMove"`
	DurationSec float64 `json:"durationSec"`
	DetailError string  `json:"detailError,omitempty"`
}

// StoryboardUnit is the assembled shot plan for one clip
type StoryboardUnit struct {
	ClipID         string       `json:"clipId"`
	Index          int          `json:"index"`
	Title          string       `json:"title"`
	Summary        string       `json:"summary"`
	Cinematography string       `json:"cinematography"`
	ActingNotes    string       `json:"actingNotes"`
	Panels         []PanelDraft `json:"panels"`
}

// StoryboardSummary aggregates the run; counts are re-derived from the final
// per-panel records.
type StoryboardSummary struct {
	StoryboardCount   int `json:"storyboardCount"`
	PanelCount        int `json:"panelCount"`
	PanelSuccessCount int `json:"panelSuccessCount"`
	PanelFailedCount  int `json:"panelFailedCount"`
	TotalStepCount    int `json:"totalStepCount"`
}

// ScriptToStoryboardResult is the assembled output of one workflow run
type ScriptToStoryboardResult struct {
	Storyboards []StoryboardUnit `json:"storyboards"`
	Summary     StoryboardSummary
}

// RunScriptToStoryboard drives the script-to-storyboard workflow: one planning
// step, then cinematography and acting-direction per storyboard unit, then
// detail expansion per panel. Parse failures are fatal for the run; a failed
// detail-expansion completion is captured on the panel. A termination signal
// always aborts.
func RunScriptToStoryboard(ctx context.Context, in ScriptToStoryboardInput, step StepFunc) (*ScriptToStoryboardResult, error) {
	if len(in.Clips) == 0 {
		return nil, fmt.Errorf("no clips to storyboard")
	}

	units, err := planStoryboards(ctx, in, step)
	if err != nil {
		return nil, err
	}

	totalPanels := 0
	for _, u := range units {
		totalPanels += len(u.Panels)
	}
	// planning + (cinematography + acting) per unit + detail per panel
	total := 1 + 2*len(units) + totalPanels

	next := 1
	for i := range units {
		if err := directCinematography(ctx, in, &units[i], next, total, step); err != nil {
			return nil, err
		}
		next++
		if err := directActing(ctx, in, &units[i], next, total, step); err != nil {
			return nil, err
		}
		next++
	}

	for i := range units {
		for j := range units[i].Panels {
			err := expandPanel(ctx, in, &units[i], &units[i].Panels[j], next, total, step)
			next++
			if err != nil {
				if IsTerminated(err) {
					return nil, err
				}
				if _, ok := AsParseError(err); ok {
					return nil, err
				}
				units[i].Panels[j].DetailError = err.Error()
			}
		}
	}

	res := &ScriptToStoryboardResult{Storyboards: units}
	res.Summary = summarizeStoryboards(res)
	return res, nil
}

func summarizeStoryboards(res *ScriptToStoryboardResult) StoryboardSummary {
	s := StoryboardSummary{StoryboardCount: len(res.Storyboards)}
	for _, u := range res.Storyboards {
		for _, p := range u.Panels {
			s.PanelCount++
			if p.DetailError == "" {
				s.PanelSuccessCount++
			} else {
				s.PanelFailedCount++
			}
		}
	}
	s.TotalStepCount = 1 + 2*s.StoryboardCount + s.PanelCount
	return s
}

// planStoryboards runs the single planning step and seeds one storyboard unit
// per clip with its panel skeleton.
func planStoryboards(ctx context.Context, in ScriptToStoryboardInput, step StepFunc) ([]StoryboardUnit, error) {
	p, err := in.BuildPrompt(prompt.StoryboardPlan, map[string]string{
		"episode_title": in.EpisodeTitle,
		"screenplays":   screenplayDigest(in.Clips),
	})
	if err != nil {
		return nil, err
	}

	meta := StepMeta{ID: "storyboard_plan", Title: "Planning storyboards", Index: 0, Total: 1 + 3*len(in.Clips)}
	out, err := step(ctx, meta, p, "storyboard_plan", 8192)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Storyboards []struct {
			ClipIndex int    `json:"clipIndex"`
			Title     string `json:"title"`
			Summary   string `json:"summary"`
			Panels    []struct {
				Beat string `json:"beat"`
			} `json:"panels"`
		} `json:"storyboards"`
	}
	if err := decodeStepOutput("storyboard_plan", out.Text, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Storyboards) == 0 {
		return nil, fmt.Errorf("storyboard planning returned no storyboards")
	}

	clipsByIndex := make(map[int]ClipScript, len(in.Clips))
	for _, c := range in.Clips {
		clipsByIndex[c.Index] = c
	}

	units := make([]StoryboardUnit, len(parsed.Storyboards))
	for i, sb := range parsed.Storyboards {
		clip, ok := clipsByIndex[sb.ClipIndex]
		if !ok {
			return nil, fmt.Errorf("storyboard plan references unknown clip index %d", sb.ClipIndex)
		}
		if len(sb.Panels) == 0 {
			return nil, fmt.Errorf("storyboard plan for clip %d has no panels", sb.ClipIndex)
		}
		panels := make([]PanelDraft, len(sb.Panels))
		for j, pn := range sb.Panels {
			panels[j] = PanelDraft{Index: j, Description: pn.Beat}
		}
		units[i] = StoryboardUnit{
			ClipID:  clip.ClipID,
			Index:   i,
			Title:   sb.Title,
			Summary: sb.Summary,
			Panels:  panels,
		}
	}
	return units, nil
}

func directCinematography(ctx context.Context, in ScriptToStoryboardInput, unit *StoryboardUnit, index, total int, step StepFunc) error {
	p, err := in.BuildPrompt(prompt.Cinematography, map[string]string{
		"episode_title": in.EpisodeTitle,
		"unit_title":    unit.Title,
		"unit_summary":  unit.Summary,
		"panel_beats":   panelBeats(unit.Panels),
	})
	if err != nil {
		return err
	}

	meta := StepMeta{
		ID:    fmt.Sprintf("cinematography_%02d", unit.Index+1),
		Title: fmt.Sprintf("Cinematography for %s", unit.Title),
		Index: index,
		Total: total,
	}
	out, err := step(ctx, meta, p, "cinematography", 4096)
	if err != nil {
		return err
	}

	var parsed struct {
		Overview string `json:"overview"`
		Shots    []struct {
			Shot        string  `json:"shot"`
			CameraMove  string  `json:"cameraMove"`
			DurationSec float64 `json:"durationSec"`
		} `json:"shots"`
	}
	if err := decodeStepOutput("cinematography", out.Text, &parsed); err != nil {
		return err
	}
	if len(parsed.Shots) != len(unit.Panels) {
		return fmt.Errorf("cinematography returned %d shots for %d panels of storyboard %d",
			len(parsed.Shots), len(unit.Panels), unit.Index)
	}

	unit.Cinematography = parsed.Overview
	for j, shot := range parsed.Shots {
		unit.Panels[j].Shot = shot.Shot
		unit.Panels[j].CameraMove = shot.CameraMove
		unit.Panels[j].DurationSec = shot.DurationSec
	}
	return nil
}

func directActing(ctx context.Context, in ScriptToStoryboardInput, unit *StoryboardUnit, index, total int, step StepFunc) error {
	p, err := in.BuildPrompt(prompt.ActingDirection, map[string]string{
		"episode_title": in.EpisodeTitle,
		"unit_title":    unit.Title,
		"unit_summary":  unit.Summary,
		"panel_beats":   panelBeats(unit.Panels),
	})
	if err != nil {
		return err
	}

	meta := StepMeta{
		ID:    fmt.Sprintf("acting_%02d", unit.Index+1),
		Title: fmt.Sprintf("Acting direction for %s", unit.Title),
		Index: index,
		Total: total,
	}
	out, err := step(ctx, meta, p, "acting_direction", 2048)
	if err != nil {
		return err
	}

	var parsed struct {
		ActingNotes string `json:"actingNotes"`
	}
	if err := decodeStepOutput("acting_direction", out.Text, &parsed); err != nil {
		return err
	}
	if strings.TrimSpace(parsed.ActingNotes) == "" {
		return fmt.Errorf("acting direction for storyboard %d is empty", unit.Index)
	}
	unit.ActingNotes = parsed.ActingNotes
	return nil
}

func expandPanel(ctx context.Context, in ScriptToStoryboardInput, unit *StoryboardUnit, panel *PanelDraft, index, total int, step StepFunc) error {
	p, err := in.BuildPrompt(prompt.PanelDetail, map[string]string{
		"unit_title":  unit.Title,
		"panel_beat":  panel.Description,
		"shot":        panel.Shot,
		"camera_move": panel.CameraMove,
	})
	if err != nil {
		return err
	}

	meta := StepMeta{
		ID:    fmt.Sprintf("panel_%02d_%02d", unit.Index+1, panel.Index+1),
		Title: fmt.Sprintf("Detailing panel %d of %s", panel.Index+1, unit.Title),
		Index: index,
		Total: total,
	}
	out, err := step(ctx, meta, p, "panel_detail", 1024)
	if err != nil {
		return err
	}

	var parsed struct {
		Description string `json:"description"`
	}
	if err := decodeStepOutput("panel_detail", out.Text, &parsed); err != nil {
		return err
	}
	if strings.TrimSpace(parsed.Description) == "" {
		return fmt.Errorf("panel detail is empty")
	}
	panel.Description = parsed.Description
	return nil
}

func screenplayDigest(clips []ClipScript) string {
	parts := make([]string, len(clips))
	for i, c := range clips {
		parts[i] = fmt.Sprintf("[clip %d] %s\n%s", c.Index, c.Title, c.Screenplay)
	}
	return strings.Join(parts, "\n\n")
}

func panelBeats(panels []PanelDraft) string {
	parts := make([]string, len(panels))
	for i, p := range panels {
		parts[i] = fmt.Sprintf("%d. %s", p.Index+1, p.Description)
	}
	return strings.Join(parts, "\n")
}
