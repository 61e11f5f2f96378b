package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/novelreel/api/internal/prompt"
)

// StoryToScriptInput carries everything the story-to-script workflow needs.
type StoryToScriptInput struct {
	EpisodeTitle string
	NovelText    string
	BuildPrompt  PromptBuilder
}

// AnalyzedCharacter is a character profile extracted in step 1
type AnalyzedCharacter struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Appearance  string `json:"appearance"`
	Personality string `json:"personality"`
}

// AnalyzedLocation is a scene location selected in step 2
type AnalyzedLocation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Atmosphere  string `json:"atmosphere"`
}

// ClipDraft is one segment of the episode produced by clip segmentation.
// Clip identity is positional: IDs are derived from the index so the assembly
// is deterministic for identical step outputs.
type ClipDraft struct {
	ID            string `json:"id"`
	Index         int    `json:"index"`
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	SourceExcerpt string `json:"sourceExcerpt"`
}

// DialogueLine is one spoken line within a screenplay
type DialogueLine struct {
	Character string `json:"character"`
	Line      string `json:"line"`
	Emotion   string `json:"emotion"`
}

// Screenplay is the converted shot-ready script for one clip
type Screenplay struct {
	SceneHeading string         `json:"sceneHeading"`
	Action       string         `json:"action"`
	Dialogue     []DialogueLine `json:"dialogue"`
}

// ScreenplayResult is the per-clip outcome of step 4. Exactly one of
// Screenplay and Error is set: failures are captured as data, never thrown.
type ScreenplayResult struct {
	ClipID     string      `json:"clipId"`
	Success    bool        `json:"success"`
	Screenplay *Screenplay `json:"screenplay,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// StoryToScriptSummary aggregates the run. Counts are re-derived from the
// final per-item records, never incremented during iteration.
type StoryToScriptSummary struct {
	ClipCount              int `json:"clipCount"`
	ScreenplaySuccessCount int `json:"screenplaySuccessCount"`
	ScreenplayFailedCount  int `json:"screenplayFailedCount"`
	TotalStepCount         int `json:"totalStepCount"`
}

// StoryToScriptResult is the assembled output of one workflow run
type StoryToScriptResult struct {
	AnalyzedCharacters []AnalyzedCharacter `json:"analyzedCharacters"`
	AnalyzedLocations  []AnalyzedLocation  `json:"analyzedLocations"`
	ClipList           []ClipDraft         `json:"clipList"`
	ScreenplayResults  []ScreenplayResult  `json:"screenplayResults"`
	Summary            StoryToScriptSummary
}

// Fixed steps before the per-clip fan-out: characters, locations, segmentation.
const storyFixedSteps = 3

// RunStoryToScript drives the story-to-script workflow: character-profile
// extraction, location selection, clip segmentation, then one screenplay
// conversion step per clip. A failing clip is recorded in ScreenplayResults
// instead of aborting the run; a termination signal always aborts.
func RunStoryToScript(ctx context.Context, in StoryToScriptInput, step StepFunc) (*StoryToScriptResult, error) {
	if strings.TrimSpace(in.NovelText) == "" {
		return nil, fmt.Errorf("novel text is empty")
	}

	// Step 1: character profiles
	characters, err := analyzeCharacters(ctx, in, step)
	if err != nil {
		return nil, err
	}

	// Step 2: location selection
	locations, err := selectLocations(ctx, in, step)
	if err != nil {
		return nil, err
	}

	// Step 3: clip segmentation
	clips, err := segmentClips(ctx, in, step)
	if err != nil {
		return nil, err
	}

	// Step 4: screenplay conversion, once per clip. Per-clip errors become
	// failure records so one bad clip cannot discard the rest.
	total := storyFixedSteps + len(clips)
	results := make([]ScreenplayResult, 0, len(clips))
	for i, clip := range clips {
		sp, err := convertClip(ctx, in, clip, characters, locations, storyFixedSteps+i, total, step)
		if err != nil {
			if IsTerminated(err) {
				return nil, err
			}
			results = append(results, ScreenplayResult{ClipID: clip.ID, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, ScreenplayResult{ClipID: clip.ID, Success: true, Screenplay: sp})
	}

	res := &StoryToScriptResult{
		AnalyzedCharacters: characters,
		AnalyzedLocations:  locations,
		ClipList:           clips,
		ScreenplayResults:  results,
	}
	res.Summary = summarizeStoryToScript(res)
	return res, nil
}

func summarizeStoryToScript(res *StoryToScriptResult) StoryToScriptSummary {
	s := StoryToScriptSummary{
		ClipCount:      len(res.ClipList),
		TotalStepCount: storyFixedSteps + len(res.ClipList),
	}
	for _, r := range res.ScreenplayResults {
		if r.Success {
			s.ScreenplaySuccessCount++
		} else {
			s.ScreenplayFailedCount++
		}
	}
	return s
}

func analyzeCharacters(ctx context.Context, in StoryToScriptInput, step StepFunc) ([]AnalyzedCharacter, error) {
	p, err := in.BuildPrompt(prompt.CharacterProfiles, map[string]string{
		"episode_title": in.EpisodeTitle,
		"novel_text":    in.NovelText,
	})
	if err != nil {
		return nil, err
	}

	meta := StepMeta{ID: "character_profiles", Title: "Analyzing characters", Index: 0, Total: storyFixedSteps + 1}
	out, err := step(ctx, meta, p, "character_profiles", 4096)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Characters []AnalyzedCharacter `json:"characters"`
	}
	if err := decodeStepOutput("character_profiles", out.Text, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Characters) == 0 {
		return nil, fmt.Errorf("character analysis returned no characters")
	}
	return parsed.Characters, nil
}

func selectLocations(ctx context.Context, in StoryToScriptInput, step StepFunc) ([]AnalyzedLocation, error) {
	p, err := in.BuildPrompt(prompt.LocationSelection, map[string]string{
		"episode_title": in.EpisodeTitle,
		"novel_text":    in.NovelText,
	})
	if err != nil {
		return nil, err
	}

	meta := StepMeta{ID: "location_selection", Title: "Selecting locations", Index: 1, Total: storyFixedSteps + 1}
	out, err := step(ctx, meta, p, "location_selection", 4096)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Locations []AnalyzedLocation `json:"locations"`
	}
	if err := decodeStepOutput("location_selection", out.Text, &parsed); err != nil {
		return nil, err
	}
	return parsed.Locations, nil
}

func segmentClips(ctx context.Context, in StoryToScriptInput, step StepFunc) ([]ClipDraft, error) {
	p, err := in.BuildPrompt(prompt.ClipSegmentation, map[string]string{
		"episode_title": in.EpisodeTitle,
		"novel_text":    in.NovelText,
	})
	if err != nil {
		return nil, err
	}

	meta := StepMeta{ID: "clip_segmentation", Title: "Segmenting clips", Index: 2, Total: storyFixedSteps + 1}
	out, err := step(ctx, meta, p, "clip_segmentation", 8192)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Clips []struct {
			Title         string `json:"title"`
			Summary       string `json:"summary"`
			SourceExcerpt string `json:"sourceExcerpt"`
		} `json:"clips"`
	}
	if err := decodeStepOutput("clip_segmentation", out.Text, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Clips) == 0 {
		return nil, fmt.Errorf("clip segmentation returned no clips")
	}

	clips := make([]ClipDraft, len(parsed.Clips))
	for i, c := range parsed.Clips {
		if strings.TrimSpace(c.Summary) == "" {
			return nil, fmt.Errorf("clip %d has an empty summary", i+1)
		}
		clips[i] = ClipDraft{
			ID:            fmt.Sprintf("clip-%02d", i+1),
			Index:         i,
			Title:         c.Title,
			Summary:       c.Summary,
			SourceExcerpt: c.SourceExcerpt,
		}
	}
	return clips, nil
}

func convertClip(ctx context.Context, in StoryToScriptInput, clip ClipDraft, characters []AnalyzedCharacter, locations []AnalyzedLocation, index, total int, step StepFunc) (*Screenplay, error) {
	p, err := in.BuildPrompt(prompt.ScreenplayConversion, map[string]string{
		"episode_title":  in.EpisodeTitle,
		"clip_title":     clip.Title,
		"clip_summary":   clip.Summary,
		"source_excerpt": clip.SourceExcerpt,
		"characters":     characterDigest(characters),
		"locations":      locationDigest(locations),
	})
	if err != nil {
		return nil, err
	}

	meta := StepMeta{
		ID:    fmt.Sprintf("screenplay_%s", clip.ID),
		Title: fmt.Sprintf("Converting %s", clip.Title),
		Index: index,
		Total: total,
	}
	out, err := step(ctx, meta, p, "screenplay_conversion", 4096)
	if err != nil {
		return nil, err
	}

	var sp Screenplay
	if err := decodeStepOutput("screenplay_conversion", out.Text, &sp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sp.SceneHeading) == "" && strings.TrimSpace(sp.Action) == "" {
		return nil, fmt.Errorf("screenplay for %s is empty", clip.ID)
	}
	return &sp, nil
}

func characterDigest(characters []AnalyzedCharacter) string {
	parts := make([]string, len(characters))
	for i, c := range characters {
		parts[i] = fmt.Sprintf("%s (%s): %s", c.Name, c.Role, c.Personality)
	}
	return strings.Join(parts, "\n")
}

func locationDigest(locations []AnalyzedLocation) string {
	parts := make([]string, len(locations))
	for i, l := range locations {
		parts[i] = fmt.Sprintf("%s: %s", l.Name, l.Description)
	}
	return strings.Join(parts, "\n")
}
