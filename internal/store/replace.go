package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/pipeline"
)

// txTimeout bounds every multi-row write so a stuck transaction cannot hold
// locks open-ended.
const txTimeout = 15 * time.Second

// ReplaceScript writes a story-to-script result for an episode in one
// transaction: characters, locations and clips are deleted and recreated.
// This is a replace-set operation, not an incremental diff: entity identity
// is derived from content position, so there is nothing stable to diff
// against.
func (s *Store) ReplaceScript(ctx context.Context, episodeID string, res *pipeline.StoryToScriptResult) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range []string{"voice_lines", "storyboards", "clips", "locations", "characters"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE episode_id = $1`, episodeID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, c := range res.AnalyzedCharacters {
		if err := validateCharacter(c); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO characters (id, episode_id, name, role, appearance, personality) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), episodeID, c.Name, c.Role, c.Appearance, c.Personality)
		if err != nil {
			return fmt.Errorf("failed to insert character %q: %w", c.Name, err)
		}
	}

	for _, l := range res.AnalyzedLocations {
		if err := validateLocation(l); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO locations (id, episode_id, name, description, atmosphere) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), episodeID, l.Name, l.Description, l.Atmosphere)
		if err != nil {
			return fmt.Errorf("failed to insert location %q: %w", l.Name, err)
		}
	}

	screenplays := make(map[string]*pipeline.Screenplay, len(res.ScreenplayResults))
	for _, r := range res.ScreenplayResults {
		if r.Success {
			screenplays[r.ClipID] = r.Screenplay
		}
	}

	for _, clip := range res.ClipList {
		if err := validateClip(clip); err != nil {
			return err
		}
		sp, ok := screenplays[clip.ID]
		if !ok {
			return fmt.Errorf("clip %s has no screenplay", clip.ID)
		}
		spBytes, err := json.Marshal(sp)
		if err != nil {
			return fmt.Errorf("failed to marshal screenplay for %s: %w", clip.ID, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO clips (id, episode_id, idx, title, summary, source_excerpt, screenplay) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), episodeID, clip.Index, clip.Title, clip.Summary, clip.SourceExcerpt, spBytes)
		if err != nil {
			return fmt.Errorf("failed to insert clip %s: %w", clip.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// ReplaceStoryboards writes a script-to-storyboard result and its voice lines
// for an episode in one transaction. Existing storyboards, panels and voice
// lines are deleted and the full new set inserted. Every voice line's matched
// panel must resolve against the panels created in this same transaction; an
// unresolved reference aborts the whole write.
func (s *Store) ReplaceStoryboards(ctx context.Context, episodeID string, res *pipeline.ScriptToStoryboardResult, lines []pipeline.VoiceLineDraft) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Full replace: panels go with their storyboards via cascade.
	if _, err := tx.Exec(ctx, `DELETE FROM voice_lines WHERE episode_id = $1`, episodeID); err != nil {
		return fmt.Errorf("failed to clear voice_lines: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM storyboards WHERE episode_id = $1`, episodeID); err != nil {
		return fmt.Errorf("failed to clear storyboards: %w", err)
	}

	storyboardIDs := make([]string, len(res.Storyboards))
	panelIDs := make(map[string]string)

	for i, unit := range res.Storyboards {
		if err := validateStoryboard(unit); err != nil {
			return err
		}
		sbID := uuid.New().String()
		storyboardIDs[i] = sbID
		_, err := tx.Exec(ctx,
			`INSERT INTO storyboards (id, episode_id, clip_id, idx, title, summary, cinematography, acting_notes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sbID, episodeID, unit.ClipID, unit.Index, unit.Title, unit.Summary, unit.Cinematography, unit.ActingNotes)
		if err != nil {
			return fmt.Errorf("failed to insert storyboard %d: %w", unit.Index, err)
		}

		for _, panel := range unit.Panels {
			if err := validatePanel(unit.Index, panel); err != nil {
				return err
			}
			panelID := uuid.New().String()
			panelIDs[panelKey(sbID, panel.Index)] = panelID
			_, err := tx.Exec(ctx,
				`INSERT INTO panels (id, storyboard_id, idx, description, shot, camera_move, duration_sec)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				panelID, sbID, panel.Index, panel.Description, panel.Shot, panel.CameraMove, panel.DurationSec)
			if err != nil {
				return fmt.Errorf("failed to insert panel %d of storyboard %d: %w", panel.Index, unit.Index, err)
			}
		}
	}

	voiceLines, err := matchVoiceLines(episodeID, lines, storyboardIDs, panelIDs)
	if err != nil {
		return err
	}
	for _, vl := range voiceLines {
		_, err := tx.Exec(ctx,
			`INSERT INTO voice_lines (id, episode_id, idx, character_name, line, emotion, matched_panel_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			vl.ID, vl.EpisodeID, vl.Index, vl.Character, vl.Line, vl.Emotion, vl.MatchedPanelID)
		if err != nil {
			return fmt.Errorf("failed to insert voice line %d: %w", vl.Index, err)
		}
	}

	return tx.Commit(ctx)
}

// matchVoiceLines resolves each draft's matched panel against the lookup map
// built from the rows created in the current transaction, never against stale
// pre-transaction state. An unresolved composite key means the orchestrator
// output is corrupted, so the caller aborts the transaction.
func matchVoiceLines(episodeID string, drafts []pipeline.VoiceLineDraft, storyboardIDs []string, panelIDs map[string]string) ([]model.VoiceLine, error) {
	lines := make([]model.VoiceLine, 0, len(drafts))
	for _, d := range drafts {
		if err := validateVoiceLine(d); err != nil {
			return nil, err
		}
		ref := d.MatchedPanel
		if ref.StoryboardIndex < 0 || ref.StoryboardIndex >= len(storyboardIDs) {
			return nil, fmt.Errorf("voice line %d references unknown storyboard index %d", d.Index, ref.StoryboardIndex)
		}
		sbID := storyboardIDs[ref.StoryboardIndex]
		panelID, ok := panelIDs[panelKey(sbID, ref.PanelIndex)]
		if !ok {
			return nil, fmt.Errorf("voice line %d references missing panel %s:%d", d.Index, sbID, ref.PanelIndex)
		}
		lines = append(lines, model.VoiceLine{
			ID:             uuid.New().String(),
			EpisodeID:      episodeID,
			Index:          d.Index,
			Character:      d.Character,
			Line:           d.Line,
			Emotion:        d.Emotion,
			MatchedPanelID: panelID,
		})
	}
	return lines, nil
}

func panelKey(storyboardID string, panelIndex int) string {
	return fmt.Sprintf("%s:%d", storyboardID, panelIndex)
}
