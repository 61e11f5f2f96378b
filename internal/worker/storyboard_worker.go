package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/pipeline"
)

// Voice analysis is one large structured-output step at the tail of an
// otherwise finished run, so a transient failure gets a second attempt
// instead of discarding the whole run.
const voiceAnalysisAttempts = 2

// StoryboardWorker handles script-to-storyboard generation tasks.
type StoryboardWorker struct {
	Deps
}

func NewStoryboardWorker(deps Deps) *StoryboardWorker {
	return &StoryboardWorker{Deps: deps}
}

// ProcessTask implements asynq.Handler.
func (w *StoryboardWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	jobID, data, err := decodeEnvelope(t.Payload())
	if err != nil {
		return err
	}
	result, err := w.handle(ctx, jobID, data)
	return w.conclude(ctx, jobID, data.TaskID, result, err)
}

func (w *StoryboardWorker) handle(ctx context.Context, jobID string, data *model.TaskJobData) (*model.ScriptToStoryboardTaskResult, error) {
	if data.EpisodeID == "" {
		return nil, fmt.Errorf("episodeId is required")
	}

	w.checkpoint(ctx, jobID, 5, "Loading clips")

	project, err := w.Store.GetProject(ctx, data.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Mode != model.ModeNovelPromotion {
		return nil, fmt.Errorf("project %s has mode %q, script-to-storyboard requires %q",
			project.ID, project.Mode, model.ModeNovelPromotion)
	}
	episode, err := w.Store.GetEpisode(ctx, data.EpisodeID)
	if err != nil {
		return nil, err
	}

	clips, err := w.loadClipScripts(ctx, data.EpisodeID)
	if err != nil {
		return nil, err
	}

	override, err := data.Payload.OptionalString("analysisModel")
	if err != nil {
		return nil, err
	}
	modelKey, err := w.Models.ResolveAnalysisModel(ctx, override, project, data.UserID)
	if err != nil {
		return nil, err
	}
	opts, err := w.Models.ResolveGenerationOptions(ctx, data.UserID, modelKey)
	if err != nil {
		return nil, err
	}

	w.checkpoint(ctx, jobID, 10, "Starting generation")

	runner := newStepRunner(jobID, data.TaskID, data.UserID, modelKey, opts,
		w.Tasks, w.LLM, w.Audit, w.Hub)
	buildPrompt := w.promptBuilder(data.Locale)

	res, err := pipeline.RunScriptToStoryboard(ctx, pipeline.ScriptToStoryboardInput{
		EpisodeTitle: episode.Title,
		Clips:        clips,
		BuildPrompt:  buildPrompt,
	}, runner.run)
	if err != nil {
		return nil, err
	}

	w.checkpoint(ctx, jobID, 75, "Evaluating results")

	if res.Summary.PanelFailedCount > 0 {
		var failures []pipeline.FailurePreview
		for _, u := range res.Storyboards {
			for _, p := range u.Panels {
				if p.DetailError != "" {
					failures = append(failures, pipeline.FailurePreview{
						ID:     fmt.Sprintf("%d:%d", u.Index, p.Index),
						Reason: p.DetailError,
					})
				}
			}
		}
		return nil, pipeline.NewPartialFailure("SCRIPT_TO_STORYBOARD_PARTIAL_FAILED", res.Summary.PanelCount, failures)
	}

	lines, err := w.analyzeVoiceLines(ctx, jobID, episode.Title, res, buildPrompt, runner)
	if err != nil {
		return nil, err
	}

	if err := w.Tasks.AssertActive(ctx, jobID, "persist"); err != nil {
		return nil, err
	}
	exists, err := w.Store.EpisodeExists(ctx, data.EpisodeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("NOT_FOUND: episode %s no longer exists", data.EpisodeID)
	}

	w.checkpoint(ctx, jobID, 80, "Saving storyboards")

	if err := w.Store.ReplaceStoryboards(ctx, data.EpisodeID, res, lines); err != nil {
		return nil, err
	}

	w.checkpoint(ctx, jobID, 96, "Finalizing")

	return &model.ScriptToStoryboardTaskResult{
		StoryboardCount:   res.Summary.StoryboardCount,
		PanelCount:        res.Summary.PanelCount,
		PanelSuccessCount: res.Summary.PanelSuccessCount,
		PanelFailedCount:  res.Summary.PanelFailedCount,
		VoiceLineCount:    len(lines),
		TotalStepCount:    res.Summary.TotalStepCount + 1,
	}, nil
}

// loadClipScripts loads the persisted clips and requires every one to carry a
// screenplay from a completed story-to-script run.
func (w *StoryboardWorker) loadClipScripts(ctx context.Context, episodeID string) ([]pipeline.ClipScript, error) {
	clips, err := w.Store.GetEpisodeClips(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("no clips found for episode %s; run story-to-script first", episodeID)
	}

	scripts := make([]pipeline.ClipScript, len(clips))
	for i, c := range clips {
		if len(c.Screenplay) == 0 || string(c.Screenplay) == "null" {
			return nil, fmt.Errorf("clip %s has no screenplay", c.ID)
		}
		scripts[i] = pipeline.ClipScript{
			ClipID:     c.ID,
			Index:      c.Index,
			Title:      c.Title,
			Screenplay: string(c.Screenplay),
		}
	}
	return scripts, nil
}

// analyzeVoiceLines runs the voice-analysis step with a bounded retry.
// Termination ends the loop immediately and is never retried.
func (w *StoryboardWorker) analyzeVoiceLines(ctx context.Context, jobID, episodeTitle string,
	res *pipeline.ScriptToStoryboardResult, buildPrompt pipeline.PromptBuilder, runner *stepRunner) ([]pipeline.VoiceLineDraft, error) {

	in := pipeline.VoiceAnalysisInput{
		EpisodeTitle: episodeTitle,
		Storyboards:  res.Storyboards,
		BuildPrompt:  buildPrompt,
		StepIndex:    res.Summary.TotalStepCount,
		StepTotal:    res.Summary.TotalStepCount + 1,
	}

	var lines []pipeline.VoiceLineDraft
	var err error
	for attempt := 0; attempt < voiceAnalysisAttempts; attempt++ {
		in.Attempt = attempt
		lines, err = pipeline.RunVoiceAnalysis(ctx, in, runner.run)
		if err == nil {
			return lines, nil
		}
		if pipeline.IsTerminated(err) {
			return nil, err
		}
		if attempt < voiceAnalysisAttempts-1 {
			log.Warn().Err(err).Str("jobId", jobID).Int("attempt", attempt).
				Msg("voice analysis failed, retrying")
		}
	}
	return nil, fmt.Errorf("voice analysis failed after %d attempts: %w", voiceAnalysisAttempts, err)
}
