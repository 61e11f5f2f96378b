package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/pipeline"
)

// StoryScriptWorker handles story-to-script generation tasks.
type StoryScriptWorker struct {
	Deps
}

func NewStoryScriptWorker(deps Deps) *StoryScriptWorker {
	return &StoryScriptWorker{Deps: deps}
}

// ProcessTask implements asynq.Handler.
func (w *StoryScriptWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	jobID, data, err := decodeEnvelope(t.Payload())
	if err != nil {
		return err
	}
	result, err := w.handle(ctx, jobID, data)
	return w.conclude(ctx, jobID, data.TaskID, result, err)
}

func (w *StoryScriptWorker) handle(ctx context.Context, jobID string, data *model.TaskJobData) (*model.StoryToScriptTaskResult, error) {
	if data.EpisodeID == "" {
		return nil, fmt.Errorf("episodeId is required")
	}

	w.checkpoint(ctx, jobID, 5, "Loading episode")

	project, err := w.Store.GetProject(ctx, data.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Mode != model.ModeNovelPromotion {
		return nil, fmt.Errorf("project %s has mode %q, story-to-script requires %q",
			project.ID, project.Mode, model.ModeNovelPromotion)
	}

	episode, err := w.Store.GetEpisode(ctx, data.EpisodeID)
	if err != nil {
		return nil, err
	}
	if episode.NovelText == "" {
		return nil, fmt.Errorf("episode %s has no novel text", episode.ID)
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

	res, err := pipeline.RunStoryToScript(ctx, pipeline.StoryToScriptInput{
		EpisodeTitle: episode.Title,
		NovelText:    episode.NovelText,
		BuildPrompt:  w.promptBuilder(data.Locale),
	}, runner.run)
	if err != nil {
		return nil, err
	}

	w.checkpoint(ctx, jobID, 75, "Evaluating results")

	// Persistence requires every clip's screenplay; a run with any failed clip
	// is reported whole, never half-written.
	if res.Summary.ScreenplayFailedCount > 0 {
		var failures []pipeline.FailurePreview
		for _, r := range res.ScreenplayResults {
			if !r.Success {
				failures = append(failures, pipeline.FailurePreview{ID: r.ClipID, Reason: r.Error})
			}
		}
		return nil, pipeline.NewPartialFailure("STORY_TO_SCRIPT_PARTIAL_FAILED", res.Summary.ClipCount, failures)
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

	w.checkpoint(ctx, jobID, 80, "Saving script")

	if err := w.Store.ReplaceScript(ctx, data.EpisodeID, res); err != nil {
		return nil, err
	}

	w.checkpoint(ctx, jobID, 96, "Finalizing")

	return &model.StoryToScriptTaskResult{
		CharacterCount:         len(res.AnalyzedCharacters),
		LocationCount:          len(res.AnalyzedLocations),
		ClipCount:              res.Summary.ClipCount,
		ScreenplaySuccessCount: res.Summary.ScreenplaySuccessCount,
		ScreenplayFailedCount:  res.Summary.ScreenplayFailedCount,
		TotalStepCount:         res.Summary.TotalStepCount,
	}, nil
}
