package worker

import (
	"context"

	"github.com/novelreel/api/internal/client"
	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/pipeline"
)

// TaskLifecycle is the task-queue contract the handlers depend on: progress is
// best-effort, AssertActive is the synchronous cancellation gate.
type TaskLifecycle interface {
	AssertActive(ctx context.Context, jobID, checkpoint string) error
	UpdateProgress(ctx context.Context, jobID string, percent int, meta model.ProgressMeta) error
	CompleteJob(ctx context.Context, jobID string, result interface{}) error
	FailJob(ctx context.Context, jobID string, errMsg string) error
}

// EntityStore is the narrow read/write contract over persistent storage.
type EntityStore interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetEpisode(ctx context.Context, id string) (*model.Episode, error)
	EpisodeExists(ctx context.Context, id string) (bool, error)
	GetEpisodeClips(ctx context.Context, episodeID string) ([]model.Clip, error)
	ReplaceScript(ctx context.Context, episodeID string, res *pipeline.StoryToScriptResult) error
	ReplaceStoryboards(ctx context.Context, episodeID string, res *pipeline.ScriptToStoryboardResult, lines []pipeline.VoiceLineDraft) error
}

// ModelResolver resolves the analysis model and its generation options.
type ModelResolver interface {
	ResolveAnalysisModel(ctx context.Context, override string, project *model.Project, userID string) (string, error)
	ResolveGenerationOptions(ctx context.Context, userID, modelKey string) (client.GenerationOptions, error)
}

// CompletionClient performs the outbound LLM call.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, userID, modelKey string, messages []client.ChatMessage, opts client.GenerationOptions) (*client.Completion, error)
}

// ProgressBroadcaster pushes job progress to subscribed clients.
type ProgressBroadcaster interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, stage string)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID, code, message string)
}
