package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/novelreel/api/internal/audit"
	"github.com/novelreel/api/internal/client"
	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/pipeline"
	"github.com/novelreel/api/internal/prompt"
)

// fakeTasks implements TaskLifecycle in memory
type fakeTasks struct {
	progress []int
	stages   []string

	completed       bool
	completedResult interface{}
	failed          bool
	failMessage     string

	// terminateAt makes AssertActive fail once this checkpoint is reached
	terminateAt string
	jobID       string
}

func (f *fakeTasks) AssertActive(ctx context.Context, jobID, checkpoint string) error {
	if f.terminateAt != "" && f.terminateAt == checkpoint {
		return &pipeline.TerminatedError{JobID: jobID, Checkpoint: checkpoint}
	}
	return nil
}

func (f *fakeTasks) UpdateProgress(ctx context.Context, jobID string, percent int, meta model.ProgressMeta) error {
	f.progress = append(f.progress, percent)
	f.stages = append(f.stages, meta.Stage)
	return nil
}

func (f *fakeTasks) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	f.completed = true
	f.completedResult = result
	return nil
}

func (f *fakeTasks) FailJob(ctx context.Context, jobID string, errMsg string) error {
	f.failed = true
	f.failMessage = errMsg
	return nil
}

// fakeStore implements EntityStore over fixed fixtures
type fakeStore struct {
	project *model.Project
	episode *model.Episode
	clips   []model.Clip

	// episodeVanished simulates deletion between generation and persistence
	episodeVanished bool

	replacedScript      *pipeline.StoryToScriptResult
	replacedStoryboards *pipeline.ScriptToStoryboardResult
	replacedVoiceLines  []pipeline.VoiceLineDraft
}

func (f *fakeStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, fmt.Errorf("project %s not found", id)
	}
	return f.project, nil
}

func (f *fakeStore) GetEpisode(ctx context.Context, id string) (*model.Episode, error) {
	if f.episode == nil || f.episode.ID != id {
		return nil, fmt.Errorf("episode %s not found", id)
	}
	return f.episode, nil
}

func (f *fakeStore) EpisodeExists(ctx context.Context, id string) (bool, error) {
	return !f.episodeVanished, nil
}

func (f *fakeStore) GetEpisodeClips(ctx context.Context, episodeID string) ([]model.Clip, error) {
	return f.clips, nil
}

func (f *fakeStore) ReplaceScript(ctx context.Context, episodeID string, res *pipeline.StoryToScriptResult) error {
	f.replacedScript = res
	return nil
}

func (f *fakeStore) ReplaceStoryboards(ctx context.Context, episodeID string, res *pipeline.ScriptToStoryboardResult, lines []pipeline.VoiceLineDraft) error {
	f.replacedStoryboards = res
	f.replacedVoiceLines = lines
	return nil
}

// fakeModels implements ModelResolver
type fakeModels struct {
	modelKey string
	err      error
}

func (f *fakeModels) ResolveAnalysisModel(ctx context.Context, override string, project *model.Project, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if override != "" {
		return override, nil
	}
	if project.AnalysisModel != nil && *project.AnalysisModel != "" {
		return *project.AnalysisModel, nil
	}
	return f.modelKey, nil
}

func (f *fakeModels) ResolveGenerationOptions(ctx context.Context, userID, modelKey string) (client.GenerationOptions, error) {
	return client.GenerationOptions{Temperature: 0.7}, nil
}

// fakeLLM answers with canned JSON per action-identifying prompt marker. The
// prompt body is built from real templates, so responses are selected by the
// step counter instead.
type fakeLLM struct {
	responses []string
	calls     int

	// failCalls holds 1-based call ordinals that fail
	failCalls map[int]error
}

func (f *fakeLLM) ChatCompletion(ctx context.Context, userID, modelKey string, messages []client.ChatMessage, opts client.GenerationOptions) (*client.Completion, error) {
	f.calls++
	if err, ok := f.failCalls[f.calls]; ok {
		return nil, err
	}
	if f.calls > len(f.responses) {
		return nil, fmt.Errorf("unexpected completion call %d", f.calls)
	}
	raw := fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%s}}]}`,
		strconv.Quote(f.responses[f.calls-1]))
	var completion client.Completion
	if err := json.Unmarshal([]byte(raw), &completion); err != nil {
		return nil, err
	}
	return &completion, nil
}

// fakeHub records broadcasts
type fakeHub struct {
	errors    []string
	completes int
}

func (f *fakeHub) BroadcastProgress(jobID string, progress int, status model.JobStatus, stage string) {}

func (f *fakeHub) BroadcastComplete(jobID string, result interface{}) {
	f.completes++
}

func (f *fakeHub) BroadcastError(jobID, code, message string) {
	f.errors = append(f.errors, code+": "+message)
}

func testDeps(tasks *fakeTasks, st *fakeStore, llm *fakeLLM) Deps {
	return Deps{
		Tasks:   tasks,
		Store:   st,
		Models:  &fakeModels{modelKey: "test-model"},
		LLM:     llm,
		Prompts: prompt.NewResolver(),
		Audit:   audit.NewLoggerTo(io.Discard),
		Hub:     &fakeHub{},
	}
}

func makeTask(t string, jobID string, data model.TaskJobData) *asynq.Task {
	dataBytes, _ := json.Marshal(data)
	payload, _ := json.Marshal(map[string]interface{}{"jobId": jobID, "data": dataBytes})
	return asynq.NewTask(t, payload)
}
