package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/novelreel/api/internal/audit"
	"github.com/novelreel/api/internal/client"
	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/pipeline"
)

// LLM steps report progress inside a reserved band; the surrounding handler
// stages use the space outside it. Exact percentages are not meaningful, only
// monotonicity and stage order.
const (
	stepBandFloor = 15
	stepBandCeil  = 70
)

const systemPrompt = `You are a screenwriting assistant for a video production pipeline.
Always output your response as valid JSON in the exact format requested.
Do not include any text outside the JSON structure.`

// stepRunner binds one job's context (task ids, model, locale, generation
// options) into the StepFunc the orchestrators drive. It owns the
// per-step liveness check, progress math, and audit records. It does not
// retry: retries belong to the task handler.
type stepRunner struct {
	jobID    string
	taskID   string
	userID   string
	modelKey string
	opts     client.GenerationOptions

	tasks TaskLifecycle
	llm   CompletionClient
	audit *audit.Logger
	hub   ProgressBroadcaster

	lastPercent int
}

func newStepRunner(jobID, taskID, userID, modelKey string, opts client.GenerationOptions,
	tasks TaskLifecycle, llm CompletionClient, auditLog *audit.Logger, hub ProgressBroadcaster) *stepRunner {
	return &stepRunner{
		jobID:    jobID,
		taskID:   taskID,
		userID:   userID,
		modelKey: modelKey,
		opts:     opts,
		tasks:    tasks,
		llm:      llm,
		audit:    auditLog,
		hub:      hub,
	}
}

// run implements pipeline.StepFunc.
func (r *stepRunner) run(ctx context.Context, meta pipeline.StepMeta, prompt, action string, maxOutputTokens int) (pipeline.StepOutput, error) {
	stepID := meta.AttemptID()

	// The completion call is expensive and billable; never start it for a
	// cancelled or superseded job.
	if err := r.tasks.AssertActive(ctx, r.jobID, stepID); err != nil {
		return pipeline.StepOutput{}, err
	}

	r.report(ctx, stepPercent(meta.Index, meta.Total), meta, stepID)
	r.audit.StepPrompt(r.jobID, r.taskID, stepID, action, r.modelKey, prompt)

	opts := r.opts
	opts.MaxTokens = maxOutputTokens
	messages := []client.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
	completion, err := r.llm.ChatCompletion(ctx, r.userID, r.modelKey, messages, opts)
	if err != nil {
		return pipeline.StepOutput{}, fmt.Errorf("step %s failed: %w", stepID, err)
	}

	parts, err := client.Parts(completion)
	if err != nil {
		return pipeline.StepOutput{}, fmt.Errorf("step %s failed: %w", stepID, err)
	}
	r.audit.StepResponse(r.jobID, r.taskID, stepID, action, parts.Text, parts.Reasoning)

	r.report(ctx, stepPercent(meta.Index+1, meta.Total), meta, stepID)
	return pipeline.StepOutput{Text: parts.Text, Reasoning: parts.Reasoning}, nil
}

// stepPercent maps a step ordinal into the reserved progress band.
func stepPercent(index, total int) int {
	if total < 1 {
		total = 1
	}
	if index > total {
		index = total
	}
	return stepBandFloor + (stepBandCeil-stepBandFloor)*index/total
}

// report is best-effort: a failed progress write never aborts the task.
func (r *stepRunner) report(ctx context.Context, percent int, meta pipeline.StepMeta, stepID string) {
	if percent < r.lastPercent {
		percent = r.lastPercent
	}
	r.lastPercent = percent

	progressMeta := model.ProgressMeta{Stage: meta.Title, StepID: stepID, StepTitle: meta.Title}
	if err := r.tasks.UpdateProgress(ctx, r.jobID, percent, progressMeta); err != nil {
		log.Warn().Err(err).Str("jobId", r.jobID).Msg("failed to update progress")
	}
	if r.hub != nil {
		r.hub.BroadcastProgress(r.jobID, percent, model.JobStatusRunning, meta.Title)
	}
}
