// Package worker holds the asynq task handlers for the generation workflows.
// Each handler loads the job's immutable data, resolves the analysis model,
// drives a pipeline run through a step runner, and persists the result in one
// transaction. Cancellation is cooperative: the handlers and the step runner
// consult the job's liveness gate at every checkpoint.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/novelreel/api/internal/audit"
	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/pipeline"
	"github.com/novelreel/api/internal/prompt"
)

// Deps bundles the collaborators both task handlers share.
type Deps struct {
	Tasks   TaskLifecycle
	Store   EntityStore
	Models  ModelResolver
	LLM     CompletionClient
	Prompts *prompt.Resolver
	Audit   *audit.Logger
	Hub     ProgressBroadcaster
}

// taskEnvelope is the queued payload shape produced by the task service.
type taskEnvelope struct {
	JobID string `json:"jobId"`
	Data  []byte `json:"data"`
}

func decodeEnvelope(payload []byte) (string, *model.TaskJobData, error) {
	var env taskEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal task envelope: %w", err)
	}
	if env.JobID == "" {
		return "", nil, fmt.Errorf("task envelope has no job id")
	}
	var data model.TaskJobData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	return env.JobID, &data, nil
}

// conclude maps a handler outcome onto the job record. Termination is not a
// failure: the liveness gate marked the record canceled when it raised the
// signal, and returning nil keeps asynq from retrying. Every other error marks
// the job failed.
func (d *Deps) conclude(ctx context.Context, jobID, taskID string, result interface{}, err error) error {
	if err == nil {
		if cerr := d.Tasks.CompleteJob(ctx, jobID, result); cerr != nil {
			return fmt.Errorf("failed to complete job %s: %w", jobID, cerr)
		}
		if d.Hub != nil {
			d.Hub.BroadcastComplete(jobID, result)
		}
		return nil
	}

	if pipeline.IsTerminated(err) {
		log.Info().Str("jobId", jobID).Str("taskId", taskID).Msg(err.Error())
		return nil
	}

	if perr, ok := pipeline.AsParseError(err); ok {
		d.Audit.ParseFailure(jobID, taskID, perr.Action, perr.RawText, perr)
	}

	if ferr := d.Tasks.FailJob(ctx, jobID, err.Error()); ferr != nil {
		log.Error().Err(ferr).Str("jobId", jobID).Msg("failed to record job failure")
	}
	if d.Hub != nil {
		code := "GENERATION_FAILED"
		var partial *pipeline.PartialFailureError
		if errors.As(err, &partial) {
			code = partial.Code
		}
		d.Hub.BroadcastError(jobID, code, err.Error())
	}
	return err
}

// checkpoint reports progress at a fixed stage boundary. Best-effort, like all
// progress writes.
func (d *Deps) checkpoint(ctx context.Context, jobID string, percent int, stage string) {
	if err := d.Tasks.UpdateProgress(ctx, jobID, percent, model.ProgressMeta{Stage: stage}); err != nil {
		log.Warn().Err(err).Str("jobId", jobID).Msg("failed to update progress")
	}
	if d.Hub != nil {
		d.Hub.BroadcastProgress(jobID, percent, model.JobStatusRunning, stage)
	}
}

// promptBuilder binds the job's locale into the resolver.
func (d *Deps) promptBuilder(locale string) pipeline.PromptBuilder {
	return func(promptID string, vars map[string]string) (string, error) {
		return d.Prompts.Build(promptID, locale, vars)
	}
}
