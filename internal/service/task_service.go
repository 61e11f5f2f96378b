package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/novelreel/api/internal/model"
	"github.com/novelreel/api/internal/pipeline"
)

// Queue names per task type
const (
	QueueScript     = "script"
	QueueStoryboard = "storyboard"
)

// kvStore is the slice of the redis API the service layer needs. *redis.Client
// satisfies it.
type kvStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// TaskService owns generation job lifecycle: job records and supersede keys in
// redis, task enqueueing through asynq, and the progress/liveness contract the
// workers depend on.
type TaskService struct {
	redis       kvStore
	asynqClient *asynq.Client
}

func NewTaskService(redisClient *redis.Client, asynqClient *asynq.Client) *TaskService {
	return &TaskService{
		redis:       redisClient,
		asynqClient: asynqClient,
	}
}

// StartScriptGeneration queues a new story-to-script job for an episode
func (s *TaskService) StartScriptGeneration(ctx context.Context, req *model.GenerateScriptRequest, userID string) (*model.GenerateStartResponse, error) {
	data := model.TaskJobData{
		TaskID:     uuid.New().String(),
		Type:       model.TaskTypeStoryToScript,
		ProjectID:  req.ProjectID,
		EpisodeID:  req.EpisodeID,
		TargetType: "episode",
		TargetID:   req.EpisodeID,
		UserID:     userID,
		Locale:     req.Locale,
		Payload:    model.Payload{"analysisModel": req.AnalysisModel},
	}
	return s.enqueue(ctx, QueueScript, data)
}

// StartStoryboardGeneration queues a new script-to-storyboard job for an episode
func (s *TaskService) StartStoryboardGeneration(ctx context.Context, req *model.GenerateStoryboardRequest, userID string) (*model.GenerateStartResponse, error) {
	data := model.TaskJobData{
		TaskID:     uuid.New().String(),
		Type:       model.TaskTypeScriptToStoryboard,
		ProjectID:  req.ProjectID,
		EpisodeID:  req.EpisodeID,
		TargetType: "episode",
		TargetID:   req.EpisodeID,
		UserID:     userID,
		Locale:     req.Locale,
		Payload:    model.Payload{"analysisModel": req.AnalysisModel},
	}
	return s.enqueue(ctx, QueueStoryboard, data)
}

func (s *TaskService) enqueue(ctx context.Context, queue string, data model.TaskJobData) (*model.GenerateStartResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job data: %w", err)
	}

	job := &model.Job{
		ID:        jobID,
		Type:      data.Type,
		Status:    model.JobStatusQueued,
		Progress:  0,
		Data:      dataBytes,
		CreatedAt: now,
	}
	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	// Newest job per (type, episode) wins: an older in-flight job for the same
	// target sees the changed key at its next liveness checkpoint and stops.
	if err := s.redis.Set(ctx, dedupeKey(data.Type, data.EpisodeID), jobID, 24*time.Hour).Err(); err != nil {
		return nil, fmt.Errorf("failed to set dedupe key: %w", err)
	}

	task, err := newGenerationTask(data.Type, jobID, dataBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.GenerateStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current status of a generation job
func (s *TaskService) GetStatus(ctx context.Context, jobID string) (*model.GenerateStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.GenerateStatusResponse{
		JobID:       job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Progress:    job.Progress,
		Stage:       job.Stage,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// GetResult returns the result record of a completed job
func (s *TaskService) GetResult(ctx context.Context, jobID string) (json.RawMessage, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == model.JobStatusFailed {
		msg := "unknown error"
		if job.Error != nil {
			msg = *job.Error
		}
		return nil, fmt.Errorf("job failed: %s", msg)
	}
	if job.Status != model.JobStatusSucceeded {
		return nil, fmt.Errorf("job not completed")
	}
	return json.RawMessage(job.Result), nil
}

// Cancel marks a running or queued job canceled. The worker observes the
// cancellation at its next liveness checkpoint. The cancel marker lives in its
// own key, so a concurrent whole-record progress write cannot erase it.
func (s *TaskService) Cancel(ctx context.Context, jobID string) (*model.GenerateCancelResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status == model.JobStatusSucceeded || job.Status == model.JobStatusFailed {
		return nil, fmt.Errorf("job already completed")
	}

	if err := s.redis.Set(ctx, cancelKey(jobID), "1", 24*time.Hour).Err(); err != nil {
		return nil, err
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now

	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	return &model.GenerateCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// JobData returns the immutable task data of a job.
func (s *TaskService) JobData(ctx context.Context, jobID string) (*model.TaskJobData, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var data model.TaskJobData
	if err := json.Unmarshal(job.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}
	return &data, nil
}

// AssertActive is the synchronous liveness gate, consulted before every
// completion call and before persistence. It fails with a termination signal
// when the job has been cancelled or superseded by a newer request for the
// same episode, and writes the terminal state at the point of detection so the
// job never lingers as running.
func (s *TaskService) AssertActive(ctx context.Context, jobID, checkpoint string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("liveness check at %q: %w", checkpoint, err)
	}
	if s.cancelRequested(ctx, jobID) {
		// A racing progress write may have reverted the record; restore it.
		if job.Status != model.JobStatusCanceled {
			s.markCanceled(ctx, job, "canceled")
		}
		return &pipeline.TerminatedError{JobID: jobID, Checkpoint: checkpoint}
	}
	if job.Status == model.JobStatusCanceled {
		return &pipeline.TerminatedError{JobID: jobID, Checkpoint: checkpoint}
	}

	var data model.TaskJobData
	if err := json.Unmarshal(job.Data, &data); err != nil {
		return fmt.Errorf("liveness check at %q: %w", checkpoint, err)
	}
	latest, err := s.redis.Get(ctx, dedupeKey(data.Type, data.EpisodeID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("liveness check at %q: %w", checkpoint, err)
	}
	if latest != "" && latest != jobID {
		s.markCanceled(ctx, job, "superseded by a newer request for the same episode")
		return &pipeline.TerminatedError{JobID: jobID, Checkpoint: checkpoint}
	}
	return nil
}

// markCanceled force-writes a terminal canceled state. Best effort: the
// termination signal reaches the worker even when the write fails.
func (s *TaskService) markCanceled(ctx context.Context, job *model.Job, reason string) {
	job.Status = model.JobStatusCanceled
	job.Error = &reason
	now := time.Now()
	job.CompletedAt = &now
	if err := s.saveJob(ctx, job); err != nil {
		log.Warn().Err(err).Str("jobId", job.ID).Msg("failed to record job termination")
	}
}

func (s *TaskService) cancelRequested(ctx context.Context, jobID string) bool {
	v, err := s.redis.Get(ctx, cancelKey(jobID)).Result()
	return err == nil && v != ""
}

// UpdateProgress updates job progress (called by workers). Progress is clamped
// so it never decreases within one job; failures here must never abort a task,
// so callers treat the returned error as best-effort.
func (s *TaskService) UpdateProgress(ctx context.Context, jobID string, percent int, meta model.ProgressMeta) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	// A terminal job never goes back to running; a racing cancel wins.
	if isTerminal(job.Status) || s.cancelRequested(ctx, jobID) {
		return nil
	}

	job.Progress = ClampProgress(job.Progress, percent)
	job.Stage = meta.Stage
	job.StepID = meta.StepID

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// CompleteJob marks a job as completed with its counts-only result record
func (s *TaskService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks a job as failed
func (s *TaskService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

func isTerminal(status model.JobStatus) bool {
	return status == model.JobStatusSucceeded ||
		status == model.JobStatusFailed ||
		status == model.JobStatusCanceled
}

// ClampProgress keeps progress monotonically non-decreasing and within [0,100].
func ClampProgress(current, next int) int {
	if next < current {
		next = current
	}
	if next < 0 {
		next = 0
	}
	if next > 100 {
		next = 100
	}
	return next
}

// Helper methods

func (s *TaskService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 24*time.Hour).Err()
}

func (s *TaskService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job not found")
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func dedupeKey(taskType, episodeID string) string {
	return fmt.Sprintf("task:latest:%s:%s", taskType, episodeID)
}

func cancelKey(jobID string) string {
	return fmt.Sprintf("job:canceled:%s", jobID)
}

func newGenerationTask(taskType, jobID string, data []byte) (*asynq.Task, error) {
	envelope := map[string]interface{}{
		"jobId": jobID,
		"data":  data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload), nil
}
