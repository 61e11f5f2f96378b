package model

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a background job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Task types
const (
	TaskTypeStoryToScript      = "generate:story_to_script"
	TaskTypeScriptToStoryboard = "generate:script_to_storyboard"
)

// Job represents a background generation job in the system
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	Stage       string          `json:"stage,omitempty"`
	StepID      string          `json:"stepId,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// TaskJobData identifies one unit of queued generation work. It is immutable
// once created and consumed by exactly one worker.
type TaskJobData struct {
	TaskID     string  `json:"taskId"`
	Type       string  `json:"type"`
	ProjectID  string  `json:"projectId"`
	EpisodeID  string  `json:"episodeId"`
	TargetType string  `json:"targetType"`
	TargetID   string  `json:"targetId"`
	UserID     string  `json:"userId"`
	Locale     string  `json:"locale"`
	Payload    Payload `json:"payload"`
}

// ProgressMeta carries stage metadata alongside a percent-complete report.
type ProgressMeta struct {
	Stage     string `json:"stage"`
	StepID    string `json:"stepId,omitempty"`
	StepTitle string `json:"stepTitle,omitempty"`
}
