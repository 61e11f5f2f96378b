package model

import "time"

// GenerateScriptRequest starts a story-to-script job for an episode
type GenerateScriptRequest struct {
	ProjectID     string `json:"projectId" validate:"required,uuid"`
	EpisodeID     string `json:"episodeId" validate:"required,uuid"`
	AnalysisModel string `json:"analysisModel" validate:"omitempty,max=128"`
	Locale        string `json:"locale" validate:"omitempty,oneof=en tr fr"`
}

// GenerateStoryboardRequest starts a script-to-storyboard job for an episode
type GenerateStoryboardRequest struct {
	ProjectID     string `json:"projectId" validate:"required,uuid"`
	EpisodeID     string `json:"episodeId" validate:"required,uuid"`
	AnalysisModel string `json:"analysisModel" validate:"omitempty,max=128"`
	Locale        string `json:"locale" validate:"omitempty,oneof=en tr fr"`
}

// GenerateStartResponse is returned when a generation job is queued
type GenerateStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// GenerateStatusResponse reports job progress for polling clients
type GenerateStatusResponse struct {
	JobID       string     `json:"jobId"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Stage       string     `json:"stage,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// GenerateCancelResponse acknowledges a cancel request
type GenerateCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}

// StoryToScriptTaskResult is the counts-only completion record of a
// story-to-script job, suitable for progress display
type StoryToScriptTaskResult struct {
	CharacterCount         int `json:"characterCount"`
	LocationCount          int `json:"locationCount"`
	ClipCount              int `json:"clipCount"`
	ScreenplaySuccessCount int `json:"screenplaySuccessCount"`
	ScreenplayFailedCount  int `json:"screenplayFailedCount"`
	TotalStepCount         int `json:"totalStepCount"`
}

// ScriptToStoryboardTaskResult is the counts-only completion record of a
// script-to-storyboard job
type ScriptToStoryboardTaskResult struct {
	StoryboardCount   int `json:"storyboardCount"`
	PanelCount        int `json:"panelCount"`
	PanelSuccessCount int `json:"panelSuccessCount"`
	PanelFailedCount  int `json:"panelFailedCount"`
	VoiceLineCount    int `json:"voiceLineCount"`
	TotalStepCount    int `json:"totalStepCount"`
}
