// Package audit records the full prompts and raw model responses of every
// generation step. Records are never truncated: they are the primary artifact
// for postmortem debugging of malformed generations.
package audit

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger writes structured audit records for generation steps
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger writing to stderr.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stderr)
}

// NewLoggerTo creates an audit logger writing to w.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{
		logger: zerolog.New(w).With().Timestamp().Str("log", "audit").Logger(),
	}
}

// StepPrompt records the full prompt before the completion call.
func (l *Logger) StepPrompt(jobID, taskID, stepID, action, modelKey, prompt string) {
	l.logger.Info().
		Str("jobId", jobID).
		Str("taskId", taskID).
		Str("stepId", stepID).
		Str("action", action).
		Str("model", modelKey).
		Str("prompt", prompt).
		Msg("step prompt")
}

// StepResponse records the full raw response text and reasoning trace after
// the completion call.
func (l *Logger) StepResponse(jobID, taskID, stepID, action, text, reasoning string) {
	l.logger.Info().
		Str("jobId", jobID).
		Str("taskId", taskID).
		Str("stepId", stepID).
		Str("action", action).
		Str("text", text).
		Str("reasoning", reasoning).
		Msg("step response")
}

// ParseFailure records model output that failed structured decoding, with the
// raw text that failed to parse.
func (l *Logger) ParseFailure(jobID, taskID, action, raw string, err error) {
	l.logger.Error().
		Str("jobId", jobID).
		Str("taskId", taskID).
		Str("action", action).
		Str("raw", raw).
		Err(err).
		Msg("step output parse failure")
}
