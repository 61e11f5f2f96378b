// Package pipeline contains the orchestration core: the step-runner contract
// and the pure sequencing functions for the generation workflows. Orchestrators
// are decoupled from persistence, queue mechanics and model selection; they
// receive their capabilities injected and assemble structured output
// deterministically from the step results.
package pipeline

import (
	"context"
	"fmt"
)

// StepMeta identifies one LLM-backed step within a workflow run. Index/Total
// drive the progress math; Attempt distinguishes retried runs of the same step
// while keeping its ordinal position stable.
type StepMeta struct {
	ID      string
	Title   string
	Index   int
	Total   int
	Attempt int
}

// AttemptID returns the step ID with a retry suffix so logs can tell attempts
// apart.
func (m StepMeta) AttemptID() string {
	if m.Attempt == 0 {
		return m.ID
	}
	return fmt.Sprintf("%s#retry%d", m.ID, m.Attempt)
}

// StepOutput is the raw result of one completion call. Text is parsed as the
// step's structured payload; Reasoning is an audit artifact only.
type StepOutput struct {
	Text      string
	Reasoning string
}

// StepFunc executes one LLM-backed step: it checks liveness, reports progress,
// records the prompt and response, and performs the completion call. It is the
// single injected capability every orchestrator drives.
type StepFunc func(ctx context.Context, meta StepMeta, prompt string, action string, maxOutputTokens int) (StepOutput, error)

// PromptBuilder resolves a prompt template and substitutes variables. The
// locale is bound by the task handler before the orchestrator runs.
type PromptBuilder func(promptID string, vars map[string]string) (string, error)
