package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/novelreel/api/internal/client"
	"github.com/novelreel/api/internal/model"
)

// ErrModelNotConfigured is raised when the analysis-model resolution chain
// exhausts without a result. Silently picking a default model would change
// cost and quality, so there is no undocumented fallback.
var ErrModelNotConfigured = errors.New("analysisModel is not configured")

// ModelResolver resolves which analysis model a generation job uses and the
// capability options the model accepts. Resolution order: explicit request
// override, project-level config, then the user's preference.
type ModelResolver struct {
	redis kvStore
}

func NewModelResolver(redisClient *redis.Client) *ModelResolver {
	return &ModelResolver{redis: redisClient}
}

// ResolveAnalysisModel applies the override → project → user-preference chain.
func (r *ModelResolver) ResolveAnalysisModel(ctx context.Context, override string, project *model.Project, userID string) (string, error) {
	if override != "" {
		return override, nil
	}
	if project.AnalysisModel != nil && *project.AnalysisModel != "" {
		return *project.AnalysisModel, nil
	}

	pref, err := r.redis.Get(ctx, userModelKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("failed to read user model preference: %w", err)
	}
	if pref != "" {
		return pref, nil
	}
	return "", ErrModelNotConfigured
}

// ResolveGenerationOptions returns the generation options for a model,
// applying any capability override the user has set for it.
func (r *ModelResolver) ResolveGenerationOptions(ctx context.Context, userID, modelKey string) (client.GenerationOptions, error) {
	opts := client.GenerationOptions{Temperature: 0.7}

	effort, err := r.redis.Get(ctx, capabilityKey(userID, modelKey, "reasoning_effort")).Result()
	if err != nil && err != redis.Nil {
		return opts, fmt.Errorf("failed to read capability override: %w", err)
	}
	opts.ReasoningEffort = effort
	return opts, nil
}

// SetUserModelPreference stores the user's fallback analysis model.
func (r *ModelResolver) SetUserModelPreference(ctx context.Context, userID, modelKey string) error {
	return r.redis.Set(ctx, userModelKey(userID), modelKey, 0).Err()
}

func userModelKey(userID string) string {
	return fmt.Sprintf("user:model:%s", userID)
}

func capabilityKey(userID, modelKey, capability string) string {
	return fmt.Sprintf("user:capability:%s:%s:%s", userID, modelKey, capability)
}
