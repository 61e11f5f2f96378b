// Package store is the Postgres-backed entity store. It is the only place
// multi-row writes happen for a generation job; all of them run inside one
// bounded-timeout transaction.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novelreel/api/internal/model"
)

// Store wraps the pgx pool with the read/write contracts the workers consume.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and returns a Store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the entity tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    mode           TEXT NOT NULL,
    analysis_model TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS episodes (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    title      TEXT NOT NULL,
    idx        INTEGER NOT NULL DEFAULT 0,
    novel_text TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS characters (
    id          TEXT PRIMARY KEY,
    episode_id  TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    role        TEXT NOT NULL DEFAULT '',
    appearance  TEXT NOT NULL DEFAULT '',
    personality TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS locations (
    id          TEXT PRIMARY KEY,
    episode_id  TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    atmosphere  TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS clips (
    id             TEXT PRIMARY KEY,
    episode_id     TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    idx            INTEGER NOT NULL,
    title          TEXT NOT NULL DEFAULT '',
    summary        TEXT NOT NULL,
    source_excerpt TEXT NOT NULL DEFAULT '',
    screenplay     JSONB
)`,
		`CREATE TABLE IF NOT EXISTS storyboards (
    id             TEXT PRIMARY KEY,
    episode_id     TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    clip_id        TEXT NOT NULL REFERENCES clips(id) ON DELETE CASCADE,
    idx            INTEGER NOT NULL,
    title          TEXT NOT NULL DEFAULT '',
    summary        TEXT NOT NULL DEFAULT '',
    cinematography TEXT NOT NULL DEFAULT '',
    acting_notes   TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS panels (
    id            TEXT PRIMARY KEY,
    storyboard_id TEXT NOT NULL REFERENCES storyboards(id) ON DELETE CASCADE,
    idx           INTEGER NOT NULL,
    description   TEXT NOT NULL,
    shot          TEXT NOT NULL DEFAULT '',
    camera_move   TEXT NOT NULL DEFAULT '',
    duration_sec  DOUBLE PRECISION NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS voice_lines (
    id               TEXT PRIMARY KEY,
    episode_id       TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    idx              INTEGER NOT NULL,
    character_name   TEXT NOT NULL,
    line             TEXT NOT NULL,
    emotion          TEXT NOT NULL DEFAULT '',
    matched_panel_id TEXT NOT NULL REFERENCES panels(id) ON DELETE CASCADE
)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_project ON episodes (project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clips_episode ON clips (episode_id, idx)`,
		`CREATE INDEX IF NOT EXISTS idx_storyboards_episode ON storyboards (episode_id, idx)`,
		`CREATE INDEX IF NOT EXISTS idx_panels_storyboard ON panels (storyboard_id, idx)`,
		`CREATE INDEX IF NOT EXISTS idx_voice_lines_episode ON voice_lines (episode_id, idx)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// GetProject loads a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, mode, analysis_model, created_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Mode, &p.AnalysisModel, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("project %s not found", id)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &p, nil
}

// GetEpisode loads an episode by ID.
func (s *Store) GetEpisode(ctx context.Context, id string) (*model.Episode, error) {
	var e model.Episode
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, title, idx, novel_text, created_at FROM episodes WHERE id = $1`, id,
	).Scan(&e.ID, &e.ProjectID, &e.Title, &e.Index, &e.NovelText, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("episode %s not found", id)
		}
		return nil, fmt.Errorf("failed to load episode: %w", err)
	}
	return &e, nil
}

// EpisodeExists reports whether the episode row still exists. Long-running
// jobs re-check this right before persisting.
func (s *Store) EpisodeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM episodes WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check episode: %w", err)
	}
	return exists, nil
}

// GetEpisodeClips loads the episode's clips in story order.
func (s *Store) GetEpisodeClips(ctx context.Context, episodeID string) ([]model.Clip, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, episode_id, idx, title, summary, source_excerpt, COALESCE(screenplay, 'null'::jsonb)
		   FROM clips WHERE episode_id = $1 ORDER BY idx`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load clips: %w", err)
	}
	defer rows.Close()

	var clips []model.Clip
	for rows.Next() {
		var c model.Clip
		if err := rows.Scan(&c.ID, &c.EpisodeID, &c.Index, &c.Title, &c.Summary, &c.SourceExcerpt, &c.Screenplay); err != nil {
			return nil, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}
