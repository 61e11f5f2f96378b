package model

import "time"

// ProjectMode determines which generation workflows a project supports
type ProjectMode string

const (
	ModeNovelPromotion ProjectMode = "novel_promotion"
	ModeShortDrama     ProjectMode = "short_drama"
)

// Project owns episodes and project-level generation configuration
type Project struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Mode          ProjectMode `json:"mode"`
	AnalysisModel *string     `json:"analysisModel,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Episode holds one episode's source novel text and its generated artifacts
type Episode struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Index     int       `json:"index"`
	NovelText string    `json:"novelText"`
	CreatedAt time.Time `json:"createdAt"`
}

// Character is an analyzed character profile extracted from the novel text
type Character struct {
	ID          string `json:"id"`
	EpisodeID   string `json:"episodeId"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Appearance  string `json:"appearance"`
	Personality string `json:"personality"`
}

// Location is a selected scene location extracted from the novel text
type Location struct {
	ID          string `json:"id"`
	EpisodeID   string `json:"episodeId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Atmosphere  string `json:"atmosphere"`
}

// Clip is one segment of the episode with its converted screenplay
type Clip struct {
	ID            string `json:"id"`
	EpisodeID     string `json:"episodeId"`
	Index         int    `json:"index"`
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	SourceExcerpt string `json:"sourceExcerpt"`
	Screenplay    []byte `json:"-"` // Stored as JSON
}

// Storyboard is the shot plan for one clip
type Storyboard struct {
	ID             string `json:"id"`
	EpisodeID      string `json:"episodeId"`
	ClipID         string `json:"clipId"`
	Index          int    `json:"index"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	Cinematography string `json:"cinematography"`
	ActingNotes    string `json:"actingNotes"`
}

// Panel is a single shot within a storyboard
type Panel struct {
	ID           string  `json:"id"`
	StoryboardID string  `json:"storyboardId"`
	Index        int     `json:"index"`
	Description  string  `json:"description"`
	Shot         string  `json:"shot"`
	CameraMove   string  `json:"cameraMove"`
	DurationSec  float64 `json:"durationSec"`
}

// VoiceLine is a spoken line matched to the panel it plays over. MatchedPanelID
// must reference a panel created in the same persistence transaction.
type VoiceLine struct {
	ID             string `json:"id"`
	EpisodeID      string `json:"episodeId"`
	Index          int    `json:"index"`
	Character      string `json:"character"`
	Line           string `json:"line"`
	Emotion        string `json:"emotion"`
	MatchedPanelID string `json:"matchedPanelId"`
}
