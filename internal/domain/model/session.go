package model

import "github.com/okian/groove/internal/domain/choreo"

// SessionRequest selects what to play. Choreography wins over
// ChoreographyPath when both are set; AudioPath may be empty for a silent run.
type SessionRequest struct {
	ChoreographyPath string               `json:"choreography_path,omitempty"`
	AudioPath        string               `json:"audio_path,omitempty"`
	Choreography     *choreo.Choreography `json:"choreography,omitempty"`
}
