// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// HistoryLimit is the default number of runs kept per song.
const HistoryLimit = 20

// RunRecord is the immutable result of one finished session.
type RunRecord struct {
	ID         string    `json:"id"`
	SongMD5    string    `json:"song_md5"`
	Score      int       `json:"score"`
	MaxCombo   int       `json:"max_combo"`
	StarRating int       `json:"star_rating"`
	PlayedAt   time.Time `json:"played_at"`
}

// NewRunRecord stamps a fresh id onto a finished run.
func NewRunRecord(song string, score, maxCombo, stars int, playedAt time.Time) RunRecord {
	return RunRecord{
		ID:         uuid.NewString(),
		SongMD5:    song,
		Score:      score,
		MaxCombo:   maxCombo,
		StarRating: stars,
		PlayedAt:   playedAt.UTC(),
	}
}

// SongBest is a song's best run, used for ranking.
type SongBest struct {
	SongMD5 string `json:"song_md5"`
	Score   int    `json:"score"`
	RunID   string `json:"run_id"`
}

// EventKind tags what an Event carries.
type EventKind string

// Event kinds emitted by a session.
const (
	KindBeat             EventKind = "beat"
	KindTier             EventKind = "tier"
	KindComboMilestone   EventKind = "combo_milestone"
	KindTrackingLost     EventKind = "tracking_lost"
	KindTrackingRestored EventKind = "tracking_restored"
	KindPhase            EventKind = "phase"
	KindGameEnd          EventKind = "game_end"
)

// Event is a discrete notification from the game loop to renderers, audio
// cues and the result recorder. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	SongMD5   string    `json:"song_md5,omitempty"`
	// Beat is the beat index; negative during count-in (-4..-1).
	Beat      int     `json:"beat"`
	AudioTime float64 `json:"audio_time"`

	Tier         string   `json:"tier,omitempty"`
	Similarity   float64  `json:"similarity,omitempty"`
	MissedJoints []string `json:"missed_joints,omitempty"`
	Points       int      `json:"points,omitempty"`
	Multiplier   float64  `json:"multiplier,omitempty"`
	Combo        int      `json:"combo,omitempty"`
	TotalScore   int      `json:"total_score,omitempty"`
	Capped       bool     `json:"capped,omitempty"`

	Phase  string     `json:"phase,omitempty"`
	Record *RunRecord `json:"record,omitempty"`

	TS time.Time `json:"ts"`
}
