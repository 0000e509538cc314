// Package repository persists finished runs: per-song history and a
// best-score-per-song leaderboard.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/groove/internal/domain/model"
)

// Entry is one leaderboard row: a song and its best run.
type Entry struct {
	Rank     int       `json:"rank"`
	SongMD5  string    `json:"song_md5"`
	Score    int       `json:"score"`
	RunID    string    `json:"run_id"`
	PlayedAt time.Time `json:"played_at"`
}

// Store provides read/write access to run history and the leaderboard.
// Appending a run that is already in its song's history is a no-op.
type Store interface {
	// Append records a finished run. The song's history keeps only the most
	// recent runs and the best entry changes only on a strictly higher score.
	Append(ctx context.Context, rec model.RunRecord) error

	// History returns the song's kept runs, newest first. Unknown songs have
	// an empty history.
	History(ctx context.Context, songMD5 string) ([]model.RunRecord, error)

	// Best returns the song's best run or ErrNotFound.
	Best(ctx context.Context, songMD5 string) (model.SongBest, error)

	// Rank returns the song's leaderboard row or ErrNotFound.
	Rank(ctx context.Context, songMD5 string) (Entry, error)

	// TopN returns the best N songs by score desc, then song asc. Equal
	// scores share a rank.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of songs on the leaderboard.
	Count(ctx context.Context) (int, error)

	// Close releases the backend.
	Close() error
}

func validate(rec model.RunRecord) error {
	switch {
	case rec.ID == "":
		return fmt.Errorf("%w: missing run id", ErrInvalidRecord)
	case rec.SongMD5 == "":
		return fmt.Errorf("%w: missing song", ErrInvalidRecord)
	case rec.Score < 0:
		return fmt.Errorf("%w: negative score %d", ErrInvalidRecord, rec.Score)
	}
	return nil
}

// assignRanksWithTies assigns consecutive ranks; entries with the same score
// share one. entries must already be in leaderboard order.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}

func since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
