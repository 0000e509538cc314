package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then songMD5 ASC (deterministic). "less" means ranks
// earlier, so in-order traversal produces the leaderboard from best to worst.

type node struct {
	song  string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aSong) should appear before (bScore, bSong).
func less(aScore int, aSong string, bScore int, bSong string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aSong < bSong
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, song string, score int, prio uint64) *node {
	if n == nil {
		return &node{song: song, score: score, prio: prio, size: 1}
	}
	if less(score, song, n.score, n.song) {
		n.left = insert(n.left, song, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, song, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, song string, score int) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && song == n.song:
		// rotate the higher-priority child up until n is a leaf
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, song, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, song, score)
		}
	case less(score, song, n.score, n.song):
		n.left = deleteNode(n.left, song, score)
	default:
		n.right = deleteNode(n.right, song, score)
	}
	fix(n)
	return n
}

// collect appends up to limit entries in rank order. limit < 0 means all.
func collect(n *node, limit int, best map[string]model.RunRecord, out *[]Entry) {
	if n == nil || (limit >= 0 && len(*out) >= limit) {
		return
	}
	collect(n.left, limit, best, out)
	if limit < 0 || len(*out) < limit {
		if rec, ok := best[n.song]; ok {
			*out = append(*out, Entry{SongMD5: n.song, Score: rec.Score, RunID: rec.ID, PlayedAt: rec.PlayedAt})
		}
	}
	collect(n.right, limit, best, out)
}

// TreapStore keeps everything in memory. History is lost on restart.
type TreapStore struct {
	mu      sync.RWMutex
	root    *node
	best    map[string]model.RunRecord
	history map[string][]model.RunRecord // oldest first
	opts    options
}

// NewTreapStore constructs an empty in-memory store.
func NewTreapStore(opts ...Option) *TreapStore {
	return &TreapStore{
		best:    make(map[string]model.RunRecord),
		history: make(map[string][]model.RunRecord),
		opts:    newOptions(opts),
	}
}

// Append implements Store.Append in O(log n) expected time for the board.
func (s *TreapStore) Append(_ context.Context, rec model.RunRecord) error {
	if err := validate(rec); err != nil {
		metrics.RecordRepositoryError()
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(since(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history[rec.SongMD5]
	if slices.ContainsFunc(h, func(r model.RunRecord) bool { return r.ID == rec.ID }) {
		return nil
	}
	h = append(h, rec)
	if over := len(h) - s.opts.historyLimit; over > 0 {
		h = slices.Clone(h[over:])
	}
	s.history[rec.SongMD5] = h

	old, ok := s.best[rec.SongMD5]
	if ok && rec.Score <= old.Score {
		return nil
	}
	if ok {
		s.root = deleteNode(s.root, old.SongMD5, old.Score)
	}
	s.best[rec.SongMD5] = rec
	s.root = insert(s.root, rec.SongMD5, rec.Score, rand.Uint64())
	metrics.UpdateRepositorySongs(len(s.best))
	return nil
}

// History implements Store.History.
func (s *TreapStore) History(_ context.Context, songMD5 string) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[songMD5]
	out := make([]model.RunRecord, len(h))
	for i, r := range h {
		out[len(h)-1-i] = r
	}
	return out, nil
}

// Best implements Store.Best.
func (s *TreapStore) Best(_ context.Context, songMD5 string) (model.SongBest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.best[songMD5]
	if !ok {
		return model.SongBest{}, fmt.Errorf("best %q: %w", songMD5, ErrNotFound)
	}
	return model.SongBest{SongMD5: rec.SongMD5, Score: rec.Score, RunID: rec.ID}, nil
}

// Rank implements Store.Rank.
func (s *TreapStore) Rank(_ context.Context, songMD5 string) (Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(since(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.best[songMD5]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("rank %q: %w", songMD5, ErrNotFound)
	}
	all := make([]Entry, 0, len(s.best))
	collect(s.root, -1, s.best, &all)
	assignRanksWithTies(all)
	for _, e := range all {
		if e.SongMD5 == songMD5 {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("rank %q: %w", songMD5, ErrNotFound)
}

// TopN implements Store.TopN.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(since(start)) }()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, nsize(s.root)))
	collect(s.root, n, s.best, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nsize(s.root), nil
}

// Close implements Store.Close.
func (s *TreapStore) Close() error { return nil }
