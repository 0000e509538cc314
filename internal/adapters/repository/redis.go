package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/pkg/metrics"
)

const redisTxRetries = 100

// RedisStore keeps history in per-song lists, the board in a sorted set and
// each song's best run as a JSON string. Keys:
//
//	{prefix}:history:{song}  list of RunRecord JSON, oldest first
//	{prefix}:best:{song}     RunRecord JSON
//	{prefix}:board           zset song -> best score
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

// NewRedisStore wraps an existing client. Close closes the client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: newOptions(opts)}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) historyKey(song string) string {
	return s.opts.keyPrefix + ":history:" + song
}

func (s *RedisStore) bestKey(song string) string {
	return s.opts.keyPrefix + ":best:" + song
}

func (s *RedisStore) boardKey() string {
	return s.opts.keyPrefix + ":board"
}

// Append implements Store.Append. The duplicate check and the best-score
// comparison run under WATCH so concurrent appends cannot lose a new best.
func (s *RedisStore) Append(ctx context.Context, rec model.RunRecord) error {
	if err := validate(rec); err != nil {
		metrics.RecordRepositoryError()
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(since(start)) }()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", rec.ID, err)
	}
	hk, bk := s.historyKey(rec.SongMD5), s.bestKey(rec.SongMD5)

	txf := func(tx *redis.Tx) error {
		kept, err := s.decodeList(tx.LRange(ctx, hk, 0, -1))
		if err != nil {
			return err
		}
		if slices.ContainsFunc(kept, func(r model.RunRecord) bool { return r.ID == rec.ID }) {
			return nil
		}
		better := true
		cur, err := tx.Get(ctx, bk).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var prev model.RunRecord
			if err := json.Unmarshal(cur, &prev); err != nil {
				return fmt.Errorf("decode best: %w", err)
			}
			better = rec.Score > prev.Score
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.RPush(ctx, hk, payload)
			p.LTrim(ctx, hk, int64(-s.opts.historyLimit), -1)
			if better {
				p.Set(ctx, bk, payload, 0)
				p.ZAddGT(ctx, s.boardKey(), redis.Z{Score: float64(rec.Score), Member: rec.SongMD5})
			}
			return nil
		})
		return err
	}

	for range redisTxRetries {
		err = s.client.Watch(ctx, txf, hk, bk)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		metrics.RecordRepositoryError()
		return fmt.Errorf("append run %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) decodeList(cmd *redis.StringSliceCmd) ([]model.RunRecord, error) {
	items, err := cmd.Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.RunRecord, 0, len(items))
	for _, item := range items {
		var rec model.RunRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// History implements Store.History.
func (s *RedisStore) History(ctx context.Context, songMD5 string) ([]model.RunRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(since(start)) }()

	out, err := s.decodeList(s.client.LRange(ctx, s.historyKey(songMD5), 0, -1))
	if err != nil {
		metrics.RecordRepositoryError()
		return nil, fmt.Errorf("history %q: %w", songMD5, err)
	}
	slices.Reverse(out)
	return out, nil
}

func (s *RedisStore) best(ctx context.Context, songMD5 string) (model.RunRecord, error) {
	raw, err := s.client.Get(ctx, s.bestKey(songMD5)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.RunRecord{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordRepositoryError()
		return model.RunRecord{}, err
	}
	var rec model.RunRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.RunRecord{}, fmt.Errorf("decode best: %w", err)
	}
	return rec, nil
}

// Best implements Store.Best.
func (s *RedisStore) Best(ctx context.Context, songMD5 string) (model.SongBest, error) {
	rec, err := s.best(ctx, songMD5)
	if err != nil {
		return model.SongBest{}, fmt.Errorf("best %q: %w", songMD5, err)
	}
	return model.SongBest{SongMD5: rec.SongMD5, Score: rec.Score, RunID: rec.ID}, nil
}

// Rank implements Store.Rank.
func (s *RedisStore) Rank(ctx context.Context, songMD5 string) (Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(since(start)) }()

	rec, err := s.best(ctx, songMD5)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordErrorByComponent("repository", "not_found")
		}
		return Entry{}, fmt.Errorf("rank %q: %w", songMD5, err)
	}
	above, err := s.client.ZRangeArgsWithScores(ctx, redis.ZRangeArgs{
		Key:     s.boardKey(),
		Start:   "(" + strconv.Itoa(rec.Score),
		Stop:    "+inf",
		ByScore: true,
	}).Result()
	if err != nil {
		metrics.RecordRepositoryError()
		return Entry{}, fmt.Errorf("rank %q: %w", songMD5, err)
	}
	distinct := 0
	for i, z := range above {
		if i == 0 || z.Score != above[i-1].Score {
			distinct++
		}
	}
	return Entry{
		Rank:     distinct + 1,
		SongMD5:  rec.SongMD5,
		Score:    rec.Score,
		RunID:    rec.ID,
		PlayedAt: rec.PlayedAt,
	}, nil
}

// TopN implements Store.TopN. Redis orders equal scores by member descending,
// so every member tied with the last returned score is fetched and the page
// is re-sorted by song ascending.
func (s *RedisStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(since(start)) }()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	page, err := s.client.ZRevRangeWithScores(ctx, s.boardKey(), 0, int64(n-1)).Result()
	if err != nil {
		metrics.RecordRepositoryError()
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	if len(page) == 0 {
		return []Entry{}, nil
	}
	floor := page[len(page)-1].Score
	page, err = s.client.ZRangeArgsWithScores(ctx, redis.ZRangeArgs{
		Key:     s.boardKey(),
		Start:   strconv.FormatFloat(floor, 'f', -1, 64),
		Stop:    "+inf",
		ByScore: true,
	}).Result()
	if err != nil {
		metrics.RecordRepositoryError()
		return nil, fmt.Errorf("top %d: %w", n, err)
	}

	out := make([]Entry, 0, len(page))
	for _, z := range page {
		song, _ := z.Member.(string)
		out = append(out, Entry{SongMD5: song, Score: int(z.Score)})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		switch {
		case a.SongMD5 < b.SongMD5:
			return -1
		case a.SongMD5 > b.SongMD5:
			return 1
		}
		return 0
	})
	out = out[:min(n, len(out))]

	keys := make([]string, len(out))
	for i, e := range out {
		keys[i] = s.bestKey(e.SongMD5)
	}
	raws, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		metrics.RecordRepositoryError()
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var rec model.RunRecord
		if json.Unmarshal([]byte(str), &rec) == nil {
			out[i].RunID = rec.ID
			out[i].PlayedAt = rec.PlayedAt
		}
	}
	assignRanksWithTies(out)
	return out, nil
}

// Count implements Store.Count.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.boardKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count songs: %w", err)
	}
	metrics.UpdateRepositorySongs(int(n))
	return int(n), nil
}

// Close implements Store.Close.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
