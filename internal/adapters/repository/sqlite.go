package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/pkg/logger"
	"github.com/okian/groove/pkg/metrics"
)

const sqliteSchema = `
create table if not exists runs
  (
	  id        text    not null primary key,
	  song_md5  text    not null,
	  score     integer not null,
	  max_combo integer not null,
	  stars     integer not null,
	  played_at integer not null
  );
create index if not exists runs_song on runs(song_md5);
create table if not exists best
  (
	  song_md5  text    not null primary key,
	  run_id    text    not null,
	  score     integer not null,
	  played_at integer not null
  );
create index if not exists best_board on best(score desc, song_md5 asc);
`

// SQLiteStore persists runs in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY between them
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	s := &SQLiteStore{db: db, opts: newOptions(opts)}
	s.opts.logger.Info(ctx, "sqlite store ready", logger.String("path", path))
	return s, nil
}

// Append implements Store.Append.
func (s *SQLiteStore) Append(ctx context.Context, rec model.RunRecord) error {
	if err := validate(rec); err != nil {
		metrics.RecordRepositoryError()
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(since(start)) }()

	if err := s.append(ctx, rec); err != nil {
		metrics.RecordRepositoryError()
		return fmt.Errorf("append run %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) append(ctx context.Context, rec model.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	playedAt := rec.PlayedAt.UnixNano()
	res, err := tx.ExecContext(ctx,
		"insert or ignore into runs(id, song_md5, score, max_combo, stars, played_at) values(?, ?, ?, ?, ?, ?)",
		rec.ID, rec.SongMD5, rec.Score, rec.MaxCombo, rec.StarRating, playedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		delete from runs where song_md5 = ? and rowid not in
		  (select rowid from runs where song_md5 = ? order by rowid desc limit ?)`,
		rec.SongMD5, rec.SongMD5, s.opts.historyLimit); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		insert into best(song_md5, run_id, score, played_at) values(?, ?, ?, ?)
		on conflict(song_md5) do update set
		  run_id = excluded.run_id, score = excluded.score, played_at = excluded.played_at
		where excluded.score > best.score`,
		rec.SongMD5, rec.ID, rec.Score, playedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// History implements Store.History.
func (s *SQLiteStore) History(ctx context.Context, songMD5 string) ([]model.RunRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(since(start)) }()

	rows, err := s.db.QueryContext(ctx,
		"select id, song_md5, score, max_combo, stars, played_at from runs where song_md5 = ? order by rowid desc",
		songMD5)
	if err != nil {
		metrics.RecordRepositoryError()
		return nil, fmt.Errorf("history %q: %w", songMD5, err)
	}
	defer rows.Close()

	out := []model.RunRecord{}
	for rows.Next() {
		var rec model.RunRecord
		var playedAt int64
		if err := rows.Scan(&rec.ID, &rec.SongMD5, &rec.Score, &rec.MaxCombo, &rec.StarRating, &playedAt); err != nil {
			return nil, fmt.Errorf("history %q: %w", songMD5, err)
		}
		rec.PlayedAt = time.Unix(0, playedAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history %q: %w", songMD5, err)
	}
	return out, nil
}

// Best implements Store.Best.
func (s *SQLiteStore) Best(ctx context.Context, songMD5 string) (model.SongBest, error) {
	b := model.SongBest{SongMD5: songMD5}
	err := s.db.QueryRowContext(ctx, "select run_id, score from best where song_md5 = ?", songMD5).Scan(&b.RunID, &b.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SongBest{}, fmt.Errorf("best %q: %w", songMD5, ErrNotFound)
	}
	if err != nil {
		metrics.RecordRepositoryError()
		return model.SongBest{}, fmt.Errorf("best %q: %w", songMD5, err)
	}
	return b, nil
}

// Rank implements Store.Rank.
func (s *SQLiteStore) Rank(ctx context.Context, songMD5 string) (Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(since(start)) }()

	e := Entry{SongMD5: songMD5}
	var playedAt int64
	err := s.db.QueryRowContext(ctx, `
		select b.run_id, b.score, b.played_at,
		  (select count(distinct score) from best where score > b.score) + 1
		from best b where b.song_md5 = ?`, songMD5).Scan(&e.RunID, &e.Score, &playedAt, &e.Rank)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("rank %q: %w", songMD5, ErrNotFound)
	}
	if err != nil {
		metrics.RecordRepositoryError()
		return Entry{}, fmt.Errorf("rank %q: %w", songMD5, err)
	}
	e.PlayedAt = time.Unix(0, playedAt).UTC()
	return e, nil
}

// TopN implements Store.TopN.
func (s *SQLiteStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(since(start)) }()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		"select song_md5, run_id, score, played_at from best order by score desc, song_md5 asc limit ?", n)
	if err != nil {
		metrics.RecordRepositoryError()
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var playedAt int64
		if err := rows.Scan(&e.SongMD5, &e.RunID, &e.Score, &playedAt); err != nil {
			return nil, fmt.Errorf("top %d: %w", n, err)
		}
		e.PlayedAt = time.Unix(0, playedAt).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	assignRanksWithTies(out)
	return out, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "select count(*) from best").Scan(&n); err != nil {
		return 0, fmt.Errorf("count songs: %w", err)
	}
	metrics.UpdateRepositorySongs(n)
	return n, nil
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
