package pvpchess

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/wager-chess/internal/chess"
	"github.com/park285/wager-chess/internal/domain"
)

// ResultRepository stores finished games for rating and ledger collaborators.
type ResultRepository interface {
	SaveResult(ctx context.Context, res *domain.GameResult) error
	RecentResults(ctx context.Context, player string, limit int) ([]*domain.GameResult, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const schemaChessResults = `CREATE TABLE IF NOT EXISTS chess_results (
    id           BIGSERIAL PRIMARY KEY,
    game_id      TEXT NOT NULL UNIQUE,
    white_id     TEXT NOT NULL,
    black_id     TEXT NOT NULL,
    winner_id    TEXT NOT NULL DEFAULT '',
    result       TEXT NOT NULL,
    termination  TEXT NOT NULL,
    wager        BIGINT NOT NULL DEFAULT 0,
    rated        BOOLEAN NOT NULL DEFAULT FALSE,
    moves        JSONB NOT NULL DEFAULT '[]',
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL DEFAULT 0
)`

// EnsureSchema creates the results table when it is missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schemaChessResults)
	return err
}

// SaveResult upserts a final game result.
func (r *Repository) SaveResult(ctx context.Context, res *domain.GameResult) error {
	if r == nil || r.db == nil || res == nil {
		return nil
	}
	movesRaw, err := json.Marshal(res.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	q := `INSERT INTO chess_results (
        game_id, white_id, black_id, winner_id, result, termination,
        wager, rated, moves, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
      ) ON CONFLICT (game_id) DO UPDATE SET
        white_id=EXCLUDED.white_id,
        black_id=EXCLUDED.black_id,
        winner_id=EXCLUDED.winner_id,
        result=EXCLUDED.result,
        termination=EXCLUDED.termination,
        wager=EXCLUDED.wager,
        rated=EXCLUDED.rated,
        moves=EXCLUDED.moves,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		res.GameID,
		res.WhiteID, res.BlackID, res.WinnerID,
		res.Result, res.Termination,
		int64(res.Wager), res.Rated, string(movesRaw),
		res.StartedAt, res.EndedAt, res.Duration.Milliseconds(),
	)
	return err
}

// RecentResults lists a player's finished games, newest first.
func (r *Repository) RecentResults(ctx context.Context, player string, limit int) ([]*domain.GameResult, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT id, game_id, white_id, black_id, winner_id, result, termination,
        wager, rated, moves, started_at, ended_at, duration_ms
      FROM chess_results
      WHERE white_id = $1 OR black_id = $1
      ORDER BY ended_at DESC, id DESC
      LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, strings.TrimSpace(player), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.GameResult
	for rows.Next() {
		var (
			res      domain.GameResult
			wager    int64
			movesRaw []byte
			duration int64
		)
		if err := rows.Scan(&res.ID, &res.GameID, &res.WhiteID, &res.BlackID, &res.WinnerID,
			&res.Result, &res.Termination, &wager, &res.Rated, &movesRaw,
			&res.StartedAt, &res.EndedAt, &duration); err != nil {
			return nil, err
		}
		if len(movesRaw) > 0 {
			if err := json.Unmarshal(movesRaw, &res.Moves); err != nil {
				return nil, fmt.Errorf("decode moves for %s: %w", res.GameID, err)
			}
		}
		if wager > 0 {
			res.Wager = uint64(wager)
		}
		res.Duration = time.Duration(duration) * time.Millisecond
		out = append(out, &res)
	}
	return out, rows.Err()
}

// resultFromRecord builds the persisted row for a finished game; nil while the game is running.
func resultFromRecord(rec *Record) *domain.GameResult {
	if rec == nil || rec.Game == nil {
		return nil
	}
	outcome, ok := rec.Game.Outcome()
	if !ok {
		return nil
	}
	white, _ := rec.Game.Seat(chess.White)
	black, _ := rec.Game.Seat(chess.Black)
	res := &domain.GameResult{
		GameID:      rec.ID,
		WhiteID:     string(white),
		BlackID:     string(black),
		Result:      resultToken(outcome),
		Termination: string(outcome.Termination),
		Wager:       rec.Game.Config().Wager,
		Rated:       outcome.Rated,
		Moves:       append([]string(nil), rec.Moves...),
		StartedAt:   rec.CreatedAt,
		EndedAt:     rec.UpdatedAt,
	}
	switch outcome.Winner {
	case chess.White:
		res.WinnerID = res.WhiteID
	case chess.Black:
		res.WinnerID = res.BlackID
	}
	if d := res.EndedAt.Sub(res.StartedAt); d > 0 {
		res.Duration = d
	}
	return res
}

func resultToken(o chess.Outcome) string {
	switch {
	case o.Draw:
		return "1/2-1/2"
	case o.Winner == chess.White:
		return "1-0"
	case o.Winner == chess.Black:
		return "0-1"
	default:
		return "*"
	}
}
