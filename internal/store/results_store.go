package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlayerLine is one participant's figures in a completed match.
type PlayerLine struct {
	PlayerID     string `json:"playerId"`
	Name         string `json:"name"`
	Automated    bool   `json:"automated"`
	Runs         int    `json:"runsScored"`
	BallsFaced   int    `json:"ballsFaced"`
	Fours        int    `json:"fours"`
	Sixes        int    `json:"sixes"`
	BallsBowled  int    `json:"ballsBowled"`
	RunsConceded int    `json:"runsConceded"`
	Wickets      int    `json:"wicketsTaken"`
}

// MatchResult is the archived outcome of a match.
type MatchResult struct {
	ID            int64        `json:"id"`
	Code          string       `json:"gameCode"`
	OverLimit     *int         `json:"overLimit"`
	WinnerID      string       `json:"winnerId,omitempty"`
	WinnerName    string       `json:"winnerName,omitempty"`
	Draw          bool         `json:"isDraw"`
	Forfeit       bool         `json:"forfeit"`
	FirstInnings  int          `json:"firstInnings"`
	SecondInnings *int         `json:"secondInnings"`
	Target        *int         `json:"target"`
	Players       []PlayerLine `json:"players"`
	FinishedAt    time.Time    `json:"finishedAt"`
}

type playerRow struct {
	resultID int64
	PlayerLine
}

type ResultsStore struct {
	db *pgxpool.Pool
}

func NewResultsStore(db *pgxpool.Pool) *ResultsStore {
	return &ResultsStore{db: db}
}

// Record stores a result and its player lines in one transaction.
func (s *ResultsStore) Record(ctx context.Context, r MatchResult) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO match_results
			(code, over_limit, winner_id, winner_name, draw, forfeit,
			 first_innings, second_innings, target, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, r.Code, r.OverLimit, r.WinnerID, r.WinnerName, r.Draw, r.Forfeit,
		r.FirstInnings, r.SecondInnings, r.Target, r.FinishedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert result %s: %w", r.Code, err)
	}

	for _, p := range r.Players {
		_, err := tx.Exec(ctx, `
			INSERT INTO match_players
				(result_id, player_id, name, automated, runs, balls_faced, fours, sixes,
				 balls_bowled, runs_conceded, wickets)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, id, p.PlayerID, p.Name, p.Automated, p.Runs, p.BallsFaced, p.Fours, p.Sixes,
			p.BallsBowled, p.RunsConceded, p.Wickets)
		if err != nil {
			return 0, fmt.Errorf("insert player %s: %w", p.PlayerID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Recent lists the latest results, newest first.
func (s *ResultsStore) Recent(ctx context.Context, limit int) ([]MatchResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, code, over_limit, winner_id, winner_name, draw, forfeit,
		       first_innings, second_innings, target, finished_at
		FROM match_results
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	var out []MatchResult
	byID := make(map[int64]int)
	for rows.Next() {
		var r MatchResult
		if err := rows.Scan(&r.ID, &r.Code, &r.OverLimit, &r.WinnerID, &r.WinnerName, &r.Draw, &r.Forfeit,
			&r.FirstInnings, &r.SecondInnings, &r.Target, &r.FinishedAt); err != nil {
			rows.Close()
			return nil, err
		}
		byID[r.ID] = len(out)
		out = append(out, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(out))
	for id := range byID {
		ids = append(ids, id)
	}
	prow, err := s.db.Query(ctx, `
		SELECT result_id, player_id, name, automated, runs, balls_faced, fours, sixes,
		       balls_bowled, runs_conceded, wickets
		FROM match_players
		WHERE result_id = ANY($1)
		ORDER BY result_id, id
	`, ids)
	if err != nil {
		return nil, err
	}
	lines, err := pgx.CollectRows(prow, func(row pgx.CollectableRow) (playerRow, error) {
		var v playerRow
		err := row.Scan(&v.resultID, &v.PlayerID, &v.Name, &v.Automated, &v.Runs,
			&v.BallsFaced, &v.Fours, &v.Sixes, &v.BallsBowled, &v.RunsConceded, &v.Wickets)
		return v, err
	})
	if err != nil {
		return nil, err
	}
	for _, v := range lines {
		i := byID[v.resultID]
		out[i].Players = append(out[i].Players, v.PlayerLine)
	}
	return out, nil
}
