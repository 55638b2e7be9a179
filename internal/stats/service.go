// Package stats is the external history sink the game core hands
// finished matches to. Everything here is fire-and-forget relative to
// gameplay: a failed write is logged and dropped, never propagated back
// into room state.
package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/krishanu7/navalclash/db"
	"github.com/krishanu7/navalclash/internal/game"
)

const (
	leaderboardKey = "leaderboard:elo"
	resultsChannel = "match_results"
	startingElo    = 1500
	eloK           = 32
	recordTimeout  = 5 * time.Second
)

type Service struct {
	db  *sql.DB
	rdb *redis.Client
	log zerolog.Logger
}

func NewService(sqlDB *sql.DB, rdb *redis.Client, log zerolog.Logger) *Service {
	return &Service{db: sqlDB, rdb: rdb, log: log}
}

// RecordMatch persists one finished match: a match row, per-account
// win/loss/Elo updates, the Redis leaderboard mirror, and a pub/sub
// notification for lobby listeners.
func (s *Service) RecordMatch(sum game.MatchSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	var winner, loser *game.PlayerResult
	for i := range sum.Players {
		if sum.Players[i].Result == "win" {
			winner = &sum.Players[i]
		} else {
			loser = &sum.Players[i]
		}
	}
	if winner == nil || loser == nil {
		s.log.Error().Str("room", sum.RoomID).Msg("summary missing winner or loser")
		return
	}

	if s.db != nil {
		if err := s.persist(ctx, sum, winner, loser); err != nil {
			s.log.Error().Err(err).Str("room", sum.RoomID).Msg("failed to persist match")
		}
	}
	if s.rdb != nil {
		s.publish(ctx, sum, winner, loser)
	}
}

// matchRowFrom flattens a summary into the matches table shape.
func matchRowFrom(sum game.MatchSummary, winner, loser *game.PlayerResult) db.MatchRow {
	return db.MatchRow{
		RoomID:          sum.RoomID,
		Mode:            sum.Mode,
		DurationSeconds: int(sum.Duration.Seconds()),
		EndReason:       sum.EndReason,
		WinnerAccount:   winner.AccountID,
		LoserAccount:    loser.AccountID,
		CreatedAt:       time.Now(),
	}
}

func (s *Service) persist(ctx context.Context, sum game.MatchSummary, winner, loser *game.PlayerResult) error {
	row := matchRowFrom(sum, winner, loser)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (room_id, mode, duration_seconds, end_reason, winner_account, loser_account, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.RoomID, row.Mode, row.DurationSeconds, row.EndReason,
		nullIfEmpty(row.WinnerAccount), nullIfEmpty(row.LoserAccount), row.CreatedAt,
	)
	if err != nil {
		return err
	}

	// Ratings only move when both seats are signed-in accounts; a guest
	// opponent would make the Elo exchange meaningless.
	if winner.AccountID == "" || loser.AccountID == "" {
		return nil
	}

	winnerStats, err := s.loadStats(ctx, winner.AccountID)
	if err != nil {
		return err
	}
	loserStats, err := s.loadStats(ctx, loser.AccountID)
	if err != nil {
		return err
	}

	expectedWinner := 1 / (1 + math.Pow(10, float64(loserStats.Elo-winnerStats.Elo)/400))
	expectedLoser := 1 / (1 + math.Pow(10, float64(winnerStats.Elo-loserStats.Elo)/400))
	newWinnerElo := winnerStats.Elo + int(float64(eloK)*(1-expectedWinner))
	newLoserElo := loserStats.Elo + int(float64(eloK)*(0-expectedLoser))

	if err := s.upsertStats(ctx, winner.AccountID, winnerStats.Wins+1, winnerStats.Losses, newWinnerElo); err != nil {
		return err
	}
	if err := s.upsertStats(ctx, loser.AccountID, loserStats.Wins, loserStats.Losses+1, newLoserElo); err != nil {
		return err
	}

	if s.rdb != nil {
		s.rdb.ZAdd(ctx, leaderboardKey,
			redis.Z{Score: float64(newWinnerElo), Member: winner.AccountID},
			redis.Z{Score: float64(newLoserElo), Member: loser.AccountID},
		)
	}
	return nil
}

func (s *Service) loadStats(ctx context.Context, accountID string) (db.PlayerStats, error) {
	stats := db.PlayerStats{AccountID: accountID, Elo: startingElo}
	err := s.db.QueryRowContext(ctx,
		"SELECT account_id, wins, losses, elo FROM stats WHERE account_id = $1", accountID,
	).Scan(&stats.AccountID, &stats.Wins, &stats.Losses, &stats.Elo)
	if err == sql.ErrNoRows {
		return db.PlayerStats{AccountID: accountID, Elo: startingElo}, nil
	}
	return stats, err
}

func (s *Service) upsertStats(ctx context.Context, accountID string, wins, losses, elo int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stats (account_id, wins, losses, elo) VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE SET wins = $2, losses = $3, elo = $4`,
		accountID, wins, losses, elo,
	)
	return err
}

func (s *Service) publish(ctx context.Context, sum game.MatchSummary, winner, loser *game.PlayerResult) {
	notification := struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
		Mode   string `json:"mode"`
		Winner string `json:"winner"`
		Loser  string `json:"loser"`
		Reason string `json:"reason"`
	}{
		Type:   "match_result",
		RoomID: sum.RoomID,
		Mode:   sum.Mode,
		Winner: winner.ClientID,
		Loser:  loser.ClientID,
		Reason: sum.EndReason,
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal match notification")
		return
	}
	if err := s.rdb.Publish(ctx, resultsChannel, payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish match notification")
	}
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
