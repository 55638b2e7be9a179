package stats

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type LeaderboardEntry struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Wins      int    `json:"wins"`
	Losses    int    `json:"losses"`
	Elo       int    `json:"elo"`
}

// Leaderboard returns the top rated accounts. The Redis sorted set is
// consulted first; the SQL join is the fallback when the cache is cold
// or Redis is down.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if s.rdb != nil {
		if entries, err := s.leaderboardFromRedis(ctx, limit); err == nil && len(entries) > 0 {
			return entries, nil
		}
	}
	return s.leaderboardFromSQL(ctx, limit)
}

func (s *Service) leaderboardFromRedis(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	ranked, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(ranked))
	for _, z := range ranked {
		accountID, ok := z.Member.(string)
		if !ok {
			continue
		}
		entry := LeaderboardEntry{AccountID: accountID, Elo: int(z.Score)}
		if s.db != nil {
			_ = s.db.QueryRowContext(ctx, `
				SELECT u.username, s.wins, s.losses FROM stats s
				JOIN users u ON s.account_id = u.id::text
				WHERE s.account_id = $1`, accountID,
			).Scan(&entry.Username, &entry.Wins, &entry.Losses)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) leaderboardFromSQL(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if s.db == nil {
		return nil, redis.Nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.account_id, u.username, s.wins, s.losses, s.elo
		FROM stats s
		JOIN users u ON s.account_id = u.id::text
		ORDER BY s.elo DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.AccountID, &e.Username, &e.Wins, &e.Losses, &e.Elo); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
