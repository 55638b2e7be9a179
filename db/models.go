package db

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"` // bcrypt hash
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type PlayerStats struct {
	AccountID string `json:"account_id" db:"account_id"`
	Wins      int    `json:"wins" db:"wins"`
	Losses    int    `json:"losses" db:"losses"`
	Elo       int    `json:"elo" db:"elo"`
}

type MatchRow struct {
	ID              int64     `json:"id" db:"id"`
	RoomID          string    `json:"room_id" db:"room_id"`
	Mode            string    `json:"mode" db:"mode"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	EndReason       string    `json:"end_reason" db:"end_reason"`
	WinnerAccount   string    `json:"winner_account" db:"winner_account"`
	LoserAccount    string    `json:"loser_account" db:"loser_account"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
