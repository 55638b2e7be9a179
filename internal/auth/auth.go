package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/krishanu7/navalclash/config"
	"github.com/krishanu7/navalclash/db"
)

type Service struct {
	db  *sql.DB
	cfg config.Config
}

func NewService(sqlDB *sql.DB, cfg config.Config) *Service {
	return &Service{
		db:  sqlDB,
		cfg: cfg,
	}
}

func (s *Service) Register(username, email, password string) (db.User, error) {
	if username == "" || password == "" {
		return db.User{}, fmt.Errorf("username and password cannot be empty")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return db.User{}, err
	}

	userID := uuid.New()
	query := "INSERT INTO users (id, username, email, password, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id, username, email, created_at"
	var user db.User
	err = s.db.QueryRow(query, userID, username, email, string(hashedPassword), time.Now()).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_username_key" {
				return db.User{}, fmt.Errorf("username already exists")
			}
			if pqErr.Constraint == "users_email_key" {
				return db.User{}, fmt.Errorf("email already exists")
			}
		}
		return db.User{}, err
	}
	return user, nil
}

// Login verifies credentials and returns a signed token whose user_id
// claim is what binds an accountId to a seat at WS connect time.
func (s *Service) Login(username, password string) (string, error) {
	var user db.User
	err := s.db.QueryRow(`
		SELECT id, username, email, password, created_at
		FROM users
		WHERE username = $1`, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		return "", errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
