package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"image-studio-client/internal/models"
)

// sessionRowID pins the single persisted session row.
const sessionRowID = 1

// ErrNoSession is returned by LoadSession when nobody is logged in.
var ErrNoSession = errors.New("no persisted session")

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) SaveSession(token string, user *models.User) error {
	userJSON := []byte("{}")
	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		userJSON = data
	}

	_, err := r.db.db.Exec(r.db.rebind(`
		INSERT INTO sessions (id, token, user_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET token = excluded.token, user_json = excluded.user_json, updated_at = excluded.updated_at
	`), sessionRowID, token, string(userJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) LoadSession() (string, *models.User, error) {
	var token, userJSON string
	err := r.db.db.QueryRow(
		r.db.rebind("SELECT token, user_json FROM sessions WHERE id = ?"),
		sessionRowID,
	).Scan(&token, &userJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNoSession
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load session: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return "", nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return token, &user, nil
}

func (r *SessionRepository) DeleteSession() error {
	_, err := r.db.db.Exec(r.db.rebind("DELETE FROM sessions WHERE id = ?"), sessionRowID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
