package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

func (r *Repo) Close() error { return r.db.Close() }

// EnsureUser inserts a fresh record (xp 0, level 1) unless one exists and
// returns the stored record.
func (r *Repo) EnsureUser(ctx context.Context, userID string) (*User, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users(user_id, xp, level, updated_at) VALUES (?, 0, 1, ?)`,
		userID, time.Now().Unix(),
	); err != nil {
		return nil, err
	}
	return r.GetUser(ctx, userID)
}

func (r *Repo) GetUser(ctx context.Context, userID string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, xp, level FROM users WHERE user_id = ?`, userID)
	var u User
	if err := row.Scan(&u.UserID, &u.XP, &u.Level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) SaveUser(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(user_id, xp, level, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		  xp=excluded.xp,
		  level=excluded.level,
		  updated_at=excluded.updated_at`,
		u.UserID, u.XP, u.Level, time.Now().Unix(),
	)
	return err
}
