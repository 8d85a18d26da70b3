package repository

import "database/sql"

type Repo struct {
	db *sql.DB
}

// User is a member's leveling record.
type User struct {
	UserID string
	XP     int
	Level  int
}
