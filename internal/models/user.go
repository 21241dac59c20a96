package models

import "time"

// User is the directory record for a citizen, looked up or created by
// phone number after a successful OTP verification.
type User struct {
	UserBucket int        `db:"user_bucket" json:"-"`
	UserID     string     `db:"user_id" json:"id"`
	Phone      string     `db:"phone" json:"phone"`
	Name       string     `db:"name" json:"name"`
	Language   string     `db:"language" json:"language"` // "en" or "ml"
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastLogin  *time.Time `db:"last_login" json:"last_login,omitempty"`
}
