package models

import "time"

// Auth event types published to the security topic.
const (
	EventOTPRequested   = "otp.requested"
	EventOTPVerified    = "otp.verified"
	EventOTPFailed      = "otp.failed"
	EventLoginSucceeded = "login.succeeded"
)

// AuthEvent is the audit payload for authentication activity. Phone
// numbers are carried as hashes only.
type AuthEvent struct {
	EventID     string    `json:"event_id"`
	EventBucket int       `json:"event_bucket"`
	EventDate   string    `json:"event_date"`
	EventTime   time.Time `json:"event_time"`
	EventType   string    `json:"event_type"`
	PhoneHash   string    `json:"phone_hash"`
	UserID      string    `json:"user_id,omitempty"`
	ClientID    string    `json:"client_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}
