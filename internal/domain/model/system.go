package model

import "time"

// Well-known keys of the system collection.
const (
	KeyTokenVerification = "token_verification_enabled"
	KeyLastError         = "last_error"
	KeyBotSettings       = "bot_settings"
)

// ErrorRecord is stored under KeyLastError by the update error handler.
type ErrorRecord struct {
	Error     string    `bson:"error" json:"error"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ChatID    int64     `bson:"chat_id" json:"chat_id"`
}
