package model

import (
	"strconv"
	"strings"
	"time"

	"telegram-file-vault/internal/domain"
)

// User is the moderation record of a Telegram user. A document exists only
// for users that were banned at least once.
type User struct {
	UserID    int64      `bson:"user_id" json:"user_id"`
	IsBanned  bool       `bson:"is_banned" json:"is_banned"`
	BanDate   *time.Time `bson:"ban_date,omitempty" json:"ban_date,omitempty"`
	BanReason string     `bson:"ban_reason,omitempty" json:"ban_reason,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// ParseUserID validates a Telegram user id typed by an admin.
func ParseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidArgument
	}
	return id, nil
}
