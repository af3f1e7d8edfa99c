package model

import (
	"time"

	"telegram-file-vault/internal/domain"

	"github.com/google/uuid"
)

// SystemUserID owns tokens that are valid for every user.
const SystemUserID int64 = 0

// AccessToken grants file access until Expiry. Expired documents are removed
// by a TTL index.
type AccessToken struct {
	Token     string     `bson:"token" json:"token"`
	UserID    int64      `bson:"user_id" json:"user_id"`
	Expiry    time.Time  `bson:"expiry" json:"expiry"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UsedCount int64      `bson:"used_count" json:"used_count"`
	LastUsed  *time.Time `bson:"last_used" json:"last_used,omitempty"`
}

func NewAccessToken(userID int64, ttl time.Duration, now time.Time) (*AccessToken, error) {
	if ttl <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now = now.UTC()
	return &AccessToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		Expiry:    now.Add(ttl),
		CreatedAt: now,
	}, nil
}

func (t *AccessToken) IsSystem() bool { return t.UserID == SystemUserID }

// ValidFor reports whether the token is still valid after d from now.
func (t *AccessToken) ValidFor(now time.Time, d time.Duration) bool {
	return t.Expiry.Sub(now) > d
}

// Grants reports whether a redeemed token owned by ownerID unlocks userID.
func Grants(ownerID, userID int64) bool {
	return ownerID == userID || ownerID == SystemUserID
}
