package model

import (
	"strings"
	"time"
)

// ActivityKind is the group event being counted.
type ActivityKind string

const (
	ActivityFile   ActivityKind = "file"
	ActivitySearch ActivityKind = "search"
)

// Group holds settings and usage counters of a group chat.
type Group struct {
	ChatID            int64            `bson:"chat_id" json:"chat_id"`
	AutoDeleteMinutes int              `bson:"auto_delete_minutes" json:"auto_delete_minutes"`
	TotalFilesShared  int64            `bson:"total_files_shared" json:"total_files_shared"`
	TotalSearches     int64            `bson:"total_searches" json:"total_searches"`
	ActiveMembers     map[string]int64 `bson:"active_members" json:"active_members"`
	SearchTerms       map[string]int64 `bson:"search_terms" json:"search_terms"`
	LastActivity      *time.Time       `bson:"last_activity" json:"last_activity,omitempty"`
	CreatedAt         time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt         *time.Time       `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DefaultGroup is returned for chats without a stored document.
func DefaultGroup(chatID int64, now time.Time) *Group {
	now = now.UTC()
	return &Group{
		ChatID:        chatID,
		ActiveMembers: map[string]int64{},
		SearchTerms:   map[string]int64{},
		LastActivity:  &now,
		CreatedAt:     now,
	}
}

// FieldKey makes a user supplied string safe to use as a document field name.
func FieldKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.TrimLeft(s, "$")
	if s == "" {
		return "_"
	}
	return s
}
