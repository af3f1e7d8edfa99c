package model

import (
	"strings"
	"time"

	"telegram-file-vault/internal/domain"

	"github.com/google/uuid"
)

// File is a message stored in the database channel and shared by link.
type File struct {
	FileID            string     `bson:"file_id" json:"file_id"`
	MessageID         int        `bson:"message_id" json:"message_id"`
	CustomName        string     `bson:"custom_name" json:"custom_name"`
	MediaType         MediaType  `bson:"media_type" json:"media_type"`
	Caption           string     `bson:"caption" json:"caption"`
	FileLink          string     `bson:"file_link" json:"file_link"`
	LinksChannelMsgID *int       `bson:"links_channel_msg_id" json:"links_channel_msg_id,omitempty"`
	CreatedBy         int64      `bson:"created_by" json:"created_by"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	AccessCount       int64      `bson:"access_count" json:"access_count"`
	LastAccessed      *time.Time `bson:"last_accessed" json:"last_accessed,omitempty"`
}

// NewFile builds the metadata of a freshly forwarded message.
func NewFile(messageID int, createdBy int64, customName string, media MediaType, caption string) (*File, error) {
	if messageID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if media == "" {
		media = MediaUnknown
	}
	return &File{
		FileID:     uuid.NewString(),
		MessageID:  messageID,
		CustomName: strings.TrimSpace(customName),
		MediaType:  media,
		Caption:    caption,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// DisplayName is the name shown to users.
func (f *File) DisplayName() string {
	if f.CustomName != "" {
		return f.CustomName
	}
	return "Unnamed file"
}

// SearchQuery filters the file collection.
type SearchQuery struct {
	Text  string
	Day   *time.Time // matches files created within [Day, Day+24h)
	Limit int
}
