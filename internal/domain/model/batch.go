package model

import (
	"time"

	"telegram-file-vault/internal/domain"

	"github.com/google/uuid"
)

// Batch is an ordered group of files shared by a single link.
type Batch struct {
	BatchID           string     `bson:"batch_id" json:"batch_id"`
	Files             []string   `bson:"files" json:"files"`
	TotalFiles        int        `bson:"total_files" json:"total_files"`
	LinksChannelMsgID *int       `bson:"links_channel_msg_id" json:"links_channel_msg_id,omitempty"`
	CreatedBy         int64      `bson:"created_by" json:"created_by"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	AccessCount       int64      `bson:"access_count" json:"access_count"`
	LastAccessed      *time.Time `bson:"last_accessed" json:"last_accessed,omitempty"`
}

func NewBatch(files []string, createdBy int64) (*Batch, error) {
	if len(files) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	cp := make([]string, len(files))
	copy(cp, files)
	return &Batch{
		BatchID:    uuid.NewString(),
		Files:      cp,
		TotalFiles: len(cp),
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
