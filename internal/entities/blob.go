package entities

import "time"

// StoredBlob is an opaque payload kept in the relational store.
type StoredBlob struct {
	Key         string    `gorm:"primaryKey;size:255"`
	ContentType string    `gorm:"size:100"`
	Size        int64     `gorm:"not null"`
	Data        []byte    `gorm:"not null"`
	CreatedAt   time.Time
}

func (StoredBlob) TableName() string {
	return "blobs"
}
