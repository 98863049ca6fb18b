package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookverse/internal/entities"
)

// DatabaseStore keeps payloads in the blobs table of the relational store.
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	blob := entities.StoredBlob{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&blob).Error
	if err != nil {
		return fmt.Errorf("put blob %q: %w", key, err)
	}
	return nil
}

func (s *DatabaseStore) Get(ctx context.Context, key string) (*Blob, error) {
	var blob entities.StoredBlob
	err := s.db.WithContext(ctx).Where(`"key" = ?`, key).First(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %q: %w", key, err)
	}
	return &Blob{Key: blob.Key, ContentType: blob.ContentType, Size: blob.Size, Data: blob.Data}, nil
}

// Delete removes the payload. Deleting a missing key is not an error.
func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where(`"key" = ?`, key).Delete(&entities.StoredBlob{}).Error; err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}
