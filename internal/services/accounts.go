package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/database/users"
	"github.com/mrlokans/bookverse/internal/entities"
	"github.com/mrlokans/bookverse/internal/storage"
)

// AccountService maintains profiles and deletes accounts.
type AccountService struct {
	users          *users.Repository
	blobs          storage.BlobStore
	maxUploadBytes int64
}

func NewAccountService(db *gorm.DB, blobs storage.BlobStore, maxUploadBytes int64) *AccountService {
	return &AccountService{
		users:          users.NewRepository(db),
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
	}
}

// UpdateProfile sets the display name and, when avatar is non-nil, replaces
// the avatar. user is updated in place on success.
func (s *AccountService) UpdateProfile(ctx context.Context, user *entities.User, displayName string, avatar *Upload) error {
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLength {
		return ErrDisplayNameTooLong
	}

	avatarKey := user.AvatarKey
	if avatar != nil {
		if err := avatar.check(s.maxUploadBytes); err != nil {
			return err
		}
		avatarKey = storage.NewKey(storage.PrefixAvatars)
		if err := s.blobs.Put(ctx, avatarKey, avatar.Data, avatar.contentType()); err != nil {
			return fmt.Errorf("failed to store avatar: %w", err)
		}
	}

	if err := s.users.UpdateProfile(user.ID, displayName, avatarKey); err != nil {
		if avatarKey != user.AvatarKey {
			s.discard(ctx, avatarKey)
		}
		return err
	}
	if avatarKey != user.AvatarKey {
		s.discard(ctx, user.AvatarKey)
	}

	user.DisplayName = displayName
	user.AvatarKey = avatarKey
	return nil
}

// Avatar returns the user's avatar payload.
func (s *AccountService) Avatar(ctx context.Context, user *entities.User) (*storage.Blob, error) {
	if !user.HasAvatar() {
		return nil, ErrNoAvatar
	}
	blob, err := s.blobs.Get(ctx, user.AvatarKey)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNoAvatar, err)
	}
	return blob, err
}

// DeleteUser hard-deletes the account with everything it owns, then drops
// the avatar and book documents from the blob store.
func (s *AccountService) DeleteUser(ctx context.Context, userID uint) error {
	deleted, err := s.users.Delete(userID)
	if err != nil {
		return err
	}
	keys := append([]string{deleted.AvatarKey}, deleted.DocumentKeys...)
	s.discard(ctx, keys...)
	return nil
}

func (s *AccountService) discard(ctx context.Context, keys ...string) {
	if err := storage.DeleteQuietly(ctx, s.blobs, keys...); err != nil {
		log.Printf("Failed to delete blobs %v: %v", keys, err)
	}
}
