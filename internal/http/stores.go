package http

import (
	"context"

	"github.com/mrlokans/bookverse/internal/audit"
	"github.com/mrlokans/bookverse/internal/engagement"
	"github.com/mrlokans/bookverse/internal/entities"
	"github.com/mrlokans/bookverse/internal/services"
	"github.com/mrlokans/bookverse/internal/storage"
)

// Controllers reach the repositories directly; the interfaces below cover
// the services that coordinate several stores.

// ReadTracker records reads and awards badges.
type ReadTracker interface {
	RecordRead(ctx context.Context, user *entities.User, bookID uint) (*engagement.ReadResult, error)
	EvaluateBadges(ctx context.Context, userID uint) ([]engagement.Notification, error)
	Badges(ctx context.Context, userID uint) ([]entities.Badge, error)
}

// BookCatalog publishes books together with their documents.
type BookCatalog interface {
	Publish(ctx context.Context, author *entities.User, in services.BookInput, doc *services.Upload) (*entities.Book, error)
	Revise(ctx context.Context, book *entities.Book, in services.BookInput, doc *services.Upload) error
	Remove(ctx context.Context, bookID uint) error
	Document(ctx context.Context, book *entities.Book) (*storage.Blob, error)
}

// AccountManager maintains profiles and deletes accounts.
type AccountManager interface {
	UpdateProfile(ctx context.Context, user *entities.User, displayName string, avatar *services.Upload) error
	Avatar(ctx context.Context, user *entities.User) (*storage.Blob, error)
	DeleteUser(ctx context.Context, userID uint) error
}

// Auditor records domain actions. *audit.Service implements it.
type Auditor interface {
	LogContent(req audit.Request, action, entityType string, entityID uint, description string, err error)
	LogModeration(req audit.Request, action, entityType string, entityID uint, description string)
	LogSupport(req audit.Request, action string, queryID uint, description string)
}
