// Package engagement tracks reading activity and awards badges.
//
// A read by a reader updates, in one transaction, the library entry's
// last_read, the user's books_read and reading_streak counters, and the
// badges those counters earn. Other roles can read books without being
// tracked.
package engagement

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/config"
	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/database/badges"
	"github.com/mrlokans/bookverse/internal/database/library"
	"github.com/mrlokans/bookverse/internal/database/reviews"
	"github.com/mrlokans/bookverse/internal/database/users"
	"github.com/mrlokans/bookverse/internal/entities"
)

// Recorder observes engagement events, typically for metrics.
type Recorder interface {
	ObserveRead()
	ObserveBadge(name string)
}

// ReadResult is the outcome of RecordRead.
type ReadResult struct {
	Tracked       bool           `json:"tracked"`
	FirstRead     bool           `json:"first_read"`
	BooksRead     int            `json:"books_read"`
	ReadingStreak int            `json:"reading_streak"`
	Notifications []Notification `json:"notifications,omitempty"`
}

// Tracker records reads and evaluates badges.
type Tracker struct {
	db       *gorm.DB
	cfg      config.Engagement
	now      func() time.Time
	recorder Recorder
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithRecorder reports reads and awarded badges to r.
func WithRecorder(r Recorder) TrackerOption {
	return func(t *Tracker) {
		t.recorder = r
	}
}

func NewTracker(db *gorm.DB, cfg config.Engagement, opts ...TrackerOption) *Tracker {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	t := &Tracker{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordRead registers that user opened bookID. Only readers are tracked;
// for anyone else it returns a zero result and writes nothing.
func (t *Tracker) RecordRead(ctx context.Context, user *entities.User, bookID uint) (*ReadResult, error) {
	if user == nil || user.Role != entities.RoleReader {
		return &ReadResult{}, nil
	}

	now := t.now()
	result := &ReadResult{Tracked: true}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		libraryRepo := library.NewRepository(tx)

		current, err := userRepo.GetByID(user.ID)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		// Both lookups must precede the write below.
		previous, err := libraryRepo.LatestRead(user.ID)
		if err != nil {
			return fmt.Errorf("failed to load latest read: %w", err)
		}
		entry, err := libraryRepo.Get(user.ID, bookID)
		if err != nil && !database.IsNotFound(err) {
			return fmt.Errorf("failed to load library entry: %w", err)
		}

		if err := libraryRepo.Touch(user.ID, bookID, now); err != nil {
			return fmt.Errorf("failed to record read: %w", err)
		}

		result.FirstRead = entry == nil || entry.LastRead == nil
		result.BooksRead = current.BooksRead
		if result.FirstRead {
			result.BooksRead++
		}
		result.ReadingStreak = nextStreak(current.ReadingStreak, previous, now, t.cfg.Location, t.cfg.ResetStreakAfterGap)

		if err := userRepo.UpdateCounters(user.ID, result.BooksRead, result.ReadingStreak); err != nil {
			return fmt.Errorf("failed to update counters: %w", err)
		}

		reviewCount, err := reviews.NewRepository(tx).CountByUser(user.ID)
		if err != nil {
			return fmt.Errorf("failed to count reviews: %w", err)
		}

		result.Notifications, err = t.award(tx, user.ID, Stats{
			BooksRead:     result.BooksRead,
			ReadingStreak: result.ReadingStreak,
			Reviews:       reviewCount,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	user.BooksRead = result.BooksRead
	user.ReadingStreak = result.ReadingStreak
	t.observe(result.Notifications, true)

	return result, nil
}

// EvaluateBadges awards every badge the user's current counters earn and
// returns notifications for the new ones. Badges already held are skipped.
func (t *Tracker) EvaluateBadges(ctx context.Context, userID uint) ([]Notification, error) {
	var notifications []Notification

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).GetByID(userID)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		reviewCount, err := reviews.NewRepository(tx).CountByUser(userID)
		if err != nil {
			return fmt.Errorf("failed to count reviews: %w", err)
		}

		notifications, err = t.award(tx, userID, Stats{
			BooksRead:     user.BooksRead,
			ReadingStreak: user.ReadingStreak,
			Reviews:       reviewCount,
		}, t.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	t.observe(notifications, false)
	return notifications, nil
}

func (t *Tracker) award(tx *gorm.DB, userID uint, stats Stats, now time.Time) ([]Notification, error) {
	repo := badges.NewRepository(tx)

	var out []Notification
	for _, rule := range Earned(stats) {
		held, err := repo.Has(userID, rule.Type, rule.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check badge %q: %w", rule.Name, err)
		}
		if held {
			continue
		}

		badge := entities.Badge{
			UserID:      userID,
			BadgeType:   rule.Type,
			BadgeName:   rule.Name,
			Description: rule.Description,
			AwardedAt:   now.UTC(),
		}
		created, err := repo.Award(&badge)
		if err != nil {
			return nil, fmt.Errorf("failed to award badge %q: %w", rule.Name, err)
		}
		if created {
			out = append(out, notify(badge))
		}
	}
	return out, nil
}

func (t *Tracker) observe(notifications []Notification, read bool) {
	if t.recorder == nil {
		return
	}
	if read {
		t.recorder.ObserveRead()
	}
	for _, n := range notifications {
		t.recorder.ObserveBadge(n.Badge.BadgeName)
	}
}

// Badges lists the badges a user holds.
func (t *Tracker) Badges(ctx context.Context, userID uint) ([]entities.Badge, error) {
	return badges.NewRepository(t.db.WithContext(ctx)).ListForUser(userID)
}

