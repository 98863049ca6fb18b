// Package badges stores achievement badges. A badge is held at most once.
package badges

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Has reports whether the user already holds the badge.
func (r *Repository) Has(userID uint, badgeType entities.BadgeType, name string) (bool, error) {
	var n int64
	err := r.db.Model(&entities.Badge{}).
		Where("user_id = ? AND badge_type = ? AND badge_name = ?", userID, badgeType, name).
		Count(&n).Error
	return n > 0, err
}

// Award inserts the badge and reports whether it is new. A badge the user
// already holds is not an error.
func (r *Repository) Award(badge *entities.Badge) (bool, error) {
	if badge.AwardedAt.IsZero() {
		badge.AwardedAt = time.Now().UTC()
	}
	err := r.db.Omit(clause.Associations).Create(badge).Error
	if database.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListForUser returns the user's badges in the order they were earned.
func (r *Repository) ListForUser(userID uint) ([]entities.Badge, error) {
	var out []entities.Badge
	err := r.db.Where("user_id = ?", userID).Order("awarded_at ASC, id ASC").Find(&out).Error
	return out, err
}
