package entities

import "time"

type BadgeType string

const (
	BadgeTypeReader   BadgeType = "reader"
	BadgeTypeReviewer BadgeType = "reviewer"
)

// Badge is awarded at most once per (user, type, name).
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_badges_user_type_name" json:"user_id"`
	BadgeType   BadgeType `gorm:"size:50;not null;uniqueIndex:idx_badges_user_type_name" json:"badge_type"`
	BadgeName   string    `gorm:"size:100;not null;uniqueIndex:idx_badges_user_type_name" json:"badge_name"`
	Description string    `gorm:"size:255" json:"description"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	AwardedAt   time.Time `gorm:"not null" json:"awarded_at"`
}

func (Badge) TableName() string {
	return "badges"
}
