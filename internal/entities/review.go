package entities

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is unique per (user, book); a repeated submission updates the row.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    uint      `gorm:"not null;uniqueIndex:idx_reviews_user_book,priority:2;index" json:"book_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reviews_user_book,priority:1" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	Book      Book      `gorm:"foreignKey:BookID" json:"-"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
