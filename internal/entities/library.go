package entities

import "time"

// LibraryEntry marks a book as saved to a user's personal library.
// LastRead is nil until the user opens the book for reading.
type LibraryEntry struct {
	UserID   uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	BookID   uint       `gorm:"primaryKey;autoIncrement:false;index" json:"book_id"`
	AddedAt  time.Time  `gorm:"not null" json:"added_at"`
	LastRead *time.Time `gorm:"index" json:"last_read,omitempty"`
	User     User       `gorm:"foreignKey:UserID" json:"-"`
	Book     Book       `gorm:"foreignKey:BookID" json:"-"`
}

func (LibraryEntry) TableName() string {
	return "library_entries"
}
