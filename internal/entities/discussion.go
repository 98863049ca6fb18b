package entities

import "time"

type Discussion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    uint      `gorm:"index;not null" json:"book_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Book      Book      `gorm:"foreignKey:BookID" json:"-"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Replies   []Reply   `gorm:"foreignKey:DiscussionID" json:"replies,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Discussion) TableName() string {
	return "discussions"
}

type Reply struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	DiscussionID uint       `gorm:"index;not null" json:"discussion_id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	Discussion   Discussion `gorm:"foreignKey:DiscussionID" json:"-"`
	User         User       `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (Reply) TableName() string {
	return "discussion_replies"
}
