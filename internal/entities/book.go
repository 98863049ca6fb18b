package entities

import "time"

type Book struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"index;size:512;not null" json:"title"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	AuthorID     uint      `gorm:"index;not null" json:"author_id"`
	Author       User      `gorm:"foreignKey:AuthorID" json:"-"`
	PurchaseLink string    `gorm:"size:2048" json:"purchase_link,omitempty"`
	DocumentKey  string    `gorm:"size:255" json:"-"`
	DocumentType string    `gorm:"size:100" json:"document_type,omitempty"`
	DocumentSize int64     `json:"document_size,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) HasDocument() bool {
	return b.DocumentKey != ""
}
