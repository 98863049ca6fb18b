// Package discussions stores discussion threads about books and their
// replies.
package discussions

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/entities"
)

var (
	ErrTitleRequired   = fmt.Errorf("%w: title is required", database.ErrValidation)
	ErrBodyRequired    = fmt.Errorf("%w: body is required", database.ErrValidation)
	ErrContentRequired = fmt.Errorf("%w: reply content is required", database.ErrValidation)
)

// DiscussionView is a discussion joined with its book and author.
type DiscussionView struct {
	ID          uint      `json:"id"`
	BookID      uint      `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ReplyCount  int64     `json:"reply_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReplyView is a reply joined with its author.
type ReplyView struct {
	ID           uint      `json:"id"`
	DiscussionID uint      `json:"discussion_id"`
	UserID       uint      `json:"user_id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// Thread is a discussion with its replies in posting order.
type Thread struct {
	DiscussionView
	Replies []ReplyView `json:"replies"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create starts a discussion about a book.
func (r *Repository) Create(d *entities.Discussion) error {
	d.Title = strings.TrimSpace(d.Title)
	d.Body = strings.TrimSpace(d.Body)
	if d.Title == "" {
		return ErrTitleRequired
	}
	if d.Body == "" {
		return ErrBodyRequired
	}
	return r.db.Omit(clause.Associations).Create(d).Error
}

// Get returns the bare discussion row.
func (r *Repository) Get(id uint) (*entities.Discussion, error) {
	var d entities.Discussion
	if err := r.db.First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) views() *gorm.DB {
	return r.db.Table("discussions AS d").
		Select(`d.id, d.book_id, COALESCE(b.title, '') AS book_title,
			d.user_id, COALESCE(u.username, '') AS username,
			COALESCE(u.display_name, '') AS display_name,
			d.title, d.body, d.created_at,
			(SELECT COUNT(*) FROM discussion_replies dr WHERE dr.discussion_id = d.id) AS reply_count`).
		Joins("LEFT JOIN users u ON u.id = d.user_id").
		Joins("LEFT JOIN books b ON b.id = d.book_id")
}

// GetWithReplies returns a discussion and its replies, oldest reply first.
func (r *Repository) GetWithReplies(id uint) (*Thread, error) {
	var views []DiscussionView
	if err := r.views().Where("d.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, database.ErrNotFound
	}

	thread := &Thread{DiscussionView: views[0], Replies: []ReplyView{}}
	err := r.db.Table("discussion_replies AS dr").
		Select(`dr.id, dr.discussion_id, dr.user_id,
			COALESCE(u.username, '') AS username,
			COALESCE(u.display_name, '') AS display_name,
			dr.content, dr.created_at`).
		Joins("LEFT JOIN users u ON u.id = dr.user_id").
		Where("dr.discussion_id = ?", id).
		Order("dr.created_at ASC, dr.id ASC").
		Scan(&thread.Replies).Error
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// ListForBook returns the discussions about one book, newest first.
func (r *Repository) ListForBook(bookID uint) ([]DiscussionView, error) {
	var out []DiscussionView
	err := r.views().Where("d.book_id = ?", bookID).Order("d.created_at DESC, d.id DESC").Scan(&out).Error
	return out, err
}

// ListAll returns every discussion, newest first.
func (r *Repository) ListAll() ([]DiscussionView, error) {
	var out []DiscussionView
	err := r.views().Order("d.created_at DESC, d.id DESC").Scan(&out).Error
	return out, err
}

// ListForAuthorBooks returns discussions about books the author owns.
func (r *Repository) ListForAuthorBooks(authorID uint) ([]DiscussionView, error) {
	var out []DiscussionView
	err := r.views().Where("b.author_id = ?", authorID).Order("d.created_at DESC, d.id DESC").Scan(&out).Error
	return out, err
}

// AddReply appends a reply to an existing discussion.
func (r *Repository) AddReply(reply *entities.Reply) error {
	reply.Content = strings.TrimSpace(reply.Content)
	if reply.Content == "" {
		return ErrContentRequired
	}
	var n int64
	if err := r.db.Model(&entities.Discussion{}).Where("id = ?", reply.DiscussionID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return r.db.Omit(clause.Associations).Create(reply).Error
}

// Delete removes a discussion after its replies.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("discussion_id = ?", id).Delete(&entities.Reply{}).Error; err != nil {
			return fmt.Errorf("failed to delete replies: %w", err)
		}
		res := tx.Delete(&entities.Discussion{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return nil
	})
}

// Count returns the number of discussions.
func (r *Repository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&entities.Discussion{}).Count(&n).Error
	return n, err
}
