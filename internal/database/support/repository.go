// Package support stores support queries raised by users and the answers
// staff give them.
package support

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
	ErrSubjectRequired  = fmt.Errorf("%w: subject is required", database.ErrValidation)
	ErrMessageRequired  = fmt.Errorf("%w: message is required", database.ErrValidation)
	ErrResponseRequired = fmt.Errorf("%w: response is required", database.ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: status must be open, in_progress or resolved", database.ErrValidation)
)

// QueryView is a support query joined with the requesting user.
type QueryView struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	Username  string                 `json:"username"`
	Email     string                 `json:"email"`
	Subject   string                 `json:"subject"`
	Message   string                 `json:"message"`
	Status    entities.SupportStatus `json:"status"`
	Response  string                 `json:"response,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
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

// Create files a new query in the open state.
func (r *Repository) Create(q *entities.SupportQuery) error {
	q.Subject = strings.TrimSpace(q.Subject)
	q.Message = strings.TrimSpace(q.Message)
	if q.Subject == "" {
		return ErrSubjectRequired
	}
	if q.Message == "" {
		return ErrMessageRequired
	}
	q.Status = entities.SupportStatusOpen
	return r.db.Omit(clause.Associations).Create(q).Error
}

// Get returns a query with its responses, oldest first.
func (r *Repository) Get(id uint) (*entities.SupportQuery, error) {
	var q entities.SupportQuery
	err := r.db.Preload("Responses", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *Repository) views() *gorm.DB {
	return r.db.Table("support_queries AS sq").
		Select(`sq.id, sq.user_id, COALESCE(u.username, '') AS username,
			COALESCE(u.email, '') AS email, sq.subject, sq.message,
			sq.status, sq.response, sq.created_at, sq.updated_at`).
		Joins("LEFT JOIN users u ON u.id = sq.user_id")
}

// ListForUser returns the queries a user raised, newest first.
func (r *Repository) ListForUser(userID uint) ([]QueryView, error) {
	var out []QueryView
	err := r.views().Where("sq.user_id = ?", userID).Order("sq.created_at DESC, sq.id DESC").Scan(&out).Error
	return out, err
}

// ListByStatus returns queries in one state, oldest first so the queue is
// worked in order.
func (r *Repository) ListByStatus(status entities.SupportStatus) ([]QueryView, error) {
	var out []QueryView
	err := r.views().Where("sq.status = ?", status).Order("sq.created_at ASC, sq.id ASC").Scan(&out).Error
	return out, err
}

// CountByStatus returns the number of queries in one state.
func (r *Repository) CountByStatus(status entities.SupportStatus) (int64, error) {
	var n int64
	err := r.db.Model(&entities.SupportQuery{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// Respond records a staff answer and resolves the query.
func (r *Repository) Respond(queryID, responderID uint, content string) (*entities.SupportResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrResponseRequired
	}
	resp := &entities.SupportResponse{QueryID: queryID, ResponderID: responderID, Content: content}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.SupportQuery{}).Where("id = ?", queryID).Updates(map[string]any{
			"response":   content,
			"status":     entities.SupportStatusResolved,
			"updated_at": time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return database.ErrNotFound
		}
		return tx.Omit(clause.Associations).Create(resp).Error
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SetStatus moves a query to another state.
func (r *Repository) SetStatus(queryID uint, status string) error {
	st, err := entities.ParseSupportStatus(strings.TrimSpace(status))
	if err != nil {
		return ErrInvalidStatus
	}
	res := r.db.Model(&entities.SupportQuery{}).Where("id = ?", queryID).Updates(map[string]any{
		"status":     st,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}
