package entities

import (
	"fmt"
	"time"
)

type SupportStatus string

const (
	SupportStatusOpen       SupportStatus = "open"
	SupportStatusInProgress SupportStatus = "in_progress"
	SupportStatusResolved   SupportStatus = "resolved"
)

func ParseSupportStatus(s string) (SupportStatus, error) {
	switch st := SupportStatus(s); st {
	case SupportStatusOpen, SupportStatusInProgress, SupportStatusResolved:
		return st, nil
	}
	return "", fmt.Errorf("unknown support status %q", s)
}

type SupportQuery struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"index;not null" json:"user_id"`
	Subject   string            `gorm:"size:255;not null" json:"subject"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Status    SupportStatus     `gorm:"index;size:20;not null;default:'open'" json:"status"`
	Response  string            `gorm:"type:text" json:"response,omitempty"` // latest staff answer
	User      User              `gorm:"foreignKey:UserID" json:"-"`
	Responses []SupportResponse `gorm:"foreignKey:QueryID" json:"responses,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (SupportQuery) TableName() string {
	return "support_queries"
}

type SupportResponse struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	QueryID     uint         `gorm:"index;not null" json:"query_id"`
	ResponderID uint         `gorm:"index;not null" json:"responder_id"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	Query       SupportQuery `gorm:"foreignKey:QueryID" json:"-"`
	Responder   User         `gorm:"foreignKey:ResponderID" json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (SupportResponse) TableName() string {
	return "support_responses"
}
