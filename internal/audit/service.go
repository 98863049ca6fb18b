package audit

import (
	"log"
	"sync"

	"github.com/mrlokans/bookverse/internal/database/audit"
	"github.com/mrlokans/bookverse/internal/entities"
)

// Request carries who did something and from where.
type Request struct {
	UserID    uint
	IPAddress string
	UserAgent string
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event %s: %v", event.Action, err)
		}
	}()
}

// Flush blocks until every pending asynchronous event has been written.
func (s *Service) Flush() {
	s.wg.Wait()
}

func (s *Service) event(req Request, eventType entities.AuditEventType, action string) *entities.AuditEvent {
	return &entities.AuditEvent{
		UserID:    req.UserID,
		EventType: eventType,
		Action:    action,
		IPAddress: req.IPAddress,
		UserAgent: truncate(req.UserAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}
}

// LogAuth records a login, logout or registration attempt.
func (s *Service) LogAuth(req Request, action, description string, success bool) {
	event := s.event(req, entities.AuditEventAuth, action)
	event.Description = truncate(description, 500)
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.LogAsync(event)
}

// LogAccessDenied records a request refused by a role check.
func (s *Service) LogAccessDenied(req Request, action, resource string) {
	event := s.event(req, entities.AuditEventAccess, action)
	event.Description = truncate("Denied access to "+resource, 500)
	event.Status = entities.AuditStatusDenied
	s.LogAsync(event)
}

// LogContent records a change to a book or another user-owned entity.
func (s *Service) LogContent(req Request, action, entityType string, entityID uint, description string, err error) {
	s.logEntity(req, entities.AuditEventContent, action, entityType, entityID, description, err)
}

// LogModeration records staff removing content or accounts.
func (s *Service) LogModeration(req Request, action, entityType string, entityID uint, description string) {
	s.logEntity(req, entities.AuditEventModeration, action, entityType, entityID, description, nil)
}

// LogSupport records a support query being answered or moved.
func (s *Service) LogSupport(req Request, action string, queryID uint, description string) {
	s.logEntity(req, entities.AuditEventSupport, action, "support_query", queryID, description, nil)
}

func (s *Service) logEntity(req Request, eventType entities.AuditEventType, action, entityType string, entityID uint, description string, err error) {
	event := s.event(req, eventType, action)
	event.EntityType = entityType
	if entityID > 0 {
		id := entityID
		event.EntityID = &id
	}
	event.Description = truncate(description, 500)
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(f audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(f, limit, offset)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
