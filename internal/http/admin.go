package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/auth"
	auditRepo "github.com/mrlokans/bookverse/internal/database/audit"
	"github.com/mrlokans/bookverse/internal/database/books"
	"github.com/mrlokans/bookverse/internal/database/discussions"
	"github.com/mrlokans/bookverse/internal/database/reviews"
	"github.com/mrlokans/bookverse/internal/database/support"
	"github.com/mrlokans/bookverse/internal/database/users"
	"github.com/mrlokans/bookverse/internal/entities"
)

const (
	dashboardRecentCount = 5
	auditPageSize        = 25
)

// AuditReader lists recorded audit events.
type AuditReader interface {
	GetEvents(f auditRepo.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// AdminController serves moderation and account management.
type AdminController struct {
	users       *users.Repository
	books       *books.Repository
	reviews     *reviews.Repository
	discussions *discussions.Repository
	support     *support.Repository
	accounts    AccountManager
	auditor     Auditor
	events      AuditReader
}

func NewAdminController(db *gorm.DB, accounts AccountManager, auditor Auditor, events AuditReader) *AdminController {
	return &AdminController{
		users:       users.NewRepository(db),
		books:       books.NewRepository(db),
		reviews:     reviews.NewRepository(db),
		discussions: discussions.NewRepository(db),
		support:     support.NewRepository(db),
		accounts:    accounts,
		auditor:     auditor,
		events:      events,
	}
}

type dashboardCounts struct {
	Users       int64 `json:"users"`
	Books       int64 `json:"books"`
	Reviews     int64 `json:"reviews"`
	Discussions int64 `json:"discussions"`
	OpenQueries int64 `json:"open_queries"`
}

// Dashboard returns site-wide counts, recent users and books, and the
// open support queries.
// GET /admin/dashboard
func (ac *AdminController) Dashboard(c *gin.Context) {
	var counts dashboardCounts
	var err error
	if counts.Users, err = ac.users.Count(""); err != nil {
		respondInternalError(c, err, "count users")
		return
	}
	if counts.Books, err = ac.books.Count(); err != nil {
		respondInternalError(c, err, "count books")
		return
	}
	if counts.Reviews, err = ac.reviews.Count(); err != nil {
		respondInternalError(c, err, "count reviews")
		return
	}
	if counts.Discussions, err = ac.discussions.Count(); err != nil {
		respondInternalError(c, err, "count discussions")
		return
	}
	openQueries, err := ac.support.ListByStatus(entities.SupportStatusOpen)
	if err != nil {
		respondInternalError(c, err, "open queries")
		return
	}
	counts.OpenQueries = int64(len(openQueries))

	recentUsers, err := ac.users.List(dashboardRecentCount)
	if err != nil {
		respondInternalError(c, err, "recent users")
		return
	}
	recentBooks, err := ac.books.Recent(dashboardRecentCount)
	if err != nil {
		respondInternalError(c, err, "recent books")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"counts":       counts,
		"recent_users": recentUsers,
		"recent_books": recentBooks,
		"open_queries": openQueries,
	})
}

// Reviews lists every review for moderation.
// GET /admin/reviews
func (ac *AdminController) Reviews(c *gin.Context) {
	list, err := ac.reviews.ListAll()
	if err != nil {
		respondInternalError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

// DeleteReview removes a review.
// DELETE /admin/reviews/:id
func (ac *AdminController) DeleteReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.reviews.Delete(id); err != nil {
		respondStoreError(c, err, "review")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogModeration(requestInfo(c), "review_deleted", "review", id, "")
	}
	respondSuccess(c, "review deleted")
}

// Discussions lists every discussion for moderation.
// GET /admin/discussions
func (ac *AdminController) Discussions(c *gin.Context) {
	list, err := ac.discussions.ListAll()
	if err != nil {
		respondInternalError(c, err, "list discussions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussions": list})
}

// DeleteDiscussion removes a discussion with its replies.
// DELETE /admin/discussions/:id
func (ac *AdminController) DeleteDiscussion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.discussions.Delete(id); err != nil {
		respondStoreError(c, err, "discussion")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogModeration(requestInfo(c), "discussion_deleted", "discussion", id, "")
	}
	respondSuccess(c, "discussion deleted")
}

// Users lists accounts, newest first.
// GET /admin/users
func (ac *AdminController) Users(c *gin.Context) {
	list, err := ac.users.List(0)
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "total": len(list)})
}

// DeleteUser hard-deletes an account and everything it owns. Admins cannot
// delete themselves.
// DELETE /admin/users/:id
func (ac *AdminController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if id == auth.GetUserID(c) {
		respondBadRequest(c, "cannot delete your own account")
		return
	}
	target, err := ac.users.GetByID(id)
	if err != nil {
		respondStoreError(c, err, "user")
		return
	}
	if err := ac.accounts.DeleteUser(c.Request.Context(), id); err != nil {
		respondStoreError(c, err, "user")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogModeration(requestInfo(c), "user_deleted", "user", id, target.Username)
	}
	respondSuccess(c, "user deleted")
}

// AuditLog pages through recorded audit events, optionally filtered by
// ?type= and ?user_id=.
// GET /admin/audit
func (ac *AdminController) AuditLog(c *gin.Context) {
	if ac.events == nil {
		respondNotFound(c, "audit log")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	filter := auditRepo.Filter{EventType: entities.AuditEventType(c.Query("type"))}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		filter.UserID = uint(userID)
	}

	events, total, err := ac.events.GetEvents(filter, auditPageSize, (page-1)*auditPageSize)
	if err != nil {
		respondInternalError(c, err, "audit events")
		return
	}
	totalPages := (int(total) + auditPageSize - 1) / auditPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       total,
		"page":        page,
		"total_pages": totalPages,
	})
}
