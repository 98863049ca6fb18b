package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/database/support"
	"github.com/mrlokans/bookverse/internal/entities"
)

type SupportController struct {
	support *support.Repository
	denier  AccessDenier
	auditor Auditor
}

func NewSupportController(db *gorm.DB, denier AccessDenier, auditor Auditor) *SupportController {
	return &SupportController{
		support: support.NewRepository(db),
		denier:  denier,
		auditor: auditor,
	}
}

type supportRequest struct {
	Subject string `form:"subject" json:"subject"`
	Message string `form:"message" json:"message"`
}

type supportResponseRequest struct {
	Response string `form:"response" json:"response"`
}

type supportStatusRequest struct {
	Status string `form:"status" json:"status"`
}

// Submit files a support query for the caller.
// POST /support
func (sc *SupportController) Submit(c *gin.Context) {
	var req supportRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid support query: "+err.Error())
		return
	}
	q := &entities.SupportQuery{
		UserID:  auth.GetUserID(c),
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := sc.support.Create(q); err != nil {
		respondStoreError(c, err, "support query")
		return
	}
	respondCreated(c, q)
}

// ListMine returns the caller's queries with their answers.
// GET /support
func (sc *SupportController) ListMine(c *gin.Context) {
	list, err := sc.support.ListForUser(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list support queries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"queries": list})
}

// Show returns one query with its responses to its owner or to staff.
// GET /support/:id
func (sc *SupportController) Show(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	q, err := sc.support.Get(id)
	if err != nil {
		respondStoreError(c, err, "support query")
		return
	}
	user := auth.CurrentUser(c)
	if q.UserID != user.ID && !auth.Allows(user.Role, auth.PermRespondSupport) {
		sc.denier.Deny(c, "view_support_query")
		return
	}
	c.JSON(http.StatusOK, q)
}

// Dashboard groups every query by status.
// GET /support/dashboard
func (sc *SupportController) Dashboard(c *gin.Context) {
	out := gin.H{}
	for _, status := range []entities.SupportStatus{
		entities.SupportStatusOpen,
		entities.SupportStatusInProgress,
		entities.SupportStatusResolved,
	} {
		list, err := sc.support.ListByStatus(status)
		if err != nil {
			respondInternalError(c, err, "support queue")
			return
		}
		out[string(status)] = list
	}
	c.JSON(http.StatusOK, out)
}

// Respond answers a query and resolves it.
// POST /support/:id/respond
func (sc *SupportController) Respond(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req supportResponseRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid response: "+err.Error())
		return
	}
	resp, err := sc.support.Respond(id, auth.GetUserID(c), req.Response)
	if err != nil {
		respondStoreError(c, err, "support query")
		return
	}
	if sc.auditor != nil {
		sc.auditor.LogSupport(requestInfo(c), "support_responded", id, "")
	}
	respondCreated(c, resp)
}

// SetStatus moves a query to open, in_progress or resolved.
// POST /support/:id/status
func (sc *SupportController) SetStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req supportStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid status: "+err.Error())
		return
	}
	if err := sc.support.SetStatus(id, req.Status); err != nil {
		respondStoreError(c, err, "support query")
		return
	}
	if sc.auditor != nil {
		sc.auditor.LogSupport(requestInfo(c), "support_status_changed", id, req.Status)
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}
