package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/database/books"
	"github.com/mrlokans/bookverse/internal/database/discussions"
	"github.com/mrlokans/bookverse/internal/entities"
)

type DiscussionsController struct {
	books       *books.Repository
	discussions *discussions.Repository
	auditor     Auditor
}

func NewDiscussionsController(db *gorm.DB, auditor Auditor) *DiscussionsController {
	return &DiscussionsController{
		books:       books.NewRepository(db),
		discussions: discussions.NewRepository(db),
		auditor:     auditor,
	}
}

type discussionRequest struct {
	Title string `form:"title" json:"title"`
	Body  string `form:"body" json:"body"`
}

type replyRequest struct {
	Content string `form:"content" json:"content"`
}

// ListAll returns every discussion, newest first.
// GET /discussions
func (dc *DiscussionsController) ListAll(c *gin.Context) {
	list, err := dc.discussions.ListAll()
	if err != nil {
		respondInternalError(c, err, "list discussions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussions": list})
}

// ListForBook returns the discussions about one book.
// GET /books/:id/discussions
func (dc *DiscussionsController) ListForBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := dc.books.GetByID(id); err != nil {
		respondStoreError(c, err, "book")
		return
	}
	list, err := dc.discussions.ListForBook(id)
	if err != nil {
		respondInternalError(c, err, "list book discussions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book_id": id, "discussions": list})
}

// Create opens a discussion about a book.
// POST /books/:id/discussions
func (dc *DiscussionsController) Create(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req discussionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid discussion: "+err.Error())
		return
	}
	if _, err := dc.books.GetByID(id); err != nil {
		respondStoreError(c, err, "book")
		return
	}

	d := &entities.Discussion{
		BookID: id,
		UserID: auth.GetUserID(c),
		Title:  req.Title,
		Body:   req.Body,
	}
	if err := dc.discussions.Create(d); err != nil {
		respondStoreError(c, err, "discussion")
		return
	}
	if dc.auditor != nil {
		dc.auditor.LogContent(requestInfo(c), "discussion_created", "discussion", d.ID, d.Title, nil)
	}
	respondCreated(c, d)
}

// Show returns a discussion with its replies.
// GET /discussions/:id
func (dc *DiscussionsController) Show(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	thread, err := dc.discussions.GetWithReplies(id)
	if err != nil {
		respondStoreError(c, err, "discussion")
		return
	}
	c.JSON(http.StatusOK, thread)
}

// Reply appends a reply to a discussion.
// POST /discussions/:id/replies
func (dc *DiscussionsController) Reply(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req replyRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid reply: "+err.Error())
		return
	}

	reply := &entities.Reply{
		DiscussionID: id,
		UserID:       auth.GetUserID(c),
		Content:      req.Content,
	}
	if err := dc.discussions.AddReply(reply); err != nil {
		respondStoreError(c, err, "discussion")
		return
	}
	respondCreated(c, reply)
}
