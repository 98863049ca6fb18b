package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/database/books"
	"github.com/mrlokans/bookverse/internal/database/discussions"
	"github.com/mrlokans/bookverse/internal/database/reviews"
	"github.com/mrlokans/bookverse/internal/services"
)

// AccessDenier refuses a request after routing, for ownership checks.
type AccessDenier interface {
	Deny(c *gin.Context, action string)
}

// AuthorController serves the author dashboard and book management.
type AuthorController struct {
	books          *books.Repository
	reviews        *reviews.Repository
	discussions    *discussions.Repository
	catalog        BookCatalog
	denier         AccessDenier
	auditor        Auditor
	maxUploadBytes int64
}

func NewAuthorController(db *gorm.DB, catalog BookCatalog, denier AccessDenier, auditor Auditor, maxUploadBytes int64) *AuthorController {
	return &AuthorController{
		books:          books.NewRepository(db),
		reviews:        reviews.NewRepository(db),
		discussions:    discussions.NewRepository(db),
		catalog:        catalog,
		denier:         denier,
		auditor:        auditor,
		maxUploadBytes: maxUploadBytes,
	}
}

type bookRequest struct {
	Title        string `form:"title" json:"title"`
	Description  string `form:"description" json:"description"`
	PurchaseLink string `form:"purchase_link" json:"purchase_link"`
}

func (r bookRequest) input() services.BookInput {
	return services.BookInput{Title: r.Title, Description: r.Description, PurchaseLink: r.PurchaseLink}
}

// Dashboard summarises the caller's books and the activity around them.
// GET /author/dashboard
func (ac *AuthorController) Dashboard(c *gin.Context) {
	authorID := auth.GetUserID(c)
	own, err := ac.books.ListByAuthor(authorID)
	if err != nil {
		respondInternalError(c, err, "author books")
		return
	}
	bookReviews, err := ac.reviews.ListForAuthorBooks(authorID)
	if err != nil {
		respondInternalError(c, err, "author reviews")
		return
	}
	bookDiscussions, err := ac.discussions.ListForAuthorBooks(authorID)
	if err != nil {
		respondInternalError(c, err, "author discussions")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"books":            own,
		"book_count":       len(own),
		"review_count":     len(bookReviews),
		"discussion_count": len(bookDiscussions),
	})
}

// Reviews lists reviews of the caller's books.
// GET /author/reviews
func (ac *AuthorController) Reviews(c *gin.Context) {
	list, err := ac.reviews.ListForAuthorBooks(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "author reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

// Discussions lists discussions about the caller's books.
// GET /author/discussions
func (ac *AuthorController) Discussions(c *gin.Context) {
	list, err := ac.discussions.ListForAuthorBooks(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "author discussions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussions": list})
}

// Upload publishes a book from a multipart form with the document under
// "document".
// POST /author/books
func (ac *AuthorController) Upload(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid book: "+err.Error())
		return
	}
	doc, err := readUpload(c, "document", ac.maxUploadBytes)
	if err != nil {
		respondStoreError(c, err, "document")
		return
	}

	book, err := ac.catalog.Publish(c.Request.Context(), auth.CurrentUser(c), req.input(), doc)
	if ac.auditor != nil {
		var id uint
		if book != nil {
			id = book.ID
		}
		ac.auditor.LogContent(requestInfo(c), "book_uploaded", "book", id, req.Title, err)
	}
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	respondCreated(c, book)
}

// Update edits a book the caller may manage. A new document is optional.
// PUT /author/books/:id
func (ac *AuthorController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := ac.books.GetByID(id)
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	if !auth.CanManageBook(auth.CurrentUser(c), book) {
		ac.denier.Deny(c, "update_book")
		return
	}

	var req bookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid book: "+err.Error())
		return
	}
	doc, err := readUpload(c, "document", ac.maxUploadBytes)
	if err != nil {
		respondStoreError(c, err, "document")
		return
	}

	err = ac.catalog.Revise(c.Request.Context(), book, req.input(), doc)
	if ac.auditor != nil {
		ac.auditor.LogContent(requestInfo(c), "book_updated", "book", id, req.Title, err)
	}
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Delete removes a book the caller may manage, with its reviews,
// discussions and library entries.
// DELETE /author/books/:id
func (ac *AuthorController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := ac.books.GetByID(id)
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	if !auth.CanManageBook(auth.CurrentUser(c), book) {
		ac.denier.Deny(c, "delete_book")
		return
	}

	err = ac.catalog.Remove(c.Request.Context(), id)
	if ac.auditor != nil {
		ac.auditor.LogContent(requestInfo(c), "book_deleted", "book", id, book.Title, err)
	}
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	respondSuccess(c, "book deleted")
}
