package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/database/books"
	"github.com/mrlokans/bookverse/internal/database/library"
)

type LibraryController struct {
	books   *books.Repository
	library *library.Repository
	now     func() time.Time
}

func NewLibraryController(db *gorm.DB) *LibraryController {
	return &LibraryController{
		books:   books.NewRepository(db),
		library: library.NewRepository(db),
		now:     time.Now,
	}
}

// List returns the caller's saved books.
// GET /library
func (lc *LibraryController) List(c *gin.Context) {
	items, err := lc.library.ListForUser(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list library")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": items, "total": len(items)})
}

// Add saves a book; saving it again changes nothing.
// POST /library/:bookId
func (lc *LibraryController) Add(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}
	if _, err := lc.books.GetByID(bookID); err != nil {
		respondStoreError(c, err, "book")
		return
	}
	if err := lc.library.Add(auth.GetUserID(c), bookID, lc.now()); err != nil {
		respondInternalError(c, err, "add to library")
		return
	}
	respondSuccess(c, "book added to library")
}

// Remove drops a book from the library.
// DELETE /library/:bookId
func (lc *LibraryController) Remove(c *gin.Context) {
	bookID, ok := parseIDParam(c, "bookId")
	if !ok {
		return
	}
	removed, err := lc.library.Remove(auth.GetUserID(c), bookID)
	if err != nil {
		respondInternalError(c, err, "remove from library")
		return
	}
	if !removed {
		respondNotFound(c, "library entry")
		return
	}
	respondSuccess(c, "book removed from library")
}
