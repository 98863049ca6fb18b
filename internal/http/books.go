package http

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/database/books"
	"github.com/mrlokans/bookverse/internal/database/library"
	"github.com/mrlokans/bookverse/internal/database/reviews"
	"github.com/mrlokans/bookverse/internal/engagement"
)

// NotificationsHeader carries badge notifications earned by a read, as a
// JSON array, next to the document bytes.
const NotificationsHeader = "X-Bookverse-Notifications"

const homeBookCount = 10

type BooksController struct {
	books   *books.Repository
	reviews *reviews.Repository
	library *library.Repository
	catalog BookCatalog
	tracker ReadTracker
}

func NewBooksController(db *gorm.DB, catalog BookCatalog, tracker ReadTracker) *BooksController {
	return &BooksController{
		books:   books.NewRepository(db),
		reviews: reviews.NewRepository(db),
		library: library.NewRepository(db),
		catalog: catalog,
		tracker: tracker,
	}
}

// Home lists the most recently published books.
// GET /
func (bc *BooksController) Home(c *gin.Context) {
	recent, err := bc.books.Recent(homeBookCount)
	if err != nil {
		respondInternalError(c, err, "recent books")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":  auth.CurrentUser(c),
		"books": recent,
	})
}

// Browse searches titles and descriptions; an empty query lists everything.
// GET /browse?q=
func (bc *BooksController) Browse(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	found, err := bc.books.Search(query)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"books": found,
		"total": len(found),
	})
}

// Show returns a book with its author, reviews and rating summary.
// GET /books/:id
func (bc *BooksController) Show(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	listing, err := bc.books.GetListing(id)
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	bookReviews, err := bc.reviews.ListForBook(id)
	if err != nil {
		respondInternalError(c, err, "book reviews")
		return
	}

	inLibrary := false
	if user := auth.CurrentUser(c); user != nil && auth.Allows(user.Role, auth.PermLibrary) {
		if inLibrary, err = bc.library.Has(user.ID, id); err != nil {
			respondInternalError(c, err, "library lookup")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"book":       listing,
		"reviews":    bookReviews,
		"in_library": inLibrary,
	})
}

// Read streams the document and records the read. Badges earned by the read
// are reported once, in the NotificationsHeader.
// GET /books/:id/read
func (bc *BooksController) Read(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := bc.books.GetByID(id)
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	blob, err := bc.catalog.Document(c.Request.Context(), book)
	if err != nil {
		respondStoreError(c, err, "document")
		return
	}

	result, err := bc.tracker.RecordRead(c.Request.Context(), auth.CurrentUser(c), book.ID)
	if err != nil {
		respondInternalError(c, err, "record read")
		return
	}
	if len(result.Notifications) > 0 {
		if encoded, err := encodeNotifications(result.Notifications); err == nil {
			c.Header(NotificationsHeader, encoded)
		}
	}

	c.Header("Content-Disposition", "inline")
	respondBlob(c, blob, "")
}

// Download returns the document as an attachment without tracking.
// GET /books/:id/download
func (bc *BooksController) Download(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := bc.books.GetByID(id)
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	blob, err := bc.catalog.Document(c.Request.Context(), book)
	if err != nil {
		respondStoreError(c, err, "document")
		return
	}
	respondBlob(c, blob, documentFilename(book.Title, blob.ContentType))
}

func encodeNotifications(notifications []engagement.Notification) (string, error) {
	raw, err := json.Marshal(notifications)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

var extensions = map[string]string{
	"application/pdf":      ".pdf",
	"application/epub+zip": ".epub",
	"text/plain":           ".txt",
}

// documentFilename derives a download name from the title.
func documentFilename(title, contentType string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '-' || r == '_' || r == '.':
			return r
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, title)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "book"
	}
	if path.Ext(name) == "" {
		name += extensions[contentType]
	}
	return name
}
