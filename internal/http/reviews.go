package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/database/books"
	"github.com/mrlokans/bookverse/internal/database/reviews"
)

type ReviewsController struct {
	books   *books.Repository
	reviews *reviews.Repository
	tracker ReadTracker
	auditor Auditor
}

func NewReviewsController(db *gorm.DB, tracker ReadTracker, auditor Auditor) *ReviewsController {
	return &ReviewsController{
		books:   books.NewRepository(db),
		reviews: reviews.NewRepository(db),
		tracker: tracker,
		auditor: auditor,
	}
}

type reviewRequest struct {
	Rating  int    `form:"rating" json:"rating"`
	Comment string `form:"comment" json:"comment"`
}

// List returns a book's reviews with the rating summary.
// GET /books/:id/reviews
func (rc *ReviewsController) List(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := rc.books.GetByID(id); err != nil {
		respondStoreError(c, err, "book")
		return
	}

	list, err := rc.reviews.ListForBook(id)
	if err != nil {
		respondInternalError(c, err, "list reviews")
		return
	}
	average, count, err := rc.reviews.AverageForBook(id)
	if err != nil {
		respondInternalError(c, err, "average rating")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"book_id":        id,
		"reviews":        list,
		"average_rating": average,
		"review_count":   count,
	})
}

// Submit creates the caller's review of a book or replaces the existing one,
// then evaluates review badges.
// POST /books/:id/reviews
func (rc *ReviewsController) Submit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid review: "+err.Error())
		return
	}
	if _, err := rc.books.GetByID(id); err != nil {
		respondStoreError(c, err, "book")
		return
	}

	user := auth.CurrentUser(c)
	review, created, err := rc.reviews.Upsert(user.ID, id, req.Rating, req.Comment)
	if err != nil {
		respondStoreError(c, err, "review")
		return
	}
	if rc.auditor != nil {
		action := "review_updated"
		if created {
			action = "review_created"
		}
		rc.auditor.LogContent(requestInfo(c), action, "review", review.ID, fmt.Sprintf("book %d, rating %d", id, review.Rating), nil)
	}

	notifications, err := rc.tracker.EvaluateBadges(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "evaluate badges")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"review":        review,
		"created":       created,
		"notifications": notifications,
	})
}
