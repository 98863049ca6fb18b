package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookverse/internal/auth"
)

type ProfileController struct {
	accounts       AccountManager
	tracker        ReadTracker
	maxUploadBytes int64
}

func NewProfileController(accounts AccountManager, tracker ReadTracker, maxUploadBytes int64) *ProfileController {
	return &ProfileController{
		accounts:       accounts,
		tracker:        tracker,
		maxUploadBytes: maxUploadBytes,
	}
}

type profileRequest struct {
	// Nil keeps the current display name.
	DisplayName *string `form:"display_name" json:"display_name"`
}

// Show returns the caller's account, counters and badges.
// GET /profile
func (pc *ProfileController) Show(c *gin.Context) {
	user := auth.CurrentUser(c)
	badges, err := pc.tracker.Badges(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list badges")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"has_avatar": user.HasAvatar(),
		"badges":     badges,
	})
}

// Update changes the display name and, when a file is attached under
// "avatar", the avatar.
// POST /profile
func (pc *ProfileController) Update(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid profile: "+err.Error())
		return
	}
	avatar, err := readUpload(c, "avatar", pc.maxUploadBytes)
	if err != nil {
		respondStoreError(c, err, "avatar")
		return
	}

	user := auth.CurrentUser(c)
	displayName := user.DisplayName
	if req.DisplayName != nil {
		displayName = *req.DisplayName
	}
	if err := pc.accounts.UpdateProfile(c.Request.Context(), user, displayName, avatar); err != nil {
		respondStoreError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "has_avatar": user.HasAvatar()})
}

// Avatar serves the caller's avatar image.
// GET /profile/avatar
func (pc *ProfileController) Avatar(c *gin.Context) {
	blob, err := pc.accounts.Avatar(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		respondStoreError(c, err, "avatar")
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	respondBlob(c, blob, "")
}

// Badges lists the caller's badges.
// GET /profile/badges
func (pc *ProfileController) Badges(c *gin.Context) {
	user := auth.CurrentUser(c)
	badges, err := pc.tracker.Badges(c.Request.Context(), user.ID)
	if err != nil {
		respondInternalError(c, err, "list badges")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"badges":         badges,
		"books_read":     user.BooksRead,
		"reading_streak": user.ReadingStreak,
	})
}
