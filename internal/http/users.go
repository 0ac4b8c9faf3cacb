package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivyscans/api/internal/auth"
	"github.com/ivyscans/api/internal/catalog"
	"github.com/ivyscans/api/internal/library"
)

// UserLibrary is the per-user surface behind the /api/user endpoints.
type UserLibrary interface {
	AddBookmark(ctx context.Context, userID, comicID string) error
	RemoveBookmark(ctx context.Context, userID, comicID string) error
	ListBookmarks(ctx context.Context, userID string) ([]catalog.ComicSummary, error)
	AddOrUpdateRating(ctx context.Context, userID, comicID string, rating int, comment string) error
	DeleteRating(ctx context.Context, userID, comicID string) error
	ListRatings(ctx context.Context, userID string) ([]library.Rating, error)
	RecordHistory(ctx context.Context, userID, comicID, chapterID string, chapterNumber int) error
	GetHistory(ctx context.Context, userID string) ([]library.HistoryEntry, error)
	GetProfile(ctx context.Context, userID string) (*library.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, in library.ProfileUpdate) error
	ListActivity(ctx context.Context, userID string, limit, offset int) (*library.ActivityPage, error)
}

// UserController serves the authenticated user's bookmarks, ratings,
// reading history, profile and activity.
type UserController struct {
	library UserLibrary
}

func NewUserController(library UserLibrary) *UserController {
	return &UserController{library: library}
}

// RegisterRoutes registers the user routes. Every route requires a session.
func (uc *UserController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/bookmarks", uc.ListBookmarks)
	group.POST("/bookmarks", uc.AddBookmark)
	group.DELETE("/bookmarks/:comicId", uc.RemoveBookmark)
	group.GET("/ratings", uc.ListRatings)
	group.POST("/ratings", uc.SaveRating)
	group.DELETE("/ratings/:comicId", uc.DeleteRating)
	group.GET("/history", uc.GetHistory)
	group.POST("/history", uc.RecordHistory)
	group.GET("/profile", uc.GetProfile)
	group.PUT("/profile", uc.UpdateProfile)
	group.GET("/activity", uc.ListActivity)
}

type bookmarkRequest struct {
	ComicID string `json:"comicId"`
}

type ratingRequest struct {
	ComicID string `json:"comicId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type historyRequest struct {
	ComicID       string `json:"comicId"`
	ChapterID     string `json:"chapterId"`
	ChapterNumber int    `json:"chapterNumber"`
}

// userID returns the session user or answers 401.
func userID(c *gin.Context) (string, bool) {
	id := auth.GetUserID(c)
	if id == "" {
		respondMessage(c, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return id, true
}

func (uc *UserController) ListBookmarks(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	bookmarks, err := uc.library.ListBookmarks(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookmarks)
}

func (uc *UserController) AddBookmark(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req bookmarkRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := uc.library.AddBookmark(c.Request.Context(), uid, req.ComicID); err != nil {
		respondClientError(c, err, http.StatusBadRequest)
		return
	}
	respondMessage(c, http.StatusCreated, "Bookmark added successfully")
}

func (uc *UserController) RemoveBookmark(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := uc.library.RemoveBookmark(c.Request.Context(), uid, c.Param("comicId")); err != nil {
		respondClientError(c, err, http.StatusNotFound)
		return
	}
	respondMessage(c, http.StatusOK, "Bookmark removed successfully")
}

func (uc *UserController) ListRatings(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	ratings, err := uc.library.ListRatings(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratings)
}

func (uc *UserController) SaveRating(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req ratingRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := uc.library.AddOrUpdateRating(c.Request.Context(), uid, req.ComicID, req.Rating, req.Comment); err != nil {
		respondClientError(c, err, http.StatusBadRequest)
		return
	}
	respondMessage(c, http.StatusOK, "Rating updated successfully")
}

func (uc *UserController) DeleteRating(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := uc.library.DeleteRating(c.Request.Context(), uid, c.Param("comicId")); err != nil {
		respondClientError(c, err, http.StatusNotFound)
		return
	}
	respondMessage(c, http.StatusOK, "Rating deleted successfully")
}

func (uc *UserController) GetHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	history, err := uc.library.GetHistory(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (uc *UserController) RecordHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req historyRequest
	if !bindJSON(c, &req) {
		return
	}
	err := uc.library.RecordHistory(c.Request.Context(), uid, req.ComicID, req.ChapterID, req.ChapterNumber)
	if err != nil {
		respondClientError(c, err, http.StatusBadRequest)
		return
	}
	respondMessage(c, http.StatusOK, "Reading history updated successfully")
}

func (uc *UserController) GetProfile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	profile, err := uc.library.GetProfile(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req library.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	if err := uc.library.UpdateProfile(c.Request.Context(), uid, req); err != nil {
		respondClientError(c, err, http.StatusBadRequest)
		return
	}
	respondMessage(c, http.StatusOK, "Profile updated successfully")
}

// ListActivity handles GET /api/user/activity?limit&offset.
func (uc *UserController) ListActivity(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	page, err := uc.library.ListActivity(c.Request.Context(), uid, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

var _ UserLibrary = (*library.Service)(nil)
