package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/auth"
	"github.com/ivyscans/api/internal/catalog"
)

// ComicCatalog is the catalog surface used by the comics endpoints.
type ComicCatalog interface {
	ListComics(ctx context.Context, q catalog.ListQuery) (*catalog.ComicPage, error)
	GetFeatured(ctx context.Context) ([]catalog.ComicSummary, error)
	GetLatest(ctx context.Context) ([]catalog.ComicSummary, error)
	GetByID(ctx context.Context, id string) (*catalog.ComicDetail, error)
	GetChapters(ctx context.Context, comicID string) ([]catalog.ChapterSummary, error)
	GetChapterDetail(ctx context.Context, comicID string, number int) (*catalog.ChapterDetail, error)
	Search(ctx context.Context, query string) ([]catalog.ComicSummary, error)
	CreateComic(ctx context.Context, in catalog.NewComic) (string, error)
	AddChapter(ctx context.Context, comicID string, in catalog.NewChapter) (string, error)
	DeleteComic(ctx context.Context, id string) (string, error)
}

// DeleteAuditor records deletions.
type DeleteAuditor interface {
	LogDelete(userID, entityType, entityID, entityName string)
}

type ComicsController struct {
	catalog ComicCatalog
	auditor DeleteAuditor
}

// NewComicsController creates the comics controller. auditor may be nil.
func NewComicsController(catalog ComicCatalog, auditor DeleteAuditor) *ComicsController {
	return &ComicsController{catalog: catalog, auditor: auditor}
}

func (cc *ComicsController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", cc.List)
	group.POST("", cc.Create)
	group.GET("/featured", cc.Featured)
	group.GET("/latest", cc.Latest)
	group.GET("/search", cc.Search)
	group.GET("/:id", cc.Get)
	group.DELETE("/:id", cc.Delete)
	group.GET("/:id/chapters", cc.Chapters)
	group.POST("/:id/chapters", cc.AddChapter)
	group.GET("/:id/chapters/:number", cc.Chapter)
}

// List handles GET /api/comics. "limit" overrides "pageSize" when positive
// and "sort" overrides "sortBy" when present.
func (cc *ComicsController) List(c *gin.Context) {
	q := catalog.ListQuery{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", catalog.DefaultPageSize),
		Genre:    c.Query("genre"),
		Status:   c.Query("status"),
		SortBy:   c.Query("sortBy"),
	}
	if limit := queryInt(c, "limit", 0); limit > 0 {
		q.PageSize = limit
	}
	if sort := c.Query("sort"); sort != "" {
		q.SortBy = sort
	}

	page, err := cc.catalog.ListComics(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Featured handles GET /api/comics/featured. The list is not wrapped.
func (cc *ComicsController) Featured(c *gin.Context) {
	comics, err := cc.catalog.GetFeatured(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, comics)
}

func (cc *ComicsController) Latest(c *gin.Context) {
	comics, err := cc.catalog.GetLatest(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comics": comics})
}

func (cc *ComicsController) Search(c *gin.Context) {
	comics, err := cc.catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comics": comics})
}

func (cc *ComicsController) Get(c *gin.Context) {
	comic, err := cc.catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, comic)
}

// Create handles POST /api/comics.
func (cc *ComicsController) Create(c *gin.Context) {
	var req catalog.NewComic
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResultResponse{Message: "Invalid comic data"})
		return
	}

	id, err := cc.catalog.CreateComic(c.Request.Context(), req)
	if err != nil {
		message := apperr.MessageOf(err)
		if apperr.KindOf(err) == apperr.KindStorage {
			log.Error().Err(err).Str("title", req.Title).Msg("Failed to create comic")
			message = "Failed to create comic"
		}
		c.JSON(http.StatusBadRequest, ResultResponse{Message: message})
		return
	}

	c.JSON(http.StatusOK, ResultResponse{
		Success: true,
		Message: "Comic created successfully " + id,
		ID:      id,
	})
}

func (cc *ComicsController) Chapters(c *gin.Context) {
	chapters, err := cc.catalog.GetChapters(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapters)
}

// Chapter handles GET /api/comics/:id/chapters/:number.
func (cc *ComicsController) Chapter(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		respondBadRequest(c, "Invalid chapter number")
		return
	}

	chapter, err := cc.catalog.GetChapterDetail(c.Request.Context(), c.Param("id"), number)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

// AddChapter handles POST /api/comics/:id/chapters.
func (cc *ComicsController) AddChapter(c *gin.Context) {
	var req catalog.NewChapter
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid chapter data")
		return
	}

	chapterID, err := cc.catalog.AddChapter(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindStorage {
			log.Error().Err(err).Str("comic_id", c.Param("id")).Msg("Failed to add chapter")
			respondMessage(c, http.StatusInternalServerError, "An error occurred while adding the chapter")
			return
		}
		respondClientError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Chapter added successfully",
		"chapterId": chapterID,
	})
}

// Delete handles DELETE /api/comics/:id.
func (cc *ComicsController) Delete(c *gin.Context) {
	id := c.Param("id")
	title, err := cc.catalog.DeleteComic(c.Request.Context(), id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindStorage {
			log.Error().Err(err).Str("comic_id", id).Msg("Failed to delete comic")
			respondMessage(c, http.StatusInternalServerError, "An error occurred while deleting the comic")
			return
		}
		respondClientError(c, err, http.StatusNotFound)
		return
	}

	if cc.auditor != nil {
		cc.auditor.LogDelete(auth.GetUserID(c), "comic", id, title)
	}
	respondMessage(c, http.StatusOK, fmt.Sprintf("Comic '%s' has been successfully deleted", title))
}

var _ ComicCatalog = (*catalog.Service)(nil)
