package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/auth"
	"github.com/ivyscans/api/internal/genres"
)

// GenreRegistry is the genre surface used by the genre endpoints.
type GenreRegistry interface {
	ListGenres(ctx context.Context) ([]string, error)
	DeleteGenre(ctx context.Context, id string) (string, error)
}

type GenresController struct {
	registry GenreRegistry
	auditor  DeleteAuditor
}

func NewGenresController(registry GenreRegistry, auditor DeleteAuditor) *GenresController {
	return &GenresController{registry: registry, auditor: auditor}
}

func (gc *GenresController) RegisterRoutes(group *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	group.GET("", gc.List)
	group.DELETE("/:id", requireAuth, gc.Delete)
}

func (gc *GenresController) List(c *gin.Context) {
	names, err := gc.registry.ListGenres(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

// Delete handles DELETE /api/genres/:id. Unknown genres answer 404, genres
// still in use 409, anything else 400.
func (gc *GenresController) Delete(c *gin.Context) {
	id := c.Param("id")
	name, err := gc.registry.DeleteGenre(c.Request.Context(), id)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindStorage:
			respondInternalError(c, err)
		case apperr.KindNotFound:
			c.JSON(http.StatusNotFound, ResultResponse{Message: apperr.MessageOf(err)})
		case apperr.KindConflict:
			c.JSON(http.StatusConflict, ResultResponse{Message: apperr.MessageOf(err)})
		default:
			c.JSON(http.StatusBadRequest, ResultResponse{Message: apperr.MessageOf(err)})
		}
		return
	}

	if gc.auditor != nil {
		gc.auditor.LogDelete(auth.GetUserID(c), "genre", id, name)
	}
	c.JSON(http.StatusOK, ResultResponse{Success: true, Message: genres.DeletedMessage(name)})
}

var _ GenreRegistry = (*genres.Service)(nil)
