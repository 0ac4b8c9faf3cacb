// Package genres manages the genre registry.
package genres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/entities"
)

// maxListedTitles caps how many comic titles an in-use error names.
const maxListedTitles = 3

var (
	ErrGenreNotFound = apperr.New(apperr.KindNotFound, "Genre not found")
	ErrGenreInUse    = apperr.New(apperr.KindConflict, "Genre is used by comics")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListGenres returns every genre name in alphabetical order.
func (s *Service) ListGenres(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.db.WithContext(ctx).
		Model(&entities.Genre{}).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, apperr.Storage(err, "list genres")
	}
	return names, nil
}

// DeleteGenre removes a genre that no comic uses and returns its name.
func (s *Service) DeleteGenre(ctx context.Context, id string) (string, error) {
	var name string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var genre entities.Genre
		err := tx.First(&genre, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGenreNotFound
		}
		if err != nil {
			return apperr.Storage(err, "load genre")
		}

		var titles []string
		err = tx.Model(&entities.Comic{}).
			Joins("JOIN comic_genres cg ON cg.comic_id = comics.id").
			Where("cg.genre_id = ?", id).
			Order("comics.title ASC").
			Pluck("comics.title", &titles).Error
		if err != nil {
			return apperr.Storage(err, "check genre usage")
		}
		if len(titles) > 0 {
			return inUse(genre.Name, titles)
		}

		if err := tx.Delete(&entities.Genre{}, "id = ?", id).Error; err != nil {
			return apperr.Storage(err, "delete genre")
		}
		name = genre.Name
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// DeletedMessage confirms the deletion of the named genre.
func DeletedMessage(name string) string {
	return fmt.Sprintf("Genre '%s' has been successfully deleted", name)
}

func inUse(name string, titles []string) error {
	listed := titles
	suffix := ""
	if len(titles) > maxListedTitles {
		listed = titles[:maxListedTitles]
		suffix = "..."
	}
	return apperr.Wrap(ErrGenreInUse,
		"Cannot delete genre '%s' as it is used by %d comic(s): %s%s",
		name, len(titles), strings.Join(listed, ", "), suffix)
}
