// Package library records what each user does with the catalog:
// bookmarks, ratings and reading history, plus the profile and reading
// statistics derived from them.
package library

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/catalog"
	"github.com/ivyscans/api/internal/entities"
)

var (
	ErrAlreadyBookmarked = apperr.New(apperr.KindConflict, "Comic already bookmarked")
	ErrBookmarkNotFound  = apperr.New(apperr.KindNotFound, "Bookmark not found")
	ErrInvalidRating     = apperr.New(apperr.KindValidation, "Rating must be between 1 and 5")
	ErrRatingNotFound    = apperr.New(apperr.KindNotFound, "Rating not found")
	ErrChapterMismatch   = apperr.New(apperr.KindValidation, "Chapter not found or chapter number mismatch")
	ErrUserNotFound      = apperr.New(apperr.KindNotFound, "User not found")
	ErrUsernameTaken     = apperr.New(apperr.KindConflict, "Username already taken")
	ErrEmailTaken        = apperr.New(apperr.KindConflict, "Email already in use")
	ErrMissingComicID    = apperr.New(apperr.KindValidation, "Comic ID is required")
)

// Rating is one of the user's ratings as returned to clients.
type Rating struct {
	ComicID string `json:"comicId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// HistoryEntry is a reading history row joined with comic and chapter data.
type HistoryEntry struct {
	ComicID       string    `json:"comicId"`
	ChapterID     string    `json:"chapterId"`
	ChapterNumber int       `json:"chapterNumber"`
	ComicTitle    string    `json:"comicTitle"`
	ChapterTitle  string    `json:"chapterTitle"`
	CoverImage    string    `json:"coverImage"`
	LastReadAt    time.Time `json:"lastReadAt"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// ActivitySource lists a user's audit events.
type ActivitySource interface {
	GetEvents(ctx context.Context, userID string, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type Service struct {
	db       *gorm.DB
	catalog  *catalog.Service
	activity ActivitySource
	now      func() time.Time
}

func NewService(db *gorm.DB, catalogService *catalog.Service, activity ActivitySource) *Service {
	return &Service{
		db:       db,
		catalog:  catalogService,
		activity: activity,
		now:      time.Now,
	}
}

// AddBookmark bookmarks a comic for the user.
func (s *Service) AddBookmark(ctx context.Context, userID, comicID string) error {
	if comicID == "" {
		return ErrMissingComicID
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&entities.UserBookmark{}).
		Where("user_id = ? AND comic_id = ?", userID, comicID).
		Count(&count).Error; err != nil {
		return apperr.Storage(err, "check bookmark")
	}
	if count > 0 {
		return ErrAlreadyBookmarked
	}

	if err := s.requireComic(ctx, comicID); err != nil {
		return err
	}

	err := db.Create(&entities.UserBookmark{
		UserID:    userID,
		ComicID:   comicID,
		CreatedAt: s.now().UTC(),
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyBookmarked
	}
	if err != nil {
		return apperr.Storage(err, "create bookmark")
	}
	return nil
}

func (s *Service) RemoveBookmark(ctx context.Context, userID, comicID string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND comic_id = ?", userID, comicID).
		Delete(&entities.UserBookmark{})
	if res.Error != nil {
		return apperr.Storage(res.Error, "delete bookmark")
	}
	if res.RowsAffected == 0 {
		return ErrBookmarkNotFound
	}
	return nil
}

// ListBookmarks returns the bookmarked comics, newest bookmark first.
func (s *Service) ListBookmarks(ctx context.Context, userID string) ([]catalog.ComicSummary, error) {
	var comics []entities.Comic
	err := s.db.WithContext(ctx).
		Preload("Genres").
		Joins("JOIN user_bookmarks b ON b.comic_id = comics.id").
		Where("b.user_id = ?", userID).
		Order("b.created_at DESC, b.id DESC").
		Find(&comics).Error
	if err != nil {
		return nil, apperr.Storage(err, "list bookmarks")
	}
	return s.catalog.Summarize(ctx, comics)
}

// AddOrUpdateRating stores the user's rating of a comic, replacing any
// previous rating and comment.
func (s *Service) AddOrUpdateRating(ctx context.Context, userID, comicID string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if err := s.requireComic(ctx, comicID); err != nil {
		return err
	}

	now := s.now().UTC()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "comic_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
	}).Create(&entities.UserRating{
		UserID:    userID,
		ComicID:   comicID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
	if err != nil {
		return apperr.Storage(err, "save rating")
	}
	return nil
}

func (s *Service) DeleteRating(ctx context.Context, userID, comicID string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND comic_id = ?", userID, comicID).
		Delete(&entities.UserRating{})
	if res.Error != nil {
		return apperr.Storage(res.Error, "delete rating")
	}
	if res.RowsAffected == 0 {
		return ErrRatingNotFound
	}
	return nil
}

func (s *Service) ListRatings(ctx context.Context, userID string) ([]Rating, error) {
	var rows []entities.UserRating
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage(err, "list ratings")
	}

	ratings := make([]Rating, 0, len(rows))
	for _, r := range rows {
		ratings = append(ratings, Rating{ComicID: r.ComicID, Rating: r.Rating, Comment: r.Comment})
	}
	return ratings, nil
}

// RecordHistory marks a chapter as read now. The chapter must belong to
// the comic and carry the given number.
func (s *Service) RecordHistory(ctx context.Context, userID, comicID, chapterID string, chapterNumber int) error {
	if err := s.requireComic(ctx, comicID); err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&entities.Chapter{}).
		Where("id = ? AND comic_id = ? AND number = ?", chapterID, comicID, chapterNumber).
		Count(&count).Error; err != nil {
		return apperr.Storage(err, "check chapter")
	}
	if count == 0 {
		return ErrChapterMismatch
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "comic_id"}, {Name: "chapter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chapter_number", "last_read_at"}),
	}).Create(&entities.ReadingHistory{
		UserID:        userID,
		ComicID:       comicID,
		ChapterID:     chapterID,
		ChapterNumber: chapterNumber,
		LastReadAt:    s.now().UTC(),
	}).Error
	if err != nil {
		return apperr.Storage(err, "save reading history")
	}
	return nil
}

// GetHistory returns the user's reading history, most recent first.
func (s *Service) GetHistory(ctx context.Context, userID string) ([]HistoryEntry, error) {
	entries := []HistoryEntry{}
	err := s.db.WithContext(ctx).
		Table("reading_histories AS h").
		Select(`h.comic_id AS comic_id,
			h.chapter_id AS chapter_id,
			COALESCE(ch.number, h.chapter_number) AS chapter_number,
			COALESCE(c.title, '') AS comic_title,
			COALESCE(ch.title, '') AS chapter_title,
			COALESCE(c.cover, '') AS cover_image,
			h.last_read_at AS last_read_at`).
		Joins("LEFT JOIN comics c ON c.id = h.comic_id").
		Joins("LEFT JOIN chapters ch ON ch.id = h.chapter_id").
		Where("h.user_id = ?", userID).
		Order("h.last_read_at DESC, h.id DESC").
		Scan(&entries).Error
	if err != nil {
		return nil, apperr.Storage(err, "load reading history")
	}
	return entries, nil
}

// ComputeReadingStats derives the user's reading statistics.
func (s *Service) ComputeReadingStats(ctx context.Context, userID string) (ReadingStats, error) {
	return ComputeReadingStats(ctx, s.db, userID)
}

// GetProfile returns the user's profile with reading statistics.
func (s *Service) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.ComputeReadingStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewUserProfile(user, stats), nil
}

// UpdateProfile overwrites username and email, which must pass the same
// checks as at registration. The avatar changes only when a new one is given.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) error {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entities.User
		err := tx.First(&user, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return apperr.Storage(err, "load user")
		}

		if taken, err := usedByOther(tx, "username", username, userID); err != nil {
			return err
		} else if taken {
			return ErrUsernameTaken
		}
		if taken, err := usedByOther(tx, "email", email, userID); err != nil {
			return err
		} else if taken {
			return ErrEmailTaken
		}

		updates := map[string]any{
			"username":   username,
			"email":      email,
			"updated_at": s.now().UTC(),
		}
		if in.Avatar != "" {
			updates["avatar"] = in.Avatar
		}

		err = tx.Model(&entities.User{}).Where("id = ?", userID).Updates(updates).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		if err != nil {
			return apperr.Storage(err, "update profile")
		}
		return nil
	})
}

// ActivityPage is one page of the user's audit trail.
type ActivityPage struct {
	Events []entities.AuditEvent `json:"events"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// ListActivity returns the user's own audit events, newest first.
func (s *Service) ListActivity(ctx context.Context, userID string, limit, offset int) (*ActivityPage, error) {
	if limit <= 0 || limit > catalog.MaxPageSize {
		limit = catalog.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	events, total, err := s.activity.GetEvents(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperr.Storage(err, "load activity")
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}
	return &ActivityPage{Events: events, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*entities.User, error) {
	var user entities.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Storage(err, "load user")
	}
	return &user, nil
}

func (s *Service) requireComic(ctx context.Context, comicID string) error {
	ok, err := s.catalog.Exists(ctx, comicID)
	if err != nil {
		return err
	}
	if !ok {
		return catalog.ErrComicNotFound
	}
	return nil
}

func usedByOther(tx *gorm.DB, column, value, userID string) (bool, error) {
	var count int64
	if err := tx.Model(&entities.User{}).
		Where(column+" = ? AND id <> ?", value, userID).
		Count(&count).Error; err != nil {
		return false, apperr.Storage(err, "check "+column)
	}
	return count > 0, nil
}
