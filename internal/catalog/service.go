// Package catalog serves the comic and chapter catalog: listing with
// filters, sorting and pagination, detail views, search, and the write
// operations that create comics, add chapters and delete comics.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/entities"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	LatestLimit     = 20
)

// Sort keys accepted by ListComics.
const (
	SortTitle   = "title"
	SortLatest  = "latest"
	SortOldest  = "oldest"
	SortRelease = "release"
)

var sortOrders = map[string]string{
	SortTitle:   "comics.title ASC, comics.id ASC",
	SortLatest:  "comics.updated_at DESC, comics.id ASC",
	SortOldest:  "comics.updated_at ASC, comics.id ASC",
	SortRelease: "comics.released DESC, comics.id ASC",
}

var (
	ErrComicNotFound          = apperr.New(apperr.KindNotFound, "Comic not found")
	ErrChapterNotFound        = apperr.New(apperr.KindNotFound, "Chapter not found")
	ErrDuplicateChapterNumber = apperr.New(apperr.KindConflict, "Chapter already exists for this comic")
	ErrInvalidChapterNumber   = apperr.New(apperr.KindValidation, "Chapter number must be at least 1")
	ErrMissingTitle           = apperr.New(apperr.KindValidation, "Title is required")
	ErrMissingQuery           = apperr.New(apperr.KindValidation, "Search query is required")
)

// Service answers catalog queries and applies catalog mutations.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// ListComics returns one page of comics. Page numbers start at 1; a page
// past the end is empty. Results are ordered by the sort key with the comic
// ID as a tie-breaker, so consecutive pages never overlap.
func (s *Service) ListComics(ctx context.Context, q ListQuery) (*ComicPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := NormalizePageSize(q.PageSize)

	order, ok := sortOrders[strings.ToLower(strings.TrimSpace(q.SortBy))]
	if !ok {
		order = sortOrders[SortLatest]
	}

	filtered := func() *gorm.DB {
		tx := s.db.WithContext(ctx).Model(&entities.Comic{})
		if q.Genre != "" {
			genreComics := s.db.Table("comic_genres").
				Select("comic_genres.comic_id").
				Joins("JOIN genres ON genres.id = comic_genres.genre_id").
				Where("genres.name = ?", q.Genre)
			tx = tx.Where("comics.id IN (?)", genreComics)
		}
		if q.Status != "" {
			tx = tx.Where("comics.status = ?", q.Status)
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, apperr.Storage(err, "count comics")
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	result := &ComicPage{Comics: []ComicSummary{}, Total: total, TotalPages: totalPages}
	// Past the last page the offset could overflow, and there is nothing to read.
	if page > totalPages {
		return result, nil
	}

	var comics []entities.Comic
	err := filtered().
		Preload("Genres").
		Order(order).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&comics).Error
	if err != nil {
		return nil, apperr.Storage(err, "list comics")
	}

	if result.Comics, err = s.summarize(ctx, comics); err != nil {
		return nil, err
	}
	return result, nil
}

// NormalizePageSize applies the default and the upper bound to a page size.
func NormalizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return DefaultPageSize
	}
	if pageSize > MaxPageSize {
		return MaxPageSize
	}
	return pageSize
}

// GetFeatured returns every featured comic, most recently updated first.
func (s *Service) GetFeatured(ctx context.Context) ([]ComicSummary, error) {
	var comics []entities.Comic
	err := s.db.WithContext(ctx).
		Preload("Genres").
		Where("is_featured = ?", true).
		Order(sortOrders[SortLatest]).
		Find(&comics).Error
	if err != nil {
		return nil, apperr.Storage(err, "load featured comics")
	}
	return s.summarize(ctx, comics)
}

// GetLatest returns the most recently updated comics.
func (s *Service) GetLatest(ctx context.Context) ([]ComicSummary, error) {
	var comics []entities.Comic
	err := s.db.WithContext(ctx).
		Preload("Genres").
		Order(sortOrders[SortLatest]).
		Limit(LatestLimit).
		Find(&comics).Error
	if err != nil {
		return nil, apperr.Storage(err, "load latest comics")
	}
	return s.summarize(ctx, comics)
}

// GetByID returns the comic with its chapters, highest number first.
func (s *Service) GetByID(ctx context.Context, id string) (*ComicDetail, error) {
	var comic entities.Comic
	err := s.db.WithContext(ctx).
		Preload("Genres").
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("number DESC")
		}).
		First(&comic, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrComicNotFound
	}
	if err != nil {
		return nil, apperr.Storage(err, "load comic")
	}

	detail := &ComicDetail{
		ComicSummary: toSummary(&comic, ""),
		Description:  comic.Description,
		Author:       comic.Author,
		Artist:       comic.Artist,
		Released:     comic.Released,
		IsFeatured:   comic.IsFeatured,
		Chapters:     make([]ChapterSummary, 0, len(comic.Chapters)),
	}
	for _, ch := range comic.Chapters {
		detail.Chapters = append(detail.Chapters, toChapterSummary(ch))
	}
	if len(comic.Chapters) > 0 {
		detail.LatestChapter = comic.Chapters[0].Title
	}
	return detail, nil
}

// GetChapters lists the chapters of a comic, highest number first.
func (s *Service) GetChapters(ctx context.Context, comicID string) ([]ChapterSummary, error) {
	if err := s.requireComic(ctx, s.db, comicID); err != nil {
		return nil, err
	}

	var chapters []entities.Chapter
	err := s.db.WithContext(ctx).
		Where("comic_id = ?", comicID).
		Order("number DESC").
		Find(&chapters).Error
	if err != nil {
		return nil, apperr.Storage(err, "list chapters")
	}

	result := make([]ChapterSummary, 0, len(chapters))
	for _, ch := range chapters {
		result = append(result, toChapterSummary(ch))
	}
	return result, nil
}

// GetChapterDetail returns a chapter with its image URLs in display order.
func (s *Service) GetChapterDetail(ctx context.Context, comicID string, number int) (*ChapterDetail, error) {
	var chapter entities.Chapter
	err := s.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("comic_id = ? AND number = ?", comicID, number).
		First(&chapter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChapterNotFound
	}
	if err != nil {
		return nil, apperr.Storage(err, "load chapter")
	}

	detail := &ChapterDetail{
		ID:     chapter.ID,
		Title:  chapter.Title,
		Number: chapter.Number,
		Images: make([]string, 0, len(chapter.Images)),
	}
	for _, img := range chapter.Images {
		detail.Images = append(detail.Images, img.URL)
	}
	return detail, nil
}

// Search matches the query case-insensitively against title and description.
func (s *Service) Search(ctx context.Context, query string) ([]ComicSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrMissingQuery
	}

	pattern := "%" + escapeLike(query) + "%"
	var comics []entities.Comic
	err := s.db.WithContext(ctx).
		Preload("Genres").
		Where("LOWER(title) LIKE LOWER(?) ESCAPE '\\' OR LOWER(description) LIKE LOWER(?) ESCAPE '\\'", pattern, pattern).
		Order(sortOrders[SortTitle]).
		Find(&comics).Error
	if err != nil {
		return nil, apperr.Storage(err, "search comics")
	}
	return s.summarize(ctx, comics)
}

// CreateComic stores a comic and links its genres, creating genres that do
// not exist yet. Returns the new comic ID.
func (s *Service) CreateComic(ctx context.Context, in NewComic) (string, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return "", ErrMissingTitle
	}

	comic := &entities.Comic{
		Title:       title,
		Cover:       in.Cover,
		Description: in.Description,
		Author:      in.Author,
		Artist:      in.Artist,
		Released:    in.Released,
		Status:      in.Status,
		IsFeatured:  in.IsFeatured,
		UpdatedAt:   s.now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres, err := getOrCreateGenres(tx, in.GenreNames)
		if err != nil {
			return err
		}
		comic.Genres = genres

		if err := tx.Omit("Genres.*").Create(comic).Error; err != nil {
			return apperr.Storage(err, "create comic")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return comic.ID, nil
}

// getOrCreateGenres resolves genre names to rows, inserting missing ones.
// Blank and repeated names are ignored.
func getOrCreateGenres(tx *gorm.DB, names []string) ([]entities.Genre, error) {
	seen := make(map[string]bool, len(names))
	genres := make([]entities.Genre, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&entities.Genre{Name: name}).Error
		if err != nil {
			return nil, apperr.Storage(err, "create genre")
		}

		var genre entities.Genre
		if err := tx.Where("name = ?", name).First(&genre).Error; err != nil {
			return nil, apperr.Storage(err, "load genre")
		}
		genres = append(genres, genre)
	}
	return genres, nil
}

// AddChapter appends a chapter with its ordered images to a comic and
// marks the comic as updated. Returns the new chapter ID.
func (s *Service) AddChapter(ctx context.Context, comicID string, in NewChapter) (string, error) {
	if in.Number < 1 {
		return "", ErrInvalidChapterNumber
	}

	chapter := &entities.Chapter{
		ComicID: comicID,
		Number:  in.Number,
		Title:   in.Title,
		Date:    s.now().UTC(),
	}
	for i, url := range in.ImageURLs {
		chapter.Images = append(chapter.Images, entities.ChapterImage{URL: url, Order: i + 1})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireComic(ctx, tx, comicID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&entities.Chapter{}).
			Where("comic_id = ? AND number = ?", comicID, in.Number).
			Count(&existing).Error; err != nil {
			return apperr.Storage(err, "check chapter number")
		}
		if existing > 0 {
			return duplicateChapter(in.Number)
		}

		if err := tx.Create(chapter).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateChapter(in.Number)
			}
			return apperr.Storage(err, "create chapter")
		}

		if err := tx.Model(&entities.Comic{}).
			Where("id = ?", comicID).
			Update("updated_at", chapter.Date).Error; err != nil {
			return apperr.Storage(err, "touch comic")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return chapter.ID, nil
}

func duplicateChapter(number int) error {
	return apperr.Wrap(ErrDuplicateChapterNumber, "Chapter %d already exists for this comic", number)
}

// DeleteComic removes a comic together with its chapters, images, genre
// links, bookmarks, ratings and reading history. Genres are kept.
// Returns the title of the deleted comic.
func (s *Service) DeleteComic(ctx context.Context, id string) (string, error) {
	var title string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comic entities.Comic
		err := tx.Select("id", "title").First(&comic, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrComicNotFound
		}
		if err != nil {
			return apperr.Storage(err, "load comic")
		}
		title = comic.Title

		chapterIDs := tx.Model(&entities.Chapter{}).Select("id").Where("comic_id = ?", id)
		steps := []struct {
			op    string
			query *gorm.DB
			model any
		}{
			{"delete chapter images", tx.Where("chapter_id IN (?)", chapterIDs), &entities.ChapterImage{}},
			{"delete chapters", tx.Where("comic_id = ?", id), &entities.Chapter{}},
			{"unlink genres", tx.Where("comic_id = ?", id), &entities.ComicGenre{}},
			{"delete bookmarks", tx.Where("comic_id = ?", id), &entities.UserBookmark{}},
			{"delete ratings", tx.Where("comic_id = ?", id), &entities.UserRating{}},
			{"delete reading history", tx.Where("comic_id = ?", id), &entities.ReadingHistory{}},
			{"delete comic", tx.Where("id = ?", id), &entities.Comic{}},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.model).Error; err != nil {
				return apperr.Storage(err, step.op)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return title, nil
}

// Exists reports whether a comic with the given ID exists.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&entities.Comic{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperr.Storage(err, "check comic")
	}
	return count > 0, nil
}

func (s *Service) requireComic(ctx context.Context, db *gorm.DB, id string) error {
	var count int64
	if err := db.WithContext(ctx).Model(&entities.Comic{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperr.Storage(err, "check comic")
	}
	if count == 0 {
		return ErrComicNotFound
	}
	return nil
}

// Summarize converts comics (with genres preloaded) into summaries,
// resolving the latest chapter title of each in one query.
func (s *Service) Summarize(ctx context.Context, comics []entities.Comic) ([]ComicSummary, error) {
	return s.summarize(ctx, comics)
}

func (s *Service) summarize(ctx context.Context, comics []entities.Comic) ([]ComicSummary, error) {
	result := make([]ComicSummary, 0, len(comics))
	if len(comics) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(comics))
	for _, c := range comics {
		ids = append(ids, c.ID)
	}
	latest, err := s.latestChapterTitles(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range comics {
		result = append(result, toSummary(&comics[i], latest[comics[i].ID]))
	}
	return result, nil
}

func (s *Service) latestChapterTitles(ctx context.Context, comicIDs []string) (map[string]string, error) {
	var rows []struct {
		ComicID string
		Title   string
	}
	err := s.db.WithContext(ctx).
		Table("chapters AS c").
		Select("c.comic_id AS comic_id, c.title AS title").
		Where("c.comic_id IN ?", comicIDs).
		Where("c.number = (SELECT MAX(c2.number) FROM chapters c2 WHERE c2.comic_id = c.comic_id)").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage(err, "load latest chapters")
	}

	titles := make(map[string]string, len(rows))
	for _, r := range rows {
		titles[r.ComicID] = r.Title
	}
	return titles, nil
}

func toSummary(c *entities.Comic, latestChapter string) ComicSummary {
	genres := make([]string, 0, len(c.Genres))
	for _, g := range c.Genres {
		genres = append(genres, g.Name)
	}
	sort.Strings(genres)

	return ComicSummary{
		ID:            c.ID,
		Title:         c.Title,
		Cover:         c.Cover,
		LatestChapter: latestChapter,
		UpdatedAt:     c.UpdatedAt,
		Status:        c.Status,
		Genres:        genres,
	}
}

func toChapterSummary(ch entities.Chapter) ChapterSummary {
	return ChapterSummary{
		ID:     ch.ID,
		Number: ch.Number,
		Title:  ch.Title,
		Date:   ch.Date,
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
