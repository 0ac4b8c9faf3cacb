package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusCompleted marks a comic whose publication has finished.
const StatusCompleted = "Completed"

type Comic struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"index;size:512;not null" json:"title"`
	Cover       string    `gorm:"size:2048" json:"cover"`
	Description string    `gorm:"type:text" json:"description"`
	Author      string    `gorm:"size:256" json:"author"`
	Artist      string    `gorm:"size:256" json:"artist"`
	Released    time.Time `gorm:"index" json:"released"`
	Status      string    `gorm:"index;size:50" json:"status"`
	IsFeatured  bool      `gorm:"index" json:"isFeatured"`
	UpdatedAt   time.Time `gorm:"index" json:"updatedAt"`
	CreatedAt   time.Time `json:"-"`
	Genres      []Genre   `gorm:"many2many:comic_genres;" json:"genres,omitempty"`
	Chapters    []Chapter `gorm:"foreignKey:ComicID" json:"chapters,omitempty"`
}

func (c *Comic) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Chapter struct {
	ID      string         `gorm:"primaryKey;size:36" json:"id"`
	ComicID string         `gorm:"uniqueIndex:idx_chapter_comic_number;size:36;not null" json:"comicId"`
	Number  int            `gorm:"uniqueIndex:idx_chapter_comic_number;not null" json:"number"`
	Title   string         `gorm:"size:512" json:"title"`
	Date    time.Time      `json:"date"`
	Images  []ChapterImage `gorm:"foreignKey:ChapterID" json:"images,omitempty"`
}

func (c *Chapter) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type ChapterImage struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	ChapterID string `gorm:"index;size:36;not null" json:"chapterId"`
	URL       string `gorm:"size:2048;not null" json:"url"`
	Order     int    `gorm:"column:position;not null" json:"order"` // 1-based display position
}

func (i *ChapterImage) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type Genre struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
}

func (g *Genre) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// ComicGenre is the join row between comics and genres.
type ComicGenre struct {
	ComicID string `gorm:"primaryKey;size:36"`
	GenreID string `gorm:"primaryKey;size:36;index"`
}

func (ComicGenre) TableName() string {
	return "comic_genres"
}
