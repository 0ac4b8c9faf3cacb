package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserBookmark struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_bookmark_user_comic;size:36;not null" json:"userId"`
	ComicID   string    `gorm:"uniqueIndex:idx_bookmark_user_comic;index;size:36;not null" json:"comicId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b *UserBookmark) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type UserRating struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_rating_user_comic;size:36;not null" json:"userId"`
	ComicID   string    `gorm:"uniqueIndex:idx_rating_user_comic;index;size:36;not null" json:"comicId"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *UserRating) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type ReadingHistory struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"uniqueIndex:idx_history_user_comic_chapter;size:36;not null" json:"userId"`
	ComicID       string    `gorm:"uniqueIndex:idx_history_user_comic_chapter;index;size:36;not null" json:"comicId"`
	ChapterID     string    `gorm:"uniqueIndex:idx_history_user_comic_chapter;size:36;not null" json:"chapterId"`
	ChapterNumber int       `json:"chapterNumber"`
	LastReadAt    time.Time `gorm:"index" json:"lastReadAt"`
}

func (ReadingHistory) TableName() string {
	return "reading_histories"
}

func (h *ReadingHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
