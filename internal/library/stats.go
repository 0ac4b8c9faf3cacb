package library

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/entities"
)

type ReadingStats struct {
	TotalRead         int `json:"totalRead"`
	CurrentlyReading  int `json:"currentlyReading"`
	CompletedSeries   int `json:"completedSeries"`
	TotalChaptersRead int `json:"totalChaptersRead"`
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	JoinDate     time.Time    `json:"joinDate"`
	Avatar       string       `json:"avatar"`
	ReadingStats ReadingStats `json:"readingStats"`
}

func NewUserProfile(user *entities.User, stats ReadingStats) *UserProfile {
	return &UserProfile{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		JoinDate:     user.JoinDate,
		Avatar:       user.Avatar,
		ReadingStats: stats,
	}
}

type comicProgress struct {
	ComicID      string
	Status       string
	ReadCount    int
	ChapterCount int
}

// ComputeReadingStats derives reading statistics from the user's history.
//
// A comic counts as completed when its status is "Completed" and the user
// has a history row for at least as many chapters as the comic has.
// Everything else the user has opened counts as currently reading.
func ComputeReadingStats(ctx context.Context, db *gorm.DB, userID string) (ReadingStats, error) {
	var rows []comicProgress
	err := db.WithContext(ctx).
		Table("reading_histories AS h").
		Select(`h.comic_id AS comic_id,
			COALESCE(c.status, '') AS status,
			COUNT(*) AS read_count,
			(SELECT COUNT(*) FROM chapters ch WHERE ch.comic_id = h.comic_id) AS chapter_count`).
		Joins("LEFT JOIN comics c ON c.id = h.comic_id").
		Where("h.user_id = ?", userID).
		Group("h.comic_id, c.status").
		Scan(&rows).Error
	if err != nil {
		return ReadingStats{}, apperr.Storage(err, "compute reading stats")
	}

	var stats ReadingStats
	for _, r := range rows {
		stats.TotalRead++
		stats.TotalChaptersRead += r.ReadCount
		if r.Status == entities.StatusCompleted && r.ReadCount >= r.ChapterCount {
			stats.CompletedSeries++
		}
	}
	stats.CurrentlyReading = stats.TotalRead - stats.CompletedSeries
	return stats, nil
}
