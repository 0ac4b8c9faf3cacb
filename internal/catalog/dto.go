package catalog

import "time"

// ComicSummary is the list view of a comic.
type ComicSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Cover         string    `json:"cover"`
	LatestChapter string    `json:"latestChapter"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Status        string    `json:"status"`
	Genres        []string  `json:"genres"`
}

type ChapterSummary struct {
	ID     string    `json:"id"`
	Number int       `json:"number"`
	Title  string    `json:"title"`
	Date   time.Time `json:"date"`
}

// ComicDetail is the full view of a comic with its chapter list.
type ComicDetail struct {
	ComicSummary
	Description string           `json:"description"`
	Author      string           `json:"author"`
	Artist      string           `json:"artist"`
	Released    time.Time        `json:"released"`
	IsFeatured  bool             `json:"isFeatured"`
	Chapters    []ChapterSummary `json:"chapters"`
}

// ChapterDetail carries the image URLs of a chapter in display order.
type ChapterDetail struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Number int      `json:"number"`
	Images []string `json:"images"`
}

// ComicPage is one page of a comic listing.
type ComicPage struct {
	Comics     []ComicSummary `json:"comics"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"totalPages"`
}

// ListQuery filters and orders a comic listing. Zero values select defaults.
type ListQuery struct {
	Page     int
	PageSize int
	Genre    string
	Status   string
	SortBy   string
}

// NewComic holds the fields of a comic to create.
type NewComic struct {
	Title       string    `json:"title"`
	Cover       string    `json:"cover"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Artist      string    `json:"artist"`
	Released    time.Time `json:"released"`
	Status      string    `json:"status"`
	IsFeatured  bool      `json:"isFeatured"`
	GenreNames  []string  `json:"genreNames"`
}

// NewChapter holds the fields of a chapter to add to a comic.
type NewChapter struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	ImageURLs []string `json:"imageUrls"`
}
