package catalog

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Placeholder values substituted when the catalog omits a field.
const (
	UnknownAuthor        = "Unknown Author"
	NoDescription        = "No description available"
	UnknownField         = "Unknown"
	PlaceholderThumbnail = "/book.png"
)

// Candidate is a lightweight type-ahead suggestion. Candidate lists are
// replaced wholesale on each search, never merged.
type Candidate struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	Thumbnail string `json:"thumbnail"`
}

// Record is the canonical, normalized detail view of one resolved book.
// Exactly one Record is live per session at a time; it is immutable once built.
type Record struct {
	Title         string   `json:"title"`
	Authors       string   `json:"authors"`
	Description   string   `json:"description"`
	PageCount     string   `json:"pageCount"`
	PublishedDate string   `json:"publishedDate"`
	Categories    string   `json:"categories"`
	Thumbnail     string   `json:"thumbnail"`
	AverageRating *float64 `json:"averageRating"`
	RatingsCount  int      `json:"ratingsCount"`
}

// CategoryList splits the comma-joined categories for display tags.
func (r Record) CategoryList() []string {
	var out []string
	for _, c := range strings.Split(r.Categories, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// volumeInfo mirrors the volumeInfo object of the Google Books volumes API.
type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	PageCount     int      `json:"pageCount"`
	PublishedDate string   `json:"publishedDate"`
	Categories    []string `json:"categories"`
	ImageLinks    *struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks"`
	AverageRating *float64 `json:"averageRating"`
	RatingsCount  int      `json:"ratingsCount"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

func joinAuthors(authors []string) string {
	if len(authors) == 0 {
		return UnknownAuthor
	}
	return strings.Join(authors, ", ")
}

func thumbnailOf(v volumeInfo) string {
	if v.ImageLinks != nil && v.ImageLinks.Thumbnail != "" {
		return v.ImageLinks.Thumbnail
	}
	return PlaceholderThumbnail
}

// recordFromVolume builds a Record applying every default substitution
// field-by-field; present fields pass through untouched.
func recordFromVolume(v volumeInfo) Record {
	r := Record{
		Title:         v.Title,
		Authors:       joinAuthors(v.Authors),
		Description:   v.Description,
		PageCount:     UnknownField,
		PublishedDate: v.PublishedDate,
		Categories:    UnknownField,
		Thumbnail:     thumbnailOf(v),
		AverageRating: v.AverageRating,
		RatingsCount:  v.RatingsCount,
	}
	if r.Description == "" {
		r.Description = NoDescription
	}
	if v.PageCount > 0 {
		r.PageCount = strconv.Itoa(v.PageCount)
	}
	if r.PublishedDate == "" {
		r.PublishedDate = UnknownField
	}
	if len(v.Categories) > 0 {
		r.Categories = strings.Join(v.Categories, ", ")
	}
	return r
}

func candidateFromItem(it volumeItem) Candidate {
	return Candidate{
		ID:        it.ID,
		Title:     it.VolumeInfo.Title,
		Authors:   joinAuthors(it.VolumeInfo.Authors),
		Thumbnail: thumbnailOf(it.VolumeInfo),
	}
}

// ThemeIndex maps a category tag to one of five style slots. Deterministic so
// the same category always renders the same way.
func ThemeIndex(category string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(category))))
	return int(h.Sum32() % 5)
}
