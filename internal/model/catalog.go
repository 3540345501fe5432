package model

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar-date format used for publish dates on input,
// in storage and on output.
const DateLayout = "2006-01-02"

// Audience classifies a book's intended readership.
// The zero value means "not set".
type Audience string

const (
	AudienceChildren   Audience = "CHILDREN"
	AudienceYoungAdult Audience = "YOUNG_ADULT"
	AudienceAdult      Audience = "ADULT"
)

// Audiences lists every valid tag in display order.
var Audiences = []Audience{AudienceChildren, AudienceYoungAdult, AudienceAdult}

// ParseAudience converts a form value into an Audience.
// An empty string yields the unset audience; anything outside the fixed set
// is rejected.
func ParseAudience(s string) (Audience, error) {
	if s == "" {
		return "", nil
	}
	for _, a := range Audiences {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown audience %q", s)
}

// Label returns a human-friendly name, e.g. "Young Adult".
func (a Audience) Label() string {
	switch a {
	case AudienceChildren:
		return "Children"
	case AudienceYoungAdult:
		return "Young Adult"
	case AudienceAdult:
		return "Adult"
	default:
		return ""
	}
}

// Author writes books. One author has many books.
type Author struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Biography string    `json:"biography"`
	CreatedAt time.Time `json:"createdAt"`
}

// Genre is a named category. Names are unique.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Book is the write-side shape of a book: foreign keys, not resolved entities.
//
// PublishDate is nil when unknown. GenreIDs is the complete genre set; on
// update it replaces the stored set rather than merging into it.
type Book struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	PublishDate *time.Time `json:"publishDate,omitempty"`
	Audience    Audience   `json:"audience,omitempty"`
	AuthorID    int64      `json:"authorId"`
	GenreIDs    []int64    `json:"genreIds"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PublishDateString formats the publish date as YYYY-MM-DD, or "" when unset.
func (b Book) PublishDateString() string {
	if b.PublishDate == nil {
		return ""
	}
	return b.PublishDate.Format(DateLayout)
}

// BookView is the read-side shape: the book with its author and genres
// resolved, plus what the current viewer may do with it.
type BookView struct {
	Book
	Author Author  `json:"author"`
	Genres []Genre `json:"genres"`

	// CanFavorite is true only when the request carries a logged-in viewer.
	CanFavorite bool `json:"canFavorite"`
	IsFavorited bool `json:"isFavorited"`
}

// HasGenre reports whether the book is tagged with the given genre.
// Templates use it to pre-select options in the edit form.
func (v BookView) HasGenre(id int64) bool {
	for _, g := range v.Genres {
		if g.ID == id {
			return true
		}
	}
	return false
}
