package domain

import (
	"fmt"
	"strings"
)

// MediaKind distinguishes the two catalog media kinds
type MediaKind string

const (
	MediaKindMovie MediaKind = "movie"
	MediaKindTV    MediaKind = "tv"
)

// Valid reports whether k is a known media kind
func (k MediaKind) Valid() bool {
	return k == MediaKindMovie || k == MediaKindTV
}

// ParseMediaKind converts user input ("movie", "tv", "show") to a MediaKind
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return MediaKindMovie, nil
	case "tv", "show", "shows":
		return MediaKindTV, nil
	default:
		return "", fmt.Errorf("unknown media kind: %q", s)
	}
}

// Category names understood by the catalog API.
// "trending" is routed to the daily trending endpoint; everything else maps to /{kind}/{category}.
const (
	CategoryPopular     = "popular"
	CategoryTrending    = "trending"
	CategoryTopRated    = "top_rated"
	CategoryNowPlaying  = "now_playing"
	CategoryUpcoming    = "upcoming"
	CategoryOnTheAir    = "on_the_air"
	CategoryAiringToday = "airing_today"
)

// Categories returns the browse categories offered for a media kind, in display order
func Categories(kind MediaKind) []string {
	if kind == MediaKindTV {
		return []string{CategoryPopular, CategoryTrending, CategoryTopRated, CategoryOnTheAir, CategoryAiringToday}
	}
	return []string{CategoryPopular, CategoryTrending, CategoryNowPlaying, CategoryTopRated, CategoryUpcoming}
}

// CategoryTitle returns a display label for a category name
func CategoryTitle(category string) string {
	switch category {
	case CategoryPopular:
		return "Popular"
	case CategoryTrending:
		return "Trending"
	case CategoryTopRated:
		return "Top Rated"
	case CategoryNowPlaying:
		return "Now Playing"
	case CategoryUpcoming:
		return "Upcoming"
	case CategoryOnTheAir:
		return "On The Air"
	case CategoryAiringToday:
		return "Airing Today"
	default:
		return category
	}
}

// MediaSummary is a read-only projection of a catalog list entry
type MediaSummary struct {
	ID          int       `json:"id"`
	Kind        MediaKind `json:"kind"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview,omitempty"`
	PosterPath  string    `json:"poster_path,omitempty"`
	Rating      float64   `json:"rating"`       // 0-10 community rating
	ReleaseDate string    `json:"release_date"` // YYYY-MM-DD; first air date for TV
}

// Year returns the release year, or 0 when the date is missing
func (m MediaSummary) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	var y int
	if _, err := fmt.Sscanf(m.ReleaseDate[:4], "%d", &y); err != nil {
		return 0
	}
	return y
}

// Description returns secondary info for list rendering
func (m MediaSummary) Description() string {
	parts := make([]string, 0, 2)
	if y := m.Year(); y > 0 {
		parts = append(parts, fmt.Sprintf("%d", y))
	}
	if m.Rating > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", m.Rating))
	}
	return strings.Join(parts, "  ")
}

// CatalogPage is one page of a paginated catalog listing
type CatalogPage struct {
	PageNumber   int            `json:"page"`
	Items        []MediaSummary `json:"items"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// IsLast reports whether no further page exists after this one
func (p CatalogPage) IsLast() bool {
	return p.PageNumber >= p.TotalPages
}

// Genre is a catalog genre tag
type Genre struct {
	ID   int
	Name string
}

// CastMember is one credited performer
type CastMember struct {
	ID          int
	Name        string
	Character   string
	ProfilePath string
	Order       int
}

// VideoRef points to a trailer/teaser hosted on an external site
type VideoRef struct {
	ID       string
	Key      string // Site-specific video key (e.g., YouTube video ID)
	Name     string
	Site     string
	Type     string // "Trailer", "Teaser", "Clip", ...
	Official bool
}

// URL returns a watchable URL for known sites, or "" otherwise
func (v VideoRef) URL() string {
	switch strings.ToLower(v.Site) {
	case "youtube":
		return "https://www.youtube.com/watch?v=" + v.Key
	case "vimeo":
		return "https://vimeo.com/" + v.Key
	default:
		return ""
	}
}

// MediaDetails is the full detail page for a movie or TV show
type MediaDetails struct {
	MediaSummary
	BackdropPath string
	Tagline      string
	Status       string
	Genres       []Genre
	Runtime      int // Minutes; movies only
	SeasonCount  int // TV only
	EpisodeCount int // TV only
	Homepage     string
	Cast         []CastMember
	Videos       []VideoRef
}

// GenreNames returns the genre names joined for display
func (d MediaDetails) GenreNames() string {
	names := make([]string, len(d.Genres))
	for i, g := range d.Genres {
		names[i] = g.Name
	}
	return strings.Join(names, ", ")
}

// FormattedRuntime returns the runtime in a human-readable format
func (d MediaDetails) FormattedRuntime() string {
	if d.Runtime <= 0 {
		return ""
	}
	h := d.Runtime / 60
	mins := d.Runtime % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// PersonDetails is a cast member's biography page
type PersonDetails struct {
	ID                 int
	Name               string
	Biography          string
	Birthday           string
	PlaceOfBirth       string
	ProfilePath        string
	KnownForDepartment string
	Credits            []MediaSummary // Combined movie + TV credits
}
