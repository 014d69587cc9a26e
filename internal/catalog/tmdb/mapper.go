package tmdb

import (
	"sort"
	"strconv"

	"github.com/mmcdole/marquee/internal/domain"
)

// mapSummary converts a list entry. kind is the fallback when the entry has no media_type.
func mapSummary(r listResult, kind domain.MediaKind) domain.MediaSummary {
	if r.MediaType == "movie" || r.MediaType == "tv" {
		kind = domain.MediaKind(r.MediaType)
	}

	title := r.Title
	if title == "" {
		title = r.Name
	}
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}

	return domain.MediaSummary{
		ID:          r.ID,
		Kind:        kind,
		Title:       title,
		Overview:    r.Overview,
		PosterPath:  r.PosterPath,
		Rating:      r.VoteAverage,
		ReleaseDate: date,
	}
}

func mapPage(resp *listResponse, kind domain.MediaKind) *domain.CatalogPage {
	items := make([]domain.MediaSummary, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, mapSummary(r, kind))
	}

	page := resp.Page
	if page < 1 {
		page = 1
	}
	totalPages := resp.TotalPages
	if totalPages < page {
		// Empty result sets report total_pages=0
		totalPages = page
	}

	return &domain.CatalogPage{
		PageNumber:   page,
		Items:        items,
		TotalPages:   totalPages,
		TotalResults: resp.TotalResults,
	}
}

func mapVideos(vs []video) []domain.VideoRef {
	out := make([]domain.VideoRef, 0, len(vs))
	for _, v := range vs {
		out = append(out, domain.VideoRef{
			ID:       v.ID,
			Key:      v.Key,
			Name:     v.Name,
			Site:     v.Site,
			Type:     v.Type,
			Official: v.Official,
		})
	}
	return out
}

func mapDetails(resp *detailsResponse, kind domain.MediaKind) *domain.MediaDetails {
	genres := make([]domain.Genre, len(resp.Genres))
	for i, g := range resp.Genres {
		genres[i] = domain.Genre{ID: g.ID, Name: g.Name}
	}

	cast := make([]domain.CastMember, len(resp.Credits.Cast))
	for i, c := range resp.Credits.Cast {
		cast[i] = domain.CastMember{
			ID:          c.ID,
			Name:        c.Name,
			Character:   c.Character,
			ProfilePath: c.ProfilePath,
			Order:       c.Order,
		}
	}
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })

	return &domain.MediaDetails{
		MediaSummary: mapSummary(resp.listResult, kind),
		BackdropPath: resp.BackdropPath,
		Tagline:      resp.Tagline,
		Status:       resp.Status,
		Homepage:     resp.Homepage,
		Genres:       genres,
		Runtime:      resp.Runtime,
		SeasonCount:  resp.NumberOfSeasons,
		EpisodeCount: resp.NumberOfEpisodes,
		Cast:         cast,
	}
}

func mapPerson(resp *personResponse) *domain.PersonDetails {
	credits := make([]domain.MediaSummary, 0, len(resp.CombinedCredits.Cast))
	seen := make(map[string]bool)
	for _, r := range resp.CombinedCredits.Cast {
		s := mapSummary(r, domain.MediaKindMovie)
		// The same title appears once per credited role
		key := string(s.Kind) + ":" + strconv.Itoa(s.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		credits = append(credits, s)
	}
	// Newest first; undated credits last
	sort.SliceStable(credits, func(i, j int) bool {
		return credits[i].ReleaseDate > credits[j].ReleaseDate
	})

	return &domain.PersonDetails{
		ID:                 resp.ID,
		Name:               resp.Name,
		Biography:          resp.Biography,
		Birthday:           resp.Birthday,
		PlaceOfBirth:       resp.PlaceOfBirth,
		ProfilePath:        resp.ProfilePath,
		KnownForDepartment: resp.KnownForDepartment,
		Credits:            credits,
	}
}
