package tmdb

// listResponse is the envelope for every paginated list endpoint
type listResponse struct {
	Page         int          `json:"page"`
	Results      []listResult `json:"results"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
}

// listResult covers movies and TV shows; the two use different title/date fields
type listResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title,omitempty"` // movies
	Name         string  `json:"name,omitempty"`  // TV shows
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	MediaType    string  `json:"media_type,omitempty"` // combined credits / trending all
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type castMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type credits struct {
	Cast []castMember `json:"cast"`
}

type video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

type videoList struct {
	Results []video `json:"results"`
}

// detailsResponse is GET /movie/{id} or /tv/{id} with append_to_response=credits
type detailsResponse struct {
	listResult
	BackdropPath     string  `json:"backdrop_path"`
	Tagline          string  `json:"tagline"`
	Status           string  `json:"status"`
	Homepage         string  `json:"homepage"`
	Genres           []genre `json:"genres"`
	Runtime          int     `json:"runtime"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Credits          credits `json:"credits"`
}

// personResponse is GET /person/{id} with append_to_response=combined_credits
type personResponse struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Biography          string `json:"biography"`
	Birthday           string `json:"birthday"`
	PlaceOfBirth       string `json:"place_of_birth"`
	ProfilePath        string `json:"profile_path"`
	KnownForDepartment string `json:"known_for_department"`
	CombinedCredits    struct {
		Cast []listResult `json:"cast"`
	} `json:"combined_credits"`
}

// errorResponse is the TMDB error body
type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
