package catalog

// Result is one entry of a multi search. Movies carry Title/ReleaseDate,
// series carry Name/FirstAirDate.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids"`
	MediaType    string  `json:"media_type"` // "movie", "tv" or "person"
}

// SearchPage is one page of multi search results
type SearchPage struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Genre is a named catalog genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Detail is the full movie or series payload
type Detail struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Name           string  `json:"name"`
	Overview       string  `json:"overview"`
	PosterPath     string  `json:"poster_path"`
	BackdropPath   string  `json:"backdrop_path"`
	ReleaseDate    string  `json:"release_date"`
	FirstAirDate   string  `json:"first_air_date"`
	VoteAverage    float64 `json:"vote_average"`
	Genres         []Genre `json:"genres"`
	Runtime        int     `json:"runtime"`          // movies
	EpisodeRunTime []int   `json:"episode_run_time"` // series
	Status         string  `json:"status"`           // e.g. "Released"
}

// GenreNames returns the genre names in catalog order
func (d *Detail) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}
