package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// ErrNotFound is returned when the upstream catalog does not know the
// requested movie, trailer or detail record.
var ErrNotFound = errors.New("movie not found")

type SearchType string

const (
	SearchTypeGeneral SearchType = "general"
	SearchTypeActor   SearchType = "actor"
	SearchTypeCompany SearchType = "company"
)

// Movie is the list-shaped search result. ID is the TMDB identifier and the
// sole identity used for deduplication: two records with the same ID are the
// same movie regardless of any other field.
type Movie struct {
	ID         int        `json:"tmdbID"`
	Title      string     `json:"Title"`
	Year       string     `json:"Year"`
	Genre      string     `json:"Genre"`
	Plot       string     `json:"Plot"`
	Rating     Rating     `json:"imdbRating"`
	Poster     *string    `json:"Poster"`
	Genres     []string   `json:"genres_list,omitempty"`
	Popularity float64    `json:"popularity,omitempty"`
	VoteCount  int        `json:"vote_count,omitempty"`
	SearchType SearchType `json:"search_type,omitempty"`
	Score      float64    `json:"score"`
}

// MovieDetail is the detail-view shape: everything Movie carries plus the
// credits, runtime and availability data only the single-movie fetch returns.
// Plot is the full untruncated overview here.
type MovieDetail struct {
	ID                  int                 `json:"tmdbID"`
	Title               string              `json:"Title"`
	Year                string              `json:"Year"`
	Genre               string              `json:"Genre"`
	Plot                string              `json:"Plot"`
	Rating              Rating              `json:"imdbRating"`
	Poster              *string             `json:"Poster"`
	Runtime             string              `json:"Runtime"`
	Actors              string              `json:"Actors"`
	Director            string              `json:"Director"`
	ReleaseDate         string              `json:"ReleaseDate"`
	ProductionCompanies string              `json:"ProductionCompanies"`
	TrailerKey          *string             `json:"TrailerKey"`
	StreamingProviders  []StreamingProvider `json:"StreamingProviders"`
	VoteCount           int                 `json:"vote_count"`
}

type StreamingProvider struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"` // stream, rent or buy
}

// Facets are the structured attributes inferred from a free-text query.
// Query holds the residual free text and is never empty ("movie" fallback).
type Facets struct {
	Genres    []string
	Year      string
	Actors    []string
	Companies []string
	Query     string
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type SearchResponse struct {
	Query      string     `json:"query"`
	Results    []Movie    `json:"results"`
	SearchTime float64    `json:"searchTime"`
	SearchType SearchType `json:"searchType"`
}

// Rating is a 0-10 vote average. Zero means the upstream reported no rating;
// it marshals as the literal "N/A" the API contract uses, otherwise as a
// number rounded to one decimal.
type Rating float64

func (r Rating) Available() bool {
	return r > 0
}

// Rounded is the 1-decimal value the API exposes; scoring uses it too so
// ties between displayed-equal ratings stay ties.
func (r Rating) Rounded() float64 {
	return math.Round(float64(r)*10) / 10
}

func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.Available() {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.FormatFloat(r.Rounded(), 'f', -1, 64)), nil
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"N/A"`, "null":
		*r = 0
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*r = Rating(value)
	return nil
}
