package search

import (
	"math"
	"sort"
	"strings"

	"cinematch/searchservice/internal/domain"
)

// Scoring weights. Term matches dominate, facet agreement adds fixed
// bonuses, and quality signals (rating, popularity, votes) break ties.
const (
	titleTermWeight = 15
	genreTermWeight = 8
	plotTermWeight  = 3

	yearMatchBonus      = 20
	genreFacetBonus     = 10
	actorMentionBonus   = 12
	companyMentionBonus = 10

	ratingWeight       = 2
	popularityWeight   = 0.05
	popularityScoreCap = 10
	voteCountWeight    = 0.002
	voteCountScoreCap  = 5
	voteCountThreshold = 100
)

type scoredMovie struct {
	movie domain.Movie
	raw   float64
}

// rankMovies scores every movie against the extracted facets, sorts by raw
// score descending (ties keep aggregation order) and normalizes scores to
// the batch maximum.
func rankMovies(movies []domain.Movie, facets domain.Facets) []domain.Movie {
	if len(movies) == 0 {
		return movies
	}

	terms := queryTerms(facets.Query)
	scored := make([]scoredMovie, len(movies))
	var maxScore float64
	for i, movie := range movies {
		raw := relevanceScore(movie, terms, facets)
		scored[i] = scoredMovie{movie: movie, raw: raw}
		if raw > maxScore {
			maxScore = raw
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].raw > scored[j].raw
	})

	ranked := make([]domain.Movie, len(scored))
	for i, entry := range scored {
		// No positive signal anywhere in the batch reads as "everything is
		// equally plausible", not as zero relevance.
		normalized := 0.5
		if maxScore > 0 {
			normalized = entry.raw / maxScore
		}
		entry.movie.Score = math.Round(normalized*10000) / 10000
		ranked[i] = entry.movie
	}
	return ranked
}

func relevanceScore(movie domain.Movie, terms []string, facets domain.Facets) float64 {
	var score float64

	title := strings.ToLower(movie.Title)
	genre := strings.ToLower(movie.Genre)
	plot := strings.ToLower(movie.Plot)

	// Each term scores at most one bucket: title beats genre beats plot.
	for _, term := range terms {
		switch {
		case strings.Contains(title, term):
			score += titleTermWeight
		case strings.Contains(genre, term):
			score += genreTermWeight
		case strings.Contains(plot, term):
			score += plotTermWeight
		}
	}

	if facets.Year != "" && movie.Year == facets.Year {
		score += yearMatchBonus
	}
	for _, want := range facets.Genres {
		for _, have := range movie.Genres {
			if want == have {
				score += genreFacetBonus
				break
			}
		}
	}
	for _, actor := range facets.Actors {
		lowered := strings.ToLower(actor)
		if strings.Contains(title, lowered) || strings.Contains(plot, lowered) {
			score += actorMentionBonus
		}
	}
	for _, company := range facets.Companies {
		if strings.Contains(plot, strings.ToLower(company)) {
			score += companyMentionBonus
		}
	}

	if movie.Rating.Available() {
		score += movie.Rating.Rounded() * ratingWeight
	}
	score += math.Min(movie.Popularity*popularityWeight, popularityScoreCap)
	if movie.VoteCount > voteCountThreshold {
		score += math.Min(float64(movie.VoteCount)*voteCountWeight, voteCountScoreCap)
	}

	return score
}

// queryTerms splits the residual query into tokens worth matching; one- and
// two-letter tokens are noise.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, field := range fields {
		if len(field) > 2 {
			terms = append(terms, field)
		}
	}
	return terms
}
