package search

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"cinematch/searchservice/internal/domain"
	"cinematch/searchservice/internal/metrics"
)

// ErrEmptyQuery is returned when a search request carries no usable text.
var ErrEmptyQuery = errors.New("empty query")

const (
	defaultTopK        = 80
	maxActorPhrases    = 2
	maxCompanyPhrases  = 2
	maxSearchPages     = 5
	maxGenreFacets     = 3
	genreDiscoverLimit = 30
)

// Gateway is the provider surface the aggregator fans out over. List-shaped
// calls are fail-soft and return what they have.
type Gateway interface {
	SearchMovies(ctx context.Context, query, year string, page int) []domain.Movie
	SearchByActor(ctx context.Context, name string) []domain.Movie
	SearchByCompany(ctx context.Context, name string) []domain.Movie
	DiscoverByGenre(ctx context.Context, genre, year string, limit int) []domain.Movie
}

// Service turns a free-text query into a ranked, deduplicated result set by
// running every applicable provider strategy and scoring the union.
type Service struct {
	gateway Gateway
	logger  *slog.Logger
	topK    int
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTopK(topK int) ServiceOption {
	return func(s *Service) {
		if topK > 0 {
			s.topK = topK
		}
	}
}

// WithNow overrides the current-year snapshot used by genre discovery and
// trending.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(gateway Gateway, opts ...ServiceOption) *Service {
	s := &Service{
		gateway: gateway,
		logger:  slog.Default(),
		topK:    defaultTopK,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search is the full pipeline: facet extraction, strategy fan-out, dedup,
// scoring, batch normalization and truncation to the requested size.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.SearchResponse{}, ErrEmptyQuery
	}

	startedAt := time.Now()
	facets := ExtractFacets(query)
	searchType := searchTypeFor(facets)
	metrics.SearchesTotal.WithLabelValues(string(searchType)).Inc()

	topK := s.topK
	if req.TopK > 0 {
		topK = req.TopK
	}

	movies := s.aggregate(ctx, facets, topK)
	movies = Dedupe(movies)
	ranked := rankMovies(movies, facets)
	ranked = head(ranked, topK)

	elapsed := math.Round(time.Since(startedAt).Seconds()*100) / 100
	s.logger.Info("search completed",
		slog.String("query", query),
		slog.String("searchType", string(searchType)),
		slog.Int("results", len(ranked)),
		slog.Float64("seconds", elapsed),
	)

	return domain.SearchResponse{
		Query:      query,
		Results:    ranked,
		SearchTime: elapsed,
		SearchType: searchType,
	}, nil
}

// aggregate runs the strategies strictly in order: actors, companies, paged
// title search on the residual query, then genre discovery. Actor and
// company lookups are the most specific signals and may overshoot the
// target; the broader stages only run while the target is unmet.
func (s *Service) aggregate(ctx context.Context, facets domain.Facets, target int) []domain.Movie {
	var movies []domain.Movie

	for _, actor := range head(facets.Actors, maxActorPhrases) {
		movies = append(movies, s.gateway.SearchByActor(ctx, actor)...)
	}
	for _, company := range head(facets.Companies, maxCompanyPhrases) {
		movies = append(movies, s.gateway.SearchByCompany(ctx, company)...)
	}
	for page := 1; page <= maxSearchPages && len(movies) < target; page++ {
		movies = append(movies, s.gateway.SearchMovies(ctx, facets.Query, facets.Year, page)...)
	}
	if len(movies) < target {
		// Without a year signal, discovery pins to the current year so the
		// broadest stage stays fresh.
		year := facets.Year
		if year == "" {
			year = strconv.Itoa(s.now().Year())
		}
		for _, genre := range head(facets.Genres, maxGenreFacets) {
			discovered := s.gateway.DiscoverByGenre(ctx, genre, year, genreDiscoverLimit)
			movies = appendNew(movies, discovered, target)
			if len(movies) >= target {
				break
			}
		}
	}

	return movies
}

// appendNew appends movies whose IDs are not yet present, stopping at the
// target count.
func appendNew(movies, batch []domain.Movie, target int) []domain.Movie {
	seen := make(map[int]struct{}, len(movies))
	for _, movie := range movies {
		seen[movie.ID] = struct{}{}
	}
	for _, movie := range batch {
		if len(movies) >= target {
			break
		}
		if _, ok := seen[movie.ID]; ok {
			continue
		}
		seen[movie.ID] = struct{}{}
		movies = append(movies, movie)
	}
	return movies
}

func searchTypeFor(facets domain.Facets) domain.SearchType {
	if len(facets.Actors) > 0 {
		return domain.SearchTypeActor
	}
	if len(facets.Companies) > 0 {
		return domain.SearchTypeCompany
	}
	return domain.SearchTypeGeneral
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
