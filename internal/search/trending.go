package search

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"cinematch/searchservice/internal/domain"
)

// Genres surfaced on the trending endpoint, in response order.
var trendingGenres = []string{"action", "comedy", "drama", "romance", "thriller", "sci-fi"}

const (
	trendingLimit       = 12
	recommendLimit      = 20
	trendingConcurrency = 3
)

// Recommend returns popular movies for a single vocabulary genre. Year is
// left open: recommendations are not pinned to the current release year.
func (s *Service) Recommend(ctx context.Context, genre string) []domain.Movie {
	return s.gateway.DiscoverByGenre(ctx, genre, "", recommendLimit)
}

// Trending fetches this year's popular movies per trending genre. Lookups
// run concurrently with a small cap; genres that come back empty are
// omitted from the map.
func (s *Service) Trending(ctx context.Context) map[string][]domain.Movie {
	year := strconv.Itoa(s.now().Year())

	var mu sync.Mutex
	trending := make(map[string][]domain.Movie, len(trendingGenres))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(trendingConcurrency)
	for _, genre := range trendingGenres {
		g.Go(func() error {
			movies := s.gateway.DiscoverByGenre(gctx, genre, year, trendingLimit)
			if len(movies) == 0 {
				return nil
			}
			mu.Lock()
			trending[genre] = movies
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("trending lookup interrupted", slog.String("error", err.Error()))
	}

	return trending
}
