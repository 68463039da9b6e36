package search

import "cinematch/searchservice/internal/domain"

// Dedupe drops repeated movie IDs, keeping the first occurrence. Order is
// otherwise preserved, so the strategy that found a movie first decides its
// search_type tag.
func Dedupe(movies []domain.Movie) []domain.Movie {
	seen := make(map[int]struct{}, len(movies))
	unique := make([]domain.Movie, 0, len(movies))
	for _, movie := range movies {
		if _, ok := seen[movie.ID]; ok {
			continue
		}
		seen[movie.ID] = struct{}{}
		unique = append(unique, movie)
	}
	return unique
}
