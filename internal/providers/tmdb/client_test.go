package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinematch/searchservice/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Client:  server.Client(),
		Now:     fixedNow,
	})
}

func TestSearchMoviesNormalization(t *testing.T) {
	longPlot := strings.Repeat("a", 150)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Fatal("missing api key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"id": 1, "title": "Inception", "overview": "` + longPlot + `", "poster_path": "/p1.jpg",
			 "release_date": "2010-07-16", "genre_ids": [28, 878], "vote_average": 8.345, "vote_count": 30000, "popularity": 90.5},
			{"id": 2, "title": "Future Film", "release_date": "2031-01-01"},
			{"id": 3, "title": "", "release_date": "2010-01-01"},
			{"id": 4, "title": "Unrated", "overview": "Short.", "release_date": "2009-05-05", "vote_average": 0}
		]}`))
	})

	movies := client.SearchMovies(context.Background(), "inception", "", 1)
	if len(movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(movies))
	}

	first := movies[0]
	if first.ID != 1 || first.Year != "2010" {
		t.Fatalf("unexpected movie: %+v", first)
	}
	if first.Genre != "Action, Sci-Fi" {
		t.Fatalf("genre = %q", first.Genre)
	}
	if len(first.Genres) != 2 || first.Genres[0] != "action" || first.Genres[1] != "sci-fi" {
		t.Fatalf("genres_list = %v", first.Genres)
	}
	if !strings.HasSuffix(first.Plot, "...") || len([]rune(first.Plot)) != 123 {
		t.Fatalf("plot not truncated: %q", first.Plot)
	}
	if first.Poster == nil || !strings.HasSuffix(*first.Poster, "/p1.jpg") {
		t.Fatalf("poster = %v", first.Poster)
	}
	if first.SearchType != domain.SearchTypeGeneral {
		t.Fatalf("search type = %q", first.SearchType)
	}

	if movies[1].ID != 4 {
		t.Fatalf("expected movie 4 second, got %d", movies[1].ID)
	}
	if movies[1].Rating.Available() {
		t.Fatalf("expected unavailable rating, got %v", movies[1].Rating)
	}
	if movies[1].Poster != nil {
		t.Fatal("expected nil poster")
	}
}

func TestSearchMoviesYearFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": [
			{"id": 1, "title": "Old", "release_date": "2010-01-01"},
			{"id": 2, "title": "Wanted", "release_date": "2020-03-03"}
		]}`))
	})

	movies := client.SearchMovies(context.Background(), "wanted", "2020", 1)
	if len(movies) != 1 || movies[0].ID != 2 {
		t.Fatalf("unexpected result: %+v", movies)
	}
}

func TestSearchMoviesUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if movies := client.SearchMovies(context.Background(), "anything", "", 1); len(movies) != 0 {
		t.Fatalf("expected no movies, got %d", len(movies))
	}
}

func TestSearchByActorTwoHop(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/search/person":
			_, _ = w.Write([]byte(`{"results": [{"id": 31}, {"id": 99}]}`))
		case "/person/31/movie_credits":
			_, _ = w.Write([]byte(`{"cast": [
				{"id": 1, "title": "Cast Away", "release_date": "2000-12-22"},
				{"id": 2, "title": "Announced", "release_date": "2030-01-01"}
			]}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	movies := client.SearchByActor(context.Background(), "tom hanks")
	if len(paths) != 2 || paths[1] != "/person/31/movie_credits" {
		t.Fatalf("unexpected call sequence: %v", paths)
	}
	if len(movies) != 1 || movies[0].Title != "Cast Away" {
		t.Fatalf("unexpected movies: %+v", movies)
	}
	if movies[0].SearchType != domain.SearchTypeActor {
		t.Fatalf("search type = %q", movies[0].SearchType)
	}
}

func TestSearchByActorNoCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/person" {
			t.Fatalf("unexpected second hop: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"results": []}`))
	})
	if movies := client.SearchByActor(context.Background(), "nobody"); len(movies) != 0 {
		t.Fatalf("expected no movies, got %d", len(movies))
	}
}

func TestSearchByCompanyTwoHop(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/company":
			_, _ = w.Write([]byte(`{"results": [{"id": 3}]}`))
		case "/discover/movie":
			if r.URL.Query().Get("with_companies") != "3" {
				t.Fatalf("unexpected query: %s", r.URL.RawQuery)
			}
			if r.URL.Query().Get("sort_by") != "popularity.desc" {
				t.Fatalf("unexpected sort: %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"results": [{"id": 7, "title": "Toy Story", "release_date": "1995-11-22"}]}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	movies := client.SearchByCompany(context.Background(), "pixar")
	if len(movies) != 1 || movies[0].SearchType != domain.SearchTypeCompany {
		t.Fatalf("unexpected movies: %+v", movies)
	}
}

func TestDiscoverByGenre(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("with_genres") != "878" {
			t.Fatalf("unexpected genre code: %s", r.URL.RawQuery)
		}
		if query.Get("primary_release_year") != "2020" {
			t.Fatalf("unexpected year: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results": [
			{"id": 1, "title": "A", "release_date": "2020-01-01"},
			{"id": 2, "title": "B", "release_date": "2020-02-01"},
			{"id": 3, "title": "C", "release_date": "2020-03-01"}
		]}`))
	})

	movies := client.DiscoverByGenre(context.Background(), "sci-fi", "2020", 2)
	if len(movies) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(movies))
	}
}

func TestDiscoverByGenreUnknownGenre(t *testing.T) {
	client := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request for unknown genre: %s", r.URL.Path)
	})
	if movies := client.DiscoverByGenre(context.Background(), "telenovela", "", 10); movies != nil {
		t.Fatalf("expected nil, got %v", movies)
	}
}

func TestMovieDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/603":
			if r.URL.Query().Get("append_to_response") != "credits,videos,production_companies" {
				t.Fatalf("unexpected query: %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{
				"id": 603, "title": "The Matrix", "overview": "` + strings.Repeat("x", 200) + `",
				"poster_path": "/m.jpg", "release_date": "1999-03-31", "runtime": 136,
				"vote_average": 8.2, "vote_count": 26000,
				"genres": [{"name": "Action"}, {"name": "Science Fiction"}],
				"production_companies": [{"name": "Warner Bros."}, {"name": "Village Roadshow"}, {"name": "Silver"}, {"name": "Extra"}],
				"credits": {
					"cast": [{"name": "A1"},{"name": "A2"},{"name": "A3"},{"name": "A4"},{"name": "A5"},{"name": "A6"},{"name": "A7"},{"name": "A8"},{"name": "A9"}],
					"crew": [{"name": "Editor One", "job": "Editor"}, {"name": "Lana Wachowski", "job": "Director"}, {"name": "Other Director", "job": "Director"}]
				},
				"videos": {"results": [
					{"key": "first", "name": "Teaser Trailer", "site": "YouTube", "type": "Trailer"},
					{"key": "official", "name": "Official Trailer", "site": "YouTube", "type": "Trailer"}
				]}
			}`))
		case "/movie/603/watch/providers":
			_, _ = w.Write([]byte(`{"results": {"US": {"flatrate": [{"provider_name": "Netflix"}]}}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	detail, err := client.MovieDetails(context.Background(), 603)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Title != "The Matrix" || detail.Year != "1999" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.Runtime != "136 min" {
		t.Fatalf("runtime = %q", detail.Runtime)
	}
	if detail.Genre != "Action, Science Fiction" {
		t.Fatalf("genre = %q", detail.Genre)
	}
	if detail.Director != "Lana Wachowski" {
		t.Fatalf("director = %q", detail.Director)
	}
	if got := strings.Count(detail.Actors, ",") + 1; got != 8 {
		t.Fatalf("expected 8 cast names, got %d (%q)", got, detail.Actors)
	}
	if detail.ProductionCompanies != "Warner Bros., Village Roadshow, Silver" {
		t.Fatalf("companies = %q", detail.ProductionCompanies)
	}
	// Detail plot stays untruncated.
	if len(detail.Plot) != 200 {
		t.Fatalf("plot length = %d", len(detail.Plot))
	}
	if detail.TrailerKey == nil || *detail.TrailerKey != "official" {
		t.Fatalf("trailer key = %v", detail.TrailerKey)
	}
	if len(detail.StreamingProviders) != 1 || detail.StreamingProviders[0].Name != "Netflix" {
		t.Fatalf("streaming = %+v", detail.StreamingProviders)
	}
}

func TestMovieDetailsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := client.MovieDetails(context.Background(), 1); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPacingGateSpacesConsecutiveRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	t.Cleanup(server.Close)

	const interval = 50 * time.Millisecond
	client := NewClient(Config{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		Client:         server.Client(),
		PacingInterval: interval,
		Now:            fixedNow,
	})

	start := time.Now()
	client.SearchMovies(context.Background(), "first", "", 1)
	client.SearchMovies(context.Background(), "second", "", 1)
	if elapsed := time.Since(start); elapsed < interval {
		t.Fatalf("two paced calls completed in %v, want at least %v", elapsed, interval)
	}
}

func TestTrailerKeyPreferences(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{
			name: "official trailer wins",
			payload: `{"results": [
				{"key": "plain", "name": "Trailer", "site": "YouTube", "type": "Trailer"},
				{"key": "off", "name": "OFFICIAL Trailer", "site": "YouTube", "type": "Trailer"}
			]}`,
			want: "off",
		},
		{
			name: "first trailer fallback",
			payload: `{"results": [
				{"key": "t1", "name": "Trailer One", "site": "YouTube", "type": "Trailer"},
				{"key": "t2", "name": "Trailer Two", "site": "YouTube", "type": "Trailer"}
			]}`,
			want: "t1",
		},
		{
			name: "teaser fallback",
			payload: `{"results": [
				{"key": "vimeo", "name": "Official Trailer", "site": "Vimeo", "type": "Trailer"},
				{"key": "tease", "name": "Teaser", "site": "YouTube", "type": "Teaser"}
			]}`,
			want: "tease",
		},
		{
			name:    "nothing usable",
			payload: `{"results": []}`,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.payload))
			})
			key, err := client.TrailerKey(context.Background(), 42)
			if tc.wantErr {
				if err != domain.ErrNotFound {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if key != tc.want {
				t.Fatalf("key = %q, want %q", key, tc.want)
			}
		})
	}
}
