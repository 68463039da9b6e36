package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cinematch/searchservice/internal/domain"
	"cinematch/searchservice/internal/search"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	Recommend(ctx context.Context, genre string) []domain.Movie
	Trending(ctx context.Context) map[string][]domain.Movie
}

type MovieCatalog interface {
	MovieDetails(ctx context.Context, id int) (domain.MovieDetail, error)
	TrailerKey(ctx context.Context, id int) (string, error)
	StreamingProviders(ctx context.Context, id int) []domain.StreamingProvider
}

type Server struct {
	search  SearchService
	catalog MovieCatalog
	logger  *slog.Logger
}

const maxRequestBody = 64 * 1024

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(searchService SearchService, catalog MovieCatalog, options ...ServerOption) *Server {
	server := &Server{
		search:  searchService,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/recommend/{genre}", s.handleRecommend)
	mux.HandleFunc("GET /api/trending", s.handleTrending)
	mux.HandleFunc("GET /api/movie/{id}", s.handleMovieDetails)
	mux.HandleFunc("GET /api/movie/{id}/trailer", s.handleMovieTrailer)
	mux.HandleFunc("GET /api/movie/{id}/streaming", s.handleMovieStreaming)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "cinematch-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"message":   "CineMatch API is running",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var request domain.SearchRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &request); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	response, err := s.search.Search(r.Context(), request)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "Empty query")
			return
		}
		s.logger.Error("search failed", slog.String("query", request.Query), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	genre := strings.ToLower(strings.TrimSpace(r.PathValue("genre")))
	movies := s.search.Recommend(r.Context(), genre)
	if movies == nil {
		movies = []domain.Movie{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"genre":   genre,
		"results": movies,
	})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"results": s.search.Trending(r.Context()),
	})
}

func (s *Server) handleMovieDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := moviePathID(w, r)
	if !ok {
		return
	}
	detail, err := s.catalog.MovieDetails(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Movie not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleMovieTrailer(w http.ResponseWriter, r *http.Request) {
	id, ok := moviePathID(w, r)
	if !ok {
		return
	}
	key, err := s.catalog.TrailerKey(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Trailer not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trailerKey": key})
}

func (s *Server) handleMovieStreaming(w http.ResponseWriter, r *http.Request) {
	id, ok := moviePathID(w, r)
	if !ok {
		return
	}
	providers := s.catalog.StreamingProviders(r.Context(), id)
	if providers == nil {
		providers = []domain.StreamingProvider{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"streamingProviders": providers})
}

func moviePathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid movie id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
