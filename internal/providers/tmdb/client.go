package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"cinematch/searchservice/internal/domain"
	"cinematch/searchservice/internal/metrics"
)

const (
	defaultBaseURL   = "https://api.themoviedb.org/3"
	posterBaseURL    = "https://image.tmdb.org/t/p/w342"
	defaultRegion    = "US"
	defaultUserAgent = "cinematch-search/1.0"

	// Per-endpoint timeouts. Discovery and availability lookups are the
	// least critical and get the shortest budget.
	searchTimeout    = 8 * time.Second
	videosTimeout    = 8 * time.Second
	detailTimeout    = 10 * time.Second
	personTimeout    = 10 * time.Second
	companyTimeout   = 10 * time.Second
	discoverTimeout  = 5 * time.Second
	providersTimeout = 5 * time.Second

	plotLimit      = 120
	castLimit      = 8
	creditsLimit   = 30
	companiesLimit = 3

	noDescription = "No description available"
	unknownValue  = "Unknown"
)

type Config struct {
	APIKey    string
	BaseURL   string
	Region    string
	UserAgent string
	// PacingInterval is the minimum spacing between consecutive upstream
	// requests. Zero or negative disables the gate.
	PacingInterval time.Duration
	Client         *http.Client
	Logger         *slog.Logger
	// Now supplies the current-year snapshot used to drop future-dated
	// releases. Defaults to time.Now.
	Now func() time.Time
}

// Client is the gateway to the TMDB HTTP API. List-shaped lookups are
// fail-soft: upstream errors are logged and collapse to an empty result, so
// a single provider hiccup never aborts an aggregation.
type Client struct {
	apiKey    string
	baseURL   string
	region    string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	region := strings.ToUpper(strings.TrimSpace(cfg.Region))
	if region == "" {
		region = defaultRegion
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	var limiter *rate.Limiter
	if cfg.PacingInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.PacingInterval), 1)
	}
	return &Client{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   strings.TrimRight(baseURL, "/"),
		region:    region,
		userAgent: userAgent,
		http:      httpClient,
		limiter:   limiter,
		logger:    logger,
		now:       now,
	}
}

// Wire shapes. TMDB list payloads share the same item structure across
// search, discover and credits responses.
type listItem struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	GenreIDs    []int   `json:"genre_ids"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
}

type listPayload struct {
	Results []listItem `json:"results"`
}

type entityPayload struct {
	Results []struct {
		ID int `json:"id"`
	} `json:"results"`
}

type creditsPayload struct {
	Cast []listItem `json:"cast"`
}

type video struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type videosPayload struct {
	Results []video `json:"results"`
}

type detailPayload struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Genres      []struct {
		Name string `json:"name"`
	} `json:"genres"`
	ProductionCompanies []struct {
		Name string `json:"name"`
	} `json:"production_companies"`
	Credits struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
	Videos videosPayload `json:"videos"`
}

// get issues one paced, metered request against the API and decodes the JSON
// body into dest. The endpoint label keys the Prometheus series.
func (c *Client) get(ctx context.Context, endpoint string, timeout time.Duration, path string, params url.Values, dest any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	startedAt := time.Now()
	resp, err := c.http.Do(req)
	metrics.TMDBRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startedAt).Seconds())
	if err != nil {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("tmdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("decode tmdb payload: %w", err)
	}
	metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

// SearchMovies runs a title search. When year is non-empty only exact year
// matches are kept.
func (c *Client) SearchMovies(ctx context.Context, query, year string, page int) []domain.Movie {
	if page <= 0 {
		page = 1
	}
	params := url.Values{
		"query": {strings.TrimSpace(query)},
		"page":  {strconv.Itoa(page)},
	}
	var payload listPayload
	if err := c.get(ctx, "search_movie", searchTimeout, "/search/movie", params, &payload); err != nil {
		c.logger.Warn("title search failed", slog.String("query", query), slog.String("error", err.Error()))
		return nil
	}

	var movies []domain.Movie
	for _, item := range payload.Results {
		movie, ok := c.toMovie(item, domain.SearchTypeGeneral)
		if !ok {
			continue
		}
		if year != "" && movie.Year != year {
			continue
		}
		movies = append(movies, movie)
	}
	return movies
}

// SearchByActor resolves the free-text name to the first ranked person and
// returns that person's movie credits. Zero candidates means zero results;
// there is no disambiguation.
func (c *Client) SearchByActor(ctx context.Context, name string) []domain.Movie {
	var persons entityPayload
	params := url.Values{"query": {strings.TrimSpace(name)}}
	if err := c.get(ctx, "search_person", personTimeout, "/search/person", params, &persons); err != nil {
		c.logger.Warn("person search failed", slog.String("name", name), slog.String("error", err.Error()))
		return nil
	}
	if len(persons.Results) == 0 {
		return nil
	}

	var credits creditsPayload
	path := fmt.Sprintf("/person/%d/movie_credits", persons.Results[0].ID)
	if err := c.get(ctx, "person_credits", personTimeout, path, nil, &credits); err != nil {
		c.logger.Warn("person credits failed", slog.String("name", name), slog.String("error", err.Error()))
		return nil
	}

	cast := credits.Cast
	if len(cast) > creditsLimit {
		cast = cast[:creditsLimit]
	}
	var movies []domain.Movie
	for _, item := range cast {
		if movie, ok := c.toMovie(item, domain.SearchTypeActor); ok {
			movies = append(movies, movie)
		}
	}
	return movies
}

// SearchByCompany resolves the free-text name to the first ranked production
// company and returns its catalog sorted by popularity.
func (c *Client) SearchByCompany(ctx context.Context, name string) []domain.Movie {
	var companies entityPayload
	params := url.Values{"query": {strings.TrimSpace(name)}}
	if err := c.get(ctx, "search_company", companyTimeout, "/search/company", params, &companies); err != nil {
		c.logger.Warn("company search failed", slog.String("name", name), slog.String("error", err.Error()))
		return nil
	}
	if len(companies.Results) == 0 {
		return nil
	}

	params = url.Values{
		"with_companies": {strconv.Itoa(companies.Results[0].ID)},
		"sort_by":        {"popularity.desc"},
	}
	var payload listPayload
	if err := c.get(ctx, "discover_company", companyTimeout, "/discover/movie", params, &payload); err != nil {
		c.logger.Warn("company discovery failed", slog.String("name", name), slog.String("error", err.Error()))
		return nil
	}

	results := payload.Results
	if len(results) > creditsLimit {
		results = results[:creditsLimit]
	}
	var movies []domain.Movie
	for _, item := range results {
		if movie, ok := c.toMovie(item, domain.SearchTypeCompany); ok {
			movies = append(movies, movie)
		}
	}
	return movies
}

// DiscoverByGenre returns up to limit popularity-sorted movies for a
// vocabulary genre. An empty year leaves the release year unconstrained.
func (c *Client) DiscoverByGenre(ctx context.Context, genre, year string, limit int) []domain.Movie {
	code, ok := domain.GenreCode(strings.ToLower(strings.TrimSpace(genre)))
	if !ok {
		return nil
	}
	params := url.Values{
		"with_genres": {strconv.Itoa(code)},
		"sort_by":     {"popularity.desc"},
	}
	if year != "" {
		params.Set("primary_release_year", year)
	}
	var payload listPayload
	if err := c.get(ctx, "discover_genre", discoverTimeout, "/discover/movie", params, &payload); err != nil {
		c.logger.Warn("genre discovery failed", slog.String("genre", genre), slog.String("error", err.Error()))
		return nil
	}

	var movies []domain.Movie
	for _, item := range payload.Results {
		movie, ok := c.toMovie(item, "")
		if !ok {
			continue
		}
		movies = append(movies, movie)
		if limit > 0 && len(movies) >= limit {
			break
		}
	}
	return movies
}

// MovieDetails fetches the full detail record, including credits, trailer
// candidates and streaming availability. Any upstream failure reads as
// domain.ErrNotFound: detail callers cannot distinguish a missing movie from
// a failed fetch, and are not supposed to.
func (c *Client) MovieDetails(ctx context.Context, id int) (domain.MovieDetail, error) {
	params := url.Values{"append_to_response": {"credits,videos,production_companies"}}
	var payload detailPayload
	if err := c.get(ctx, "movie_detail", detailTimeout, fmt.Sprintf("/movie/%d", id), params, &payload); err != nil {
		c.logger.Warn("movie detail failed", slog.Int("movieID", id), slog.String("error", err.Error()))
		return domain.MovieDetail{}, domain.ErrNotFound
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = "Unknown Title"
	}

	genreNames := make([]string, 0, len(payload.Genres))
	for _, genre := range payload.Genres {
		genreNames = append(genreNames, genre.Name)
	}

	runtime := unknownValue
	if payload.Runtime > 0 {
		runtime = fmt.Sprintf("%d min", payload.Runtime)
	}

	cast := make([]string, 0, castLimit)
	for _, member := range payload.Credits.Cast {
		cast = append(cast, member.Name)
		if len(cast) >= castLimit {
			break
		}
	}

	director := unknownValue
	for _, member := range payload.Credits.Crew {
		if member.Job == "Director" {
			director = member.Name
			break
		}
	}

	companies := make([]string, 0, companiesLimit)
	for _, company := range payload.ProductionCompanies {
		companies = append(companies, company.Name)
		if len(companies) >= companiesLimit {
			break
		}
	}

	plot := strings.TrimSpace(payload.Overview)
	if plot == "" {
		plot = noDescription
	}

	return domain.MovieDetail{
		ID:                  id,
		Title:               title,
		Year:                releaseYear(payload.ReleaseDate),
		Genre:               joinOrUnknown(genreNames),
		Plot:                plot,
		Rating:              domain.Rating(payload.VoteAverage),
		Poster:              posterURL(payload.PosterPath),
		Runtime:             runtime,
		Actors:              joinOrUnknown(cast),
		Director:            director,
		ReleaseDate:         payload.ReleaseDate,
		ProductionCompanies: joinOrUnknown(companies),
		TrailerKey:          detailTrailerKey(payload.Videos.Results),
		StreamingProviders:  c.StreamingProviders(ctx, id),
		VoteCount:           payload.VoteCount,
	}, nil
}

// TrailerKey resolves the best standalone trailer for a movie: an official
// YouTube trailer first, then any YouTube trailer, then any YouTube teaser.
func (c *Client) TrailerKey(ctx context.Context, id int) (string, error) {
	var payload videosPayload
	if err := c.get(ctx, "movie_videos", videosTimeout, fmt.Sprintf("/movie/%d/videos", id), nil, &payload); err != nil {
		c.logger.Warn("trailer lookup failed", slog.Int("movieID", id), slog.String("error", err.Error()))
		return "", domain.ErrNotFound
	}

	var trailers, teasers []video
	for _, v := range payload.Results {
		if v.Site != "YouTube" {
			continue
		}
		switch v.Type {
		case "Trailer":
			trailers = append(trailers, v)
		case "Teaser":
			teasers = append(teasers, v)
		}
	}
	for _, v := range trailers {
		if strings.Contains(strings.ToLower(v.Name), "official") {
			return v.Key, nil
		}
	}
	if len(trailers) > 0 {
		return trailers[0].Key, nil
	}
	if len(teasers) > 0 {
		return teasers[0].Key, nil
	}
	return "", domain.ErrNotFound
}

// detailTrailerKey is the detail-fetch variant: it keeps the first YouTube
// trailer but upgrades to an "official" one appearing later in the list.
// No teaser fallback here.
func detailTrailerKey(videos []video) *string {
	var key *string
	for _, v := range videos {
		if v.Type != "Trailer" || v.Site != "YouTube" {
			continue
		}
		k := v.Key
		key = &k
		if strings.Contains(strings.ToLower(v.Name), "official") {
			break
		}
	}
	return key
}

func (c *Client) toMovie(item listItem, searchType domain.SearchType) (domain.Movie, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return domain.Movie{}, false
	}
	year := releaseYear(item.ReleaseDate)
	// Upstream catalogs sometimes carry next year's announced releases;
	// drop anything dated past the current-year snapshot.
	if isFutureYear(year, c.now().Year()) {
		return domain.Movie{}, false
	}
	names := domain.GenreNames(item.GenreIDs)
	return domain.Movie{
		ID:         item.ID,
		Title:      title,
		Year:       year,
		Genre:      displayGenres(names),
		Plot:       truncatePlot(item.Overview),
		Rating:     domain.Rating(item.VoteAverage),
		Poster:     posterURL(item.PosterPath),
		Genres:     names,
		Popularity: item.Popularity,
		VoteCount:  item.VoteCount,
		SearchType: searchType,
	}, true
}

func releaseYear(releaseDate string) string {
	if releaseDate == "" {
		return unknownValue
	}
	year, _, _ := strings.Cut(releaseDate, "-")
	if year == "" {
		return unknownValue
	}
	return year
}

func isFutureYear(year string, currentYear int) bool {
	value, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	return value > currentYear
}

func truncatePlot(overview string) string {
	overview = strings.TrimSpace(overview)
	if overview == "" {
		return noDescription
	}
	runes := []rune(overview)
	if len(runes) <= plotLimit {
		return overview
	}
	return string(runes[:plotLimit]) + "..."
}

func posterURL(path string) *string {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	value := posterBaseURL + path
	return &value
}

func displayGenres(names []string) string {
	if len(names) == 0 {
		return unknownValue
	}
	caser := cases.Title(language.English)
	capitalized := make([]string, len(names))
	for i, name := range names {
		capitalized[i] = caser.String(name)
	}
	return strings.Join(capitalized, ", ")
}

func joinOrUnknown(values []string) string {
	if len(values) == 0 {
		return unknownValue
	}
	return strings.Join(values, ", ")
}
