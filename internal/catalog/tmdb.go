// Package catalog adapts the external movie catalog (TMDB). It is read-only:
// the booking core only ever carries the opaque movie id, everything else is
// display metadata for the UI layer.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinetick/cinetick/internal/domain"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"

	nowPlayingCacheKey = "catalog:now_playing"
	nowPlayingCacheTTL = 10 * time.Minute
)

type TMDBProvider struct {
	baseURL     string
	accessToken string
	client      *http.Client
	cache       redis.UniversalClient
}

type TMDBOption func(*TMDBProvider)

// WithBaseURL points the provider at a different API root, used by tests.
func WithBaseURL(url string) TMDBOption {
	return func(p *TMDBProvider) {
		p.baseURL = url
	}
}

func NewTMDBProvider(accessToken string, cache redis.UniversalClient, opts ...TMDBOption) *TMDBProvider {
	p := &TMDBProvider{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
		cache:       cache,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

type nowPlayingResponse struct {
	Results []struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		PosterPath  string  `json:"poster_path"`
		VoteAverage float64 `json:"vote_average"`
		VoteCount   int     `json:"vote_count"`
	} `json:"results"`
}

// FetchNowPlaying returns the currently running movies, served from the Redis
// cache when fresh. Cache failures degrade to a direct upstream call.
func (p *TMDBProvider) FetchNowPlaying(ctx context.Context) ([]domain.Movie, error) {
	if p.cache != nil {
		cached, err := p.cache.Get(ctx, nowPlayingCacheKey).Bytes()
		if err == nil {
			var movies []domain.Movie

			if err := json.Unmarshal(cached, &movies); err == nil {
				return movies, nil
			}
		} else if errors.Is(err, context.Canceled) {
			return nil, err
		}
	}

	movies, err := p.fetchNowPlaying(ctx)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if payload, err := json.Marshal(movies); err == nil {
			p.cache.Set(ctx, nowPlayingCacheKey, payload, nowPlayingCacheTTL)
		}
	}

	return movies, nil
}

func (p *TMDBProvider) fetchNowPlaying(ctx context.Context) ([]domain.Movie, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/movie/now_playing", nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog upstream returned status %d", resp.StatusCode)
	}

	var body nowPlayingResponse

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	movies := make([]domain.Movie, len(body.Results))
	for i, r := range body.Results {
		movies[i] = domain.Movie{
			ID:          strconv.Itoa(r.ID),
			Title:       r.Title,
			PosterPath:  r.PosterPath,
			VoteAverage: r.VoteAverage,
			VoteCount:   r.VoteCount,
		}
	}

	return movies, nil
}

var _ domain.CatalogProvider = (*TMDBProvider)(nil)
