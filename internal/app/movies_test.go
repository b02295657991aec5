package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetick/cinetick/internal/domain"
	"github.com/cinetick/cinetick/internal/mocks"
)

func TestGetNowPlayingMovies(t *testing.T) {
	t.Run("should return the now playing movies", func(t *testing.T) {
		app := newTestApplication(func(a *Application) {
			a.catalog = &mocks.MockCatalogProvider{
				FetchNowPlayingFunc: func(ctx context.Context) ([]domain.Movie, error) {
					return []domain.Movie{
						{ID: "603692", Title: "John Wick: Chapter 4", VoteAverage: 7.8, VoteCount: 5231},
					}, nil
				},
			}
		})

		w, r := executeRequest(t, http.MethodGet, "/movies/now-playing", nil)
		app.Routes().ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)

		var resp NowPlayingResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Movies, 1)
		assert.Equal(t, "603692", resp.Movies[0].Id)
		assert.Equal(t, "John Wick: Chapter 4", resp.Movies[0].Title)
	})

	t.Run("should return 500 when the catalog is unreachable", func(t *testing.T) {
		app := newTestApplication(func(a *Application) {
			a.catalog = &mocks.MockCatalogProvider{
				FetchNowPlayingFunc: func(ctx context.Context) ([]domain.Movie, error) {
					return nil, errors.New("upstream timeout")
				},
			}
		})

		w, r := executeRequest(t, http.MethodGet, "/movies/now-playing", nil)
		app.Routes().ServeHTTP(w, r)

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
