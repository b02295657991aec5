package mocks

import (
	"context"

	"github.com/cinetick/cinetick/internal/domain"
)

type MockCatalogProvider struct {
	FetchNowPlayingFunc func(ctx context.Context) ([]domain.Movie, error)
}

func (m *MockCatalogProvider) FetchNowPlaying(ctx context.Context) ([]domain.Movie, error) {
	return m.FetchNowPlayingFunc(ctx)
}
