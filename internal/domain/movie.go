package domain

import "context"

// Movie is display metadata from the external catalog. The booking core only
// ever references movies by their opaque id.
type Movie struct {
	ID          string
	Title       string
	PosterPath  string
	VoteAverage float64
	VoteCount   int
}

type CatalogProvider interface {
	FetchNowPlaying(ctx context.Context) ([]Movie, error)
}
