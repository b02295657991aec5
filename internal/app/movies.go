package app

import (
	"net/http"

	"github.com/cinetick/cinetick/internal/domain"
)

type MovieResponse struct {
	Id          string  `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"posterPath,omitempty"`
	VoteAverage float64 `json:"voteAverage"`
	VoteCount   int     `json:"voteCount"`
}

type NowPlayingResponse struct {
	Movies []MovieResponse `json:"movies"`
}

func (app *Application) GetNowPlayingMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := app.catalog.FetchNowPlaying(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := NowPlayingResponse{Movies: make([]MovieResponse, len(movies))}
	for i, movie := range movies {
		resp.Movies[i] = toMovieResponse(movie)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toMovieResponse(movie domain.Movie) MovieResponse {
	return MovieResponse{
		Id:          movie.ID,
		Title:       movie.Title,
		PosterPath:  movie.PosterPath,
		VoteAverage: movie.VoteAverage,
		VoteCount:   movie.VoteCount,
	}
}
