package memerest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Config struct {
	Logger         zerolog.Logger
	Drops          Dropper
	Store          Lister
	Viewers        http.Handler // websocket; optional
	GraphQL        http.Handler // optional
	Playground     http.Handler // GraphiQL page; optional
	Assets         http.Handler // local image directory; optional
	MaxBytes       int64
	TrustForwarded bool
}

func Routes(c Config) chi.Router {
	router := Middlewares(c.Logger, chi.NewRouter())

	router.Post("/api/drop", DropHandler(c.Drops, c.MaxBytes, c.TrustForwarded))
	router.Get("/api/placements", middleware.NoCache(PlacementsHandler(c.Store)).ServeHTTP)
	router.Get("/memes", middleware.NoCache(MemesHandler(c.Store)).ServeHTTP)
	router.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if c.Viewers != nil {
		router.Get("/ws", c.Viewers.ServeHTTP)
	}
	if c.GraphQL != nil {
		router.Post("/graphql", middleware.NoCache(c.GraphQL).ServeHTTP)
	}
	if c.Playground != nil {
		router.Get("/graphql", c.Playground.ServeHTTP)
	}
	if c.Assets != nil {
		router.Get("/assets/*", CacheControl(http.StripPrefix("/assets", c.Assets).ServeHTTP, 31536000))
	}
	return router
}
