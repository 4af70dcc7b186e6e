package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"trip_sentinel/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			// unauthorized zone
			r.Route("/budget", func(r chi.Router) {
				r.Get("/", handler(s.getV1Budget))
				r.Put("/", handler(s.putV1Budget))
			})

			r.Route("/deals", func(r chi.Router) {
				r.Get("/", handler(s.getV1Deals))
				r.Post("/", handler(s.postV1Deals))
				r.Get("/{id}", handler(s.getV1Deal))
				r.Get("/{id}/attempt", handler(s.getV1DealAttempt))
			})

			r.Get("/attempts", handler(s.getV1Attempts))
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
