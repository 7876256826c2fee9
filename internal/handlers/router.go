package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sadikur-dev/mailreward/internal/middlewares"
)

func NewRouter(api *API) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middlewares.Logger(api.log))
	r.Use(middleware.Compress(5))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", api.Register)
		r.Post("/login", api.Login)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Auth(api.jwtSecret))
			r.Post("/submissions", api.SubmitCredential)
			r.Get("/balance", api.GetBalance)
			r.Post("/withdrawals", api.RequestWithdrawal)
			r.Post("/withdrawals/destination", api.ProvideDestination)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middlewares.Auth(api.jwtSecret))
		r.Get("/submissions", api.ListSubmissions)
		r.Get("/withdrawals", api.ListPendingWithdrawals)
		r.Post("/withdrawals/{id}/decision", api.DecideWithdrawal)
		r.Post("/settings/limit", api.SetSubmissionLimit)
		r.Post("/settings/price", api.SetEmailPrice)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
