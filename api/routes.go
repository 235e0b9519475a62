package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Sets up chi router, middlewares and defines all api endpoints
func (s *Server) routes() {
	// Inject routes
	s.r = chi.NewRouter()

	// Basic CORS
	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Inject chi middleware
	// A good base middleware stack
	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	s.r.Use(middleware.Logger)
	s.r.Use(middleware.Recoverer)
	s.r.Use(middleware.SetHeader("Content-Type", "application/json"))

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	s.r.Use(middleware.Timeout(60 * time.Second))

	s.r.Route("/v1", func(r chi.Router) {

		// health
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			JSON(w, 200, map[string]interface{}{"health_status": "online"})
		})

		// protocol operations
		r.Post("/deposits", s.handleDepositPost)
		r.Post("/commitments", s.handleCommitmentPost)
		r.Post("/withdrawals", s.handleWithdrawalPost)
		r.Post("/withdrawals/batch", s.handleBatchWithdrawalPost)
		r.Post("/withdrawals/{id}/challenge", s.handleChallengePost)
		r.Post("/withdrawals/{id}/finalize", s.handleFinalizePost)

		// reads
		r.Get("/withdrawals/{id}", s.handleWithdrawalGet)
		r.Get("/withdrawals/hash/{hash}", s.handleWithdrawalByHashGet)
		r.Get("/withdrawals/status/{status}", s.handleWithdrawalsByStatusGet)
		r.Get("/commitments/{seq}", s.handleCommitmentGet)
		r.Get("/accounts/{address}", s.handleAccountGet)
		r.Get("/volume", s.handleVolumeGet)
		r.Get("/transactions", s.handleTransactionsGet)
	})
}
