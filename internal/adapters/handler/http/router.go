package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(ballotHandler *BallotHandler, voteHandler *VoteHandler, ledgerHandler *LedgerHandler, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/verify", voteHandler.VerifyReceipt)
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))

			r.Route("/ballots", func(r chi.Router) {
				r.Post("/", ballotHandler.CreateBallot)
				r.Get("/{id}", ballotHandler.GetBallot)
				r.Post("/{id}/votes", voteHandler.CastVote)
				r.Post("/{id}/tally", ballotHandler.TallyBallot)
				r.Get("/{id}/report", ledgerHandler.ExportReport)
			})

			r.Route("/ledger", func(r chi.Router) {
				r.Get("/", ledgerHandler.ListEntries)
				r.Get("/export", ledgerHandler.ExportChain)
			})
		})
	})

	return r
}
