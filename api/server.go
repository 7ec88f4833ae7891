/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For behind the gateway
  3. Logger:     Structured request logging (zap)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Prometheus request counts and latency
  6. CORS:       Cross-origin requests for the society's web front end

ROUTE GROUPS:
  /healthz                   Liveness
  /metrics                   Prometheus scrape endpoint
  /api/loans/*               Loan book
  /api/smart-calculator/*    Calculator (see calculator.go)
  /api/admin/*               Accrual job
  /api/scenarios/*           Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", h.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// Loan book
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.ListLoans)
			r.Post("/", h.CreateLoan)
			r.Get("/{id}", h.GetLoan)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/transactions", h.CreateTransaction)
			r.Get("/{id}/accruals", h.GetDailyAccruals)
		})

		// Calculator
		r.Route("/smart-calculator", func(r chi.Router) {
			r.Post("/calculate/interest-for-days", h.InterestForDays)
			r.Post("/calculate/pro-rata-interest", h.ProRataInterest)
			r.Post("/calculate/interest-projections", h.InterestProjections)
			r.Post("/calculate/overdue-with-penalty", h.OverdueWithPenalty)
			r.Get("/interest-tomorrow/{loan_id}", h.InterestTomorrow)
			r.Get("/rate/check-switching/{loan_id}", h.CheckRateSwitching)
			r.Post("/penalty/calculate", h.PenaltyOnly)
			r.Post("/emi-schedule", h.EMISchedule)
			r.Post("/generate/emi-amortization", h.EMIAmortization)
			r.Post("/generate/loan-ledger", h.LoanLedger)
			r.Post("/simulate/payment", h.SimulatePayment)
			r.Post("/compare/loan-schemes", h.CompareSchemes)
			r.Get("/schemes", h.ListSchemes)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/run-daily-accrual", h.RunDailyAccrual)
			r.Get("/accrual-history", h.ListAccrualRuns)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request at Info, with the chi request ID.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
