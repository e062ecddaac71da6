package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gigmarket/backend/internal/auth"
	"github.com/gigmarket/backend/internal/handlers"
	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/validator"
)

// Handlers groups everything the API routes need.
type Handlers struct {
	Auth          *auth.Handler
	Tasks         *handlers.TaskHandler
	Disputes      *handlers.DisputeHandler
	Accounts      *handlers.AccountHandler
	Notifications *handlers.NotificationHandler
	Admin         *handlers.AdminHandler

	Tokens    middleware.TokenValidator
	Users     middleware.UserLookup
	Validator *validator.Validator
}

// New returns an http.Handler that serves the API under /api/v1.
func New(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	body := func(schema string) func(http.Handler) http.Handler {
		return middleware.ValidateBody(h.Validator, schema)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)
		r.Get("/users/{id}", h.Accounts.Profile)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(h.Tokens, h.Users))

			r.Get("/users/me", h.Accounts.Me)
			r.Post("/users/me/pro", h.Accounts.BuyPro)

			r.With(body(validator.WalletAmount)).Post("/wallet/topup", h.Accounts.TopUp)
			r.With(body(validator.WalletAmount)).Post("/wallet/withdraw", h.Accounts.Withdraw)
			r.Get("/wallet/transactions", h.Accounts.Transactions)

			r.Get("/tasks", h.Tasks.ListTasks)
			r.With(body(validator.CreateTask)).Post("/tasks", h.Tasks.CreateTask)
			r.Get("/tasks/saved", h.Accounts.SavedTasks)
			r.Route("/tasks/{id}", func(r chi.Router) {
				r.Get("/", h.Tasks.GetTask)
				r.Post("/claim", h.Tasks.ClaimTask)
				r.With(body(validator.SubmitTask)).Post("/submit", h.Tasks.SubmitTask)
				r.With(body(validator.ApproveTask)).Post("/approve", h.Tasks.ApproveTask)
				r.Post("/cancel", h.Tasks.CancelTask)
				r.With(body(validator.RequestCancellation)).Post("/cancellation", h.Tasks.RequestCancellation)
				r.With(body(validator.ApproveCancellation)).Post("/cancellation/approve", h.Tasks.ApproveCancellation)
				r.Post("/cancellation/reject", h.Tasks.RejectCancellation)
				r.With(body(validator.OpenDispute)).Post("/dispute", h.Tasks.OpenDispute)
				r.Post("/save", h.Accounts.ToggleSaved)
			})

			r.Get("/disputes", h.Disputes.ListMine)
			r.Get("/disputes/{id}", h.Disputes.Get)

			r.Get("/notifications", h.Notifications.List)
			r.Get("/notifications/unread-count", h.Notifications.UnreadCount)
			r.Post("/notifications/read-all", h.Notifications.MarkAllRead)
			r.Post("/notifications/{id}/read", h.Notifications.MarkRead)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/stats", h.Admin.Stats)
				r.Get("/users", h.Admin.ListUsers)
				r.With(body(validator.BanUser)).Post("/users/{id}/ban", h.Admin.Ban)
				r.Post("/users/{id}/unban", h.Admin.Unban)
				r.Post("/users/{id}/verify", h.Admin.Verify)
				r.Post("/users/{id}/unverify", h.Admin.Unverify)
				r.Delete("/tasks/{id}", h.Admin.RemoveTask)
				r.Post("/revenue/withdraw", h.Admin.WithdrawRevenue)
				r.Get("/disputes", h.Disputes.ListAll)
				r.Post("/disputes/{id}/review", h.Disputes.Review)
				r.With(body(validator.ResolveDispute)).Post("/disputes/{id}/resolve", h.Disputes.Resolve)
				r.With(body(validator.ResolveDispute)).Post("/disputes/{id}/reject", h.Disputes.Reject)
			})
		})
	})
	return r
}
