package main

import (
	"log/slog"
	"net/http"

	"github.com/gigmarket/backend/internal/account"
	"github.com/gigmarket/backend/internal/auth"
	"github.com/gigmarket/backend/internal/commission"
	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/handlers"
	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/moderation"
	"github.com/gigmarket/backend/internal/notify"
	"github.com/gigmarket/backend/internal/router"
	"github.com/gigmarket/backend/internal/telemetry"
	"github.com/gigmarket/backend/internal/validator"
	"github.com/gigmarket/backend/internal/workflow"
)

type userStore interface {
	workflow.UserRepo
	ledger.BalanceRepo
	auth.UserStore
	account.UserRepo
	moderation.UserRepo
	middleware.UserLookup
}

type taskStore interface {
	workflow.TaskRepo
	handlers.TaskLister
	account.TaskReader
	moderation.TaskLister
}

type disputeStore interface {
	workflow.DisputeRepo
	handlers.DisputeLister
	moderation.DisputeLister
}

type transactionStore interface {
	ledger.TransactionRepo
	account.TransactionLister
	moderation.TransactionSummer
}

type notificationStore interface {
	notify.NotificationStore
	handlers.NotificationStore
}

// storage is the repository set of one storage driver.
type storage struct {
	pool          workflow.TxBeginner
	users         userStore
	tasks         taskStore
	disputes      disputeStore
	transactions  transactionStore
	notifications notificationStore
}

// newAPI builds the services and handlers over st and returns the root handler.
// Domain events go to sink.
func newAPI(cfg config.Config, st storage, sink notify.Sink, logger *slog.Logger) (http.Handler, error) {
	schemas, err := validator.New()
	if err != nil {
		return nil, err
	}

	events := notify.NewEmitter(sink, logger)
	ldg := ledger.New(st.users, st.transactions)

	engine := &workflow.Engine{
		Pool:       st.pool,
		Tasks:      st.tasks,
		Users:      st.users,
		Disputes:   st.disputes,
		Ledger:     ldg,
		Commission: commission.New(cfg.CommissionRateBP),
		Events:     events,
		Logger:     logger,
	}
	accounts := &account.Service{
		Pool:     st.pool,
		Users:    st.users,
		Tasks:    st.tasks,
		History:  st.transactions,
		Ledger:   ldg,
		Events:   events,
		ProPrice: cfg.ProPrice,
		Logger:   logger,
	}
	mod := &moderation.Service{
		Pool:         st.pool,
		Users:        st.users,
		Tasks:        st.tasks,
		Disputes:     st.disputes,
		Transactions: st.transactions,
		Events:       events,
		Logger:       logger,
	}
	authSvc := auth.NewService(st.users, cfg.JWTSecret, cfg.TokenTTL)

	api := router.New(router.Handlers{
		Auth:          auth.NewHandler(authSvc, logger),
		Tasks:         &handlers.TaskHandler{Engine: engine, Tasks: st.tasks, Logger: logger},
		Disputes:      &handlers.DisputeHandler{Engine: engine, Disputes: st.disputes, Logger: logger},
		Accounts:      &handlers.AccountHandler{Accounts: accounts, Users: st.users, Logger: logger},
		Notifications: &handlers.NotificationHandler{Store: st.notifications, Logger: logger},
		Admin:         &handlers.AdminHandler{Moderation: mod, Tasks: engine, Revenue: accounts, Logger: logger},
		Tokens:        authSvc,
		Users:         st.users,
		Validator:     schemas,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.Handle("GET /metrics", telemetry.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux, nil
}
