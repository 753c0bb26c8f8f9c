package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"despesas/internal/accounts"
	"despesas/internal/config"
	"despesas/internal/gateway"
	"despesas/internal/handlers"
	"despesas/internal/ledger"
	"despesas/internal/session"
	"despesas/internal/storage"
	"despesas/internal/storage/jsonfile"
	"despesas/internal/storage/sqlite"
	"despesas/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Parse()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	credBackend, ledgerBackend, cleanup, err := openBackends(cfg)
	if err != nil {
		slog.Error("failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.Info("storage initialized", "backend", cfg.StorageBackend, "data_dir", cfg.DataDir)

	sessions, err := session.New(cfg.SessionFile, cfg.AdminEmail)
	if err != nil {
		slog.Error("failed to restore session", "error", err)
		os.Exit(1)
	}

	led := ledger.New(ledgerBackend)
	manager := accounts.NewManager(credBackend, led, sessions, cfg.AdminEmail, cfg.AdminPassword)
	if err := manager.EnsureAdmin(); err != nil {
		slog.Error("failed to ensure administrator account", "error", err)
		os.Exit(1)
	}

	h := handlers.NewHandlers(manager, gateway.New(led, sessions), cfg.TemplateDir)
	mux := setupRouter(h, cfg.StaticDir)

	slog.Info("server starting", "address", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// openBackends selects the storage backend from configuration. The
// returned cleanup func closes whatever the backend holds open.
func openBackends(cfg config.Config) (storage.CredentialBackend, storage.LedgerBackend, func(), error) {
	if cfg.StorageBackend == "sqlite" {
		db, err := sqlite.New(filepath.Join(cfg.DataDir, "despesas.db"))
		if err != nil {
			return nil, nil, nil, err
		}
		return db.Credentials(), db.Expenses(), func() { db.Close() }, nil
	}

	creds, err := jsonfile.NewCredentialStore(filepath.Join(cfg.DataDir, "credentials.json"))
	if err != nil {
		return nil, nil, nil, err
	}
	expenses, err := jsonfile.NewExpenseStore(filepath.Join(cfg.DataDir, "expenses.json"))
	if err != nil {
		return nil, nil, nil, err
	}
	return creds, expenses, func() {}, nil
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/expenses", http.StatusFound)
	})

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /logout", h.Logout)

	mux.Handle("GET /expenses", h.RequireAuth(http.HandlerFunc(h.ListExpenses)))
	mux.Handle("POST /expenses", h.RequireAuth(http.HandlerFunc(h.CreateExpense)))
	mux.Handle("POST /expenses/{id}/delete", h.RequireAuth(http.HandlerFunc(h.DeleteExpense)))
	mux.Handle("GET /stats", h.RequireAuth(http.HandlerFunc(h.Statistics)))
	mux.Handle("GET /export", h.RequireAuth(http.HandlerFunc(h.ExportCSV)))

	mux.Handle("GET /admin", h.RequireAdmin(http.HandlerFunc(h.AdminPanel)))
	mux.Handle("POST /admin/approve", h.RequireAdmin(http.HandlerFunc(h.Approve)))
	mux.Handle("POST /admin/delete", h.RequireAdmin(http.HandlerFunc(h.DeleteIdentity)))

	return mux
}
