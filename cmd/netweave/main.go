// Command netweave runs the crawl control surface: an HTTP API to create
// crawl sessions, start and cancel them, poll progress, and read the
// resulting company/connection graph.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/netweave/crawl"
	"github.com/hazyhaar/netweave/store"
)

func main() {
	logLevel := env("LOG_LEVEL", "info")
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg := crawl.DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		cfg, err = crawl.LoadConfigFile(path)
		if err != nil {
			slog.Error("load config", "path", path, "error", err)
			os.Exit(1)
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LISTEN"); v != "" {
		cfg.Listen = v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	registry := crawl.NewRegistry()
	crawler := crawl.New(st, registry, cfg, logger)

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Mode string `json:"mode"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			sess, err := st.CreateSession(r.Context(), req.Mode)
			if err != nil {
				writeError(w, 400, err)
				return
			}
			writeJSON(w, 201, sess)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			sessions, err := st.ListSessions(r.Context())
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if sessions == nil {
				sessions = []*store.CrawlSession{}
			}
			writeJSON(w, 200, sessions)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			sess, err := st.GetSession(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if sess == nil {
				writeError(w, 404, errSessionNotFound)
				return
			}
			writeJSON(w, 200, sess)
		})

		r.Post("/{id}/start", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if req.Email == "" || req.Password == "" {
				writeError(w, 400, fmt.Errorf("email and password are required"))
				return
			}
			sess, err := st.GetSession(r.Context(), id)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if sess == nil {
				writeError(w, 404, errSessionNotFound)
				return
			}
			err = crawler.Start(id, crawl.Credentials{Email: req.Email, Password: req.Password})
			if errors.Is(err, crawl.ErrSessionActive) || errors.Is(err, crawl.ErrSessionNotPending) {
				writeError(w, 409, err)
				return
			}
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 202, map[string]string{"id": id, "status": "starting"})
		})

		r.Post("/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if !registry.Cancel(id) {
				writeError(w, 409, fmt.Errorf("session is not running"))
				return
			}
			writeJSON(w, 200, map[string]string{"id": id, "status": "cancelling"})
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if registry.Active(id) {
				writeError(w, 409, fmt.Errorf("session is running, cancel it first"))
				return
			}
			sess, err := st.GetSession(r.Context(), id)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if sess == nil {
				writeError(w, 404, errSessionNotFound)
				return
			}
			if err := st.DeleteSession(r.Context(), id); err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, map[string]string{"status": "deleted"})
		})

		r.Get("/{id}/results", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			sess, err := st.GetSession(r.Context(), id)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if sess == nil {
				writeError(w, 404, errSessionNotFound)
				return
			}
			results, err := st.SessionResults(r.Context(), id)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if results == nil {
				results = []*store.SessionResult{}
			}
			writeJSON(w, 200, results)
		})
	})

	r.Get("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		settings, err := st.AllSettings(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, settings)
	})

	r.Put("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		for key, value := range req {
			if err := validateSetting(key, value); err != nil {
				writeError(w, 400, err)
				return
			}
		}
		for key, value := range req {
			if err := st.SetSetting(r.Context(), key, value); err != nil {
				writeError(w, 500, err)
				return
			}
		}
		writeJSON(w, 200, map[string]string{"status": "updated"})
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	// Abort running crawls before the store closes under them.
	registry.CancelAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

var errSessionNotFound = errors.New("session not found")

// validateSetting rejects unknown keys and out-of-range values before
// they land in the overlay.
func validateSetting(key, value string) error {
	switch key {
	case store.SettingRateLimitMs:
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 1000 {
			return fmt.Errorf("rate_limit_ms must be an integer >= 1000")
		}
	case store.SettingMaxConnections:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("max_connections must be a positive integer")
		}
	case store.SettingHeadless:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("headless must be a boolean")
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
