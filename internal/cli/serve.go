package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Manjussha/tokenbench/internal/api"
	"github.com/Manjussha/tokenbench/internal/api/handlers"
	"github.com/Manjussha/tokenbench/internal/auth"
	"github.com/Manjussha/tokenbench/internal/backend"
	"github.com/Manjussha/tokenbench/internal/intake"
	"github.com/Manjussha/tokenbench/internal/notify"
	"github.com/Manjussha/tokenbench/internal/platform"
	"github.com/Manjussha/tokenbench/internal/proxy"
	"github.com/Manjussha/tokenbench/internal/scheduler"
	"github.com/Manjussha/tokenbench/internal/telegram"
	"github.com/Manjussha/tokenbench/internal/tokenizer"
	"github.com/Manjussha/tokenbench/internal/webhook"
	"github.com/Manjussha/tokenbench/internal/wizard"
	"github.com/Manjussha/tokenbench/internal/workspace"
	"github.com/Manjussha/tokenbench/internal/ws"
)

func newServeCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, WebSocket hub and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve wires every component and blocks until SIGINT/SIGTERM.
func (a *App) serve(ctx context.Context) error {
	log.Printf("tokenbench %s starting…", a.Version)

	// ── 1. Configuration and storage ─────────────────────────────────────────
	cfg := a.config()
	log.Printf("Config: port=%s backend=%s workDir=%s", cfg.Port, cfg.BackendURL, cfg.WorkDir)
	if err := platform.EnsureDir(cfg.WorkDir); err != nil {
		return fmt.Errorf("EnsureDir %s: %w", cfg.WorkDir, err)
	}
	if err := a.open(); err != nil {
		return err
	}
	log.Printf("Database ready: %s", cfg.DBPath)

	// Root context, cancelled on shutdown signal.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ── 2. WebSocket hub ─────────────────────────────────────────────────────
	hub := ws.NewHub(api.CheckOrigin(cfg.AllowedOrigins))
	go hub.Run(ctx)

	// ── 3. Backend client and counter ────────────────────────────────────────
	client := NewClient(cfg)
	var counter backend.Counter = client
	switch {
	case a.counter != nil:
		counter = a.counter
	case a.offline:
		counter = backend.NewLocal(tokenizer.NewLocalCounter())
	case cfg.LocalFallback:
		counter = &backend.Fallback{Remote: client, Local: backend.NewLocal(tokenizer.NewLocalCounter())}
	}

	// ── 4. Health probe and retention jobs ───────────────────────────────────
	sched := scheduler.New(client, a.history, hub, ws.TypeBackendHealth)
	if err := sched.Start(ctx, cfg.HealthInterval, time.Duration(cfg.RetentionHours)*time.Hour); err != nil {
		log.Printf("scheduler.Start: %v", err)
	}

	// ── 5. Telegram bot ──────────────────────────────────────────────────────
	cmdHandler := telegram.NewCommandHandler(a.database, a.history, a.projects, func() string {
		return sched.Health().String()
	})
	bot, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID, cmdHandler)
	if err != nil {
		log.Printf("Telegram init error (continuing without Telegram): %v", err)
	}
	if bot != nil {
		go bot.Start(ctx)
		log.Printf("Telegram bot started (chatID=%d)", cfg.TelegramChatID)
	}

	// ── 6. Notify + Webhook dispatchers ──────────────────────────────────────
	hooks := webhook.New(cfg.WebhookURLs)
	notifier := notify.New(telegramSender(bot), hooks)

	// ── 7. Workspace ─────────────────────────────────────────────────────────
	w := workspace.New(workspace.Deps{
		Counter:         counter,
		Validator:       intake.NewValidator(cfg.MaxTextBytes),
		History:         a.history,
		Projects:        a.projects,
		Settings:        a.settings,
		Usage:           a.usage(),
		Watchdog:        tokenizer.NewWatchdog(notifier),
		Notifier:        notifier,
		Events:          hub,
		DefaultEncoding: cfg.DefaultEncoding,
	})
	if a.encoding != "" {
		if err := w.SetTokenizer(a.encoding); err != nil {
			return err
		}
	}

	// ── 8. Access key ────────────────────────────────────────────────────────
	lockout := auth.NewLockout(5, 15*time.Minute)
	guard, err := auth.NewGuard(cfg.AccessKey, lockout)
	if err != nil {
		return err
	}
	if guard.Enabled() {
		log.Printf("Access key required for mutating requests")
		go cleanLockout(ctx, lockout)
	}

	// ── 9. HTTP router ───────────────────────────────────────────────────────
	handler := api.NewRouter(&api.Deps{
		Deps: handlers.Deps{
			Workspace: w,
			DB:        a.database,
			History:   a.history,
			Projects:  a.projects,
			Settings:  a.settings,
			Hub:       hub,
			Scheduler: sched,
			Webhook:   hooks,
			Models:    a.Models(),
			Version:   a.Version,
		},
		Proxy:          proxy.New(client),
		Guard:          guard,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// ── 10. Start HTTP server ────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Printf("Shutting down…")
		w.Cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
	}()

	wizard.PrintDashboardURLs(log.Writer(), cfg.Port)
	log.Printf("tokenbench listening on http://0.0.0.0:%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	hooks.Wait()
	log.Printf("tokenbench stopped.")
	return nil
}

// cleanLockout drops expired lockout entries every few minutes.
func cleanLockout(ctx context.Context, l *auth.Lockout) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.CleanOld()
		}
	}
}

// telegramSender wraps *telegram.Bot to implement notify.Sender.
// Returns nil if bot is nil (Telegram disabled).
func telegramSender(bot *telegram.Bot) notify.Sender {
	if bot == nil {
		return nil
	}
	return bot
}
