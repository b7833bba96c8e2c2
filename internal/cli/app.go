// Package cli implements the tokenbench command line: the HTTP server plus
// one-shot counting, comparison, chunking and reporting commands that share
// the server's workspace, stores and backend client.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Manjussha/tokenbench/internal/backend"
	"github.com/Manjussha/tokenbench/internal/config"
	"github.com/Manjussha/tokenbench/internal/db"
	"github.com/Manjussha/tokenbench/internal/intake"
	"github.com/Manjussha/tokenbench/internal/limiter"
	"github.com/Manjussha/tokenbench/internal/platform"
	"github.com/Manjussha/tokenbench/internal/pricing"
	"github.com/Manjussha/tokenbench/internal/store"
	"github.com/Manjussha/tokenbench/internal/tokenizer"
	"github.com/Manjussha/tokenbench/internal/workspace"
)

// App holds the state shared by all commands. Fields left nil are built from
// the configuration on first use; tests preset them.
type App struct {
	Version string

	configPath string
	backendURL string
	encoding   string
	offline    bool
	noSave     bool

	cfg      *config.Config
	database *db.DB
	kv       store.KV
	counter  backend.Counter
	models   []pricing.Model

	history  *store.History
	projects *store.Projects
	settings *store.SettingsStore
}

// NewApp creates an App for version.
func NewApp(version string) *App {
	return &App{Version: version}
}

// config loads configuration once, applying command-line overrides.
func (a *App) config() *config.Config {
	if a.cfg != nil {
		return a.cfg
	}
	if a.configPath != "" {
		os.Setenv("CONFIG_FILE", a.configPath)
	}
	cfg := config.Load()
	if a.backendURL != "" {
		cfg.BackendURL = a.backendURL
	}
	a.cfg = cfg
	return cfg
}

// open prepares persistence and the stores. With --no-save everything lives
// in memory and is discarded on exit.
func (a *App) open() error {
	if a.history != nil {
		return nil
	}
	cfg := a.config()
	if a.kv == nil {
		if a.noSave {
			a.kv = store.NewMemoryKV()
		} else {
			if err := platform.EnsureDir(filepath.Dir(cfg.DBPath)); err != nil {
				return fmt.Errorf("cli.open: %w", err)
			}
			database, err := db.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("cli.open: %w", err)
			}
			if err := database.Migrate(); err != nil {
				database.Close()
				return fmt.Errorf("cli.open: %w", err)
			}
			a.database = database
			a.kv = store.NewSQLiteKV(database)
		}
	}
	a.history = store.NewHistory(a.kv, cfg.HistoryLimit)
	a.projects = store.NewProjects(a.kv, cfg.ProjectRunLimit)
	a.settings = store.NewSettingsStore(a.kv, store.DefaultSettings(cfg.DefaultBudget))
	return nil
}

// Close releases the database. The stores are reopened on next use.
func (a *App) Close() error {
	a.history, a.projects, a.settings = nil, nil, nil
	if a.database == nil {
		return nil
	}
	err := a.database.Close()
	a.database, a.kv = nil, nil
	return err
}

// Counter returns the token counter: the backend client, optionally wrapped
// with a local fallback, or the local counter alone when offline.
func (a *App) Counter() backend.Counter {
	if a.counter != nil {
		return a.counter
	}
	a.counter = NewCounter(a.config(), a.offline)
	return a.counter
}

// NewCounter builds the counter described by cfg.
func NewCounter(cfg *config.Config, offline bool) backend.Counter {
	local := backend.NewLocal(tokenizer.NewLocalCounter())
	if offline {
		return local
	}
	client := NewClient(cfg)
	if cfg.LocalFallback {
		return &backend.Fallback{Remote: client, Local: local}
	}
	return client
}

// NewClient builds the rate-limited backend client described by cfg.
func NewClient(cfg *config.Config) *backend.Client {
	return backend.NewClient(cfg.BackendURL, &http.Client{Timeout: cfg.BackendTimeout}, limiter.New(cfg.BackendRPM))
}

// Models returns the pricing catalog, falling back to the defaults when the
// configured file cannot be read.
func (a *App) Models() []pricing.Model {
	if a.models != nil {
		return a.models
	}
	models, err := pricing.Catalog(a.config().PricingFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using built-in prices)\n", err)
		models = pricing.DefaultModels()
	}
	a.models = models
	return models
}

// Workspace opens the stores and returns a fresh workspace using the
// selected encoding.
func (a *App) Workspace(ctx context.Context) (*workspace.Workspace, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	cfg := a.config()
	w := workspace.New(workspace.Deps{
		Counter:         a.Counter(),
		Validator:       intake.NewValidator(cfg.MaxTextBytes),
		History:         a.history,
		Projects:        a.projects,
		Settings:        a.settings,
		Usage:           a.usage(),
		Watchdog:        tokenizer.NewWatchdog(nil),
		DefaultEncoding: cfg.DefaultEncoding,
	})
	if a.encoding != "" {
		if err := w.SetTokenizer(a.encoding); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// usage returns the database as a UsageRecorder, or nil with --no-save.
func (a *App) usage() workspace.UsageRecorder {
	if a.database == nil {
		return nil
	}
	return a.database
}

// load queues the named files, failing on the first rejection.
func (a *App) load(w *workspace.Workspace, paths []string) error {
	files := make([]intake.File, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, intake.NewFile(filepath.Base(p), content))
	}
	_, rejected := w.AddFiles(files)
	if len(rejected) > 0 {
		return fmt.Errorf("%s: %s", rejected[0].Name, rejected[0].Reason)
	}
	return nil
}
