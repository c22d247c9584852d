package app

import (
	"context"
	"log/slog"
	"sync"

	"execdoc/internal/core/config"
	"execdoc/internal/core/ports"
	"execdoc/internal/data/journal"
	"execdoc/internal/engine/compiler"
	"execdoc/internal/engine/runtime"

	"github.com/google/uuid"
)

// Dependencies lets callers and tests replace the adapters App would
// otherwise build from config.
type Dependencies struct {
	Journal ports.JournalStore
	Logger  *slog.Logger
}

// App is the interpreter: one compiler, one persistent engine and an optional
// journal. Engine access is serialized by mu.
type App struct {
	Config   *config.Config
	logger   *slog.Logger
	compiler *compiler.Compiler
	engine   *runtime.Engine
	journal  ports.JournalStore
	session  string

	nodes *nodeSchema

	mu sync.Mutex
}

var _ ports.Interpreter = (*App)(nil)

// New builds an App from cfg, opening the journal when it is enabled.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps := Dependencies{Logger: logger}
	if cfg != nil && cfg.DB.Enabled {
		store, err := journal.Open(cfg.DB.Path, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		deps.Journal = store
	}
	return NewWithDependencies(cfg, deps)
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:   cfg,
		logger:   logger,
		compiler: compiler.New(logger),
		engine:   runtime.New(logger, runtime.Options{Modules: cfg.Runtime.Modules}),
		journal:  deps.Journal,
		session:  uuid.NewString(),
	}
	a.nodes = newNodeSchema(cfg.Runtime.Languages)
	logger.Debug("interpreter ready", "session", a.session, "modules", a.engine.Modules())
	return a, nil
}

// Session identifies this interpreter's scope in journal entries.
func (a *App) Session() string {
	return a.session
}

func (a *App) Close(ctx context.Context) error {
	if a == nil || a.journal == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.journal.Close()
}
