package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/callbacks"

	"github.com/dyike/finreact/config"
	"github.com/dyike/finreact/internal/agents"
	"github.com/dyike/finreact/internal/dataflows"
	"github.com/dyike/finreact/internal/debug"
	"github.com/dyike/finreact/internal/digest"
	"github.com/dyike/finreact/internal/graph"
	"github.com/dyike/finreact/internal/logger"
	"github.com/dyike/finreact/internal/mailer"
	"github.com/dyike/finreact/internal/metrics"
	"github.com/dyike/finreact/internal/service"
	"github.com/dyike/finreact/internal/storage/sqlite"
	"github.com/dyike/finreact/internal/tools"
)

// runtime owns the long-lived collaborators of one CLI invocation.
type runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	store  *sqlite.Store
	av     *dataflows.AlphaVantageClient
	quotes dataflows.QuoteSource
	search dataflows.Searcher
	mail   *mailer.SMTPMailer
}

func newRuntime(cfg *config.Config, log *logger.Logger) (*runtime, error) {
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	av := dataflows.NewAlphaVantageClient(cfg, log)
	return &runtime{
		cfg:    cfg,
		log:    log,
		store:  store,
		av:     av,
		quotes: dataflows.NewQuoteSource(cfg, av, log),
		search: dataflows.NewSearcher(cfg, log),
		mail:   mailer.New(cfg, log),
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		rt.log.Warnw("close store", "error", err)
	}
}

// newRunner wires model, tools and loop into a session runner.
func (rt *runtime) newRunner(ctx context.Context, handlers ...callbacks.Handler) (*service.Runner, error) {
	if err := debug.NewEinoDebugger(rt.cfg, rt.log).Initialize(ctx); err != nil {
		rt.log.Warnw("eino debug disabled", "error", err)
	}

	chatModel, err := agents.NewChatModel(ctx, rt.cfg)
	if err != nil {
		return nil, err
	}
	ts, err := tools.NewRegistry(tools.Deps{
		Quotes:     rt.quotes,
		Statements: rt.av,
		Search:     rt.search,
		Store:      rt.store,
		Mailer:     rt.mail,
		Log:        rt.log,
	})
	if err != nil {
		return nil, err
	}
	loop, err := graph.NewLoop(ctx, chatModel, ts,
		graph.WithMaxTurns(rt.cfg.LLM.MaxTurns),
		graph.WithLogger(rt.log),
		graph.WithCallbacks(handlers...),
	)
	if err != nil {
		return nil, err
	}
	return service.NewRunner(rt.store, loop,
		service.WithTimeout(rt.cfg.LLM.SessionTimeout),
		service.WithLogger(rt.log),
	), nil
}

func (rt *runtime) newDigestJob(manager *config.Manager) *digest.Job {
	return digest.NewJob(rt.store, rt.quotes, rt.search, rt.mail,
		digest.WithSettings(manager.Get),
		digest.WithLogger(rt.log),
	)
}

func (rt *runtime) newSettingsManager() (*config.Manager, error) {
	initial := config.DefaultDigestSettings(rt.cfg.Digest)
	return config.NewManager(
		config.WithSettingsPath(rt.cfg.Digest.SettingsPath),
		config.WithInitialSettings(&initial),
		config.WithLogger(rt.log.SugaredLogger),
	)
}

// serveMetrics exposes /metrics on METRICS_ADDR until ctx is done.
func serveMetrics(ctx context.Context, addr string, log *logger.Logger) {
	if addr == "" {
		return
	}
	metrics.Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Infow("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
