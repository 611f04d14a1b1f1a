package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/harun/legomem/internal/config"
	"github.com/harun/legomem/internal/logger"
	"github.com/harun/legomem/internal/observability"
	"github.com/harun/legomem/internal/tracing"
	"github.com/harun/legomem/pkg/agent"
	"github.com/harun/legomem/pkg/bench"
	"github.com/harun/legomem/pkg/curation"
	"github.com/harun/legomem/pkg/llm"
	"github.com/harun/legomem/pkg/memory"
	"github.com/harun/legomem/pkg/orchestrator"
	"github.com/harun/legomem/pkg/retrieval"
	"github.com/harun/legomem/pkg/tracker"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// providers holds the model clients for every role.
type providers struct {
	Planner  llm.Completer
	Worker   llm.Completer
	Curator  llm.Completer
	Judge    llm.Completer
	Embedder llm.Embedder
}

// newProviders builds provider clients from config. Tests replace it with
// offline doubles.
var newProviders = func(cfg *config.Config, log zerolog.Logger) (*providers, error) {
	policy := llm.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMS) * time.Millisecond,
	}

	completer := func(model string) (llm.Completer, error) {
		c, err := llm.NewCompleter(llm.ProviderConfig{
			Provider:    cfg.Models.Provider,
			APIKey:      cfg.APIKey(),
			BaseURL:     providerBaseURL(cfg),
			Model:       model,
			Temperature: cfg.Models.Temperature,
			MaxTokens:   cfg.Models.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return llm.WithRetry(c, policy, log.With().Str("model", model).Logger()), nil
	}

	p := &providers{}
	var err error
	if p.Planner, err = completer(cfg.Models.Planner); err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	if p.Worker, err = completer(cfg.Models.Worker); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	if p.Curator, err = completer(cfg.Models.Curator); err != nil {
		return nil, fmt.Errorf("curator: %w", err)
	}
	if p.Judge, err = completer(cfg.Models.Judge); err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}

	dimension := cfg.Models.EmbeddingDimension
	if dimension == 0 {
		dimension = llm.DefaultDimension(cfg.Models.Embedding)
	}
	embedder, err := llm.NewEmbedder(llm.ProviderConfig{
		Provider:  "openai",
		APIKey:    cfg.AI.OpenAIAPIKey,
		BaseURL:   cfg.AI.OpenAIBaseURL,
		Model:     cfg.Models.Embedding,
		Dimension: dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	p.Embedder = embedder
	if cfg.Memory.CacheSize > 0 {
		if p.Embedder, err = llm.NewCachingEmbedder(embedder, cfg.Memory.CacheSize); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func providerBaseURL(cfg *config.Config) string {
	if cfg.Models.Provider == "anthropic" {
		return ""
	}
	return cfg.AI.OpenAIBaseURL
}

// app is the wiring shared by every command.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	providers *providers

	taskBank    *memory.Store
	subtaskBank *memory.Store

	closers []func(context.Context) error
}

// setup loads config, builds logging, metrics and tracing, creates the
// provider clients and loads both memory banks. Overrides run after the
// config is loaded and before it is validated.
func setup(ctx context.Context, overrides ...func(*config.Config)) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, logCloser, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func(context.Context) error { return logCloser.Close() })

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			SampleRatio: cfg.Tracing.SampleRatio,
			Processors:  []sdktrace.SpanProcessor{tracing.NewLogProcessor(log.With().Str("component", "tracing").Logger())},
		}); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
		a.closers = append(a.closers, tracing.ShutdownOpenTelemetry)
	}

	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(cfg.Metrics.Addr); err != nil {
			a.close(ctx)
			return nil, err
		}
	}

	if a.providers, err = newProviders(cfg, log); err != nil {
		a.close(ctx)
		return nil, err
	}

	if err := a.loadBanks(); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	a.logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	a.closers = append(a.closers, srv.Shutdown)
	return nil
}

func (a *app) loadBanks() error {
	var err error
	a.taskBank, err = memory.NewStore(memory.StoreConfig{
		Name:     "task",
		Embedder: a.providers.Embedder,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	a.subtaskBank, err = memory.NewStore(memory.StoreConfig{
		Name:     "subtask",
		Embedder: a.providers.Embedder,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	if err := a.taskBank.Load(a.cfg.Memory.TaskBank); err != nil {
		return fmt.Errorf("failed to load task bank: %w", err)
	}
	if err := a.subtaskBank.Load(a.cfg.Memory.SubtaskBank); err != nil {
		return fmt.Errorf("failed to load subtask bank: %w", err)
	}

	a.logger.Info().
		Int("task_records", a.taskBank.Len()).
		Int("subtask_records", a.subtaskBank.Len()).
		Msg("Memory banks loaded")
	return nil
}

func (a *app) saveBanks() error {
	if err := a.taskBank.Save(a.cfg.Memory.TaskBank); err != nil {
		return fmt.Errorf("failed to save task bank: %w", err)
	}
	if err := a.subtaskBank.Save(a.cfg.Memory.SubtaskBank); err != nil {
		return fmt.Errorf("failed to save subtask bank: %w", err)
	}
	return nil
}

func (a *app) retriever() (*retrieval.Retriever, error) {
	return retrieval.New(retrieval.Config{
		TaskBank:    a.taskBank,
		SubtaskBank: a.subtaskBank,
		Rewriter:    a.providers.Planner,
		SubtaskK:    a.cfg.Memory.SubtaskK,
		Logger:      a.logger,
	})
}

func (a *app) curator() *curation.Curator {
	return curation.NewCurator(curation.Config{
		Completer: a.providers.Curator,
		Logger:    a.logger,
	})
}

// workerPool routes subtasks to the specialized agents, all backed by c.
func workerPool(c llm.Completer) agent.Pool {
	return agent.NewRoutedPool(agent.NewTaskAgent("general_agent", c), agent.DefaultRoutes(c)...)
}

func (a *app) runner() (*bench.Runner, error) {
	r, err := a.retriever()
	if err != nil {
		return nil, err
	}

	policy := orchestrator.SummaryWorkerOnly
	if a.cfg.Bench.SummaryPolicy == "all" {
		policy = orchestrator.SummaryAll
	}

	return bench.NewRunner(bench.Config{
		Retriever:     r,
		TaskBank:      a.taskBank,
		SubtaskBank:   a.subtaskBank,
		Planner:       a.providers.Planner,
		Workers:       workerPool(a.providers.Planner),
		SummaryPolicy: policy,
		Judge:         bench.NewJudge(a.providers.Judge),
		Curator:       a.curator(),
		Tracker: tracker.Multi(a.logger,
			tracker.NewFileTracker(a.cfg.Tracking.Dir, a.cfg.Tracking.Project),
			tracker.NewLogTracker(a.logger),
		),
		Logger: a.logger,
	})
}

// close flushes the metrics textfile and releases everything setup opened,
// in reverse order.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.cfg != nil && a.cfg.Metrics.Textfile != "" {
		if err := observability.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp runs fn with a fully wired app and always closes it.
func withApp(ctx context.Context, fn func(*app) error, overrides ...func(*config.Config)) (err error) {
	a, err := setup(ctx, overrides...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.close(ctx))
	}()
	return fn(a)
}
