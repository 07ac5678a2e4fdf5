package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/microscanai/microscan/internal/chat"
	"github.com/microscanai/microscan/internal/config"
	"github.com/microscanai/microscan/internal/conversation/flow"
	"github.com/microscanai/microscan/internal/handlers"
	"github.com/microscanai/microscan/internal/healthcheck"
	openaichecker "github.com/microscanai/microscan/internal/healthcheck/checkers/openai"
	storechecker "github.com/microscanai/microscan/internal/healthcheck/checkers/store"
	"github.com/microscanai/microscan/internal/logger"
	"github.com/microscanai/microscan/internal/media"
	"github.com/microscanai/microscan/internal/quota"
	"github.com/microscanai/microscan/internal/server"
	"github.com/microscanai/microscan/internal/store"
	"github.com/microscanai/microscan/internal/store/memory"
	mongostore "github.com/microscanai/microscan/internal/store/mongo"
	"github.com/microscanai/microscan/internal/store/postgres"
)

func runServe() {
	fx.New(
		fx.Provide(
			loadConfig,
			provideLogger,
			provideStore,
			provideMediaFetcher,
			provideCompletionProvider,
			provideChatResolver,
			provideHealthChecker,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewChatHandler),
			provideServerHandler(handlers.NewConversationsHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (store.Store, error) {
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	log.Info("store ready", slog.String("driver", cfg.Store.Driver))
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return st.Close(ctx) }})
	return st, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "postgres", "":
		pool, err := postgres.Open(ctx, cfg.Postgres.ConnString())
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		return postgres.New(pool), nil
	case "mongo", "mongodb":
		client, err := mongostore.Open(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		st := mongostore.New(client, cfg.Mongo.Database)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return st, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func provideMediaFetcher(log *slog.Logger, cfg config.Config) *media.Fetcher {
	return media.NewFetcher(log, media.FetcherConfig{
		Timeout:  cfg.Media.FetchTimeout(),
		MaxBytes: cfg.Media.MaxBytes,
	})
}

func provideCompletionProvider(log *slog.Logger, cfg config.Config) chat.Provider {
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		log.Warn("openai api key is not configured; completions will fail")
	}
	return chat.NewOpenAIProvider(log, chat.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout(),
	})
}

func provideChatResolver(log *slog.Logger, cfg config.Config, st store.Store, fetcher *media.Fetcher, provider chat.Provider) (flow.Runner, error) {
	prompt, err := chat.LoadSystemPrompt(cfg.Chat.SystemPrompt, cfg.Chat.SystemPromptFile)
	if err != nil {
		return nil, fmt.Errorf("system prompt: %w", err)
	}
	return flow.NewResolver(log, st, fetcher, provider, flow.Options{
		Instructions:    prompt,
		Effort:          cfg.OpenAI.ReasoningEffort,
		MaxOutputTokens: cfg.OpenAI.MaxOutputTokens,
		DailyScanLimit:  quota.DailyScanLimit,
	}), nil
}

func provideHealthChecker(log *slog.Logger, cfg config.Config, st store.Store) healthcheck.Checker {
	return healthcheck.NewMultiChecker(
		storechecker.NewChecker(log, st, cfg.Store.Driver),
		openaichecker.NewChecker(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
	)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
				return errors.New("auth.jwt_secret is required")
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
