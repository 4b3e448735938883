// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator wires configuration, the LLM backend, the analysis
// client, the explorer and the HTTP surface into one service.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/proofgraph/pkg/config"
	"github.com/AleutianAI/proofgraph/services/llm"
	"github.com/AleutianAI/proofgraph/services/orchestrator/handlers"
	"github.com/AleutianAI/proofgraph/services/orchestrator/middleware"
	"github.com/AleutianAI/proofgraph/services/orchestrator/observability"
	"github.com/AleutianAI/proofgraph/services/orchestrator/routes"
	"github.com/AleutianAI/proofgraph/services/policy_engine"
	"github.com/AleutianAI/proofgraph/services/prover/analysis"
	"github.com/AleutianAI/proofgraph/services/prover/explorer"
	"github.com/AleutianAI/proofgraph/services/storage/badger"
	"github.com/AleutianAI/proofgraph/services/telemetry"
)

// Service is the running proof graph server.
type Service interface {
	// Run serves until ctx is cancelled, then shuts down gracefully.
	Run(ctx context.Context) error

	Router() *gin.Engine

	// Controller exposes the explorer for in-process callers such as the CLI.
	Controller() *explorer.Controller

	// Screen applies the configured statement screen. It returns nil when
	// screening is disabled.
	Screen(statement string) error

	Close() error
}

// Option customizes New.
type Option func(*service)

// WithLLMClient skips backend construction and uses client instead.
func WithLLMClient(client llm.LLMClient) Option {
	return func(s *service) { s.llmClient = client }
}

// WithRegistry registers metrics with reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *service) { s.registry = reg }
}

// WithTracing installs the tracer provider described by the config.
// Off by default so that library users and tests keep the no-op tracer.
func WithTracing() Option {
	return func(s *service) { s.tracing = true }
}

type service struct {
	config     config.Config
	logger     *slog.Logger
	router     *gin.Engine
	llmClient  llm.LLMClient
	analyzer   *analysis.Client
	controller *explorer.Controller
	registry   *prometheus.Registry
	metrics    *observability.Metrics
	cacheStore *badger.Store
	screener   handlers.Screener
	tracing    bool
	shutdown   telemetry.ShutdownFunc
}

// New builds the service from cfg. The caller owns the returned Service and
// must Close it (Run closes it on return).
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	if s.tracing {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Exporter:     cfg.Telemetry.TraceExporter,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.shutdown = shutdown
	}

	if cfg.Telemetry.MetricsEnabled {
		if s.registry == nil {
			s.registry = prometheus.NewRegistry()
			s.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
		s.metrics = observability.NewMetrics(s.registry)
	}

	if err := s.initLLMClient(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if err := s.initAnalysis(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize analysis cache: %w", err)
	}
	s.initController()
	if err := s.initScreening(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize statement screen: %w", err)
	}
	s.initRouter()
	return s, nil
}

func (s *service) initLLMClient(ctx context.Context) error {
	if s.llmClient != nil {
		return nil
	}
	c := s.config.LLM
	client, err := llm.New(ctx, llm.Options{
		Backend: c.Backend,
		Model:   c.Model,
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Timeout: c.Timeout,
	})
	if err != nil {
		return err
	}
	s.logger.Info("LLM backend ready", "backend", c.Backend, "model", c.Model)
	s.llmClient = client
	return nil
}

func (s *service) initAnalysis() error {
	a := s.config.Analysis
	temp := s.config.LLM.Temperature
	maxTokens := s.config.LLM.MaxTokens
	params := llm.GenerationParams{Temperature: &temp}
	if maxTokens > 0 {
		params.MaxTokens = &maxTokens
	}
	opts := []analysis.Option{
		analysis.WithRetry(analysis.RetryConfig{MaxAttempts: a.MaxAttempts, BaseDelay: a.BaseDelay}),
		analysis.WithRateLimit(a.RequestsPerSecond, a.Burst),
		analysis.WithGenerationParams(params),
		analysis.WithLogger(s.logger.With("component", "analysis")),
	}
	if s.metrics != nil {
		opts = append(opts, analysis.WithRecorder(s.metrics))
	}

	if c := s.config.Cache; c.Enabled {
		bcfg := badger.DefaultConfig(c.Path)
		if c.InMemory {
			bcfg = badger.InMemoryConfig()
		}
		bcfg.Logger = s.logger.With("component", "badger")
		store, err := badger.Open(bcfg)
		if err != nil {
			return err
		}
		s.cacheStore = store
		opts = append(opts, analysis.WithCache(analysis.NewStoreCache(store, c.TTL, s.logger)))
		s.logger.Info("analysis cache enabled", "path", c.Path, "in_memory", c.InMemory, "ttl", c.TTL)
	}

	s.analyzer = analysis.NewClient(s.llmClient, opts...)
	return nil
}

func (s *service) initController() {
	e := s.config.Exploration
	opts := []explorer.Option{
		explorer.WithPolicy(explorer.Policy{
			MaxDepth:       e.MaxDepth,
			MaxBatches:     e.MaxBatches,
			PacingDelay:    e.PacingDelay,
			MaxConcurrency: e.MaxConcurrency,
		}),
		explorer.WithLogger(s.logger.With("component", "explorer")),
	}
	if s.metrics != nil {
		opts = append(opts, explorer.WithRecorder(s.metrics))
	}
	s.controller = explorer.NewController(s.analyzer, opts...)
}

func (s *service) initScreening() error {
	c := s.config.Screening
	if !c.Enabled {
		return nil
	}
	minConf, err := policy_engine.ParseConfidence(c.MinConfidence)
	if err != nil {
		return err
	}
	engine, err := policy_engine.NewPolicyEngine(minConf)
	if err != nil {
		return err
	}
	s.screener = engine
	s.logger.Info("statement screening enabled", "min_confidence", minConf)
	return nil
}

func (s *service) initRouter() {
	gin.SetMode(s.config.Server.GinMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(otelgin.Middleware(s.config.Telemetry.ServiceName))
	s.router.Use(middleware.CORS(s.config.Server.AllowedOrigins))

	deps := routes.Deps{
		Runner: s.controller,
		WebSocket: handlers.WebSocketConfig{
			AllowedOrigins:    s.config.Server.AllowedOrigins,
			WriteTimeout:      s.config.Server.WriteTimeout,
			MaxStatementBytes: s.config.Server.MaxStatementBytes,
			Screener:          s.screener,
		},
		Metrics: s.metrics,
		Logger:  s.logger.With("component", "http"),
	}
	if s.registry != nil {
		deps.Gatherer = s.registry
	}
	routes.SetupRoutes(s.router, deps)
}

func (s *service) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting proof graph server", "port", s.config.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down proof graph server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *service) Router() *gin.Engine {
	return s.router
}

func (s *service) Controller() *explorer.Controller {
	return s.controller
}

// Screen applies the statement screen when one is configured.
func (s *service) Screen(statement string) error {
	if s.screener == nil {
		return nil
	}
	return s.screener.Screen(statement)
}

// Close releases the cache and flushes traces. Safe to call more than once.
func (s *service) Close() error {
	var errs []error
	if s.cacheStore != nil {
		if err := s.cacheStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
		s.cacheStore = nil
	}
	if s.shutdown != nil {
		if err := s.shutdown(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
		s.shutdown = nil
	}
	return errors.Join(errs...)
}

var _ Service = (*service)(nil)
