package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-chi/cors"

	_ "github.com/jackzampolin/lumina/docs" // registers the OpenAPI document
	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/auth"
	"github.com/jackzampolin/lumina/internal/chapters"
	"github.com/jackzampolin/lumina/internal/config"
	"github.com/jackzampolin/lumina/internal/events"
	"github.com/jackzampolin/lumina/internal/home"
	"github.com/jackzampolin/lumina/internal/llmcall"
	"github.com/jackzampolin/lumina/internal/pdftext"
	"github.com/jackzampolin/lumina/internal/pipeline"
	"github.com/jackzampolin/lumina/internal/providers"
	"github.com/jackzampolin/lumina/internal/server/endpoints"
	"github.com/jackzampolin/lumina/internal/store"
	"github.com/jackzampolin/lumina/internal/store/badger"
	"github.com/jackzampolin/lumina/internal/store/sqlite"
	"github.com/jackzampolin/lumina/internal/svcctx"
	"github.com/jackzampolin/lumina/internal/validation"
)

const (
	heartbeatInterval = 30 * time.Second
	sweepInterval     = time.Minute

	// localBackendWait bounds the startup wait for Ollama or Kokoro.
	localBackendWait = 10 * time.Second

	// llmCallHistory is how many recent LLM calls are kept for /api/llmcalls.
	llmCallHistory = 500
)

// Server is the main Lumina HTTP server.
// It owns the book store and the chapter pipeline, opening them on start and
// closing them on shutdown.
type Server struct {
	httpServer *http.Server
	cfg        Config
	registry   *providers.Registry
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	// background stops the heartbeat and session sweeper
	background context.CancelFunc

	// Components that follow config reloads
	segmenter    *chapters.Segmenter
	translator   *chapters.Translator
	orchestrator *pipeline.Orchestrator

	mu          sync.RWMutex
	running     bool
	initialized bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the lumina home directory holding the database and audio
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger

	// Store replaces the configured book store when set.
	Store store.BookStore
	// Registry replaces the config-driven provider registry when set.
	Registry *providers.Registry
	// Extractor replaces the PDF text extractor when set.
	Extractor pipeline.TextExtractor
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("server requires a config manager")
	}
	if cfg.Home == nil {
		return nil, errors.New("server requires a home directory")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		// Create provider registry and follow config changes
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	s := &Server{
		cfg:       cfg,
		registry:  registry,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	origins := cfg.ConfigManager.Get().Server.CORSOrigins

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{AllowedOrigins: origins}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit, s.requireSession)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Range"},
		ExposedHeaders:   []string{"Accept-Ranges", "Content-Length", "Content-Range", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      corsHandler(s.withServices(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Initialize opens the book store and builds the pipeline. Start calls it;
// tests call it directly and serve Handler through httptest.
func (s *Server) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	cfg := s.configMgr.Get()

	if err := s.cfg.Home.EnsureExists(); err != nil {
		return err
	}

	bookStore := s.cfg.Store
	if bookStore == nil {
		var err error
		if bookStore, err = openStore(ctx, cfg.Store, s.cfg.Home, s.logger); err != nil {
			return err
		}
	}

	s.waitLocalBackends(ctx, cfg)

	recorder := llmcall.NewRecorder(s.logger, llmCallHistory)
	llm := &providers.RoutedLLM{
		Registry: s.registry,
		Pick:     func() string { return s.configMgr.Get().Defaults.LLMProvider },
	}
	tts := &providers.RoutedTTS{
		Registry: s.registry,
		Pick:     func() string { return s.configMgr.Get().Defaults.TTSProvider },
	}

	temperature := cfg.Defaults.Temperature
	llmCfg := chapters.Config{
		LLM:             llm,
		MaxContextChars: cfg.Defaults.MaxContextChars,
		Temperature:     &temperature,
		Recorder:        recorder,
		Logger:          s.logger,
	}
	segmenter, err := chapters.NewSegmenter(llmCfg)
	if err != nil {
		bookStore.Close()
		return err
	}
	translator, err := chapters.NewTranslator(llmCfg)
	if err != nil {
		bookStore.Close()
		return err
	}

	extractor := s.cfg.Extractor
	if extractor == nil {
		extractor = pdftext.NewExtractor(s.logger)
	}

	broker := events.NewBroker(s.logger)

	orchestrator, err := pipeline.New(pipeline.Config{
		Store:           bookStore,
		Home:            s.cfg.Home,
		Extractor:       extractor,
		Segmenter:       segmenter,
		Translator:      translator,
		TTS:             tts,
		Events:          broker,
		Logger:          s.logger,
		MaxChunkChars:   cfg.Defaults.MaxChunkChars,
		SampleRate:      cfg.Defaults.SampleRate,
		Channels:        cfg.Defaults.Channels,
		DefaultVoice:    cfg.Defaults.Voice,
		DefaultLanguage: cfg.Defaults.TargetLanguage,
	})
	if err != nil {
		bookStore.Close()
		return err
	}

	authSvc, err := auth.NewService(auth.Config{
		TokenKey:     config.ResolveEnvVars(cfg.Auth.TokenKey),
		SessionTTL:   cfg.Auth.SessionTTL,
		GuestEnabled: cfg.Auth.GuestEnabled,
		Logger:       s.logger,

		IdentityIssuer:   cfg.Auth.IdentityIssuer,
		IdentityClientID: cfg.Auth.IdentityClientID,
	})
	if err != nil {
		orchestrator.Close()
		bookStore.Close()
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	if !authSvc.VerifiesIdentity() && !isLoopback(s.cfg.Host) {
		s.logger.Warn("identity tokens are accepted unverified on a non-loopback address, set auth.identity_issuer",
			"host", s.cfg.Host)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	go broker.Heartbeat(bgCtx, heartbeatInterval)
	go authSvc.RunSweeper(bgCtx, sweepInterval)
	s.background = cancel

	s.services = &svcctx.Services{
		Store:        bookStore,
		Registry:     s.registry,
		Orchestrator: orchestrator,
		Auth:         authSvc,
		Events:       broker,
		Home:         s.cfg.Home,
		Config:       s.configMgr,
		Validator:    validation.New(),
		LLMCalls:     recorder,
		Logger:       s.logger,
	}
	s.segmenter = segmenter
	s.translator = translator
	s.orchestrator = orchestrator
	s.configMgr.OnChange(s.applyConfig)
	s.initialized = true

	s.logger.Info("services initialized",
		"store", cfg.Store.Driver,
		"llm_provider", cfg.Defaults.LLMProvider,
		"tts_provider", cfg.Defaults.TTSProvider,
		"home", s.cfg.Home.Path())
	return nil
}

// isLoopback reports whether host only accepts local connections.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// applyConfig pushes reloaded pipeline defaults into the live components.
// Runs already in flight keep their settings.
func (s *Server) applyConfig(cfg *config.Config) {
	s.mu.RLock()
	segmenter, translator, orchestrator := s.segmenter, s.translator, s.orchestrator
	s.mu.RUnlock()
	if orchestrator == nil {
		return
	}

	d := cfg.Defaults
	segmenter.SetMaxContextChars(d.MaxContextChars)
	segmenter.SetTemperature(d.Temperature)
	translator.SetMaxContextChars(d.MaxContextChars)
	translator.SetTemperature(d.Temperature)
	orchestrator.Reconfigure(pipeline.Settings{
		MaxChunkChars:   d.MaxChunkChars,
		SampleRate:      d.SampleRate,
		Channels:        d.Channels,
		DefaultVoice:    d.Voice,
		DefaultLanguage: d.TargetLanguage,
	})
	s.logger.Info("pipeline settings reloaded from config",
		"max_chunk_chars", d.MaxChunkChars,
		"max_context_chars", d.MaxContextChars,
		"voice", d.Voice,
		"target_language", d.TargetLanguage)
}

// Start initializes services and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Initialize(ctx); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops HTTP first so no new runs start, then the pipeline, then
// the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.Close()
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close releases the services opened by Initialize. In-flight chapter runs
// are cancelled and recorded as failed.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}

	s.background()
	s.services.Orchestrator.Close()
	s.services.Events.Close()
	if err := s.services.Store.Close(); err != nil {
		s.logger.Error("book store close error", "error", err)
	}
	s.initialized = false
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Services returns the initialized services, or nil before Initialize.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil
	}
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services := s.Services(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the store and pipeline are ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcctx.ServicesFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}

// requireSession is middleware that resolves the session token from the
// Authorization header, or the token query parameter for websockets.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}

		authSvc := svcctx.AuthFrom(r.Context())
		if authSvc == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"auth not initialized"}`))
			return
		}

		sess, err := authSvc.Authenticate(token)
		if err != nil {
			s.logger.Debug("rejected session token", "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid or expired session"}`))
			return
		}

		next(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return r.URL.Query().Get("token")
}

// openStore opens the configured book store. Opening is retried briefly
// since a previous process may still hold the database lock.
func openStore(ctx context.Context, cfg config.StoreCfg, h *home.Dir, logger *slog.Logger) (store.BookStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	var open func() (store.BookStore, error)
	switch driver {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(h.DataPath(), "books.db")
		}
		open = func() (store.BookStore, error) { return sqlite.Open(path, logger) }
	case "badger":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(h.DataPath(), "badger")
		}
		open = func() (store.BookStore, error) { return badger.Open(path, logger) }
	case "memory":
		logger.Warn("using in-memory book store, books are lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	var bookStore store.BookStore
	err := retry.Do(
		func() error {
			s, err := open()
			if err != nil {
				return err
			}
			bookStore = s
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("book store open failed, retrying", "driver", driver, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s book store: %w", driver, err)
	}
	logger.Info("book store opened", "driver", driver)
	return bookStore, nil
}

// waitLocalBackends waits for enabled local providers (Ollama, Kokoro) to
// answer. A backend that stays down is logged; its calls fail later.
func (s *Server) waitLocalBackends(ctx context.Context, cfg *config.Config) {
	urls := make(map[string]string)
	for name, p := range cfg.EnabledLLMProviders() {
		if providers.IsLocalType(p.Type) && p.BaseURL != "" {
			urls[name] = p.BaseURL
		}
	}
	for name, p := range cfg.EnabledTTSProviders() {
		if providers.IsLocalType(p.Type) && p.BaseURL != "" {
			urls[name] = p.BaseURL
		}
	}

	for name, url := range urls {
		if err := providers.WaitReachable(ctx, url, localBackendWait); err != nil {
			s.logger.Warn("local provider not reachable", "provider", name, "url", url, "error", err)
			continue
		}
		s.logger.Info("local provider reachable", "provider", name, "url", url)
	}
}
