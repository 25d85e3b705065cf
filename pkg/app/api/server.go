// Package api implements app.Runner for the pool API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/poolparty/pool-backend/pkg/app/http"
	"github.com/poolparty/pool-backend/pkg/auth"
	"github.com/poolparty/pool-backend/pkg/chain"
	"github.com/poolparty/pool-backend/pkg/config"
	"github.com/poolparty/pool-backend/pkg/pgutil"
	poolservice "github.com/poolparty/pool-backend/pkg/pool/service"
	"github.com/poolparty/pool-backend/pkg/poolstore"
	reconcilerpkg "github.com/poolparty/pool-backend/pkg/reconciler"
	"github.com/poolparty/pool-backend/pkg/subgraph"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pool API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	registry, err := chain.NewRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect chains: %w", err)
	}
	defer registry.Close()

	store := poolstore.NewStore(db)

	contracts := make(map[int64]reconcilerpkg.ContractReader, len(cfg.Chains))
	subgraphs := make(map[int64]reconcilerpkg.SubgraphReader, len(cfg.Chains))
	for _, chainCfg := range cfg.Chains {
		if client := registry.Client(chainCfg.ChainID); client != nil && client.HasPoolContract() {
			contracts[chainCfg.ChainID] = client
		}
		if sg := subgraph.New(chainCfg.SubgraphURL, cfg.Subgraph.RequestTimeout, cfg.Subgraph.MaxLag, logger); sg != nil {
			subgraphs[chainCfg.ChainID] = sg
		}
	}

	views := reconcilerpkg.New(store, contracts, subgraphs, reconcilerpkg.NewCache(cfg.Cache.TTL), logger)

	svc := poolservice.NewService(store, chainProvider{registry}, views, cfg, logger)

	validator := auth.NewJWTValidator(cfg.Auth)

	router := s.setupRouter(svc, validator, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

// chainProvider adapts the concrete registry to the service's client
// interface without handing out typed nils.
type chainProvider struct {
	registry *chain.Registry
}

func (p chainProvider) Client(chainID int64) poolservice.ChainClient {
	client := p.registry.Client(chainID)
	if client == nil {
		return nil
	}
	return client
}

func (s *Server) setupRouter(svc *poolservice.Service, validator *auth.JWTValidator, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))
	r.Use(auth.Middleware(validator, logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	poolservice.NewHandler(svc, logger).RegisterRoutes(r)

	return r
}
