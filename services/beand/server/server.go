package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"beanchain/core"
	"beanchain/history"
	"beanchain/services/beand/middleware"
)

// History serves stored season reports.
type History interface {
	Get(ctx context.Context, season uint64) (*history.SeasonRecord, error)
	Latest(ctx context.Context, limit int) ([]history.SeasonRecord, error)
}

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
	Auth          middleware.AuthConfig
	RateLimit     middleware.RateLimit
	CORS          middleware.CORSConfig
}

// Server exposes the ledger over HTTP and a websocket event stream.
type Server struct {
	cfg     Config
	node    *core.Node
	history History
	logger  *slog.Logger
	auth    *middleware.Authenticator
	limiter *middleware.RateLimiter
	obs     *middleware.Observability
}

// New constructs the server. hist may be nil when no history store is
// configured.
func New(cfg Config, node *core.Node, hist History, logger *slog.Logger) (*Server, error) {
	if node == nil {
		return nil, fmt.Errorf("node required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	return &Server{
		cfg:     cfg,
		node:    node,
		history: hist,
		logger:  logger,
		auth:    middleware.NewAuthenticator(cfg.Auth, logger),
		limiter: middleware.NewRateLimiter(cfg.RateLimit),
		obs:     middleware.NewObservability(logger),
	}, nil
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(s.cfg.CORS))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.Middleware("v1"))

		v1.With(s.obs.Middleware("events")).Get("/events", s.handleEvents)

		v1.Group(func(read chi.Router) {
			read.Use(s.obs.Middleware("read"))
			read.Get("/query/{namespace}/*", s.handleQuery)
			read.Get("/accounts/{address}", s.handleAccount)
			read.Get("/accounts/{address}/deposits/{token}", s.handleDeposits)
			read.Get("/accounts/{address}/balances/{token}", s.handleBalance)
			read.Get("/accounts/{address}/plots", s.handlePlots)
			read.Get("/silo/assets", s.handleAssets)
			read.Get("/silo/totals", s.handleTotals)
			read.Get("/season/status", s.handleSeasonStatus)
			read.Get("/season/weather", s.handleWeather)
			read.Get("/season/history", s.handleHistory)
			read.Get("/season/history/{season}", s.handleHistoryEntry)
			read.Get("/field/status", s.handleFieldStatus)
			read.Get("/wells", s.handlePools)
			read.Get("/oracle/prices", s.handlePrices)
		})

		v1.Group(func(write chi.Router) {
			write.Use(s.obs.Middleware("silo"))
			write.Use(s.auth.Middleware(middleware.ScopeSiloWrite))
			write.Post("/silo/deposit", s.handleDeposit)
			write.Post("/silo/withdraw", s.handleWithdraw)
			write.Post("/silo/transfer", s.handleTransferDeposit)
			write.Post("/silo/approve", s.handleApprove)
			write.Post("/silo/mow", s.handleMow)
			write.Post("/silo/plant", s.handlePlant)
			write.Post("/silo/claim-plenty", s.handleClaimPlenty)
			write.Post("/convert", s.handleConvert)
			write.Post("/field/sow", s.handleSow)
			write.Post("/field/harvest", s.handleHarvest)
			write.Post("/wells/swap", s.handleSwap)
			write.Post("/transfer", s.handleTransfer)
		})

		v1.Group(func(admin chi.Router) {
			admin.Use(s.obs.Middleware("season"))
			admin.Use(s.auth.Middleware(middleware.ScopeSeasonAdmin))
			admin.Post("/season/sunrise", s.handleSunrise)
			admin.Post("/admin/pause", s.handlePause)
			admin.Post("/admin/oracle-override", s.handleOracleOverride)
			admin.Post("/admin/faucet", s.handleFaucet)
		})
	})
	return otelhttp.NewHandler(r, "beand")
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go s.sweepLimiter(ctx)

	s.logger.Info("http server listening", "addr", s.cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Sweep(10 * time.Minute)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.node.SeasonStatus()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "season": status.Current})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
