package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	genesisconfig "beanchain/config"
	"beanchain/core"
	"beanchain/history"
	"beanchain/observability/logging"
	telemetry "beanchain/observability/otel"
	"beanchain/oracle"
	oraclestorage "beanchain/oracle/storage"
	"beanchain/services/beand/config"
	"beanchain/services/beand/keeper"
	"beanchain/services/beand/middleware"
	"beanchain/services/beand/server"
	"beanchain/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/beand/config.yaml", "path to beand configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("beand: load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("BEAN_ENV"))
	var logger *slog.Logger
	if strings.TrimSpace(cfg.Log.Path) != "" {
		var closer io.Closer
		logger, closer = logging.SetupWithFile("beand", env, cfg.Log)
		defer closer.Close()
	} else {
		logger = logging.Setup("beand", env)
	}

	if tcfg := telemetry.ConfigFromEnv("beand", env); tcfg.Enabled() {
		shutdownTelemetry, err := telemetry.Init(context.Background(), tcfg)
		if err != nil {
			log.Fatalf("beand: init telemetry: %v", err)
		}
		defer func() { _ = shutdownTelemetry(context.Background()) }()
	}

	genesis, err := genesisconfig.LoadGenesis(cfg.Genesis)
	if err != nil {
		log.Fatalf("beand: load genesis: %v", err)
	}

	db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		log.Fatalf("beand: open ledger storage: %v", err)
	}
	feed := oracle.NewFeed(cfg.Oracle.FeedMaxAge.Duration)
	node, err := core.NewNode(db, core.Options{Logger: logger, Feed: feed})
	if err != nil {
		log.Fatalf("beand: node: %v", err)
	}
	defer node.Close()
	if err := node.Configure(genesis); err != nil {
		log.Fatalf("beand: configure: %v", err)
	}
	if err := node.InitGenesis(genesis); err != nil {
		log.Fatalf("beand: genesis: %v", err)
	}

	hist, err := history.Open(cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		log.Fatalf("beand: open history: %v", err)
	}
	defer hist.Close()
	node.SetReportSink(hist)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(cfg.Oracle.Sources) > 0 {
		mgr, closeOracle := buildOracle(cfg, feed, logger)
		defer closeOracle()
		go func() {
			if err := mgr.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("oracle manager exited", "error", err)
				stop()
			}
		}()
	} else {
		logger.Warn("no oracle sources configured; genesis seed prices only")
	}

	if cfg.Keeper.Enabled {
		caller, _ := cfg.KeeperAddress()
		k, err := keeper.New(node, caller, cfg.Keeper.Schedule, logger.With("component", "keeper"))
		if err != nil {
			log.Fatalf("beand: keeper: %v", err)
		}
		go func() { _ = k.Run(rootCtx) }()
	}

	srv, err := server.New(server.Config{
		ListenAddress: cfg.ListenAddress,
		Auth: middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ScopeClaim: cfg.Auth.ScopeClaim,
			ClockSkew:  cfg.Auth.ClockSkew.Duration,
		},
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		CORS: middleware.CORSConfig{AllowedOrigins: cfg.CORS.AllowedOrigins},
	}, node, hist, logger.With("component", "http"))
	if err != nil {
		log.Fatalf("beand: server: %v", err)
	}

	if err := srv.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}
}

func buildOracle(cfg config.Config, feed *oracle.Feed, logger *slog.Logger) (*oracle.Manager, func()) {
	dsn, err := oraclestorage.FileDSN(cfg.Oracle.Database)
	if err != nil {
		log.Fatalf("beand: resolve oracle storage DSN: %v", err)
	}
	store, err := oraclestorage.Open(dsn)
	if err != nil {
		log.Fatalf("beand: open oracle storage: %v", err)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	sources := make([]oracle.Source, 0, len(cfg.Oracle.Sources))
	for _, src := range cfg.Oracle.Sources {
		built, err := oracle.BuildSource(client, oracle.SourceConfig{
			Name:     src.Name,
			Type:     src.Type,
			Endpoint: src.Endpoint,
			Assets:   src.Assets,
		})
		if err != nil {
			log.Fatalf("beand: build source %s: %v", src.Name, err)
		}
		sources = append(sources, built)
	}
	mgr, err := oracle.NewManager(feed, sources, cfg.Oracle.Tokens,
		cfg.Oracle.Interval.Duration, cfg.Oracle.MaxAge.Duration, cfg.Oracle.MinFeeds,
		oracle.WithLogger(logger.With("component", "oracle")),
		oracle.WithRecorder(store),
	)
	if err != nil {
		log.Fatalf("beand: oracle manager: %v", err)
	}
	return mgr, func() { _ = store.Close() }
}
