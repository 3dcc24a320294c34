package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/obslab/server/internal/controller"
	"github.com/obslab/server/internal/media"
	"github.com/obslab/server/internal/media/sim"
	"github.com/obslab/server/internal/repository/inmemory/conn"
	"github.com/obslab/server/internal/repository/redis"
	"github.com/obslab/server/internal/service/session"
	"github.com/obslab/server/internal/transport"
	"github.com/obslab/server/pkg/ctxlogger"
	"github.com/obslab/server/pkg/redisclient"
)

type AppConfig struct {
	Secret        string        `json:"-"`
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	CodersLimit   int           `json:"coders_limit"`
	TracksLimit   int           `json:"tracks_limit"`
	RulerWidth    int           `json:"ruler_width"`
	SessionTTL    time.Duration `json:"session_ttl"`
	LogLevel      string        `json:"log_level"`
	RedisPort     int           `json:"redis_port"`
	RedisHost     string        `json:"redis_host"`
	RedisPassword string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.CodersLimit < 1 {
		return fmt.Errorf("coders limit must be greater than 0")
	}
	if cfg.TracksLimit < 1 {
		return fmt.Errorf("tracks limit must be greater than 0")
	}
	if cfg.RulerWidth < 1 {
		return fmt.Errorf("ruler width must be greater than 0")
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	registry, err := media.NewRegistry(sim.Plugin())
	if err != nil {
		return fmt.Errorf("failed to build media registry: %w", err)
	}

	sessionRepo := redis.NewRepo(rc, logger, cfg.SessionTTL)
	connRepo := conn.NewRepo()
	sessionService := session.NewService(
		sessionRepo,
		connRepo,
		registry,
		func(logger *slog.Logger) transport.AudioSink { return sim.NewSink(logger) },
		logger,
		cfg.Secret,
		cfg.CodersLimit,
		cfg.TracksLimit,
		cfg.RulerWidth,
	)
	controller := controller.NewController(sessionService, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
