package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/config"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/db"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/logging"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/notify"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/server"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	connectBackends func(context.Context, config.Config, zerolog.Logger) (server.Backends, func())
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, server.Backends, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		connectBackends: connectBackends,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	log := logging.New(cfg.LogLevel)

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Error().Err(err).Msg("postgres connection failed")
	}

	rdb := deps.connectRedis(cfg)

	backends, closeBackends := deps.connectBackends(context.Background(), cfg, log)
	defer closeBackends()

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, backends, signals, nil); err != nil {
		log.Error().Err(err).Msg("server exited with error")
	}
}

// connectBackends dials the optional broker and object store. Failures are logged
// and leave the feature disabled.
func connectBackends(ctx context.Context, cfg config.Config, log zerolog.Logger) (server.Backends, func()) {
	var (
		b       server.Backends
		closers []func() error
	)
	if cfg.AMQPURL != "" {
		broker, err := notify.DialAMQP(cfg.AMQPURL, cfg.NotifyExchange)
		if err != nil {
			log.Warn().Err(err).Msg("amqp unavailable, notifications stay in-process")
		} else {
			b.Broker = broker
			closers = append(closers, broker.Close)
		}
	}
	client, err := storage.ConnectMinio(ctx, cfg)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("minio unavailable, evidence uploads disabled")
	case client != nil:
		b.Presigner = client
	}
	return b, func() {
		for _, c := range closers {
			_ = c()
		}
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, backends server.Backends, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb, logging.New(cfg.LogLevel), backends)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	_ = srv.Stream.Close()
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
