package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v2"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/dmarkhas/tinylink/internal/api/http"
	"github.com/dmarkhas/tinylink/internal/config"
	"github.com/dmarkhas/tinylink/internal/database"
	filestore "github.com/dmarkhas/tinylink/internal/database/file"
	pgstore "github.com/dmarkhas/tinylink/internal/database/postgres"
	"github.com/dmarkhas/tinylink/internal/service"
	"github.com/dmarkhas/tinylink/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("application error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	logger := httplog.NewLogger("tinylink", httplog.Options{
		LogLevel: logLevel(cfg.Env),
		JSON:     cfg.Env == config.EnvProd,
		Concise:  cfg.Env != config.EnvProd,
	})

	g, ctx := errgroup.WithContext(ctx)

	db, err := postgres.New(ctx, cfg.Postgres.DSN(), postgres.Pool{
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
	})
	if err != nil {
		// The server still starts: the fallback store carries requests until
		// the connection manager brings the primary back.
		logger.Warn("primary store unavailable at startup", slog.Any("err", err))
	}

	monitor := database.NewMonitor(logger.Logger)

	if db != nil {
		if err := postgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
			return err
		}
		monitor.MarkUp()

		manager := pgstore.NewManager(db, monitor, logger.Logger)
		g.Go(func() error {
			err := manager.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	fallback, err := filestore.NewStore(cfg.Fallback.Path)
	if err != nil {
		return err
	}

	var primary database.Store
	if db != nil {
		primary = pgstore.NewStore(db, cfg.Postgres.QueryTimeout)
	} else {
		primary = fallback
	}

	stores := database.NewSelector(primary, fallback, monitor)
	svc := service.New(stores, logger.Logger, cfg.BaseURL, cfg.ShortCode.MinLength, cfg.ShortCode.MaxAttempts)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        myhttp.NewRouter(logger, svc),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		logger.Info("server started",
			slog.String("addr", server.Addr),
			slog.String("env", cfg.Env),
			slog.String("base_url", cfg.BaseURL),
		)

		var err error
		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return err
		}

		// Drain detached statistics writes before the stores go away.
		svc.Wait()
		return nil
	})

	err = g.Wait()

	// The pool closes only after the shutdown goroutine has drained the
	// in-flight statistics writes.
	if db != nil {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}

func logLevel(env string) slog.Level {
	if env == config.EnvProd {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
