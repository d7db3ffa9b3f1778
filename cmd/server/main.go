package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-entitlement-auth/clients"
	"github.com/jrsteele09/go-entitlement-auth/internal/config"
	"github.com/jrsteele09/go-entitlement-auth/server"
	"github.com/jrsteele09/go-entitlement-auth/storage/postgres"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	app := &cli.App{
		Name:  "entitlement-auth",
		Usage: "OAuth2 authorization server, SoloSuccess SSO bridge and entitlement sync",
		Before: func(*cli.Context) error {
			return config.LoadEnvFile()
		},
		Commands: []*cli.Command{
			serveCommand,
			syncAllCommand,
			createClientCommand,
			migrateCommand,
			addCourseCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "apply the database schema before serving",
		},
	},
	Action: func(c *cli.Context) error {
		return run(c.Context, c.Bool("migrate"))
	},
}

var syncAllCommand = &cli.Command{
	Name:  "sync-all",
	Usage: "re-apply every active integration's tier once and exit",
	Action: func(c *cli.Context) error {
		cfg := config.New()
		logger := newLogger(cfg)

		st, err := openStores(c.Context, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		services, err := buildServices(cfg, st, logger)
		if err != nil {
			return err
		}
		result, err := services.Reconciler.SyncAll(c.Context)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var createClientCommand = &cli.Command{
	Name:  "create-client",
	Usage: "register an OAuth client and print its one-time secret",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Required: true},
		&cli.StringFlag{Name: "redirect-uri", Required: true},
		&cli.StringFlag{Name: "webhook-url"},
		&cli.StringFlag{Name: "webhook-secret", EnvVars: []string{"WEBHOOK_SECRET"}},
	},
	Action: func(c *cli.Context) error {
		cfg := config.New()
		logger := newLogger(cfg)
		if cfg.GetDatabaseURL() == "" {
			return errors.New("create-client needs DATABASE_URL; an in-memory client would vanish on exit")
		}

		st, err := openStores(c.Context, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		created, err := clients.NewStore(st.clients, clients.WithLogger(logger)).
			CreateClient(c.Context, c.String("name"), c.String("redirect-uri"), c.String("webhook-url"), c.String("webhook-secret"))
		if err != nil {
			return err
		}
		return printJSON(created)
	},
}

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "apply the database schema",
	Action: func(c *cli.Context) error {
		cfg := config.New()
		pool, err := postgres.Connect(c.Context, cfg.GetDatabaseURL())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := postgres.Migrate(c.Context, pool); err != nil {
			return err
		}
		newLogger(cfg).Info().Msg("schema applied")
		return nil
	},
}

var addCourseCommand = &cli.Command{
	Name:  "add-course",
	Usage: "add a course to the catalogue; the lowest position is the baseline enrollment",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "title", Required: true},
		&cli.IntFlag{Name: "position"},
	},
	Action: func(c *cli.Context) error {
		cfg := config.New()
		pool, err := postgres.Connect(c.Context, cfg.GetDatabaseURL())
		if err != nil {
			return err
		}
		defer pool.Close()

		return postgres.NewCourseRepo(pool).AddCourse(c.Context, c.String("id"), c.String("title"), c.Int("position"))
	},
}

func run(parent context.Context, migrate bool) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.New()
	logger := newLogger(cfg)
	displayAppname(cfg.GetAppName())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if migrate && st.pool != nil {
		if err := postgres.Migrate(ctx, st.pool); err != nil {
			return err
		}
	}

	services, err := buildServices(cfg, st, logger)
	if err != nil {
		return err
	}
	srv, err := server.New(cfg, services, server.WithLogger(logger))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go srv.RunSweepers(ctx, sweepInterval)
	go services.Reconciler.Run(ctx, cfg.GetSyncInterval())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer, logger)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	if err := shutdown(httpServer); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server.ListenAndServe")
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

// newLogger sets the global logger from LOG_LEVEL; DEV gets the console writer
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("app", cfg.GetAppName()).Logger()
	if cfg.GetEnv() == "DEV" {
		logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = logger
	return logger
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
