package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/mailer"
	"github.com/goliatone/go-accounts/queue"
)

type appConfig struct {
	HTTPAddr      string        `env:"HTTP_ADDR" envDefault:":3000"`
	Debug         bool          `env:"DEBUG"`
	DatabaseDSN   string        `env:"DATABASE_DSN" envDefault:"file:accounts.db?cache=shared&_pragma=foreign_keys(1)"`
	SigningSecret string        `env:"JWT_SIGNING_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TOKEN_TTL"`
	ResetTTL      time.Duration `env:"RESET_TOKEN_TTL"`
	TokenIssuer   string        `env:"TOKEN_ISSUER" envDefault:"go-accounts"`
	AMQPURL       string        `env:"AMQP_URL"`
}

func main() {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	cfg, err := env.ParseAs[appConfig]()
	if err != nil {
		zl.Fatal().Err(err).Msg("parse environment")
	}

	if cfg.Debug {
		zl = zl.Level(zerolog.DebugLevel)
	} else {
		zl = zl.Level(zerolog.InfoLevel)
	}

	logger := zlogAdapter{log: zl}

	db, err := openDatabase(cfg.DatabaseDSN)
	if err != nil {
		zl.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := runMigrations(context.Background(), db); err != nil {
		zl.Fatal().Err(err).Msg("run migrations")
	}

	repos := accounts.NewRepositoryManager(db)
	repos.MustValidate()

	tokens := accounts.NewTokenService(accounts.TokenConfig{
		SigningSecret:   cfg.SigningSecret,
		SessionTokenTTL: cfg.SessionTTL,
		ResetTokenTTL:   cfg.ResetTTL,
		Issuer:          cfg.TokenIssuer,
	}, repos.Sessions(), logger)

	broker, err := openBroker(cfg, logger)
	if err != nil {
		zl.Fatal().Err(err).Msg("open broker")
	}
	defer broker.Close()

	svc := accounts.NewAccounts(repos.Users(), tokens).WithLogger(logger)
	manager := accounts.NewNotifier(svc, repos.Users(), tokens,
		accounts.NewBrokerEnqueuer(broker)).WithLogger(logger)

	mail, err := openMailer(zl)
	if err != nil {
		zl.Fatal().Err(err).Msg("configure mailer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers := queue.NewWorkers(accounts.NewUserDirectory(repos.Users()), mail, logger)
	go queue.Run(ctx, broker, workers)

	app := accounts.NewServer(manager, tokens, repos.Categories(), repos.Users(), logger)

	go func() {
		<-ctx.Done()
		zl.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zl.Error().Err(err).Msg("shutdown")
		}
	}()

	zl.Info().Str("addr", cfg.HTTPAddr).Msg("starting server")

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		zl.Fatal().Err(err).Msg("server stopped")
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations executes the embedded SQL files in lexical order. Every file
// is idempotent so replays are safe.
func runMigrations(ctx context.Context, db *bun.DB) error {
	migrations := accounts.GetMigrationsFS()

	var files []string
	err := fs.WalkDir(migrations, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(files)

	for _, file := range files {
		contents, err := fs.ReadFile(migrations, file)
		if err != nil {
			return err
		}

		if _, err := db.ExecContext(ctx, string(contents)); err != nil {
			return err
		}
	}

	return nil
}

func openBroker(cfg appConfig, logger accounts.Logger) (queue.Broker, error) {
	if cfg.AMQPURL == "" {
		logger.Warn("AMQP_URL not set, using in process queue")
		return queue.NewMemoryBroker(), nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, err
	}

	return queue.NewAMQPBroker(conn, logger), nil
}

func openMailer(zl zerolog.Logger) (queue.Mailer, error) {
	cfg, err := mailer.ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.Host == "" {
		zl.Warn().Msg("SMTP_HOST not set, logging email instead of sending")
		return logMailer{log: zl}, nil
	}

	return mailer.New(cfg)
}

// logMailer writes email to the log for local development.
type logMailer struct {
	log zerolog.Logger
}

func (m logMailer) Send(to, subject, body string) error {
	m.log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("email")
	return nil
}

// zlogAdapter exposes a zerolog logger through the printf style interface
// the accounts package expects.
type zlogAdapter struct {
	log zerolog.Logger
}

func (z zlogAdapter) Debug(format string, args ...any) { z.log.Debug().Msgf(format, args...) }
func (z zlogAdapter) Info(format string, args ...any)  { z.log.Info().Msgf(format, args...) }
func (z zlogAdapter) Warn(format string, args ...any)  { z.log.Warn().Msgf(format, args...) }
func (z zlogAdapter) Error(format string, args ...any) { z.log.Error().Msgf(format, args...) }
