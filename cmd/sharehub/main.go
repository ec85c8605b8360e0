package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang-migrate/migrate/v4"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Decentr-net/logrus/sentry"

	"github.com/Decentr-net/sharehub/internal/cache"
	"github.com/Decentr-net/sharehub/internal/health"
	"github.com/Decentr-net/sharehub/internal/ledger"
	mm "github.com/Decentr-net/sharehub/internal/middleware"
	"github.com/Decentr-net/sharehub/internal/server"
	"github.com/Decentr-net/sharehub/internal/service/impl"
	"github.com/Decentr-net/sharehub/internal/storage/postgres"
	"github.com/Decentr-net/sharehub/internal/sui"
	"github.com/Decentr-net/sharehub/internal/token"
	"github.com/Decentr-net/sharehub/internal/wallet"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	Host            string        `long:"http.host" env:"HTTP_HOST" default:"0.0.0.0" description:"IP to listen on"`
	Port            int           `long:"http.port" env:"HTTP_PORT" default:"3001" description:"port to listen on for insecure connections"`
	RequestTimeout  time.Duration `long:"http.request-timeout" env:"HTTP_REQUEST_TIMEOUT" default:"45s" description:"request processing timeout"`
	ShutdownTimeout time.Duration `long:"http.shutdown-timeout" env:"HTTP_SHUTDOWN_TIMEOUT" default:"10s" description:"graceful shutdown timeout"`
	CORSOrigins     []string      `long:"http.cors-origin" env:"HTTP_CORS_ORIGINS" env-delim:"," description:"allowed CORS origins, all origins are allowed when empty"`
	AuthRateLimit   int           `long:"http.auth-rate-limit" env:"HTTP_AUTH_RATE_LIMIT" default:"30" description:"login and registration requests per minute per ip, 0 disables limiting"`

	Postgres                   string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
	PostgresMaxOpenConnections int    `long:"postgres.max_open_connections" env:"POSTGRES_MAX_OPEN_CONNECTIONS" default:"0" description:"postgres maximal open connections count, 0 means unlimited"`
	PostgresMaxIdleConnections int    `long:"postgres.max_idle_connections" env:"POSTGRES_MAX_IDLE_CONNECTIONS" default:"5" description:"postgres maximal idle connections count"`
	PostgresMigrations         string `long:"postgres.migrations" env:"POSTGRES_MIGRATIONS" default:"scripts/migrations/postgres" description:"postgres migrations directory"`

	RedisAddr     string        `long:"redis.addr" env:"REDIS_ADDR" default:"localhost:6379" description:"redis address"`
	RedisPassword string        `long:"redis.password" env:"REDIS_PASSWORD" description:"redis password"`
	RedisDB       int           `long:"redis.db" env:"REDIS_DB" default:"0" description:"redis database"`
	CacheTTL      time.Duration `long:"cache.ttl" env:"CACHE_TTL" default:"30s" description:"ttl of cached share responses"`

	JWTSecret string        `long:"jwt.secret" env:"JWT_SECRET" required:"true" description:"secret used to sign tokens"`
	TokenTTL  time.Duration `long:"jwt.ttl" env:"JWT_TTL" default:"24h" description:"token lifetime"`

	WalletMode string `long:"wallet.mode" env:"WALLET_MODE" default:"ed25519" description:"wallet signature verification mode" choice:"ed25519" choice:"none"`

	SuiRPC          string        `long:"sui.rpc" env:"SUI_RPC" default:"https://fullnode.testnet.sui.io:443" description:"sui json-rpc endpoint"`
	SuiPrivateKey   string        `long:"sui.private-key" env:"SUI_PRIVATE_KEY" required:"true" description:"base64 ed25519 private key, flag byte and 32 byte seed"`
	SuiPackageID    string        `long:"sui.package-id" env:"SUI_PACKAGE_ID" required:"true" description:"id of package with share module"`
	SuiCollectionID string        `long:"sui.collection-id" env:"SUI_COLLECTION_ID" required:"true" description:"id of shared share collection object"`
	SuiGasBudget    uint64        `long:"sui.gas-budget" env:"SUI_GAS_BUDGET" default:"10000000" description:"gas budget of share transaction in MIST"`
	LedgerTimeout   time.Duration `long:"sui.timeout" env:"SUI_TIMEOUT" default:"30s" description:"timeout of recording share on the ledger"`

	LogLevel      string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"Log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
	LogFile       string `long:"log.file" env:"LOG_FILE" description:"path of log file, stdout only when empty"`
	LogMaxSize    int    `long:"log.max-size" env:"LOG_MAX_SIZE" default:"100" description:"megabytes of log file before rotation"`
	LogMaxBackups int    `long:"log.max-backups" env:"LOG_MAX_BACKUPS" default:"3" description:"count of rotated log files to keep"`
	LogMaxAge     int    `long:"log.max-age" env:"LOG_MAX_AGE" default:"7" description:"days to keep rotated log files"`
	SentryDSN     string `long:"sentry.dsn" env:"SENTRY_DSN" description:"sentry dsn"`
}{}

var errTerminated = errors.New("terminated")

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Sharehub"
	parser.LongDescription = "Sharehub"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp { // nolint:errorlint
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	setupLogging()

	logrus.Info("service started")

	db := mustGetDB()
	rdb := mustGetRedis()

	suiClient := sui.NewClient(opts.SuiRPC, opts.LedgerTimeout)
	key, err := sui.KeypairFromBase64(opts.SuiPrivateKey)
	if err != nil {
		logrus.WithError(err).Fatal("failed to decode sui private key")
	}
	logrus.Infof("ledger signer %s", key.Address())

	verifier, err := wallet.New(wallet.Mode(opts.WalletMode))
	if err != nil {
		logrus.WithError(err).Fatal("failed to create wallet verifier")
	}

	s := postgres.New(db)
	srv := impl.New(impl.Deps{
		Storage: s,
		Ledger: ledger.New(suiClient, key, ledger.Config{
			PackageID:    opts.SuiPackageID,
			CollectionID: opts.SuiCollectionID,
			GasBudget:    opts.SuiGasBudget,
		}),
		Verifier:      verifier,
		Tokens:        token.NewIssuer(opts.JWTSecret, opts.TokenTTL),
		LedgerTimeout: opts.LedgerTimeout,
	})

	var limiter *mm.RateLimiter
	if opts.AuthRateLimit > 0 {
		limiter = mm.NewRateLimiter(opts.AuthRateLimit)
	}

	c := cache.New(rdb, "sharehub")

	r := chi.NewMux()
	server.SetupRouter(srv, c, r, server.Options{
		Timeout:     opts.RequestTimeout,
		CacheTTL:    opts.CacheTTL,
		CORSOrigins: opts.CORSOrigins,
		AuthLimiter: limiter,
		Pingers: []health.Pinger{
			health.SubjectPinger("postgres", s.Ping),
			health.SubjectPinger("redis", c.Ping),
			health.SubjectPinger("sui", suiClient.Ping),
		},
	})

	httpSrv := http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logrus.Infof("listening on %s", httpSrv.Addr)

	if err := serve(&httpSrv, limiter, sigs, opts.ShutdownTimeout); err != nil && !errors.Is(err, errTerminated) {
		logrus.WithError(err).Fatal("service unexpectedly closed")
	}

	if err := rdb.Close(); err != nil {
		logrus.WithError(err).Error("failed to close redis")
	}
	if err := db.Close(); err != nil {
		logrus.WithError(err).Error("failed to close postgres")
	}
}

// serve runs srv and limiter cleanup until a signal arrives or one of them fails.
func serve(srv *http.Server, limiter *mm.RateLimiter, sigs <-chan os.Signal, shutdownTimeout time.Duration) error {
	gr, ctx := errgroup.WithContext(context.Background())

	gr.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if limiter != nil {
		gr.Go(func() error {
			return limiter.Run(ctx, time.Minute)
		})
	}
	gr.Go(func() error {
		var err error
		select {
		case s := <-sigs:
			logrus.Infof("terminating by %s signal", s)
			err = errTerminated
		case <-ctx.Done():
		}

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if serr := srv.Shutdown(sctx); serr != nil {
			logrus.WithError(serr).Error("failed to shutdown http server")
		}

		return err
	})

	return gr.Wait()
}

func setupLogging() {
	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)

	if opts.LogFile != "" {
		logrus.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    opts.LogMaxSize,
			MaxBackups: opts.LogMaxBackups,
			MaxAge:     opts.LogMaxAge,
		}))
	}

	if opts.SentryDSN != "" {
		hook, err := sentry.NewHook(sentry.Options{
			Dsn:              opts.SentryDSN,
			AttachStacktrace: true,
			Release:          health.GetVersion(),
			ServerName:       "sharehub",
		}, logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel)

		if err != nil {
			logrus.WithError(err).Fatal("failed to init sentry")
		}

		logrus.AddHook(hook)
	} else {
		logrus.Info("empty sentry dsn")
		logrus.Warn("skip sentry initialization")
	}
}

func mustGetRedis() *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// the cache fails open, so unavailable redis is not fatal
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("failed to ping redis")
	}

	return rdb
}

func mustGetDB() *sql.DB {
	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}
	db.SetMaxOpenConns(opts.PostgresMaxOpenConnections)
	db.SetMaxIdleConns(opts.PostgresMaxIdleConnections)

	if err := db.PingContext(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	driver, err := migratep.WithInstance(db, &migratep.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create database migrate driver")
	}

	migrator, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", strings.TrimSuffix(opts.PostgresMigrations, "/")), "postgres", driver)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}

	switch v, d, err := migrator.Version(); {
	case err == nil:
		logrus.Infof("database version %d with dirty state %t", v, d)
	case errors.Is(err, migrate.ErrNilVersion):
		logrus.Info("database version: nil")
	default:
		logrus.WithError(err).Fatal("failed to get version")
	}

	switch err := migrator.Up(); {
	case err == nil:
		logrus.Info("database was migrated")
	case errors.Is(err, migrate.ErrNoChange):
		logrus.Info("database is up-to-date")
	default:
		logrus.WithError(err).Fatal("failed to migrate db")
	}

	return db
}
