package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"github.com/stripe/stripe-go/v82"

	"github.com/cinetick/cinetick/internal/catalog"
	"github.com/cinetick/cinetick/internal/clock"
	"github.com/cinetick/cinetick/internal/domain"
	"github.com/cinetick/cinetick/internal/mailer"
	"github.com/cinetick/cinetick/internal/payment"
	"github.com/cinetick/cinetick/internal/queue"
	"github.com/cinetick/cinetick/internal/repository"
	"github.com/cinetick/cinetick/internal/reservation"
	appvalidator "github.com/cinetick/cinetick/internal/validator"
	"github.com/cinetick/cinetick/internal/vcs"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    Config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate
	mailer    mailer.Mailer
	clock     clock.Clock
	tx        reservation.TxRunner

	showRepo        domain.ShowRepository
	reservationRepo domain.ReservationRepository
	bookingRepo     domain.BookingRepository
	paymentRepo     domain.PaymentRepository
	ledger          domain.SeatLedger

	engine          *reservation.Engine
	catalog         domain.CatalogProvider
	paymentProvider domain.PaymentProvider
	publisher       queue.Publisher
}

type Config struct {
	Port             int
	Env              string
	OtelCollectorUrl string
	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	Stripe           StripeConfig
	TMDB             TMDBConfig
	AMQP             AMQPConfig
	Hold             HoldConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessUrl    string
	FailureUrl    string
}

type TMDBConfig struct {
	AccessToken string
}

type AMQPConfig struct {
	URL string
}

type HoldConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Option overrides one of the Application's collaborators. Used by tests to
// swap external integrations for fakes.
type Option func(*Application)

func WithPaymentProvider(p domain.PaymentProvider) Option {
	return func(app *Application) { app.paymentProvider = p }
}

func WithCatalogProvider(c domain.CatalogProvider) Option {
	return func(app *Application) { app.catalog = c }
}

func WithMailer(m mailer.Mailer) Option {
	return func(app *Application) { app.mailer = m }
}

func WithPublisher(p queue.Publisher) Option {
	return func(app *Application) { app.publisher = p }
}

func WithClock(c clock.Clock) Option {
	return func(app *Application) { app.clock = c }
}

func Run() error {
	// A local .env is a convenience for development; absence is not an error.
	_ = godotenv.Load()

	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", os.Getenv("DB_DSN"), "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "CineTick <no-reply@cinetick.example.com>", "SMTP sender")

	flag.StringVar(&cfg.Stripe.SecretKey, "stripe-key", os.Getenv("STRIPE_SECRET_KEY"), "Stripe secret key")
	flag.StringVar(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "Stripe webhook secret")
	flag.StringVar(&cfg.Stripe.SuccessUrl, "stripe-success-url", "https://example.com/success.html", "Stripe payment success page")
	flag.StringVar(&cfg.Stripe.FailureUrl, "stripe-failure-url", "https://example.com/failure.html", "Stripe payment failure page")

	flag.StringVar(&cfg.TMDB.AccessToken, "tmdb-access-token", os.Getenv("TMDB_ACCESS_TOKEN"), "TMDB API read access token")

	flag.StringVar(&cfg.AMQP.URL, "amqp-url", os.Getenv("AMQP_URL"), "RabbitMQ URL for booking events")

	flag.DurationVar(&cfg.Hold.TTL, "hold-ttl", reservation.DefaultHoldTTL, "How long an unpaid seat hold stays valid")
	flag.DurationVar(&cfg.Hold.SweepInterval, "hold-sweep-interval", time.Minute, "How often expired holds are swept")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", os.Getenv("OTEL_COLLECTOR_URL"), "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	if cfg.DB.DSN == "" {
		return errors.New("db-dsn is required")
	}

	app, err := New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	telemetryShutdown, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer telemetryShutdown(context.Background())

	// Once the OTLP log exporter is up, fan log records out to both stdout
	// and the collector.
	app.logger = newLogger(cfg)

	return app.run()
}

// New wires up the Application against the configured Postgres and Redis
// instances. Options replace external collaborators after the defaults are
// in place.
func New(cfg Config, opts ...Option) (*Application, error) {
	stripe.Key = cfg.Stripe.SecretKey

	db, err := newDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	txManager := repository.NewTxManager(db)
	showRepo := repository.NewPostgresShowRepository(db)
	reservationRepo := repository.NewPostgresReservationRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)
	ledger := repository.NewPostgresSeatLedger(db)

	app := &Application{
		config:          cfg,
		logger:          slog.New(slog.NewTextHandler(os.Stdout, nil)),
		db:              db,
		redis:           redisClient,
		validator:       appvalidator.NewValidator(),
		mailer:          mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender),
		clock:           clock.NewSystem(),
		tx:              txManager,
		showRepo:        showRepo,
		reservationRepo: reservationRepo,
		bookingRepo:     bookingRepo,
		paymentRepo:     paymentRepo,
		ledger:          ledger,
		catalog:         catalog.NewTMDBProvider(cfg.TMDB.AccessToken, redisClient),
		paymentProvider: payment.NewStripePaymentProvider(cfg.Stripe.FailureUrl, cfg.Stripe.SuccessUrl),
	}

	if cfg.AMQP.URL != "" {
		app.publisher = queue.NewAMQPPublisher(cfg.AMQP.URL)
	}

	for _, opt := range opts {
		opt(app)
	}

	app.engine = reservation.NewEngine(
		txManager,
		showRepo,
		reservationRepo,
		bookingRepo,
		ledger,
		app.clock,
		reservation.WithHoldTTL(cfg.Hold.TTL),
	)

	return app, nil
}

// Close releases the database and cache connections.
func (app *Application) Close() {
	app.db.Close()
	app.redis.Close()
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	sweeper := reservation.NewSweeper(app.engine, app.config.Hold.SweepInterval, app.logger)
	go sweeper.Run(sweeperCtx)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		stopSweeper()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otelchi.Middleware("cinetick-api", otelchi.WithChiRoutes(r)))
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)

	r.Get("/health", app.GetHealth)
	r.Get("/movies/now-playing", app.GetNowPlayingMovies)

	r.Route("/shows", func(r chi.Router) {
		r.Get("/", app.ListShowsHandler)
		r.Post("/", app.CreateShowsHandler)

		r.Route("/{showId}", func(r chi.Router) {
			r.Get("/", app.GetShowHandler)
			r.Delete("/", app.CancelShowHandler)
			r.Get("/seats", app.GetSeatMapHandler)
			r.With(app.requireUser).Post("/bookings", app.CreateBookingHandler)
		})
	})

	r.With(app.requireUser).Delete("/reservations/{reservationId}", app.CancelReservationHandler)
	r.With(app.requireUser).Get("/users/me/bookings", app.ListBookingsHandler)

	r.Post("/webhook", app.StripeWebhookHandler)

	return r
}
