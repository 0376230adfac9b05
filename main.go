package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"oncoai/internal/config"
	"oncoai/internal/database"
	"oncoai/internal/handlers"
	"oncoai/internal/metrics"
	"oncoai/internal/middleware"
	"oncoai/internal/models"
	"oncoai/internal/predictor"
	"oncoai/internal/repositories"
	"oncoai/internal/security"
	"oncoai/internal/services"
	"oncoai/pkg/rabbitmq"
)

// Demo account created when SEED_DEMO_USER is set.
const (
	demoUsername = "oncouser"
	demoFullName = "Usuario OncoAI"
	demoPassword = "ai2025"
)

// application holds the wired services and the resources to release on shutdown.
type application struct {
	cfg         config.Config
	db          *gorm.DB
	mq          *rabbitmq.Client
	metrics     *metrics.Metrics
	hasher      *security.PasswordHasher
	store       *services.CredentialStore
	auth        *services.AuthService
	predictions *services.PredictionService
}

func main() {
	// --- Configuration ---
	v := viper.New()
	config.SetDefaults(v)
	v.AutomaticEnv()

	cfg, err := config.Load(v)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	configureLogging(cfg)

	if cfg.UsesDefaultSecret() {
		log.Warn("SECRET_KEY is the development default, override it in any real deployment")
	}

	// --- Dependencies ---
	deps, err := newApplication(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}
	defer deps.Close()

	if cfg.SeedDemoUser {
		if err := seedDemoUser(context.Background(), deps.store, deps.hasher); err != nil {
			log.WithError(err).Error("failed to seed demo user")
		}
	}

	// --- Start RabbitMQ consumer ---
	if deps.mq != nil {
		if err := deps.mq.ConsumeEvents(rabbitmq.LogEvent); err != nil {
			log.WithError(err).Warn("failed to start event consumer")
		}
	}

	app := buildApp(deps)

	// --- Start HTTP Server ---
	log.WithField("addr", cfg.AppPort).Info("starting server")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.WithError(err).Fatal("server failed to start")
		}
	}()

	<-quit
	log.Info("shutting down server")

	if err := app.Shutdown(); err != nil {
		log.WithError(err).Error("error during Fiber shutdown")
	}
	log.Info("server gracefully stopped")
}

func configureLogging(cfg config.Config) {
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, keeping info")
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// newApplication opens the store, loads the model and wires the services.
// A model that fails to load leaves the service running without one.
func newApplication(cfg config.Config) (*application, error) {
	a := &application{cfg: cfg, metrics: metrics.New()}

	var repo repositories.UserRepository
	if cfg.DBDriver == "memory" {
		repo = repositories.NewMemoryUserRepository()
	} else {
		db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		repo = repositories.NewGORMUserRepository(db)
	}

	hasher, err := security.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.hasher = hasher

	codec, err := security.NewTokenCodec(cfg.SecretKey)
	if err != nil {
		a.Close()
		return nil, err
	}

	model, err := predictor.Load(cfg.ModelPath, models.FeatureCount)
	if err != nil {
		log.WithError(err).WithField("path", cfg.ModelPath).Error("failed to load model, predictions are disabled")
		model = nil
	} else {
		log.WithField("path", cfg.ModelPath).Info("model loaded")
	}

	if cfg.RabbitMQURL != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: rabbitmq.DefaultQueue})
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, domain events are disabled")
		} else {
			a.mq = client
		}
	}

	authOpts := []services.AuthOption{services.WithAuthMetrics(a.metrics)}
	predictionOpts := []services.PredictionOption{
		services.WithBatchWorkers(cfg.BatchWorkers),
		services.WithPredictionMetrics(a.metrics),
	}
	if a.mq != nil {
		authOpts = append(authOpts, services.WithAuthEvents(a.mq))
		predictionOpts = append(predictionOpts, services.WithPredictionEvents(a.mq))
	}

	a.store = services.NewCredentialStore(repo, hasher, cfg.AcceptPrehashed)
	a.auth = services.NewAuthService(a.store, hasher, codec, cfg.TokenTTL, authOpts...)
	a.predictions = services.NewPredictionService(model, predictionOpts...)
	return a, nil
}

// Close releases the broker connection and the database.
func (a *application) Close() {
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			log.WithError(err).Warn("failed to close RabbitMQ client")
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}
}

// buildApp creates the Fiber app with middleware and every route registered.
func buildApp(a *application) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "OncoAI Survival Service",
		BodyLimit:    a.cfg.UploadMaxBytes,
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: a.cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	authRequired := middleware.AuthRequired(a.auth)

	handlers.NewHealthHandler(a.store, a.predictions.ModelLoaded).RegisterRoutes(app)
	handlers.NewAuthHandler(a.auth).RegisterRoutes(app, authRequired)
	handlers.NewPredictionHandler(a.predictions, a.cfg.UploadMaxBytes).RegisterRoutes(app, authRequired)

	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))
	app.Static("/static", a.cfg.StaticDir)

	return app
}

// seedDemoUser creates the demo account unless it already exists. The
// password is hashed here and stored through the already-hashed path.
func seedDemoUser(ctx context.Context, store *services.CredentialStore, hasher *security.PasswordHasher) error {
	if _, err := store.FindByUsername(ctx, demoUsername); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}

	hashed, err := hasher.Hash(demoPassword)
	if err != nil {
		return err
	}
	if _, err := store.Create(ctx, services.CreateUserParams{
		Username:       demoUsername,
		FullName:       demoFullName,
		Password:       hashed,
		PasswordHashed: true,
	}); err != nil {
		return err
	}
	log.WithField("username", demoUsername).Info("seeded demo user")
	return nil
}
