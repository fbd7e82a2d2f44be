package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/auth"
	"company-quiz-service/internal/config"
	"company-quiz-service/internal/domain"
	amqppub "company-quiz-service/internal/infra/amqp"
	"company-quiz-service/internal/infra/memory"
	mongostore "company-quiz-service/internal/infra/mongo"
	"company-quiz-service/internal/infra/postgres"
	redisstore "company-quiz-service/internal/infra/redis"
	"company-quiz-service/internal/logging"
	transport "company-quiz-service/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Auth.JWTSecret == "" {
		log.Warn("jwt secret is empty, tokens are signed with an empty key")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, cleanup, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	service := app.NewQuizService(deps)
	gin.SetMode(gin.ReleaseMode)
	router := transport.NewRouter(transport.RouterConfig{
		Service:        service,
		Verifier:       auth.NewVerifier(cfg.Auth.JWTSecret),
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildDependencies picks a backing store per concern: configured services
// when present, in-memory adapters otherwise.
func buildDependencies(ctx context.Context, cfg config.Config, log *logrus.Logger) (app.Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (app.Dependencies, func(), error) {
		cleanup()
		return app.Dependencies{}, func() {}, err
	}

	deps := app.Dependencies{Logger: log}
	detailTTL := config.TTLDuration(cfg.Results.DetailTTL, redisstore.DefaultDetailTTL)
	roleTTL := config.TTLDuration(cfg.Roles.TTL, 10*time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Cache = redisstore.NewResultCache(redisClient, detailTTL)
		deps.Feed = app.NewResultFeed(redisstore.NewFeedRegistry(redisClient, log))
	} else {
		log.Warn("redis not configured, result details are kept in process")
		deps.Cache = memory.NewResultCache(detailTTL)
		deps.Feed = app.NewResultFeed(memory.NewFeedRegistry())
	}

	if cfg.Mongo.URI != "" {
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
		database := cfg.Mongo.Database
		if database == "" {
			database = "quiz_service"
		}
		repo := mongostore.NewQuizRepository(client.Database(database), cfg.Mongo.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fail(err)
		}
		deps.Quizzes = repo
	} else {
		log.Warn("mongo not configured, quizzes are kept in process")
		deps.Quizzes = memory.NewQuizStore()
	}

	var sinks app.FanoutSink
	if cfg.Postgres.URL != "" {
		db := postgres.OpenBun(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })
		deps.Results = postgres.NewResultRepository(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pool.Close)

		loader := postgres.NewRoleLoader(pool)
		var roles postgres.RoleResolver = memory.NewRoleCache(loader, roleTTL)
		if redisClient != nil {
			roles = redisstore.NewRoleCache(redisClient, loader, roleTTL)
		}
		deps.Directory = postgres.NewDirectory(pool, roles)
		sinks = append(sinks, postgres.NewNotificationStore(pool))
	} else {
		log.Warn("postgres not configured, using an in-process directory with a demo company")
		deps.Results = memory.NewResultStore()
		deps.Directory = demoDirectory()
		sinks = append(sinks, memory.NewOutbox())
	}

	publisher, err := amqppub.NewPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("close notification publisher")
		}
	})
	if publisher.Enabled() {
		sinks = append(sinks, publisher)
	}
	deps.Notifier = sinks

	return deps, cleanup, nil
}

// demoDirectory lets a store-less instance serve requests: company 1 owned by
// user 1.
func demoDirectory() *memory.Directory {
	dir := memory.NewDirectory()
	dir.AddCompany(domain.Company{ID: 1, Name: "Demo"})
	dir.AddMember(1, 1, domain.RoleOwner)
	return dir
}
