package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/davicafu/hexatodo/internal/config"
	identityApp "github.com/davicafu/hexatodo/internal/identity/application"
	identityHttp "github.com/davicafu/hexatodo/internal/identity/infra/inbound/http"
	identityJWT "github.com/davicafu/hexatodo/internal/identity/infra/outbound/jwt"
	sharedEvents "github.com/davicafu/hexatodo/internal/shared/infra/events"
	sharedBus "github.com/davicafu/hexatodo/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/hexatodo/internal/shared/infra/platform/cache"
	taskApp "github.com/davicafu/hexatodo/internal/task/application"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
	taskEvents "github.com/davicafu/hexatodo/internal/task/infra/inbound/events"
	taskHttp "github.com/davicafu/hexatodo/internal/task/infra/inbound/http"
	"github.com/davicafu/hexatodo/internal/task/infra/inbound/view"
	"github.com/davicafu/hexatodo/internal/task/infra/outbound/analytics/clickhouse"
	"github.com/davicafu/hexatodo/internal/task/infra/outbound/store/filestore"
	"github.com/davicafu/hexatodo/internal/task/infra/outbound/store/mongodb"
	"github.com/davicafu/hexatodo/internal/task/infra/outbound/store/rest"
	"github.com/davicafu/hexatodo/internal/task/infra/outbound/store/sqlstore"
	"github.com/davicafu/hexatodo/pkg/logger"
)

// closers se ejecutan en orden inverso al apagar.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// ---------------- Main ----------------
func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run arranca el proceso y bloquea hasta la señal de apagado. Los errores ya
// vienen registrados; los defers cierran lo que se haya abierto.
func run() error {
	// .env es opcional; las variables del entorno tienen prioridad
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		return err
	}

	logger.Init(cfg.LogLevel)
	log := logger.Logger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var shutdown closers
	defer shutdown.run()

	// Cada proceso se identifica para ignorar sus propios eventos
	instanceID := uuid.NewString()
	log.Info("Arrancando hexatodo", zap.String("instance", instanceID), zap.String("store", cfg.StoreBackend))

	// ---------------- Identidad ----------------
	sessions := identityApp.NewSessionManager(identityJWT.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer), log)
	shutdown.add(sessions.Close)

	// ---------------- Store ----------------
	store, err := openStore(ctx, cfg, sessions, &shutdown, log)
	if err != nil {
		log.Error("failed to open task store", zap.Error(err))
		return err
	}

	// ---------------- Cache ----------------
	cache := openCache(ctx, cfg, &shutdown, log)

	// ---------------- Events ---------------
	var publisher sharedBus.EventBus
	var subscribe func(handler sharedBus.MessageHandler)

	if cfg.UseKafka {
		log.Info("Usando Kafka como bus de eventos", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))

		writer := kafka.NewWriter(kafka.WriterConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopic,
			Balancer: &kafka.Hash{},
		})
		shutdown.add(func() { _ = writer.Close() })
		publisher = sharedEvents.NewKafkaPublisher(writer, log)

		subscribe = func(handler sharedBus.MessageHandler) {
			// Un grupo por instancia: todas reciben todos los eventos
			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:  cfg.KafkaBrokers,
				Topic:    cfg.KafkaTopic,
				GroupID:  "hexatodo-" + instanceID,
				MinBytes: 1,
				MaxBytes: 10e6, // 10MB
			})
			adapter := sharedEvents.NewConsumerAdapter(reader, handler, log)
			shutdown.add(func() { _ = adapter.Close() })
			adapter.Start(ctx)
		}
	} else {
		log.Info("Usando bus de eventos en memoria")

		bus := sharedEvents.NewInMemoryEventBus(cfg.KafkaTopic, log)
		shutdown.add(bus.Close)
		publisher = bus

		subscribe = func(handler sharedBus.MessageHandler) {
			sharedEvents.BackgroundConsumerChan(ctx, bus.Subscribe(64), handler, log)
		}
	}

	// --------------- Servicio --------------
	taskService := taskApp.NewTaskService(store, sessions, cache, log,
		taskApp.WithEventBus(publisher, instanceID),
		taskApp.WithCacheTTL(cfg.CacheTTL),
	)
	taskService.Watch(ctx)

	// ---------------- Analítica ----------------
	var analytics taskDomain.TaskAnalyticsRepository
	if cfg.ClickHouseAddr != "" {
		repo, err := openAnalytics(ctx, cfg, &shutdown)
		if err != nil {
			log.Warn("ClickHouse no disponible, analítica deshabilitada", zap.Error(err))
		} else {
			analytics = repo
		}
	}

	subscribe(taskEvents.NewTaskConsumer(taskService, analytics, log))

	// ---------------- HTTP ----------------
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "instance": instanceID})
	})

	identityHttp.RegisterSessionRoutes(router, identityHttp.NewSessionHandler(sessions, log))
	taskHttp.RegisterTaskRoutes(router, taskHttp.NewTaskHandler(taskService, view.NewBoard(taskService, log), log))
	if analytics != nil {
		taskHttp.RegisterAnalyticsRoutes(router, taskHttp.NewAnalyticsHandler(analytics, sessions, log))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Apagando servidor")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// openStore elige el RowStore según STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config, tokens rest.TokenSource, shutdown *closers, log *zap.Logger) (taskDomain.RowStore, error) {
	switch cfg.StoreBackend {
	case config.BackendREST:
		return rest.NewStore(cfg.StoreURL, cfg.StoreAPIKey, tokens, cfg.RemoteTimeout, log), nil

	case config.BackendPostgres, config.BackendSQLite:
		var (
			dialect sqlstore.Dialect
			db      *sql.DB
			err     error
		)
		if cfg.StoreBackend == config.BackendSQLite {
			dialect = sqlstore.SQLite
			db, err = sqlstore.OpenSQLite(cfg.SQLitePath)
		} else {
			dialect = sqlstore.Postgres
			db, err = sqlstore.OpenPostgres(cfg.DatabaseURL)
		}
		if err != nil {
			return nil, err
		}
		shutdown.add(func() { _ = db.Close() })

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping %s: %w", dialect.Name(), err)
		}
		if err := sqlstore.InitTaskSchema(ctx, db, dialect); err != nil {
			return nil, err
		}
		return sqlstore.NewStore(db, dialect, log, sqlstore.TasksTable), nil

	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		shutdown.add(func() { _ = client.Disconnect(context.Background()) })

		store, err := mongodb.NewStore(connectCtx, client, cfg.MongoDB, log)
		if err != nil {
			return nil, err
		}
		if err := store.InitTaskIndexes(connectCtx); err != nil {
			log.Warn("no se pudo crear el índice de tareas", zap.Error(err))
		}
		return store, nil

	case config.BackendFile:
		return filestore.NewStore(cfg.TasksFile, log), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// openCache usa Redis si responde; si no, la caché en memoria del proceso.
func openCache(ctx context.Context, cfg *config.Config, shutdown *closers, log *zap.Logger) sharedCache.Cache {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis no disponible, cache en memoria", zap.Error(err))
			_ = rdb.Close()
		} else {
			log.Info("Redis conectado, cache compartida habilitada")
			c := sharedCache.NewRedisCache(rdb, cfg.CacheTTL)
			shutdown.add(func() { _ = c.Close() })
			return c
		}
	}

	c := sharedCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	shutdown.add(c.Stop)
	return c
}

func openAnalytics(ctx context.Context, cfg *config.Config, shutdown *closers) (*clickhouse.TaskAnalyticsRepo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := clickhouse.Open(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB)
	if err != nil {
		return nil, err
	}
	repo := clickhouse.NewTaskAnalyticsRepo(db)
	if err := repo.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	shutdown.add(func() { _ = db.Close() })
	return repo, nil
}
