package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"transfer-manager-api/config"
	"transfer-manager-api/internal/application/ports"
	"transfer-manager-api/internal/application/services"
	"transfer-manager-api/internal/domain/download"
	"transfer-manager-api/internal/domain/outbox"
	"transfer-manager-api/internal/infrastructure/db/postgres"
	outboxDB "transfer-manager-api/internal/infrastructure/db/postgres/outbox"
	"transfer-manager-api/internal/infrastructure/jwt"
	"transfer-manager-api/internal/infrastructure/metrics"
	"transfer-manager-api/internal/infrastructure/mq"
	"transfer-manager-api/internal/infrastructure/remotefetch"
	"transfer-manager-api/internal/infrastructure/s3"
	"transfer-manager-api/internal/infrastructure/webhook"
	"transfer-manager-api/internal/interface/api/rest"
	"transfer-manager-api/internal/interface/api/rest/middleware"
	"transfer-manager-api/pkg/outboxdispatch"
	"transfer-manager-api/pkg/rmqconsumer"
)

type App struct {
	logger     *zap.Logger
	cfg        config.Config
	db         *pgxpool.Pool
	store      ports.ObjectStore
	httpSrv    *http.Server
	router     *gin.Engine
	mCounter   *prometheus.CounterVec
	mq         ports.RabbitMQ
	mqConsumer ports.RMQConsumer

	uploadService   ports.UploadService
	downloadService ports.DownloadService
	dispatcher      *outboxdispatch.Dispatcher
}

func NewApp(ctx context.Context) (*App, error) {
	// logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}
	defer logger.Sync()

	// config
	if err = godotenv.Load(".env"); err != nil {
		logger.Fatal("error loading .env file", zap.Error(err))
	}
	cfg := config.Load()

	// metrics
	mCounter := metrics.NewCounter()
	mDispatch := metrics.NewDispatchCounter()

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogGin(logger, mCounter))

	// httpServer
	httpSrv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: r,
	}

	// db
	dbDsn, err := cfg.DBDSN()
	if err != nil {
		logger.Fatal("DB config error", zap.Error(err))
	}
	dbPool, err := postgres.New(ctx, logger, dbDsn)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err = postgres.RunMigrations(ctx, logger, dbDsn); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// s3
	s3Client, err := s3.New(ctx, logger, cfg.S3)
	if err != nil {
		logger.Fatal("failed to connect to S3", zap.Error(err))
	}

	// rabbitMQ
	rabbitDsn, err := cfg.AMQPDSN()
	if err != nil {
		logger.Fatal("RabbitMQ config error", zap.Error(err))
	}
	rbMQ := mq.New(cfg.MQ, logger)
	if err = rbMQ.Connect(ctx, rabbitDsn); err != nil {
		logger.Fatal("failed to connect to rabbitMQ", zap.Error(err))
	}
	if err = rbMQ.Init(); err != nil {
		logger.Fatal("failed init rabbitMQ", zap.Error(err))
	}

	// services
	txManager := postgres.NewTxManager(dbPool)
	fetcher := remotefetch.NewFetcher(logger, cfg.Webhook.Timeout)
	uploadService := services.NewUploadService(txManager, s3Client, cfg.Upload, cfg.Sweep.ExpireBatch, logger, mCounter)
	downloadService := services.NewDownloadService(txManager, s3Client, fetcher, cfg.Sweep, logger, mCounter)

	// outbox dispatcher: queue events go to rabbitMQ, webhook facts go
	// straight to the registered endpoint
	webhookSender := webhook.NewSender(logger, cfg.Webhook.Timeout)
	routes := map[outbox.EventType]outboxdispatch.Deliverer{
		outbox.EventTypeFileReady:          outboxdispatch.DelivererFunc(rbMQ.Publish),
		outbox.EventTypeDownloadRegistered: outboxdispatch.DelivererFunc(rbMQ.Publish),
		outbox.EventTypeWebhook: outboxdispatch.DelivererFunc(func(ctx context.Context, e *outbox.Entry) error {
			var fact download.WebhookFact
			if err := json.Unmarshal(e.Payload, &fact); err != nil {
				return fmt.Errorf("unmarshal webhook fact: %w", err)
			}
			return webhookSender.Send(ctx, fact)
		}),
	}
	dispatcher := outboxdispatch.New(
		outboxDB.NewRepository(dbPool),
		routes,
		outboxdispatch.Config{
			Interval:       cfg.Dispatcher.Interval,
			Batch:          cfg.Dispatcher.Batch,
			Lease:          cfg.Dispatcher.Lease,
			AttemptTimeout: cfg.Dispatcher.AttemptTimeout,
		},
		logger,
		mDispatch,
	)

	// rmqConsumer runs on its own connection so slow download attempts
	// never backpressure the publisher channel
	rmqConsumer := rmqconsumer.New(cfg.MQ, logger, downloadService)
	if err = rmqConsumer.Connect(rabbitDsn); err != nil {
		logger.Fatal("failed to connect rabbitMQ consumer", zap.Error(err))
	}
	if err = rmqConsumer.Init(); err != nil {
		logger.Fatal("failed to init rabbitMQ consumer", zap.Error(err))
	}

	return &App{
		logger:          logger,
		cfg:             cfg,
		db:              dbPool,
		store:           s3Client,
		httpSrv:         httpSrv,
		router:          r,
		mCounter:        mCounter,
		mq:              rbMQ,
		mqConsumer:      rmqConsumer,
		uploadService:   uploadService,
		downloadService: downloadService,
		dispatcher:      dispatcher,
	}, nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.mq.GetConn() != nil {
		a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer stop()

	// "errgroup" instead of "WaitGroup" because:
	// - allows return an error from gorutine
	// - group errors from multiple gorutines into one
	// - wg.Add(1), wg.Done() - automatically under the hood, so never catch deadlock if you forget something ;-)
	// - allows orchestration of parallel processes through the context.Context(gracefull shut down)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.cfg.App.Host+":"+a.cfg.App.Port))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		a.dispatcher.Run(ctx)
		return nil
	})

	g.Go(func() error {
		a.mqConsumer.DeliveryWorker(ctx)
		return nil
	})

	g.Go(func() error {
		a.expirySweepWorker(ctx)
		return nil
	})

	g.Go(func() error {
		a.retrySweepWorker(ctx)
		return nil
	})

	<-ctx.Done()

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
			return err
		}
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

func (a *App) expirySweepWorker(ctx context.Context) {
	a.logger.Info("starting expiry sweep worker")

	defer func() {
		a.logger.Info("expiry sweep worker gracefully stopped")
	}()

	ticker := time.NewTicker(a.cfg.Sweep.ExpireInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := a.uploadService.ExpireSessions(ctx)
			if err != nil {
				// alert
				a.logger.Error("expiry sweep error", zap.Error(err))
				continue
			}
			if n > 0 {
				a.logger.Info("expiry sweep done", zap.Int("expired", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) retrySweepWorker(ctx context.Context) {
	a.logger.Info("starting retry sweep worker")

	defer func() {
		a.logger.Info("retry sweep worker gracefully stopped")
	}()

	ticker := time.NewTicker(a.cfg.Sweep.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := a.downloadService.RetrySweep(ctx)
			if err != nil {
				// alert
				a.logger.Error("retry sweep error", zap.Error(err))
				continue
			}
			if n > 0 {
				a.logger.Info("retry sweep done", zap.Int("redispatched", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) InitControllers() {
	jwtService := jwt.New(a.cfg.App.JWTSecret)

	// controllers
	rest.NewUploadController(a.router, a.uploadService, a.logger, jwtService)
	rest.NewDownloadController(a.router, a.downloadService, a.logger, jwtService)
	rest.NewOutboxController(a.router, a.dispatcher, a.logger, jwtService)

	// ops
	a.router.GET(rest.RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))
}

func (a *App) Logger() *zap.Logger { return a.logger }
