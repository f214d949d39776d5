package main

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/aws"
	"github.com/imrishuroy/go-idempotent-todo/internal/config"
	"github.com/imrishuroy/go-idempotent-todo/internal/handlers"
	"github.com/imrishuroy/go-idempotent-todo/internal/identity"
	"github.com/imrishuroy/go-idempotent-todo/internal/idempotency"
	"github.com/imrishuroy/go-idempotent-todo/internal/logging"
	"github.com/imrishuroy/go-idempotent-todo/internal/metrics"
	"github.com/imrishuroy/go-idempotent-todo/internal/store"
	"github.com/imrishuroy/go-idempotent-todo/internal/tasks"
	"github.com/imrishuroy/go-idempotent-todo/internal/users"
	"github.com/imrishuroy/go-idempotent-todo/internal/validation"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(cfg.Logger))
	handlers.RegisterRoutes(r, cfg)
	return r
}

// buildHandlers wires the store, the idempotency guard and the services.
func buildHandlers(cfg *config.Config, st store.Store, recorder metrics.Recorder, logger *zap.Logger) handlers.HandlerConfig {
	v := validation.New()
	guard := idempotency.NewGuard(idempotency.NewRepository(st, cfg.IdempotencyTTL), recorder, logger)

	return handlers.HandlerConfig{
		Tasks: tasks.NewService(tasks.NewRepository(st), guard, v, logger),
		Users: users.NewService(users.NewRepository(st), guard, v, logger),
		Identity: identity.NewExtractor(identity.Options{
			JWTSecret:    cfg.JWTSecret,
			UseLocalUser: cfg.LocalUser,
		}, v),
		Validator: v,
		Logger:    logger,
	}
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, *aws.AWSClients, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil, nil
	}

	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.EndpointOverride)
	if err != nil {
		return nil, nil, fmt.Errorf("init aws clients: %w", err)
	}
	retry := store.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts
	retry.BaseDelay = cfg.RetryBaseDelay
	return store.NewDynamoStore(clients.DynamoDB, cfg.TableName, retry, logger), clients, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	st, clients, err := newStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to init store", zap.Error(err))
	}

	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.MetricsEnabled && clients != nil {
		recorder = metrics.NewCloudWatch(clients.CloudWatch, cfg.MetricsNamespace, logger)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := setupRouter(buildHandlers(cfg, st, recorder, logger))

	// if RUN_LOCAL is true, run a local HTTP server for development.
	if cfg.RunLocal {
		logger.Info("running local server", zap.String("addr", cfg.ListenAddr), zap.String("backend", cfg.StoreBackend))
		if err := r.Run(cfg.ListenAddr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
