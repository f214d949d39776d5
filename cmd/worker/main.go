package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/aws"
	"github.com/imrishuroy/go-idempotent-todo/internal/config"
	"github.com/imrishuroy/go-idempotent-todo/internal/logging"
	"github.com/imrishuroy/go-idempotent-todo/internal/metrics"
)

const sampleEvent = `{"Records":[{"eventID":"local-1","eventName":"INSERT","dynamodb":{
"Keys":{"PK":{"S":"TASK#local-user"},"SK":{"S":"TASK#local-task"}},
"NewImage":{"PK":{"S":"TASK#local-user"},"SK":{"S":"TASK#local-task"},"entity_type":{"S":"TASK"},"title":{"S":"local"}},
"SequenceNumber":"1"}}]}`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("invalid worker config: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewAWSClients(context.Background(), cfg.AWSRegion, cfg.EndpointOverride)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.MetricsEnabled {
		recorder = metrics.NewCloudWatch(clients.CloudWatch, cfg.MetricsNamespace, logger)
	}

	processor := NewProcessor(
		aws.NewPublisher(clients.SQS, cfg.CDCQueueURL),
		recorder,
		logger,
		strings.HasSuffix(cfg.CDCQueueURL, ".fifo"),
	)

	// If RUN_LOCAL=true, handle a single stream event for local testing.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_STREAM_EVENT")
		if body == "" {
			body = sampleEvent
		}
		var event events.DynamoDBEvent
		if err := json.Unmarshal([]byte(body), &event); err != nil {
			logger.Fatal("invalid LOCAL_STREAM_EVENT", zap.Error(err))
		}
		resp, err := processor.Handle(context.Background(), event)
		if err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		logger.Info("local event handled", zap.Int("failures", len(resp.BatchItemFailures)))
		return
	}

	lambda.Start(processor.Handle)
}
