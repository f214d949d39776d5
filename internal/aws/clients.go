package aws

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// AWSClients bundles all service clients for convenience.
type AWSClients struct {
	DynamoDB   DynamoDBAPI
	SQS        SQSAPI
	CloudWatch CloudWatchAPI
}

// NewAWSClients loads AWS config and returns concrete service clients that implement our interfaces.
// Each process builds its own bundle and passes it down explicitly.
func NewAWSClients(ctx context.Context, region, endpoint string) (*AWSClients, error) {
	cfg, err := LoadAWSConfig(ctx, region, endpoint)
	if err != nil {
		return nil, err
	}

	return &AWSClients{
		DynamoDB:   dynamodb.NewFromConfig(cfg, withoutSDKRetries),
		SQS:        sqs.NewFromConfig(cfg),
		CloudWatch: cloudwatch.NewFromConfig(cfg),
	}, nil
}

// withoutSDKRetries turns off the client's own retryer. The store wraps
// every call in its own bounded backoff, so one SDK attempt per call keeps
// STORE_RETRY_MAX_ATTEMPTS the real limit.
func withoutSDKRetries(o *dynamodb.Options) {
	o.Retryer = sdkaws.NopRetryer{}
	o.RetryMaxAttempts = 0
}
