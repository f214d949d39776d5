package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

func TestNewAWSClients_DynamoDBMakesOneAttempt(t *testing.T) {
	clients, err := NewAWSClients(context.Background(), "us-east-1", "http://localhost:8000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client, ok := clients.DynamoDB.(*dynamodb.Client)
	if !ok {
		t.Fatalf("expected *dynamodb.Client, got %T", clients.DynamoDB)
	}
	if got := client.Options().Retryer.MaxAttempts(); got != 1 {
		t.Fatalf("expected a single SDK attempt per call, got %d", got)
	}
}
