package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

const defaultRegion = "us-east-1"

// LoadAWSConfig loads the shared AWS config. An empty region falls back to
// us-east-1; a non-empty endpoint points every client at it (DynamoDB Local,
// LocalStack).
func LoadAWSConfig(ctx context.Context, region, endpoint string) (sdkaws.Config, error) {
	if region == "" {
		region = defaultRegion // default fallback
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}

	return cfg, nil
}
