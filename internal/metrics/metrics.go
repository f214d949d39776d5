package metrics

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	awsx "github.com/imrishuroy/go-idempotent-todo/internal/aws"
)

// Metric names.
const (
	IdempotentReplay   = "IdempotentReplay"
	IdempotentConflict = "IdempotentConflict"
	RecordsProcessed   = "RecordsProcessed"
	RecordsFailed      = "RecordsFailed"
)

// Recorder counts events.
type Recorder interface {
	Count(ctx context.Context, name string, value float64, dims map[string]string)
}

type Nop struct{}

func (Nop) Count(context.Context, string, float64, map[string]string) {}

// CloudWatch sends counts with PutMetricData. Failures are logged and
// dropped so metrics never fail a request.
type CloudWatch struct {
	client    awsx.CloudWatchAPI
	namespace string
	logger    *zap.Logger
	now       func() time.Time
}

func NewCloudWatch(client awsx.CloudWatchAPI, namespace string, logger *zap.Logger) *CloudWatch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudWatch{client: client, namespace: namespace, logger: logger, now: time.Now}
}

func (c *CloudWatch) Count(ctx context.Context, name string, value float64, dims map[string]string) {
	datum := cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Value:      sdkaws.Float64(value),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  sdkaws.Time(c.now()),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  sdkaws.String(k),
			Value: sdkaws.String(v),
		})
	}

	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(c.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		c.logger.Warn("put metric data failed", zap.String("metric", name), zap.Error(fmt.Errorf("cloudwatch: %w", err)))
	}
}
