package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-idempotent-todo/internal/metrics"
	"github.com/imrishuroy/go-idempotent-todo/internal/store"
)

// publisher is satisfied by *aws.Publisher.
type publisher interface {
	Publish(ctx context.Context, messageBody string, attributes map[string]string, groupID, dedupID string) error
}

// Processor forwards table stream records to the change queue, in order.
type Processor struct {
	publisher publisher
	metrics   metrics.Recorder
	logger    *zap.Logger
	// fifo adds a message group per item partition and deduplicates by
	// event id.
	fifo bool
}

// NewProcessor creates a new worker processor with its collaborators injected.
func NewProcessor(pub publisher, recorder metrics.Recorder, logger *zap.Logger, fifo bool) *Processor {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{publisher: pub, metrics: recorder, logger: logger, fifo: fifo}
}

// Handle processes a stream batch. On the first failing record it stops and
// reports that record, so Lambda retries the batch from there and later
// records are never delivered ahead of it.
func (p *Processor) Handle(ctx context.Context, ev events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var resp events.DynamoDBEventResponse
	processed := 0

	for _, rec := range ev.Records {
		if err := p.processRecord(ctx, rec); err != nil {
			p.logger.Error("change record failed",
				zap.String("event_id", rec.EventID),
				zap.String("sequence_number", rec.Change.SequenceNumber),
				zap.Error(err),
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
				ItemIdentifier: rec.Change.SequenceNumber,
			})
			break
		}
		processed++
	}

	p.metrics.Count(ctx, metrics.RecordsProcessed, float64(processed), nil)
	if len(resp.BatchItemFailures) > 0 {
		p.metrics.Count(ctx, metrics.RecordsFailed, float64(len(ev.Records)-processed), nil)
	}
	p.logger.Info("change batch handled",
		zap.Int("records", len(ev.Records)),
		zap.Int("processed", processed),
	)
	return resp, nil
}

func (p *Processor) processRecord(ctx context.Context, rec events.DynamoDBEventRecord) error {
	event := toChangeEvent(rec)
	if event.EntityType == "" {
		p.logger.Warn("skipping change for unknown key", zap.String("pk", event.PartitionKey))
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	attrs := map[string]string{
		"entity_type": event.EntityType,
		"event_name":  event.EventName,
	}
	var groupID, dedupID string
	if p.fifo {
		groupID, dedupID = event.PartitionKey, event.EventID
	}
	if err := p.publisher.Publish(ctx, string(body), attrs, groupID, dedupID); err != nil {
		return err
	}
	p.logger.Debug("change forwarded",
		zap.String("entity_type", event.EntityType),
		zap.String("event_name", event.EventName),
		zap.String("pk", event.PartitionKey),
	)
	return nil
}

func toChangeEvent(rec events.DynamoDBEventRecord) ChangeEvent {
	keys := rec.Change.Keys
	pk, sk := keys[store.AttrPK], keys[store.AttrSK]

	e := ChangeEvent{
		EventID:        rec.EventID,
		EventName:      rec.EventName,
		SequenceNumber: rec.Change.SequenceNumber,
		NewImage:       imageToPlain(rec.Change.NewImage),
		OldImage:       imageToPlain(rec.Change.OldImage),
	}
	if at := rec.Change.ApproximateCreationDateTime; !at.IsZero() {
		e.ApproximateAt = at.Unix()
	}
	if pk.DataType() == events.DataTypeString {
		e.PartitionKey = pk.String()
	}
	if sk.DataType() == events.DataTypeString {
		e.SortKey = sk.String()
	}
	e.EntityType = store.EntityTypeOf(e.PartitionKey)
	return e
}
