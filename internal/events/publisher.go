// Package events provides NATS event publishing for the reconciliation engine
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	streamName = "STOCK"

	SubjectAdjustmentApproved  = "stock.adjustment.approved"
	SubjectAdjustmentRejected  = "stock.adjustment.rejected"
	SubjectTransferShipped     = "stock.transfer.shipped"
	SubjectTransferReceipt     = "stock.transfer.receipt"
	SubjectTransferCompleted   = "stock.transfer.completed"
	SubjectCycleCountCompleted = "stock.cycle_count.completed"
)

// StockEvent is the envelope published on every subject. LineDeltas lets
// downstream consumers (alerting, replenishment planning) react without
// re-reading the ledger.
type StockEvent struct {
	EventID    uuid.UUID   `json:"eventId"`
	EventType  string      `json:"eventType"`
	OccurredAt time.Time   `json:"occurredAt"`
	SourceID   uuid.UUID   `json:"sourceId"`
	Number     string      `json:"number,omitempty"`
	Location   string      `json:"location,omitempty"`
	ToLocation string      `json:"toLocation,omitempty"`
	Actor      string      `json:"actor,omitempty"`
	LineDeltas []LineDelta `json:"lineDeltas,omitempty"`
}

// LineDelta is one product's ledger change within an event
type LineDelta struct {
	ProductID       string `json:"productId"`
	Delta           int    `json:"delta"`
	ResultingOnHand int    `json:"resultingOnHand"`
}

// ReconciliationEventPublisher publishes stock events to NATS JetStream.
// Absence of NATS degrades gracefully: the engine commits and moves on,
// publishing is best effort.
type ReconciliationEventPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewReconciliationEventPublisher connects to NATS and ensures the stock
// stream exists
func NewReconciliationEventPublisher(natsURL string, logger *logrus.Logger) (*ReconciliationEventPublisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("stock-reconciliation-publisher"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(streamName); err != nil {
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{"stock.>"},
			Storage:  nats.FileStorage,
		}); err != nil {
			log.WithError(err).Warn("Failed to ensure stock stream exists")
		}
	}

	return &ReconciliationEventPublisher{
		nc:     nc,
		js:     js,
		logger: log.WithField("component", "stock-events"),
	}, nil
}

// Close drains the NATS connection
func (p *ReconciliationEventPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

func (p *ReconciliationEventPublisher) publish(ctx context.Context, subject string, event *StockEvent) error {
	event.EventID = uuid.New()
	event.EventType = subject
	event.OccurredAt = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject":  subject,
			"sourceId": event.SourceID,
		}).WithError(err).Error("Failed to publish stock event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"subject":  subject,
		"sourceId": event.SourceID,
	}).Info("Published stock event")
	return nil
}

// PublishAdjustmentApproved publishes a stock.adjustment.approved event
func (p *ReconciliationEventPublisher) PublishAdjustmentApproved(ctx context.Context, sourceID uuid.UUID, number, location, actor string, deltas []LineDelta) error {
	return p.publish(ctx, SubjectAdjustmentApproved, &StockEvent{
		SourceID:   sourceID,
		Number:     number,
		Location:   location,
		Actor:      actor,
		LineDeltas: deltas,
	})
}

// PublishAdjustmentRejected publishes a stock.adjustment.rejected event
func (p *ReconciliationEventPublisher) PublishAdjustmentRejected(ctx context.Context, sourceID uuid.UUID, number, location, actor string) error {
	return p.publish(ctx, SubjectAdjustmentRejected, &StockEvent{
		SourceID: sourceID,
		Number:   number,
		Location: location,
		Actor:    actor,
	})
}

// PublishTransferShipped publishes a stock.transfer.shipped event
func (p *ReconciliationEventPublisher) PublishTransferShipped(ctx context.Context, sourceID uuid.UUID, number, fromLocation, toLocation, actor string, deltas []LineDelta) error {
	return p.publish(ctx, SubjectTransferShipped, &StockEvent{
		SourceID:   sourceID,
		Number:     number,
		Location:   fromLocation,
		ToLocation: toLocation,
		Actor:      actor,
		LineDeltas: deltas,
	})
}

// PublishTransferReceipt publishes a stock.transfer.receipt event
func (p *ReconciliationEventPublisher) PublishTransferReceipt(ctx context.Context, sourceID uuid.UUID, number, toLocation, actor string, deltas []LineDelta) error {
	return p.publish(ctx, SubjectTransferReceipt, &StockEvent{
		SourceID:   sourceID,
		Number:     number,
		Location:   toLocation,
		Actor:      actor,
		LineDeltas: deltas,
	})
}

// PublishTransferCompleted publishes a stock.transfer.completed event
func (p *ReconciliationEventPublisher) PublishTransferCompleted(ctx context.Context, sourceID uuid.UUID, number, toLocation, actor string) error {
	return p.publish(ctx, SubjectTransferCompleted, &StockEvent{
		SourceID: sourceID,
		Number:   number,
		Location: toLocation,
		Actor:    actor,
	})
}

// PublishCycleCountCompleted publishes a stock.cycle_count.completed event
func (p *ReconciliationEventPublisher) PublishCycleCountCompleted(ctx context.Context, sourceID uuid.UUID, number, location string, deltas []LineDelta) error {
	return p.publish(ctx, SubjectCycleCountCompleted, &StockEvent{
		SourceID:   sourceID,
		Number:     number,
		Location:   location,
		LineDeltas: deltas,
	})
}
