package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/models"
)

// Subjects
const (
	SubjectImportCompleted      = "catalog.import.completed"
	SubjectVariantsBatchApplied = "catalog.variants.batch_applied"
)

// ImportCompletedEvent summarises one import run
type ImportCompletedEvent struct {
	EventID    string               `json:"eventId"`
	EventType  string               `json:"eventType"`
	TenantID   string               `json:"tenantId"`
	ActorID    string               `json:"actorId,omitempty"`
	Outcome    models.ImportOutcome `json:"outcome"`
	Total      int                  `json:"total"`
	Imported   int                  `json:"imported"`
	Updated    int                  `json:"updated"`
	Skipped    int                  `json:"skipped"`
	Errors     int                  `json:"errors"`
	ProductIDs []string             `json:"productIds,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// VariantsBatchAppliedEvent reports the result of a variant batch on one product
type VariantsBatchAppliedEvent struct {
	EventID    string      `json:"eventId"`
	EventType  string      `json:"eventType"`
	TenantID   string      `json:"tenantId"`
	ActorID    string      `json:"actorId,omitempty"`
	ProductID  uuid.UUID   `json:"productId"`
	Applied    int         `json:"applied"`
	Failed     int         `json:"failed"`
	VariantIDs []uuid.UUID `json:"variantIds,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// conn is the subset of *nats.Conn the publisher needs
type conn interface {
	Publish(subj string, data []byte) error
	Close()
}

// Publisher emits catalog events. A nil *Publisher is valid and drops events.
type Publisher struct {
	conn   conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS at natsURL
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS_URL not set")
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("catalog-import-service"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newPublisher(nc, logger), nil
}

func newPublisher(c conn, logger *logrus.Logger) *Publisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Publisher{
		conn:   c,
		logger: logger.WithField("component", "catalog-events"),
	}
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

// PublishImportCompleted publishes a catalog.import.completed event
func (p *Publisher) PublishImportCompleted(ctx context.Context, tenantID, actorID string, summary models.ImportSummary, results []models.ImportResult) {
	if p == nil {
		return
	}
	event := ImportCompletedEvent{
		EventID:   uuid.NewString(),
		EventType: SubjectImportCompleted,
		TenantID:  tenantID,
		ActorID:   actorID,
		Outcome:   summary.Outcome,
		Total:     summary.Total,
		Imported:  summary.Imported,
		Updated:   summary.Updated,
		Skipped:   summary.Skipped,
		Errors:    summary.Errors,
		Timestamp: time.Now().UTC(),
	}
	for _, r := range results {
		if r.ProductID != "" {
			event.ProductIDs = append(event.ProductIDs, r.ProductID)
		}
	}
	p.publish(SubjectImportCompleted, tenantID, event)
}

// PublishVariantsChanged publishes a catalog.variants.batch_applied event
func (p *Publisher) PublishVariantsChanged(ctx context.Context, tenantID, actorID string, productID uuid.UUID, outcomes []models.OperationOutcome, failed int) {
	if p == nil {
		return
	}
	event := VariantsBatchAppliedEvent{
		EventID:   uuid.NewString(),
		EventType: SubjectVariantsBatchApplied,
		TenantID:  tenantID,
		ActorID:   actorID,
		ProductID: productID,
		Applied:   len(outcomes),
		Failed:    failed,
		Timestamp: time.Now().UTC(),
	}
	for _, o := range outcomes {
		event.VariantIDs = append(event.VariantIDs, o.VariantID)
	}
	p.publish(SubjectVariantsBatchApplied, tenantID, event)
}

// publish never fails the caller; errors are logged
func (p *Publisher) publish(subject, tenantID string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithFields(logrus.Fields{
			"subject":  subject,
			"tenantID": tenantID,
		}).WithError(err).Error("Failed to publish catalog event")
		return
	}
	p.logger.WithFields(logrus.Fields{
		"subject":  subject,
		"tenantID": tenantID,
	}).Debug("Catalog event published")
}
