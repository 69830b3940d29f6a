package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

type sentMsg struct {
	subject string
	data    []byte
}

type fakeConn struct {
	sent   []sentMsg
	err    error
	closed bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMsg{subject: subj, data: data})
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestPublishImportCompleted(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, quietLogger())

	summary := models.ImportSummary{Total: 3, Imported: 1, Updated: 1, Errors: 1, Outcome: models.ImportOutcomePartial}
	results := []models.ImportResult{
		{SKU: "A", Status: models.ImportStatusCreated, ProductID: "p-1"},
		{SKU: "B", Status: models.ImportStatusUpdated, ProductID: "p-2"},
		{SKU: "C", Status: models.ImportStatusError},
	}
	p.PublishImportCompleted(context.Background(), "tenant-a", "user-1", summary, results)

	require.Len(t, fc.sent, 1)
	assert.Equal(t, SubjectImportCompleted, fc.sent[0].subject)

	var event ImportCompletedEvent
	require.NoError(t, json.Unmarshal(fc.sent[0].data, &event))
	assert.Equal(t, "tenant-a", event.TenantID)
	assert.Equal(t, models.ImportOutcomePartial, event.Outcome)
	assert.Equal(t, []string{"p-1", "p-2"}, event.ProductIDs)
	assert.NotEmpty(t, event.EventID)
}

func TestPublishVariantsChanged(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, quietLogger())
	productID := uuid.New()
	vid := uuid.New()

	p.PublishVariantsChanged(context.Background(), "tenant-a", "", productID,
		[]models.OperationOutcome{{Index: 0, Action: models.VariantActionCreate, VariantID: vid}}, 2)

	require.Len(t, fc.sent, 1)
	var event VariantsBatchAppliedEvent
	require.NoError(t, json.Unmarshal(fc.sent[0].data, &event))
	assert.Equal(t, productID, event.ProductID)
	assert.Equal(t, 1, event.Applied)
	assert.Equal(t, 2, event.Failed)
	assert.Equal(t, []uuid.UUID{vid}, event.VariantIDs)
}

func TestPublisher_FailuresAreSwallowed(t *testing.T) {
	fc := &fakeConn{err: errors.New("nats: connection closed")}
	p := newPublisher(fc, quietLogger())

	assert.NotPanics(t, func() {
		p.PublishImportCompleted(context.Background(), "tenant-a", "", models.ImportSummary{}, nil)
	})
	assert.Empty(t, fc.sent)

	p.Close()
	assert.True(t, fc.closed)
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() {
		p.PublishImportCompleted(context.Background(), "t", "", models.ImportSummary{}, nil)
		p.PublishVariantsChanged(context.Background(), "t", "", uuid.New(), nil, 0)
		p.Close()
	})
}

func TestNewPublisher_RequiresURL(t *testing.T) {
	_, err := NewPublisher("", nil)
	assert.Error(t, err)
}
