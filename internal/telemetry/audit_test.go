package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.messaging", "messaging-service", "test")

	userID := int64(42)
	publisher.On("Publish", mock.Anything, "audit.messaging", mock.MatchedBy(func(event any) bool {
		envelope, ok := event.(AuditEnvelope)
		return ok &&
			envelope.SchemaVersion == 1 &&
			envelope.EventType == "audit_log" &&
			envelope.Service == "messaging-service" &&
			envelope.RequestID == "req-1" &&
			envelope.UserID != nil && *envelope.UserID == 42 &&
			envelope.Payload.Level == "INFO" &&
			envelope.Payload.Text == "Message sent"
	}), mock.Anything).Return(nil).Once()

	emitter.Emit(context.Background(), "INFO", "Message sent", "req-1", &userID)

	publisher.AssertExpectations(t)
}

func TestEmitSwallowsPublishFailure(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.messaging", "messaging-service", "test")
	publisher.On("Publish", mock.Anything, "audit.messaging", mock.Anything, mock.Anything).
		Return(errors.New("broker down")).Once()

	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), "ERROR", "internal error", "req-2", nil)
	})
	publisher.AssertExpectations(t)
}

func TestEmitNilSafe(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "noop", "req-3", nil)
	})

	withoutBroker := NewAuditEmitter(nil, "audit.messaging", "messaging-service", "test")
	assert.NotPanics(t, func() {
		withoutBroker.Emit(context.Background(), "INFO", "noop", "req-4", nil)
	})
}
