package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	noopLogger
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Info(module, message string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
}

func (l *recordingLogger) logged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.messages))
	copy(out, l.messages)
	return out
}

func TestAuditServiceConsume(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	rec := &recordingLogger{}
	svc := NewAuditService(pubSub, "TEST_EVENTS", rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Consume(ctx))

	payload := []byte(`{"type": "DIAGNOSIS_COMPLETED", "session_id": "s1"}`)
	require.NoError(t, pubSub.Publish("TEST_EVENTS", message.NewMessage(watermill.NewUUID(), payload)))

	// Garbage payloads are acked and logged as warnings, not retried.
	require.NoError(t, pubSub.Publish("TEST_EVENTS", message.NewMessage(watermill.NewUUID(), []byte("{broken"))))

	assert.Eventually(t, func() bool {
		for _, m := range rec.logged() {
			if m == "DIAGNOSIS_COMPLETED" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
