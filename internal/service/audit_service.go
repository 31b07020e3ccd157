package service

import (
	"context"
	"encoding/json"

	"ai-diagnosis-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IAuditService consumes diagnosis events from the in-process bus and writes
// them to the audit log.
type IAuditService interface {
	Consume(ctx context.Context) error
}

type auditService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	auditLogger logger.ILogger
}

func NewAuditService(pubSub *gochannel.GoChannel, topicName string, auditLogger logger.ILogger) IAuditService {
	return &auditService{
		pubSub:      pubSub,
		topicName:   topicName,
		auditLogger: auditLogger,
	}
}

func (as *auditService) Consume(ctx context.Context) error {
	messages, err := as.pubSub.Subscribe(ctx, as.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			as.processMessage(msg)
		}
	}()

	return nil
}

func (as *auditService) processMessage(msg *message.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		as.auditLogger.Warn("audit", "Failed to unmarshal event payload", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	eventType, _ := payload["type"].(string)
	if eventType == "" {
		eventType = "UNKNOWN"
	}
	as.auditLogger.Info("audit", eventType, payload)
	msg.Ack()
}
