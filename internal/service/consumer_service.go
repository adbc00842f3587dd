package service

import (
	"context"
	"encoding/json"
	"log"

	"rag-orchestrator-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub          *gochannel.GoChannel
	topicName       string
	documentService IDocumentService
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	documentService IDocumentService,
) IConsumerService {
	return &consumerService{
		pubSub:          pubSub,
		topicName:       topicName,
		documentService: documentService,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishProcessDocumentMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing document %s for tenant %s", payload.DocumentId, payload.TenantId)

	if err := cs.documentService.Process(ctx, payload.TenantId, payload.DocumentId); err != nil {
		log.Printf("[ERROR] Failed to process document %s: %v", payload.DocumentId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}
