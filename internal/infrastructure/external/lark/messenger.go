package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Receive id types accepted by the IM API
const (
	ReceiveByOpenID = "open_id"
	ReceiveByEmail  = "email"
)

// MessageCreator is the IM send call Messenger builds on
type MessageCreator interface {
	CreateMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// Messenger sends text messages to Lark users
type Messenger struct {
	creator MessageCreator
	logger  *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(creator MessageCreator, logger *zap.Logger) *Messenger {
	return &Messenger{
		creator: creator,
		logger:  logger,
	}
}

// SendText sends a plain text message
func (m *Messenger) SendText(ctx context.Context, receiveIDType, receiveID, text string) error {
	if receiveID == "" {
		return fmt.Errorf("receive id cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("content cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	messageID, err := m.creator.CreateMessage(ctx, receiveIDType, receiveID, "text", string(content))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	m.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id_type", receiveIDType))
	return nil
}
