package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatMessage MessageType = "chat_message"
	TypeChatReply   MessageType = "chat_reply"
	TypeSystemEvent MessageType = "system_event"
	TypeErrorEvent  MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatMessage is one user message sent over the chat socket. RequestID is
// echoed back on the reply so bridges can correlate out-of-order answers.
type ChatMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	UserID    string      `json:"user_id"`
	Message   string      `json:"message"`
}

type RelatedProduct struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Similarity float32 `json:"similarity"`
}

type ChatReply struct {
	Type            MessageType      `json:"type"`
	RequestID       string           `json:"request_id"`
	UserID          string           `json:"user_id"`
	Response        string           `json:"response"`
	RelatedProducts []RelatedProduct `json:"related_products"`
	Timestamp       string           `json:"timestamp"`
}

type SystemEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.UserID) == "" || strings.TrimSpace(msg.Message) == "" {
			return nil, errors.New("invalid chat_message: user_id and message are required")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
