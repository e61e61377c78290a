package proto

import (
	"bytes"
	"encoding/json"
)

// Inbound realtime event names.
const (
	EventNewMessage          = "newMessage"
	EventMessageUpdated      = "messageUpdated"
	EventMessageDeleted      = "messageDeleted"
	EventConversationUpdated = "conversationUpdated"
)

// Outbound realtime event names.
const (
	EmitSendMessage = "sendMessage"
)

// Envelope is the wire format for realtime traffic in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MessageUpdates is the patch carried by a messageUpdated event. Only the
// fields present are applied.
type MessageUpdates struct {
	IsRead  *bool   `json:"isRead,omitempty"`
	Content *string `json:"content,omitempty"`
}

// MessageUpdatedData is the payload of a messageUpdated event.
type MessageUpdatedData struct {
	MessageID string         `json:"messageId"`
	Updates   MessageUpdates `json:"updates"`
}

// DecodeMessageDeleted extracts the message ID from a messageDeleted
// payload, which arrives either as a bare string or wrapped in an object.
func DecodeMessageDeleted(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	if data[0] == '"' {
		var id string
		if json.Unmarshal(data, &id) != nil {
			return ""
		}
		return id
	}
	var obj struct {
		MessageID string `json:"messageId"`
		ID        string `json:"_id"`
	}
	if json.Unmarshal(data, &obj) != nil {
		return ""
	}
	if obj.MessageID != "" {
		return obj.MessageID
	}
	return obj.ID
}
