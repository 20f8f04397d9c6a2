package irisfast

// Message is an inbound chat event pushed over the Iris WebSocket.
type Message struct {
	Msg    string       `json:"msg"`
	Room   string       `json:"room"`
	Sender *string      `json:"sender,omitempty"`
	JSON   *MessageJSON `json:"json,omitempty"`
}

type MessageJSON struct {
	UserID   string `json:"user_id,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
	Message  string `json:"message,omitempty"`
	Type     string `json:"type,omitempty"`
	RoomName string `json:"room_name,omitempty"`
}

// SenderID prefers the structured user id over the display name.
func (m *Message) SenderID() string {
	if m == nil {
		return ""
	}
	if m.JSON != nil && m.JSON.UserID != "" {
		return m.JSON.UserID
	}
	if m.Sender != nil {
		return *m.Sender
	}
	return ""
}

// ReplyRequest is the /reply body, also used as the WebSocket egress frame.
type ReplyRequest struct {
	Type string `json:"type"` // "text" or "image"
	Room string `json:"room"`
	Data string `json:"data"`
}

type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateDisconnected:
		return "disconnected"
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
