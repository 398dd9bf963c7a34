package contract

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AgentType string

const (
	AgentTypeRouter       AgentType = "router"
	AgentTypeCustomerData AgentType = "customer_data"
	AgentTypeSupport      AgentType = "support"
)

type MessageType string

const (
	MessageTypeQuery        MessageType = "query"
	MessageTypeRequest      MessageType = "request"
	MessageTypeResponse     MessageType = "response"
	MessageTypeEscalation   MessageType = "escalation"
	MessageTypeCoordination MessageType = "coordination"
)

// Envelope is the unit exchanged between coordination participants.
// Content is carried as canonical JSON bytes in both transport
// strategies, so a direct in-process hop and an HTTP hop deliver the
// same logical message. Envelopes are treated as immutable once sent.
type Envelope struct {
	From      AgentType       `json:"from"`
	To        AgentType       `json:"to"`
	Type      MessageType     `json:"type"`
	Content   json.RawMessage `json:"content"`
	QueryID   string          `json:"query_id"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope stamps the message and assigns a fresh correlation id
// when the caller does not supply one.
func NewEnvelope(from, to AgentType, typ MessageType, content json.RawMessage, queryID string) Envelope {
	if queryID == "" {
		queryID = uuid.NewString()
	}
	return Envelope{
		From:      from,
		To:        to,
		Type:      typ,
		Content:   content,
		QueryID:   queryID,
		Timestamp: time.Now().UTC(),
	}
}

// Reply builds a response envelope addressed back to the sender,
// keeping the correlation id.
func (e Envelope) Reply(typ MessageType, content json.RawMessage) Envelope {
	return NewEnvelope(e.To, e.From, typ, content, e.QueryID)
}
