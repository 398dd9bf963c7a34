package contract

import (
	"context"

	"github.com/supawit-m/deskmesh/model"
)

// Agent is one coordination participant. Handle performs a single
// action keyed by the content's action tag and answers with a response
// envelope. Agent-level failures are recovered into in-band
// success:false payloads; the error return is reserved for cases where
// no response envelope could be produced at all.
type Agent interface {
	Type() AgentType
	Card() Card
	Handle(ctx context.Context, msg Envelope) (Envelope, error)
}

// Sender delivers an envelope to the addressed participant and blocks
// for its response. Implementations must be interchangeable: the
// dispatcher never branches on which strategy is active.
type Sender interface {
	Send(ctx context.Context, to AgentType, msg Envelope) (Envelope, error)
}

// DataBackend is the tool-call surface the specialists use to reach
// storage. GetCustomer reports a missing row as (nil, nil), not as an
// error.
type DataBackend interface {
	GetCustomer(ctx context.Context, customerID int64) (*model.Customer, error)
	ListCustomers(ctx context.Context, status string, limit int) ([]model.Customer, error)
	UpdateCustomer(ctx context.Context, customerID int64, data map[string]string) (bool, error)
	CreateTicket(ctx context.Context, customerID int64, issue, priority string) (*model.Ticket, error)
	CustomerHistory(ctx context.Context, customerID int64) ([]model.Ticket, error)
}
