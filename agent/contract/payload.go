package contract

import (
	"encoding/json"
	"fmt"

	"github.com/supawit-m/deskmesh/model"
)

// Action tags the request payload variants. Every specialist dispatches
// on exactly one of these; anything else is answered with an in-band
// unknown-action failure.
type Action string

const (
	// Customer-data agent actions.
	ActionGetCustomer         Action = "get_customer"
	ActionListCustomers       Action = "list_customers"
	ActionUpdateCustomer      Action = "update_customer"
	ActionGetCustomerHistory  Action = "get_customer_history"
	ActionGetPremiumCustomers Action = "get_premium_customers"

	// Support agent actions.
	ActionHandleSupport     Action = "handle_support"
	ActionCreateTicket      Action = "create_ticket"
	ActionTicketsByPriority Action = "get_tickets_by_priority"
	ActionCheckCanHandle    Action = "check_can_handle"
	ActionOpenTicketsFor    Action = "get_open_tickets_for_customers"
)

/* ----------------------------- request args ----------------------------- */

type GetCustomerArgs struct {
	CustomerID int64 `json:"customer_id"`
}

type ListCustomersArgs struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

type UpdateCustomerArgs struct {
	CustomerID int64             `json:"customer_id"`
	Data       map[string]string `json:"data"`
}

type CustomerHistoryArgs struct {
	CustomerID int64 `json:"customer_id"`
}

type PremiumCustomersArgs struct{}

type HandleSupportArgs struct {
	Query        string          `json:"query"`
	CustomerInfo *model.Customer `json:"customer_info,omitempty"`
}

type CreateTicketArgs struct {
	CustomerID int64  `json:"customer_id"`
	Issue      string `json:"issue"`
	Priority   string `json:"priority"`
}

type TicketsByPriorityArgs struct {
	Priority    string  `json:"priority"`
	CustomerIDs []int64 `json:"customer_ids,omitempty"`
}

type CheckCanHandleArgs struct {
	Query string `json:"query"`
}

type OpenTicketsForArgs struct {
	CustomerIDs []int64 `json:"customer_ids"`
}

/* ---------------------------- response bodies ---------------------------- */

type CustomerResult struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Customer *model.Customer `json:"customer,omitempty"`
}

type CustomersResult struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	Customers []model.Customer `json:"customers"`
	Count     int              `json:"count"`
}

type UpdateResult struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	CustomerID int64  `json:"customer_id"`
}

type HistoryResult struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	History []model.Ticket `json:"history"`
	Count   int            `json:"count"`
}

type TicketResult struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Ticket  *model.Ticket `json:"ticket,omitempty"`
}

type TicketsResult struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Tickets []model.Ticket `json:"tickets"`
	Count   int            `json:"count"`
}

type CanHandleResult struct {
	CanHandle bool   `json:"can_handle"`
	Reason    string `json:"reason"`
}

type SupportResult struct {
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
	Response     string          `json:"response,omitempty"`
	CustomerTier string          `json:"customer_tier,omitempty"`
	Actions      []string        `json:"actions,omitempty"`
	CustomerInfo *model.Customer `json:"customer_info,omitempty"`
}

// FailureResult is the in-band shape for unknown actions and recovered
// agent-level failures.
type FailureResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

/* ------------------------------ wire helpers ----------------------------- */

// EncodeRequest flattens typed args into the open content map with the
// action tag injected, e.g. {"action":"get_customer","customer_id":5}.
func EncodeRequest(action Action, args any) (json.RawMessage, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal args for action=%s: %v", ErrBadContent, action, err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: args for action=%s must encode to an object: %v", ErrBadContent, action, err)
	}
	tag, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal action tag: %v", ErrBadContent, err)
	}
	fields["action"] = tag

	content, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal content for action=%s: %v", ErrBadContent, action, err)
	}
	return content, nil
}

// ActionOf extracts the action tag from a request content payload.
func ActionOf(content json.RawMessage) (Action, error) {
	var probe struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadContent, err)
	}
	return probe.Action, nil
}

// Decode unmarshals a content payload into the typed variant the caller
// expects for the action it issued.
func Decode[T any](content json.RawMessage) (T, error) {
	var out T
	if len(content) == 0 {
		return out, fmt.Errorf("%w: empty content", ErrBadContent)
	}
	if err := json.Unmarshal(content, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrBadContent, err)
	}
	return out, nil
}

// MustEncode is for payloads built from local structs, where a marshal
// failure is a programming error.
func MustEncode(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("contract: encode payload: %v", err))
	}
	return raw
}
