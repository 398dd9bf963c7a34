// Package support implements the support specialist: canned response
// selection, ticket queries fanned out through the tool-call backend,
// and the capability check the router consults before escalating.
package support

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
	"github.com/supawit-m/deskmesh/model"
)

// privilegedCustomerID maps to the "premium" service tier.
const privilegedCustomerID = 12345

type Agent struct {
	backend contractx.DataBackend
	card    contractx.Card
}

func New(backend contractx.DataBackend) (*Agent, error) {
	if backend == nil {
		return nil, fmt.Errorf("data backend is required")
	}
	return &Agent{
		backend: backend,
		card:    buildCard(),
	}, nil
}

func (a *Agent) Type() contractx.AgentType {
	return contractx.AgentTypeSupport
}

func (a *Agent) Card() contractx.Card {
	return a.card
}

func (a *Agent) Handle(ctx context.Context, msg contractx.Envelope) (contractx.Envelope, error) {
	log.Info().
		Str("type", string(msg.Type)).
		Str("from", string(msg.From)).
		Str("query_id", msg.QueryID).
		Msg("support agent received message")

	content := a.handleAction(ctx, msg)

	log.Info().Str("to", string(msg.From)).Msg("support agent sending response")
	return msg.Reply(contractx.MessageTypeResponse, content), nil
}

func (a *Agent) handleAction(ctx context.Context, msg contractx.Envelope) []byte {
	action, err := contractx.ActionOf(msg.Content)
	if err != nil {
		return failure(fmt.Sprintf("malformed content: %v", err))
	}

	switch action {
	case contractx.ActionHandleSupport:
		args, err := contractx.Decode[contractx.HandleSupportArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(supportResponse(args.Query, args.CustomerInfo))

	case contractx.ActionCreateTicket:
		args, err := contractx.Decode[contractx.CreateTicketArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		if args.Priority == "" {
			args.Priority = model.PriorityMedium
		}
		ticket, err := a.backend.CreateTicket(ctx, args.CustomerID, args.Issue, args.Priority)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(contractx.TicketResult{Success: true, Ticket: ticket})

	case contractx.ActionTicketsByPriority:
		args, err := contractx.Decode[contractx.TicketsByPriorityArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		tickets, err := a.ticketsByPriority(ctx, args.Priority, args.CustomerIDs)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(contractx.TicketsResult{
			Success: true,
			Tickets: tickets,
			Count:   len(tickets),
		})

	case contractx.ActionCheckCanHandle:
		args, err := contractx.Decode[contractx.CheckCanHandleArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(checkCanHandle(args.Query))

	case contractx.ActionOpenTicketsFor:
		args, err := contractx.Decode[contractx.OpenTicketsForArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		tickets, err := a.openTicketsFor(ctx, args.CustomerIDs)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(contractx.TicketsResult{
			Success: true,
			Tickets: tickets,
			Count:   len(tickets),
		})

	default:
		return failure(fmt.Sprintf("Unknown action: %s", action))
	}
}

// ticketsByPriority fans out per-customer history fetches and filters
// client-side; the backing store has no priority index.
func (a *Agent) ticketsByPriority(ctx context.Context, priority string, customerIDs []int64) ([]model.Ticket, error) {
	ids := customerIDs
	if len(ids) == 0 {
		customers, err := a.backend.ListCustomers(ctx, model.CustomerActive, 1000)
		if err != nil {
			return nil, err
		}
		for _, c := range customers {
			ids = append(ids, c.ID)
		}
	}

	var matched []model.Ticket
	for _, id := range ids {
		history, err := a.backend.CustomerHistory(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, t := range history {
			if t.Priority == priority {
				matched = append(matched, t)
			}
		}
	}
	return matched, nil
}

// openTicketsFor fetches each customer's history sequentially and keeps
// only open tickets.
func (a *Agent) openTicketsFor(ctx context.Context, customerIDs []int64) ([]model.Ticket, error) {
	var open []model.Ticket
	for _, id := range customerIDs {
		history, err := a.backend.CustomerHistory(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, t := range history {
			if t.Status == model.TicketOpen {
				open = append(open, t)
			}
		}
	}
	return open, nil
}

// checkCanHandle keeps the long-standing boolean as shipped: because of
// the "or", any query mentioning "billing" passes, so the only refusal
// is a refund query with no billing context.
func checkCanHandle(query string) contractx.CanHandleResult {
	lower := strings.ToLower(query)
	canHandle := !strings.Contains(lower, "refund") || strings.Contains(lower, "billing")

	reason := "I can handle this"
	if !canHandle {
		reason = "May need billing context"
	}
	return contractx.CanHandleResult{CanHandle: canHandle, Reason: reason}
}

func supportResponse(query string, customerInfo *model.Customer) contractx.SupportResult {
	lower := strings.ToLower(query)

	var responseText string
	var actions []string

	switch {
	case strings.Contains(lower, "upgrade") || strings.Contains(lower, "premium"):
		responseText = "I can help you upgrade your account! Our premium tier includes priority support, advanced features, and exclusive benefits."
		actions = append(actions, "Account upgrade assistance provided")
	case strings.Contains(lower, "cancel"):
		responseText = "I understand you'd like to cancel your subscription. Before we proceed, let me address any concerns you might have. What's the main reason for cancellation?"
		actions = append(actions, "Cancellation inquiry handled")
	case strings.Contains(lower, "help") || strings.Contains(lower, "support"):
		responseText = "I'm here to help! What specific issue are you experiencing? I can assist with account management, technical problems, billing questions, and more."
	case strings.Contains(lower, "billing"):
		responseText = "I can help with billing questions. Let me look into your account details to provide accurate information."
		actions = append(actions, "Billing inquiry routed")
	default:
		responseText = "I'm here to assist you. How can I help today?"
	}

	tier := ""
	if customerInfo != nil {
		tier = "standard"
		if customerInfo.ID == privilegedCustomerID {
			tier = "premium"
		}
	}

	return contractx.SupportResult{
		Success:      true,
		Response:     responseText,
		CustomerTier: tier,
		Actions:      actions,
		CustomerInfo: customerInfo,
	}
}

func failure(message string) []byte {
	return contractx.MustEncode(contractx.FailureResult{Success: false, Error: message})
}

func buildCard() contractx.Card {
	return contractx.Card{
		AgentID:     "support_agent",
		Name:        "Support Agent",
		Description: "Specialist agent for customer support operations",
		Version:     "1.0.0",
		Capabilities: []contractx.Capability{
			contractx.CapabilitySupportResponse,
			contractx.CapabilityTicketManagement,
		},
		Tasks: []contractx.TaskSpec{
			{
				Name:        "handle_support",
				Description: "Generate a support response for a customer query",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query":         map[string]any{"type": "string"},
						"customer_info": map[string]any{"type": "object"},
					},
					"required": []string{"query"},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
			{
				Name:        "create_ticket",
				Description: "Create a new support ticket",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"customer_id": map[string]any{"type": "integer"},
						"issue":       map[string]any{"type": "string"},
						"priority":    map[string]any{"type": "string"},
					},
					"required": []string{"customer_id", "issue"},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
			{
				Name:        "get_tickets_by_priority",
				Description: "List tickets at a priority, optionally scoped to customers",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"priority":     map[string]any{"type": "string"},
						"customer_ids": map[string]any{"type": "array"},
					},
					"required": []string{"priority"},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
			{
				Name:        "check_can_handle",
				Description: "Heuristic capability check for a query",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{"type": "string"},
					},
					"required": []string{"query"},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
