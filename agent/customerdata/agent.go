// Package customerdata implements the specialist for customer records.
// Every data-bearing action delegates to the tool-call backend; every
// failure is answered in-band so the router only ever sees response
// envelopes.
package customerdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
)

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
	return contractx.AgentTypeCustomerData
}

func (a *Agent) Card() contractx.Card {
	return a.card
}

func (a *Agent) Handle(ctx context.Context, msg contractx.Envelope) (contractx.Envelope, error) {
	log.Info().
		Str("type", string(msg.Type)).
		Str("from", string(msg.From)).
		Str("query_id", msg.QueryID).
		Msg("customer-data agent received message")

	content := a.handleAction(ctx, msg)

	log.Info().Str("to", string(msg.From)).Msg("customer-data agent sending response")
	return msg.Reply(contractx.MessageTypeResponse, content), nil
}

func (a *Agent) handleAction(ctx context.Context, msg contractx.Envelope) []byte {
	action, err := contractx.ActionOf(msg.Content)
	if err != nil {
		return failure(fmt.Sprintf("malformed content: %v", err))
	}

	switch action {
	case contractx.ActionGetCustomer:
		args, err := contractx.Decode[contractx.GetCustomerArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		customer, err := a.backend.GetCustomer(ctx, args.CustomerID)
		if err != nil {
			return failure(err.Error())
		}
		if customer == nil {
			return failure(fmt.Sprintf("Customer %d not found", args.CustomerID))
		}
		return contractx.MustEncode(contractx.CustomerResult{Success: true, Customer: customer})

	case contractx.ActionListCustomers:
		args, err := contractx.Decode[contractx.ListCustomersArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		if args.Status == "" {
			args.Status = "active"
		}
		if args.Limit <= 0 {
			args.Limit = 100
		}
		customers, err := a.backend.ListCustomers(ctx, args.Status, args.Limit)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(contractx.CustomersResult{
			Success:   true,
			Customers: customers,
			Count:     len(customers),
		})

	case contractx.ActionUpdateCustomer:
		args, err := contractx.Decode[contractx.UpdateCustomerArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		ok, err := a.backend.UpdateCustomer(ctx, args.CustomerID, args.Data)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(contractx.UpdateResult{Success: ok, CustomerID: args.CustomerID})

	case contractx.ActionGetCustomerHistory:
		args, err := contractx.Decode[contractx.CustomerHistoryArgs](msg.Content)
		if err != nil {
			return failure(err.Error())
		}
		history, err := a.backend.CustomerHistory(ctx, args.CustomerID)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(contractx.HistoryResult{
			Success: true,
			History: history,
			Count:   len(history),
		})

	case contractx.ActionGetPremiumCustomers:
		// Premium membership is defined as "active" here: the data
		// model has no tier column, so this returns the active set
		// with a high limit.
		customers, err := a.backend.ListCustomers(ctx, "active", 1000)
		if err != nil {
			return failure(err.Error())
		}
		return contractx.MustEncode(contractx.CustomersResult{
			Success:   true,
			Customers: customers,
			Count:     len(customers),
		})

	default:
		return failure(fmt.Sprintf("Unknown action: %s", action))
	}
}

func failure(message string) []byte {
	return contractx.MustEncode(contractx.FailureResult{Success: false, Error: message})
}

func buildCard() contractx.Card {
	return contractx.Card{
		AgentID:     "customer_data_agent",
		Name:        "Customer Data Agent",
		Description: "Specialist agent for customer data operations",
		Version:     "1.0.0",
		Capabilities: []contractx.Capability{
			contractx.CapabilityDataRetrieval,
			contractx.CapabilityDataUpdate,
		},
		Tasks: []contractx.TaskSpec{
			{
				Name:        "get_customer",
				Description: "Retrieve customer information by ID",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"customer_id": map[string]any{"type": "integer"},
					},
					"required": []string{"customer_id"},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
			{
				Name:        "list_customers",
				Description: "List customers filtered by status",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"status": map[string]any{"type": "string"},
						"limit":  map[string]any{"type": "integer"},
					},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
			{
				Name:        "update_customer",
				Description: "Update customer fields",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"customer_id": map[string]any{"type": "integer"},
						"data":        map[string]any{"type": "object"},
					},
					"required": []string{"customer_id", "data"},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
			{
				Name:        "get_customer_history",
				Description: "Get all tickets for a customer",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"customer_id": map[string]any{"type": "integer"},
					},
					"required": []string{"customer_id"},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
