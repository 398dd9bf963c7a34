package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/supawit-m/deskmesh/mcp"
	"github.com/supawit-m/deskmesh/store"
)

func toolCatalog() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "get_customer",
			Description: "Retrieve customer information by customer ID",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"customer_id": map[string]any{
						"type":        "integer",
						"description": "The customer ID to retrieve",
					},
				},
				"required": []string{"customer_id"},
			},
		},
		{
			Name:        "list_customers",
			Description: "List customers filtered by status with optional limit",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{
						"type":        "string",
						"enum":        []string{"active", "disabled"},
						"description": "Filter by customer status",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of customers to return",
					},
				},
				"required": []string{"status"},
			},
		},
		{
			Name:        "update_customer",
			Description: "Update customer information",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"customer_id": map[string]any{
						"type":        "integer",
						"description": "The customer ID to update",
					},
					"data": map[string]any{
						"type":        "object",
						"description": "Customer data fields to update (name, email, phone, status)",
						"properties": map[string]any{
							"name":   map[string]any{"type": "string"},
							"email":  map[string]any{"type": "string"},
							"phone":  map[string]any{"type": "string"},
							"status": map[string]any{"type": "string", "enum": []string{"active", "disabled"}},
						},
					},
				},
				"required": []string{"customer_id", "data"},
			},
		},
		{
			Name:        "create_ticket",
			Description: "Create a new support ticket",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"customer_id": map[string]any{
						"type":        "integer",
						"description": "The customer ID for this ticket",
					},
					"issue": map[string]any{
						"type":        "string",
						"description": "Description of the issue",
					},
					"priority": map[string]any{
						"type":        "string",
						"enum":        []string{"low", "medium", "high"},
						"description": "Ticket priority level",
					},
				},
				"required": []string{"customer_id", "issue", "priority"},
			},
		},
		{
			Name:        "get_customer_history",
			Description: "Get all tickets for a customer",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"customer_id": map[string]any{
						"type":        "integer",
						"description": "The customer ID to get history for",
					},
				},
				"required": []string{"customer_id"},
			},
		},
	}
}

type getCustomerArgs struct {
	CustomerID int64 `json:"customer_id"`
}

type listCustomersArgs struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

type updateCustomerArgs struct {
	CustomerID int64             `json:"customer_id"`
	Data       map[string]string `json:"data"`
}

type createTicketArgs struct {
	CustomerID int64  `json:"customer_id"`
	Issue      string `json:"issue"`
	Priority   string `json:"priority"`
}

// callTool runs the named handler against the backing store. The
// returned value becomes the embedded JSON of the response content; an
// error becomes the JSON-RPC error member.
func (s *Server) callTool(ctx context.Context, name string, arguments json.RawMessage) (any, error) {
	switch name {
	case "get_customer":
		var args getCustomerArgs
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, fmt.Errorf("get_customer: %w", err)
		}
		customer, err := s.store.GetCustomer(ctx, args.CustomerID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("Customer %d not found", args.CustomerID)
		}
		if err != nil {
			return nil, err
		}
		return customer, nil

	case "list_customers":
		args := listCustomersArgs{Limit: 100}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, fmt.Errorf("list_customers: %w", err)
		}
		customers, err := s.store.ListCustomers(ctx, args.Status, args.Limit)
		if err != nil {
			return nil, err
		}
		return customers, nil

	case "update_customer":
		var args updateCustomerArgs
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, fmt.Errorf("update_customer: %w", err)
		}
		err := s.store.UpdateCustomer(ctx, args.CustomerID, args.Data)
		if errors.Is(err, store.ErrNoFields) {
			return nil, errors.New("No valid fields to update")
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("Customer %d not found", args.CustomerID)
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{"message": fmt.Sprintf("Customer %d updated", args.CustomerID)}, nil

	case "create_ticket":
		var args createTicketArgs
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, fmt.Errorf("create_ticket: %w", err)
		}
		ticket, err := s.store.CreateTicket(ctx, args.CustomerID, args.Issue, args.Priority)
		if err != nil {
			return nil, err
		}
		return ticket, nil

	case "get_customer_history":
		var args getCustomerArgs
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, fmt.Errorf("get_customer_history: %w", err)
		}
		tickets, err := s.store.ListTickets(ctx, args.CustomerID)
		if err != nil {
			return nil, err
		}
		return tickets, nil

	default:
		return nil, fmt.Errorf("Unknown tool: %s", name)
	}
}
