package client

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/supawit-m/deskmesh/model"
)

// The methods below satisfy contract.DataBackend. They recover tool and
// transport failures into empty results so the specialists can answer
// in-band instead of surfacing a broken hop to the caller.

func (c *Client) GetCustomer(ctx context.Context, customerID int64) (*model.Customer, error) {
	raw, err := c.CallTool(ctx, "get_customer", map[string]any{"customer_id": customerID})
	if err != nil {
		log.Warn().Err(err).Int64("customer_id", customerID).Msg("get_customer tool call failed")
		return nil, nil
	}
	var customer model.Customer
	if err := json.Unmarshal(raw, &customer); err != nil || customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (c *Client) ListCustomers(ctx context.Context, status string, limit int) ([]model.Customer, error) {
	raw, err := c.CallTool(ctx, "list_customers", map[string]any{"status": status, "limit": limit})
	if err != nil {
		log.Warn().Err(err).Str("status", status).Msg("list_customers tool call failed")
		return nil, nil
	}
	var customers []model.Customer
	if err := json.Unmarshal(raw, &customers); err != nil {
		return nil, nil
	}
	return customers, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, customerID int64, data map[string]string) (bool, error) {
	raw, err := c.CallTool(ctx, "update_customer", map[string]any{
		"customer_id": customerID,
		"data":        data,
	})
	if err != nil {
		log.Warn().Err(err).Int64("customer_id", customerID).Msg("update_customer tool call failed")
		return false, nil
	}
	var result struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return false, nil
	}
	return result.Message != "", nil
}

func (c *Client) CreateTicket(ctx context.Context, customerID int64, issue, priority string) (*model.Ticket, error) {
	raw, err := c.CallTool(ctx, "create_ticket", map[string]any{
		"customer_id": customerID,
		"issue":       issue,
		"priority":    priority,
	})
	if err != nil {
		log.Warn().Err(err).Int64("customer_id", customerID).Msg("create_ticket tool call failed")
		return nil, nil
	}
	var ticket model.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil || ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (c *Client) CustomerHistory(ctx context.Context, customerID int64) ([]model.Ticket, error) {
	raw, err := c.CallTool(ctx, "get_customer_history", map[string]any{"customer_id": customerID})
	if err != nil {
		log.Warn().Err(err).Int64("customer_id", customerID).Msg("get_customer_history tool call failed")
		return nil, nil
	}
	var tickets []model.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, nil
	}
	return tickets, nil
}
