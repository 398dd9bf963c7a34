package store

import (
	"context"
	"fmt"
	"time"

	"github.com/supawit-m/deskmesh/model"
)

func (s *SQLStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*model.Customer)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create customers table: %w", err)
	}

	if _, err := s.db.NewCreateTable().
		Model((*model.Ticket)(nil)).
		IfNotExists().
		ForeignKey(`("customer_id") REFERENCES "customers" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create tickets table: %w", err)
	}
	return nil
}

// Seed loads the sample dataset: five regular customers, the privileged
// account 12345, and a handful of tickets in mixed states.
func (s *SQLStore) Seed(ctx context.Context) error {
	now := s.now()

	customers := []model.Customer{
		{ID: 1, Name: "Alice Johnson", Email: "alice@example.com", Phone: "555-0101", Status: model.CustomerActive, CreatedAt: now, UpdatedAt: now},
		{ID: 2, Name: "Bob Smith", Email: "bob@example.com", Phone: "555-0102", Status: model.CustomerActive, CreatedAt: now, UpdatedAt: now},
		{ID: 3, Name: "Charlie Brown", Email: "charlie@example.com", Phone: "555-0103", Status: model.CustomerActive, CreatedAt: now, UpdatedAt: now},
		{ID: 4, Name: "Diana Prince", Email: "diana@example.com", Phone: "555-0104", Status: model.CustomerActive, CreatedAt: now, UpdatedAt: now},
		{ID: 5, Name: "Eve Davis", Email: "eve@example.com", Phone: "555-0105", Status: model.CustomerActive, CreatedAt: now, UpdatedAt: now},
		{ID: 12345, Name: "Premium Customer", Email: "premium@example.com", Phone: "555-9999", Status: model.CustomerActive, CreatedAt: now, UpdatedAt: now},
	}
	if _, err := s.db.NewInsert().Model(&customers).Exec(ctx); err != nil {
		return fmt.Errorf("seed customers: %w", err)
	}

	tickets := []model.Ticket{
		{CustomerID: 1, Issue: "Account access issue", Status: model.TicketOpen, Priority: model.PriorityMedium, CreatedAt: now},
		{CustomerID: 1, Issue: "Password reset", Status: model.TicketResolved, Priority: model.PriorityLow, CreatedAt: now.Add(time.Second)},
		{CustomerID: 2, Issue: "Billing inquiry", Status: model.TicketOpen, Priority: model.PriorityHigh, CreatedAt: now.Add(2 * time.Second)},
		{CustomerID: 12345, Issue: "Premium account upgrade", Status: model.TicketInProgress, Priority: model.PriorityHigh, CreatedAt: now.Add(3 * time.Second)},
		{CustomerID: 3, Issue: "Product inquiry", Status: model.TicketResolved, Priority: model.PriorityLow, CreatedAt: now.Add(4 * time.Second)},
	}
	if _, err := s.db.NewInsert().Model(&tickets).Exec(ctx); err != nil {
		return fmt.Errorf("seed tickets: %w", err)
	}
	return nil
}
