// Package model holds the rows shared by the store, the tool-call
// transport, and the agent payloads.
package model

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	CustomerActive   = "active"
	CustomerDisabled = "disabled"
)

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers" json:"-"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email" json:"email"`
	Phone     string    `bun:"phone" json:"phone"`
	Status    string    `bun:"status,default:'active'" json:"status"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets" json:"-"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	CustomerID int64     `bun:"customer_id,notnull" json:"customer_id"`
	Issue      string    `bun:"issue,notnull" json:"issue"`
	Status     string    `bun:"status,default:'open'" json:"status"`
	Priority   string    `bun:"priority,default:'medium'" json:"priority"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}
