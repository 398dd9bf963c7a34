// Package store persists customers and support tickets behind a small
// interface so the tool-call server and tests can swap backends.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/supawit-m/deskmesh/model"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrNoFields      = errors.New("no valid fields to update")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store is the persistence contract used by the tool-call server.
type Store interface {
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	ListCustomers(ctx context.Context, status string, limit int) ([]model.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, fields map[string]string) error
	CreateTicket(ctx context.Context, customerID int64, issue, priority string) (*model.Ticket, error)
	ListTickets(ctx context.Context, customerID int64) ([]model.Ticket, error)
}

type Config struct {
	Driver string `split_words:"true" default:"sqlite"`
	DSN    string `split_words:"true" default:"file:deskmesh.db?cache=shared"`
}

// SQLStore implements Store on top of bun, speaking either SQLite or
// Postgres depending on the configured driver.
type SQLStore struct {
	db  *bun.DB
	now func() time.Time
}

func Open(cfg Config) (*SQLStore, error) {
	driver := strings.TrimSpace(strings.ToLower(cfg.Driver))
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("store dsn is required")
	}

	var db *bun.DB
	switch driver {
	case "", "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case "postgres":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	return &SQLStore{db: db, now: time.Now}, nil
}

// NewSQLStore wraps an existing bun handle. Used by tests that open
// their own in-memory database.
func NewSQLStore(db *bun.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) DB() *bun.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	customer := new(model.Customer)
	err := s.db.NewSelect().Model(customer).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select customer: %w", err)
	}
	return customer, nil
}

func (s *SQLStore) ListCustomers(ctx context.Context, status string, limit int) ([]model.Customer, error) {
	if limit <= 0 {
		limit = 100
	}
	var customers []model.Customer
	err := s.db.NewSelect().
		Model(&customers).
		Where("status = ?", status).
		OrderExpr("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// updatableFields is the set of customer columns a patch may touch.
var updatableFields = map[string]struct{}{
	"name":   {},
	"email":  {},
	"phone":  {},
	"status": {},
}

func (s *SQLStore) UpdateCustomer(ctx context.Context, id int64, fields map[string]string) error {
	q := s.db.NewUpdate().Model((*model.Customer)(nil)).Where("id = ?", id)

	applied := 0
	for key, value := range fields {
		if _, ok := updatableFields[key]; !ok {
			continue
		}
		q = q.Set("? = ?", bun.Ident(key), value)
		applied++
	}
	if applied == 0 {
		return ErrNoFields
	}
	q = q.Set("updated_at = ?", s.now())

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) CreateTicket(ctx context.Context, customerID int64, issue, priority string) (*model.Ticket, error) {
	if priority == "" {
		priority = model.PriorityMedium
	}
	ticket := &model.Ticket{
		CustomerID: customerID,
		Issue:      issue,
		Status:     model.TicketOpen,
		Priority:   priority,
		CreatedAt:  s.now(),
	}
	if _, err := s.db.NewInsert().Model(ticket).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return ticket, nil
}

func (s *SQLStore) ListTickets(ctx context.Context, customerID int64) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := s.db.NewSelect().
		Model(&tickets).
		Where("customer_id = ?", customerID).
		OrderExpr("created_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}
