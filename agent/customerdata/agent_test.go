package customerdata

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
	"github.com/supawit-m/deskmesh/model"
)

type fakeBackend struct {
	customers map[int64]*model.Customer
	listed    []model.Customer
	history   []model.Ticket
	updateOK  bool

	lastStatus string
	lastLimit  int
	lastUpdate map[string]string
}

func (f *fakeBackend) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return f.customers[id], nil
}

func (f *fakeBackend) ListCustomers(ctx context.Context, status string, limit int) ([]model.Customer, error) {
	f.lastStatus = status
	f.lastLimit = limit
	return f.listed, nil
}

func (f *fakeBackend) UpdateCustomer(ctx context.Context, id int64, data map[string]string) (bool, error) {
	f.lastUpdate = data
	return f.updateOK, nil
}

func (f *fakeBackend) CreateTicket(ctx context.Context, customerID int64, issue, priority string) (*model.Ticket, error) {
	return &model.Ticket{ID: 1, CustomerID: customerID, Issue: issue, Priority: priority}, nil
}

func (f *fakeBackend) CustomerHistory(ctx context.Context, customerID int64) ([]model.Ticket, error) {
	return f.history, nil
}

func request(t *testing.T, action contractx.Action, args any) contractx.Envelope {
	t.Helper()
	content, err := contractx.EncodeRequest(action, args)
	if err != nil {
		t.Fatalf("EncodeRequest() error = %v", err)
	}
	return contractx.NewEnvelope(
		contractx.AgentTypeRouter,
		contractx.AgentTypeCustomerData,
		contractx.MessageTypeRequest,
		content,
		"q-1",
	)
}

func TestNewRequiresBackend(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil backend")
	}
}

func TestGetCustomerFound(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{customers: map[int64]*model.Customer{
		5: {ID: 5, Name: "Eve Davis", Status: model.CustomerActive},
	}}
	a, err := New(backend)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := a.Handle(context.Background(), request(t, contractx.ActionGetCustomer, contractx.GetCustomerArgs{CustomerID: 5}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if reply.Type != contractx.MessageTypeResponse {
		t.Fatalf("reply type = %q", reply.Type)
	}
	if reply.To != contractx.AgentTypeRouter {
		t.Fatalf("reply addressed to %q", reply.To)
	}
	if reply.QueryID != "q-1" {
		t.Fatalf("query id = %q", reply.QueryID)
	}

	res, err := contractx.Decode[contractx.CustomerResult](reply.Content)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !res.Success || res.Customer == nil || res.Customer.Name != "Eve Davis" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestGetCustomerMissing(t *testing.T) {
	t.Parallel()

	a, err := New(&fakeBackend{customers: map[int64]*model.Customer{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := a.Handle(context.Background(), request(t, contractx.ActionGetCustomer, contractx.GetCustomerArgs{CustomerID: 99}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	res, err := contractx.Decode[contractx.CustomerResult](reply.Content)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Success {
		t.Fatalf("expected in-band failure for missing customer")
	}
	if !strings.Contains(res.Error, "Customer 99 not found") {
		t.Fatalf("error = %q", res.Error)
	}
}

func TestListCustomersDefaults(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{listed: []model.Customer{{ID: 1}, {ID: 2}}}
	a, err := New(backend)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := a.Handle(context.Background(), request(t, contractx.ActionListCustomers, contractx.ListCustomersArgs{}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if backend.lastStatus != "active" || backend.lastLimit != 100 {
		t.Fatalf("defaults not applied: status=%q limit=%d", backend.lastStatus, backend.lastLimit)
	}

	res, err := contractx.Decode[contractx.CustomersResult](reply.Content)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !res.Success || res.Count != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUpdateCustomerForwardsData(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{updateOK: true}
	a, err := New(backend)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := a.Handle(context.Background(), request(t, contractx.ActionUpdateCustomer, contractx.UpdateCustomerArgs{
		CustomerID: 2,
		Data:       map[string]string{"email": "bob.new@example.com"},
	}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if backend.lastUpdate["email"] != "bob.new@example.com" {
		t.Fatalf("update data not forwarded: %v", backend.lastUpdate)
	}

	res, err := contractx.Decode[contractx.UpdateResult](reply.Content)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !res.Success || res.CustomerID != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestPremiumCustomersUsesActiveSet(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{listed: []model.Customer{{ID: 1}, {ID: 12345}}}
	a, err := New(backend)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := a.Handle(context.Background(), request(t, contractx.ActionGetPremiumCustomers, contractx.PremiumCustomersArgs{}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if backend.lastStatus != "active" || backend.lastLimit != 1000 {
		t.Fatalf("premium lookup must list active with limit 1000: status=%q limit=%d", backend.lastStatus, backend.lastLimit)
	}

	res, err := contractx.Decode[contractx.CustomersResult](reply.Content)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("count = %d, want 2", res.Count)
	}
}

func TestUnknownActionFailsInBand(t *testing.T) {
	t.Parallel()

	a, err := New(&fakeBackend{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := a.Handle(context.Background(), request(t, contractx.Action("drop_tables"), struct{}{}))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	res, err := contractx.Decode[contractx.FailureResult](reply.Content)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if res.Success {
		t.Fatalf("unknown action must fail")
	}
	if !strings.Contains(res.Error, "Unknown action: drop_tables") {
		t.Fatalf("error = %q", res.Error)
	}
}

func TestCardDescribesAgent(t *testing.T) {
	t.Parallel()

	a, err := New(&fakeBackend{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	card := a.Card()
	if card.AgentID != "customer_data_agent" {
		t.Fatalf("agent id = %q", card.AgentID)
	}
	if !card.CanHandleTask("get_customer") {
		t.Fatalf("card must advertise get_customer")
	}
	if card.CanHandleTask("handle_support") {
		t.Fatalf("card must not advertise support tasks")
	}
}
