package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
	customerdatax "github.com/supawit-m/deskmesh/agent/customerdata"
	routerx "github.com/supawit-m/deskmesh/agent/router"
	servicex "github.com/supawit-m/deskmesh/agent/service"
	supportx "github.com/supawit-m/deskmesh/agent/support"
	"github.com/supawit-m/deskmesh/model"
)

// echoAgent answers every request with a fixed payload, recording what
// it saw.
type echoAgent struct {
	agentType contractx.AgentType
	seen      []contractx.Envelope
}

func (e *echoAgent) Type() contractx.AgentType { return e.agentType }

func (e *echoAgent) Card() contractx.Card {
	return contractx.Card{AgentID: string(e.agentType)}
}

func (e *echoAgent) Handle(ctx context.Context, msg contractx.Envelope) (contractx.Envelope, error) {
	e.seen = append(e.seen, msg)
	return msg.Reply(contractx.MessageTypeResponse, contractx.MustEncode(map[string]any{
		"success": true,
		"echo":    string(msg.Content),
	})), nil
}

func newRequest(t *testing.T) contractx.Envelope {
	t.Helper()
	content, err := contractx.EncodeRequest(contractx.ActionCheckCanHandle, contractx.CheckCanHandleArgs{Query: "hi"})
	if err != nil {
		t.Fatalf("EncodeRequest() error = %v", err)
	}
	return contractx.NewEnvelope(contractx.AgentTypeRouter, contractx.AgentTypeSupport, contractx.MessageTypeRequest, content, "q-1")
}

func TestDirectRoutesByType(t *testing.T) {
	t.Parallel()

	support := &echoAgent{agentType: contractx.AgentTypeSupport}
	data := &echoAgent{agentType: contractx.AgentTypeCustomerData}
	d := NewDirect(support, data)

	reply, err := d.Send(context.Background(), contractx.AgentTypeSupport, newRequest(t))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.From != contractx.AgentTypeSupport || reply.To != contractx.AgentTypeRouter {
		t.Fatalf("reply direction wrong: %s -> %s", reply.From, reply.To)
	}
	if len(support.seen) != 1 || len(data.seen) != 0 {
		t.Fatalf("message went to the wrong agent")
	}
}

func TestDirectUnknownAgent(t *testing.T) {
	t.Parallel()

	d := NewDirect(&echoAgent{agentType: contractx.AgentTypeSupport})
	_, err := d.Send(context.Background(), contractx.AgentTypeCustomerData, newRequest(t))
	if !errors.Is(err, contractx.ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}

// envelopeHandler serves /process the way an agent service does, so the
// HTTP sender can be tested against a live listener.
func envelopeHandler(agent contractx.Agent) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/process", func(w http.ResponseWriter, r *http.Request) {
		var msg contractx.Envelope
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply, err := agent.Handle(r.Context(), msg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(reply); err != nil {
			panic(err)
		}
	})
	return mux
}

func TestHTTPAndDirectDeliverSameEnvelope(t *testing.T) {
	t.Parallel()

	directAgent := &echoAgent{agentType: contractx.AgentTypeSupport}
	httpAgent := &echoAgent{agentType: contractx.AgentTypeSupport}

	srv := httptest.NewServer(envelopeHandler(httpAgent))
	defer srv.Close()

	direct := NewDirect(directAgent)
	httpSender, err := NewHTTP(HTTPConfig{CustomerDataURL: srv.URL, SupportURL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}

	msg := newRequest(t)

	directReply, err := direct.Send(context.Background(), contractx.AgentTypeSupport, msg)
	if err != nil {
		t.Fatalf("direct Send() error = %v", err)
	}
	httpReply, err := httpSender.Send(context.Background(), contractx.AgentTypeSupport, msg)
	if err != nil {
		t.Fatalf("http Send() error = %v", err)
	}

	if string(directReply.Content) != string(httpReply.Content) {
		t.Fatalf("transports delivered different content:\n%s\n%s", directReply.Content, httpReply.Content)
	}
	if directReply.QueryID != httpReply.QueryID {
		t.Fatalf("query ids differ: %q vs %q", directReply.QueryID, httpReply.QueryID)
	}

	if len(directAgent.seen) != 1 || len(httpAgent.seen) != 1 {
		t.Fatalf("each agent must see exactly one message")
	}
	if string(directAgent.seen[0].Content) != string(httpAgent.seen[0].Content) {
		t.Fatalf("agents saw different content across transports")
	}
}

func TestHTTPErrorStatusIsTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sender, err := NewHTTP(HTTPConfig{CustomerDataURL: srv.URL, SupportURL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}

	_, err = sender.Send(context.Background(), contractx.AgentTypeSupport, newRequest(t))
	if !errors.Is(err, contractx.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestHTTPUndecodableReplyIsTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	sender, err := NewHTTP(HTTPConfig{CustomerDataURL: srv.URL, SupportURL: srv.URL})
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}

	_, err = sender.Send(context.Background(), contractx.AgentTypeSupport, newRequest(t))
	if !errors.Is(err, contractx.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

// scenarioBackend carries just enough data for one negotiation run.
type scenarioBackend struct{}

func (scenarioBackend) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	if id == 2 {
		return &model.Customer{ID: 2, Name: "Bob Smith", Email: "bob@example.com", Phone: "555-0102", Status: model.CustomerActive}, nil
	}
	return nil, nil
}

func (scenarioBackend) ListCustomers(ctx context.Context, status string, limit int) ([]model.Customer, error) {
	return nil, nil
}

func (scenarioBackend) UpdateCustomer(ctx context.Context, id int64, data map[string]string) (bool, error) {
	return true, nil
}

func (scenarioBackend) CreateTicket(ctx context.Context, customerID int64, issue, priority string) (*model.Ticket, error) {
	return &model.Ticket{ID: 1, CustomerID: customerID, Issue: issue, Status: model.TicketOpen, Priority: priority}, nil
}

func (scenarioBackend) CustomerHistory(ctx context.Context, customerID int64) ([]model.Ticket, error) {
	return nil, nil
}

// A full multi-hop scenario must aggregate to the same result whether
// the router reaches the specialists in-process or over live agent
// services.
func TestTransportsProduceSameResult(t *testing.T) {
	t.Parallel()

	dataAgent, err := customerdatax.New(scenarioBackend{})
	if err != nil {
		t.Fatalf("customerdata.New() error = %v", err)
	}
	supportAgent, err := supportx.New(scenarioBackend{})
	if err != nil {
		t.Fatalf("support.New() error = %v", err)
	}

	dataSvc, err := servicex.New(dataAgent)
	if err != nil {
		t.Fatalf("service.New(data) error = %v", err)
	}
	supportSvc, err := servicex.New(supportAgent)
	if err != nil {
		t.Fatalf("service.New(support) error = %v", err)
	}
	dataSrv := httptest.NewServer(dataSvc)
	defer dataSrv.Close()
	supportSrv := httptest.NewServer(supportSvc)
	defer supportSrv.Close()

	directRouter, err := routerx.New(NewDirect(dataAgent, supportAgent))
	if err != nil {
		t.Fatalf("router.New(direct) error = %v", err)
	}
	httpSender, err := NewHTTP(HTTPConfig{CustomerDataURL: dataSrv.URL, SupportURL: supportSrv.URL})
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}
	httpRouter, err := routerx.New(httpSender)
	if err != nil {
		t.Fatalf("router.New(http) error = %v", err)
	}

	const query = "I have a billing problem with customer 2"
	want := directRouter.ProcessQueryWithID(context.Background(), query, "qid-eq")
	got := httpRouter.ProcessQueryWithID(context.Background(), query, "qid-eq")

	if want.Scenario != routerx.ScenarioNegotiation || !want.Success {
		t.Fatalf("direct run = %+v", want)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("transports produced different results:\ndirect: %+v\nhttp:   %+v", want, got)
	}
}

func TestNewHTTPRejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTP(HTTPConfig{CustomerDataURL: "", SupportURL: "http://localhost:8002"}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := NewHTTP(HTTPConfig{CustomerDataURL: "::bad::", SupportURL: "http://localhost:8002"}); err == nil {
		t.Fatalf("expected error for malformed base url")
	}
}
