package contract

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeRequestInjectsActionTag(t *testing.T) {
	t.Parallel()

	content, err := EncodeRequest(ActionGetCustomer, GetCustomerArgs{CustomerID: 5})
	if err != nil {
		t.Fatalf("EncodeRequest() error = %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(content, &fields); err != nil {
		t.Fatalf("content is not an object: %v", err)
	}
	if fields["action"] != string(ActionGetCustomer) {
		t.Fatalf("action = %v", fields["action"])
	}
	if fields["customer_id"] != float64(5) {
		t.Fatalf("customer_id = %v", fields["customer_id"])
	}

	action, err := ActionOf(content)
	if err != nil {
		t.Fatalf("ActionOf() error = %v", err)
	}
	if action != ActionGetCustomer {
		t.Fatalf("action = %q", action)
	}

	args, err := Decode[GetCustomerArgs](content)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if args.CustomerID != 5 {
		t.Fatalf("customer id = %d", args.CustomerID)
	}
}

func TestEncodeRequestRejectsNonObjectArgs(t *testing.T) {
	t.Parallel()

	if _, err := EncodeRequest(ActionGetCustomer, []int{1, 2}); !errors.Is(err, ErrBadContent) {
		t.Fatalf("expected ErrBadContent, got %v", err)
	}
}

func TestDecodeEmptyContent(t *testing.T) {
	t.Parallel()

	if _, err := Decode[GetCustomerArgs](nil); !errors.Is(err, ErrBadContent) {
		t.Fatalf("expected ErrBadContent, got %v", err)
	}
}

func TestNewEnvelopeAssignsQueryID(t *testing.T) {
	t.Parallel()

	e := NewEnvelope(AgentTypeRouter, AgentTypeSupport, MessageTypeRequest, MustEncode(map[string]string{"action": "x"}), "")
	if e.QueryID == "" {
		t.Fatalf("expected a generated query id")
	}
	if e.Timestamp.IsZero() {
		t.Fatalf("expected a timestamp")
	}

	e2 := NewEnvelope(AgentTypeRouter, AgentTypeSupport, MessageTypeRequest, nil, "fixed")
	if e2.QueryID != "fixed" {
		t.Fatalf("query id = %q, want fixed", e2.QueryID)
	}
}

func TestReplyKeepsCorrelation(t *testing.T) {
	t.Parallel()

	req := NewEnvelope(AgentTypeRouter, AgentTypeCustomerData, MessageTypeRequest, nil, "q-9")
	reply := req.Reply(MessageTypeResponse, MustEncode(FailureResult{Success: false, Error: "nope"}))

	if reply.From != AgentTypeCustomerData || reply.To != AgentTypeRouter {
		t.Fatalf("reply direction wrong: %s -> %s", reply.From, reply.To)
	}
	if reply.QueryID != "q-9" {
		t.Fatalf("reply query id = %q", reply.QueryID)
	}
	if reply.Type != MessageTypeResponse {
		t.Fatalf("reply type = %q", reply.Type)
	}
}

func TestEnvelopeWireFormat(t *testing.T) {
	t.Parallel()

	e := NewEnvelope(AgentTypeRouter, AgentTypeSupport, MessageTypeRequest,
		MustEncode(map[string]any{"action": "check_can_handle", "query": "hi"}), "q-1")

	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"from", "to", "type", "content", "query_id", "timestamp"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing wire field %q in %s", key, raw)
		}
	}

	var back Envelope
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if string(back.Content) != string(e.Content) {
		t.Fatalf("content changed across the wire: %s vs %s", back.Content, e.Content)
	}
}
