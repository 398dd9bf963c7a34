package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/supawit-m/deskmesh/mcp"
	"github.com/supawit-m/deskmesh/model"
)

// rpcHandler answers every POST /mcp with the response built by fn and
// issues a fixed session id.
func rpcHandler(t *testing.T, fn func(req mcp.Request) mcp.Response) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mcp.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("server decode: %v", err)
			return
		}
		w.Header().Set(mcp.SessionHeader, "sess-1")
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(fn(req)); err != nil {
			t.Errorf("server encode: %v", err)
		}
	})
}

func resultResponse(t *testing.T, id int64, result any) mcp.Response {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	return mcp.Response{JSONRPC: mcp.Version, ID: id, Result: raw}
}

func TestCallCapturesSessionAndEchoesIt(t *testing.T) {
	t.Parallel()

	var gotSessions []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSessions = append(gotSessions, r.Header.Get(mcp.SessionHeader))
		w.Header().Set(mcp.SessionHeader, "sess-42")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{}}`)
	}))
	defer srv.Close()

	c := MustNew(Config{URL: srv.URL})
	if c.SessionID() != "" {
		t.Fatalf("fresh client must have no session")
	}

	if _, err := c.Call(context.Background(), mcp.MethodInitialize, map[string]any{}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if c.SessionID() != "sess-42" {
		t.Fatalf("session = %q, want sess-42", c.SessionID())
	}

	if _, err := c.Call(context.Background(), mcp.MethodToolsList, map[string]any{}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if gotSessions[0] != "" {
		t.Fatalf("first request must carry no session, got %q", gotSessions[0])
	}
	if gotSessions[1] != "sess-42" {
		t.Fatalf("second request must echo the session, got %q", gotSessions[1])
	}
}

func TestCallRequestIDsIncrease(t *testing.T) {
	t.Parallel()

	var ids []int64
	srv := httptest.NewServer(rpcHandler(t, func(req mcp.Request) mcp.Response {
		ids = append(ids, req.ID)
		return resultResponse(t, req.ID, map[string]any{})
	}))
	defer srv.Close()

	c := MustNew(Config{URL: srv.URL})
	for i := 0; i < 3; i++ {
		if _, err := c.Call(context.Background(), mcp.MethodToolsList, nil); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("request ids = %v, want [1 2 3]", ids)
	}
}

func TestCallSurfacesRPCError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(rpcHandler(t, func(req mcp.Request) mcp.Response {
		return mcp.Response{
			JSONRPC: mcp.Version,
			ID:      req.ID,
			Error:   &mcp.ErrorObject{Code: mcp.CodeMethodNotFound, Message: "Method not found: nope"},
		}
	}))
	defer srv.Close()

	c := MustNew(Config{URL: srv.URL})
	_, err := c.Call(context.Background(), "nope", nil)
	if !errors.Is(err, ErrRPC) {
		t.Fatalf("expected ErrRPC, got %v", err)
	}
}

func TestCallDecodesSSEBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, `data: {"jsonrpc":"2.0","id":1,"result":{"ok":true}}`+"\n\n")
	}))
	defer srv.Close()

	c := MustNew(Config{URL: srv.URL})
	result, err := c.Call(context.Background(), mcp.MethodInitialize, nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if string(result) != `{"ok":true}` {
		t.Fatalf("result = %s", result)
	}
}

func TestCallToolUnwrapsEmbeddedJSON(t *testing.T) {
	t.Parallel()

	customer := model.Customer{ID: 1, Name: "Alice Johnson", Status: model.CustomerActive}
	srv := httptest.NewServer(rpcHandler(t, func(req mcp.Request) mcp.Response {
		text, err := json.Marshal(customer)
		if err != nil {
			t.Errorf("marshal customer: %v", err)
		}
		return resultResponse(t, req.ID, mcp.CallResult{
			Content: []mcp.ContentItem{{Type: "text", Text: string(text)}},
		})
	}))
	defer srv.Close()

	c := MustNew(Config{URL: srv.URL})
	raw, err := c.CallTool(context.Background(), "get_customer", map[string]any{"customer_id": 1})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}

	var got model.Customer
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "Alice Johnson" {
		t.Fatalf("customer = %+v", got)
	}
}

func TestCallToolWrapsNonJSONText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(rpcHandler(t, func(req mcp.Request) mcp.Response {
		return resultResponse(t, req.ID, mcp.CallResult{
			Content: []mcp.ContentItem{{Type: "text", Text: "plain words"}},
		})
	}))
	defer srv.Close()

	c := MustNew(Config{URL: srv.URL})
	raw, err := c.CallTool(context.Background(), "get_customer", nil)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}

	var wrapped map[string]string
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wrapped["raw"] != "plain words" {
		t.Fatalf("wrapped = %v", wrapped)
	}
}

func TestCallToolEmptyContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(rpcHandler(t, func(req mcp.Request) mcp.Response {
		return resultResponse(t, req.ID, mcp.CallResult{})
	}))
	defer srv.Close()

	c := MustNew(Config{URL: srv.URL})
	raw, err := c.CallTool(context.Background(), "list_customers", nil)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if string(raw) != "{}" {
		t.Fatalf("raw = %s", raw)
	}
}

func TestGetCustomerSwallowsToolErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(rpcHandler(t, func(req mcp.Request) mcp.Response {
		return mcp.Response{
			JSONRPC: mcp.Version,
			ID:      req.ID,
			Error:   &mcp.ErrorObject{Code: mcp.CodeInternalError, Message: "Customer 99 not found"},
		}
	}))
	defer srv.Close()

	c := MustNew(Config{URL: srv.URL})
	customer, err := c.GetCustomer(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetCustomer() must recover tool errors, got %v", err)
	}
	if customer != nil {
		t.Fatalf("customer = %+v, want nil", customer)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{URL: ""}); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := New(Config{URL: "::bad::"}); err == nil {
		t.Fatalf("expected error for malformed url")
	}
}
