// Package transport provides the two interchangeable delivery
// strategies behind contract.Sender: a direct in-process call and a
// networked hop to an agent service. The router depends only on the
// interface and never learns which one is active.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
)

// Direct invokes the recipient's Handle in-process.
type Direct struct {
	agents map[contractx.AgentType]contractx.Agent
}

func NewDirect(agents ...contractx.Agent) *Direct {
	byType := make(map[contractx.AgentType]contractx.Agent, len(agents))
	for _, a := range agents {
		if a != nil {
			byType[a.Type()] = a
		}
	}
	return &Direct{agents: byType}
}

func (d *Direct) Send(ctx context.Context, to contractx.AgentType, msg contractx.Envelope) (contractx.Envelope, error) {
	agent, ok := d.agents[to]
	if !ok {
		return contractx.Envelope{}, fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, to)
	}
	return agent.Handle(ctx, msg)
}

// HTTPConfig points each specialist at its service base URL.
type HTTPConfig struct {
	CustomerDataURL string        `split_words:"true" default:"http://localhost:8001"`
	SupportURL      string        `split_words:"true" default:"http://localhost:8002"`
	Timeout         time.Duration `split_words:"true" default:"30s"`
}

// HTTP posts the envelope to the recipient's /process endpoint and
// decodes the reply back into an envelope. A failed or undecodable hop
// is a transport failure; there is no retry.
type HTTP struct {
	urls       map[contractx.AgentType]string
	httpClient *http.Client
}

func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	urls := map[contractx.AgentType]string{
		contractx.AgentTypeCustomerData: strings.TrimRight(strings.TrimSpace(cfg.CustomerDataURL), "/"),
		contractx.AgentTypeSupport:      strings.TrimRight(strings.TrimSpace(cfg.SupportURL), "/"),
	}
	for agentType, base := range urls {
		if base == "" {
			return nil, fmt.Errorf("base url for %s is required", agentType)
		}
		if _, err := url.ParseRequestURI(base); err != nil {
			return nil, fmt.Errorf("invalid base url for %s: %w", agentType, err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTP{
		urls: urls,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (h *HTTP) Send(ctx context.Context, to contractx.AgentType, msg contractx.Envelope) (contractx.Envelope, error) {
	base, ok := h.urls[to]
	if !ok {
		return contractx.Envelope{}, fmt.Errorf("%w: %s", contractx.ErrUnknownAgent, to)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return contractx.Envelope{}, fmt.Errorf("%w: marshal envelope: %v", contractx.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/process", bytes.NewReader(body))
	if err != nil {
		return contractx.Envelope{}, fmt.Errorf("%w: build request: %v", contractx.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return contractx.Envelope{}, fmt.Errorf("%w: %v", contractx.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return contractx.Envelope{}, fmt.Errorf("%w: read response: %v", contractx.ErrTransport, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.Envelope{}, fmt.Errorf("%w: %s answered status=%d body=%s",
			contractx.ErrTransport, to, resp.StatusCode, truncate(raw, 200))
	}

	var reply contractx.Envelope
	if err := json.Unmarshal(raw, &reply); err != nil {
		return contractx.Envelope{}, fmt.Errorf("%w: decode reply envelope: %v", contractx.ErrTransport, err)
	}
	return reply, nil
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n])
}

var (
	_ contractx.Sender = (*Direct)(nil)
	_ contractx.Sender = (*HTTP)(nil)
)
