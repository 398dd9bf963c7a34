// Package router is the coordination dispatcher: it classifies a query,
// picks one of the fixed scenario protocols, executes the scenario's
// envelope round-trips through the configured sender, and assembles the
// aggregate result with its coordination trace.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/supawit-m/deskmesh/agent/contract"
	intentx "github.com/supawit-m/deskmesh/agent/intent"
	"github.com/supawit-m/deskmesh/model"
)

// maxIterations bounds scenario re-entry; exceeding it yields an
// explicit error result instead of looping.
const maxIterations = 10

type Negotiation struct {
	SupportCanHandle bool `json:"support_can_handle"`
	ContextProvided  bool `json:"context_provided"`
}

// Result is the aggregate answer for one query, including the ordered
// coordination log of every envelope exchange the scenario performed.
type Result struct {
	Query           string          `json:"query"`
	QueryID         string          `json:"query_id"`
	Scenario        string          `json:"scenario,omitempty"`
	Response        string          `json:"response,omitempty"`
	CustomerInfo    *model.Customer `json:"customer_info,omitempty"`
	TicketHistory   []model.Ticket  `json:"ticket_history,omitempty"`
	Actions         []string        `json:"actions,omitempty"`
	Negotiation     *Negotiation    `json:"negotiation,omitempty"`
	Statistics      map[string]int  `json:"statistics,omitempty"`
	CoordinationLog []string        `json:"coordination_log"`
	Success         bool            `json:"success"`
	Error           string          `json:"error,omitempty"`
}

type Router struct {
	sender    contractx.Sender
	scenarios []scenario
	card      contractx.Card
}

// scenario binds a selection predicate to its protocol handler. The
// table is evaluated top-down and the first match wins.
type scenario struct {
	name  string
	match func(rn *run) bool
	run   func(ctx context.Context, rn *run) Result
}

func New(sender contractx.Sender) (*Router, error) {
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	r := &Router{
		sender: sender,
		card:   buildCard(),
	}
	r.scenarios = r.buildScenarios()
	return r, nil
}

func (r *Router) Card() contractx.Card {
	return r.card
}

// run is the coordination state for one ProcessQuery call. It is owned
// exclusively by that call; concurrent queries never share one.
type run struct {
	query      string
	lower      string
	queryID    string
	intent     intentx.Intent
	logLines   []string
	iterations int
}

func (rn *run) logf(format string, args ...any) {
	rn.logLines = append(rn.logLines, fmt.Sprintf(format, args...))
}

// ProcessQuery is the single entry point: analyze, select a scenario,
// execute its call sequence, aggregate.
func (r *Router) ProcessQuery(ctx context.Context, query string) Result {
	return r.ProcessQueryWithID(ctx, query, uuid.NewString())
}

func (r *Router) ProcessQueryWithID(ctx context.Context, query, queryID string) Result {
	if queryID == "" {
		queryID = uuid.NewString()
	}

	det := intentx.Analyze(query)
	log.Info().
		Str("query_id", queryID).
		Str("query", query).
		Bool("is_complex", det.IsComplex).
		Strs("sub_intents", det.SubIntents).
		Msg("router processing query")

	rn := &run{
		query:   query,
		lower:   strings.ToLower(query),
		queryID: queryID,
		intent:  det,
	}
	return r.route(ctx, rn)
}

func (r *Router) route(ctx context.Context, rn *run) Result {
	rn.iterations++
	if rn.iterations > maxIterations {
		return Result{
			Query:           rn.query,
			QueryID:         rn.queryID,
			Error:           "Maximum iterations reached",
			CoordinationLog: rn.logLines,
			Success:         false,
		}
	}

	for _, sc := range r.scenarios {
		if sc.match(rn) {
			log.Info().Str("query_id", rn.queryID).Str("scenario", sc.name).Msg("scenario selected")
			return sc.run(ctx, rn)
		}
	}
	// Nothing matched: fall back to simple allocation.
	log.Info().Str("query_id", rn.queryID).Msg("falling back to task allocation")
	return r.taskAllocation(ctx, rn)
}

// failure converts a broken hop or malformed payload into the error
// result for the enclosing scenario, keeping whatever log accumulated.
func (rn *run) failure(scenarioName string, err error) Result {
	return Result{
		Query:           rn.query,
		QueryID:         rn.queryID,
		Scenario:        scenarioName,
		Error:           err.Error(),
		CoordinationLog: rn.logLines,
		Success:         false,
	}
}

// request performs one envelope round trip and blocks for the response.
func (r *Router) request(ctx context.Context, rn *run, to contractx.AgentType, action contractx.Action, args any) (contractx.Envelope, error) {
	content, err := contractx.EncodeRequest(action, args)
	if err != nil {
		return contractx.Envelope{}, err
	}
	msg := contractx.NewEnvelope(contractx.AgentTypeRouter, to, contractx.MessageTypeRequest, content, rn.queryID)
	return r.sender.Send(ctx, to, msg)
}

func buildCard() contractx.Card {
	return contractx.Card{
		AgentID:     "router_agent",
		Name:        "Router Agent",
		Description: "Orchestrator agent that routes queries and coordinates other agents",
		Version:     "1.0.0",
		Capabilities: []contractx.Capability{
			contractx.CapabilityQueryRouting,
			contractx.CapabilityCoordination,
		},
		Tasks: []contractx.TaskSpec{
			{
				Name:        "route_query",
				Description: "Analyze query intent and route to appropriate agents",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query":    map[string]any{"type": "string", "description": "Customer query"},
						"query_id": map[string]any{"type": "string", "description": "Unique query identifier"},
					},
					"required": []string{"query"},
				},
				OutputSchema: map[string]any{"type": "object"},
			},
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
