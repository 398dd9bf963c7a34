package contract

// Agent cards describe each participant's identity and the tasks it
// accepts, published on the HTTP surfaces for discovery.

type Capability string

const (
	CapabilityDataRetrieval    Capability = "data_retrieval"
	CapabilityDataUpdate       Capability = "data_update"
	CapabilityTicketManagement Capability = "ticket_management"
	CapabilityQueryRouting     Capability = "query_routing"
	CapabilitySupportResponse  Capability = "support_response"
	CapabilityCoordination     Capability = "coordination"
)

type TaskSpec struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema"`
}

type Card struct {
	AgentID      string       `json:"agent_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	Capabilities []Capability `json:"capabilities"`
	Tasks        []TaskSpec   `json:"tasks"`
	Endpoint     string       `json:"endpoint,omitempty"`
	CreatedAt    string       `json:"created_at"`
}

// CanHandleTask reports whether the card advertises the named task.
func (c Card) CanHandleTask(name string) bool {
	for _, task := range c.Tasks {
		if task.Name == name {
			return true
		}
	}
	return false
}
