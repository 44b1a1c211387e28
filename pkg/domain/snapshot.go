package domain

// Position is a grid coordinate supplied by whoever lays the diagram out.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// EndpointSnapshot is the serialisable form of an endpoint.
type EndpointSnapshot struct {
	ID   string `json:"id"`
	Attr string `json:"attr"`
	Role string `json:"role"`
	Side string `json:"side"`
}

// NodeSnapshot is the serialisable form of a slot and the node it holds.
type NodeSnapshot struct {
	SlotID    string             `json:"slot_id"`
	Position  Position           `json:"position"`
	NodeID    string             `json:"node_id"`
	Type      string             `json:"type"`
	Mode      string             `json:"mode"`
	Fields    map[string]any     `json:"fields,omitempty"`
	Endpoints []EndpointSnapshot `json:"endpoints,omitempty"`
}

// ConnectionSnapshot is the serialisable form of an edge.
type ConnectionSnapshot struct {
	ID     string `json:"id"`
	Group  string `json:"group"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// MatchSnapshot is the serialisable form of an endpoint selector.
type MatchSnapshot struct {
	Side string `json:"side,omitempty"`
	Role string `json:"role,omitempty"`
}

// GroupSnapshot is the serialisable form of a declarative connection group.
type GroupSnapshot struct {
	Name string        `json:"name"`
	From MatchSnapshot `json:"from"`
	To   MatchSnapshot `json:"to"`
}

// Snapshot captures a diagram's models at a point in time.
type Snapshot struct {
	ID          string               `json:"id"`
	Groups      []GroupSnapshot      `json:"groups,omitempty"`
	Nodes       []NodeSnapshot       `json:"nodes"`
	Connections []ConnectionSnapshot `json:"connections"`
}

// Node returns the snapshot of the given slot.
func (s *Snapshot) Node(slotID string) (NodeSnapshot, bool) {
	for _, n := range s.Nodes {
		if n.SlotID == slotID {
			return n, true
		}
	}
	return NodeSnapshot{}, false
}
