package domain

// EventType defines the category of a diagram lifecycle event.
type EventType string

const (
	EventNodeCreate    EventType = "node_create"
	EventNodeDestroy   EventType = "node_destroy"
	EventModeSwitch    EventType = "mode_switch"
	EventConnect       EventType = "connect"
	EventDisconnect    EventType = "disconnect"
	EventSlotReset     EventType = "slot_reset"
	EventReconcileDone EventType = "reconcile"
)

// NodeEvent describes a node entering or leaving the diagram, or switching mode.
type NodeEvent struct {
	Type     EventType `json:"type"`
	SlotID   string    `json:"slot_id,omitempty"`
	NodeID   string    `json:"node_id"`
	NodeType string    `json:"node_type"`
	Mode     string    `json:"mode,omitempty"`
}

// ConnectionEvent describes an edge being wired or torn down.
type ConnectionEvent struct {
	Type         EventType `json:"type"`
	ConnectionID string    `json:"connection_id"`
	Group        string    `json:"group"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
}

// LifecycleHooks defines callbacks for diagram observability.
// Hooks run synchronously inside the mutation that triggered them.
type LifecycleHooks struct {
	OnNodeCreate  func(*NodeEvent)
	OnNodeDestroy func(*NodeEvent)
	OnModeSwitch  func(*NodeEvent)
	OnSlotReset   func(*NodeEvent)
	OnConnect     func(*ConnectionEvent)
	OnDisconnect  func(*ConnectionEvent)
}
