package domain

import (
	"errors"
	"fmt"
)

// ErrNotAccepted is returned when no connection group accepts an endpoint pair.
var ErrNotAccepted = errors.New("connection not accepted")

// ErrSlotNotFound is returned when a slot id is unknown to the diagram.
var ErrSlotNotFound = errors.New("slot not found")

// ErrNodeNotFound is returned when a node id is unknown to the diagram.
var ErrNodeNotFound = errors.New("node not found")

// ErrDiagramNotFound is returned when a diagram id cannot be found in the store.
var ErrDiagramNotFound = errors.New("diagram not found")

// ErrReadOnly is returned when a field edit reaches a mode that accepts none.
var ErrReadOnly = errors.New("mode does not accept edits")

// ErrDuplicateSlot is returned when a slot id is registered twice.
var ErrDuplicateSlot = errors.New("slot already exists")

// ErrDuplicateConnection is returned when a connection id is already taken.
var ErrDuplicateConnection = errors.New("connection already exists")

// ErrEndpointInUse is returned when an endpoint id is owned by another live node.
var ErrEndpointInUse = errors.New("endpoint already in use")

// ResolutionError reports a name that could not be resolved to a registered
// entity, such as an unknown node type tag or render mode.
type ResolutionError struct {
	Kind string // "node type", "mode", "group"
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved %s: %q", e.Kind, e.Name)
}

// StaleReferenceError reports an operation on something whose backing model
// or endpoint no longer exists. It signals a programming error.
type StaleReferenceError struct {
	Kind string // "model", "endpoint", "node"
	ID   string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("stale %s reference: %s", e.Kind, e.ID)
}
