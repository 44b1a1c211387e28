package domain

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// DiagramID is always present to identify the target.
	DiagramID string `json:"diagram_id"`

	// Nodes lists slots whose node was created, retyped or switched mode.
	Nodes []NodeSnapshot `json:"nodes,omitempty"`

	// RemovedNodes lists node ids that no longer exist.
	RemovedNodes []string `json:"removed_nodes,omitempty"`

	// Connections lists edges that were added.
	Connections []ConnectionSnapshot `json:"connections,omitempty"`

	// RemovedConnections lists edge ids that no longer exist.
	RemovedConnections []string `json:"removed_connections,omitempty"`
}

// Empty reports whether the diff carries no change.
func (d *SnapshotDiff) Empty() bool {
	return len(d.Nodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.Connections) == 0 && len(d.RemovedConnections) == 0
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}
	diff := &SnapshotDiff{DiagramID: newSnap.ID}
	if oldSnap == nil {
		diff.Nodes = append(diff.Nodes, newSnap.Nodes...)
		diff.Connections = append(diff.Connections, newSnap.Connections...)
		return diff
	}

	oldNodes := make(map[string]NodeSnapshot, len(oldSnap.Nodes))
	for _, n := range oldSnap.Nodes {
		oldNodes[n.NodeID] = n
	}
	newNodes := make(map[string]bool, len(newSnap.Nodes))
	for _, n := range newSnap.Nodes {
		newNodes[n.NodeID] = true
		prev, ok := oldNodes[n.NodeID]
		if !ok || prev.Mode != n.Mode || prev.Type != n.Type {
			diff.Nodes = append(diff.Nodes, n)
		}
	}
	for _, n := range oldSnap.Nodes {
		if !newNodes[n.NodeID] {
			diff.RemovedNodes = append(diff.RemovedNodes, n.NodeID)
		}
	}

	oldConns := make(map[string]bool, len(oldSnap.Connections))
	for _, c := range oldSnap.Connections {
		oldConns[c.ID] = true
	}
	newConns := make(map[string]bool, len(newSnap.Connections))
	for _, c := range newSnap.Connections {
		newConns[c.ID] = true
		if !oldConns[c.ID] {
			diff.Connections = append(diff.Connections, c)
		}
	}
	for _, c := range oldSnap.Connections {
		if !newConns[c.ID] {
			diff.RemovedConnections = append(diff.RemovedConnections, c.ID)
		}
	}

	if diff.Empty() {
		return nil
	}
	return diff
}
