package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/states"
)

// GraphOverlay contains editor state to highlight on the graph.
type GraphOverlay struct {
	// Selected is the slot the user is working on.
	Selected string
	// Editing highlights every node currently in edit mode.
	Editing bool
}

// GenerateMermaid produces a Mermaid flowchart from a diagram snapshot.
// Node shapes follow the node type:
// - choice: {Rhombus}
// - freetext: [/Parallelogram/]
// - http_json: [[Subroutine]]
// - end: ((Circle))
// - empty slot or unknown type: [Rectangle]
// Connections outside the first declared group are drawn dotted and
// labelled with their group.
func GenerateMermaid(snap *domain.Snapshot, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	nodes := append([]domain.NodeSnapshot(nil), snap.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].Position, nodes[j].Position
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	owner := make(map[string]string) // endpoint ID -> mermaid node ID
	for _, n := range nodes {
		id := nodeID(n)
		for _, ep := range n.Endpoints {
			owner[ep.ID] = id
		}

		opener, closer := "[", "]"
		switch n.Type {
		case states.TypeChoice:
			opener, closer = "{", "}"
		case states.TypeFreetext:
			opener, closer = "[/", "/]"
		case states.TypeHTTPJSON:
			opener, closer = "[[", "]]"
		case states.TypeEnd:
			opener, closer = "((", "))"
		}

		label := n.SlotID
		if label == "" {
			label = n.NodeID
		}
		if n.Type != "" {
			label = fmt.Sprintf("%s <br/> %s", label, n.Type)
		}
		if text, ok := n.Fields["text"].(string); ok && text != "" {
			label = fmt.Sprintf("%s <br/> %s", label, text)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, escapeLabel(label), closer)
	}

	primary := ""
	if len(snap.Groups) > 0 {
		primary = snap.Groups[0].Name
	}
	for _, c := range snap.Connections {
		from, okFrom := owner[c.Source]
		to, okTo := owner[c.Target]
		if !okFrom || !okTo {
			continue
		}
		arrow := "-->"
		if primary != "" && c.Group != primary {
			arrow = fmt.Sprintf("-. \"%s\" .->", escapeLabel(c.Group))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds.
		sb.WriteString("    classDef editing fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		if overlay.Editing {
			for _, n := range nodes {
				if n.Mode == "edit" {
					fmt.Fprintf(&sb, "    class %s editing;\n", nodeID(n))
				}
			}
		}
		if overlay.Selected != "" {
			fmt.Fprintf(&sb, "    class %s selected;\n", sanitizeMermaidID(overlay.Selected))
		}
	}

	return sb.String()
}

func nodeID(n domain.NodeSnapshot) string {
	if n.SlotID != "" {
		return sanitizeMermaidID(n.SlotID)
	}
	return sanitizeMermaidID(n.NodeID)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
