package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/aretw0/espalier/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// Output that is not a terminal gets the markdown unchanged.
func NewRenderer(out *os.File) (func(string) (string, error), error) {
	if !IsTerminal(out) {
		return func(markdown string) (string, error) { return markdown, nil }, nil
	}
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width, _, err := term.GetSize(int(out.Fd())); err == nil && width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Summary describes a diagram snapshot as markdown: one section per slot in
// grid order, followed by the connections.
func Summary(snap *domain.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", snap.ID)

	nodes := append([]domain.NodeSnapshot(nil), snap.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].Position, nodes[j].Position
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	owner := make(map[string]string)
	for _, n := range nodes {
		for _, ep := range n.Endpoints {
			owner[ep.ID] = n.SlotID + "." + ep.Attr
		}

		if n.Type == "" {
			fmt.Fprintf(&sb, "## %s (empty)\n\n", n.SlotID)
			continue
		}
		fmt.Fprintf(&sb, "## %s `%s`\n\n", n.SlotID, n.Type)
		fmt.Fprintf(&sb, "- position: %d,%d\n- mode: %s\n", n.Position.X, n.Position.Y, n.Mode)

		keys := make([]string, 0, len(n.Fields))
		for k := range n.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %s\n", k, formatValue(n.Fields[k]))
		}
		sb.WriteString("\n")
	}

	if len(snap.Connections) > 0 {
		sb.WriteString("## Connections\n\n")
		sb.WriteString("| from | to | group |\n|---|---|---|\n")
		for _, c := range snap.Connections {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", lookupOwner(owner, c.Source), lookupOwner(owner, c.Target), c.Group)
		}
	}
	return sb.String()
}

func lookupOwner(owner map[string]string, id string) string {
	if o, ok := owner[id]; ok {
		return o
	}
	return id
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "_unset_"
	case string:
		if val == "" {
			return "_empty_"
		}
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = formatValue(p)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + formatValue(val[k])
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(val)
	}
}
