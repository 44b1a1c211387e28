package plumbing

import "github.com/aretw0/espalier/pkg/domain"

// AcceptFunc decides whether source may be wired to target. It is directional:
// accepting (a, b) says nothing about (b, a).
type AcceptFunc func(source, target *Endpoint) bool

// Group is a named family of connections sharing an acceptance rule.
// Groups built by NewGroup keep their match pair so they can be persisted.
type Group struct {
	Name    string
	Accepts AcceptFunc
	From    *Match
	To      *Match
}

// Snapshot returns the serialisable form of a declarative group.
func (g *Group) Snapshot() (domain.GroupSnapshot, bool) {
	if g.From == nil || g.To == nil {
		return domain.GroupSnapshot{}, false
	}
	return domain.GroupSnapshot{
		Name: g.Name,
		From: domain.MatchSnapshot{Side: string(g.From.Side), Role: string(g.From.Role)},
		To:   domain.MatchSnapshot{Side: string(g.To.Side), Role: string(g.To.Role)},
	}, true
}

// Match selects endpoints by side and role. Empty fields match anything.
type Match struct {
	Side Side `mapstructure:"side" yaml:"side"`
	Role Role `mapstructure:"role" yaml:"role"`
}

// Matches reports whether e satisfies m.
func (m Match) Matches(e *Endpoint) bool {
	if e == nil {
		return false
	}
	if m.Side != "" && m.Side != e.Side {
		return false
	}
	if m.Role != "" && m.Role != e.Role {
		return false
	}
	return true
}

// Directed accepts pairs whose source matches from and whose target matches to.
// Endpoints of the same node are never linked.
func Directed(from, to Match) AcceptFunc {
	return func(source, target *Endpoint) bool {
		if source == nil || target == nil || source.Owner == target.Owner && source.Owner != "" {
			return false
		}
		return from.Matches(source) && to.Matches(target)
	}
}

// NewGroup builds a group from a directed match pair.
func NewGroup(name string, from, to Match) *Group {
	return &Group{Name: name, Accepts: Directed(from, to), From: &from, To: &to}
}

// ExitToEntry is the default dialogue group: any exit feeds any entry.
func ExitToEntry() *Group {
	return NewGroup("exitToEntry", Match{Role: RoleExit}, Match{Role: RoleEntry})
}

// LeftToRight links left-column endpoints to right-column endpoints.
func LeftToRight() *Group {
	return NewGroup("leftToRight", Match{Side: SideLeft}, Match{Side: SideRight})
}
