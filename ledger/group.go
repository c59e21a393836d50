/*
group.go - A named set of members forming a complete graph of ledger edges

PURPOSE:

	Every pair of group members shares exactly one Friendship edge. The group
	owns those edges in a flat arena keyed by the canonical member pair, so
	the shared-edge invariant is structural: there is nowhere to store a
	duplicate.

SPLIT CONTRACT:

	Split asks the splitter for memberCount shares and consumes exactly
	memberCount-1 of them, one per edge incident to the payer, walking the
	share multiset in emission order and the co-members in roster order. The
	one surplus share is the payer's own portion and is discarded.

SEE ALSO:
  - splitter.go: The ordered-multiset contract Split consumes
  - friendship.go: The per-pair balance mechanics
*/
package ledger

import "strings"

// pairKey is the canonical (lexicographically ordered) member pair.
type pairKey struct {
	low, high string
}

func makePair(a, b string) pairKey {
	if a < b {
		return pairKey{low: a, high: b}
	}
	return pairKey{low: b, high: a}
}

// Group is a fixed member set with one shared edge per member pair.
type Group struct {
	Name    string
	members []string
	edges   map[pairKey]*Friendship
}

// NewGroup builds the complete graph over members. Member order is kept as
// given; duplicate names are rejected.
func NewGroup(name string, members ...string) (*Group, error) {
	g := &Group{
		Name:  name,
		edges: make(map[pairKey]*Friendship),
	}

	seen := make(map[string]bool, len(members))
	for _, member := range members {
		if seen[member] {
			return nil, ErrDuplicateMember
		}
		seen[member] = true
		g.members = append(g.members, member)
	}

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			edge, err := NewFriendship(members[i], members[j])
			if err != nil {
				return nil, err
			}
			g.edges[makePair(members[i], members[j])] = edge
		}
	}
	return g, nil
}

func (g *Group) HasMember(username string) bool {
	for _, m := range g.members {
		if m == username {
			return true
		}
	}
	return false
}

// Members returns the roster in creation order.
func (g *Group) Members() []string {
	out := make([]string, len(g.members))
	copy(out, g.members)
	return out
}

// Edge returns the shared edge between two members, or nil.
func (g *Group) Edge(a, b string) *Friendship {
	return g.edges[makePair(a, b)]
}

// Edges returns every edge in the group, in roster pair order.
func (g *Group) Edges() []*Friendship {
	var out []*Friendship
	for i := 0; i < len(g.members); i++ {
		for j := i + 1; j < len(g.members); j++ {
			out = append(out, g.edges[makePair(g.members[i], g.members[j])])
		}
	}
	return out
}

// Split divides amount across all members and debits the payer's edges to
// every co-member, one share each in roster order. The surplus share left
// over once edges are exhausted is the payer's own and is dropped.
func (g *Group) Split(payer string, amount Money) error {
	if !g.HasMember(payer) {
		return ErrNotFriends
	}

	shares, err := Split(amount, len(g.members))
	if err != nil {
		return err
	}

	others := g.othersOf(payer)
	next := 0
	for _, share := range shares {
		for i := 0; i < share.Count; i++ {
			if next >= len(others) {
				return nil
			}
			edge := g.edges[makePair(payer, others[next])]
			if err := edge.Lend(payer, share.Value); err != nil {
				return err
			}
			next++
		}
	}
	return nil
}

// Receive settles amount on the edge between receiver and sender.
func (g *Group) Receive(receiver string, amount Money, sender string) error {
	if !g.HasMember(receiver) || !g.HasMember(sender) {
		return ErrNotFriends
	}
	return g.edges[makePair(receiver, sender)].Receive(receiver, amount)
}

// StatusFor renders the group header followed by member's non-zero edge
// statuses in roster order.
func (g *Group) StatusFor(member string) (string, error) {
	if !g.HasMember(member) {
		return "", ErrNotFriends
	}

	var sb strings.Builder
	sb.WriteString(g.Name)
	sb.WriteString(":\n")

	empty := true
	for _, other := range g.othersOf(member) {
		status, err := g.edges[makePair(member, other)].StatusFor(member)
		if err != nil || status == "" {
			continue
		}
		sb.WriteString(status)
		sb.WriteString("\n")
		empty = false
	}
	if empty {
		sb.WriteString(SettledUp)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// BalanceBetween returns the signed amount a owes b: positive when a is in
// debt to b.
func (g *Group) BalanceBetween(a, b string) (Money, error) {
	if !g.HasMember(a) || !g.HasMember(b) {
		return Money{}, ErrNotFriends
	}
	owed, err := g.edges[makePair(a, b)].OwedTo(a)
	if err != nil {
		return Money{}, err
	}
	return owed.Neg(), nil
}

// othersOf returns the roster without member, keeping creation order. This
// is the deterministic edge order Split walks.
func (g *Group) othersOf(member string) []string {
	var out []string
	for _, m := range g.members {
		if m != member {
			out = append(out, m)
		}
	}
	return out
}
