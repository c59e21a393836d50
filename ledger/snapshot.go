/*
snapshot.go - Serializable snapshots of graph-shaped entities

PURPOSE:

	FriendsList and Group alias shared Friendship edges, which plain
	serialization cannot express. Snapshots flatten an entity into value
	records; restoring interns edges by their canonical endpoint pair so
	both sides of every pair observe the same instance again.

	Store implementations persist and load snapshots; they never reach into
	the live graph.
*/
package ledger

// EdgeSnapshot is the persisted form of one Friendship.
type EdgeSnapshot struct {
	Left     string `json:"left"`
	Right    string `json:"right"`
	LeftOwes Money  `json:"left_owes"`
}

// FriendsListSnapshot is the persisted form of one user's adjacency.
type FriendsListSnapshot struct {
	Owner string         `json:"owner"`
	Edges []EdgeSnapshot `json:"edges"`
}

// GroupSnapshot is the persisted form of a group: roster plus every edge
// of the complete graph.
type GroupSnapshot struct {
	Name    string         `json:"name"`
	Members []string       `json:"members"`
	Edges   []EdgeSnapshot `json:"edges"`
}

// Snapshot flattens the friends list, edges in sorted friend order.
func (l *FriendsList) Snapshot() FriendsListSnapshot {
	snap := FriendsListSnapshot{Owner: l.Owner}
	for _, friend := range l.Friends() {
		f := l.friendships[friend]
		snap.Edges = append(snap.Edges, EdgeSnapshot{Left: f.Left, Right: f.Right, LeftOwes: f.LeftOwes})
	}
	return snap
}

// Snapshot flattens the group in roster order.
func (g *Group) Snapshot() GroupSnapshot {
	snap := GroupSnapshot{Name: g.Name, Members: g.Members()}
	for _, f := range g.Edges() {
		snap.Edges = append(snap.Edges, EdgeSnapshot{Left: f.Left, Right: f.Right, LeftOwes: f.LeftOwes})
	}
	return snap
}

// EdgeArena interns Friendship edges by canonical endpoint pair. Loaders
// funnel every restored edge through one arena per scope so that aliasing
// survives a cold start.
type EdgeArena struct {
	edges map[pairKey]*Friendship
}

func NewEdgeArena() *EdgeArena {
	return &EdgeArena{edges: make(map[pairKey]*Friendship)}
}

// Intern returns the canonical edge for the snapshot's pair, creating it
// on first sight. The first snapshot seen for a pair sets the balance.
func (a *EdgeArena) Intern(snap EdgeSnapshot) *Friendship {
	k := makePair(snap.Left, snap.Right)
	if f, ok := a.edges[k]; ok {
		return f
	}
	f := &Friendship{Left: snap.Left, Right: snap.Right, LeftOwes: snap.LeftOwes}
	a.edges[k] = f
	return f
}

// RestoreFriendsList rebuilds a user's adjacency through the arena.
func (a *EdgeArena) RestoreFriendsList(snap FriendsListSnapshot) (*FriendsList, error) {
	l := NewFriendsList(snap.Owner)
	for _, e := range snap.Edges {
		if err := l.AddFriendship(a.Intern(e)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// RestoreGroup rebuilds a group from its snapshot. Group edges are scoped
// to the group, so each group uses a private arena.
func RestoreGroup(snap GroupSnapshot) (*Group, error) {
	g, err := NewGroup(snap.Name, snap.Members...)
	if err != nil {
		return nil, err
	}
	for _, e := range snap.Edges {
		edge := g.Edge(e.Left, e.Right)
		if edge == nil {
			return nil, &InvalidArgumentError{Field: "group snapshot", Reason: "edge between non-members"}
		}
		// The rebuilt edge may be oriented the other way round.
		if edge.Left == e.Left {
			edge.LeftOwes = e.LeftOwes
		} else {
			edge.LeftOwes = e.LeftOwes.Neg()
		}
	}
	return g, nil
}
