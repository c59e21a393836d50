// friendslist.go - Per-user adjacency of shared ledger edges.
//
// A FriendsList maps friend username to the shared *Friendship instance.
// The list never owns an edge alone: the same pointer sits in the friend's
// list (or in the group's edge arena), so mutations from either side are
// observed by both.
package ledger

import (
	"sort"
	"strings"
)

// SettledUp is the fixed status line rendered when no edge carries debt.
const SettledUp = "Everything is settled-up."

// FriendsList is one user's collection of ledger edges, one per friend.
type FriendsList struct {
	Owner       string
	friendships map[string]*Friendship
}

func NewFriendsList(owner string) *FriendsList {
	return &FriendsList{
		Owner:       owner,
		friendships: make(map[string]*Friendship),
	}
}

// AddFriendship registers a shared edge. The edge must involve the owner.
func (l *FriendsList) AddFriendship(f *Friendship) error {
	if !f.Involves(l.Owner) {
		return &InvalidArgumentError{Field: "friendship", Reason: "edge does not involve list owner"}
	}
	l.friendships[f.Other(l.Owner)] = f
	return nil
}

// RemoveFriendship drops the edge with friend. Absence is not an error.
func (l *FriendsList) RemoveFriendship(friend string) {
	delete(l.friendships, friend)
}

func (l *FriendsList) HasFriend(friend string) bool {
	_, ok := l.friendships[friend]
	return ok
}

// Friendship returns the shared edge with friend, or nil.
func (l *FriendsList) Friendship(friend string) *Friendship {
	return l.friendships[friend]
}

// Friends returns the friend usernames in sorted order. Map iteration is
// randomized; every caller that walks the list needs a stable order.
func (l *FriendsList) Friends() []string {
	names := make([]string, 0, len(l.friendships))
	for name := range l.friendships {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LendTo debits the edge with friend in the owner's favor.
func (l *FriendsList) LendTo(friend string, amount Money) error {
	f, ok := l.friendships[friend]
	if !ok {
		return ErrNotFriends
	}
	return f.Lend(l.Owner, amount)
}

// ReceiveFrom settles amount on the edge with friend toward zero.
func (l *FriendsList) ReceiveFrom(friend string, amount Money) error {
	f, ok := l.friendships[friend]
	if !ok {
		return ErrNotFriends
	}
	return f.Receive(l.Owner, amount)
}

// StatusReport concatenates the non-zero edge statuses, one per line, in
// sorted friend order. All settled yields the fixed settled-up sentence.
func (l *FriendsList) StatusReport() string {
	var sb strings.Builder
	for _, friend := range l.Friends() {
		status, err := l.friendships[friend].StatusFor(l.Owner)
		if err != nil || status == "" {
			continue
		}
		sb.WriteString(status)
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return SettledUp + "\n"
	}
	return sb.String()
}
