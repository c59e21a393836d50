/*
store.go - Durable repository contract for the ledger

PURPOSE:

	Defines the interface between the domain and durable storage. Entities
	are keyed by username (users, payments, notifications, friends lists)
	and by group name (groups). Different implementations can use plain
	files, SQLite, or in-memory storage.

WRITE SEMANTICS:
  - AddUser / AddPayment / Add*Notification APPEND one record to that
    entity's log. Appending to a missing user namespace is an error.
  - UpdateFriendsList / UpdateGroup OVERWRITE the whole persisted snapshot
    of the entity: the entire adjacency or membership graph is rewritten
    whenever any edge in it changes.
  - ClearNotifications deletes both notification logs; absence is not an
    error.

DURABILITY CONTRACT:

	Calls are synchronous: they complete, or fail, before the service
	reports success to the caller. A process restart mid-write must not
	corrupt previously committed records; a partially written final record
	is skipped on the next load, never a load failure.

IMPLEMENTATIONS:
  - store/file:     JSON-lines logs + atomic snapshots (primary backend)
  - store/sqlite:   Embedded SQL backend
  - ledger/store:   In-memory, for tests and dev
*/
package ledger

import "context"

// Store is the durable repository the service commits every mutation to.
type Store interface {
	// LoadUsers reconstructs every user aggregate. Shared edges must be
	// interned: both endpoints of a friendship reference one instance.
	// Absence of storage yields an empty map.
	LoadUsers(ctx context.Context) (map[string]*User, error)

	// LoadGroups reconstructs every group with its edge balances.
	LoadGroups(ctx context.Context) (map[string]*Group, error)

	// AddUser persists identity and allocates the user's namespace.
	// Fails with ErrAlreadyExists if the username is present.
	AddUser(ctx context.Context, user *User) error

	// AddPayment appends one payment to the user's log.
	AddPayment(ctx context.Context, username string, p Payment) error

	// AddFriendNotification appends to the user's friend-scope log.
	AddFriendNotification(ctx context.Context, username string, n Notification) error

	// AddGroupNotification appends to the user's group-scope log.
	AddGroupNotification(ctx context.Context, username string, n Notification) error

	// UpdateFriendsList overwrites the user's persisted friends list.
	UpdateFriendsList(ctx context.Context, user *User) error

	// UpdateGroup overwrites the group's persisted snapshot.
	UpdateGroup(ctx context.Context, group *Group) error

	// ClearNotifications deletes both notification logs. Idempotent.
	ClearNotifications(ctx context.Context, username string) error
}
