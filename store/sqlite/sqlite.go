/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:

	The embedded SQL alternative to the file backend. One database file,
	auto-migrated schema, WAL mode for crash recovery.

KEY TABLES:

	users:               Identity records (rowid preserves sign-up order)
	payments:            Per-user append-only payment log
	notifications:       Per-user pending queues, scoped friend/group
	friendships:         One row per edge, keyed by the canonical user pair
	groups/group_members/group_edges: Group snapshots

SHARED-EDGE INVARIANT:

	friendships is keyed (user_low, user_high), so the database cannot hold
	two balances for the same pair. UpdateFriendsList upserts the owner's
	edges; both endpoints resolve to the same row.

WRITE SEMANTICS:

	Appends are single INSERTs. UpdateGroup rewrites the group's member and
	edge rows in one transaction, the SQL equivalent of the file backend's
	whole-snapshot overwrite.

CONCURRENCY:

	A mutex serializes writers; WAL lets readers proceed. The service layer
	already serializes mutations, the mutex just keeps this package safe on
	its own.

SEE ALSO:
  - ledger/store.go: Interface definition
  - store/file: The file-based primary backend
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/split-ledger/ledger"
)

// Store implements ledger.Store on a single SQLite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		password_hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL REFERENCES users(username),
		amount TEXT NOT NULL,
		reason TEXT NOT NULL,
		split_with TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_username ON payments(username);

	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL REFERENCES users(username),
		scope TEXT NOT NULL CHECK (scope IN ('friend', 'group')),
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		group_name TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_username_scope
		ON notifications(username, scope);

	-- One row per ledger edge; the pair key makes duplicates impossible.
	CREATE TABLE IF NOT EXISTS friendships (
		user_low TEXT NOT NULL,
		user_high TEXT NOT NULL,
		left_user TEXT NOT NULL,
		right_user TEXT NOT NULL,
		left_owes TEXT NOT NULL,
		PRIMARY KEY (user_low, user_high)
	);

	CREATE TABLE IF NOT EXISTS groups (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_name TEXT NOT NULL REFERENCES groups(name),
		position INTEGER NOT NULL,
		username TEXT NOT NULL,
		PRIMARY KEY (group_name, position)
	);

	CREATE TABLE IF NOT EXISTS group_edges (
		group_name TEXT NOT NULL REFERENCES groups(name),
		left_user TEXT NOT NULL,
		right_user TEXT NOT NULL,
		left_owes TEXT NOT NULL,
		PRIMARY KEY (group_name, left_user, right_user)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOAD
// =============================================================================

func (s *Store) LoadUsers(ctx context.Context) (map[string]*ledger.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT username, first_name, last_name, password_hash FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	var personals []ledger.Personal
	for rows.Next() {
		var p ledger.Personal
		if err := rows.Scan(&p.Username, &p.FirstName, &p.LastName, &p.PasswordHash); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		personals = append(personals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	arena := ledger.NewEdgeArena()
	result := make(map[string]*ledger.User, len(personals))
	for _, p := range personals {
		u := ledger.NewUser(p)

		if err := s.loadFriendships(ctx, u, arena); err != nil {
			return nil, err
		}
		if err := s.loadPayments(ctx, u); err != nil {
			return nil, err
		}
		if err := s.loadNotifications(ctx, u); err != nil {
			return nil, err
		}
		result[p.Username] = u
	}
	return result, nil
}

func (s *Store) loadFriendships(ctx context.Context, u *ledger.User, arena *ledger.EdgeArena) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT left_user, right_user, left_owes FROM friendships
		 WHERE user_low = ? OR user_high = ?
		 ORDER BY user_low, user_high`, u.Username(), u.Username())
	if err != nil {
		return fmt.Errorf("load friendships of %s: %w", u.Username(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var snap ledger.EdgeSnapshot
		var owes string
		if err := rows.Scan(&snap.Left, &snap.Right, &owes); err != nil {
			return fmt.Errorf("scan friendship: %w", err)
		}
		balance, err := ledger.ParseBalance(owes)
		if err != nil {
			return fmt.Errorf("decode balance of edge %s/%s: %w", snap.Left, snap.Right, err)
		}
		snap.LeftOwes = balance
		if err := u.FriendsList.AddFriendship(arena.Intern(snap)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) loadPayments(ctx context.Context, u *ledger.User) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, reason, split_with, created_at FROM payments
		 WHERE username = ? ORDER BY rowid`, u.Username())
	if err != nil {
		return fmt.Errorf("load payments of %s: %w", u.Username(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p         ledger.Payment
			amount    string
			splitWith string
			createdAt string
		)
		if err := rows.Scan(&p.ID, &amount, &p.Reason, &splitWith, &createdAt); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		p.Issuer = u.Username()
		p.Amount, err = ledger.ParseBalance(amount)
		if err != nil {
			return fmt.Errorf("decode amount of payment %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(splitWith), &p.SplitWith); err != nil {
			return fmt.Errorf("decode payment counter-parties: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			p.CreatedAt = t
		}
		u.Payments = append(u.Payments, p)
	}
	return rows.Err()
}

func (s *Store) loadNotifications(ctx context.Context, u *ledger.User) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scope, kind, text, group_name FROM notifications
		 WHERE username = ? ORDER BY id`, u.Username())
	if err != nil {
		return fmt.Errorf("load notifications of %s: %w", u.Username(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var scope string
		var kind string
		var n ledger.Notification
		if err := rows.Scan(&scope, &kind, &n.Text, &n.Group); err != nil {
			return fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = ledger.NotificationKind(kind)
		if scope == "group" {
			u.GroupNotifications = append(u.GroupNotifications, n)
		} else {
			u.FriendNotifications = append(u.FriendNotifications, n)
		}
	}
	return rows.Err()
}

func (s *Store) LoadGroups(ctx context.Context) (map[string]*ledger.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM groups ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	result := make(map[string]*ledger.Group, len(names))
	for _, name := range names {
		snap, err := s.loadGroupSnapshot(ctx, name)
		if err != nil {
			return nil, err
		}
		g, err := ledger.RestoreGroup(snap)
		if err != nil {
			return nil, err
		}
		result[name] = g
	}
	return result, nil
}

func (s *Store) loadGroupSnapshot(ctx context.Context, name string) (ledger.GroupSnapshot, error) {
	snap := ledger.GroupSnapshot{Name: name}

	memberRows, err := s.db.QueryContext(ctx,
		`SELECT username FROM group_members WHERE group_name = ? ORDER BY position`, name)
	if err != nil {
		return snap, fmt.Errorf("load members of %s: %w", name, err)
	}
	defer memberRows.Close()
	for memberRows.Next() {
		var member string
		if err := memberRows.Scan(&member); err != nil {
			return snap, fmt.Errorf("scan member: %w", err)
		}
		snap.Members = append(snap.Members, member)
	}
	if err := memberRows.Err(); err != nil {
		return snap, err
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT left_user, right_user, left_owes FROM group_edges WHERE group_name = ?`, name)
	if err != nil {
		return snap, fmt.Errorf("load edges of %s: %w", name, err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e ledger.EdgeSnapshot
		var owes string
		if err := edgeRows.Scan(&e.Left, &e.Right, &owes); err != nil {
			return snap, fmt.Errorf("scan edge: %w", err)
		}
		e.LeftOwes, err = ledger.ParseBalance(owes)
		if err != nil {
			return snap, fmt.Errorf("decode balance of group edge %s/%s: %w", e.Left, e.Right, err)
		}
		snap.Edges = append(snap.Edges, e)
	}
	return snap, edgeRows.Err()
}

// =============================================================================
// WRITE
// =============================================================================

func (s *Store) AddUser(ctx context.Context, user *ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := user.Personal
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, first_name, last_name, password_hash) VALUES (?, ?, ?, ?)`,
		p.Username, p.FirstName, p.LastName, p.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ledger.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) AddPayment(ctx context.Context, username string, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUser(ctx, username); err != nil {
		return err
	}
	splitWith, err := json.Marshal(p.SplitWith)
	if err != nil {
		return fmt.Errorf("encode payment counter-parties: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO payments (id, username, amount, reason, split_with, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, username, p.Amount.String(), p.Reason, string(splitWith), p.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Store) AddFriendNotification(ctx context.Context, username string, n ledger.Notification) error {
	return s.addNotification(ctx, username, "friend", n)
}

func (s *Store) AddGroupNotification(ctx context.Context, username string, n ledger.Notification) error {
	return s.addNotification(ctx, username, "group", n)
}

func (s *Store) addNotification(ctx context.Context, username, scope string, n ledger.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUser(ctx, username); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (username, scope, kind, text, group_name) VALUES (?, ?, ?, ?, ?)`,
		username, scope, string(n.Kind), n.Text, n.Group)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) UpdateFriendsList(ctx context.Context, user *ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUser(ctx, user.Username()); err != nil {
		return err
	}

	snap := user.FriendsList.Snapshot()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin friends-list update: %w", err)
	}
	defer tx.Rollback()

	for _, e := range snap.Edges {
		low, high := e.Left, e.Right
		if high < low {
			low, high = high, low
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO friendships (user_low, user_high, left_user, right_user, left_owes)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (user_low, user_high) DO UPDATE SET left_owes = excluded.left_owes`,
			low, high, e.Left, e.Right, e.LeftOwes.String())
		if err != nil {
			return fmt.Errorf("upsert friendship: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) UpdateGroup(ctx context.Context, group *ledger.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := group.Snapshot()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group update: %w", err)
	}
	defer tx.Rollback()

	// Whole-snapshot overwrite: drop and rewrite the group's rows.
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_edges WHERE group_name = ?`, snap.Name); err != nil {
		return fmt.Errorf("clear group edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_name = ?`, snap.Name); err != nil {
		return fmt.Errorf("clear group members: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO groups (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, snap.Name); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	for i, member := range snap.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_name, position, username) VALUES (?, ?, ?)`,
			snap.Name, i, member); err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
	}
	for _, e := range snap.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_edges (group_name, left_user, right_user, left_owes) VALUES (?, ?, ?, ?)`,
			snap.Name, e.Left, e.Right, e.LeftOwes.String()); err != nil {
			return fmt.Errorf("insert group edge: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) ClearNotifications(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

func (s *Store) requireUser(ctx context.Context, username string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username = ?`, username).Scan(&one)
	if err == sql.ErrNoRows {
		return ledger.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	return nil
}
