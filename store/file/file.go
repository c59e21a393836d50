/*
Package file is the file-backed implementation of ledger.Store.

PURPOSE:

	Durable storage with one physical file per log, laid out per entity:

	  <root>/users/users.jsonl                        identity append log
	  <root>/users/<name>/payments.jsonl              append log
	  <root>/users/<name>/friend_notifications.jsonl  append log
	  <root>/users/<name>/group_notifications.jsonl   append log
	  <root>/users/<name>/friends_list.json           whole snapshot
	  <root>/groups/<name>.json                       whole snapshot

WRITE SEMANTICS:

	Appends open O_APPEND, write one JSON line, and fsync before returning.
	Snapshots are written to a temp file, fsynced, and renamed over the
	target, so a reader never observes a half-written snapshot.

RESTART RECOVERY:

	A crash mid-append leaves at most one partial final line. Loads decode
	line by line and skip a trailing record that fails to decode; corruption
	anywhere earlier is a real storage error.

PATH SAFETY:

	Usernames and group names become directory and file names. The service
	validates both against [A-Za-z0-9_] before anything reaches this
	package.

SEE ALSO:
  - ledger/store.go: The contract this implements
  - store/sqlite: The SQL-backed alternative
*/
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/warp/split-ledger/ledger"
)

const (
	usersDirName  = "users"
	groupsDirName = "groups"

	usersFileName        = "users.jsonl"
	paymentsFileName     = "payments.jsonl"
	friendNotifsFileName = "friend_notifications.jsonl"
	groupNotifsFileName  = "group_notifications.jsonl"
	friendsListFileName  = "friends_list.json"

	snapshotExt = ".json"
)

// Store persists the ledger under a single root directory.
type Store struct {
	mu        sync.Mutex
	usersDir  string
	groupsDir string
	usersFile string
}

// New creates the directory layout if missing.
func New(root string) (*Store, error) {
	s := &Store{
		usersDir:  filepath.Join(root, usersDirName),
		groupsDir: filepath.Join(root, groupsDirName),
	}
	s.usersFile = filepath.Join(s.usersDir, usersFileName)

	for _, dir := range []string{s.usersDir, s.groupsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// =============================================================================
// LOAD
// =============================================================================

func (s *Store) LoadUsers(_ context.Context) (map[string]*ledger.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var personals []ledger.Personal
	if err := readLog(s.usersFile, func(raw []byte) error {
		var p ledger.Personal
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		personals = append(personals, p)
		return nil
	}); err != nil {
		return nil, err
	}

	arena := ledger.NewEdgeArena()
	result := make(map[string]*ledger.User, len(personals))
	for _, p := range personals {
		u := ledger.NewUser(p)

		snap, ok, err := s.readFriendsList(p.Username)
		if err != nil {
			return nil, err
		}
		if ok {
			list, err := arena.RestoreFriendsList(snap)
			if err != nil {
				return nil, err
			}
			u.FriendsList = list
		}

		if err := readLog(s.userFile(p.Username, paymentsFileName), func(raw []byte) error {
			var pay ledger.Payment
			if err := json.Unmarshal(raw, &pay); err != nil {
				return err
			}
			u.Payments = append(u.Payments, pay)
			return nil
		}); err != nil {
			return nil, err
		}

		for _, log := range []struct {
			name  string
			queue *[]ledger.Notification
		}{
			{friendNotifsFileName, &u.FriendNotifications},
			{groupNotifsFileName, &u.GroupNotifications},
		} {
			if err := readLog(s.userFile(p.Username, log.name), func(raw []byte) error {
				var n ledger.Notification
				if err := json.Unmarshal(raw, &n); err != nil {
					return err
				}
				*log.queue = append(*log.queue, n)
				return nil
			}); err != nil {
				return nil, err
			}
		}

		result[p.Username] = u
	}
	return result, nil
}

func (s *Store) LoadGroups(_ context.Context) (map[string]*ledger.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.groupsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]*ledger.Group{}, nil
		}
		return nil, fmt.Errorf("read groups directory: %w", err)
	}

	result := make(map[string]*ledger.Group)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotExt) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.groupsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read group snapshot %s: %w", entry.Name(), err)
		}
		var snap ledger.GroupSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("decode group snapshot %s: %w", entry.Name(), err)
		}
		g, err := ledger.RestoreGroup(snap)
		if err != nil {
			return nil, err
		}
		result[g.Name] = g
	}
	return result, nil
}

// =============================================================================
// APPEND LOGS
// =============================================================================

func (s *Store) AddUser(_ context.Context, user *ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.usersDir, user.Username())
	if _, err := os.Stat(dir); err == nil {
		return ledger.ErrAlreadyExists
	}

	if err := appendRecord(s.usersFile, user.Personal); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create user directory: %w", err)
	}
	return nil
}

func (s *Store) AddPayment(_ context.Context, username string, p ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendToUser(username, paymentsFileName, p)
}

func (s *Store) AddFriendNotification(_ context.Context, username string, n ledger.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendToUser(username, friendNotifsFileName, n)
}

func (s *Store) AddGroupNotification(_ context.Context, username string, n ledger.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendToUser(username, groupNotifsFileName, n)
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func (s *Store) UpdateFriendsList(_ context.Context, user *ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUserDir(user.Username()); err != nil {
		return err
	}
	return writeSnapshot(s.userFile(user.Username(), friendsListFileName), user.FriendsList.Snapshot())
}

func (s *Store) UpdateGroup(_ context.Context, group *ledger.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeSnapshot(filepath.Join(s.groupsDir, group.Name+snapshotExt), group.Snapshot())
}

func (s *Store) ClearNotifications(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{friendNotifsFileName, groupNotifsFileName} {
		if err := os.Remove(s.userFile(username, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete notification log: %w", err)
		}
	}
	return nil
}

// =============================================================================
// FILE PLUMBING
// =============================================================================

func (s *Store) userFile(username, name string) string {
	return filepath.Join(s.usersDir, username, name)
}

func (s *Store) requireUserDir(username string) error {
	if _, err := os.Stat(filepath.Join(s.usersDir, username)); err != nil {
		return ledger.ErrUserNotFound
	}
	return nil
}

func (s *Store) appendToUser(username, name string, record any) error {
	if err := s.requireUserDir(username); err != nil {
		return err
	}
	return appendRecord(s.userFile(username, name), record)
}

func (s *Store) readFriendsList(username string) (ledger.FriendsListSnapshot, bool, error) {
	raw, err := os.ReadFile(s.userFile(username, friendsListFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.FriendsListSnapshot{}, false, nil
		}
		return ledger.FriendsListSnapshot{}, false, fmt.Errorf("read friends list: %w", err)
	}
	var snap ledger.FriendsListSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return ledger.FriendsListSnapshot{}, false, fmt.Errorf("decode friends list of %s: %w", username, err)
	}
	return snap, true, nil
}

// appendRecord writes one JSON line and syncs before returning: once this
// function returns nil the record is durable.
func appendRecord(path string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("append to log %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync log %s: %w", path, err)
	}
	return nil
}

// readLog invokes decode for every line of an append log. A final record
// that fails to decode is a torn write from a crashed process and is
// skipped; an undecodable record with committed records after it is
// corruption and surfaces as an error. A missing log is empty.
func readLog(path string, decode func(raw []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	var pendingErr error
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if pendingErr != nil {
			return fmt.Errorf("corrupt record in log %s: %w", path, pendingErr)
		}
		if err := decode([]byte(line)); err != nil {
			pendingErr = err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log %s: %w", path, err)
	}
	return nil
}

// writeSnapshot replaces path atomically: temp file, fsync, rename.
func writeSnapshot(path string, snapshot any) error {
	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", path, err)
	}
	return nil
}
