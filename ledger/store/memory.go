// Package store provides an in-memory ledger.Store for tests and dev.
//
// Everything is held as value snapshots, so LoadUsers and LoadGroups
// rebuild fresh aggregates exactly the way a cold start from a durable
// backend would, shared-edge interning included.
package store

import (
	"context"
	"sync"

	"github.com/warp/split-ledger/ledger"
)

type Memory struct {
	mu           sync.RWMutex
	personals    map[string]ledger.Personal
	order        []string
	payments     map[string][]ledger.Payment
	friendNotifs map[string][]ledger.Notification
	groupNotifs  map[string][]ledger.Notification
	friendsLists map[string]ledger.FriendsListSnapshot
	groups       map[string]ledger.GroupSnapshot
}

func NewMemory() *Memory {
	return &Memory{
		personals:    make(map[string]ledger.Personal),
		payments:     make(map[string][]ledger.Payment),
		friendNotifs: make(map[string][]ledger.Notification),
		groupNotifs:  make(map[string][]ledger.Notification),
		friendsLists: make(map[string]ledger.FriendsListSnapshot),
		groups:       make(map[string]ledger.GroupSnapshot),
	}
}

func (m *Memory) LoadUsers(_ context.Context) (map[string]*ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	arena := ledger.NewEdgeArena()
	result := make(map[string]*ledger.User, len(m.personals))
	for _, username := range m.order {
		u := ledger.NewUser(m.personals[username])
		if snap, ok := m.friendsLists[username]; ok {
			list, err := arena.RestoreFriendsList(snap)
			if err != nil {
				return nil, err
			}
			u.FriendsList = list
		}
		u.Payments = append([]ledger.Payment(nil), m.payments[username]...)
		u.FriendNotifications = append([]ledger.Notification(nil), m.friendNotifs[username]...)
		u.GroupNotifications = append([]ledger.Notification(nil), m.groupNotifs[username]...)
		result[username] = u
	}
	return result, nil
}

func (m *Memory) LoadGroups(_ context.Context) (map[string]*ledger.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*ledger.Group, len(m.groups))
	for name, snap := range m.groups {
		g, err := ledger.RestoreGroup(snap)
		if err != nil {
			return nil, err
		}
		result[name] = g
	}
	return result, nil
}

func (m *Memory) AddUser(_ context.Context, user *ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	username := user.Username()
	if _, ok := m.personals[username]; ok {
		return ledger.ErrAlreadyExists
	}
	m.personals[username] = user.Personal
	m.order = append(m.order, username)
	return nil
}

func (m *Memory) AddPayment(_ context.Context, username string, p ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.exists(username); err != nil {
		return err
	}
	m.payments[username] = append(m.payments[username], p)
	return nil
}

func (m *Memory) AddFriendNotification(_ context.Context, username string, n ledger.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.exists(username); err != nil {
		return err
	}
	m.friendNotifs[username] = append(m.friendNotifs[username], n)
	return nil
}

func (m *Memory) AddGroupNotification(_ context.Context, username string, n ledger.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.exists(username); err != nil {
		return err
	}
	m.groupNotifs[username] = append(m.groupNotifs[username], n)
	return nil
}

func (m *Memory) UpdateFriendsList(_ context.Context, user *ledger.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.exists(user.Username()); err != nil {
		return err
	}
	m.friendsLists[user.Username()] = user.FriendsList.Snapshot()
	return nil
}

func (m *Memory) UpdateGroup(_ context.Context, group *ledger.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.groups[group.Name] = group.Snapshot()
	return nil
}

func (m *Memory) ClearNotifications(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.friendNotifs, username)
	delete(m.groupNotifs, username)
	return nil
}

func (m *Memory) exists(username string) error {
	if _, ok := m.personals[username]; !ok {
		return ledger.ErrUserNotFound
	}
	return nil
}
