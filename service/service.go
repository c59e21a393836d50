/*
Package service is the ledger API: the orchestrating façade every caller
goes through.

PURPOSE:

	Holds the in-memory system of record (users and groups, loaded once from
	the store at construction), validates and authenticates every call,
	drives the domain mutations, persists every touched entity, and emits
	notifications to the affected users.

OPERATION SHAPE:

	Every public operation follows the same sequence:
	  1. Validate string arguments (non-blank) and amounts (Money contract)
	  2. Authenticate the acting user (missing user = upstream logic bug,
	     logged at error severity)
	  3. Mutate through Friendship / FriendsList / Group / Splitter
	  4. Persist every touched entity, synchronously
	  5. Enqueue and persist notifications for the other affected users
	  6. Record a Payment fact where money changed hands via a split

ATOMICITY:

	An operation either runs to completion or fails without leaving a
	mutation behind: on a storage failure the in-memory change is rolled
	back before the error is surfaced, so memory never disagrees with disk
	in the committed direction.

CONCURRENCY:

	One RWMutex serializes mutating operations; reads of loaded state take
	the read lock. Edges are shared across friend lists and groups, so a
	single writer lock is the discipline that keeps multi-edge group splits
	consistent. The lock is held across the persistence call: an observer
	never sees a mutation applied to memory but not yet durable.
*/
package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/warp/split-ledger/ledger"
)

const pairwiseParts = 2

// Service is the façade over the loaded ledger and its store.
type Service struct {
	mu     sync.RWMutex
	users  map[string]*ledger.User
	groups map[string]*ledger.Group
	store  ledger.Store
	log    *logrus.Logger
}

// New loads the full ledger from store. The maps built here are the
// system of record for the life of the process.
func New(ctx context.Context, store ledger.Store, log *logrus.Logger) (*Service, error) {
	if log == nil {
		log = logrus.New()
	}

	users, err := store.LoadUsers(ctx)
	if err != nil {
		return nil, &ledger.StorageError{Op: "load users", Err: err}
	}
	groups, err := store.LoadGroups(ctx)
	if err != nil {
		return nil, &ledger.StorageError{Op: "load groups", Err: err}
	}

	log.WithFields(logrus.Fields{
		"users":  len(users),
		"groups": len(groups),
	}).Info("ledger loaded")

	return &Service{
		users:  users,
		groups: groups,
		store:  store,
		log:    log,
	}, nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// SignUp registers a new user and allocates its storage namespace.
func (s *Service) SignUp(ctx context.Context, username, password, firstName, lastName string) error {
	if err := ledger.ValidateStrings(username, password, firstName, lastName); err != nil {
		return err
	}
	if err := validateSignUp(username, password, firstName, lastName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return ledger.ErrAlreadyExists
	}

	personal, err := ledger.NewPersonal(username, firstName, lastName, password)
	if err != nil {
		return err
	}
	user := ledger.NewUser(personal)

	if err := s.store.AddUser(ctx, user); err != nil {
		return s.storageFailure("sign-up", err)
	}
	s.users[username] = user

	s.log.WithField("username", username).Info("user signed up")
	return nil
}

// LoginResult carries the notification queues captured before clearing.
type LoginResult struct {
	OK                  bool
	FriendNotifications []ledger.Notification
	GroupNotifications  []ledger.Notification
}

// Login authenticates and, on success only, hands back the pending
// notifications and clears them in memory and storage. A failed login
// leaves the queues untouched.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if err := ledger.ValidateStrings(username, password); err != nil {
		return LoginResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return LoginResult{}, nil
	}

	// Capture before the credential check clears the queues.
	captured := LoginResult{
		FriendNotifications: append([]ledger.Notification(nil), user.FriendNotifications...),
		GroupNotifications:  append([]ledger.Notification(nil), user.GroupNotifications...),
	}

	if !user.Login(username, password) {
		return LoginResult{}, nil
	}

	if err := s.store.ClearNotifications(ctx, username); err != nil {
		// Queues were cleared in memory; restore so delivery retries later.
		user.FriendNotifications = captured.FriendNotifications
		user.GroupNotifications = captured.GroupNotifications
		return LoginResult{}, s.storageFailure("login", err)
	}

	captured.OK = true
	s.log.WithField("username", username).Info("user logged in")
	return captured, nil
}

// =============================================================================
// FRIENDS
// =============================================================================

// AddFriend creates the shared edge between two users and registers it in
// both friend lists.
func (s *Service) AddFriend(ctx context.Context, username, friend string) error {
	if err := ledger.ValidateStrings(username, friend); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.authenticate(username)
	if err != nil {
		return err
	}
	if username == friend {
		return ledger.ErrAlreadyExists
	}
	friendUser, err := s.findUser(friend)
	if err != nil {
		return err
	}
	if user.HasFriend(friend) {
		return ledger.ErrAlreadyExists
	}

	edge, err := ledger.NewFriendship(username, friend)
	if err != nil {
		return err
	}
	if err := user.FriendsList.AddFriendship(edge); err != nil {
		return err
	}
	if err := friendUser.FriendsList.AddFriendship(edge); err != nil {
		return err
	}

	// A failed persist must leave neither list holding the new edge.
	unlink := func() {
		user.FriendsList.RemoveFriendship(friend)
		friendUser.FriendsList.RemoveFriendship(username)
	}
	if err := s.store.UpdateFriendsList(ctx, user); err != nil {
		unlink()
		return s.storageFailure("add friend", err)
	}
	if err := s.store.UpdateFriendsList(ctx, friendUser); err != nil {
		unlink()
		return s.storageFailure("add friend", err)
	}

	s.notify(ctx, friendUser, ledger.OfAddingFriend(user.Personal.DisplayName()))
	return nil
}

// Split divides amount evenly with one friend: the friend is debited one
// share on the shared edge, the payer keeps the other.
func (s *Service) Split(ctx context.Context, payer string, amount ledger.Money, friend, reason string) error {
	if err := ledger.ValidateStrings(payer, friend, reason); err != nil {
		return err
	}
	if _, err := ledger.ValidateAmount(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payerUser, err := s.authenticate(payer)
	if err != nil {
		return err
	}
	friendUser, err := s.findUser(friend)
	if err != nil {
		return err
	}
	if !payerUser.HasFriend(friend) {
		return ledger.ErrNotFriends
	}

	shares, err := ledger.Split(amount, pairwiseParts)
	if err != nil {
		return err
	}
	share := shares[0].Value

	edge := payerUser.FriendsList.Friendship(friend)
	rollback := snapshotEdges(edge)
	if err := payerUser.FriendsList.LendTo(friend, share); err != nil {
		return err
	}

	if err := s.persistEdgeOwners(ctx, rollback, payerUser, friendUser); err != nil {
		return s.storageFailure("split", err)
	}

	payment, err := ledger.NewPayment(payer, amount, reason, []string{friend})
	if err != nil {
		return err
	}
	s.recordPayment(ctx, payerUser, payment)

	s.notify(ctx, friendUser, ledger.OfSplitting(payerUser.Personal.DisplayName(), amount, reason))
	return nil
}

// Receive marks that receiver got amount back from sender on their edge.
func (s *Service) Receive(ctx context.Context, receiver string, amount ledger.Money, sender string) error {
	if err := ledger.ValidateStrings(receiver, sender); err != nil {
		return err
	}
	if _, err := ledger.ValidateAmount(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	receiverUser, err := s.authenticate(receiver)
	if err != nil {
		return err
	}
	senderUser, err := s.findUser(sender)
	if err != nil {
		return err
	}
	if !receiverUser.HasFriend(sender) || !senderUser.HasFriend(receiver) {
		return ledger.ErrNotFriends
	}

	edge := receiverUser.FriendsList.Friendship(sender)
	rollback := snapshotEdges(edge)
	if err := receiverUser.FriendsList.ReceiveFrom(sender, amount); err != nil {
		return err
	}

	if err := s.persistEdgeOwners(ctx, rollback, receiverUser, senderUser); err != nil {
		return s.storageFailure("receive", err)
	}

	s.notify(ctx, senderUser, ledger.OfReceiving(receiverUser.Personal.DisplayName(), amount))
	return nil
}

// =============================================================================
// GROUPS
// =============================================================================

// CreateGroup builds the complete graph over creator + participants and
// notifies every participant.
func (s *Service) CreateGroup(ctx context.Context, creator, groupName string, participants ...string) error {
	if err := ledger.ValidateStrings(append([]string{creator, groupName}, participants...)...); err != nil {
		return err
	}
	if !ledger.IsValidUsername(groupName) {
		return &ledger.InvalidArgumentError{Field: "group name", Reason: "must be a valid identifier"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creatorUser, err := s.authenticate(creator)
	if err != nil {
		return err
	}
	for _, participant := range participants {
		if _, err := s.findUser(participant); err != nil {
			return err
		}
	}
	if _, ok := s.groups[groupName]; ok {
		return ledger.ErrAlreadyExists
	}

	members := append(append([]string(nil), participants...), creator)
	group, err := ledger.NewGroup(groupName, members...)
	if err != nil {
		return err
	}

	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return s.storageFailure("create group", err)
	}
	s.groups[groupName] = group

	created := ledger.OfGroupCreated(groupName, creatorUser.Personal.DisplayName())
	for _, participant := range participants {
		s.notify(ctx, s.users[participant], created)
	}

	s.log.WithFields(logrus.Fields{
		"group":   groupName,
		"members": len(members),
	}).Info("group created")
	return nil
}

// SplitInGroup divides amount across the whole group, debiting every edge
// incident to the payer, and records a payment naming all co-members.
func (s *Service) SplitInGroup(ctx context.Context, payer string, amount ledger.Money, groupName, reason string) error {
	if err := ledger.ValidateStrings(payer, groupName, reason); err != nil {
		return err
	}
	if _, err := ledger.ValidateAmount(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payerUser, err := s.authenticate(payer)
	if err != nil {
		return err
	}
	group, err := s.findGroup(groupName)
	if err != nil {
		return err
	}
	if !group.HasMember(payer) {
		return ledger.ErrNotFriends
	}

	rollback := snapshotEdges(group.Edges()...)
	if err := group.Split(payer, amount); err != nil {
		return err
	}

	if err := s.store.UpdateGroup(ctx, group); err != nil {
		rollback.restore()
		return s.storageFailure("split in group", err)
	}

	var splitWith []string
	for _, member := range group.Members() {
		if member != payer {
			splitWith = append(splitWith, member)
		}
	}
	payment, err := ledger.NewPayment(payer, amount, reason, splitWith)
	if err != nil {
		return err
	}
	s.recordPayment(ctx, payerUser, payment)

	n := ledger.OfGroupSplitting(groupName, payerUser.Personal.DisplayName(), amount, reason)
	for _, member := range splitWith {
		s.notify(ctx, s.users[member], n)
	}
	return nil
}

// ReceiveInGroup settles amount between two members on their group edge.
func (s *Service) ReceiveInGroup(ctx context.Context, receiver string, amount ledger.Money, groupName, sender string) error {
	if err := ledger.ValidateStrings(receiver, groupName, sender); err != nil {
		return err
	}
	if _, err := ledger.ValidateAmount(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	receiverUser, err := s.authenticate(receiver)
	if err != nil {
		return err
	}
	senderUser, err := s.findUser(sender)
	if err != nil {
		return err
	}
	group, err := s.findGroup(groupName)
	if err != nil {
		return err
	}
	if !group.HasMember(receiver) || !group.HasMember(sender) {
		return ledger.ErrNotFriends
	}

	edge := group.Edge(receiver, sender)
	rollback := snapshotEdges(edge)
	if err := group.Receive(receiver, amount, sender); err != nil {
		return err
	}

	if err := s.store.UpdateGroup(ctx, group); err != nil {
		rollback.restore()
		return s.storageFailure("receive in group", err)
	}

	n := ledger.OfGroupReceiving(groupName, receiverUser.Personal.DisplayName(), amount)
	s.notify(ctx, senderUser, n)
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Status renders the acting user's friend report plus the report of every
// group they belong to, group names in sorted order.
func (s *Service) Status(_ context.Context, username string) (string, error) {
	if err := ledger.ValidateStrings(username); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.authenticate(username)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Friends:\n")
	sb.WriteString(user.Status())
	sb.WriteString("Groups:\n")

	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		group := s.groups[name]
		if !group.HasMember(username) {
			continue
		}
		status, err := group.StatusFor(username)
		if err != nil {
			return "", err
		}
		sb.WriteString(status)
	}
	return sb.String(), nil
}

// Payments returns the acting user's payment history in insertion order.
func (s *Service) Payments(_ context.Context, username string) ([]ledger.Payment, error) {
	if err := ledger.ValidateStrings(username); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.authenticate(username)
	if err != nil {
		return nil, err
	}
	return append([]ledger.Payment(nil), user.Payments...), nil
}

// FriendNotifications returns the pending friend-scope queue.
func (s *Service) FriendNotifications(_ context.Context, username string) ([]ledger.Notification, error) {
	if err := ledger.ValidateStrings(username); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.findUser(username)
	if err != nil {
		return nil, err
	}
	return append([]ledger.Notification(nil), user.FriendNotifications...), nil
}

// GroupNotifications returns the pending group-scope queue.
func (s *Service) GroupNotifications(_ context.Context, username string) ([]ledger.Notification, error) {
	if err := ledger.ValidateStrings(username); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.findUser(username)
	if err != nil {
		return nil, err
	}
	return append([]ledger.Notification(nil), user.GroupNotifications...), nil
}

// HasUser reports whether a username is registered. Used by the session
// layer ahead of login prompts.
func (s *Service) HasUser(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// =============================================================================
// INTERNAL
// =============================================================================

// authenticate resolves the acting user. Absence is a session-layer bug,
// logged at error severity and surfaced as ErrAuthentication.
func (s *Service) authenticate(username string) (*ledger.User, error) {
	user, ok := s.users[username]
	if !ok {
		s.log.WithField("username", username).Error("acting user not found; session layer out of sync")
		return nil, ledger.ErrAuthentication
	}
	return user, nil
}

func (s *Service) findUser(username string) (*ledger.User, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) findGroup(name string) (*ledger.Group, error) {
	group, ok := s.groups[name]
	if !ok {
		return nil, ledger.ErrGroupNotFound
	}
	return group, nil
}

// persistEdgeOwners overwrites both endpoints' friends lists; on failure
// the edge balances are restored before the error propagates.
func (s *Service) persistEdgeOwners(ctx context.Context, rollback edgeRollback, owners ...*ledger.User) error {
	for _, owner := range owners {
		if err := s.store.UpdateFriendsList(ctx, owner); err != nil {
			rollback.restore()
			return err
		}
	}
	return nil
}

// recordPayment appends to the payer's history. A failed payment write is
// logged but does not undo the committed balance change: the ledger is
// the authority, the history an annotation.
func (s *Service) recordPayment(ctx context.Context, payer *ledger.User, payment ledger.Payment) {
	payer.AddPayment(payment)
	if err := s.store.AddPayment(ctx, payer.Username(), payment); err != nil {
		s.log.WithError(err).WithField("username", payer.Username()).Error("payment record not persisted")
	}
}

func (s *Service) notify(ctx context.Context, recipient *ledger.User, n ledger.Notification) {
	recipient.AddNotification(n)
	var err error
	if n.Kind == ledger.KindGroup {
		err = s.store.AddGroupNotification(ctx, recipient.Username(), n)
	} else {
		err = s.store.AddFriendNotification(ctx, recipient.Username(), n)
	}
	if err != nil {
		s.log.WithError(err).WithField("username", recipient.Username()).Error("notification not persisted")
	}
}

func (s *Service) storageFailure(op string, err error) error {
	s.log.WithError(err).WithField("op", op).Error("storage failure")
	return &ledger.StorageError{Op: op, Err: err}
}

// validateSignUp enforces the identity format rules.
func validateSignUp(username, password, firstName, lastName string) error {
	if !ledger.IsValidUsername(username) {
		return &ledger.InvalidArgumentError{Field: "username",
			Reason: "must be 4-30 alphanumeric characters, not starting with a digit"}
	}
	if !ledger.IsValidName(firstName) || !ledger.IsValidName(lastName) {
		return &ledger.InvalidArgumentError{Field: "name",
			Reason: "first and last name must be 2-30 letters"}
	}
	if !ledger.IsValidPassword(password) {
		return &ledger.InvalidArgumentError{Field: "password",
			Reason: "must be 6-30 characters"}
	}
	return nil
}

// =============================================================================
// EDGE ROLLBACK
// =============================================================================

// edgeRollback captures edge balances so a failed persistence call can put
// memory back where disk still is.
type edgeRollback struct {
	edges    []*ledger.Friendship
	balances []ledger.Money
}

func snapshotEdges(edges ...*ledger.Friendship) edgeRollback {
	r := edgeRollback{edges: edges}
	for _, e := range edges {
		r.balances = append(r.balances, e.LeftOwes)
	}
	return r
}

func (r edgeRollback) restore() {
	for i, e := range r.edges {
		e.LeftOwes = r.balances[i]
	}
}
