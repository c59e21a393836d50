package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp/split-ledger/ledger"
	"github.com/warp/split-ledger/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newStore opens a database under t.TempDir() so a second open of the same
// path sees the first one's writes. Closing is deferred to cleanup.
func newStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	st, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, path
}

func addUser(t *testing.T, st *sqlite.Store, username string) *ledger.User {
	t.Helper()
	p, err := ledger.NewPersonal(username, "Test", "User", "secret1")
	require.NoError(t, err)
	u := ledger.NewUser(p)
	require.NoError(t, st.AddUser(context.Background(), u))
	return u
}

// =============================================================================
// TESTS
// =============================================================================

func TestAddUser_Duplicate(t *testing.T) {
	st, _ := newStore(t)
	addUser(t, st, "alice")

	p, err := ledger.NewPersonal("alice", "Other", "Person", "secret2")
	require.NoError(t, err)
	if err := st.AddUser(context.Background(), ledger.NewUser(p)); !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestAppendToMissingUser(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()

	err := st.AddFriendNotification(ctx, "ghost", ledger.OfAddingFriend("nobody"))
	if !errors.Is(err, ledger.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

// TestColdRoundTrip persists a complete slice of state, reopens the same
// database file, and checks the reload, including that both friend lists
// come back aliasing one shared edge.
func TestColdRoundTrip(t *testing.T) {
	st, path := newStore(t)
	ctx := context.Background()

	alice := addUser(t, st, "alice")
	bobby := addUser(t, st, "bobby")

	edge, err := ledger.NewFriendship("alice", "bobby")
	require.NoError(t, err)
	require.NoError(t, alice.FriendsList.AddFriendship(edge))
	require.NoError(t, bobby.FriendsList.AddFriendship(edge))
	require.NoError(t, edge.Lend("alice", ledger.MustMoney("4.50")))

	require.NoError(t, st.UpdateFriendsList(ctx, alice))
	require.NoError(t, st.UpdateFriendsList(ctx, bobby))

	payment, err := ledger.NewPayment("alice", ledger.MustMoney("9.00"), "lunch", []string{"bobby"})
	require.NoError(t, err)
	require.NoError(t, st.AddPayment(ctx, "alice", payment))
	require.NoError(t, st.AddFriendNotification(ctx, "bobby",
		ledger.OfSplitting("Test User [alice]", ledger.MustMoney("9.00"), "lunch")))
	require.NoError(t, st.AddGroupNotification(ctx, "bobby",
		ledger.OfGroupCreated("trip", "Test User [alice]")))

	group, err := ledger.NewGroup("trip", "alice", "bobby")
	require.NoError(t, err)
	require.NoError(t, group.Split("alice", ledger.MustMoney("9.00")))
	require.NoError(t, st.UpdateGroup(ctx, group))

	require.NoError(t, st.Close())
	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	users, err := reopened.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	gotAlice, gotBobby := users["alice"], users["bobby"]
	require.True(t, gotAlice.Personal.CheckPassword("secret1"))

	owed, err := gotAlice.OwedTo("bobby")
	require.NoError(t, err)
	if !owed.Equal(ledger.MustMoney("4.50")) {
		t.Errorf("alice is owed %s, want 4.50", owed)
	}

	// Shared edge: a receive on alice's list must be visible on bobby's.
	require.NoError(t, gotAlice.FriendsList.ReceiveFrom("bobby", ledger.MustMoney("4.50")))
	owed, err = gotBobby.OwedTo("alice")
	require.NoError(t, err)
	if !owed.IsZero() {
		t.Errorf("edge not shared after reload: bobby sees %s", owed)
	}

	require.Len(t, gotAlice.Payments, 1)
	require.Equal(t, payment.ID, gotAlice.Payments[0].ID)
	require.True(t, gotAlice.Payments[0].Amount.Equal(ledger.MustMoney("9.00")))
	require.Equal(t, []string{"bobby"}, gotAlice.Payments[0].SplitWith)

	require.Len(t, gotBobby.FriendNotifications, 1)
	require.Len(t, gotBobby.GroupNotifications, 1)
	require.Equal(t, "trip", gotBobby.GroupNotifications[0].Group)

	groups, err := reopened.LoadGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	status, err := groups["trip"].StatusFor("bobby")
	require.NoError(t, err)
	require.Contains(t, status, "alice: You owe 4.50 BGN")
}

// TestUpdateGroup_OverwritesWholeSnapshot drives two successive balance
// states through UpdateGroup; only the latest may survive.
func TestUpdateGroup_OverwritesWholeSnapshot(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")
	addUser(t, st, "bobby")

	group, err := ledger.NewGroup("trip", "alice", "bobby")
	require.NoError(t, err)
	require.NoError(t, group.Split("alice", ledger.MustMoney("9.00")))
	require.NoError(t, st.UpdateGroup(ctx, group))

	require.NoError(t, group.Receive("alice", ledger.MustMoney("4.50"), "bobby"))
	require.NoError(t, st.UpdateGroup(ctx, group))

	groups, err := st.LoadGroups(ctx)
	require.NoError(t, err)
	owed, err := groups["trip"].BalanceBetween("bobby", "alice")
	require.NoError(t, err)
	if !owed.IsZero() {
		t.Errorf("expected settled group after second snapshot, got %s", owed)
	}
}

func TestClearNotifications(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")
	require.NoError(t, st.AddFriendNotification(ctx, "alice", ledger.OfAddingFriend("Test User [bobby]")))
	require.NoError(t, st.AddGroupNotification(ctx, "alice", ledger.OfGroupCreated("trip", "Test User [bobby]")))

	require.NoError(t, st.ClearNotifications(ctx, "alice"))
	require.NoError(t, st.ClearNotifications(ctx, "alice")) // idempotent

	users, err := st.LoadUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users["alice"].FriendNotifications)
	require.Empty(t, users["alice"].GroupNotifications)
}

// TestLoadUsers_MalformedBalance corrupts a stored balance behind the store's
// back and expects the reload to refuse it rather than read it as zero.
func TestLoadUsers_MalformedBalance(t *testing.T) {
	st, path := newStore(t)
	ctx := context.Background()

	alice := addUser(t, st, "alice")
	bobby := addUser(t, st, "bobby")

	edge, err := ledger.NewFriendship("alice", "bobby")
	require.NoError(t, err)
	require.NoError(t, alice.FriendsList.AddFriendship(edge))
	require.NoError(t, bobby.FriendsList.AddFriendship(edge))
	require.NoError(t, edge.Lend("alice", ledger.MustMoney("4.50")))
	require.NoError(t, st.UpdateFriendsList(ctx, alice))
	require.NoError(t, st.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE friendships SET left_owes = 'garbage'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.LoadUsers(ctx)
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("expected a decode error for the corrupted balance, got %v", err)
	}
}
