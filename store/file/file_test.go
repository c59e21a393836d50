package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp/split-ledger/ledger"
	"github.com/warp/split-ledger/store/file"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newStore(t *testing.T) (*file.Store, string) {
	t.Helper()
	root := t.TempDir()
	st, err := file.New(root)
	require.NoError(t, err)
	return st, root
}

func makeUser(t *testing.T, username string) *ledger.User {
	t.Helper()
	p, err := ledger.NewPersonal(username, "Test", "User", "secret1")
	require.NoError(t, err)
	return ledger.NewUser(p)
}

func addUser(t *testing.T, st *file.Store, username string) *ledger.User {
	t.Helper()
	u := makeUser(t, username)
	require.NoError(t, st.AddUser(context.Background(), u))
	return u
}

// =============================================================================
// USERS
// =============================================================================

func TestAddUser_Duplicate(t *testing.T) {
	st, _ := newStore(t)
	addUser(t, st, "alice")

	err := st.AddUser(context.Background(), makeUser(t, "alice"))
	if !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestAppendToMissingUser(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()

	n := ledger.OfAddingFriend("nobody")
	if err := st.AddFriendNotification(ctx, "ghost", n); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Errorf("notification append: expected ErrUserNotFound, got %v", err)
	}

	p, err := ledger.NewPayment("ghost", ledger.MustMoney("1.00"), "void", []string{"alice"})
	require.NoError(t, err)
	if err := st.AddPayment(ctx, "ghost", p); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Errorf("payment append: expected ErrUserNotFound, got %v", err)
	}
}

// =============================================================================
// COLD ROUND-TRIP
// =============================================================================

// TestColdRoundTrip writes users, a shared edge with a balance, payments
// and notifications, then reloads from disk with a fresh Store and checks
// everything came back, including edge sharing between the two lists.
func TestColdRoundTrip(t *testing.T) {
	st, root := newStore(t)
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

	group, err := ledger.NewGroup("trip", "alice", "bobby")
	require.NoError(t, err)
	require.NoError(t, group.Split("alice", ledger.MustMoney("9.00")))
	require.NoError(t, st.UpdateGroup(ctx, group))

	// Reload through a brand-new store on the same root.
	reopened, err := file.New(root)
	require.NoError(t, err)

	users, err := reopened.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	gotAlice, gotBobby := users["alice"], users["bobby"]
	require.NotNil(t, gotAlice)
	require.NotNil(t, gotBobby)
	require.True(t, gotAlice.Personal.CheckPassword("secret1"))

	owed, err := gotAlice.OwedTo("bobby")
	require.NoError(t, err)
	if !owed.Equal(ledger.MustMoney("4.50")) {
		t.Errorf("alice is owed %s, want 4.50", owed)
	}

	// The reloaded lists must alias a single edge: settling from alice's
	// side has to show up on bobby's.
	require.NoError(t, gotAlice.FriendsList.ReceiveFrom("bobby", ledger.MustMoney("4.50")))
	owed, err = gotBobby.OwedTo("alice")
	require.NoError(t, err)
	if !owed.IsZero() {
		t.Errorf("edge not shared after reload: bobby sees %s", owed)
	}

	require.Len(t, gotAlice.Payments, 1)
	require.Equal(t, "lunch", gotAlice.Payments[0].Reason)
	require.Equal(t, payment.ID, gotAlice.Payments[0].ID)

	require.Len(t, gotBobby.FriendNotifications, 1)
	require.Contains(t, gotBobby.FriendNotifications[0].Text, "lunch")

	groups, err := reopened.LoadGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	status, err := groups["trip"].StatusFor("bobby")
	require.NoError(t, err)
	require.Contains(t, status, "alice: You owe 4.50 BGN")
}

// =============================================================================
// CRASH TOLERANCE
// =============================================================================

// TestReadLog_TornFinalRecord simulates a crash mid-append: a truncated
// final line must be skipped, committed records before it kept.
func TestReadLog_TornFinalRecord(t *testing.T) {
	st, root := newStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")

	require.NoError(t, st.AddFriendNotification(ctx, "alice", ledger.OfAddingFriend("Test User [bobby]")))

	logPath := filepath.Join(root, "users", "alice", "friend_notifications.jsonl")
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"kind":1,"text":"half a rec`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	users, err := st.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users["alice"].FriendNotifications, 1, "committed record lost")
}

// TestReadLog_MidFileCorruption: garbage followed by a valid record is not
// a torn tail, the load must fail.
func TestReadLog_MidFileCorruption(t *testing.T) {
	st, root := newStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")

	logPath := filepath.Join(root, "users", "alice", "friend_notifications.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte("not json at all\n"), 0o644))
	require.NoError(t, st.AddFriendNotification(ctx, "alice", ledger.OfAddingFriend("Test User [bobby]")))

	_, err := st.LoadUsers(ctx)
	if err == nil {
		t.Fatal("expected corruption error, got nil")
	}
}

func TestClearNotifications_Idempotent(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")
	require.NoError(t, st.AddFriendNotification(ctx, "alice", ledger.OfAddingFriend("Test User [bobby]")))

	require.NoError(t, st.ClearNotifications(ctx, "alice"))
	// Second clear hits missing files and must still succeed.
	require.NoError(t, st.ClearNotifications(ctx, "alice"))

	users, err := st.LoadUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users["alice"].FriendNotifications)
}

func TestUpdateFriendsList_MissingUser(t *testing.T) {
	st, _ := newStore(t)
	u := makeUser(t, "ghost")
	if err := st.UpdateFriendsList(context.Background(), u); !errors.Is(err, ledger.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
