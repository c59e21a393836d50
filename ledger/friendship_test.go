package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/split-ledger/ledger"
)

func newEdge(t *testing.T) *ledger.Friendship {
	t.Helper()
	f, err := ledger.NewFriendship("alice", "bobby")
	require.NoError(t, err)
	return f
}

func owed(t *testing.T, f *ledger.Friendship, user string) ledger.Money {
	t.Helper()
	m, err := f.OwedTo(user)
	require.NoError(t, err)
	return m
}

func TestNewFriendship_RejectsSelfEdge(t *testing.T) {
	_, err := ledger.NewFriendship("alice", "alice")
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestFriendship_Symmetry(t *testing.T) {
	// Invariant: what one side is owed, the other side owes, always.
	f := newEdge(t)
	require.NoError(t, f.Lend("alice", ledger.MustMoney("12.34")))
	require.NoError(t, f.Lend("bobby", ledger.MustMoney("2.50")))

	left := owed(t, f, "alice")
	right := owed(t, f, "bobby")
	if !left.Equal(right.Neg()) {
		t.Errorf("symmetry broken: alice owed %s, bobby owed %s", left, right)
	}
}

func TestFriendship_LendReceiveRoundTrip(t *testing.T) {
	f := newEdge(t)
	require.NoError(t, f.Lend("alice", ledger.MustMoney("7.77")))

	// alice is owed 7.77; receiving it back settles the edge exactly.
	require.NoError(t, f.Receive("alice", ledger.MustMoney("7.77")))
	if !owed(t, f, "alice").IsZero() {
		t.Errorf("expected settled edge, alice still owed %s", owed(t, f, "alice"))
	}
}

func TestFriendship_ReceiveTooMuch_LeavesBalanceUnchanged(t *testing.T) {
	f := newEdge(t)
	require.NoError(t, f.Lend("alice", ledger.MustMoney("5.00")))

	err := f.Receive("alice", ledger.MustMoney("5.01"))
	if !errors.Is(err, ledger.ErrReceiveTooMuch) {
		t.Fatalf("expected ErrReceiveTooMuch, got %v", err)
	}
	if !owed(t, f, "alice").Equal(ledger.MustMoney("5.00")) {
		t.Errorf("balance changed on failed receive: %s", owed(t, f, "alice"))
	}
}

func TestFriendship_ReceiveWrongDirection(t *testing.T) {
	f := newEdge(t)
	require.NoError(t, f.Lend("alice", ledger.MustMoney("5.00")))

	// bobby owes alice; bobby marking money as received is a sign mismatch.
	err := f.Receive("bobby", ledger.MustMoney("2.00"))
	if !errors.Is(err, ledger.ErrNothingOwed) {
		t.Fatalf("expected ErrNothingOwed, got %v", err)
	}
	if !owed(t, f, "alice").Equal(ledger.MustMoney("5.00")) {
		t.Errorf("balance changed on failed receive: %s", owed(t, f, "alice"))
	}
}

func TestFriendship_ReceiveOnSettledEdge(t *testing.T) {
	f := newEdge(t)
	// |0| < 0.01, so the too-much guard fires before the direction guard.
	err := f.Receive("alice", ledger.MustMoney("0.01"))
	if !errors.Is(err, ledger.ErrReceiveTooMuch) {
		t.Errorf("expected ErrReceiveTooMuch, got %v", err)
	}
}

func TestFriendship_PartialReceive(t *testing.T) {
	f := newEdge(t)
	require.NoError(t, f.Lend("bobby", ledger.MustMoney("10.00")))
	require.NoError(t, f.Receive("bobby", ledger.MustMoney("4.00")))

	if !owed(t, f, "bobby").Equal(ledger.MustMoney("6.00")) {
		t.Errorf("expected bobby owed 6.00, got %s", owed(t, f, "bobby"))
	}
}

func TestFriendship_StatusFor(t *testing.T) {
	f := newEdge(t)

	status, err := f.StatusFor("alice")
	require.NoError(t, err)
	if status != "" {
		t.Errorf("settled edge should render empty status, got %q", status)
	}

	require.NoError(t, f.Lend("alice", ledger.MustMoney("4.50")))

	status, err = f.StatusFor("bobby")
	require.NoError(t, err)
	if status != "alice: You owe 4.50 BGN" {
		t.Errorf("unexpected status for bobby: %q", status)
	}

	status, err = f.StatusFor("alice")
	require.NoError(t, err)
	if status != "bobby: Owes you 4.50 BGN" {
		t.Errorf("unexpected status for alice: %q", status)
	}
}

func TestFriendship_Strangers(t *testing.T) {
	f := newEdge(t)
	if err := f.Lend("mallory", ledger.MustMoney("1.00")); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("lend by stranger: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := f.OwedTo("mallory"); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("owedTo stranger: expected ErrInvalidArgument, got %v", err)
	}
}
