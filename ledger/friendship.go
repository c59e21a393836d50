/*
friendship.go - A ledger edge: the signed balance between two users

PURPOSE:

	One Friendship is the single source of truth for how much one user owes
	another. The identical edge instance is referenced from both endpoints'
	friend lists, so a mutation from either side is visible to the other
	without a re-fetch.

SIGN CONVENTION:

	leftOwes > 0  => left owes right
	leftOwes < 0  => right owes left

INVARIANTS:
  - Left != Right
  - The balance is rounded to 2 decimals after every mutation
  - Receive never overshoots: it moves the balance toward zero, guarded by
    ErrReceiveTooMuch and ErrNothingOwed, and leaves it untouched on failure
*/
package ledger

// Friendship is a single signed balance between exactly two named parties.
type Friendship struct {
	Left     string `json:"left"`
	Right    string `json:"right"`
	LeftOwes Money  `json:"left_owes"`
}

// NewFriendship creates a settled edge between two distinct users.
func NewFriendship(left, right string) (*Friendship, error) {
	if left == right {
		return nil, &InvalidArgumentError{Field: "friendship", Reason: "both endpoints are the same user"}
	}
	return &Friendship{Left: left, Right: right}, nil
}

// Involves reports whether user is one of the two endpoints.
func (f *Friendship) Involves(user string) bool {
	return user == f.Left || user == f.Right
}

// Other returns the opposite endpoint.
func (f *Friendship) Other(user string) string {
	if user == f.Left {
		return f.Right
	}
	return f.Left
}

// Lend records that lender covered amount on behalf of the other endpoint.
func (f *Friendship) Lend(lender string, amount Money) error {
	switch lender {
	case f.Left:
		f.LeftOwes = f.LeftOwes.Sub(amount).Round2()
	case f.Right:
		f.LeftOwes = f.LeftOwes.Add(amount).Round2()
	default:
		return &InvalidArgumentError{Field: "lender", Reason: "not part of this friendship"}
	}
	return nil
}

// Receive records that receiver got amount back from the other endpoint,
// moving the balance toward zero. Fails without touching the balance when
// the amount exceeds what is owed or when the receiver is owed nothing.
func (f *Friendship) Receive(receiver string, amount Money) error {
	if !f.Involves(receiver) {
		return &InvalidArgumentError{Field: "receiver", Reason: "not part of this friendship"}
	}
	if f.LeftOwes.Abs().LessThan(amount) {
		return &ReceiveTooMuchError{Owed: f.LeftOwes.Abs(), Requested: amount}
	}

	if receiver == f.Left {
		if !f.LeftOwes.IsNegative() {
			return &NothingOwedError{Friend: f.Right}
		}
		f.LeftOwes = f.LeftOwes.Add(amount).Round2()
	} else {
		if !f.LeftOwes.IsPositive() {
			return &NothingOwedError{Friend: f.Left}
		}
		f.LeftOwes = f.LeftOwes.Sub(amount).Round2()
	}
	return nil
}

// OwedTo returns the signed amount relative to user: positive when user is
// owed money by the other endpoint, negative when user owes.
func (f *Friendship) OwedTo(user string) (Money, error) {
	switch user {
	case f.Left:
		return f.LeftOwes.Neg(), nil
	case f.Right:
		return f.LeftOwes, nil
	default:
		return Money{}, &InvalidArgumentError{Field: "user", Reason: "not part of this friendship"}
	}
}

// StatusFor renders the edge from user's point of view: "" when settled,
// otherwise a directional sentence naming the other endpoint.
func (f *Friendship) StatusFor(user string) (string, error) {
	if !f.Involves(user) {
		return "", &InvalidArgumentError{Field: "user", Reason: "not part of this friendship"}
	}

	balance := f.LeftOwes.Round2()
	if balance.IsZero() {
		return "", nil
	}

	other := f.Other(user)
	owes := balance
	if user == f.Right {
		owes = balance.Neg()
	}
	if owes.IsPositive() {
		return other + ": You owe " + owes.String() + " " + Currency, nil
	}
	return other + ": Owes you " + owes.Neg().String() + " " + Currency, nil
}
