/*
user.go - The user aggregate

PURPOSE:

	Bundles identity and credentials with one friends list, the append-only
	payment history, and the two pending notification queues (friend scope
	and group scope, FIFO in insertion order).

CREDENTIALS:

	Passwords are stored as bcrypt hashes. Login is the only mutation
	triggered purely by authentication: on success it clears both queues.
	The caller captures the queues first if it wants to deliver them.
*/
package ledger

import "golang.org/x/crypto/bcrypt"

// Personal is a user's identity and credentials.
type Personal struct {
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"password_hash"`
}

// NewPersonal hashes the plaintext password with bcrypt.
func NewPersonal(username, firstName, lastName, password string) (Personal, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Personal{}, err
	}
	return Personal{
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
	}, nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (p Personal) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) == nil
}

// DisplayName renders "First Last [username]", the form notifications use.
func (p Personal) DisplayName() string {
	return p.FirstName + " " + p.LastName + " [" + p.Username + "]"
}

// User is the aggregate root for one account.
type User struct {
	Personal            Personal
	FriendsList         *FriendsList
	Payments            []Payment
	FriendNotifications []Notification
	GroupNotifications  []Notification
}

func NewUser(personal Personal) *User {
	return &User{
		Personal:    personal,
		FriendsList: NewFriendsList(personal.Username),
	}
}

func (u *User) Username() string { return u.Personal.Username }

// Login verifies credentials. On success both notification queues are
// cleared; on failure nothing changes.
func (u *User) Login(username, password string) bool {
	if username != u.Personal.Username || !u.Personal.CheckPassword(password) {
		return false
	}
	u.FriendNotifications = nil
	u.GroupNotifications = nil
	return true
}

// AddNotification routes group-kind notifications to the group queue and
// everything else to the friend queue, preserving insertion order.
func (u *User) AddNotification(n Notification) {
	if n.Kind == KindGroup {
		u.GroupNotifications = append(u.GroupNotifications, n)
		return
	}
	u.FriendNotifications = append(u.FriendNotifications, n)
}

func (u *User) AddPayment(p Payment) {
	u.Payments = append(u.Payments, p)
}

func (u *User) HasFriend(username string) bool {
	return u.FriendsList.HasFriend(username)
}

// OwedTo returns the signed amount this user is owed by friend.
func (u *User) OwedTo(friend string) (Money, error) {
	edge := u.FriendsList.Friendship(friend)
	if edge == nil {
		return Money{}, ErrNotFriends
	}
	return edge.OwedTo(u.Username())
}

func (u *User) Status() string {
	return u.FriendsList.StatusReport()
}
