// notification.go - Immutable textual event records, queued per recipient.
//
// A notification is created only as a side effect of a ledger mutation and
// consumed exactly once, at the recipient's next successful login. Instead
// of subtype dispatch, the variant is an explicit kind tag; User routes on
// it when enqueueing.
package ledger

import "fmt"

// NotificationKind selects the queue a notification lands in.
type NotificationKind string

const (
	KindFriend NotificationKind = "friend"
	KindGroup  NotificationKind = "group"
)

// Notification is an immutable event for one recipient. Equality is by
// rendered text, plus group name for the group kind.
type Notification struct {
	Kind  NotificationKind `json:"kind"`
	Text  string           `json:"text"`
	Group string           `json:"group,omitempty"`
}

// Fixed sentence templates; clients match on these strings.
const (
	tmplAddFriend    = "%s added you as a friend"
	tmplSplit        = "%s has split %s " + Currency + " with you [%s]"
	tmplReceive      = "%s approved the %s " + Currency + " you sent to them"
	tmplGroupCreated = "%s added you to group [%s]"
	tmplGroupSplit   = "%s has split %s " + Currency + " for [%s] in group [%s]"
)

func OfAddingFriend(actor string) Notification {
	return Notification{Kind: KindFriend, Text: fmt.Sprintf(tmplAddFriend, actor)}
}

func OfSplitting(actor string, amount Money, reason string) Notification {
	return Notification{Kind: KindFriend, Text: fmt.Sprintf(tmplSplit, actor, amount, reason)}
}

func OfReceiving(actor string, amount Money) Notification {
	return Notification{Kind: KindFriend, Text: fmt.Sprintf(tmplReceive, actor, amount)}
}

func OfGroupCreated(group, creator string) Notification {
	return Notification{Kind: KindGroup, Group: group, Text: fmt.Sprintf(tmplGroupCreated, creator, group)}
}

func OfGroupSplitting(group, actor string, amount Money, reason string) Notification {
	return Notification{Kind: KindGroup, Group: group, Text: fmt.Sprintf(tmplGroupSplit, actor, amount, reason, group)}
}

func OfGroupReceiving(group, actor string, amount Money) Notification {
	return Notification{Kind: KindGroup, Group: group, Text: fmt.Sprintf(tmplReceive, actor, amount)}
}

func (n Notification) Equal(o Notification) bool {
	return n.Kind == o.Kind && n.Text == o.Text && n.Group == o.Group
}
