// dto.go - Request and response shapes for the HTTP surface.
//
// The API speaks plain JSON; amounts travel as decimal strings and are
// parsed through the Money contract before they reach the service.
package api

import "github.com/warp/split-ledger/ledger"

// =============================================================================
// REQUESTS
// =============================================================================

type SignUpRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AddFriendRequest struct {
	Username string `json:"username"`
	Friend   string `json:"friend"`
}

type CreateGroupRequest struct {
	Creator      string   `json:"creator"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

type SplitRequest struct {
	Payer  string `json:"payer"`
	Amount string `json:"amount"`
	Friend string `json:"friend"`
	Reason string `json:"reason"`
}

type GroupSplitRequest struct {
	Payer  string `json:"payer"`
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

type ReceiveRequest struct {
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
	Sender   string `json:"sender"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type ErrorResponse struct {
	Error string `json:"error"`
}

type LoginResponse struct {
	OK                  bool                  `json:"ok"`
	FriendNotifications []ledger.Notification `json:"friend_notifications"`
	GroupNotifications  []ledger.Notification `json:"group_notifications"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PaymentsResponse struct {
	Payments []ledger.Payment `json:"payments"`
}
