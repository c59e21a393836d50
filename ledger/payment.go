// payment.go - Immutable record of an expense event.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Payment records who paid an amount, why, and who shared it. Payments are
// append-only facts; they are never mutated or purged.
type Payment struct {
	ID        string    `json:"id"`
	Issuer    string    `json:"issuer"`
	Amount    Money     `json:"amount"`
	Reason    string    `json:"reason"`
	SplitWith []string  `json:"split_with"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPayment validates and stamps a payment fact.
func NewPayment(issuer string, amount Money, reason string, splitWith []string) (Payment, error) {
	if _, err := ValidateAmount(amount); err != nil {
		return Payment{}, err
	}
	if len(splitWith) == 0 {
		return Payment{}, &InvalidArgumentError{Field: "split_with", Reason: "must name at least one counter-party"}
	}
	return Payment{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Amount:    amount,
		Reason:    reason,
		SplitWith: append([]string(nil), splitWith...),
		CreatedAt: time.Now().UTC(),
	}, nil
}
