/*
splitter.go - Fair remainder-distributing partition of an amount

PURPOSE:

	Divides an amount into N shares whose sum equals the amount exactly,
	every share rounded to 2 decimals, the rounding remainder handed out
	one cent at a time.

ALGORITHM:

	share = amount / parts
	If share already has <= 2 decimal digits, all remaining parts get that
	exact share. Otherwise one participant gets the half-up rounded share,
	the rounded share is subtracted from the amount, and the procedure
	repeats with one participant fewer. For money-scale inputs this yields
	at most two distinct share values (a floor and a ceiling cent amount).

OUTPUT CONTRACT:

	Split returns an ordered multiset of (value, count) pairs. Equal values
	are merged into the entry where the value first appeared, so iteration
	order is deterministic. Sum(value*count) == amount and Sum(count) ==
	parts, always. Group.Split relies on this: it requests parts ==
	memberCount and consumes exactly memberCount-1 shares, discarding the
	surplus one (the payer's own).

SEE ALSO:
  - group.go: The only multi-party consumer of Split
*/
package ledger

import "github.com/shopspring/decimal"

// minimumShare is one cent: no participant may end up with a zero share.
var minimumShare = decimal.New(1, -2)

// Share is one distinct share value and how many participants receive it.
type Share struct {
	Value Money `json:"value"`
	Count int   `json:"count"`
}

// Split partitions amount into parts shares. Returns ErrSplitTooSmall when
// the per-head share would round below one cent, ErrInvalidArgument when
// amount or parts is not positive.
func Split(amount Money, parts int) ([]Share, error) {
	if !amount.IsPositive() {
		return nil, &InvalidArgumentError{Field: "amount", Reason: "must be positive"}
	}
	if parts <= 0 {
		return nil, &InvalidArgumentError{Field: "parts", Reason: "must be positive"}
	}
	if amount.DivInt(parts).Value.LessThan(minimumShare) {
		return nil, ErrSplitTooSmall
	}

	var shares []Share
	remaining := amount
	for parts > 0 {
		share := remaining.DivInt(parts)
		if share.HasCentPrecision() {
			shares = addShare(shares, share, parts)
			break
		}

		share = share.Round2()
		shares = addShare(shares, share, 1)
		remaining = remaining.Sub(share)
		parts--
	}
	return shares, nil
}

// addShare merges equal values so the result is a multiset with a stable
// first-emission order.
func addShare(shares []Share, value Money, count int) []Share {
	for i := range shares {
		if shares[i].Value.Equal(value) {
			shares[i].Count += count
			return shares
		}
	}
	return append(shares, Share{Value: value, Count: count})
}
