package ledger_test

import (
	"errors"
	"testing"

	"github.com/warp/split-ledger/ledger"
)

func shareMap(shares []ledger.Share) map[string]int {
	m := make(map[string]int, len(shares))
	for _, s := range shares {
		m[s.Value.String()] = s.Count
	}
	return m
}

func TestSplit_ExactDivision_SingleShareValue(t *testing.T) {
	// GIVEN: 9.00 between 2 people
	// THEN: both get exactly 4.50
	shares, err := ledger.Split(ledger.NewMoneyFromInt(9), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shares) != 1 || !shares[0].Value.Equal(ledger.MustMoney("4.50")) || shares[0].Count != 2 {
		t.Errorf("expected {4.50 x2}, got %v", shareMap(shares))
	}
}

func TestSplit_RemainderCent_TwoShareValues(t *testing.T) {
	shares, err := ledger.Split(ledger.MustMoney("0.99"), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := shareMap(shares)
	if got["0.50"] != 1 || got["0.49"] != 1 {
		t.Errorf("expected {0.50 x1, 0.49 x1}, got %v", got)
	}
	// The rounded (ceiling) share is emitted first.
	if !shares[0].Value.Equal(ledger.MustMoney("0.50")) {
		t.Errorf("expected 0.50 emitted first, got %s", shares[0].Value)
	}
}

func TestSplit_OneAmongThree(t *testing.T) {
	shares, err := ledger.Split(ledger.NewMoneyFromInt(1), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := shareMap(shares)
	if got["0.33"] != 2 || got["0.34"] != 1 {
		t.Errorf("expected {0.33 x2, 0.34 x1}, got %v", got)
	}
}

func TestSplit_HundredAmongSeven(t *testing.T) {
	shares, err := ledger.Split(ledger.NewMoneyFromInt(100), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := shareMap(shares)
	if got["14.29"] != 4 || got["14.28"] != 3 {
		t.Errorf("expected {14.29 x4, 14.28 x3}, got %v", got)
	}
}

func TestSplit_TooSmall(t *testing.T) {
	_, err := ledger.Split(ledger.MustMoney("0.02"), 3)
	if !errors.Is(err, ledger.ErrSplitTooSmall) {
		t.Errorf("expected ErrSplitTooSmall, got %v", err)
	}
}

func TestSplit_ContractViolations(t *testing.T) {
	if _, err := ledger.Split(ledger.MustMoney("-1"), 2); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("negative amount: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := ledger.Split(ledger.Money{}, 2); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("zero amount: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := ledger.Split(ledger.NewMoneyFromInt(5), 0); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("zero parts: expected ErrInvalidArgument, got %v", err)
	}
}

// TestSplit_Conservation checks the core contract over a grid of inputs:
// the shares sum exactly to the amount and the counts sum to parts.
func TestSplit_Conservation(t *testing.T) {
	amounts := []string{"0.03", "0.10", "1", "1.01", "2.37", "9", "10.55", "33.33", "100", "999.99", "12345.67"}
	for _, raw := range amounts {
		amount := ledger.MustMoney(raw)
		for parts := 1; parts <= 11; parts++ {
			shares, err := ledger.Split(amount, parts)
			if errors.Is(err, ledger.ErrSplitTooSmall) {
				continue
			}
			if err != nil {
				t.Fatalf("split(%s, %d): unexpected error: %v", raw, parts, err)
			}

			total := ledger.Money{}
			count := 0
			for _, s := range shares {
				total = total.Add(s.Value.MulInt(s.Count))
				count += s.Count
			}
			if !total.Equal(amount) {
				t.Errorf("split(%s, %d): shares sum to %s", raw, parts, total)
			}
			if count != parts {
				t.Errorf("split(%s, %d): counts sum to %d", raw, parts, count)
			}
			if len(shares) > 2 {
				t.Errorf("split(%s, %d): more than two distinct share values: %v", raw, parts, shareMap(shares))
			}
		}
	}
}
