package bank

import (
	"errors"
	"math/rand/v2"
	"time"

	"firefly/internal/core"
)

// ErrNothingToSync is returned when there are no accounts or categories to
// attach generated transactions to.
var ErrNothingToSync = errors.New("no accounts or categories to sync into")

// MockBank produces a deterministic batch of transactions for a connection.
// The same connection and sync time always yield the same batch.
type MockBank struct {
	// Window is how far back generated transactions are dated.
	Window time.Duration
	// MinTransactions and MaxTransactions bound the batch size.
	MinTransactions int
	MaxTransactions int
}

// DefaultMockBank generates 3 to 7 transactions over the past week.
var DefaultMockBank = MockBank{Window: 7 * 24 * time.Hour, MinTransactions: 3, MaxTransactions: 7}

// Fetch returns the transactions "downloaded" by connectionID at the given time.
func (m MockBank) Fetch(connectionID int64, at time.Time, accounts []core.Account, cats []core.Category) ([]core.NewTransaction, error) {
	if len(accounts) == 0 || len(cats) == 0 {
		return nil, ErrNothingToSync
	}
	lo, hi := m.MinTransactions, m.MaxTransactions
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	window := m.Window
	if window <= 0 {
		window = 24 * time.Hour
	}

	rng := rand.New(rand.NewPCG(uint64(connectionID), uint64(at.UnixMilli())))
	n := lo + rng.IntN(hi-lo+1)
	end := at.UnixMilli()
	out := make([]core.NewTransaction, 0, n)
	for i := 0; i < n; i++ {
		cat := cats[rng.IntN(len(cats))]
		var cents int64
		if cat.IsExpense {
			cents = 500 + rng.Int64N(24500) // 5.00 to 249.99
		} else {
			cents = 50000 + rng.Int64N(250000) // 500.00 to 2,999.99
		}
		out = append(out, core.NewTransaction{
			AccountID:  accounts[rng.IntN(len(accounts))].ID,
			CategoryID: cat.ID,
			Amount:     core.SignedAmount(cat, core.Cents(cents)),
			Date:       end - rng.Int64N(window.Milliseconds()),
		})
	}
	return out, nil
}
