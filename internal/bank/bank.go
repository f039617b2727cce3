// Package bank simulates bank-feed synchronisation: the connection status
// state machine, retry scheduling, and a deterministic mock bank that produces
// sample transactions.
package bank

import (
	"errors"
	"fmt"
	"time"

	"firefly/internal/core"
)

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrNotInProgress  = errors.New("no sync in progress")
)

// Event drives a status transition.
type Event interface {
	bankEvent()
}

type (
	Start   struct{}
	Succeed struct {
		At int64
	}
	Fail struct {
		Message string
		At      int64
	}
)

func (Start) bankEvent()   {}
func (Succeed) bankEvent() {}
func (Fail) bankEvent()    {}

// Transition applies e to s:
//
//	idle | lastSynced | syncError --Start--> inProgress
//	inProgress --Succeed--> lastSynced
//	inProgress --Fail--> syncError
func Transition(s core.BankConnectionStatus, e Event) (core.BankConnectionStatus, error) {
	_, running := s.(core.StatusInProgress)
	switch ev := e.(type) {
	case Start:
		if running {
			return s, ErrSyncInProgress
		}
		return core.StatusInProgress{}, nil
	case Succeed:
		if !running {
			return s, ErrNotInProgress
		}
		return core.StatusLastSynced{At: ev.At}, nil
	case Fail:
		if !running {
			return s, ErrNotInProgress
		}
		return core.StatusSyncError{Message: ev.Message, At: ev.At}, nil
	}
	return s, fmt.Errorf("unknown event %T", e)
}

// MaxBackoff caps the delay between failed attempts.
const MaxBackoff = 24 * time.Hour

// NextSync returns when the connection should sync again. Successful syncs
// wait one interval; failures back off exponentially with the attempt count.
func NextSync(at time.Time, interval time.Duration, failedAttempts int) time.Time {
	if failedAttempts <= 0 {
		return at.Add(interval)
	}
	delay := interval
	for i := 0; i < failedAttempts && delay < MaxBackoff; i++ {
		delay *= 2
	}
	if delay > MaxBackoff {
		delay = MaxBackoff
	}
	return at.Add(delay)
}

// Due reports whether c should be synced at now: it is not running, has a
// schedule that has elapsed, and has not exhausted its retries.
func Due(c core.BankConnection, now time.Time, maxRetries int) bool {
	if _, running := c.Status.(core.StatusInProgress); running {
		return false
	}
	if _, failed := c.Status.(core.StatusSyncError); failed && c.RetryAttempts >= maxRetries {
		return false
	}
	return c.NextSync == 0 || c.NextSync <= now.UnixMilli()
}
