package core

import "errors"

// MockBankConnection is the only connection type currently supported.
const MockBankConnection = "Mock Bank"

// BankConnection is a linked (simulated) bank feed.
type BankConnection struct {
	ID             int64
	Name           string
	ConnectionType string
	Status         BankConnectionStatus
	CreatedAt      int64
	LastSync       int64 // 0 when never synced
	NextSync       int64 // 0 when not scheduled
	RetryAttempts  int
}

// BankConnectionStatus is a closed set of sync states. Use a type switch over
// StatusIdle, StatusInProgress, StatusLastSynced and StatusSyncError.
type BankConnectionStatus interface {
	bankConnectionStatus()
}

type (
	StatusIdle       struct{}
	StatusInProgress struct{}
	StatusLastSynced struct {
		At int64
	}
	StatusSyncError struct {
		Message string
		At      int64
	}
)

func (StatusIdle) bankConnectionStatus()       {}
func (StatusInProgress) bankConnectionStatus() {}
func (StatusLastSynced) bankConnectionStatus() {}
func (StatusSyncError) bankConnectionStatus()  {}

var ErrUnknownStatus = errors.New("unknown status")

// Status kinds as stored and transmitted.
const (
	StatusKindIdle       = "idle"
	StatusKindInProgress = "inProgress"
	StatusKindLastSynced = "lastSynced"
	StatusKindSyncError  = "syncError"
)

// StatusKind returns the wire name of a status.
func StatusKind(s BankConnectionStatus) string {
	switch s.(type) {
	case StatusIdle, nil:
		return StatusKindIdle
	case StatusInProgress:
		return StatusKindInProgress
	case StatusLastSynced:
		return StatusKindLastSynced
	case StatusSyncError:
		return StatusKindSyncError
	}
	panic("unreachable bank connection status")
}

// StatusFromKind rebuilds a status from its stored parts.
func StatusFromKind(kind, message string, at int64) (BankConnectionStatus, error) {
	switch kind {
	case StatusKindIdle, "":
		return StatusIdle{}, nil
	case StatusKindInProgress:
		return StatusInProgress{}, nil
	case StatusKindLastSynced:
		return StatusLastSynced{At: at}, nil
	case StatusKindSyncError:
		return StatusSyncError{Message: message, At: at}, nil
	}
	return nil, ErrUnknownStatus
}

// StatusParts flattens a status into its stored parts.
func StatusParts(s BankConnectionStatus) (kind, message string, at int64) {
	switch v := s.(type) {
	case StatusLastSynced:
		return StatusKindLastSynced, "", v.At
	case StatusSyncError:
		return StatusKindSyncError, v.Message, v.At
	}
	return StatusKind(s), "", 0
}

func (b BankConnection) Validate() error {
	return validateName(b.Name)
}
