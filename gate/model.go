package gate

import (
	"errors"
	"time"
)

var (
	ErrClosed        = errors.New("gate closed")
	ErrNegativeDelay = errors.New("delay must not be negative")
)

// CallInfo describes a single admission through the gate.
type CallInfo struct {
	ID        string
	Gate      string
	Operation string
	Waited    time.Duration
	Started   time.Time
}

// Observer is notified around every unit of work the gate runs.
// Implementations must not block; they never affect admission.
type Observer interface {
	Started(info CallInfo)
	Finished(info CallInfo, elapsed time.Duration, err error)
}

// outcome labels reported to metrics.
const (
	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
	outcomeRejected  = "rejected"
)
