package domain

import "time"

// RelayStatus is the outcome of processing one inbound event.
type RelayStatus string

const (
	StatusDelivered RelayStatus = "delivered"
	StatusSkipped   RelayStatus = "skipped"
	StatusFailed    RelayStatus = "failed"
)

// RelayResult is reported once for every inbound event.
type RelayResult struct {
	ID      string
	Status  RelayStatus
	Reason  string // skip reason or failure kind
	Channel string
	ChatID  string
	Sender  string
	Err     error
	Elapsed time.Duration
}

// ErrText returns the error message, or "" when there is none.
func (r RelayResult) ErrText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
