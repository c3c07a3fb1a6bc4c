package storage

import "fmt"

// FileStatus is the workflow status stored in the status property of a
// file record. It is the single durable indicator of where a file sits in
// the payment pipeline; no session record exists anywhere else.
type FileStatus string

const (
	// StatusAwaitingPayment marks a freshly uploaded file parked in Temp
	// until the payment outcome is known.
	StatusAwaitingPayment FileStatus = "awaiting_payment"

	// StatusPaymentConfirmed marks a paid file that has been moved to
	// Inbox. Terminal for this subsystem.
	StatusPaymentConfirmed FileStatus = "payment_confirmed"
)

// ParseStatus converts a raw property value into a FileStatus. Strings
// outside the payment workflow are rejected so arbitrary property values
// never drive workflow decisions.
func ParseStatus(s string) (FileStatus, error) {
	switch FileStatus(s) {
	case StatusAwaitingPayment, StatusPaymentConfirmed:
		return FileStatus(s), nil
	}
	return "", fmt.Errorf("unknown workflow status %q", s)
}

// CanTransitionTo reports whether moving from s to next is a legal
// workflow transition. The only legal transition is
// awaiting_payment -> payment_confirmed; the failure path deletes the file
// instead of writing a status.
func (s FileStatus) CanTransitionTo(next FileStatus) bool {
	return s == StatusAwaitingPayment && next == StatusPaymentConfirmed
}

func (s FileStatus) String() string { return string(s) }
