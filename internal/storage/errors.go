package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
)

// Kind classifies a store failure. The retry wrapper keys its decision off
// the kind (and, for KindStorage, the HTTP status), so callers never have
// to re-derive status codes.
type Kind int

const (
	// KindStorage is the catch-all for server-side failures (5xx) and
	// anything not otherwise classified.
	KindStorage Kind = iota

	// KindAuth means credentials are invalid, expired or unobtainable.
	// Fatal until credentials are fixed; never retried.
	KindAuth

	// KindPermission means the caller lacks rights on a folder or file.
	KindPermission

	// KindNotFound means the referenced file or folder id no longer exists.
	KindNotFound

	// KindQuota means a rate limit or quota was hit (429, or 403 with a
	// quota reason). Retried.
	KindQuota

	// KindTransient means a low-level transport failure (TLS record
	// errors, connection reset, broken pipe). Retried.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindQuota:
		return "quota"
	case KindTransient:
		return "transient"
	default:
		return "storage"
	}
}

// Error is a classified store failure. Op names the remote operation that
// failed (e.g. "files.create"); Status carries the HTTP status when one
// applies, 0 otherwise.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified store error.
func NewError(kind Kind, op string, status int, err error) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Err: err}
}

// ExhaustedError is the single aggregated error raised when the retry
// budget for an operation is spent. It wraps the last underlying failure.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("storage operation %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Statuses the retry wrapper treats as transient on top of the transient
// and quota kinds.
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	503: true,
}

// Retryable reports whether err belongs to the transient failure set:
// quota errors, transport failures, and storage errors carrying one of the
// transient HTTP statuses. Everything else (auth, permission, not-found,
// unclassified) must surface immediately.
func Retryable(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Kind {
	case KindQuota, KindTransient:
		return true
	case KindStorage:
		return retryableStatuses[se.Status]
	}
	return false
}

// KindOf extracts the kind of a classified error. ok is false for errors
// that did not originate in a store backend.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return KindStorage, false
}

// FromStatus maps a remote-store HTTP status to a classified error.
// reason is the store's machine-readable error code, used to tell a quota
// 403 apart from a plain permission 403.
func FromStatus(op string, status int, reason string, err error) *Error {
	kind := KindStorage
	switch {
	case status == 401:
		kind = KindAuth
	case status == 403 && isQuotaReason(reason):
		kind = KindQuota
	case status == 403:
		kind = KindPermission
	case status == 404:
		kind = KindNotFound
	case status == 429:
		kind = KindQuota
	}
	return NewError(kind, op, status, err)
}

func isQuotaReason(reason string) bool {
	switch reason {
	case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "storageQuotaExceeded":
		return true
	}
	return false
}

// FromTransport classifies a non-HTTP failure from the transport layer.
// Connection-level and TLS failures become KindTransient; context
// cancellation passes through untouched so callers see their own
// cancellation, not a store failure.
func FromTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isTransportFailure(err) {
		return NewError(KindTransient, op, 0, err)
	}
	return NewError(KindStorage, op, 0, err)
}

func isTransportFailure(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	return false
}
