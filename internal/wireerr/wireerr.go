// Package wireerr holds the sentinel error taxonomy callers switch on to
// decide whether a failure closes a connection, retries, or is merely
// logged (§7). Use errors.Is against these sentinels, not string matching.
package wireerr

import "errors"

var (
	// ErrMalformedPacket closes the connection (Codec parse failure).
	ErrMalformedPacket = errors.New("wireerr: malformed packet")
	// ErrUnknownOpcode is logged at warn and the connection stays open.
	ErrUnknownOpcode = errors.New("wireerr: unknown opcode")
	// ErrUnauthenticatedAction closes the connection.
	ErrUnauthenticatedAction = errors.New("wireerr: action before handshake completed")
	// ErrInvalidTransition closes the connection.
	ErrInvalidTransition = errors.New("wireerr: invalid connection state transition")
	// ErrScriptError is logged; the hook is treated as a no-op.
	ErrScriptError = errors.New("wireerr: script error")
	// ErrDbError is logged; policy depends on call site (reject login, retry-then-close on commit).
	ErrDbError = errors.New("wireerr: persistence error")
	// ErrOversubscribed drops the new spawn for one observer only.
	ErrOversubscribed = errors.New("wireerr: spawn index oversubscribed")
	// ErrInstanceMissing is resolved by creating the instance on demand; it
	// is exported so callers can still log the first-touch case distinctly.
	ErrInstanceMissing = errors.New("wireerr: instance missing")
	// ErrTimeoutKeepAlive closes the connection.
	ErrTimeoutKeepAlive = errors.New("wireerr: keep-alive timeout")
)

// Wrapped pairs a sentinel with call-site context while staying matchable
// via errors.Is.
type Wrapped struct {
	Sentinel error
	Detail   string
}

func (w *Wrapped) Error() string {
	if w.Detail == "" {
		return w.Sentinel.Error()
	}
	return w.Sentinel.Error() + ": " + w.Detail
}

func (w *Wrapped) Unwrap() error { return w.Sentinel }

// Wrap attaches detail to sentinel while keeping errors.Is(err, sentinel) true.
func Wrap(sentinel error, detail string) error {
	return &Wrapped{Sentinel: sentinel, Detail: detail}
}

// Fatal reports whether an error (or anything it wraps) should close the
// connection it occurred on.
func Fatal(err error) bool {
	switch {
	case errors.Is(err, ErrUnknownOpcode):
		return false
	case errors.Is(err, ErrScriptError):
		return false
	case errors.Is(err, ErrOversubscribed):
		return false
	case errors.Is(err, ErrInstanceMissing):
		return false
	default:
		return true
	}
}
