// Package failure models the error kinds of the decision core together with their
// recovery policy and the SKIP reason each one maps to.
package failure

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindMissingInput
	KindBadInput
	KindInconsistent
	KindTransientIO
	KindPermanentIO
	KindTimeout
	KindHardVeto
)

func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "missing_input"
	case KindBadInput:
		return "bad_input"
	case KindInconsistent:
		return "inconsistent"
	case KindTransientIO:
		return "transient_io"
	case KindPermanentIO:
		return "permanent_io"
	case KindTimeout:
		return "timeout"
	case KindHardVeto:
		return "hard_veto"
	}
	return "unknown"
}

// Recovery is what the orchestrator does when it meets an error of a given kind.
type Recovery int

const (
	Proceed Recovery = iota // degrade and keep going
	Coerce                  // replace the value with a neutral default
	Skip                    // record a SKIP snapshot
	Retry                   // retry with bounded backoff
)

func (r Recovery) String() string {
	switch r {
	case Proceed:
		return "proceed"
	case Coerce:
		return "coerce"
	case Skip:
		return "skip"
	case Retry:
		return "retry"
	}
	return "unknown"
}

var policy = map[Kind]Recovery{
	KindMissingInput: Proceed,
	KindBadInput:     Coerce,
	KindInconsistent: Skip,
	KindTransientIO:  Retry,
	KindPermanentIO:  Skip,
	KindTimeout:      Skip,
	KindHardVeto:     Skip,
}

// Policy returns the recovery for k. Unknown kinds are skipped.
func Policy(k Kind) Recovery {
	if r, ok := policy[k]; ok {
		return r
	}
	return Skip
}

// Reason maps k to the SKIP reason written into the snapshot.
func Reason(k Kind) models.SkipReason {
	switch k {
	case KindInconsistent:
		return models.ReasonInconsistent
	case KindPermanentIO, KindTransientIO:
		return models.ReasonIOError
	case KindTimeout:
		return models.ReasonTimeout
	case KindHardVeto:
		return models.ReasonOddsFloor
	case KindMissingInput:
		return models.ReasonNoADN
	}
	return models.ReasonError
}

// Error is a classified error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first classified error in err's chain. Unclassified
// context deadlines count as Timeout.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// transient SQLSTATE codes and classes
var transientStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"57P03": true, // cannot_connect_now
}

var transientClasses = map[pq.ErrorClass]bool{
	"08": true, // connection exception
	"53": true, // insufficient resources
}

// ClassifyIO tags a storage error as TransientIO or PermanentIO. Errors that are
// already classified, and context errors, keep their meaning.
func ClassifyIO(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindTimeout, op, err)
	}
	if IsTransient(err) {
		return New(KindTransientIO, op, err)
	}
	return New(KindPermanentIO, op, err)
}

// IsTransient reports whether a raw storage error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientStates[string(pqErr.Code)] || transientClasses[pqErr.Code.Class()]
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
