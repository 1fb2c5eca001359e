// lifecycle.go - The lot lifecycle state machine.
//
// Classify derives the state purely from the lot record and the sampled
// clock; Gate enforces which operations are legal in which state. Finalized
// is a one-way latch set only by an explicit finalize operation, never by
// time alone.

package auction

import "fmt"

// State is the derived lifecycle state of a lot.
type State int

const (
	// StatePending: the bidding window has not opened yet.
	StatePending State = iota
	// StateActive: now is within [start, start+duration) and the lot is not
	// finalized.
	StateActive
	// StateExpiredUnfinalized: the window has passed but no finalize has
	// been executed.
	StateExpiredUnfinalized
	// StateFinalized: terminal; the winning bid and bidder are fixed.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateExpiredUnfinalized:
		return "expired-unfinalized"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Operation is a lifecycle-gated protocol operation.
type Operation int

const (
	OpCommit Operation = iota
	OpReveal
	OpFinalize
	OpProve
	OpPay
)

func (op Operation) String() string {
	switch op {
	case OpCommit:
		return "commit"
	case OpReveal:
		return "reveal"
	case OpFinalize:
		return "finalize"
	case OpProve:
		return "prove"
	case OpPay:
		return "pay"
	default:
		return fmt.Sprintf("operation(%d)", int(op))
	}
}

// LifecycleViolationError reports an operation attempted outside its legal
// state. It is a caller-side precondition failure, never retried.
type LifecycleViolationError struct {
	Op     Operation
	State  State
	Reason string
}

func (e *LifecycleViolationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("lifecycle violation: %s while lot is %s: %s", e.Op, e.State, e.Reason)
	}
	return fmt.Sprintf("lifecycle violation: %s is not legal while lot is %s", e.Op, e.State)
}

// NotAuthorizedError reports a privileged operation attempted by an
// identity outside the configured privileged set. The call never reaches
// the gateway.
type NotAuthorizedError struct {
	Account string
	Op      string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("%s is not authorized to %s", e.Account, e.Op)
}

// Classify derives the lifecycle state of a lot at the given time.
// It is a pure function of (finalized, now, start_time, duration).
func Classify(l *Lot, now uint64) State {
	if l.Finalized {
		return StateFinalized
	}
	if now < l.StartTime {
		return StatePending
	}
	if now < l.End() {
		return StateActive
	}
	return StateExpiredUnfinalized
}

// Allowed reports whether an operation is legal in a state. Commit and
// reveal are legal only while Active. Finalize is legal once the window has
// expired, or early from Active as an owner-forced close; both paths are
// additionally gated on the privilege policy by the caller. Prove and pay
// require finalization.
func Allowed(op Operation, s State) bool {
	switch op {
	case OpCommit, OpReveal:
		return s == StateActive
	case OpFinalize:
		return s == StateActive || s == StateExpiredUnfinalized
	case OpProve, OpPay:
		return s == StateFinalized
	default:
		return false
	}
}

// Gate returns a LifecycleViolationError if the operation is not legal in
// the state.
func Gate(op Operation, s State) error {
	if !Allowed(op, s) {
		return &LifecycleViolationError{Op: op, State: s}
	}
	return nil
}

// FormatRemaining renders the time left in the bidding window, e.g.
// "1h 2m 3s". Returns "closed" once the window has passed.
func FormatRemaining(l *Lot, now uint64) string {
	if l.Finalized || now >= l.End() {
		return "closed"
	}
	if now < l.StartTime {
		now = l.StartTime
	}
	remaining := l.End() - now
	return fmt.Sprintf("%dh %dm %ds", remaining/3600, (remaining%3600)/60, remaining%60)
}
