package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionRequired is returned when no wallet is connected
	ErrConnectionRequired = errors.New("wallet connection required")

	// ErrAuthorizationRequired is returned when no valid session could be obtained
	ErrAuthorizationRequired = errors.New("wallet authentication required")

	// ErrSignatureDeclined is returned when the user rejects a signing prompt
	ErrSignatureDeclined = errors.New("signature request declined")

	// ErrStaleNonce is returned when the ledger rejects a nonce that is not the current one
	ErrStaleNonce = errors.New("stale nonce")

	// ErrDeadlineExceeded is returned when a submission arrives after its own deadline
	ErrDeadlineExceeded = errors.New("authorization deadline exceeded")

	// ErrNotRegistered is returned when the account lacks on-chain registration
	ErrNotRegistered = errors.New("user not registered")

	// ErrAlreadyRegistered is returned when registering an account twice
	ErrAlreadyRegistered = errors.New("user already registered")

	// ErrHashMismatch is returned when a bid reveal does not match its commitment
	ErrHashMismatch = errors.New("reveal does not match commitment")

	// ErrAlreadyCommitted is returned when a bidder already holds an active commitment
	ErrAlreadyCommitted = errors.New("active commitment already exists")

	// ErrNoActiveCommitment is returned when reveal or cancel finds nothing to act on
	ErrNoActiveCommitment = errors.New("no active commitment")

	// ErrEncoding is returned when a digest argument does not match its declared type or width
	ErrEncoding = errors.New("digest encoding error")

	// ErrInvalidSignature is returned when a signature is malformed or was made by another signer
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrTimeout is returned when a bounded operation did not complete in time
	ErrTimeout = errors.New("operation timed out")

	// ErrNoSession is returned when no local session exists for the active account
	ErrNoSession = errors.New("no session")

	// ErrSessionExpired is returned when a session is past its expiry
	ErrSessionExpired = errors.New("session has expired")

	// ErrInvalidSession is returned when a session record violates its invariants
	ErrInvalidSession = errors.New("session is invalid")

	// ErrNoLedgerSession is returned when an action needs an on-chain session that does not exist
	ErrNoLedgerSession = errors.New("no valid ledger session")

	// ErrUnknownMessage is returned for a message id the ledger does not know
	ErrUnknownMessage = errors.New("unknown message")

	// ErrAccessDenied is returned when an account may not read a message
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidToken is returned when a gateway bearer token fails validation
	ErrInvalidToken = errors.New("invalid token")

	// ErrDecryptUnsupported is returned by oracles that cannot decrypt on the current network
	ErrDecryptUnsupported = errors.New("decryption not supported on this network")
)

// Step names the phase of an authorized action that failed
type Step string

const (
	StepSession Step = "session"
	StepNonce   Step = "nonce"
	StepSign    Step = "sign"
	StepSubmit  Step = "submit"
)

// ActionError carries the action name and failing step alongside the cause
type ActionError struct {
	Action string
	Step   Step
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s step failed: %v", e.Action, e.Step, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is recoverable by rebuilding the authorization cycle
func IsTransient(err error) bool {
	return errors.Is(err, ErrStaleNonce) ||
		errors.Is(err, ErrDeadlineExceeded) ||
		errors.Is(err, ErrTimeout)
}
