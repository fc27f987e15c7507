package chainledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/layer-3/encryptme/core"
)

// ErrWrongSender is returned when a request names a different account than the transactor
var ErrWrongSender = errors.New("request sender does not match transactor")

const revertPrefix = "execution reverted:"

// revertReasons maps the contracts' revert strings to the error taxonomy
var revertReasons = map[string]error{
	"user already registered": core.ErrAlreadyRegistered,
	"user not registered":     core.ErrNotRegistered,
	"invalid nonce":           core.ErrStaleNonce,
	"invalid signature":       core.ErrInvalidSignature,
	"no valid session":        core.ErrNoLedgerSession,
	"session expired":         core.ErrNoLedgerSession,
	"signature expired":       core.ErrDeadlineExceeded,
	"deadline passed":         core.ErrDeadlineExceeded,
	"active commit exists":    core.ErrAlreadyCommitted,
	"already committed":       core.ErrAlreadyCommitted,
	"no active commit":        core.ErrNoActiveCommitment,
	"not committed":           core.ErrNoActiveCommitment,
	"hash mismatch":           core.ErrHashMismatch,
	"access denied":           core.ErrAccessDenied,
	"invalid message id":      core.ErrUnknownMessage,
}

// classify wraps a transaction error with the matching taxonomy error.
// Only the reason of a contract revert is matched; other RPC errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "user rejected") {
		return fmt.Errorf("%v: %w", err, core.ErrSignatureDeclined)
	}
	_, reason, ok := strings.Cut(msg, revertPrefix)
	if !ok {
		return err
	}
	reason = strings.TrimSpace(reason)
	if target, ok := revertReasons[reason]; ok {
		return fmt.Errorf("%v: %w", err, target)
	}
	return err
}
