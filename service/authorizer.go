package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/semaphore"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/digest"
	"github.com/layer-3/encryptme/internal/await"
	"github.com/layer-3/encryptme/ports"
)

// DefaultDeadlineGrace is how long a signed authorization stays valid
const DefaultDeadlineGrace = time.Hour

// Authorizer gates actions on a session and runs the nonce, deadline,
// digest, signature cycle of privileged ledger actions
type Authorizer struct {
	sessions *SessionManager
	accounts ports.AccountRegistry
	grace    time.Duration

	mu       sync.Mutex
	inflight map[common.Address]*semaphore.Weighted

	log log.Logger
}

// NewAuthorizer creates a new authorizer. A non-positive grace takes the default.
func NewAuthorizer(sessions *SessionManager, accounts ports.AccountRegistry, grace time.Duration) *Authorizer {
	if grace <= 0 {
		grace = DefaultDeadlineGrace
	}
	return &Authorizer{
		sessions: sessions,
		accounts: accounts,
		grace:    grace,
		inflight: make(map[common.Address]*semaphore.Weighted),
		log:      log.New("module", "authorizer"),
	}
}

// Sessions returns the session manager actions are gated on
func (a *Authorizer) Sessions() *SessionManager {
	return a.sessions
}

// RequireAuth ensures the connected account is authenticated, then runs fn.
// When no session can be obtained, fn is not run and the error is an
// ActionError at the session step wrapping core.ErrAuthorizationRequired
// and the cause.
func RequireAuth[T any](ctx context.Context, a *Authorizer, action string, fn func(ctx context.Context) (T, error)) (T, error) {
	if _, err := a.sessions.EnsureAuthenticated(ctx); err != nil {
		var zero T
		return zero, &core.ActionError{
			Action: action,
			Step:   core.StepSession,
			Err:    fmt.Errorf("%w: %w", core.ErrAuthorizationRequired, err),
		}
	}
	return fn(ctx)
}

// Authorize reads the current nonce, fixes a deadline, builds the action
// digest and has the wallet sign it
func (a *Authorizer) Authorize(ctx context.Context, action string, args []digest.Arg) (core.Authorization, error) {
	auth, step, err := a.authorize(ctx, action, args)
	if err != nil {
		return core.Authorization{}, &core.ActionError{Action: action, Step: step, Err: err}
	}
	return auth, nil
}

func (a *Authorizer) authorize(ctx context.Context, action string, args []digest.Arg) (core.Authorization, core.Step, error) {
	wallet := a.sessions.Wallet()
	if !wallet.Connected() {
		return core.Authorization{}, core.StepSession, core.ErrConnectionRequired
	}
	from := wallet.Address()

	account, err := await.WithTimeout(ctx, a.sessions.ReadTimeout(), func(ctx context.Context) (core.Account, error) {
		return a.accounts.AccountInfo(ctx, from)
	})
	if err != nil {
		return core.Authorization{}, core.StepNonce, fmt.Errorf("read nonce: %w", err)
	}

	deadline := uint64(a.sessions.Now().Add(a.grace).Unix())

	hash, err := digest.Build(action, args, account.Nonce, deadline)
	if err != nil {
		return core.Authorization{}, core.StepSign, err
	}

	sig, err := wallet.SignMessage(ctx, hash.Bytes())
	if err != nil {
		return core.Authorization{}, core.StepSign, err
	}

	return core.Authorization{
		From:      from,
		Nonce:     account.Nonce,
		Deadline:  deadline,
		Signature: sig,
	}, "", nil
}

// guard returns the in-flight semaphore of addr
func (a *Authorizer) guard(addr common.Address) *semaphore.Weighted {
	a.mu.Lock()
	defer a.mu.Unlock()
	sem, ok := a.inflight[addr]
	if !ok {
		sem = semaphore.NewWeighted(1)
		a.inflight[addr] = sem
	}
	return sem
}

// Submit authorizes action and passes the authorization to submit.
// Submissions of one account run one at a time so each reads the nonce left
// by the previous one. A transient failure rebuilds the whole cycle once;
// a write that timed out is not retried since it may have landed.
func (a *Authorizer) Submit(ctx context.Context, action string, args []digest.Arg, submit func(ctx context.Context, auth core.Authorization) error) error {
	addr := a.sessions.Wallet().Address()
	sem := a.guard(addr)
	if err := sem.Acquire(ctx, 1); err != nil {
		return &core.ActionError{Action: action, Step: core.StepNonce, Err: err}
	}
	defer sem.Release(1)

	var err error
	var step core.Step
	for attempt := 0; attempt < 2; attempt++ {
		var auth core.Authorization
		auth, step, err = a.authorize(ctx, action, args)
		if err == nil {
			step = core.StepSubmit
			err = submit(ctx, auth)
		}
		if err == nil {
			if attempt > 0 {
				a.log.Info("Action succeeded on retry", "action", action, "address", addr)
			}
			return nil
		}
		if !retryable(step, err) || attempt > 0 {
			break
		}
		a.log.Warn("Transient action failure, retrying", "action", action, "step", step, "err", err)
	}
	return &core.ActionError{Action: action, Step: step, Err: err}
}

func retryable(step core.Step, err error) bool {
	if !core.IsTransient(err) {
		return false
	}
	return !(step == core.StepSubmit && errors.Is(err, core.ErrTimeout))
}
