package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/ledger"
	"github.com/five82/notechain/internal/notes"
	"github.com/five82/notechain/internal/pinning"
	"github.com/five82/notechain/internal/state"
	"github.com/five82/notechain/internal/wallet"
)

// Wallet is the session manager as the controller uses it.
type Wallet interface {
	Connect(ctx context.Context) (wallet.Session, bool, error)
	Session() wallet.Session
}

// Ensure the wallet manager satisfies Wallet at compile time.
var _ Wallet = (*wallet.Manager)(nil)

// Timeouts bound remote calls. Zero disables a bound.
type Timeouts struct {
	Call        time.Duration
	Transaction time.Duration
}

// Limits restrict which files can be selected for upload.
type Limits struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// Options wire a Controller.
type Options struct {
	Wallet       Wallet
	Ledger       ledger.Gateway
	Pinning      pinning.Gateway
	Store        *state.Store
	Timeouts     Timeouts
	Scope        state.ActionScope
	Limits       Limits
	UnpinOrphans bool
	Logger       *slog.Logger
}

// Controller is the synchronization and action-lifecycle core.
type Controller struct {
	wallet       Wallet
	ledger       ledger.Gateway
	pinning      pinning.Gateway
	store        *state.Store
	timeouts     Timeouts
	scope        state.ActionScope
	limits       Limits
	unpinOrphans bool
	logger       *slog.Logger
}

// New builds a Controller. Wallet, Ledger, Pinning and Store are required.
func New(opts Options) (*Controller, error) {
	switch {
	case opts.Wallet == nil:
		return nil, errors.New("controller: wallet is nil")
	case opts.Ledger == nil:
		return nil, errors.New("controller: ledger is nil")
	case opts.Pinning == nil:
		return nil, errors.New("controller: pinning is nil")
	case opts.Store == nil:
		return nil, errors.New("controller: store is nil")
	}
	scope := opts.Scope
	if scope == "" {
		scope = state.ScopeGlobal
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		wallet:       opts.Wallet,
		ledger:       opts.Ledger,
		pinning:      opts.Pinning,
		store:        opts.Store,
		timeouts:     opts.Timeouts,
		scope:        scope,
		limits:       opts.Limits,
		unpinOrphans: opts.UnpinOrphans,
		logger:       logger,
	}, nil
}

// Store returns the state store the controller writes to.
func (c *Controller) Store() *state.Store {
	return c.store
}

// Snapshot is shorthand for Store().Snapshot().
func (c *Controller) Snapshot() state.Snapshot {
	return c.store.Snapshot()
}

// Connect requests a wallet session. The first successful connect triggers
// exactly one reload; later calls return the existing session.
func (c *Controller) Connect(ctx context.Context) (wallet.Session, error) {
	callCtx, cancel := withTimeout(ctx, c.timeouts.Transaction)
	session, changed, err := c.wallet.Connect(callCtx)
	cancel()
	if err != nil {
		err = timeoutErr(callCtx, err)
		c.fail("connect", err)
		return wallet.Session{}, err
	}
	if !changed {
		return session, nil
	}

	c.store.SetAccount(session.Account)
	c.store.Notify(state.NoticeSuccess, "connected "+notes.ShortAddress(session.Account, 6, 4))
	c.logger.Info("session established", slog.String("account", session.Account))

	_ = c.Reload(ctx)
	if _, err := c.Reward(ctx); err != nil {
		c.logger.Warn("reward lookup failed", slog.String("error", err.Error()))
	}
	return session, nil
}

// Session returns the current wallet session.
func (c *Controller) Session() wallet.Session {
	return c.wallet.Session()
}

// Reload re-reads the full note list. Without a session it does nothing.
// Results of a reload overtaken by a newer one are discarded.
func (c *Controller) Reload(ctx context.Context) error {
	if !c.wallet.Session().Present() {
		c.logger.Debug("reload skipped without session")
		return nil
	}

	gen := c.store.BeginLoad()
	c.logger.Debug("reload started", slog.Uint64("generation", gen))

	items, err := c.fetchAll(ctx)
	if err != nil {
		if !c.store.FailLoad(gen, err) {
			c.logger.Info("stale reload failure discarded", slog.Uint64("generation", gen))
			return err
		}
		c.logger.Warn("reload failed", slog.Uint64("generation", gen), slog.String("error", err.Error()))
		c.store.Notify(state.NoticeError, userMessage("loading notes", err))
		return err
	}

	if !c.store.CompleteLoad(gen, items) {
		c.logger.Info("stale reload discarded", slog.Uint64("generation", gen), slog.Int("notes", len(items)))
		return nil
	}
	c.logger.Info("reload finished", slog.Uint64("generation", gen), slog.Int("notes", len(items)))
	return nil
}

// maxNoteCount bounds the count a ledger may report before a reload gives up.
const maxNoteCount = 1 << 20

func (c *Controller) fetchAll(ctx context.Context) ([]notes.Note, error) {
	callCtx, cancel := withTimeout(ctx, c.timeouts.Call)
	count, err := c.ledger.Count(callCtx)
	err = timeoutErr(callCtx, err)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}
	if count > maxNoteCount {
		return nil, apperr.Wrap(apperr.ErrRemote, fmt.Errorf("count notes: ledger reported %d notes, limit is %d", count, maxNoteCount))
	}

	items := make([]notes.Note, 0, min(count, 1024))
	for i := 0; uint64(i) < count; i++ {
		callCtx, cancel := withTimeout(ctx, c.timeouts.Call)
		note, err := c.ledger.Note(callCtx, i)
		err = timeoutErr(callCtx, err)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("get note %d: %w", i, err)
		}
		items = append(items, note)
	}
	return items, nil
}

// Reward reads the per-upload reward and records it in the store.
func (c *Controller) Reward(ctx context.Context) (*big.Int, error) {
	callCtx, cancel := withTimeout(ctx, c.timeouts.Call)
	defer cancel()
	amount, err := c.ledger.RewardAmount(callCtx)
	if err != nil {
		return nil, timeoutErr(callCtx, err)
	}
	c.store.SetReward(amount)
	return amount, nil
}

// fail turns err into an error notice unless it is ErrBusy.
func (c *Controller) fail(action string, err error) {
	if err == nil || errors.Is(err, apperr.ErrBusy) {
		return
	}
	c.logger.Warn(action+" failed", slog.String("error", err.Error()))
	c.store.Notify(state.NoticeError, userMessage(action, err))
}

func userMessage(action string, err error) string {
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		return err.Error()
	case apperr.ErrNoProvider:
		return "please install a wallet provider"
	case apperr.ErrUserRejected:
		return action + " rejected in wallet"
	case apperr.ErrTimeout:
		return action + " timed out"
	}
	return action + " failed: " + err.Error()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// timeoutErr tags err with ErrTimeout when the call's deadline expired.
func timeoutErr(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, apperr.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.ErrTimeout, err)
	}
	return err
}
