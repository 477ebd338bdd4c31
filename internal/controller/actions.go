package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/state"
)

type vote int

const (
	voteLike vote = iota
	voteDislike
)

func (v vote) String() string {
	if v == voteDislike {
		return "dislike"
	}
	return "like"
}

// Like records a like for the note at index. While another action holds
// the slot the intent is dropped with ErrBusy.
func (c *Controller) Like(ctx context.Context, index int) error {
	return c.vote(ctx, index, voteLike)
}

// Dislike records a dislike for the note at index.
func (c *Controller) Dislike(ctx context.Context, index int) error {
	return c.vote(ctx, index, voteDislike)
}

func (c *Controller) vote(ctx context.Context, index int, v vote) error {
	session := c.wallet.Session()
	if !session.Present() {
		err := apperr.Validation(msgConnectWallet)
		c.fail(v.String(), err)
		return err
	}
	if index < 0 {
		err := apperr.Validation(fmt.Sprintf("no note at index %d", index))
		c.fail(v.String(), err)
		return err
	}
	if !c.store.TryAcquireAction(index, c.scope) {
		c.logger.Debug("action ignored",
			slog.String("action", v.String()),
			slog.Int("index", index),
			slog.String("scope", string(c.scope)))
		return apperr.Wrap(apperr.ErrBusy, fmt.Errorf("%s of note %d ignored", v, index))
	}
	// Released only after the follow-up reload, whatever its outcome.
	defer c.store.ReleaseAction(index)

	c.logger.Info("action accepted", slog.String("action", v.String()), slog.Int("index", index))
	callCtx, cancel := withTimeout(ctx, c.timeouts.Transaction)
	var err error
	if v == voteDislike {
		err = c.ledger.SubmitDislike(callCtx, index, session.Account)
	} else {
		err = c.ledger.SubmitLike(callCtx, index, session.Account)
	}
	err = timeoutErr(callCtx, err)
	cancel()
	if err != nil {
		c.fail(v.String(), err)
		return err
	}

	c.store.Notify(state.NoticeSuccess, fmt.Sprintf("%sd note #%d", v, index))
	_ = c.Reload(ctx)
	return nil
}
