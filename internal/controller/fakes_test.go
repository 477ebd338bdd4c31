package controller

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/notes"
	"github.com/five82/notechain/internal/state"
	"github.com/five82/notechain/internal/wallet"
)

const testAccount = "0x00000000000000000000000000000000000000aa"

type fakeWallet struct {
	mu      sync.Mutex
	session wallet.Session
	account string
	err     error
	calls   int
}

func (w *fakeWallet) Connect(context.Context) (wallet.Session, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session.Present() {
		return w.session, false, nil
	}
	w.calls++
	if w.err != nil {
		return wallet.Session{}, false, w.err
	}
	w.session = wallet.Session{Account: w.account}
	return w.session, true, nil
}

func (w *fakeWallet) Session() wallet.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

type submittedUpload struct {
	filename, cid, from string
}

type fakeLedger struct {
	mu            sync.Mutex
	notes         []notes.Note
	countErr      error
	countOverride uint64 // reported instead of len(notes) when set
	noteErr       map[int]error
	submitErr     error
	reward        *big.Int

	countCalls int
	noteCalls  int
	uploads    []submittedUpload
	likes      []int
	dislikes   []int

	onCount  func(call int) error // runs outside the lock
	onSubmit func(ctx context.Context, index int) error
}

func (l *fakeLedger) Count(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	l.countCalls++
	call := l.countCalls
	hook := l.onCount
	l.mu.Unlock()
	if hook != nil {
		if err := hook(call); err != nil {
			return 0, err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.countErr != nil {
		return 0, l.countErr
	}
	if l.countOverride != 0 {
		return l.countOverride, nil
	}
	return uint64(len(l.notes)), nil
}

func (l *fakeLedger) Note(_ context.Context, index int) (notes.Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.noteCalls++
	if err := l.noteErr[index]; err != nil {
		return notes.Note{}, err
	}
	if index >= len(l.notes) {
		return notes.Note{}, apperr.Wrap(apperr.ErrRemote, errors.New("execution reverted"))
	}
	return l.notes[index], nil
}

func (l *fakeLedger) SubmitUpload(_ context.Context, filename, cid, from string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uploads = append(l.uploads, submittedUpload{filename, cid, from})
	if l.submitErr != nil {
		return l.submitErr
	}
	l.notes = append(l.notes, notes.Note{Uploader: from, Filename: filename, ContentID: cid})
	return nil
}

func (l *fakeLedger) SubmitLike(ctx context.Context, index int, from string) error {
	return l.submitVote(ctx, index, true)
}

func (l *fakeLedger) SubmitDislike(ctx context.Context, index int, from string) error {
	return l.submitVote(ctx, index, false)
}

func (l *fakeLedger) submitVote(ctx context.Context, index int, like bool) error {
	l.mu.Lock()
	if like {
		l.likes = append(l.likes, index)
	} else {
		l.dislikes = append(l.dislikes, index)
	}
	hook := l.onSubmit
	l.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, index); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.submitErr != nil {
		return l.submitErr
	}
	if index < len(l.notes) {
		if like {
			l.notes[index].Likes++
		} else {
			l.notes[index].Dislikes++
		}
	}
	return nil
}

func (l *fakeLedger) RewardAmount(context.Context) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reward == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(l.reward), nil
}

func (l *fakeLedger) stats() (counts, uploads, likes, dislikes int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.countCalls, len(l.uploads), len(l.likes), len(l.dislikes)
}

type fakePinning struct {
	mu       sync.Mutex
	cid      string
	pinErr   error
	unpinErr error
	content  string

	pins   []string
	unpins []string
	onPin  func()
}

func (p *fakePinning) Pin(_ context.Context, filename string, r io.Reader) (string, error) {
	p.mu.Lock()
	p.pins = append(p.pins, filename)
	hook := p.onPin
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	_, _ = io.Copy(io.Discard, r)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pinErr != nil {
		return "", p.pinErr
	}
	if p.cid == "" {
		return "QmPinned", nil
	}
	return p.cid, nil
}

func (p *fakePinning) Unpin(_ context.Context, cid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unpins = append(p.unpins, cid)
	return p.unpinErr
}

func (p *fakePinning) GatewayURL(cid string) string {
	if strings.TrimSpace(cid) == "" {
		return ""
	}
	return "https://gateway.test/ipfs/" + cid
}

func (p *fakePinning) Download(_ context.Context, cid string, w io.Writer) (int64, error) {
	n, err := io.Copy(w, strings.NewReader(p.content))
	return n, err
}

func (p *fakePinning) pinCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pins)
}

type harness struct {
	c      *Controller
	wallet *fakeWallet
	ledger *fakeLedger
	pin    *fakePinning
	store  *state.Store
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		wallet: &fakeWallet{account: testAccount},
		ledger: &fakeLedger{},
		pin:    &fakePinning{},
		store:  &state.Store{},
	}
	opts := Options{
		Wallet:   h.wallet,
		Ledger:   h.ledger,
		Pinning:  h.pin,
		Store:    h.store,
		Timeouts: Timeouts{Call: time.Second, Transaction: time.Second},
	}
	for _, fn := range configure {
		fn(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	h.c = c
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	if _, err := h.c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
}

func lastNotice(t *testing.T, s *state.Store) state.Notice {
	t.Helper()
	notices := s.Snapshot().Notices
	if len(notices) == 0 {
		t.Fatalf("no notices recorded")
	}
	return notices[len(notices)-1]
}
