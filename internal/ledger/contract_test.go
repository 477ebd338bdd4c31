package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/notes"
)

const (
	contractAddr = "0xd7EA1A8C72000007f7474b6784813441680e842D"
	senderAddr   = "0x00000000000000000000000000000000000000aa"
)

type rawNote struct {
	uploader common.Address
	filename string
	cid      string
	likes    int64
	dislikes int64
}

type fakeChain struct {
	t   *testing.T
	abi abi.ABI

	mu        sync.Mutex
	notes     []rawNote
	reward    *big.Int
	callErr   error
	pending   int // receipt lookups answered with NotFound before mining
	status    uint64
	sendErr   error
	sent      []string
	sentFrom  []common.Address
	callCount int
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	parsed, err := NotesABI()
	if err != nil {
		t.Fatalf("NotesABI: %v", err)
	}
	return &fakeChain{t: t, abi: parsed, reward: big.NewInt(1000), status: types.ReceiptStatusSuccessful}
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if f.callErr != nil {
		return nil, f.callErr
	}
	if msg.To == nil || *msg.To != common.HexToAddress(contractAddr) {
		f.t.Fatalf("call sent to %v, want contract address", msg.To)
	}
	method, err := f.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case methodCount:
		return method.Outputs.Pack(big.NewInt(int64(len(f.notes))))
	case methodRewardAmount:
		return method.Outputs.Pack(f.reward)
	case methodGetNote:
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		idx := int(args[0].(*big.Int).Int64())
		if idx >= len(f.notes) {
			return nil, errors.New("execution reverted")
		}
		n := f.notes[idx]
		return method.Outputs.Pack(n.uploader, n.filename, n.cid, big.NewInt(n.likes), big.NewInt(n.dislikes))
	}
	return nil, errors.New("unexpected method " + method.Name)
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending > 0 {
		f.pending--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.status, TxHash: hash, BlockNumber: big.NewInt(7)}, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, from, to common.Address, data []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	method, err := f.abi.MethodById(data[:4])
	if err != nil {
		return common.Hash{}, err
	}
	f.sent = append(f.sent, method.Name)
	f.sentFrom = append(f.sentFrom, from)
	return common.HexToHash("0xbeef"), nil
}

func newTestContract(t *testing.T, chain *fakeChain) *Contract {
	t.Helper()
	c, err := NewContract(Options{
		Address:     contractAddr,
		Backend:     chain,
		Transactor:  chain,
		ReceiptPoll: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewContract returned error: %v", err)
	}
	return c
}

func TestNewContract_Validates(t *testing.T) {
	if _, err := NewContract(Options{Address: "nope", Backend: newFakeChain(t)}); err == nil {
		t.Fatalf("NewContract with bad address returned nil error")
	}
	if _, err := NewContract(Options{Address: contractAddr}); err == nil {
		t.Fatalf("NewContract without backend returned nil error")
	}
}

func TestContract_CountAndNote(t *testing.T) {
	chain := newFakeChain(t)
	a := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	chain.notes = []rawNote{
		{uploader: a, filename: "a.pdf", cid: "cid1", likes: 3, dislikes: 1},
		{uploader: common.Address{}, filename: "", cid: "", likes: 0, dislikes: 0},
	}
	c := newTestContract(t, chain)
	ctx := context.Background()

	count, err := c.Count(ctx)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("Count = %d, want 2", count)
	}

	first, err := c.Note(ctx, 0)
	if err != nil {
		t.Fatalf("Note(0) returned error: %v", err)
	}
	want := notes.Note{Uploader: a.Hex(), Filename: "a.pdf", ContentID: "cid1", Likes: 3, Dislikes: 1}
	if first != want {
		t.Fatalf("Note(0) = %+v, want %+v", first, want)
	}

	second, err := c.Note(ctx, 1)
	if err != nil {
		t.Fatalf("Note(1) returned error: %v", err)
	}
	if second.Filename != notes.UntitledName || second.HasContent() || second.UploaderLabel() != notes.UnknownUploader {
		t.Fatalf("Note(1) = %+v, want untitled, no content, unknown uploader", second)
	}
}

func TestContract_ReadErrorsAreRemote(t *testing.T) {
	chain := newFakeChain(t)
	chain.callErr = errors.New("connection refused")
	c := newTestContract(t, chain)

	if _, err := c.Count(context.Background()); !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("Count error = %v, want ErrRemote", err)
	}
	if _, err := c.Note(context.Background(), -1); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("Note(-1) error = %v, want ErrValidation", err)
	}
}

func TestContract_ReadTimeout(t *testing.T) {
	chain := newFakeChain(t)
	chain.callErr = context.DeadlineExceeded
	c := newTestContract(t, chain)

	if _, err := c.Count(context.Background()); !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("Count error = %v, want ErrTimeout", err)
	}
}

func TestContract_RewardAmount(t *testing.T) {
	c := newTestContract(t, newFakeChain(t))
	got, err := c.RewardAmount(context.Background())
	if err != nil {
		t.Fatalf("RewardAmount returned error: %v", err)
	}
	if got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("RewardAmount = %s, want 1000", got)
	}
}

func TestContract_SubmitWaitsForReceipt(t *testing.T) {
	chain := newFakeChain(t)
	chain.pending = 3
	c := newTestContract(t, chain)
	ctx := context.Background()

	if err := c.SubmitUpload(ctx, "a.pdf", "cid1", senderAddr); err != nil {
		t.Fatalf("SubmitUpload returned error: %v", err)
	}
	if err := c.SubmitLike(ctx, 0, senderAddr); err != nil {
		t.Fatalf("SubmitLike returned error: %v", err)
	}
	if err := c.SubmitDislike(ctx, 0, senderAddr); err != nil {
		t.Fatalf("SubmitDislike returned error: %v", err)
	}

	want := []string{methodUpload, methodLike, methodDislike}
	if len(chain.sent) != len(want) {
		t.Fatalf("sent = %v, want %v", chain.sent, want)
	}
	for i := range want {
		if chain.sent[i] != want[i] {
			t.Fatalf("sent[%d] = %q, want %q", i, chain.sent[i], want[i])
		}
		if chain.sentFrom[i] != common.HexToAddress(senderAddr) {
			t.Fatalf("sentFrom[%d] = %s, want %s", i, chain.sentFrom[i].Hex(), senderAddr)
		}
	}
	if chain.pending != 0 {
		t.Fatalf("pending receipts = %d, want all consumed", chain.pending)
	}
}

func TestContract_SubmitReverted(t *testing.T) {
	chain := newFakeChain(t)
	chain.status = types.ReceiptStatusFailed
	c := newTestContract(t, chain)

	err := c.SubmitLike(context.Background(), 0, senderAddr)
	if !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("SubmitLike error = %v, want ErrRemote", err)
	}
}

func TestContract_SubmitKeepsWalletKind(t *testing.T) {
	chain := newFakeChain(t)
	chain.sendErr = apperr.Wrap(apperr.ErrUserRejected, errors.New("denied"))
	c := newTestContract(t, chain)

	err := c.SubmitDislike(context.Background(), 1, senderAddr)
	if !errors.Is(err, apperr.ErrUserRejected) {
		t.Fatalf("SubmitDislike error = %v, want ErrUserRejected", err)
	}
	if apperr.Kind(err) != apperr.ErrUserRejected {
		t.Fatalf("Kind = %v, want ErrUserRejected", apperr.Kind(err))
	}
}

func TestContract_SubmitRequiresSenderAndWallet(t *testing.T) {
	chain := newFakeChain(t)
	c := newTestContract(t, chain)
	if err := c.SubmitLike(context.Background(), 0, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("SubmitLike without sender error = %v, want ErrValidation", err)
	}

	readOnly, err := NewContract(Options{Address: contractAddr, Backend: chain})
	if err != nil {
		t.Fatalf("NewContract returned error: %v", err)
	}
	if err := readOnly.SubmitLike(context.Background(), 0, senderAddr); !errors.Is(err, apperr.ErrNoProvider) {
		t.Fatalf("SubmitLike without wallet error = %v, want ErrNoProvider", err)
	}
	if len(chain.sent) != 0 {
		t.Fatalf("sent = %v, want no transactions", chain.sent)
	}
}

func TestContract_WaitMinedHonorsContext(t *testing.T) {
	chain := newFakeChain(t)
	chain.pending = 1 << 30
	c := newTestContract(t, chain)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.SubmitLike(ctx, 0, senderAddr)
	if !errors.Is(err, apperr.ErrTimeout) {
		t.Fatalf("SubmitLike error = %v, want ErrTimeout", err)
	}
}
