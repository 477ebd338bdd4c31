package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/notes"
)

// Gateway is the remote ledger as the controller sees it. Addresses are
// hex strings so callers do not depend on go-ethereum types.
type Gateway interface {
	Count(ctx context.Context) (uint64, error)
	Note(ctx context.Context, index int) (notes.Note, error)
	SubmitUpload(ctx context.Context, filename, contentID, from string) error
	SubmitLike(ctx context.Context, index int, from string) error
	SubmitDislike(ctx context.Context, index int, from string) error
	RewardAmount(ctx context.Context) (*big.Int, error)
}

// Backend is the read side of a node connection. *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Transactor signs and broadcasts transactions, normally the user's wallet.
type Transactor interface {
	SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error)
}

// Ensure Contract implements Gateway at compile time.
var _ Gateway = (*Contract)(nil)

const defaultReceiptPoll = 2 * time.Second

// Contract calls the deployed notes contract.
type Contract struct {
	address    common.Address
	abi        abi.ABI
	backend    Backend
	transactor Transactor
	poll       time.Duration
	logger     *slog.Logger
}

// Options configure a Contract.
type Options struct {
	Address     string
	Backend     Backend
	Transactor  Transactor
	ReceiptPoll time.Duration
	Logger      *slog.Logger
}

// NewContract validates the options and binds the notes ABI.
func NewContract(opts Options) (*Contract, error) {
	if !common.IsHexAddress(strings.TrimSpace(opts.Address)) {
		return nil, fmt.Errorf("invalid contract address %q", opts.Address)
	}
	if opts.Backend == nil {
		return nil, errors.New("ledger backend is nil")
	}
	parsed, err := NotesABI()
	if err != nil {
		return nil, fmt.Errorf("parse notes abi: %w", err)
	}
	poll := opts.ReceiptPoll
	if poll <= 0 {
		poll = defaultReceiptPoll
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Contract{
		address:    common.HexToAddress(strings.TrimSpace(opts.Address)),
		abi:        parsed,
		backend:    opts.Backend,
		transactor: opts.Transactor,
		poll:       poll,
		logger:     logger,
	}, nil
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Count returns the number of notes (getNotesCount).
func (c *Contract) Count(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, methodCount)
	if err != nil {
		return 0, err
	}
	count, err := uintAt(out, 0)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrRemote, fmt.Errorf("decode %s: %w", methodCount, err))
	}
	return count, nil
}

// Note reads the note at index (getNote). Out-of-range indices are reported
// by the contract.
func (c *Contract) Note(ctx context.Context, index int) (notes.Note, error) {
	if index < 0 {
		return notes.Note{}, apperr.Validation(fmt.Sprintf("note index %d is negative", index))
	}
	out, err := c.call(ctx, methodGetNote, big.NewInt(int64(index)))
	if err != nil {
		return notes.Note{}, err
	}
	note, err := decodeNote(out)
	if err != nil {
		return notes.Note{}, apperr.Wrap(apperr.ErrRemote, fmt.Errorf("decode note %d: %w", index, err))
	}
	return note, nil
}

// RewardAmount returns the reward paid per upload, in wei.
func (c *Contract) RewardAmount(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, methodRewardAmount)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.Wrap(apperr.ErrRemote, errors.New("empty rewardAmount result"))
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, apperr.Wrap(apperr.ErrRemote, fmt.Errorf("rewardAmount returned %T", out[0]))
	}
	return amount, nil
}

// SubmitUpload records a pinned file (uploadNote) from the given account.
func (c *Contract) SubmitUpload(ctx context.Context, filename, contentID, from string) error {
	return c.transact(ctx, from, methodUpload, filename, contentID)
}

// SubmitLike likes the note at index (likeNote).
func (c *Contract) SubmitLike(ctx context.Context, index int, from string) error {
	if index < 0 {
		return apperr.Validation(fmt.Sprintf("note index %d is negative", index))
	}
	return c.transact(ctx, from, methodLike, big.NewInt(int64(index)))
}

// SubmitDislike dislikes the note at index (dislikeNote).
func (c *Contract) SubmitDislike(ctx context.Context, index int, from string) error {
	if index < 0 {
		return apperr.Validation(fmt.Sprintf("note index %d is negative", index))
	}
	return c.transact(ctx, from, methodDislike, big.NewInt(int64(index)))
}

func (c *Contract) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := c.address
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, remoteErr(ctx, fmt.Errorf("call %s: %w", method, err))
	}
	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRemote, fmt.Errorf("unpack %s: %w", method, err))
	}
	return out, nil
}

func (c *Contract) transact(ctx context.Context, from, method string, args ...any) error {
	if c.transactor == nil {
		return apperr.Wrap(apperr.ErrNoProvider, errors.New("no wallet available to sign transactions"))
	}
	if !common.IsHexAddress(strings.TrimSpace(from)) {
		return apperr.Validation("connect your wallet first")
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	sender := common.HexToAddress(strings.TrimSpace(from))
	hash, err := c.transactor.SendTransaction(ctx, sender, c.address, data)
	if err != nil {
		return remoteErr(ctx, fmt.Errorf("submit %s: %w", method, err))
	}
	c.logger.Info("transaction submitted",
		slog.String("method", method),
		slog.String("tx", hash.Hex()),
		slog.String("from", sender.Hex()))

	receipt, err := c.waitMined(ctx, hash)
	if err != nil {
		return remoteErr(ctx, fmt.Errorf("wait for %s %s: %w", method, hash.Hex(), err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return apperr.Wrap(apperr.ErrRemote, fmt.Errorf("%s transaction %s reverted", method, hash.Hex()))
	}
	c.logger.Info("transaction mined",
		slog.String("method", method),
		slog.String("tx", hash.Hex()),
		slog.Uint64("block", blockNumber(receipt)))
	return nil
}

// waitMined polls for the receipt until it is available or ctx ends.
func (c *Contract) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func decodeNote(out []any) (notes.Note, error) {
	if len(out) != 5 {
		return notes.Note{}, fmt.Errorf("getNote returned %d values, want 5", len(out))
	}
	uploader, ok := out[0].(common.Address)
	if !ok {
		return notes.Note{}, fmt.Errorf("uploader is %T", out[0])
	}
	filename, ok := out[1].(string)
	if !ok {
		return notes.Note{}, fmt.Errorf("filename is %T", out[1])
	}
	contentID, ok := out[2].(string)
	if !ok {
		return notes.Note{}, fmt.Errorf("content id is %T", out[2])
	}
	likes, err := uintAt(out, 3)
	if err != nil {
		return notes.Note{}, err
	}
	dislikes, err := uintAt(out, 4)
	if err != nil {
		return notes.Note{}, err
	}
	if strings.TrimSpace(filename) == "" {
		filename = notes.UntitledName
	}
	return notes.Note{
		Uploader:  uploader.Hex(),
		Filename:  filename,
		ContentID: contentID,
		Likes:     likes,
		Dislikes:  dislikes,
	}, nil
}

func uintAt(out []any, i int) (uint64, error) {
	if i >= len(out) {
		return 0, fmt.Errorf("missing value %d", i)
	}
	n, ok := out[i].(*big.Int)
	if !ok || n == nil {
		return 0, fmt.Errorf("value %d is %T, want uint256", i, out[i])
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("value %d overflows uint64: %s", i, n)
	}
	return n.Uint64(), nil
}

func blockNumber(r *types.Receipt) uint64 {
	if r == nil || r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Uint64()
}

func remoteErr(ctx context.Context, err error) error {
	if apperr.Kind(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.ErrTimeout, err)
	}
	return apperr.Wrap(apperr.ErrRemote, err)
}
