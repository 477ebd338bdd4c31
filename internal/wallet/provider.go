package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/five82/notechain/internal/apperr"
)

// codeUserRejected is the EIP-1193 "user rejected the request" code.
const codeUserRejected = 4001

// Provider is the wallet boundary: it exposes the user's accounts and signs
// transactions on their behalf after asking for approval.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error)
}

// Ensure RPCProvider implements Provider at compile time.
var _ Provider = (*RPCProvider)(nil)

// RPCProvider talks to a JSON-RPC wallet endpoint (a signer such as Frame or
// Clef, or a development node with unlocked accounts).
type RPCProvider struct {
	client *rpc.Client
}

// Dial connects to the wallet endpoint at rawURL. An empty URL means no
// provider is installed.
func Dial(ctx context.Context, rawURL string) (*RPCProvider, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, apperr.Wrap(apperr.ErrNoProvider, errors.New("no wallet provider configured; set wallet.url"))
	}
	client, err := rpc.DialContext(ctx, trimmed)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrNoProvider, fmt.Errorf("dial wallet %s: %w", trimmed, err))
	}
	return &RPCProvider{client: client}, nil
}

// NewRPCProvider wraps an existing RPC client.
func NewRPCProvider(client *rpc.Client) *RPCProvider {
	return &RPCProvider{client: client}
}

// RequestAccounts asks the wallet for account access (eth_requestAccounts).
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	if p == nil || p.client == nil {
		return nil, apperr.Wrap(apperr.ErrNoProvider, errors.New("wallet provider is nil"))
	}
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, classify(ctx, fmt.Errorf("request accounts: %w", err), apperr.ErrNoProvider)
	}
	return accounts, nil
}

type sendTxArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

// SendTransaction asks the wallet to sign and broadcast a contract call
// (eth_sendTransaction) and returns the transaction hash.
func (p *RPCProvider) SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error) {
	if p == nil || p.client == nil {
		return common.Hash{}, apperr.Wrap(apperr.ErrNoProvider, errors.New("wallet provider is nil"))
	}
	var hash common.Hash
	args := sendTxArgs{From: from, To: &to, Data: data}
	if err := p.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, classify(ctx, fmt.Errorf("send transaction: %w", err), apperr.ErrRemote)
	}
	return hash, nil
}

// Close releases the underlying connection.
func (p *RPCProvider) Close() {
	if p != nil && p.client != nil {
		p.client.Close()
	}
}

// classify maps a wallet call failure onto the error taxonomy. Errors the
// wallet answered with keep their code; anything else is a transport
// failure reported as transportKind.
func classify(ctx context.Context, err error, transportKind error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.ErrTimeout, err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.ErrorCode() == codeUserRejected {
			return apperr.Wrap(apperr.ErrUserRejected, err)
		}
		return apperr.Wrap(apperr.ErrRemote, err)
	}
	return apperr.Wrap(transportKind, err)
}
