// Package wallet obtains and holds the account identity used to attribute
// every ledger mutation.
package wallet

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/five82/notechain/internal/apperr"
)

// Session is the connected account. The zero value means no session.
type Session struct {
	Account string
}

// Present reports whether an account is connected.
func (s Session) Present() bool {
	return s.Account != ""
}

// Address returns the account as an address.
func (s Session) Address() common.Address {
	return common.HexToAddress(s.Account)
}

// Manager connects to the wallet once and keeps the session for the
// lifetime of the process. There is no disconnect.
type Manager struct {
	provider Provider
	logger   *slog.Logger

	connectMu sync.Mutex
	mu        sync.RWMutex
	session   Session
}

// NewManager builds a Manager. A nil provider makes every Connect fail with
// ErrNoProvider.
func NewManager(provider Provider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: provider, logger: logger}
}

// Connect requests account access. It returns the session and whether this
// call moved the session from absent to present. Calling Connect with a
// session already present returns it without contacting the provider.
func (m *Manager) Connect(ctx context.Context) (Session, bool, error) {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	if current := m.Session(); current.Present() {
		return current, false, nil
	}
	if m.provider == nil {
		return Session{}, false, apperr.Wrap(apperr.ErrNoProvider, errors.New("please install a wallet provider"))
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		m.logger.Warn("wallet connect failed", slog.String("error", err.Error()))
		return Session{}, false, err
	}
	if len(accounts) == 0 || strings.TrimSpace(accounts[0]) == "" {
		return Session{}, false, apperr.Wrap(apperr.ErrUserRejected, errors.New("wallet returned no accounts"))
	}

	account := strings.TrimSpace(accounts[0])
	if !common.IsHexAddress(account) {
		return Session{}, false, apperr.Wrap(apperr.ErrRemote, errors.New("wallet returned invalid account "+account))
	}

	m.mu.Lock()
	m.session = Session{Account: account}
	m.mu.Unlock()

	m.logger.Info("wallet connected", slog.String("account", account))
	return Session{Account: account}, true, nil
}

// Session returns the current session, possibly absent.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Provider returns the wallet provider used for signing, or nil.
func (m *Manager) Provider() Provider {
	return m.provider
}
