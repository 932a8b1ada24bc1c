// Package wallet implements account lifecycle and ledger operations on top of
// the vault, the node client, and the local sync database.
package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"freeswap/internal/ledger"
	"freeswap/internal/storage"
	"freeswap/internal/vault"
	"freeswap/pkg/errors"
	"freeswap/pkg/logger"
)

// NodeClient is the narrow slice of the ledger node the wallet needs.
type NodeClient interface {
	Balance(ctx context.Context, address string) (*ledger.BalanceSnapshot, error)
	SubmitTransfer(ctx context.Context, req *ledger.TransferRequest) (*ledger.Transfer, error)
	Transactions(ctx context.Context, address string) ([]ledger.Transfer, error)
}

// SyncStore caches node state per account so reads survive node outages.
type SyncStore interface {
	UpsertBalance(ctx context.Context, address, tokenID string, available, total int64) error
	Balance(ctx context.Context, address, tokenID string) (int64, time.Time, bool, error)
	RecordTransfers(ctx context.Context, address string, transfers []ledger.Transfer) error
	Transfers(ctx context.Context, address string, limit int) ([]ledger.Transfer, error)
	Close() error
}

// Account is an open, signed-in wallet account. Sends on one account are
// serialized by the account mutex; two concurrent sends would otherwise race
// on the node's view of spendable outputs.
type Account struct {
	Name  string
	Alias string

	address string
	key     ed25519.PrivateKey
	sync    SyncStore

	mu sync.Mutex

	refMu  sync.Mutex
	refs   int
	closed bool
}

// Address returns the account's first bech32 address.
func (a *Account) Address() string {
	return a.address
}

// Acquire marks the account as in use by a request. Returns false once the
// account has been closed.
func (a *Account) Acquire() bool {
	a.refMu.Lock()
	defer a.refMu.Unlock()
	if a.closed {
		return false
	}
	a.refs++
	return true
}

// Release undoes Acquire. When Close raced with in-flight requests, the last
// Release performs the actual teardown.
func (a *Account) Release() {
	a.refMu.Lock()
	a.refs--
	last := a.closed && a.refs == 0
	a.refMu.Unlock()

	if last {
		a.closeSync()
	}
}

// Close stops new requests from acquiring the account and releases the sync
// database handle once in-flight requests drain.
func (a *Account) Close() error {
	a.refMu.Lock()
	if a.closed {
		a.refMu.Unlock()
		return nil
	}
	a.closed = true
	idle := a.refs == 0
	a.refMu.Unlock()

	if idle {
		return a.closeSync()
	}
	return nil
}

func (a *Account) closeSync() error {
	if a.sync == nil {
		return nil
	}
	return a.sync.Close()
}

// Service wires vault, node, and sync storage together.
type Service struct {
	vaults *vault.Manager
	node   NodeClient
	hrp    string
	logger logger.Logger

	// openSync is swappable in tests.
	openSync func(path string) (SyncStore, error)
}

func NewService(vaults *vault.Manager, node NodeClient, hrp string, log logger.Logger) *Service {
	return &Service{
		vaults: vaults,
		node:   node,
		hrp:    hrp,
		logger: log,
		openSync: func(path string) (SyncStore, error) {
			return storage.Open(path)
		},
	}
}

// Create provisions a brand-new wallet and returns the generated mnemonic.
// The caller is expected to show it to the user exactly once.
func (s *Service) Create(ctx context.Context, name, password string) (string, error) {
	mnemonic, err := s.vaults.Create(name, name, password)
	if err != nil {
		return "", err
	}

	s.logger.Info("Wallet created", map[string]interface{}{
		"account": name,
	})
	return mnemonic, nil
}

// Recover provisions a wallet from a user-supplied mnemonic.
func (s *Service) Recover(ctx context.Context, name, pin, password, mnemonic string) error {
	alias := pin
	if alias == "" {
		alias = name
	}
	if err := s.vaults.Recover(name, alias, password, mnemonic); err != nil {
		return err
	}

	s.logger.Info("Wallet recovered", map[string]interface{}{
		"account": name,
		"alias":   alias,
	})
	return nil
}

// SignIn opens an existing vault and returns a live account handle. A pin,
// when supplied, must match the alias stored at create/recover time.
func (s *Service) SignIn(ctx context.Context, name, pin, password string) (*Account, error) {
	secret, err := s.vaults.Open(name, password)
	if err != nil {
		return nil, err
	}
	if pin != "" && secret.Alias != "" && pin != secret.Alias {
		return nil, errors.ErrInvalidCredentials
	}

	key, err := ledger.KeyFromSeed(secret.Seed)
	if err != nil {
		return nil, err
	}
	address, err := ledger.EncodeAddress(s.hrp, key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	acct := &Account{
		Name:    name,
		Alias:   secret.Alias,
		address: address,
		key:     key,
	}

	// The sync db is a cache; a failure to open it degrades reads but must
	// not block sign-in.
	store, err := s.openSync(s.vaults.SyncDBPath(name))
	if err != nil {
		s.logger.Warn("Sync database unavailable", map[string]interface{}{
			"account": name,
			"error":   err.Error(),
		})
	} else {
		acct.sync = store
	}

	s.logger.Info("Account signed in", map[string]interface{}{
		"account": name,
		"address": address,
	})
	return acct, nil
}

// Accounts lists account names with a vault snapshot on disk.
func (s *Service) Accounts() ([]string, error) {
	return s.vaults.List()
}

// AvailableBalance returns the spendable amount in micro-units for the base
// coin (empty tokenID) or a native token. Falls back to the cached balance
// when the node is unreachable.
func (s *Service) AvailableBalance(ctx context.Context, acct *Account, tokenID string) (int64, error) {
	snap, err := s.node.Balance(ctx, acct.address)
	if err != nil {
		return s.cachedBalance(ctx, acct, tokenID, err)
	}

	if acct.sync != nil {
		if cerr := acct.sync.UpsertBalance(ctx, acct.address, "", snap.BaseCoin.Available, snap.BaseCoin.Total); cerr != nil {
			s.logger.Warn("Balance cache write failed", map[string]interface{}{
				"account": acct.Name,
				"error":   cerr.Error(),
			})
		}
		for _, t := range snap.NativeTokens {
			if cerr := acct.sync.UpsertBalance(ctx, acct.address, t.ID, t.Available, t.Total); cerr != nil {
				s.logger.Warn("Balance cache write failed", map[string]interface{}{
					"account":  acct.Name,
					"token_id": t.ID,
					"error":    cerr.Error(),
				})
			}
		}
	}

	return snap.AvailableFor(tokenID)
}

func (s *Service) cachedBalance(ctx context.Context, acct *Account, tokenID string, cause error) (int64, error) {
	if acct.sync == nil {
		return 0, cause
	}
	available, syncedAt, found, err := acct.sync.Balance(ctx, acct.address, tokenID)
	if err != nil || !found {
		return 0, cause
	}
	s.logger.Warn("Serving cached balance", map[string]interface{}{
		"account":   acct.Name,
		"synced_at": syncedAt,
		"error":     cause.Error(),
	})
	return available, nil
}

// Send validates and submits a transfer of amountMicros to recipient. A
// non-empty tokenID sends that native token instead of the base coin;
// metadata is attached to the output as hex-encoded UTF-8.
func (s *Service) Send(ctx context.Context, acct *Account, recipient string, amountMicros int64, tokenID, metadata string) (*ledger.Transfer, error) {
	if amountMicros <= 0 {
		return nil, errors.ErrInvalidAmount
	}
	if err := ledger.ValidateAddress(s.hrp, recipient); err != nil {
		return nil, err
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	req, err := signTransfer(acct, recipient, amountMicros, tokenID, metadata)
	if err != nil {
		return nil, err
	}

	transfer, err := s.node.SubmitTransfer(ctx, req)
	if err != nil {
		s.logger.Error("Transfer failed", map[string]interface{}{
			"account":   acct.Name,
			"recipient": recipient,
			"amount":    amountMicros,
			"error":     err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Transfer submitted", map[string]interface{}{
		"account": acct.Name,
		"txid":    transfer.ID,
		"amount":  transfer.Amount,
	})

	if acct.sync != nil && transfer.ID != "" {
		record := *transfer
		record.Incoming = false
		if cerr := acct.sync.RecordTransfers(ctx, acct.address, []ledger.Transfer{record}); cerr != nil {
			s.logger.Warn("Transfer cache write failed", map[string]interface{}{
				"account": acct.Name,
				"error":   cerr.Error(),
			})
		}
	}
	return transfer, nil
}

// Transactions lists incoming transfers for the account, cached locally.
// Falls back to the cache when the node is unreachable.
func (s *Service) Transactions(ctx context.Context, acct *Account, limit int) ([]ledger.Transfer, error) {
	transfers, err := s.node.Transactions(ctx, acct.address)
	if err != nil {
		if acct.sync != nil {
			cached, cerr := acct.sync.Transfers(ctx, acct.address, limit)
			if cerr == nil && len(cached) > 0 {
				s.logger.Warn("Serving cached transactions", map[string]interface{}{
					"account": acct.Name,
					"error":   err.Error(),
				})
				return cached, nil
			}
		}
		return nil, err
	}

	incoming := transfers[:0]
	for _, t := range transfers {
		if t.Incoming {
			incoming = append(incoming, t)
		}
	}

	if acct.sync != nil && len(incoming) > 0 {
		if cerr := acct.sync.RecordTransfers(ctx, acct.address, incoming); cerr != nil {
			s.logger.Warn("Transfer cache write failed", map[string]interface{}{
				"account": acct.Name,
				"error":   cerr.Error(),
			})
		}
	}

	if limit > 0 && len(incoming) > limit {
		incoming = incoming[len(incoming)-limit:]
	}
	return incoming, nil
}

// transferEssence is the canonical signed portion of a transfer request.
type transferEssence struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	TokenID   string `json:"tokenId,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
}

func signTransfer(acct *Account, recipient string, amountMicros int64, tokenID, metadata string) (*ledger.TransferRequest, error) {
	metaHex := ""
	if metadata != "" {
		metaHex = "0x" + hex.EncodeToString([]byte(metadata))
	}

	essence := transferEssence{
		Sender:    acct.address,
		Recipient: recipient,
		Amount:    strconv.FormatInt(amountMicros, 10),
		TokenID:   tokenID,
		Metadata:  metaHex,
	}
	payload, err := json.Marshal(&essence)
	if err != nil {
		return nil, err
	}
	digest := blake2b.Sum256(payload)
	signature := ed25519.Sign(acct.key, digest[:])

	return &ledger.TransferRequest{
		Sender:    essence.Sender,
		Recipient: essence.Recipient,
		Amount:    essence.Amount,
		TokenID:   essence.TokenID,
		Metadata:  essence.Metadata,
		PublicKey: "0x" + hex.EncodeToString(acct.key.Public().(ed25519.PublicKey)),
		Signature: "0x" + hex.EncodeToString(signature),
	}, nil
}
