// Package kin is the wallet core's entry point. A Client binds to exactly one
// network and wires key custody, balance reads, pending tracking and
// transfers for it.
package kin

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/DebuggerAu/kin-sdk-core/config"
	"github.com/DebuggerAu/kin-sdk-core/internal/balance"
	"github.com/DebuggerAu/kin-sdk-core/internal/contract"
	"github.com/DebuggerAu/kin-sdk-core/internal/ledger"
	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/DebuggerAu/kin-sdk-core/internal/pending"
	"github.com/DebuggerAu/kin-sdk-core/internal/signer"
	"github.com/DebuggerAu/kin-sdk-core/internal/storage"
	"github.com/DebuggerAu/kin-sdk-core/internal/transfer"
	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/DebuggerAu/kin-sdk-core/pkg/units"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"
)

// Re-exported so callers outside this module can name them.
type (
	Account         = wallet.Account
	Balance         = balance.Balance
	PendingBalance  = pending.PendingBalance
	TransferRequest = transfer.Request
	TransactionID   = transfer.TransactionID
)

// TokenInfo is the token contract's metadata.
type TokenInfo struct {
	Address     string
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply decimal.Decimal
}

// Option configures a Client.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock used to age pending transfers.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Client is a wallet bound to one network.
type Client struct {
	network config.NetworkParams
	light   bool

	ledger    *ledger.Client
	keystore  *wallet.Keystore
	token     *contract.Reader
	balances  *balance.Reader
	pending   *pending.Reconciler
	transfers *transfer.Orchestrator
	db        storage.Store
}

// New opens the keystore and pending store under cfg's data directory and
// returns a Client for cfg's network. No ledger call is made.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	params := cfg.Params()

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		return nil, fmt.Errorf("open keystore: %w", err)
	}

	dbPath := ""
	if cfg.Pending.Persist {
		dbPath = cfg.PendingDir()
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}

	led := ledger.Dial(cfg.RPC.URL, cfg.RPC.Timeout)
	token := contract.NewReader(led, params.ContractAddress)
	balances := balance.NewReader(led, token)
	rec := pending.New(db, led, pending.Config{
		TTL:           cfg.Pending.TTL,
		MaxPerAccount: cfg.Pending.MaxPerAccount,
		Clock:         o.clock,
	})
	sig := signer.New(ks, big.NewInt(params.ChainID))

	c := &Client{
		network:  params,
		light:    cfg.Wallet.Light,
		ledger:   led,
		keystore: ks,
		token:    token,
		balances: balances,
		pending:  rec,
		db:       db,
	}
	c.transfers = transfer.New(balances, led, sig, rec, transfer.Config{
		Token:    params.ContractAddress,
		GasLimit: params.TransferGasLimit,
	})

	if n, err := rec.Prune(); err != nil {
		klog.Pending.Warn().Err(err).Msg("Failed to prune pending transfers")
	} else if n > 0 {
		klog.Pending.Debug().Int("count", n).Msg("Pruned on open")
	}

	klog.Logger.Info().
		Str("network", string(params.Network)).
		Int64("chain_id", params.ChainID).
		Str("contract", params.ContractAddress.Hex()).
		Str("rpc", cfg.RPC.URL).
		Msg("Kin client ready")
	return c, nil
}

// Network returns the network parameters the client is bound to.
func (c *Client) Network() config.NetworkParams {
	return c.network
}

// Close releases the pending store.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) encryptionParams() wallet.EncryptionParams {
	if c.light {
		return wallet.LightParams()
	}
	return wallet.DefaultParams()
}

// CreateAccount generates a new key sealed under passphrase.
func (c *Client) CreateAccount(name string, passphrase []byte) (Account, error) {
	acct, err := c.keystore.Create(name, passphrase, c.encryptionParams())
	if err != nil {
		return Account{}, kinerr.Wrap("create account", err)
	}
	return acct, nil
}

// ImportAccount stores an existing 32-byte private key sealed under passphrase.
func (c *Client) ImportAccount(name string, privKey, passphrase []byte) (Account, error) {
	acct, err := c.keystore.Import(name, privKey, passphrase, c.encryptionParams())
	if err != nil {
		return Account{}, kinerr.Wrap("import account", err)
	}
	return acct, nil
}

// ImportMnemonic stores the key at m/44'/60'/0'/0/index of a BIP-39 mnemonic.
func (c *Client) ImportMnemonic(name, mnemonic, mnemonicPass string, index uint32, passphrase []byte) (Account, error) {
	acct, err := c.keystore.ImportMnemonic(name, mnemonic, mnemonicPass, index, passphrase, c.encryptionParams())
	if err != nil {
		return Account{}, kinerr.Wrap("import mnemonic", err)
	}
	return acct, nil
}

// Accounts lists the accounts in the keystore.
func (c *Client) Accounts() ([]Account, error) {
	accounts, err := c.keystore.Accounts()
	if err != nil {
		return nil, kinerr.Wrap("list accounts", err)
	}
	return accounts, nil
}

// Account resolves an address or keystore reference.
func (c *Client) Account(ref string) (Account, error) {
	acct, err := c.keystore.Account(ref)
	if err != nil {
		return Account{}, kinerr.Wrap("find account", err)
	}
	return acct, nil
}

// GetBalance returns account's confirmed balance.
func (c *Client) GetBalance(ctx context.Context, account Account) (Balance, error) {
	return c.balances.GetBalance(ctx, account)
}

// GetPendingBalance returns account's confirmed balance less its submitted,
// unmined transfers.
func (c *Client) GetPendingBalance(ctx context.Context, account Account) (PendingBalance, error) {
	bal, err := c.balances.GetBalance(ctx, account)
	if err != nil {
		return PendingBalance{}, err
	}
	return c.pending.ComputePendingBalance(ctx, account, bal)
}

// ClearPending forgets every tracked unconfirmed transfer. Use it when the
// pending balance reports drift the user has accounted for.
func (c *Client) ClearPending() error {
	return c.pending.Reset()
}

// Transfer sends tokens. See transfer.Orchestrator.Transfer; callers must
// allow at most one in-flight Transfer per account.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (TransactionID, error) {
	return c.transfers.Transfer(ctx, req)
}

// TokenInfo reads the token contract's metadata at the latest block. It fails
// with a Decoding error when the contract does not report 18 decimals, since
// every amount conversion assumes that scale.
func (c *Client) TokenInfo(ctx context.Context) (TokenInfo, error) {
	const op = "token info"

	name, err := c.token.Name(ctx, nil)
	if err != nil {
		return TokenInfo{}, kinerr.Wrap(op, err)
	}
	symbol, err := c.token.Symbol(ctx, nil)
	if err != nil {
		return TokenInfo{}, kinerr.Wrap(op, err)
	}
	decimals, err := c.token.Decimals(ctx, nil)
	if err != nil {
		return TokenInfo{}, kinerr.Wrap(op, err)
	}
	if decimals != units.Decimals {
		return TokenInfo{}, kinerr.Newf(kinerr.Decoding, op,
			"contract reports %d decimals, expected %d", decimals, units.Decimals)
	}
	supply, err := c.token.TotalSupply(ctx, nil)
	if err != nil {
		return TokenInfo{}, kinerr.Wrap(op, err)
	}
	total, err := units.ToAmount(supply)
	if err != nil {
		return TokenInfo{}, kinerr.Wrap(op, err)
	}

	return TokenInfo{
		Address:     c.token.Address().Hex(),
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		TotalSupply: total,
	}, nil
}

// CheckNetwork verifies that the node serves the chain the client is bound to.
func (c *Client) CheckNetwork(ctx context.Context) error {
	const op = "check network"

	id, err := c.ledger.ChainID(ctx)
	if err != nil {
		return kinerr.Wrap(op, err)
	}
	if id.Cmp(big.NewInt(c.network.ChainID)) != 0 {
		return kinerr.Newf(kinerr.OperationFailed, op,
			"node serves chain %s, %s is chain %d", id, c.network.Network, c.network.ChainID)
	}
	return nil
}

// ChangePassphrase re-seals an account's key under a new passphrase.
func (c *Client) ChangePassphrase(ref string, oldPass, newPass []byte) error {
	const op = "change passphrase"
	if err := c.keystore.ChangePassphrase(ref, oldPass, newPass, c.encryptionParams()); err != nil {
		if errors.Is(err, wallet.ErrWrongPassphrase) {
			return kinerr.New(kinerr.Passphrase, op, err)
		}
		return kinerr.Wrap(op, err)
	}
	return nil
}

// DeleteAccount removes an account's key from the keystore.
func (c *Client) DeleteAccount(ref string) error {
	if err := c.keystore.Delete(ref); err != nil {
		return kinerr.Wrap("delete account", err)
	}
	return nil
}
