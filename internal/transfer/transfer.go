// Package transfer runs a token transfer from validation to submission.
package transfer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/DebuggerAu/kin-sdk-core/internal/balance"
	"github.com/DebuggerAu/kin-sdk-core/internal/contract"
	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/DebuggerAu/kin-sdk-core/internal/metrics"
	"github.com/DebuggerAu/kin-sdk-core/internal/pending"
	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/DebuggerAu/kin-sdk-core/pkg/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultGasLimit is the gas limit for a token transfer call.
const DefaultGasLimit uint64 = 60000

// Stage is a step of a transfer.
type Stage uint8

const (
	Validating Stage = iota
	BalanceChecking
	NonceGasFetch
	Signing
	Submitting
	Submitted
)

var stageNames = map[Stage]string{
	Validating:      "validating",
	BalanceChecking: "balance_checking",
	NonceGasFetch:   "nonce_gas_fetch",
	Signing:         "signing",
	Submitting:      "submitting",
	Submitted:       "submitted",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// op is the kinerr operation name for failures in s.
func (s Stage) op() string {
	return "transfer." + s.String()
}

// TransactionID is the 0x-prefixed hex hash of a submitted transaction.
type TransactionID string

// Hash returns the transaction hash.
func (id TransactionID) Hash() common.Hash {
	return common.HexToHash(string(id))
}

// Request is one transfer.
type Request struct {
	From       wallet.Account
	Passphrase []byte
	To         string
	Amount     decimal.Decimal
}

// BalanceReader reads confirmed balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, account wallet.Account) (balance.Balance, error)
}

// Ledger is the node access a transfer needs after the balance check.
type Ledger interface {
	PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error)
}

// TxSigner signs a transaction on behalf of an account.
type TxSigner interface {
	SignTx(ctx context.Context, account wallet.Account, passphrase []byte, tx *types.Transaction) (*types.Transaction, error)
}

// EffectRecorder tracks submitted, unmined transfers.
type EffectRecorder interface {
	Record(e pending.Effect) error
}

// Config holds the per-network transfer settings.
type Config struct {
	Token    common.Address
	GasLimit uint64 // zero selects DefaultGasLimit
}

// Orchestrator runs transfers. It holds no per-transfer state: the nonce and
// gas price are fetched inside each Transfer call and discarded after it.
type Orchestrator struct {
	balances BalanceReader
	ledger   Ledger
	signer   TxSigner
	effects  EffectRecorder
	token    common.Address
	gasLimit uint64
}

// New returns an Orchestrator.
func New(balances BalanceReader, ledger Ledger, signer TxSigner, effects EffectRecorder, cfg Config) *Orchestrator {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	return &Orchestrator{
		balances: balances,
		ledger:   ledger,
		signer:   signer,
		effects:  effects,
		token:    cfg.Token,
		gasLimit: cfg.GasLimit,
	}
}

// Transfer sends req.Amount tokens from req.From to req.To and returns the
// transaction ID once the node has accepted the transaction. It does not wait
// for the transaction to be mined.
//
// Every failure is a *kinerr.Error whose Op names the stage that failed.
// Input problems are reported before any ledger call is made. The balance
// check is against the confirmed balance.
//
// Transfer does not serialize calls for the same account. The nonce is read
// from the node's pending pool right before signing, so two concurrent
// transfers from one account can be given the same nonce and one of them
// will be rejected or replaced. Callers must allow at most one in-flight
// Transfer per account.
func (o *Orchestrator) Transfer(ctx context.Context, req Request) (TransactionID, error) {
	log := klog.Transfer.With().
		Str("transfer_id", uuid.NewString()).
		Str("from", req.From.Address.Hex()).
		Logger()

	id, err := o.transfer(ctx, req)
	if err != nil {
		kind := kinerr.KindOf(err)
		metrics.TransfersTotal.WithLabelValues(kind.String()).Inc()
		log.Warn().Err(err).Str("kind", kind.String()).Msg("Transfer failed")
		return "", err
	}

	metrics.TransfersTotal.WithLabelValues("submitted").Inc()
	log.Info().
		Str("to", req.To).
		Str("amount", units.FormatAmount(req.Amount)).
		Str("tx", string(id)).
		Msg("Transfer submitted")
	return id, nil
}

func (o *Orchestrator) transfer(ctx context.Context, req Request) (TransactionID, error) {
	// Validating
	to, amount, err := o.validate(req)
	if err != nil {
		return "", err
	}

	// BalanceChecking
	bal, err := o.balances.GetBalance(ctx, req.From)
	if err != nil {
		return "", fail(BalanceChecking, err)
	}
	if bal.BaseUnits == nil {
		return "", kinerr.Newf(kinerr.OperationFailed, BalanceChecking.op(), "no balance returned")
	}
	if bal.BaseUnits.Cmp(amount) < 0 {
		return "", kinerr.Newf(kinerr.InsufficientBalance, BalanceChecking.op(),
			"balance %s is less than %s", units.FormatAmount(bal.Amount), units.FormatAmount(req.Amount))
	}

	// NonceGasFetch
	nonce, err := o.ledger.PendingNonceAt(ctx, req.From.Address)
	if err != nil {
		return "", fail(NonceGasFetch, err)
	}
	gasPrice, err := o.ledger.SuggestGasPrice(ctx)
	if err != nil {
		return "", fail(NonceGasFetch, err)
	}

	// Signing
	tx, err := contract.TransferTx(o.token, contract.TxParams{
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: o.gasLimit,
	}, to, amount)
	if err != nil {
		return "", fail(Signing, err)
	}
	signed, err := o.signer.SignTx(ctx, req.From, req.Passphrase, tx)
	if err != nil {
		return "", fail(Signing, err)
	}

	// Submitting
	hash, err := o.ledger.SendTransaction(ctx, signed)
	if err != nil {
		return "", fail(Submitting, err)
	}

	// Submitted. The node holds the transaction now; a failure to track it
	// locally must not turn the transfer into an error.
	err = o.effects.Record(pending.Effect{
		TxID:   hash,
		Sender: req.From.Address,
		Amount: amount,
		Nonce:  nonce,
	})
	if err != nil {
		klog.Transfer.Error().Err(err).Str("tx", hash.Hex()).Msg("Failed to record pending transfer")
	}

	return TransactionID(hash.Hex()), nil
}

// validate checks req without touching the ledger and returns the recipient
// and the amount in base units.
func (o *Orchestrator) validate(req Request) (common.Address, *big.Int, error) {
	op := Validating.op()

	if req.From.Address == (common.Address{}) {
		return common.Address{}, nil, kinerr.Newf(kinerr.OperationFailed, op, "missing sender account")
	}
	to := strings.TrimSpace(req.To)
	if to == "" {
		return common.Address{}, nil, kinerr.Newf(kinerr.OperationFailed, op, "missing recipient")
	}
	if !isHexAddress(to) {
		return common.Address{}, nil, kinerr.Newf(kinerr.OperationFailed, op, "malformed recipient %q", to)
	}
	if req.Amount.Sign() < 0 {
		return common.Address{}, nil, kinerr.Newf(kinerr.OperationFailed, op, "negative amount %s", req.Amount)
	}

	amount, err := units.ToBaseUnits(req.Amount)
	if err != nil {
		return common.Address{}, nil, fail(Validating, err)
	}
	return common.HexToAddress(to), amount, nil
}

// isHexAddress reports whether s is 0x followed by 40 hex digits.
func isHexAddress(s string) bool {
	if len(s) != 2+2*common.AddressLength {
		return false
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	return common.IsHexAddress(s)
}

// fail tags err with stage. A known kind is kept; anything else becomes
// OperationFailed.
func fail(stage Stage, err error) error {
	kind := kinerr.KindOf(err)
	if kind == kinerr.Unknown {
		kind = kinerr.OperationFailed
	}
	return kinerr.New(kind, stage.op(), err)
}
