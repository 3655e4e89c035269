// Package pending tracks transfers this client submitted that the ledger has
// not yet mined, and derives the pending balance from them.
//
// An effect is removed when the sender's confirmed nonce moves past it (the
// transaction, or a replacement with the same nonce, was mined), when it is
// older than the TTL, or when the sender has more than MaxPerAccount effects
// and it is the oldest.
package pending

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/DebuggerAu/kin-sdk-core/internal/balance"
	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/DebuggerAu/kin-sdk-core/internal/metrics"
	"github.com/DebuggerAu/kin-sdk-core/internal/storage"
	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/DebuggerAu/kin-sdk-core/pkg/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"
)

// Defaults.
const (
	DefaultTTL           = time.Hour
	DefaultMaxPerAccount = 64
)

// effectBucket holds effect records. Keys inside it are
// <sender(20)><nonce(8, big endian)>.
const effectBucket = "fx"

// Effect is the local record of one submitted, unmined transfer.
type Effect struct {
	TxID        common.Hash
	Sender      common.Address
	Amount      *big.Int // base units
	Nonce       uint64
	SubmittedAt time.Time
}

// record is the stored form of an Effect.
type record struct {
	TxID        common.Hash    `json:"tx"`
	Sender      common.Address `json:"sender"`
	Amount      *hexutil.Big   `json:"amount"`
	Nonce       hexutil.Uint64 `json:"nonce"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// NonceReader reads an account's mined transaction count at a block.
type NonceReader interface {
	NonceAt(ctx context.Context, addr common.Address, block *big.Int) (uint64, error)
}

// Config tunes a Reconciler. Zero values select the defaults.
type Config struct {
	TTL           time.Duration
	MaxPerAccount int
	Clock         clock.Clock
}

// PendingBalance is a confirmed balance less the locally known unmined spends.
type PendingBalance struct {
	Confirmed balance.Balance
	Pending   *big.Int // sum of counted effects, base units
	Amount    decimal.Decimal
	BaseUnits *big.Int
	// Drift is set when the effects exceeded the confirmed balance and the
	// result was clamped at zero. Local tracking disagrees with the ledger,
	// for instance because the same key spent from another client.
	Drift bool
}

// Reconciler stores pending effects and computes pending balances.
type Reconciler struct {
	mu     sync.Mutex
	db     *storage.Bucket
	nonces NonceReader
	clock  clock.Clock
	ttl    time.Duration
	max    int
}

// New returns a Reconciler storing effects in store.
func New(store storage.Store, nonces NonceReader, cfg Config) *Reconciler {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxPerAccount <= 0 {
		cfg.MaxPerAccount = DefaultMaxPerAccount
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	return &Reconciler{
		db:     storage.NewBucket(store, effectBucket),
		nonces: nonces,
		clock:  cfg.Clock,
		ttl:    cfg.TTL,
		max:    cfg.MaxPerAccount,
	}
}

// Record stores e. An effect with the same sender and nonce replaces the
// earlier one. A zero SubmittedAt is set to now.
func (r *Reconciler) Record(e Effect) error {
	const op = "record pending"

	if e.Amount == nil || e.Amount.Sign() < 0 {
		return kinerr.Newf(kinerr.OperationFailed, op, "invalid amount %v", e.Amount)
	}
	if e.Sender == (common.Address{}) {
		return kinerr.Newf(kinerr.OperationFailed, op, "missing sender")
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = r.clock.Now()
	}

	data, err := json.Marshal(record{
		TxID:        e.TxID,
		Sender:      e.Sender,
		Amount:      (*hexutil.Big)(new(big.Int).Set(e.Amount)),
		Nonce:       hexutil.Uint64(e.Nonce),
		SubmittedAt: e.SubmittedAt.UTC(),
	})
	if err != nil {
		return kinerr.New(kinerr.OperationFailed, op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.loadLocked(e.Sender)
	if err != nil {
		return kinerr.New(kinerr.OperationFailed, op, err)
	}

	var batch storage.Batch
	batch.Put(effectKey(e.Sender, e.Nonce), data)
	evicted := r.evictions(existing, e.Nonce)
	for _, old := range evicted {
		batch.Delete(effectKey(old.Sender, old.Nonce))
	}
	if err := r.db.Commit(&batch); err != nil {
		return kinerr.New(kinerr.OperationFailed, op, err)
	}

	klog.Pending.Debug().
		Str("tx", e.TxID.Hex()).
		Str("sender", e.Sender.Hex()).
		Uint64("nonce", e.Nonce).
		Str("amount", units.FormatBaseUnits(e.Amount)).
		Msg("Pending effect recorded")
	for _, old := range evicted {
		metrics.PendingClearedTotal.WithLabelValues("evicted").Inc()
		klog.Pending.Warn().
			Str("tx", old.TxID.Hex()).
			Str("sender", old.Sender.Hex()).
			Msg("Pending effect evicted, per-account limit reached")
	}
	return nil
}

// evictions returns the lowest-nonce effects of existing that no longer fit
// once an effect with nonce is added. existing is ordered by nonce.
func (r *Reconciler) evictions(existing []Effect, nonce uint64) []Effect {
	n := len(existing) + 1
	for _, e := range existing {
		if e.Nonce == nonce {
			n--
			break
		}
	}
	var out []Effect
	for _, e := range existing {
		if n <= r.max {
			break
		}
		if e.Nonce == nonce {
			continue
		}
		out = append(out, e)
		n--
	}
	return out
}

// Effects returns sender's tracked effects ordered by nonce. It does not
// reconcile; use ComputePendingBalance for that.
func (r *Reconciler) Effects(sender common.Address) ([]Effect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	effects, err := r.loadLocked(sender)
	if err != nil {
		return nil, kinerr.New(kinerr.OperationFailed, "list pending", err)
	}
	return effects, nil
}

// ComputePendingBalance returns confirmed less every effect of account that
// is neither mined nor expired.
//
// Effects are reconciled against the account's nonce at confirmed.Block, the
// same block the balance was read at, so a transfer is either reflected in
// the confirmed balance or subtracted here, never both and never neither.
// Mined and expired effects are removed as a side effect.
func (r *Reconciler) ComputePendingBalance(ctx context.Context, account wallet.Account, confirmed balance.Balance) (PendingBalance, error) {
	const op = "compute pending balance"

	if confirmed.BaseUnits == nil || confirmed.BaseUnits.Sign() < 0 {
		return PendingBalance{}, kinerr.Newf(kinerr.OperationFailed, op, "invalid confirmed balance")
	}
	if confirmed.Account.Address != account.Address {
		return PendingBalance{}, kinerr.Newf(kinerr.OperationFailed, op,
			"balance belongs to %s, not %s", confirmed.Account.Address.Hex(), account.Address.Hex())
	}

	minedNonce, err := r.nonces.NonceAt(ctx, account.Address, new(big.Int).SetUint64(confirmed.Block))
	if err != nil {
		return PendingBalance{}, kinerr.New(kinerr.OperationFailed, op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	effects, err := r.loadLocked(account.Address)
	if err != nil {
		return PendingBalance{}, kinerr.New(kinerr.OperationFailed, op, err)
	}

	now := r.clock.Now()
	pending := new(big.Int)
	var cleared storage.Batch
	for _, e := range effects {
		var reason string
		switch {
		case e.Nonce < minedNonce:
			reason = "confirmed"
		case now.Sub(e.SubmittedAt) > r.ttl:
			reason = "expired"
		default:
			pending.Add(pending, e.Amount)
			continue
		}

		cleared.Delete(effectKey(e.Sender, e.Nonce))
		metrics.PendingClearedTotal.WithLabelValues(reason).Inc()
		klog.Pending.Debug().
			Str("tx", e.TxID.Hex()).
			Uint64("nonce", e.Nonce).
			Str("reason", reason).
			Msg("Pending effect cleared")
	}

	if err := r.db.Commit(&cleared); err != nil {
		return PendingBalance{}, kinerr.New(kinerr.OperationFailed, op, err)
	}

	result := new(big.Int).Sub(confirmed.BaseUnits, pending)
	drift := false
	if result.Sign() < 0 {
		drift = true
		metrics.PendingDriftTotal.Inc()
		klog.Pending.Warn().
			Str("account", account.Address.Hex()).
			Str("confirmed", units.FormatBaseUnits(confirmed.BaseUnits)).
			Str("pending", units.FormatBaseUnits(pending)).
			Uint64("block", confirmed.Block).
			Msg("Pending spends exceed confirmed balance, clamping to zero")
		result.SetInt64(0)
	}

	amount, err := units.ToAmount(result)
	if err != nil {
		return PendingBalance{}, kinerr.New(kinerr.OperationFailed, op, err)
	}

	return PendingBalance{
		Confirmed: confirmed,
		Pending:   pending,
		Amount:    amount,
		BaseUnits: result,
		Drift:     drift,
	}, nil
}

// Prune removes every expired effect across all accounts and returns how
// many were removed.
func (r *Reconciler) Prune() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var stale storage.Batch
	err := r.db.Scan(nil, func(key, value []byte) error {
		e, err := decodeEffect(value)
		if err != nil {
			klog.Pending.Warn().Err(err).Msg("Dropping unreadable pending record")
			stale.Delete(key)
			return nil
		}
		if now.Sub(e.SubmittedAt) > r.ttl {
			stale.Delete(key)
		}
		return nil
	})
	if err != nil {
		return 0, kinerr.New(kinerr.OperationFailed, "prune pending", err)
	}
	if err := r.db.Commit(&stale); err != nil {
		return 0, kinerr.New(kinerr.OperationFailed, "prune pending", err)
	}

	n := stale.Len()
	if n > 0 {
		metrics.PendingClearedTotal.WithLabelValues("expired").Add(float64(n))
		klog.Pending.Info().Int("count", n).Msg("Pruned expired pending effects")
	}
	return n, nil
}

// Forget drops the effect for txID, if tracked. It reports whether one was removed.
func (r *Reconciler) Forget(sender common.Address, txID common.Hash) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	effects, err := r.loadLocked(sender)
	if err != nil {
		return false, kinerr.New(kinerr.OperationFailed, "forget pending", err)
	}
	for _, e := range effects {
		if e.TxID != txID {
			continue
		}
		if err := r.db.Delete(effectKey(e.Sender, e.Nonce)); err != nil {
			return false, kinerr.New(kinerr.OperationFailed, "forget pending", err)
		}
		return true, nil
	}
	return false, nil
}

// Reset drops every tracked effect for every account. It is the recovery
// path after drift: the next pending balance equals the confirmed one.
func (r *Reconciler) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Clear(); err != nil {
		return kinerr.New(kinerr.OperationFailed, "reset pending", err)
	}
	klog.Pending.Info().Msg("Pending effects cleared")
	return nil
}

// loadLocked returns sender's effects ordered by nonce. Callers hold r.mu.
func (r *Reconciler) loadLocked(sender common.Address) ([]Effect, error) {
	var effects []Effect
	err := r.db.Scan(senderPrefix(sender), func(_, value []byte) error {
		e, err := decodeEffect(value)
		if err != nil {
			return err
		}
		effects = append(effects, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load effects for %s: %w", sender.Hex(), err)
	}
	return effects, nil
}

func decodeEffect(data []byte) (Effect, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Effect{}, fmt.Errorf("decode pending record: %w", err)
	}
	if rec.Amount == nil {
		return Effect{}, fmt.Errorf("decode pending record: missing amount")
	}
	return Effect{
		TxID:        rec.TxID,
		Sender:      rec.Sender,
		Amount:      rec.Amount.ToInt(),
		Nonce:       uint64(rec.Nonce),
		SubmittedAt: rec.SubmittedAt,
	}, nil
}

func senderPrefix(sender common.Address) []byte {
	return sender.Bytes()
}

func effectKey(sender common.Address, nonce uint64) []byte {
	return binary.BigEndian.AppendUint64(senderPrefix(sender), nonce)
}
