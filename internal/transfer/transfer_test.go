package transfer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/DebuggerAu/kin-sdk-core/internal/balance"
	"github.com/DebuggerAu/kin-sdk-core/internal/contract"
	"github.com/DebuggerAu/kin-sdk-core/internal/metrics"
	"github.com/DebuggerAu/kin-sdk-core/internal/pending"
	"github.com/DebuggerAu/kin-sdk-core/internal/signer"
	"github.com/DebuggerAu/kin-sdk-core/internal/storage"
	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/DebuggerAu/kin-sdk-core/pkg/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	testChainID  = big.NewInt(3)
	testToken    = common.HexToAddress("0xEF2Fcc998847DB203DEa15fC49d0872C7614910C")
	testGasPrice = big.NewInt(1_000_000_000)
	recipient    = "0x000000000000000000000000000000000000dEaD"
	passphrase   = []byte("hunter2")
)

// recordingLedger is a ledger double that records every call made to it.
type recordingLedger struct {
	calls    []string
	balances map[common.Address]*big.Int
	head     uint64
	nonce    uint64 // pending nonce
	mined    uint64 // mined nonce
	sent     []*types.Transaction

	blockErr error
	nonceErr error
	sendErr  error
}

func newRecordingLedger() *recordingLedger {
	return &recordingLedger{balances: map[common.Address]*big.Int{}, head: 100}
}

func (l *recordingLedger) BlockNumber(context.Context) (uint64, error) {
	l.calls = append(l.calls, "BlockNumber")
	return l.head, l.blockErr
}

func (l *recordingLedger) BalanceOf(_ context.Context, owner common.Address, _ *big.Int) (*big.Int, error) {
	l.calls = append(l.calls, "BalanceOf")
	if v, ok := l.balances[owner]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (l *recordingLedger) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	l.calls = append(l.calls, "PendingNonceAt")
	return l.nonce, l.nonceErr
}

func (l *recordingLedger) NonceAt(context.Context, common.Address, *big.Int) (uint64, error) {
	l.calls = append(l.calls, "NonceAt")
	return l.mined, nil
}

func (l *recordingLedger) SuggestGasPrice(context.Context) (*big.Int, error) {
	l.calls = append(l.calls, "SuggestGasPrice")
	return new(big.Int).Set(testGasPrice), nil
}

func (l *recordingLedger) SendTransaction(_ context.Context, tx *types.Transaction) (common.Hash, error) {
	l.calls = append(l.calls, "SendTransaction")
	if l.sendErr != nil {
		return common.Hash{}, l.sendErr
	}
	l.sent = append(l.sent, tx)
	l.nonce++
	return tx.Hash(), nil
}

type fixture struct {
	orch    *Orchestrator
	ledger  *recordingLedger
	effects *pending.Reconciler
	account wallet.Account
}

func newFixture(t *testing.T, confirmed string) *fixture {
	t.Helper()

	ks, err := wallet.NewKeystore(t.TempDir())
	require.NoError(t, err)
	acct, err := ks.Create("sender", passphrase, wallet.EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1})
	require.NoError(t, err)

	led := newRecordingLedger()
	base, err := units.ToBaseUnits(decimal.RequireFromString(confirmed))
	require.NoError(t, err)
	led.balances[acct.Address] = base

	effects := pending.New(storage.NewMemory(), led, pending.Config{})
	orch := New(balance.NewReader(led, led), led, signer.New(ks, testChainID), effects, Config{Token: testToken})
	return &fixture{orch: orch, ledger: led, effects: effects, account: acct}
}

func (f *fixture) request(amount string) Request {
	return Request{
		From:       f.account,
		Passphrase: passphrase,
		To:         recipient,
		Amount:     decimal.RequireFromString(amount),
	}
}

func (f *fixture) pendingBalance(t *testing.T) pending.PendingBalance {
	t.Helper()
	bal, err := balance.NewReader(f.ledger, f.ledger).GetBalance(context.Background(), f.account)
	require.NoError(t, err)
	pb, err := f.effects.ComputePendingBalance(context.Background(), f.account, bal)
	require.NoError(t, err)
	return pb
}

func TestTransfer_Success(t *testing.T) {
	f := newFixture(t, "100")
	f.ledger.nonce = 4
	f.ledger.mined = 4

	id, err := f.orch.Transfer(context.Background(), f.request("40"))
	require.NoError(t, err)
	require.Len(t, f.ledger.sent, 1)
	require.Equal(t, []string{"BlockNumber", "BalanceOf", "PendingNonceAt", "SuggestGasPrice", "SendTransaction"}, f.ledger.calls)

	tx := f.ledger.sent[0]
	require.Equal(t, tx.Hash(), id.Hash())
	require.Equal(t, tx.Hash().Hex(), string(id))
	require.Equal(t, uint64(4), tx.Nonce())
	require.Equal(t, DefaultGasLimit, tx.Gas())
	require.Equal(t, testGasPrice, tx.GasPrice())
	require.Equal(t, testToken, *tx.To())
	require.Zero(t, tx.Value().Sign())

	sender, err := types.Sender(types.NewEIP155Signer(testChainID), tx)
	require.NoError(t, err)
	require.Equal(t, f.account.Address, sender)

	to, amount, err := contract.DecodeTransferCall(tx.Data())
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(recipient), to)
	forty, _ := units.ToBaseUnits(decimal.NewFromInt(40))
	require.Equal(t, forty, amount)

	pb := f.pendingBalance(t)
	require.True(t, pb.Amount.Equal(decimal.NewFromInt(60)), "pending balance = %s", pb.Amount)
	require.False(t, pb.Drift)
}

func TestTransfer_PendingClearsOnceMined(t *testing.T) {
	f := newFixture(t, "100")

	_, err := f.orch.Transfer(context.Background(), f.request("40"))
	require.NoError(t, err)

	// The ledger mines it: balance drops and the mined nonce moves past it.
	forty, _ := units.ToBaseUnits(decimal.NewFromInt(40))
	f.ledger.balances[f.account.Address].Sub(f.ledger.balances[f.account.Address], forty)
	f.ledger.mined = 1

	pb := f.pendingBalance(t)
	require.True(t, pb.Amount.Equal(decimal.NewFromInt(60)), "pending balance = %s", pb.Amount)
	effects, err := f.effects.Effects(f.account.Address)
	require.NoError(t, err)
	require.Empty(t, effects)
}

func TestTransfer_SequentialUsesFreshNonce(t *testing.T) {
	f := newFixture(t, "100")

	_, err := f.orch.Transfer(context.Background(), f.request("10"))
	require.NoError(t, err)
	_, err = f.orch.Transfer(context.Background(), f.request("15"))
	require.NoError(t, err)

	require.Len(t, f.ledger.sent, 2)
	require.Equal(t, uint64(0), f.ledger.sent[0].Nonce())
	require.Equal(t, uint64(1), f.ledger.sent[1].Nonce())

	pb := f.pendingBalance(t)
	require.True(t, pb.Amount.Equal(decimal.NewFromInt(75)), "pending balance = %s", pb.Amount)
}

func TestTransfer_ValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
		kind   kinerr.Kind
	}{
		{"negative amount", func(r *Request) { r.Amount = decimal.NewFromInt(-1) }, kinerr.OperationFailed},
		{"empty recipient", func(r *Request) { r.To = "" }, kinerr.OperationFailed},
		{"blank recipient", func(r *Request) { r.To = "   " }, kinerr.OperationFailed},
		{"malformed recipient", func(r *Request) { r.To = "0x1234" }, kinerr.OperationFailed},
		{"missing 0x prefix", func(r *Request) { r.To = "000000000000000000000000000000000000dEaD" }, kinerr.OperationFailed},
		{"non-hex recipient", func(r *Request) { r.To = "0x000000000000000000000000000000000000zEaD" }, kinerr.OperationFailed},
		{"missing sender", func(r *Request) { r.From = wallet.Account{} }, kinerr.OperationFailed},
		// 19 fractional digits; 10.0000000000000001 has 16 and converts exactly.
		{"too many decimals", func(r *Request) { r.Amount = decimal.RequireFromString("10.0000000000000000001") }, kinerr.Conversion},
		{"uint256 overflow", func(r *Request) { r.Amount = decimal.New(1, 60) }, kinerr.Conversion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "10")
			req := f.request("1")
			tt.modify(&req)

			_, err := f.orch.Transfer(context.Background(), req)
			require.Error(t, err)
			require.Equal(t, tt.kind, kinerr.KindOf(err), "err = %v", err)

			var kerr *kinerr.Error
			require.True(t, errors.As(err, &kerr))
			require.Equal(t, Validating.op(), kerr.Op)
			require.Empty(t, f.ledger.calls)
		})
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	f := newFixture(t, "10")

	_, err := f.orch.Transfer(context.Background(), f.request("10.000000000000000001"))
	require.True(t, errors.Is(err, kinerr.ErrInsufficientBalance), "err = %v", err)
	require.Empty(t, f.ledger.sent)
	require.NotContains(t, f.ledger.calls, "PendingNonceAt")
	require.NotContains(t, f.ledger.calls, "SendTransaction")
}

func TestTransfer_SixteenDecimalsFitBaseUnits(t *testing.T) {
	// Sixteen fractional digits are within the token's 18, so the amount
	// converts and the request fails on balance, not on precision.
	f := newFixture(t, "10")

	_, err := f.orch.Transfer(context.Background(), f.request("10.0000000000000001"))
	require.Equal(t, kinerr.InsufficientBalance, kinerr.KindOf(err), "err = %v", err)
	require.Equal(t, []string{"BlockNumber", "BalanceOf"}, f.ledger.calls)
}

func TestTransfer_ExactBalance(t *testing.T) {
	f := newFixture(t, "10")

	_, err := f.orch.Transfer(context.Background(), f.request("10"))
	require.NoError(t, err)
	require.True(t, f.pendingBalance(t).Amount.IsZero())
}

func TestTransfer_WrongPassphrase(t *testing.T) {
	f := newFixture(t, "100")
	req := f.request("1")
	req.Passphrase = []byte("wrong")

	_, err := f.orch.Transfer(context.Background(), req)
	require.Equal(t, kinerr.Passphrase, kinerr.KindOf(err), "err = %v", err)
	require.True(t, errors.Is(err, wallet.ErrWrongPassphrase))
	require.NotContains(t, f.ledger.calls, "SendTransaction")
}

func TestTransfer_SubmitFailureRecordsNothing(t *testing.T) {
	f := newFixture(t, "100")
	f.ledger.sendErr = kinerr.Newf(kinerr.RPC, "send", "nonce too low")

	_, err := f.orch.Transfer(context.Background(), f.request("40"))
	require.Equal(t, kinerr.RPC, kinerr.KindOf(err), "err = %v", err)

	var kerr *kinerr.Error
	require.True(t, errors.As(err, &kerr))
	require.Equal(t, Submitting.op(), kerr.Op)

	effects, err := f.effects.Effects(f.account.Address)
	require.NoError(t, err)
	require.Empty(t, effects)
	require.True(t, f.pendingBalance(t).Amount.Equal(decimal.NewFromInt(100)))
}

func TestTransfer_KindsAreNotDowngraded(t *testing.T) {
	f := newFixture(t, "100")
	f.ledger.nonceErr = kinerr.New(kinerr.Connectivity, "nonce", errors.New("connection refused"))

	_, err := f.orch.Transfer(context.Background(), f.request("1"))
	require.Equal(t, kinerr.Connectivity, kinerr.KindOf(err), "err = %v", err)
	require.NotContains(t, f.ledger.calls, "SendTransaction")

	f.ledger.nonceErr = errors.New("something odd")
	_, err = f.orch.Transfer(context.Background(), f.request("1"))
	require.Equal(t, kinerr.OperationFailed, kinerr.KindOf(err), "err = %v", err)
}

func TestTransfer_BalanceFailure(t *testing.T) {
	f := newFixture(t, "100")
	f.ledger.blockErr = kinerr.New(kinerr.Connectivity, "head", errors.New("down"))

	_, err := f.orch.Transfer(context.Background(), f.request("1"))
	require.Equal(t, kinerr.Connectivity, kinerr.KindOf(err), "err = %v", err)

	var kerr *kinerr.Error
	require.True(t, errors.As(err, &kerr))
	require.Equal(t, BalanceChecking.op(), kerr.Op)
	require.NotContains(t, f.ledger.calls, "PendingNonceAt")
}

func TestTransfer_Metrics(t *testing.T) {
	f := newFixture(t, "1")
	submitted := testutil.ToFloat64(metrics.TransfersTotal.WithLabelValues("submitted"))
	insufficient := testutil.ToFloat64(metrics.TransfersTotal.WithLabelValues(kinerr.InsufficientBalance.String()))

	_, err := f.orch.Transfer(context.Background(), f.request("1"))
	require.NoError(t, err)
	_, err = f.orch.Transfer(context.Background(), f.request("5"))
	require.Error(t, err)

	require.Equal(t, submitted+1, testutil.ToFloat64(metrics.TransfersTotal.WithLabelValues("submitted")))
	require.Equal(t, insufficient+1, testutil.ToFloat64(metrics.TransfersTotal.WithLabelValues(kinerr.InsufficientBalance.String())))
}

func TestStageString(t *testing.T) {
	require.Equal(t, "nonce_gas_fetch", NonceGasFetch.String())
	require.Equal(t, "transfer.signing", Signing.op())
	require.Equal(t, "stage(42)", Stage(42).String())
}
