package kin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DebuggerAu/kin-sdk-core/config"
	"github.com/DebuggerAu/kin-sdk-core/internal/testnode"
	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/DebuggerAu/kin-sdk-core/pkg/units"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const recipient = "0x000000000000000000000000000000000000dEaD"

var pass = []byte("correct horse")

func testConfig(t *testing.T, node *testnode.Node) *config.Config {
	t.Helper()
	cfg := config.Default(config.Testnet)
	cfg.DataDir = t.TempDir()
	cfg.RPC.URL = node.URL()
	cfg.RPC.Timeout = 5 * time.Second
	cfg.Wallet.Light = true
	cfg.Pending.Persist = false
	return cfg
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *testnode.Node) {
	t.Helper()
	params := config.ParamsFor(config.Testnet)
	node := testnode.New(params.ChainID, params.ContractAddress)
	t.Cleanup(node.Close)

	c, err := New(testConfig(t, node), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, node
}

func fund(t *testing.T, node *testnode.Node, acct Account, amount string) {
	t.Helper()
	base, err := units.ToBaseUnits(decimal.RequireFromString(amount))
	require.NoError(t, err)
	node.SetBalance(acct.Address, base)
}

func TestClient_TransferAndPendingBalance(t *testing.T) {
	c, node := newTestClient(t)
	ctx := context.Background()

	acct, err := c.CreateAccount("main", pass)
	require.NoError(t, err)
	fund(t, node, acct, "100")

	bal, err := c.GetBalance(ctx, acct)
	require.NoError(t, err)
	require.True(t, bal.Amount.Equal(decimal.NewFromInt(100)))

	id, err := c.Transfer(ctx, TransferRequest{
		From:       acct,
		Passphrase: pass,
		To:         recipient,
		Amount:     decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	require.Len(t, node.Pool(), 1)
	require.Equal(t, node.Pool()[0].Hash(), id.Hash())

	// Not mined yet: confirmed stays 100, pending is 60.
	pb, err := c.GetPendingBalance(ctx, acct)
	require.NoError(t, err)
	require.True(t, pb.Confirmed.Amount.Equal(decimal.NewFromInt(100)))
	require.True(t, pb.Amount.Equal(decimal.NewFromInt(60)), "pending = %s", pb.Amount)

	// Mined: confirmed is 60 and the effect is cleared, so pending stays 60.
	node.Mine()
	pb, err = c.GetPendingBalance(ctx, acct)
	require.NoError(t, err)
	require.True(t, pb.Confirmed.Amount.Equal(decimal.NewFromInt(60)))
	require.True(t, pb.Amount.Equal(decimal.NewFromInt(60)), "pending = %s", pb.Amount)
	require.Zero(t, pb.Pending.Sign())
}

func TestClient_TransferFailuresDoNotSubmit(t *testing.T) {
	c, node := newTestClient(t)
	ctx := context.Background()

	acct, err := c.CreateAccount("main", pass)
	require.NoError(t, err)
	fund(t, node, acct, "10")

	_, err = c.Transfer(ctx, TransferRequest{From: acct, Passphrase: pass, To: recipient, Amount: decimal.NewFromInt(-1)})
	require.True(t, errors.Is(err, kinerr.ErrOperationFailed))
	require.Zero(t, node.Calls(""))

	_, err = c.Transfer(ctx, TransferRequest{From: acct, Passphrase: pass, To: recipient,
		Amount: decimal.RequireFromString("10.0000000000000000001")})
	require.True(t, errors.Is(err, kinerr.ErrConversion))
	require.Zero(t, node.Calls(""))

	_, err = c.Transfer(ctx, TransferRequest{From: acct, Passphrase: pass, To: recipient, Amount: decimal.NewFromInt(11)})
	require.True(t, errors.Is(err, kinerr.ErrInsufficientBalance))
	require.Zero(t, node.Calls("eth_sendRawTransaction"))

	_, err = c.Transfer(ctx, TransferRequest{From: acct, Passphrase: []byte("nope"), To: recipient, Amount: decimal.NewFromInt(1)})
	require.Equal(t, kinerr.Passphrase, kinerr.KindOf(err))
	require.Zero(t, node.Calls("eth_sendRawTransaction"))
}

func TestClient_SubmitRejectedLeavesPendingUntouched(t *testing.T) {
	c, node := newTestClient(t)
	ctx := context.Background()

	acct, err := c.CreateAccount("main", pass)
	require.NoError(t, err)
	fund(t, node, acct, "100")
	node.Fail("eth_sendRawTransaction", -32000, "insufficient funds for gas")

	_, err = c.Transfer(ctx, TransferRequest{From: acct, Passphrase: pass, To: recipient, Amount: decimal.NewFromInt(40)})
	require.Equal(t, kinerr.RPC, kinerr.KindOf(err), "err = %v", err)

	node.Fail("eth_sendRawTransaction", 0, "")
	pb, err := c.GetPendingBalance(ctx, acct)
	require.NoError(t, err)
	require.True(t, pb.Amount.Equal(decimal.NewFromInt(100)))
}

func TestClient_PendingExpires(t *testing.T) {
	tc := clock.NewTestClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c, node := newTestClient(t, WithClock(tc))
	ctx := context.Background()

	acct, err := c.CreateAccount("main", pass)
	require.NoError(t, err)
	fund(t, node, acct, "100")

	_, err = c.Transfer(ctx, TransferRequest{From: acct, Passphrase: pass, To: recipient, Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)

	tc.SetTime(tc.Now().Add(config.DefaultPendingTTL + time.Minute))
	pb, err := c.GetPendingBalance(ctx, acct)
	require.NoError(t, err)
	require.True(t, pb.Amount.Equal(decimal.NewFromInt(100)), "pending = %s", pb.Amount)
}

func TestClient_BalanceErrors(t *testing.T) {
	c, node := newTestClient(t)
	acct, err := c.CreateAccount("main", pass)
	require.NoError(t, err)

	node.SetDown(true)
	_, err = c.GetBalance(context.Background(), acct)
	require.Equal(t, kinerr.Connectivity, kinerr.KindOf(err), "err = %v", err)
}

func TestClient_Accounts(t *testing.T) {
	c, _ := newTestClient(t)

	created, err := c.CreateAccount("a", pass)
	require.NoError(t, err)

	one := make([]byte, 32)
	one[31] = 1
	imported, err := c.ImportAccount("b", one, pass)
	require.NoError(t, err)

	_, err = c.ImportAccount("b", one, pass)
	require.True(t, errors.Is(err, wallet.ErrAccountExists))

	accounts, err := c.Accounts()
	require.NoError(t, err)
	require.ElementsMatch(t, []Account{created, imported}, accounts)

	got, err := c.Account(imported.Address.Hex())
	require.NoError(t, err)
	require.Equal(t, imported, got)
}

func TestClient_ChangePassphrase(t *testing.T) {
	c, node := newTestClient(t)
	acct, err := c.CreateAccount("main", pass)
	require.NoError(t, err)
	fund(t, node, acct, "10")

	err = c.ChangePassphrase(acct.Ref, []byte("wrong"), []byte("new"))
	require.Equal(t, kinerr.Passphrase, kinerr.KindOf(err), "err = %v", err)
	require.True(t, errors.Is(err, wallet.ErrWrongPassphrase))

	require.NoError(t, c.ChangePassphrase(acct.Ref, pass, []byte("new")))
	_, err = c.Transfer(context.Background(), TransferRequest{From: acct, Passphrase: []byte("new"), To: recipient, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
}

func TestClient_TokenInfo(t *testing.T) {
	c, _ := newTestClient(t)

	info, err := c.TokenInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Kin", info.Name)
	require.Equal(t, "KIN", info.Symbol)
	require.Equal(t, uint8(18), info.Decimals)
	require.Equal(t, config.ParamsFor(config.Testnet).ContractAddress.Hex(), info.Address)
}

func TestClient_CheckNetwork(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.CheckNetwork(context.Background()))

	mainnet := config.ParamsFor(config.Mainnet)
	node := testnode.New(mainnet.ChainID+5, mainnet.ContractAddress)
	defer node.Close()
	wrong, err := New(testConfig(t, node))
	require.NoError(t, err)
	defer wrong.Close()
	require.True(t, errors.Is(wrong.CheckNetwork(context.Background()), kinerr.ErrOperationFailed))
}

func TestClient_NetworkFallsBackToTestnet(t *testing.T) {
	params := config.ParamsFor(config.Testnet)
	node := testnode.New(params.ChainID, params.ContractAddress)
	defer node.Close()

	cfg := testConfig(t, node)
	cfg.Network = config.NetworkType("ropsten-classic")
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, config.Testnet, c.Network().Network)
	require.Equal(t, int64(3), c.Network().ChainID)
}

func TestClient_ClearPending(t *testing.T) {
	c, node := newTestClient(t)
	ctx := context.Background()

	acct, err := c.CreateAccount("main", pass)
	require.NoError(t, err)
	fund(t, node, acct, "100")

	_, err = c.Transfer(ctx, TransferRequest{From: acct, Passphrase: pass, To: recipient, Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)

	require.NoError(t, c.ClearPending())
	pb, err := c.GetPendingBalance(ctx, acct)
	require.NoError(t, err)
	require.True(t, pb.Amount.Equal(decimal.NewFromInt(100)))
}
