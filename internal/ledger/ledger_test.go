package ledger

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DebuggerAu/kin-sdk-core/internal/contract"
	"github.com/DebuggerAu/kin-sdk-core/internal/metrics"
	"github.com/DebuggerAu/kin-sdk-core/internal/testnode"
	"github.com/DebuggerAu/kin-sdk-core/pkg/crypto"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var token = common.HexToAddress("0xEF2Fcc998847DB203DEa15fC49d0872C7614910C")

func newNode(t *testing.T) (*testnode.Node, *Client) {
	t.Helper()
	node := testnode.New(3, token)
	t.Cleanup(node.Close)
	return node, Dial(node.URL(), 0)
}

func signedTransfer(t *testing.T, key *crypto.PrivateKey, nonce uint64, to common.Address, amount int64) *types.Transaction {
	t.Helper()
	tx, err := contract.TransferTx(token, contract.TxParams{Nonce: nonce, GasPrice: big.NewInt(1), GasLimit: 60000}, to, big.NewInt(amount))
	require.NoError(t, err)
	signer := types.NewEIP155Signer(big.NewInt(3))
	h := signer.Hash(tx)
	sig, err := key.Sign(h[:])
	require.NoError(t, err)
	signed, err := tx.WithSignature(signer, sig)
	require.NoError(t, err)
	return signed
}

func TestClient_Reads(t *testing.T) {
	node, c := newNode(t)
	ctx := context.Background()

	id, err := c.ChainID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), id.Int64())

	head, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(100), head)

	price, err := c.SuggestGasPrice(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000_000), price.Int64())

	owner := common.HexToAddress("0x01")
	node.SetBalance(owner, big.NewInt(777))
	data, err := contract.EncodeBalanceOf(owner)
	require.NoError(t, err)
	out, err := c.CallContract(ctx, token, data, new(big.Int).SetUint64(head))
	require.NoError(t, err)
	bal, err := contract.DecodeBalanceOf(out)
	require.NoError(t, err)
	require.Equal(t, int64(777), bal.Int64())

	require.Equal(t, 1, node.Calls("eth_call"))
}

func TestClient_SendAndNonces(t *testing.T) {
	node, c := newNode(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := key.Address()
	node.SetBalance(from, big.NewInt(100))

	pending, err := c.PendingNonceAt(ctx, from)
	require.NoError(t, err)
	require.Zero(t, pending)

	tx := signedTransfer(t, key, 0, common.HexToAddress("0x02"), 40)
	hash, err := c.SendTransaction(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), hash)

	pending, err = c.PendingNonceAt(ctx, from)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pending)

	confirmed, err := c.NonceAt(ctx, from, nil)
	require.NoError(t, err)
	require.Zero(t, confirmed)

	node.Mine()
	confirmed, err = c.NonceAt(ctx, from, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), confirmed)
	require.Equal(t, int64(60), node.Balance(from).Int64())
}

func TestClient_RPCErrorKind(t *testing.T) {
	node, c := newNode(t)
	key, _ := crypto.GenerateKey()

	// Nonce 5 is ahead of the account.
	_, err := c.SendTransaction(context.Background(), signedTransfer(t, key, 5, common.HexToAddress("0x02"), 1))
	require.Equal(t, kinerr.RPC, kinerr.KindOf(err))

	node.Fail("eth_gasPrice", -32000, "boom")
	_, err = c.SuggestGasPrice(context.Background())
	require.ErrorIs(t, err, kinerr.ErrRPC)
}

func TestClient_ConnectivityKind(t *testing.T) {
	node, c := newNode(t)
	node.SetDown(true)

	_, err := c.PendingNonceAt(context.Background(), common.HexToAddress("0x01"))
	require.Equal(t, kinerr.Connectivity, kinerr.KindOf(err))

	node.Close()
	_, err = c.BlockNumber(context.Background())
	require.ErrorIs(t, err, kinerr.ErrConnectivity)
}

func TestClient_DecodingKind(t *testing.T) {
	for name, body := range map[string]string{
		"malformed hex": `{"jsonrpc":"2.0","id":1,"result":"0xzz"}`,
		"null result":   `{"jsonrpc":"2.0","id":1,"result":null}`,
		"wrong type":    `{"jsonrpc":"2.0","id":1,"result":17}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := Dial(srv.URL, 0).BlockNumber(context.Background())
			require.Equal(t, kinerr.Decoding, kinerr.KindOf(err))
		})
	}
}

// countingCaller records calls and fails them all.
type countingCaller struct{ n int }

func (c *countingCaller) Call(context.Context, string, interface{}, interface{}) error {
	c.n++
	return errors.New("unexpected")
}

func TestClient_NoRetries(t *testing.T) {
	cc := &countingCaller{}
	_, err := New(cc).SuggestGasPrice(context.Background())
	require.Error(t, err)
	require.Equal(t, kinerr.OperationFailed, kinerr.KindOf(err))
	require.Equal(t, 1, cc.n)
}

func TestClient_CountsErrors(t *testing.T) {
	node, c := newNode(t)
	node.Fail("eth_blockNumber", -32000, "boom")

	counter := metrics.RPCErrorsTotal.WithLabelValues("eth_blockNumber", kinerr.RPC.String())
	before := testutil.ToFloat64(counter)
	_, err := c.BlockNumber(context.Background())
	require.Error(t, err)
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}
