// Package ledger is a thin synchronous facade over a ledger node's JSON-RPC
// surface. Every method is exactly one round trip; nothing is retried or
// cached.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/DebuggerAu/kin-sdk-core/internal/metrics"
	"github.com/DebuggerAu/kin-sdk-core/internal/rpcclient"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Caller is the JSON-RPC transport the client issues calls over.
type Caller interface {
	Call(ctx context.Context, method string, params, result interface{}) error
}

// Client exposes the node operations the wallet core needs.
type Client struct {
	rpc Caller
}

// New returns a Client issuing calls over rpc.
func New(rpc Caller) *Client {
	return &Client{rpc: rpc}
}

// Dial returns a Client for a node's HTTP JSON-RPC endpoint. A non-positive
// timeout selects the transport default.
func Dial(url string, timeout time.Duration) *Client {
	return New(rpcclient.New(url, rpcclient.WithTimeout(timeout)))
}

// ChainID returns the chain ID the node reports.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := c.call(ctx, "eth_chainId", &id); err != nil {
		return nil, err
	}
	return id.ToInt(), nil
}

// BlockNumber returns the current head block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, "eth_blockNumber", &n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// PendingNonceAt returns the next nonce for addr including transactions
// still in the node's pool.
func (c *Client) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, "eth_getTransactionCount", &n, addr, "pending"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// NonceAt returns the number of transactions addr had mined as of block.
// A nil block selects the latest block.
func (c *Client) NonceAt(ctx context.Context, addr common.Address, block *big.Int) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, "eth_getTransactionCount", &n, addr, blockArg(block)); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// SuggestGasPrice returns the node's current gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price hexutil.Big
	if err := c.call(ctx, "eth_gasPrice", &price); err != nil {
		return nil, err
	}
	return price.ToInt(), nil
}

// callMsg is the eth_call transaction object.
type callMsg struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// CallContract executes a read-only call against contract at block and
// returns the raw return data. A nil block selects the latest block.
func (c *Client) CallContract(ctx context.Context, contract common.Address, data []byte, block *big.Int) ([]byte, error) {
	var out hexutil.Bytes
	msg := callMsg{To: contract, Data: data}
	if err := c.call(ctx, "eth_call", &out, msg, blockArg(block)); err != nil {
		return nil, err
	}
	return out, nil
}

// SendTransaction submits a signed transaction and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return common.Hash{}, kinerr.New(kinerr.OperationFailed, "eth_sendRawTransaction", fmt.Errorf("encode transaction: %w", err))
	}

	var hash common.Hash
	if err := c.call(ctx, "eth_sendRawTransaction", &hash, hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, err
	}
	if hash != tx.Hash() {
		klog.Ledger.Warn().
			Str("local", tx.Hash().Hex()).
			Str("node", hash.Hex()).
			Msg("Node reported a different transaction hash")
	}
	return tx.Hash(), nil
}

func (c *Client) call(ctx context.Context, method string, result interface{}, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	metrics.RPCCallsTotal.WithLabelValues(method).Inc()
	start := time.Now()
	err := c.rpc.Call(ctx, method, params, result)
	metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		err = classify(method, err)
		metrics.RPCErrorsTotal.WithLabelValues(method, kinerr.KindOf(err).String()).Inc()
		return err
	}
	return nil
}

func blockArg(block *big.Int) string {
	if block == nil {
		return "latest"
	}
	return hexutil.EncodeBig(block)
}

// classify tags a transport error with its kind.
func classify(method string, err error) error {
	var (
		transportErr *rpcclient.TransportError
		rpcErr       *rpcclient.RPCError
		decodeErr    *rpcclient.DecodeError
	)
	switch {
	case errors.As(err, &transportErr):
		return kinerr.New(kinerr.Connectivity, method, err)
	case errors.As(err, &rpcErr):
		return kinerr.New(kinerr.RPC, method, err)
	case errors.As(err, &decodeErr), errors.Is(err, rpcclient.ErrNoResult):
		return kinerr.New(kinerr.Decoding, method, err)
	default:
		return kinerr.Wrap(method, err)
	}
}
