// Package testnode runs an in-process JSON-RPC ledger node holding a single
// token contract. It answers the handful of eth_* methods the wallet core
// uses and is meant for tests only.
package testnode

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/DebuggerAu/kin-sdk-core/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
)

// Node is a fake ledger node.
type Node struct {
	srv *httptest.Server

	mu       sync.Mutex
	chainID  *big.Int
	token    common.Address
	block    uint64
	gasPrice *big.Int
	balances map[common.Address]*big.Int
	mined    map[common.Address]uint64
	pool     []*types.Transaction
	calls    map[string]int
	failures map[string]rpcErr
	down     bool
	autoMine bool
}

type rpcErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// New starts a node for chainID with the token deployed at token.
// Submitted transactions stay in the pool until Mine is called.
func New(chainID int64, token common.Address) *Node {
	n := &Node{
		chainID:  big.NewInt(chainID),
		token:    token,
		block:    100,
		gasPrice: big.NewInt(1_000_000_000),
		balances: make(map[common.Address]*big.Int),
		mined:    make(map[common.Address]uint64),
		calls:    make(map[string]int),
		failures: make(map[string]rpcErr),
	}
	n.srv = httptest.NewServer(http.HandlerFunc(n.serve))
	return n
}

// URL returns the node's HTTP endpoint.
func (n *Node) URL() string { return n.srv.URL }

// Close stops the node.
func (n *Node) Close() { n.srv.Close() }

// SetBalance sets addr's token balance in base units.
func (n *Node) SetBalance(addr common.Address, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[addr] = new(big.Int).Set(amount)
}

// Balance returns addr's token balance in base units.
func (n *Node) Balance(addr common.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balanceOf(addr)
}

// SetAutoMine makes every accepted transaction mine immediately.
func (n *Node) SetAutoMine(on bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.autoMine = on
}

// Fail makes method answer with a JSON-RPC error until cleared with Fail(method, 0, "").
func (n *Node) Fail(method string, code int, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if code == 0 {
		delete(n.failures, method)
		return
	}
	n.failures[method] = rpcErr{Code: code, Message: message}
}

// SetDown makes every request fail with HTTP 502.
func (n *Node) SetDown(down bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.down = down
}

// Calls returns how many times method was invoked. An empty method counts all.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if method == "" {
		total := 0
		for _, c := range n.calls {
			total += c
		}
		return total
	}
	return n.calls[method]
}

// Pool returns the transactions waiting to be mined.
func (n *Node) Pool() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.pool...)
}

// Mine applies every pooled transaction in one new block.
func (n *Node) Mine() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mineLocked()
}

func (n *Node) mineLocked() {
	n.block++
	for _, tx := range n.pool {
		from, _ := types.Sender(types.LatestSignerForChainID(n.chainID), tx)
		n.mined[from]++
		to, amount, err := contract.DecodeTransferCall(tx.Data())
		if err != nil || n.balanceOf(from).Cmp(amount) < 0 {
			continue // reverted, nonce still consumed
		}
		n.balances[from] = new(big.Int).Sub(n.balanceOf(from), amount)
		n.balances[to] = new(big.Int).Add(n.balanceOf(to), amount)
	}
	n.pool = nil
}

func (n *Node) balanceOf(addr common.Address) *big.Int {
	if b, ok := n.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (n *Node) pendingNonce(addr common.Address) uint64 {
	nonce := n.mined[addr]
	signer := types.LatestSignerForChainID(n.chainID)
	for _, tx := range n.pool {
		if from, _ := types.Sender(signer, tx); from == addr {
			nonce++
		}
	}
	return nonce
}

type request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	down := n.down
	failure, failing := n.failures[req.Method]
	n.mu.Unlock()

	if down {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if failing {
		resp["error"] = failure
	} else if result, err := n.dispatch(req); err != nil {
		resp["error"] = err
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (n *Node) dispatch(req request) (interface{}, *rpcErr) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch req.Method {
	case "eth_chainId":
		return (*hexutil.Big)(n.chainID), nil
	case "eth_blockNumber":
		return hexutil.Uint64(n.block), nil
	case "eth_gasPrice":
		return (*hexutil.Big)(n.gasPrice), nil
	case "eth_getTransactionCount":
		var addr common.Address
		var tag string
		if err := n.params(req, &addr, &tag); err != nil {
			return nil, err
		}
		if tag == "pending" {
			return hexutil.Uint64(n.pendingNonce(addr)), nil
		}
		return hexutil.Uint64(n.mined[addr]), nil
	case "eth_call":
		var msg struct {
			To   common.Address `json:"to"`
			Data hexutil.Bytes  `json:"data"`
		}
		var tag string
		if err := n.params(req, &msg, &tag); err != nil {
			return nil, err
		}
		if msg.To != n.token {
			return hexutil.Bytes{}, nil
		}
		return n.call(msg.Data)
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		if err := n.params(req, &raw); err != nil {
			return nil, err
		}
		return n.send(raw)
	default:
		return nil, &rpcErr{Code: -32601, Message: fmt.Sprintf("method %s not found", req.Method)}
	}
}

func (n *Node) params(req request, out ...interface{}) *rpcErr {
	if len(req.Params) < len(out) {
		return &rpcErr{Code: -32602, Message: "missing params"}
	}
	for i, o := range out {
		if err := json.Unmarshal(req.Params[i], o); err != nil {
			return &rpcErr{Code: -32602, Message: "invalid params: " + err.Error()}
		}
	}
	return nil
}

func (n *Node) call(data []byte) (interface{}, *rpcErr) {
	methods := contract.ABI().Methods
	if len(data) < 4 {
		return hexutil.Bytes{}, nil
	}
	selector := data[:4]
	switch {
	case string(selector) == string(methods[contract.MethodBalanceOf].ID):
		args, err := methods[contract.MethodBalanceOf].Inputs.Unpack(data[4:])
		if err != nil {
			return nil, &rpcErr{Code: 3, Message: "execution reverted"}
		}
		owner := args[0].(common.Address)
		return hexutil.Bytes(math.U256Bytes(n.balanceOf(owner))), nil
	case string(selector) == string(methods[contract.MethodDecimals].ID):
		return hexutil.Bytes(math.U256Bytes(big.NewInt(18))), nil
	case string(selector) == string(methods[contract.MethodName].ID):
		out, _ := methods[contract.MethodName].Outputs.Pack("Kin")
		return hexutil.Bytes(out), nil
	case string(selector) == string(methods[contract.MethodSymbol].ID):
		out, _ := methods[contract.MethodSymbol].Outputs.Pack("KIN")
		return hexutil.Bytes(out), nil
	case string(selector) == string(methods[contract.MethodTotalSupply].ID):
		total := new(big.Int)
		for _, b := range n.balances {
			total.Add(total, b)
		}
		return hexutil.Bytes(math.U256Bytes(total)), nil
	}
	return nil, &rpcErr{Code: 3, Message: "execution reverted"}
}

func (n *Node) send(raw []byte) (interface{}, *rpcErr) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, &rpcErr{Code: -32000, Message: "rlp: " + err.Error()}
	}
	if tx.ChainId().Cmp(n.chainID) != 0 {
		return nil, &rpcErr{Code: -32000, Message: "invalid chain id"}
	}
	from, err := types.Sender(types.LatestSignerForChainID(n.chainID), tx)
	if err != nil {
		return nil, &rpcErr{Code: -32000, Message: "invalid sender"}
	}
	want := n.pendingNonce(from)
	switch {
	case tx.Nonce() < want:
		return nil, &rpcErr{Code: -32000, Message: "nonce too low"}
	case tx.Nonce() > want:
		return nil, &rpcErr{Code: -32000, Message: "nonce too high"}
	}

	n.pool = append(n.pool, tx)
	if n.autoMine {
		n.mineLocked()
	}
	return tx.Hash(), nil
}
