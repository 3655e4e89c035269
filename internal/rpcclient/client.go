// Package rpcclient speaks JSON-RPC 2.0 over HTTP to a ledger node and sorts
// every failure into one of three types: TransportError when no JSON-RPC
// answer came back, RPCError when the node answered with an error object,
// and DecodeError when the result does not fit the caller's type.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
)

// DefaultTimeout bounds each call when no other timeout is configured.
const DefaultTimeout = 10 * time.Second

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 16 << 20

// ErrNoResult is returned when the node answers with an empty or null result
// for a call that expects a value.
var ErrNoResult = errors.New("no result in response")

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each call. Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// Client is a JSON-RPC 2.0 client for one endpoint. It is safe for
// concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	header   http.Header
	nextID   atomic.Uint64
}

// New returns a client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
		header: http.Header{
			"Content-Type": {"application/json"},
			"User-Agent":   {"kin-sdk-core"},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      uint64      `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int
	Message string
	Data    string
}

func (e *RPCError) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
}

// TransportError means the node was unreachable or did not answer with a
// JSON-RPC response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means a successful result did not unmarshal into the
// requested type.
type DecodeError struct {
	Method string
	Err    error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s result: %v", e.Method, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Call invokes method with positional params and unmarshals the result into
// result. A nil params is sent as an empty array. A nil result discards the
// answer.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	defer klog.Benchmark(method)()

	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: c.nextID.Add(1)})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	status, data, err := c.post(ctx, body)
	if err != nil {
		return &TransportError{Err: err}
	}

	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		if status != http.StatusOK {
			return &TransportError{Err: fmt.Errorf("http %d: %s", status, truncate(data, 256))}
		}
		return &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}

	// An error object wins over the HTTP status: some nodes pair it with 4xx/5xx.
	if e := resp.Error; e != nil {
		klog.RPC.Debug().Str("method", method).Int("code", e.Code).Str("message", e.Message).Msg("Node returned error")
		return &RPCError{Code: e.Code, Message: e.Message, Data: string(e.Data)}
	}
	if status != http.StatusOK {
		return &TransportError{Err: fmt.Errorf("http %d without error object", status)}
	}

	if result == nil {
		return nil
	}
	if len(resp.Result) == 0 || bytes.Equal(resp.Result, []byte("null")) {
		return ErrNoResult
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return &DecodeError{Method: method, Err: err}
	}
	return nil
}

// post sends body and returns the status and at most maxResponseSize bytes
// of the response.
func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.header.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
