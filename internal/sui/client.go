// Package sui contains a minimal Sui JSON-RPC client and ed25519 signing primitives.
package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// SUICoinType is the coin type of the native token.
const SUICoinType = "0x2::sui::SUI"

// ClockObjectID is the id of the shared system clock object.
const ClockObjectID = "0x6"

// ErrMalformedResponse is returned when node answers with something unexpected.
var ErrMalformedResponse = errors.New("malformed response")

// RPCError is a JSON-RPC error returned by node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error ...
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// Client is a Sui full node JSON-RPC client.
type Client struct {
	url  string
	http *http.Client
	id   uint64
}

// NewClient creates a new Client.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Call makes a JSON-RPC call and returns the result member.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (gjson.Result, error) {
	if params == nil {
		params = []interface{}{}
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      atomic.AddUint64(&c.id, 1),
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json", ErrMalformedResponse)
	}

	res := gjson.ParseBytes(data)
	if e := res.Get("error"); e.Exists() && e.Type != gjson.Null {
		return gjson.Result{}, &RPCError{
			Code:    int(e.Get("code").Int()),
			Message: e.Get("message").String(),
		}
	}

	result := res.Get("result")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: no result", ErrMalformedResponse)
	}

	return result, nil
}

// ChainIdentifier returns identifier of the network the node serves.
func (c *Client) ChainIdentifier(ctx context.Context) (string, error) {
	res, err := c.Call(ctx, "sui_getChainIdentifier")
	if err != nil {
		return "", err
	}

	return res.String(), nil
}

// Ping checks node availability.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ChainIdentifier(ctx)
	return err
}

// GetBalance returns total balance of coinType owned by owner in the smallest units.
func (c *Client) GetBalance(ctx context.Context, owner, coinType string) (uint64, error) {
	res, err := c.Call(ctx, "suix_getBalance", owner, coinType)
	if err != nil {
		return 0, err
	}

	total := res.Get("totalBalance")
	if !total.Exists() {
		return 0, fmt.Errorf("%w: no totalBalance", ErrMalformedResponse)
	}

	v, err := strconv.ParseUint(total.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad totalBalance %q", ErrMalformedResponse, total.String())
	}

	return v, nil
}

// MoveCall describes a Move function call transaction.
type MoveCall struct {
	Signer    string
	Package   string
	Module    string
	Function  string
	TypeArgs  []string
	Arguments []interface{}
	GasBudget uint64
}

// BuildMoveCall asks node to build an unsigned move call transaction and returns its bytes.
// Node selects gas coins and BCS-encodes pure arguments.
func (c *Client) BuildMoveCall(ctx context.Context, call MoveCall) ([]byte, error) {
	typeArgs := call.TypeArgs
	if typeArgs == nil {
		typeArgs = []string{}
	}

	res, err := c.Call(ctx, "unsafe_moveCall",
		call.Signer,
		call.Package,
		call.Module,
		call.Function,
		typeArgs,
		call.Arguments,
		nil,
		strconv.FormatUint(call.GasBudget, 10),
	)
	if err != nil {
		return nil, err
	}

	txBytes := res.Get("txBytes").String()
	if txBytes == "" {
		return nil, fmt.Errorf("%w: no txBytes", ErrMalformedResponse)
	}

	b, err := decodeBase64(txBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: bad txBytes: %s", ErrMalformedResponse, err)
	}

	return b, nil
}

// TransactionResult ...
type TransactionResult struct {
	Digest string
	Status string
	Error  string
}

// Succeeded returns true if transaction effects report success.
func (r TransactionResult) Succeeded() bool {
	return r.Status == "success"
}

// ExecuteTransaction submits signed transaction and waits for local execution.
func (c *Client) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures ...string) (*TransactionResult, error) {
	res, err := c.Call(ctx, "sui_executeTransactionBlock",
		encodeBase64(txBytes),
		signatures,
		map[string]bool{"showEffects": true},
		"WaitForLocalExecution",
	)
	if err != nil {
		return nil, err
	}

	out := &TransactionResult{
		Digest: res.Get("digest").String(),
		Status: res.Get("effects.status.status").String(),
		Error:  res.Get("effects.status.error").String(),
	}

	if out.Digest == "" {
		return nil, fmt.Errorf("%w: no digest", ErrMalformedResponse)
	}

	return out, nil
}

// BytesArg converts b to the JSON form node expects for a vector<u8> argument.
func BytesArg(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
