// Package wallet talks to the chain RPC node and the payout service.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mcdev12/arena/go/clients"
)

const (
	JsonHeader      = "Content-Type"
	JsonContentType = "application/json"

	DefaultCommitment = "confirmed"
)

// ErrRPC wraps error objects returned by the node.
var ErrRPC = errors.New("rpc error")

// RPCClient is a JSON-RPC client for a Solana-style node.
type RPCClient struct {
	*clients.BaseClient
	commitment string
	nextID     atomic.Int64
}

func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		BaseClient: clients.NewBaseClient(endpoint, clients.WithHeader(JsonHeader, JsonContentType)),
		commitment: DefaultCommitment,
	}
}

// SetCommitment sets the commitment level balances are read at.
func (c *RPCClient) SetCommitment(commitment string) {
	c.commitment = commitment
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	var resp rpcResponse
	if err := c.PostJSON(ctx, "", req, &resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s: %d %s", ErrRPC, method, resp.Error.Code, resp.Error.Message)
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// GetBalance returns the balance of account in lamports.
func (c *RPCClient) GetBalance(ctx context.Context, account string) (int64, error) {
	var result struct {
		Value int64 `json:"value"`
	}
	err := c.call(ctx, "getBalance", []any{account, map[string]string{"commitment": c.commitment}}, &result)
	if err != nil {
		return 0, err
	}
	return result.Value, nil
}

type signatureStatus struct {
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

// ConfirmSignature reports whether the transaction with signature landed
// without error at confirmed or finalized commitment.
func (c *RPCClient) ConfirmSignature(ctx context.Context, signature string) (bool, error) {
	var result struct {
		Value []*signatureStatus `json:"value"`
	}
	params := []any{[]string{signature}, map[string]bool{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return false, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return false, nil
	}
	st := result.Value[0]
	if len(st.Err) > 0 && string(st.Err) != "null" {
		return false, nil
	}
	switch st.ConfirmationStatus {
	case "confirmed", "finalized":
		return true, nil
	default:
		return false, nil
	}
}
