package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

const resolveSuccess = "success"

type transactionEnvelope struct {
	Transaction *model.Transaction `json:"transaction"`
}

// CreatePayment opens a simulated deposit.
func (c *Client) CreatePayment(ctx context.Context, token string, amount int64) (*model.Transaction, error) {
	var raw json.RawMessage
	if _, err := c.send(ctx, http.MethodPost, token, "/api/payment/create", map[string]int64{"amount": amount}, &raw); err != nil {
		return nil, err
	}
	return decodeTransaction(raw)
}

// ResolvePayment marks a simulated deposit as paid.
func (c *Client) ResolvePayment(ctx context.Context, token, externalKey string) (*model.Transaction, error) {
	body := map[string]string{
		"externalTransactionKey": externalKey,
		"resolveType":            resolveSuccess,
	}
	var raw json.RawMessage
	if _, err := c.send(ctx, http.MethodPost, token, "/api/payment/resolve", body, &raw); err != nil {
		return nil, err
	}
	return decodeTransaction(raw)
}

// decodeTransaction accepts both {transaction: {...}} and a bare transaction.
func decodeTransaction(raw json.RawMessage) (*model.Transaction, error) {
	if len(raw) == 0 {
		return nil, ErrMalformedResponse
	}
	var wrapped transactionEnvelope
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Transaction != nil {
		return wrapped.Transaction, nil
	}
	var tx model.Transaction
	if err := json.Unmarshal(raw, &tx); err != nil || tx.ExternalTransactionKey == "" {
		return nil, ErrMalformedResponse
	}
	return &tx, nil
}
