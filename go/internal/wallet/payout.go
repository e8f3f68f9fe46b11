package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/arena/go/clients"
)

// ErrPayoutRejected is returned when the payout service answers without a
// transfer.
var ErrPayoutRejected = errors.New("payout rejected")

const payoutEndpoint = "/payouts"

// PayoutRequest asks the payout service to transfer Lamports to Recipient.
// Reference makes the request idempotent on the service side.
type PayoutRequest struct {
	Recipient string          `json:"recipient"`
	Lamports  int64           `json:"lamports"`
	AmountSOL decimal.Decimal `json:"amount_sol"`
	Reference string          `json:"reference"`
}

type PayoutResult struct {
	Success   bool   `json:"success"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// PayoutClient posts payouts to the custodial payout service.
type PayoutClient struct {
	*clients.BaseClient
}

func NewPayoutClient(baseURL, apiKey string) *PayoutClient {
	return &PayoutClient{BaseClient: clients.NewBaseClient(baseURL,
		clients.WithHeader(JsonHeader, JsonContentType),
		clients.WithBearer(apiKey),
	)}
}

func (c *PayoutClient) Pay(ctx context.Context, req PayoutRequest) (*PayoutResult, error) {
	if req.Lamports <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrPayoutRejected)
	}
	req.AmountSOL = ToSOL(req.Lamports)

	var res PayoutResult
	if err := c.PostJSON(ctx, payoutEndpoint, req, &res); err != nil {
		return nil, fmt.Errorf("payout: %w", err)
	}
	if !res.Success || res.Signature == "" {
		return &res, fmt.Errorf("%w: %s", ErrPayoutRejected, res.Message)
	}
	return &res, nil
}

// PayPrize transfers a session prize and returns the transaction signature.
func (c *PayoutClient) PayPrize(ctx context.Context, recipient string, lamports int64, reference string) (string, error) {
	res, err := c.Pay(ctx, PayoutRequest{
		Recipient: recipient,
		Lamports:  lamports,
		Reference: reference,
	})
	if err != nil {
		return "", err
	}
	log.Info().
		Str("recipient", recipient).
		Int64("lamports", lamports).
		Str("reference", reference).
		Str("signature", res.Signature).
		Msg("prize paid out")
	return res.Signature, nil
}
