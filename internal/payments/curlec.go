package payments

import (
	"context"
	"errors"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/razorpay/razorpay-go/utils"
)

// CurlecClient talks to the Curlec gateway (Razorpay Malaysia, same v1
// protocol). Amounts are sen, currency is always MYR. The sub-account is
// addressed per request via the X-Razorpay-Account header.
type CurlecClient struct {
	client    *razorpay.Client
	accountID string
}

func NewCurlecClient(keyID, keySecret, accountID string) *CurlecClient {
	return &CurlecClient{
		client:    razorpay.NewClient(keyID, keySecret),
		accountID: accountID,
	}
}

func (c *CurlecClient) headers() map[string]string {
	if c.accountID == "" {
		return nil
	}
	return map[string]string{"X-Razorpay-Account": c.accountID}
}

func (c *CurlecClient) CreateOrder(ctx context.Context, amountSen int64, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":   amountSen,
		"currency": "MYR",
		"receipt":  receipt,
		// Manual capture: authorize now, capture after the dispute window.
		"payment_capture": 0,
	}
	order, err := c.client.Order.Create(data, c.headers())
	if err != nil {
		return "", classify(err)
	}
	id, _ := order["id"].(string)
	return id, nil
}

func (c *CurlecClient) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	raw, err := c.client.Payment.Fetch(paymentID, nil, c.headers())
	if err != nil {
		return nil, classify(err)
	}
	p := &Payment{ID: paymentID}
	if v, ok := raw["order_id"].(string); ok {
		p.OrderID = v
	}
	if v, ok := raw["status"].(string); ok {
		p.Status = v
	}
	if v, ok := raw["amount"].(float64); ok {
		p.AmountSen = int64(v)
	}
	if v, ok := raw["amount_refunded"].(float64); ok {
		p.AmountRefundedSen = int64(v)
	}
	return p, nil
}

func (c *CurlecClient) Capture(ctx context.Context, paymentID string, amountSen int64) error {
	data := map[string]interface{}{"currency": "MYR"}
	_, err := c.client.Payment.Capture(paymentID, int(amountSen), data, c.headers())
	if err != nil {
		// A repeated capture of the same payment is success, not failure.
		if alreadyCaptured(err) {
			return nil
		}
		return classify(err)
	}
	return nil
}

func (c *CurlecClient) Refund(ctx context.Context, paymentID string, amountSen int64, reason, receipt string) (string, error) {
	data := map[string]interface{}{
		"speed":   "optimum",
		"receipt": receipt,
		"notes":   map[string]interface{}{"reason": reason},
	}
	refund, err := c.client.Payment.Refund(paymentID, int(amountSen), data, c.headers())
	if err != nil {
		return "", classify(err)
	}
	id, _ := refund["id"].(string)
	return id, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 the gateway puts in
// x-razorpay-signature over the raw body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	return utils.VerifyWebhookSignature(string(body), signature, secret)
}

// classify separates retryable gateway trouble from permanent rejections.
func classify(err error) error {
	var serverErr *rzperrors.ServerError
	if errors.As(err, &serverErr) {
		return &TransientError{Err: err}
	}
	var gatewayErr *rzperrors.GatewayError
	if errors.As(err, &gatewayErr) {
		return &TransientError{Err: err}
	}
	if strings.Contains(err.Error(), "timeout") ||
		strings.Contains(err.Error(), "connection") {
		return &TransientError{Err: err}
	}
	return err
}

func alreadyCaptured(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already") && strings.Contains(msg, "captur")
}

var _ Gateway = (*CurlecClient)(nil)
