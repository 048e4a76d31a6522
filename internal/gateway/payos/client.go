package payos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Tinii1601/DA-SE347/internal/gateway"
	apperrors "github.com/Tinii1601/DA-SE347/pkg/errors"
	"github.com/Tinii1601/DA-SE347/pkg/httpclient"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api-merchant.payos.vn"

	paymentRequestsPath = "/v2/payment-requests"

	// codeSuccess is the gateway's "everything is fine" response code,
	// used both in API envelopes and webhook payloads.
	codeSuccess = "00"
)

// Config holds the PayOS merchant credentials and endpoint.
type Config struct {
	BaseURL     string `env:"PAYOS_BASE_URL" envDefault:"https://api-merchant.payos.vn"`
	ClientID    string `env:"PAYOS_CLIENT_ID"`
	APIKey      string `env:"PAYOS_API_KEY"`
	ChecksumKey string `env:"PAYOS_CHECKSUM_KEY"`
}

// Client implements gateway.Gateway against the PayOS hosted checkout API.
// All outbound calls go through a circuit breaker so a gateway outage fails
// fast instead of holding checkout requests open.
type Client struct {
	cfg    Config
	http   *httpclient.CircuitBreakerClient
	logger *slog.Logger
}

// New creates a PayOS client.
func New(cfg Config, httpClient *httpclient.CircuitBreakerClient, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
	}
}

// envelope is the common response wrapper. The gateway reports its own
// result code inside a 200 response; HTTP status alone is not enough.
type envelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

type itemData struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type createLinkRequest struct {
	OrderCode   int64      `json:"orderCode"`
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	Items       []itemData `json:"items"`
	CancelURL   string     `json:"cancelUrl"`
	ReturnURL   string     `json:"returnUrl"`
	Signature   string     `json:"signature"`
}

type createLinkData struct {
	OrderCode     int64  `json:"orderCode"`
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	Status        string `json:"status"`
}

type linkInfoData struct {
	ID        string `json:"id"`
	OrderCode int64  `json:"orderCode"`
	Status    string `json:"status"`
}

// CreatePaymentLink creates a hosted checkout session. The order total is
// sent as one summary line item; itemized lines would not add up once a
// discount is applied and the gateway rejects mismatched totals.
func (c *Client) CreatePaymentLink(ctx context.Context, input *gateway.CreateLinkInput) (*gateway.PaymentLink, error) {
	reqBody := createLinkRequest{
		OrderCode:   input.OrderCode,
		Amount:      input.Amount,
		Description: input.Description,
		Items: []itemData{
			{Name: input.Description, Quantity: 1, Price: input.Amount},
		},
		CancelURL: input.CancelURL,
		ReturnURL: input.ReturnURL,
		Signature: signCreateRequest(c.cfg.ChecksumKey, input.OrderCode, input.Amount, input.Description, input.CancelURL, input.ReturnURL),
	}

	var data createLinkData
	if err := c.post(ctx, paymentRequestsPath, reqBody, &data); err != nil {
		return nil, err
	}

	status := data.Status
	if status == "" {
		status = gateway.LinkStatusPending
	}
	return &gateway.PaymentLink{
		OrderCode:     data.OrderCode,
		TransactionID: data.PaymentLinkID,
		CheckoutURL:   data.CheckoutURL,
		Status:        status,
	}, nil
}

// GetPaymentLink fetches the session keyed by order code. The gateway's
// info endpoint does not return the checkout URL, only the link state.
func (c *Client) GetPaymentLink(ctx context.Context, orderCode int64) (*gateway.PaymentLink, error) {
	url := fmt.Sprintf("%s%s/%d", c.cfg.BaseURL, paymentRequestsPath, orderCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("payos: create request: %w", err)
	}
	c.authHeaders(req)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, apperrors.GatewayUnavailable(fmt.Sprintf("payos: get payment link: %v", err))
	}
	var data linkInfoData
	if err := c.decode(resp, &data); err != nil {
		return nil, err
	}
	return &gateway.PaymentLink{
		OrderCode:     data.OrderCode,
		TransactionID: data.ID,
		Status:        data.Status,
	}, nil
}

// CancelPaymentLink cancels the session so the hosted page stops accepting
// payment.
func (c *Client) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error {
	path := fmt.Sprintf("%s/%d/cancel", paymentRequestsPath, orderCode)
	body := map[string]string{"cancellationReason": reason}

	var data linkInfoData
	return c.post(ctx, path, body, &data)
}

// VerifyWebhook checks the HMAC signature over the payload's data object
// and returns the decoded event. Numbers are decoded as json.Number so the
// signed string reproduces the gateway's own formatting exactly.
func (c *Client) VerifyWebhook(payload []byte) (*gateway.WebhookEvent, error) {
	var wrapper struct {
		Data      map[string]any `json:"data"`
		Signature string         `json:"signature"`
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&wrapper); err != nil {
		return nil, apperrors.InvalidInput("payos: malformed webhook payload")
	}
	if wrapper.Signature == "" || wrapper.Data == nil {
		return nil, apperrors.InvalidInput("payos: webhook payload missing data or signature")
	}

	expected := signWebhookData(c.cfg.ChecksumKey, wrapper.Data)
	if !signaturesEqual(expected, wrapper.Signature) {
		return nil, apperrors.InvalidInput("payos: webhook signature mismatch")
	}

	event := &gateway.WebhookEvent{
		OrderCode:     numberField(wrapper.Data, "orderCode"),
		Amount:        numberField(wrapper.Data, "amount"),
		TransactionID: stringField(wrapper.Data, "paymentLinkId"),
		Reference:     stringField(wrapper.Data, "reference"),
		Success:       stringField(wrapper.Data, "code") == codeSuccess,
	}
	if event.OrderCode == 0 {
		return nil, apperrors.InvalidInput("payos: webhook payload missing order code")
	}
	return event, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("payos: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("payos: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authHeaders(req)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return apperrors.GatewayUnavailable(fmt.Sprintf("payos: %v", err))
	}
	return c.decode(resp, out)
}

// decode consumes the response, unwraps the envelope and checks the
// gateway result code. The body is always closed.
func (c *Client) decode(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "payos")
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperrors.GatewayUnavailable(fmt.Sprintf("payos: decode response: %v", err))
	}
	if env.Code != codeSuccess {
		return apperrors.GatewayUnavailable(fmt.Sprintf("payos: gateway returned code %s: %s", env.Code, env.Desc))
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.GatewayUnavailable(fmt.Sprintf("payos: decode response data: %v", err))
		}
	}
	return nil
}

func (c *Client) authHeaders(req *http.Request) {
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-api-key", c.cfg.APIKey)
}

func numberField(data map[string]any, key string) int64 {
	n, ok := data[key].(json.Number)
	if !ok {
		return 0
	}
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return v
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
