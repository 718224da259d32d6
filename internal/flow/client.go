// internal/flow/client.go
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Gateway status codes as reported by payment/getStatus.
const (
	StatusPending   = 0
	StatusPaid      = 1
	StatusCancelled = 2
	StatusRejected  = 3
)

const defaultTimeout = 15 * time.Second

type Config struct {
	APIKey      string
	SecretKey   string
	Environment string // "sandbox" or "production"
	Timeout     time.Duration
}

// Client talks to the Flow payment API. All requests are signed with the
// shared secret per the canonicalization in signature.go.
type Client struct {
	config  Config
	baseURL string
	http    *http.Client
}

type PaymentOrder struct {
	CommerceOrder   string
	Subject         string
	Amount          int64
	Email           string
	Currency        string
	URLReturn       string
	URLConfirmation string
	PaymentMethod   int
	Optional        map[string]string
}

type PaymentResponse struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	FlowOrder int64  `json:"flowOrder"`
}

// RedirectURL is where the payer must be sent to complete the payment.
func (r *PaymentResponse) RedirectURL() string {
	return fmt.Sprintf("%s?token=%s", r.URL, r.Token)
}

// PaymentData is the gateway's settlement record. A non-empty Date is proof of
// completed funds transfer and outranks the numeric status code.
type PaymentData struct {
	Date      string  `json:"date"`
	Media     int     `json:"media"`
	MediaName string  `json:"mediaName"`
	Number    string  `json:"number"`
	Receipt   string  `json:"receipt"`
	Amount    float64 `json:"amount"`
}

type PendingInfo struct {
	Media int    `json:"media"`
	Date  string `json:"date"`
}

type PaymentStatus struct {
	Status        int          `json:"status"`
	FlowOrder     int64        `json:"flowOrder"`
	CommerceOrder string       `json:"commerceOrder"`
	RequestDate   string       `json:"requestDate"`
	StatusDate    string       `json:"statusDate"`
	Amount        float64      `json:"amount"`
	Currency      string       `json:"currency"`
	Payer         string       `json:"payer"`
	PaymentData   *PaymentData `json:"paymentData"`
	PendingInfo   *PendingInfo `json:"pending_info"`
}

// Settled reports whether the gateway recorded a completed funds transfer,
// regardless of the coarse status code.
func (s *PaymentStatus) Settled() bool {
	return s.PaymentData != nil && s.PaymentData.Date != ""
}

type RefundRequest struct {
	Token   string
	Amount  int64
	Comment string
}

type RefundStatus struct {
	RefundOrder int64   `json:"refundOrder"`
	Type        string  `json:"type"`
	Token       string  `json:"token"`
	FlowOrder   int64   `json:"flowOrder"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Status      int     `json:"status"`
}

func NewClient(config Config) *Client {
	baseURL := "https://sandbox.flow.cl/api"
	if config.Environment == "production" {
		baseURL = "https://www.flow.cl/api"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		config:  config,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(config Config, baseURL string) *Client {
	c := NewClient(config)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *Client) CreatePaymentOrder(ctx context.Context, order PaymentOrder) (*PaymentResponse, error) {
	if order.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	params := map[string]string{
		"commerceOrder": order.CommerceOrder,
		"subject":       order.Subject,
		"currency":      order.Currency,
		"amount":        strconv.FormatInt(order.Amount, 10),
		"email":         order.Email,
	}
	if params["currency"] == "" {
		params["currency"] = "CLP"
	}
	if order.URLConfirmation != "" {
		params["urlConfirmation"] = order.URLConfirmation
	}
	if order.URLReturn != "" {
		params["urlReturn"] = order.URLReturn
	}
	if order.PaymentMethod != 0 {
		params["paymentMethod"] = strconv.Itoa(order.PaymentMethod)
	}
	for k, v := range order.Optional {
		params[k] = v
	}

	var resp PaymentResponse
	if err := c.postForm(ctx, "/payment/create", params, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.URL == "" {
		return nil, fmt.Errorf("%w: payment/create response missing token or url", ErrProtocol)
	}
	return &resp, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, token string) (*PaymentStatus, error) {
	var status PaymentStatus
	if err := c.get(ctx, "/payment/getStatus", map[string]string{"token": token}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetPaymentStatusByCommerceOrder(ctx context.Context, commerceOrder string) (*PaymentStatus, error) {
	var status PaymentStatus
	if err := c.get(ctx, "/payment/getStatusByCommerceOrder", map[string]string{"commerceOrder": commerceOrder}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) CreateRefund(ctx context.Context, refund RefundRequest) (*RefundStatus, error) {
	params := map[string]string{"token": refund.Token}
	if refund.Amount > 0 {
		params["amount"] = strconv.FormatInt(refund.Amount, 10)
	}
	if refund.Comment != "" {
		params["comment"] = refund.Comment
	}

	var status RefundStatus
	if err := c.postForm(ctx, "/refund/create", params, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetRefundStatus(ctx context.Context, token string) (*RefundStatus, error) {
	var status RefundStatus
	if err := c.get(ctx, "/refund/getStatus", map[string]string{"token": token}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) CancelRefund(ctx context.Context, token string) (*RefundStatus, error) {
	var status RefundStatus
	if err := c.postForm(ctx, "/refund/cancel", map[string]string{"token": token}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// signed adds the apiKey and the computed signature to a parameter set.
func (c *Client) signed(params map[string]string) url.Values {
	full := make(map[string]string, len(params)+2)
	for k, v := range params {
		full[k] = v
	}
	full["apiKey"] = c.config.APIKey
	full[SignatureParam] = Sign(full, c.config.SecretKey)

	values := url.Values{}
	for k, v := range full {
		if v != "" {
			values.Set(k, v)
		}
	}
	return values
}

func (c *Client) postForm(ctx context.Context, path string, params map[string]string, out interface{}) error {
	body := c.signed(params).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("flow: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+c.signed(params).Encode(), nil)
	if err != nil {
		return fmt.Errorf("flow: building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("flow: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("flow: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
			body.Message = strings.TrimSpace(string(data))
		}
		return newAPIError(resp.StatusCode, body.Code, body.Message)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}
