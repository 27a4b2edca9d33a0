// Package mpesa is the STK push client for the Daraja mobile-money API.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sacco-hub/internal/config"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
)

const (
	tokenPath     = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath   = "/mpesa/stkpush/v1/processrequest"
	timestampFmt  = "20060102150405"
	maxAccountRef = 12
)

// Client initiates STK push requests. Tokens are cached until shortly before expiry.
type Client struct {
	cfg         config.MPesaConfig
	callbackURL string
	auth        *retryablehttp.Client
	push        *retryablehttp.Client
	tokens      oauth2.TokenSource
	now         func() time.Time
}

// NewClient creates a new M-Pesa client
func NewClient(cfg config.MPesaConfig) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:         cfg,
		callbackURL: CallbackURL(cfg.CallbackURL, cfg.CallbackToken),
		auth:        newHTTPClient(cfg.Timeout, cfg.RetryMax),
		// a retried push can prompt the payer twice
		push:        newHTTPClient(cfg.Timeout, 0),
		now:         time.Now,
	}
	c.tokens = oauth2.ReuseTokenSource(nil, tokenSource{c: c})
	return c
}

func newHTTPClient(timeout time.Duration, retryMax int) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{}
	return rc
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// InitiateTransaction sends an STK push to the payer's phone and returns the
// CheckoutRequestID the callback will carry.
func (c *Client) InitiateTransaction(ctx context.Context, payer string, amount decimal.Decimal, reference string) (string, error) {
	// Daraja only accepts whole shillings; rounding here would charge more
	// than the deposit records
	if !amount.IsInteger() {
		return "", fmt.Errorf("%w: amount %s is not whole shillings", domain.ErrGatewayRejected, amount)
	}
	whole := amount.IntPart()
	if whole < 1 {
		return "", fmt.Errorf("%w: amount below minimum", domain.ErrGatewayRejected)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return "", err
	}

	phone := NormalizePhone(payer)
	ts := c.now().Format(timestampFmt)
	accountRef := reference
	if len(accountRef) > maxAccountRef {
		accountRef = accountRef[:maxAccountRef]
	}

	payload, err := json.Marshal(stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.PassKey, ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            whole,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   "Savings deposit",
	})
	if err != nil {
		return "", fmt.Errorf("encode stk push: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+stkPushPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create stk push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req.Request)

	resp, err := c.push.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close()

	var out stkPushResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(body, &out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("%w: unreadable response", domain.ErrGatewayRejected)
	}

	if resp.StatusCode != http.StatusOK || out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		msg := out.ErrorMessage
		if msg == "" {
			msg = out.ResponseDescription
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		logger.L().Warnw("⚠️ STK push rejected", "status", resp.StatusCode, "code", out.ErrorCode, "message", msg)
		return "", fmt.Errorf("%w: %s", domain.ErrGatewayRejected, msg)
	}

	logger.L().Infow("📲 STK push sent", "checkout", out.CheckoutRequestID, "amount", whole)
	return out.CheckoutRequestID, nil
}

// CallbackURL appends the shared callback token as the last path segment.
// The callback handler rejects requests whose segment does not match.
func CallbackURL(base, token string) string {
	base = strings.TrimRight(base, "/")
	if token == "" {
		return base
	}
	return base + "/" + url.PathEscape(token)
}

// Password builds the STK push password: base64(shortcode + passkey + timestamp)
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// NormalizePhone converts local formats (07XXXXXXXX, +2547XXXXXXXX) to 2547XXXXXXXX
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		phone = "254" + phone[1:]
	}
	return phone
}

// classify maps a transport error to a gateway error kind. An unreachable
// gateway is treated like one that never answered.
func classify(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
}

// tokenSource fetches client-credential tokens from the OAuth endpoint
type tokenSource struct {
	c *Client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	c := ts.c
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.auth.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: token request returned %d", domain.ErrGatewayRejected, resp.StatusCode)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
		return nil, fmt.Errorf("%w: unreadable token response", domain.ErrGatewayRejected)
	}

	expiresIn, err := strconv.Atoi(out.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3599
	}

	return &oauth2.Token{
		AccessToken: out.AccessToken,
		TokenType:   "Bearer",
		Expiry:      c.now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// leveledLogger routes retryablehttp logs to the application logger
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { logger.L().Errorw(msg, kv...) }
func (leveledLogger) Info(msg string, kv ...interface{})  { logger.L().Debugw(msg, kv...) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { logger.L().Debugw(msg, kv...) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { logger.L().Warnw(msg, kv...) }
