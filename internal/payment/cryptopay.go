package payment

import (
	"bytes"
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

const (
	// DefaultBaseURL is the mainnet Crypto Pay endpoint.
	DefaultBaseURL = "https://pay.crypt.bot/api"
	// DefaultRequestTimeout bounds one provider call.
	DefaultRequestTimeout = 10 * time.Second

	tokenHeader = "Crypto-Pay-API-Token"
)

// Client is the payment provider.
type Client interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
}

// CryptoPayClient talks to a Crypto Pay compatible HTTP API.
type CryptoPayClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Timeout time.Duration
}

// NewCryptoPayClient returns a client with default endpoint and timeout.
func NewCryptoPayClient(baseURL, token string, httpClient *http.Client) *CryptoPayClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &CryptoPayClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    httpClient,
		Timeout: DefaultRequestTimeout,
	}
}

type apiEnvelope struct {
	OK     *bool           `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"error"`
}

type apiInvoice struct {
	InvoiceID     int64  `json:"invoice_id"`
	Status        string `json:"status"`
	Payload       string `json:"payload"`
	PayURL        string `json:"pay_url"`
	BotInvoiceURL string `json:"bot_invoice_url"`
}

type createInvoiceBody struct {
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	Payload     string `json:"payload,omitempty"`
	PaidBtnName string `json:"paid_btn_name,omitempty"`
	PaidBtnURL  string `json:"paid_btn_url,omitempty"`
}

func (c *CryptoPayClient) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	body, err := json.Marshal(createInvoiceBody{
		Asset:       req.Asset,
		Amount:      req.Amount,
		Description: req.Description,
		Payload:     req.Payload,
		PaidBtnName: req.PaidBtnName,
		PaidBtnURL:  req.PaidBtnURL,
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("payment: encode createInvoice: %w", err)
	}
	var inv apiInvoice
	if err := c.call(ctx, http.MethodPost, "createInvoice", nil, body, &inv); err != nil {
		return Invoice{}, err
	}
	out, err := inv.toInvoice()
	if err != nil {
		return Invoice{}, err
	}
	if out.PayURL == "" {
		return Invoice{}, fmt.Errorf("%w: createInvoice: missing pay url", ErrMalformedResponse)
	}
	return out, nil
}

func (c *CryptoPayClient) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	q := url.Values{"invoice_ids": []string{strconv.FormatInt(id, 10)}}
	var list struct {
		Items *[]apiInvoice `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "getInvoices", q, nil, &list); err != nil {
		return Invoice{}, err
	}
	if list.Items == nil {
		return Invoice{}, fmt.Errorf("%w: getInvoices: missing items", ErrMalformedResponse)
	}
	for _, item := range *list.Items {
		if item.InvoiceID == id {
			return item.toInvoice()
		}
	}
	return Invoice{}, fmt.Errorf("%w: %d", ErrInvoiceNotFound, id)
}

func (c *CryptoPayClient) call(ctx context.Context, method, apiMethod string, query url.Values, body []byte, out any) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.BaseURL + "/" + apiMethod
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("payment: %s: build request: %w", apiMethod, err)
	}
	req.Header.Set(tokenHeader, c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("payment: %s: %w", apiMethod, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("payment: %s: read body: %w", apiMethod, err)
	}

	var env apiEnvelope
	decodeErr := json.Unmarshal(raw, &env)
	if decodeErr == nil && env.OK != nil && !*env.OK {
		apiErr := &APIError{Method: apiMethod, Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Name = env.Error.Name
		}
		return apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: apiMethod, Status: resp.StatusCode}
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, apiMethod, decodeErr)
	}
	if env.OK == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return fmt.Errorf("%w: %s: missing ok/result", ErrMalformedResponse, apiMethod)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, apiMethod, err)
	}
	return nil
}

func (a apiInvoice) toInvoice() (Invoice, error) {
	if a.InvoiceID <= 0 {
		return Invoice{}, fmt.Errorf("%w: missing invoice_id", ErrMalformedResponse)
	}
	if strings.TrimSpace(a.Status) == "" {
		return Invoice{}, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	}
	payURL := a.BotInvoiceURL
	if payURL == "" {
		payURL = a.PayURL
	}
	return Invoice{
		ID:      a.InvoiceID,
		Status:  ParseStatus(a.Status),
		Payload: a.Payload,
		PayURL:  payURL,
	}, nil
}
