package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LerianStudio/lib-payscore/payscore"
	"github.com/LerianStudio/lib-payscore/payscore/backoff"
	"github.com/LerianStudio/lib-payscore/payscore/circuitbreaker"
	"github.com/LerianStudio/lib-payscore/payscore/log"
	"github.com/LerianStudio/lib-payscore/payscore/opentelemetry"
	"github.com/LerianStudio/lib-payscore/payscore/security"
	"github.com/LerianStudio/lib-payscore/payscore/signature"
	"github.com/LerianStudio/lib-payscore/payscore/signstring"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	schemeRSA  = "WECHATPAY2-SHA256-RSA2048"
	schemeHMAC = "WECHATPAY2-SHA256-HMAC"

	userAgent       = "lib-payscore"
	maxResponseSize = 4 << 20
)

// Verifier checks the signature headers of a gateway response against its raw body.
type Verifier interface {
	VerifyResponse(ctx context.Context, header http.Header, body []byte) error
}

// Options configures a Client. MchID and Signer are required; RSA signers
// also require SerialNo.
type Options struct {
	MchID      string
	SerialNo   string
	Signer     signature.Signer
	BaseURL    string
	HTTPClient *http.Client
	Verifier   Verifier
	Breakers   *circuitbreaker.Manager
	Retry      backoff.Policy
	Logger     log.Logger
	Tracer     trace.Tracer
	Production bool

	now   func() time.Time
	nonce func() string
}

// Response is a raw gateway reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client signs requests, sends them and verifies the replies.
type Client struct {
	mchID      string
	serialNo   string
	signer     signature.Signer
	baseURL    *url.URL
	httpClient *http.Client
	verifier   Verifier
	breakers   *circuitbreaker.Manager
	retry      backoff.Policy
	logger     log.Logger
	tracer     trace.Tracer
	production bool
	now        func() time.Time
	nonce      func() string
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	if opts.MchID == "" {
		return nil, fmt.Errorf("%w: merchant id is required", ErrInvalidOptions)
	}

	if opts.Signer == nil {
		return nil, fmt.Errorf("%w: signer is required", ErrInvalidOptions)
	}

	if opts.Signer.Mode() == signature.ModeRSA && opts.SerialNo == "" {
		return nil, fmt.Errorf("%w: certificate serial number is required for RSA signing", ErrInvalidOptions)
	}

	base := opts.BaseURL
	if base == "" {
		base = payscore.DefaultAPIBaseURL
	}

	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidOptions, base)
	}

	c := &Client{
		mchID:      opts.MchID,
		serialNo:   strings.ToUpper(opts.SerialNo),
		signer:     opts.Signer,
		baseURL:    baseURL,
		httpClient: opts.HTTPClient,
		verifier:   opts.Verifier,
		breakers:   opts.Breakers,
		retry:      opts.Retry,
		logger:     log.OrNop(opts.Logger).With(log.MchID(opts.MchID)),
		tracer:     opentelemetry.Tracer(opts.Tracer),
		production: opts.Production,
		now:        opts.now,
		nonce:      opts.nonce,
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if c.breakers == nil {
		c.breakers = circuitbreaker.NewManager(c.logger)
	}

	if c.retry == (backoff.Policy{}) {
		c.retry = backoff.DefaultPolicy()
	}

	if c.now == nil {
		c.now = time.Now
	}

	if c.nonce == nil {
		c.nonce = payscore.NewNonce
	}

	return c, nil
}

// NewFromConfig builds the signer from cfg, reading the private key file in
// RSA mode, and applies its timeout and retry settings on top of opts.
func NewFromConfig(cfg payscore.Config, opts Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.UsesRSA() {
		pemBytes, err := cfg.ReadPrivateKey()
		if err != nil {
			return nil, err
		}

		signer, err := signature.NewRSASigner(pemBytes)
		if err != nil {
			return nil, err
		}

		opts.Signer = signer
		opts.SerialNo = cfg.CertSerialNo
	} else {
		signer, err := signature.NewHMACSigner(cfg.APIKey)
		if err != nil {
			return nil, err
		}

		opts.Signer = signer
	}

	opts.MchID = cfg.MchID
	opts.BaseURL = cfg.APIBaseURL
	opts.Production = cfg.IsProduction()

	if opts.HTTPClient == nil && cfg.HTTPTimeoutSeconds > 0 {
		opts.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout()}
	}

	if opts.Retry == (backoff.Policy{}) {
		opts.Retry = backoff.DefaultPolicy()
		opts.Retry.MaxRetries = cfg.MaxRetries
	}

	return New(opts)
}

// SetVerifier installs the response verifier. It exists because the
// certificate store itself downloads through this client.
func (c *Client) SetVerifier(v Verifier) {
	c.verifier = v
}

// MchID returns the merchant id requests are signed for.
func (c *Client) MchID() string {
	return c.mchID
}

// Get sends a signed GET. query is encoded in sorted key order and signed as
// part of the path.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	return decode(resp, out)
}

// Post sends body as canonical JSON.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	resp, err := c.Do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}

	return decode(resp, out)
}

// Put sends body as canonical JSON.
func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	resp, err := c.Do(ctx, http.MethodPut, path, nil, body)
	if err != nil {
		return err
	}

	return decode(resp, out)
}

// GetUnverified sends a signed GET and returns the 2xx reply without checking
// its signature.
func (c *Client) GetUnverified(ctx context.Context, path string) ([]byte, http.Header, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil, false)
	if err != nil {
		return nil, nil, err
	}

	return resp.Body, resp.Header, nil
}

// Do sends a signed request and returns the verified 2xx reply. Non-2xx
// replies are returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	return c.do(ctx, method, path, query, body, true)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, verify bool) (*Response, error) {
	method = strings.ToUpper(method)

	ctx, span := c.tracer.Start(ctx, "payscore.client."+method)
	defer span.End()

	signedPath := signedURLPath(path, query)

	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", signedPath),
	)

	payload, err := signstring.RequestBody(method, body)
	if err != nil {
		opentelemetry.HandleSpanError(span, "failed to build request body", err)

		return nil, err
	}

	resp, err := c.send(ctx, method, signedPath, payload)
	if err != nil {
		opentelemetry.HandleSpanError(span, "gateway call failed", err)
		log.SafeError(c.logger, ctx, "payscore gateway call failed", err, c.production)

		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, resp.Header.Get(payscore.HeaderRequestID), resp.Body)
		opentelemetry.HandleSpanError(span, log.SanitizeExternalResponse(resp.StatusCode), apiErr)

		c.logger.Log(ctx, log.LevelWarn, "payscore gateway returned an error",
			log.String("path", signedPath), log.Int("status", resp.StatusCode),
			log.String("code", apiErr.Code), log.RequestID(apiErr.RequestID))

		return nil, apiErr
	}

	if verify && c.verifier != nil {
		if err := c.verifier.VerifyResponse(ctx, resp.Header, resp.Body); err != nil {
			wrapped := fmt.Errorf("%w: %w", ErrResponseSignature, err)
			opentelemetry.HandleSpanError(span, "response signature rejected", wrapped)

			c.logger.Log(ctx, log.LevelError, "payscore response signature rejected",
				log.String("path", signedPath), log.SerialNo(resp.Header.Get(payscore.HeaderSerial)), log.Err(err))

			return nil, wrapped
		}
	}

	c.logBody(ctx, signedPath, resp)

	return resp, nil
}

// send signs and transmits the request, retrying gateway and network failures.
func (c *Client) send(ctx context.Context, method, signedPath, payload string) (*Response, error) {
	host := c.baseURL.Host

	var (
		lastErr  error
		lastResp *Response
	)

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff.SleepWithContext(ctx, c.retry.Delay(attempt-1)); err != nil {
				return nil, err
			}
		}

		authorization, err := c.authorization(method, signedPath, payload)
		if err != nil {
			return nil, err
		}

		var resp *Response

		_, err = c.breakers.Execute(ctx, host, func() (any, error) {
			r, sendErr := c.roundTrip(ctx, method, signedPath, payload, authorization)
			resp = r

			if sendErr != nil {
				return nil, sendErr
			}

			if r.StatusCode >= 500 {
				return nil, newAPIError(r.StatusCode, r.Header.Get(payscore.HeaderRequestID), r.Body)
			}

			return nil, nil
		})

		switch {
		case err == nil:
			return resp, nil
		case errors.Is(err, ErrCircuitOpen), ctx.Err() != nil:
			return nil, err
		}

		lastErr, lastResp = err, nil
		if resp != nil && resp.StatusCode >= 500 {
			lastResp = resp
		}

		c.logger.Log(ctx, log.LevelWarn, "payscore gateway attempt failed",
			log.String("path", signedPath), log.Int("attempt", attempt+1), log.Err(err))
	}

	if lastResp != nil {
		return lastResp, nil
	}

	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, signedPath, payload, authorization string) (*Response, error) {
	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+signedPath, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	opentelemetry.InjectHTTPContext(ctx, req.Header)

	started := c.now()

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Log(ctx, log.LevelDebug, "payscore gateway call",
		log.String("method", method), log.String("path", signedPath),
		log.Int("status", httpResp.StatusCode), log.Duration("elapsed", c.now().Sub(started)))

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

// authorization signs one attempt with a fresh timestamp and nonce.
func (c *Client) authorization(method, signedPath, payload string) (string, error) {
	ts := payscore.Timestamp(c.now())
	nonce := c.nonce()

	signString, err := signstring.BuildRequest(signstring.Request{
		Method:    method,
		Path:      signedPath,
		Timestamp: ts,
		Nonce:     nonce,
		Body:      payload,
	})
	if err != nil {
		return "", err
	}

	sig, err := c.signer.Sign(signString)
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}

	if c.signer.Mode() == signature.ModeHMAC {
		return fmt.Sprintf(`%s mchid="%s",nonce_str="%s",signature="%s",timestamp="%s"`,
			schemeHMAC, c.mchID, nonce, sig.Value, ts), nil
	}

	return fmt.Sprintf(`%s mchid="%s",nonce_str="%s",signature="%s",timestamp="%s",serial_no="%s"`,
		schemeRSA, c.mchID, nonce, sig.Value, ts, c.serialNo), nil
}

func (c *Client) logBody(ctx context.Context, path string, resp *Response) {
	if !c.logger.Enabled(log.LevelDebug) || len(resp.Body) == 0 {
		return
	}

	var doc any
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return
	}

	c.logger.Log(ctx, log.LevelDebug, "payscore gateway response",
		log.String("path", path), log.Any("body", security.Redact(doc)))
}

// signedURLPath joins path and the sorted query string.
func signedURLPath(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if len(query) == 0 {
		return path
	}

	return path + "?" + query.Encode()
}

func decode(resp *Response, out any) error {
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
