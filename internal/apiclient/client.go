// Package apiclient is the HTTP client of the POS backend used by the dashboard.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/niangadou-pos/internal/model"
)

// Base addresses selected by build mode.
const (
	DevURL  = "http://localhost:3001"
	ProdURL = "https://inaback-production.up.railway.app"
)

// BaseURL returns the backend address for a build mode.
func BaseURL(mode string) string {
	if mode == "production" {
		return ProdURL
	}
	return DevURL
}

// TransportError means the request never produced a usable response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error  { return e.Err }

// ServerError is a non-2xx response with a JSON body. Message is the body's
// "error" field and Legacy its "message" field; either may be empty.
type ServerError struct {
	Status  int
	Message string
	Legacy  string
}

// Text returns Message, else Legacy.
func (e *ServerError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Legacy
}

func (e *ServerError) Error() string {
	if e.Text() == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Text())
}

// Client talks to the REST backend. It never retries.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken attaches a bearer token to every request.
func WithToken(tok string) Option { return func(c *Client) { c.token = tok } }

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// New returns a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Login posts credentials to /api/login.
func (c *Client) Login(ctx context.Context, username, password string) (model.LoginResponse, error) {
	var out model.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", model.LoginRequest{Username: username, Password: password}, &out)
	return out, err
}

// Clients lists customers.
func (c *Client) Clients(ctx context.Context) ([]model.Client, error) {
	var out []model.Client
	err := c.do(ctx, http.MethodGet, "/api/clients", nil, &out)
	return out, err
}

// Products lists every inventory unit, unfiltered.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := c.do(ctx, http.MethodGet, "/api/products", nil, &out)
	return out, err
}

// SearchProduct looks a unit up by IMEI. A miss returns an empty slice.
func (c *Client) SearchProduct(ctx context.Context, imei string) ([]model.Product, error) {
	var out []model.Product
	err := c.do(ctx, http.MethodGet, "/api/products?imei="+url.QueryEscape(imei), nil, &out)
	return out, err
}

// CreateSale posts a sale to /api/ventes.
func (c *Client) CreateSale(ctx context.Context, req model.SaleRequest) (model.SaleResult, error) {
	var out model.SaleResult
	err := c.do(ctx, http.MethodPost, "/api/ventes", req, &out)
	return out, err
}

// Sales lists the sales history, newest first.
func (c *Client) Sales(ctx context.Context, debtsOnly bool) ([]model.Sale, error) {
	path := "/api/ventes"
	if debtsOnly {
		path += "?dettes=true"
	}
	var out []model.Sale
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Sale fetches one sale with its lines.
func (c *Client) Sale(ctx context.Context, id int64) (model.Sale, error) {
	var out model.Sale
	err := c.do(ctx, http.MethodGet, "/api/ventes/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// Report fetches the summary for the days from..to, formatted YYYY-MM-DD.
func (c *Client) Report(ctx context.Context, from, to string) (model.Report, error) {
	var out model.Report
	err := c.do(ctx, http.MethodGet, "/api/rapport?"+rangeQuery(from, to), nil, &out)
	return out, err
}

// ExportReport streams the xlsx export of from..to into w.
func (c *Client) ExportReport(ctx context.Context, from, to string, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/rapport/export?"+rangeQuery(from, to), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "GET /api/rapport/export"); err != nil {
		return 0, err
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: "read export", Err: err}
	}
	return n, nil
}

func rangeQuery(from, to string) string {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, method+" "+path); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	return resp, nil
}

// checkStatus turns a non-2xx response into an error. A body that is not JSON
// (an HTML gateway page, an empty reply) is a TransportError.
func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var body model.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("status %d: decode error body: %w", resp.StatusCode, err)}
	}
	return &ServerError{Status: resp.StatusCode, Message: body.Error, Legacy: body.Message}
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsServer extracts a ServerError from err.
func AsServer(err error) (*ServerError, bool) {
	var se *ServerError
	ok := errors.As(err, &se)
	return se, ok
}
