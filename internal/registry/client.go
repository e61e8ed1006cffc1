package registry

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

	"github.com/vbonduro/loteamento/internal/domain"
)

// ErrRequestFailed is the only failure kind the registry client reports.
// Transport errors and non-2xx responses both wrap it.
var ErrRequestFailed = errors.New("registry request failed")

// StatusError carries the status code of a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: registry returned status %d", e.Method, e.Path, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrRequestFailed }

// Observer receives one call per completed request. status is 0 when the
// request never got a response.
type Observer interface {
	ObserveRegistryRequest(op string, status int, duration time.Duration)
}

const basePath = "/loteamentos"

// Client talks to the Plot Registry Service. It sets no timeout and never
// retries; callers bound requests through ctx if they need to.
type Client struct {
	baseURL  string
	client   *http.Client
	observer Observer
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// WithObserver sets the request observer and returns c.
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

func (c *Client) List(ctx context.Context) ([]domain.Block, error) {
	var blocks []domain.Block
	if err := c.do(ctx, "list", http.MethodGet, basePath, nil, &blocks); err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}
	return blocks, nil
}

// Create registers a new, empty block.
func (c *Client) Create(ctx context.Context, id string) (domain.Block, error) {
	var out domain.Block
	err := c.do(ctx, "create", http.MethodPost, basePath, domain.Block{ID: id, Lots: []domain.Lot{}}, &out)
	return out, err
}

// Replace posts the whole block document, overwriting the stored one.
func (c *Client) Replace(ctx context.Context, b domain.Block) (domain.Block, error) {
	if b.Lots == nil {
		b.Lots = []domain.Lot{}
	}
	var out domain.Block
	err := c.do(ctx, "replace", http.MethodPost, basePath, b, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, blockPath(id), nil, nil)
}

func (c *Client) AddLot(ctx context.Context, id string, lot domain.Lot) (domain.Block, error) {
	var out domain.Block
	err := c.do(ctx, "add_lot", http.MethodPut, blockPath(id)+"/lotes", lot, &out)
	return out, err
}

func (c *Client) UpdateLotStatus(ctx context.Context, id string, number int, status domain.Status) (domain.Block, error) {
	body := struct {
		Status domain.Status `json:"status"`
	}{Status: status}
	var out domain.Block
	err := c.do(ctx, "update_status", http.MethodPut, lotPath(id, number), body, &out)
	return out, err
}

func (c *Client) UpdateOwner(ctx context.Context, id string, number int, owner domain.Owner) (domain.Block, error) {
	var out domain.Block
	err := c.do(ctx, "update_owner", http.MethodPut, lotPath(id, number)+"/proprietario", owner, &out)
	return out, err
}

func blockPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}

func lotPath(id string, number int) string {
	return blockPath(id) + "/lotes/" + strconv.Itoa(number)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal %s body: %v", ErrRequestFailed, op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", ErrRequestFailed, op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		return fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()
	c.observe(op, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrRequestFailed, op, err)
	}
	return nil
}

func (c *Client) observe(op string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRegistryRequest(op, status, time.Since(start))
	}
}
