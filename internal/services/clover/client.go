package clover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"stocksync/internal/config"
	"stocksync/internal/logger"
)

const (
	DefaultPageSize = 100
	maxErrorBody    = 4 << 10
)

// ClientFactory hands out merchant-scoped clients that share one HTTP
// transport and one rate limiter per merchant.
type ClientFactory struct {
	config     config.CloverConfig
	httpClient *http.Client
	logger     *logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewClientFactory(cfg config.CloverConfig, logger *logger.Logger) *ClientFactory {
	return &ClientFactory{
		config:     cfg,
		httpClient: &http.Client{},
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// New returns a client bound to one merchant and access token.
func (f *ClientFactory) New(merchantID, accessToken string) *Client {
	return &Client{
		baseURL:     f.config.BaseURL(),
		merchantID:  merchantID,
		accessToken: accessToken,
		timeout:     f.config.RequestTimeout,
		httpClient:  f.httpClient,
		limiter:     f.limiter(merchantID),
		logger:      f.logger.With(zap.String("merchant_id", merchantID)),
	}
}

func (f *ClientFactory) limiter(merchantID string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[merchantID]
	if !ok {
		limit := rate.Limit(f.config.RateLimit)
		if f.config.RateLimit <= 0 {
			limit = rate.Inf
		}
		burst := int(f.config.RateLimit)
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(limit, burst)
		f.limiters[merchantID] = l
	}
	return l
}

// Client talks to the Clover REST API on behalf of one merchant.
type Client struct {
	baseURL     string
	merchantID  string
	accessToken string
	timeout     time.Duration
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *logger.Logger
}

func (c *Client) MerchantID() string {
	return c.merchantID
}

func (c *Client) GetMerchant(ctx context.Context) (*Merchant, error) {
	var merchant Merchant
	if err := c.do(ctx, "get merchant", http.MethodGet, c.merchantPath(""), nil, nil, &merchant); err != nil {
		return nil, err
	}
	return &merchant, nil
}

// FetchCatalogPage returns up to limit items starting at offset, with stock
// and categories expanded.
func (c *Client) FetchCatalogPage(ctx context.Context, offset, limit int) (*ItemsPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("expand", "itemStock,categories")

	var page ItemsPage
	if err := c.do(ctx, "fetch items", http.MethodGet, c.merchantPath("/items"), query, nil, &page); err != nil {
		return nil, err
	}
	page.HasMore = len(page.Items) == limit
	return &page, nil
}

func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	var item Item
	if err := c.do(ctx, "get item", http.MethodGet, c.merchantPath("/items/"+url.PathEscape(itemID)), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateItem(ctx context.Context, payload ItemPayload) (*Item, error) {
	var item Item
	if err := c.do(ctx, "create item", http.MethodPost, c.merchantPath("/items"), nil, payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem overwrites an existing item. Clover uses POST for updates.
func (c *Client) UpdateItem(ctx context.Context, itemID string, payload ItemPayload) (*Item, error) {
	var item Item
	if err := c.do(ctx, "update item", http.MethodPost, c.merchantPath("/items/"+url.PathEscape(itemID)), nil, payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	return c.do(ctx, "set item stock", http.MethodPost, c.merchantPath("/item_stocks/"+url.PathEscape(itemID)), nil, itemStockPayload{Quantity: quantity}, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var list CategoryList
	if err := c.do(ctx, "list categories", http.MethodGet, c.merchantPath("/categories"), nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Elements, nil
}

func (c *Client) merchantPath(suffix string) string {
	return "/v3/merchants/" + url.PathEscape(c.merchantID) + suffix
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &RemoteCatalogError{Op: op, Err: err}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RemoteCatalogError{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &RemoteCatalogError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Clover request failed", zap.String("op", op), zap.Error(err))
		return &RemoteCatalogError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Clover request rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return &RemoteCatalogError{Op: op, Status: resp.StatusCode, Body: remoteReason(raw)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteCatalogError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
