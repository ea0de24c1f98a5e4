package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"quantgo/pkg/idgen"
)

const defaultHost = "https://api.binance.com"

// Client is a signed REST client for the exchange's spot order endpoints.
type Client struct {
	host      string
	accessKey string
	secretKey string
	http      *http.Client
	ids       *idgen.Generator
}

func NewClient(host, accessKey, secretKey string) *Client {
	if host == "" {
		host = defaultHost
	}
	return &Client{
		host:      host,
		accessKey: accessKey,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 10 * time.Second},
		ids:       idgen.New("x"),
	}
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *Client) signedRequest(ctx context.Context, method, path string, params url.Values, out any) error {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, c.host+path+"?"+query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.accessKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return fmt.Errorf("%s %s: code %d: %s", method, path, apiErr.Code, apiErr.Msg)
		}
		return fmt.Errorf("%s %s: http %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// OpenOrders lists all currently open orders for symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]OrderRecord, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var recs []OrderRecord
	if err := c.signedRequest(ctx, http.MethodGet, "/api/v3/openOrders", params, &recs); err != nil {
		return nil, fmt.Errorf("get open orders: %w", err)
	}
	return recs, nil
}

// CreateOrder places an order and returns the exchange-assigned order id.
// A market order must not carry a price. An empty clientOrderID gets a
// generated one.
func (c *Client) CreateOrder(ctx context.Context, symbol, side, orderType string,
	price, quantity decimal.Decimal, clientOrderID string) (string, error) {

	if orderType == "MARKET" && !price.IsZero() {
		return "", fmt.Errorf("create order: market order with price")
	}
	if clientOrderID == "" {
		clientOrderID = c.ids.Next()
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", orderType)
	params.Set("quantity", quantity.String())
	params.Set("newClientOrderId", clientOrderID)
	if orderType == "LIMIT" {
		params.Set("price", price.String())
		params.Set("timeInForce", "GTC")
	}

	var result struct {
		OrderID int64 `json:"orderId"`
	}
	if err := c.signedRequest(ctx, http.MethodPost, "/api/v3/order", params, &result); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	return strconv.FormatInt(result.OrderID, 10), nil
}

// CancelOrder revokes one order by exchange order id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	if err := c.signedRequest(ctx, http.MethodDelete, "/api/v3/order", params, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// CancelOpenOrders revokes every open order for symbol.
func (c *Client) CancelOpenOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	if err := c.signedRequest(ctx, http.MethodDelete, "/api/v3/openOrders", params, nil); err != nil {
		return fmt.Errorf("cancel open orders: %w", err)
	}
	return nil
}
