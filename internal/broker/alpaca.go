package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// AlpacaBroker implements Broker against the Alpaca trading REST API.
type AlpacaBroker struct {
	BaseURL   string
	KeyID     string
	SecretKey string
	Client    *http.Client
}

// NewAlpacaBroker creates a broker with optional proxy support. baseURL is
// e.g. https://paper-api.alpaca.markets.
func NewAlpacaBroker(baseURL, keyID, secretKey, proxyURL string) *AlpacaBroker {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &AlpacaBroker{
		BaseURL:   baseURL,
		KeyID:     keyID,
		SecretKey: secretKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (b *AlpacaBroker) Name() string { return "alpaca" }

func (b *AlpacaBroker) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", b.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", b.SecretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "message").String()
		if msg == "" {
			msg = string(respBody)
		}
		return nil, fmt.Errorf("alpaca %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	return respBody, nil
}

// SubmitOrder places the order and returns once the venue has accepted it.
func (b *AlpacaBroker) SubmitOrder(ctx context.Context, order Order) (OrderAck, error) {
	if order.ClientOrderID == "" {
		order.ClientOrderID = uuid.NewString()
	}
	payload, err := json.Marshal(map[string]string{
		"symbol":          order.Symbol,
		"qty":             strconv.Itoa(order.Qty),
		"side":            order.Side,
		"type":            order.Type,
		"time_in_force":   order.TimeInForce,
		"client_order_id": order.ClientOrderID,
	})
	if err != nil {
		return OrderAck{}, fmt.Errorf("marshal order: %w", err)
	}

	body, err := b.do(ctx, http.MethodPost, "/v2/orders", payload)
	if err != nil {
		return OrderAck{}, fmt.Errorf("submit order: %w", err)
	}

	res := gjson.ParseBytes(body)
	ack := OrderAck{
		ID:            res.Get("id").String(),
		ClientOrderID: res.Get("client_order_id").String(),
		Status:        res.Get("status").String(),
		SubmittedAt:   res.Get("submitted_at").Time(),
	}
	switch ack.Status {
	case "rejected", "canceled", "expired":
		return ack, fmt.Errorf("submit order %s: status %s", ack.ID, ack.Status)
	}
	return ack, nil
}

// IsOpen queries the market clock.
func (b *AlpacaBroker) IsOpen(ctx context.Context) (bool, error) {
	body, err := b.do(ctx, http.MethodGet, "/v2/clock", nil)
	if err != nil {
		return false, fmt.Errorf("get clock: %w", err)
	}
	isOpen := gjson.GetBytes(body, "is_open")
	if !isOpen.Exists() {
		return false, fmt.Errorf("get clock: missing is_open")
	}
	return isOpen.Bool(), nil
}
