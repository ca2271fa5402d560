package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	wsEndpointPath   = "/callback/ws/endpoint"
	wsPingInterval   = 30 * time.Second
	wsReconnectMin   = time.Second
	wsReconnectMax   = 60 * time.Second
	wsReadLimitBytes = 1 << 20 // 1MB
)

// EventHandler receives the raw payload of one pushed event. Implementations
// must treat the payload as untrusted input and must not block: the read
// loop calls it inline between frames.
type EventHandler interface {
	HandleEvent(ctx context.Context, payload []byte) error
}

// WSClient maintains the Feishu long connection: endpoint discovery, dial,
// read loop, keepalive, and reconnect with capped backoff. Reconnection and
// handshake are entirely this client's concern; consumers only see event
// payloads.
type WSClient struct {
	appID     string
	appSecret string
	baseURL   string
	handler   EventHandler

	httpClient *http.Client
	cancel     context.CancelFunc
}

// NewWSClient creates a long-connection client that forwards event payloads
// to handler.
func NewWSClient(appID, appSecret, baseURL string, handler EventHandler) *WSClient {
	return &WSClient{
		appID:      appID,
		appSecret:  appSecret,
		baseURL:    baseURL,
		handler:    handler,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Start runs the connect/read/reconnect loop until ctx is cancelled or Stop
// is called. Blocks.
func (c *WSClient) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	backoff := wsReconnectMin

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("feishu ws connection lost, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}
		backoff *= 2
		if backoff > wsReconnectMax {
			backoff = wsReconnectMax
		}
	}
}

// Stop tears down the connection loop.
func (c *WSClient) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// runOnce performs one full connect-and-read cycle. Returns when the
// connection drops or ctx is cancelled.
func (c *WSClient) runOnce(ctx context.Context) error {
	wsURL, err := c.fetchEndpoint(ctx)
	if err != nil {
		return fmt.Errorf("fetch ws endpoint: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	conn.SetReadLimit(wsReadLimitBytes)
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	slog.Info("feishu ws connected")

	// Keepalive pings on a side goroutine; the read loop owns the connection
	// lifetime.
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.Ping(pingCtx); err != nil {
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		c.dispatchFrame(ctx, data)
	}
}

// wsFrame is the envelope Feishu pushes over the long connection.
type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// dispatchFrame decodes one frame and hands event payloads to the handler.
// Malformed frames are dropped with a debug log; the connection stays up.
func (c *WSClient) dispatchFrame(ctx context.Context, data []byte) {
	var frame wsFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		slog.Debug("feishu ws: unparseable frame", "error", err)
		return
	}

	switch frame.Type {
	case "event":
		if err := c.handler.HandleEvent(ctx, frame.Payload); err != nil {
			slog.Debug("feishu ws: event handler error", "error", err)
		}
	case "pong", "ping", "":
		// control traffic, nothing to do
	default:
		slog.Debug("feishu ws: unknown frame type", "type", frame.Type)
	}
}

// fetchEndpoint asks the open platform for this app's long-connection URL.
func (c *WSClient) fetchEndpoint(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"AppID":     c.appID,
		"AppSecret": c.appSecret,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+wsEndpointPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			URL string `json:"URL"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode endpoint response: %w", err)
	}
	if result.Code != 0 {
		return "", fmt.Errorf("endpoint error: code=%d msg=%s", result.Code, result.Msg)
	}
	if result.Data.URL == "" {
		return "", fmt.Errorf("endpoint response has no URL")
	}
	return result.Data.URL, nil
}
