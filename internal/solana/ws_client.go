package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// SlotWatcher keeps the latest slot current through a slotSubscribe stream.
type SlotWatcher struct {
	endpoint string
	config   WSClientConfig
	log      logrus.FieldLogger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	latestSlot atomic.Int64
	observedAt atomic.Int64 // unix nanos
	subID      atomic.Int64

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

var _ SlotSource = (*SlotWatcher)(nil)

// NewSlotWatcher connects to endpoint and subscribes to slot updates.
// A nil config uses DefaultWSConfig; a nil logger uses the logrus standard logger.
func NewSlotWatcher(ctx context.Context, endpoint string, config *WSClientConfig, log logrus.FieldLogger) (*SlotWatcher, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	w := &SlotWatcher{
		endpoint: endpoint,
		config:   cfg,
		log:      log.WithField("component", "slot_watcher"),
		done:     make(chan struct{}),
	}

	if err := w.connect(ctx); err != nil {
		return nil, err
	}
	if err := w.subscribe(); err != nil {
		w.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.readLoop()

	w.wg.Add(1)
	go w.pingLoop()

	return w, nil
}

// LatestSlot returns the last slot reported by the node.
func (w *SlotWatcher) LatestSlot() (int64, time.Time, bool) {
	at := w.observedAt.Load()
	if at == 0 {
		return 0, time.Time{}, false
	}
	return w.latestSlot.Load(), time.Unix(0, at), true
}

func (w *SlotWatcher) connect(ctx context.Context) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	w.conn = conn
	return nil
}

func (w *SlotWatcher) subscribe() error {
	if w.closed.Load() {
		return fmt.Errorf("client closed")
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      w.requestID.Add(1),
		Method:  "slotSubscribe",
	}

	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("not connected")
	}

	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	if err := w.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the WebSocket connection.
func (w *SlotWatcher) Close() error {
	if w.closed.Swap(true) {
		return nil
	}

	close(w.done)

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.conn.Close()
	}
	w.connMu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *SlotWatcher) readLoop() {
	defer w.wg.Done()

	reconnectDelay := w.config.ReconnectDelay

	for !w.closed.Load() {
		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		if conn == nil {
			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if w.closed.Load() {
				return
			}

			if !w.reconnecting.Swap(true) {
				w.log.WithError(err).WithField("delay", reconnectDelay).Warn("slot stream dropped, reconnecting")
				go w.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > w.config.MaxReconnectDelay {
				reconnectDelay = w.config.MaxReconnectDelay
			}

			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = w.config.ReconnectDelay

		w.handleMessage(message)
	}
}

func (w *SlotWatcher) reconnect(delay time.Duration) {
	defer w.reconnecting.Store(false)

	if w.closed.Load() {
		return
	}

	select {
	case <-w.done:
		return
	case <-time.After(delay):
	}

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.connect(ctx); err != nil {
		return
	}
	if err := w.subscribe(); err != nil {
		w.log.WithError(err).Warn("slot resubscribe failed")
	}
}

func (w *SlotWatcher) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID != 0 && resp.Error == nil {
		w.subID.Store(resp.Result)
		return
	}

	var notif wsSlotNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "slotNotification" && notif.Params != nil {
		w.latestSlot.Store(notif.Params.Result.Slot)
		w.observedAt.Store(time.Now().UnixNano())
		return
	}

	if resp.Error != nil {
		w.log.WithFields(logrus.Fields{
			"code": resp.Error.Code,
			"msg":  resp.Error.Message,
		}).Warn("slot subscription error")
	}
}

func (w *SlotWatcher) pingLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.connMu.Lock()
			if w.conn != nil {
				w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
				_ = w.conn.WriteMessage(websocket.PingMessage, nil)
			}
			w.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Result  int64     `json:"result"` // subscription ID
	Error   *rpcError `json:"error,omitempty"`
}

type wsSlotNotification struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  *wsSlotParams `json:"params"`
}

type wsSlotParams struct {
	Subscription int64      `json:"subscription"`
	Result       wsSlotInfo `json:"result"`
}

type wsSlotInfo struct {
	Parent int64 `json:"parent"`
	Root   int64 `json:"root"`
	Slot   int64 `json:"slot"`
}
