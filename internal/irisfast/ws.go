package irisfast

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var ErrNotConnected = errors.New("ws not connected")

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

type callbackEntry[T any] struct {
	id int
	fn T
}

// WebSocket keeps one Iris event stream open, reconnecting with backoff.
type WebSocket struct {
	url          string
	headers      HeaderProvider
	logger       *zap.Logger
	maxReconnect int
	pingInterval time.Duration

	mu    sync.Mutex
	conn  *websocket.Conn
	state WebSocketState

	writeMu sync.Mutex

	cbMu     sync.RWMutex
	nextCbID int
	msgCbs   []callbackEntry[MessageCallback]
	stateCbs []callbackEntry[StateCallback]

	rootCtx    context.Context
	rootCancel context.CancelFunc
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewWebSocket(url string, maxReconnect int, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		url:          url,
		logger:       logger,
		maxReconnect: maxReconnect,
		pingInterval: 30 * time.Second,
		state:        WSStateDisconnected,
		rootCtx:      ctx,
		rootCancel:   cancel,
		stopCh:       make(chan struct{}),
	}
}

// SetHeaderProvider injects headers into the handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) { ws.headers = h }

func (ws *WebSocket) State() WebSocketState {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.state
}

func (ws *WebSocket) Connected() bool { return ws.current() != nil }

func (ws *WebSocket) Connect(ctx context.Context) error {
	if s := ws.State(); s == WSStateConnected || s == WSStateConnecting {
		return nil
	}
	ws.setState(WSStateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := ws.dial(dialCtx)
	if err != nil {
		ws.setState(WSStateFailed)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, ws.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.handshakeHeader(),
	})
	if err != nil {
		return nil, err
	}
	// 보드 이미지는 큰 base64 프레임으로 들어옴
	conn.SetReadLimit(4 << 20)
	return conn, nil
}

func (ws *WebSocket) attach(conn *websocket.Conn) {
	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()
	ws.setState(WSStateConnected)
	ws.logger.Info("ws_connected", zap.String("url", ws.url))

	ws.wg.Add(2)
	go ws.listen(conn)
	go ws.pingLoop(conn)
}

func (ws *WebSocket) current() *websocket.Conn {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.conn
}

// drop closes conn if it is still the active connection and reports whether it was.
func (ws *WebSocket) drop(conn *websocket.Conn, reason string) bool {
	ws.mu.Lock()
	if ws.conn != conn {
		ws.mu.Unlock()
		return false
	}
	ws.conn = nil
	ws.mu.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	ws.setState(WSStateDisconnected)
	return true
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var msg Message
		if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
			if ws.stopping() {
				return
			}
			if ws.drop(conn, "reconnect") {
				ws.logger.Warn("ws_read_fail", zap.Error(err))
				ws.scheduleReconnect()
			}
			return
		}

		ws.cbMu.RLock()
		cbs := append([]callbackEntry[MessageCallback](nil), ws.msgCbs...)
		ws.cbMu.RUnlock()
		for _, cb := range cbs {
			cb.fn(&msg)
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-t.C:
		}
		if ws.current() != conn {
			return
		}
		ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
		err := conn.Ping(ctx)
		cancel()
		if err == nil {
			failures = 0
			continue
		}
		failures++
		if failures >= 2 {
			if !ws.stopping() && ws.drop(conn, "ping failure") {
				ws.logger.Warn("ws_ping_fail", zap.Error(err))
				ws.scheduleReconnect()
			}
			return
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnect <= 0 || ws.stopping() {
		return
	}
	ws.setState(WSStateReconnecting)

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		for attempt := 1; attempt <= ws.maxReconnect; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoff(attempt)):
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 10*time.Second)
			conn, err := ws.dial(ctx)
			cancel()
			if err != nil {
				ws.logger.Debug("ws_reconnect_fail", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			ws.attach(conn)
			return
		}
		ws.setState(WSStateFailed)
	}()
}

// WriteJSON sends one frame; concurrent callers are serialised.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	conn := ws.current()
	if conn == nil {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	return wsjson.Write(ctx, conn, v)
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	ws.nextCbID++
	ws.msgCbs = append(ws.msgCbs, callbackEntry[MessageCallback]{id: ws.nextCbID, fn: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	for i, cb := range ws.msgCbs {
		if cb.id == id {
			ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
			return
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, callbackEntry[StateCallback]{id: ws.nextCbID, fn: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			return
		}
	}
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.mu.Lock()
	ws.state = state
	ws.mu.Unlock()

	ws.cbMu.RLock()
	cbs := append([]callbackEntry[StateCallback](nil), ws.stateCbs...)
	ws.cbMu.RUnlock()
	for _, cb := range cbs {
		cb.fn(state)
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	if conn := ws.current(); conn != nil {
		ws.mu.Lock()
		ws.conn = nil
		ws.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	ws.rootCancel()

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(WSStateDisconnected)
		return nil
	}
}

func (ws *WebSocket) stopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) handshakeHeader() http.Header {
	hdr := http.Header{}
	if ws.headers == nil {
		return hdr
	}
	for k, v := range ws.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
