package polyclob

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// WebSocket endpoint
	DefaultWSEndpoint = "wss://ws-subscriptions-clob.polymarket.com/ws"

	// Heartbeat interval; the server drops quiet connections
	HeartbeatInterval = 10 * time.Second

	// Reconnect settings
	DefaultReconnectInterval    = 5 * time.Second
	DefaultMaxReconnectAttempts = 10
)

// WebSocket channel types
const (
	ChannelUser   = "user"
	ChannelMarket = "market"
)

// wsAuth carries L2 credentials inside a user-channel subscription.
type wsAuth struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// wsSubscribe is the subscription payload for either channel.
type wsSubscribe struct {
	Auth     *wsAuth  `json:"auth,omitempty"`
	Type     string   `json:"type"`
	Markets  []string `json:"markets,omitempty"`
	AssetIDs []string `json:"assets_ids,omitempty"`
}

// BookUpdate is a book change pushed on the market channel.
type BookUpdate struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Market    string      `json:"market"`
	Timestamp string      `json:"timestamp"`
	Hash      string      `json:"hash"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
}

// UserOrderUpdate is an order lifecycle event pushed on the user channel.
type UserOrderUpdate struct {
	EventType   string `json:"event_type"`
	OrderID     string `json:"id"`
	Market      string `json:"market"`
	AssetID     string `json:"asset_id"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	SizeMatched string `json:"size_matched"`
	Status      string `json:"status"`
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp"`
}

// WSEventHandler is a callback for raw WebSocket messages
type WSEventHandler func(messageType int, data []byte)

// WSErrorHandler is a callback for WebSocket errors
type WSErrorHandler func(err error)

// WSConfig holds configuration for the WebSocket client
type WSConfig struct {
	Endpoint             string
	Channel              string // ChannelUser or ChannelMarket
	Credentials          *ApiCredentials
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	Logger               *zap.Logger
	OnMessage            WSEventHandler
	OnError              WSErrorHandler
	OnConnect            func()
	OnDisconnect         func()
}

// WSClient streams one channel of the CLOB WebSocket feed.
type WSClient struct {
	config           WSConfig
	connID           string
	conn             *websocket.Conn
	mu               sync.RWMutex
	isConnected      bool
	subscription     *wsSubscribe
	subMu            sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	heartbeatTicker  *time.Ticker
	reconnectAttempt int
}

// NewWSClient creates a new WebSocket client for one channel. The user
// channel requires credentials; the market channel is public.
func NewWSClient(config WSConfig) (*WSClient, error) {
	if config.Endpoint == "" {
		config.Endpoint = DefaultWSEndpoint
	}
	if config.Channel == "" {
		config.Channel = ChannelMarket
	}
	if config.Channel == ChannelUser && config.Credentials == nil {
		return nil, fmt.Errorf("user channel requires credentials")
	}
	if config.ReconnectInterval == 0 {
		config.ReconnectInterval = DefaultReconnectInterval
	}
	if config.MaxReconnectAttempts == 0 {
		config.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &WSClient{
		config: config,
		connID: uuid.NewString(),
	}, nil
}

// Connect establishes the WebSocket connection
func (ws *WSClient) Connect(ctx context.Context) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.isConnected {
		return nil
	}

	ws.ctx, ws.cancel = context.WithCancel(ctx)

	endpoint := fmt.Sprintf("%s/%s", ws.config.Endpoint, ws.config.Channel)
	conn, _, err := websocket.DefaultDialer.DialContext(ws.ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	ws.conn = conn
	ws.isConnected = true
	ws.reconnectAttempt = 0
	ws.config.Logger.Debug("websocket connected",
		zap.String("conn_id", ws.connID),
		zap.String("channel", ws.config.Channel))

	ws.startHeartbeat()
	go ws.readLoop()

	if ws.config.OnConnect != nil {
		go ws.config.OnConnect()
	}

	return nil
}

// Disconnect closes the WebSocket connection
func (ws *WSClient) Disconnect() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.isConnected {
		return nil
	}

	ws.isConnected = false

	if ws.cancel != nil {
		ws.cancel()
	}
	if ws.heartbeatTicker != nil {
		ws.heartbeatTicker.Stop()
	}

	var err error
	if ws.conn != nil {
		err = ws.conn.Close()
		ws.conn = nil
	}

	if ws.config.OnDisconnect != nil {
		go ws.config.OnDisconnect()
	}

	return err
}

// IsConnected returns the current connection status
func (ws *WSClient) IsConnected() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.isConnected
}

// SubscribeMarket subscribes to book updates for the given asset ids.
// Only valid on the market channel.
func (ws *WSClient) SubscribeMarket(assetIDs []string) error {
	if ws.config.Channel != ChannelMarket {
		return fmt.Errorf("market subscription on %s channel", ws.config.Channel)
	}

	msg := &wsSubscribe{
		Type:     ChannelMarket,
		AssetIDs: assetIDs,
	}
	if err := ws.sendMessage(msg); err != nil {
		return err
	}

	ws.subMu.Lock()
	ws.subscription = msg
	ws.subMu.Unlock()
	ws.config.Logger.Debug("subscribed",
		zap.String("conn_id", ws.connID),
		zap.String("channel", ChannelMarket),
		zap.Int("asset_count", len(assetIDs)))
	return nil
}

// SubscribeUser subscribes to the account's order and trade events for
// the given condition ids. Only valid on the user channel.
func (ws *WSClient) SubscribeUser(markets []string) error {
	if ws.config.Channel != ChannelUser {
		return fmt.Errorf("user subscription on %s channel", ws.config.Channel)
	}

	msg := &wsSubscribe{
		Auth: &wsAuth{
			APIKey:     ws.config.Credentials.Key,
			Secret:     ws.config.Credentials.Secret,
			Passphrase: ws.config.Credentials.Passphrase,
		},
		Type:    ChannelUser,
		Markets: markets,
	}
	if err := ws.sendMessage(msg); err != nil {
		return err
	}

	ws.subMu.Lock()
	ws.subscription = msg
	ws.subMu.Unlock()
	ws.config.Logger.Debug("subscribed",
		zap.String("conn_id", ws.connID),
		zap.String("channel", ChannelUser),
		zap.Int("market_count", len(markets)))
	return nil
}

// sendMessage sends a message over the WebSocket connection
func (ws *WSClient) sendMessage(msg interface{}) error {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	if !ws.isConnected || ws.conn == nil {
		return fmt.Errorf("WebSocket not connected")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (ws *WSClient) startHeartbeat() {
	ws.heartbeatTicker = time.NewTicker(HeartbeatInterval)

	go func() {
		for {
			select {
			case <-ws.heartbeatTicker.C:
				ws.mu.RLock()
				conn := ws.conn
				connected := ws.isConnected
				ws.mu.RUnlock()
				if !connected || conn == nil {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
					if ws.config.OnError != nil {
						ws.config.OnError(fmt.Errorf("heartbeat failed: %w", err))
					}
				}
			case <-ws.ctx.Done():
				return
			}
		}
	}()
}

// readLoop continuously reads messages from the WebSocket
func (ws *WSClient) readLoop() {
	for {
		select {
		case <-ws.ctx.Done():
			return
		default:
			ws.mu.RLock()
			conn := ws.conn
			ws.mu.RUnlock()

			if conn == nil {
				return
			}

			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ws.config.OnError != nil {
					ws.config.OnError(fmt.Errorf("read error: %w", err))
				}
				ws.handleDisconnect()
				return
			}

			// Server echoes heartbeats; not an event.
			if string(data) == "PONG" {
				continue
			}

			if ws.config.OnMessage != nil {
				ws.config.OnMessage(messageType, data)
			}
		}
	}
}

// handleDisconnect handles disconnection and schedules reconnection
func (ws *WSClient) handleDisconnect() {
	ws.mu.Lock()
	wasConnected := ws.isConnected
	ws.isConnected = false
	if ws.heartbeatTicker != nil {
		ws.heartbeatTicker.Stop()
	}
	ws.mu.Unlock()

	if wasConnected && ws.config.OnDisconnect != nil {
		ws.config.OnDisconnect()
	}

	go ws.attemptReconnect()
}

func (ws *WSClient) attemptReconnect() {
	for {
		ws.mu.Lock()
		if ws.reconnectAttempt >= ws.config.MaxReconnectAttempts {
			ws.mu.Unlock()
			if ws.config.OnError != nil {
				ws.config.OnError(fmt.Errorf("max reconnect attempts (%d) reached", ws.config.MaxReconnectAttempts))
			}
			return
		}
		ws.reconnectAttempt++
		attempt := ws.reconnectAttempt
		ctx := ws.ctx
		ws.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(ws.config.ReconnectInterval):
		}

		ws.config.Logger.Debug("reconnecting",
			zap.String("conn_id", ws.connID),
			zap.Int("attempt", attempt))
		if err := ws.Connect(context.Background()); err != nil {
			if ws.config.OnError != nil {
				ws.config.OnError(fmt.Errorf("reconnect attempt %d failed: %w", attempt, err))
			}
			continue
		}

		ws.resubscribe()
		return
	}
}

// resubscribe replays the tracked subscription after a reconnect
func (ws *WSClient) resubscribe() {
	ws.subMu.RLock()
	msg := ws.subscription
	ws.subMu.RUnlock()

	if msg == nil {
		return
	}
	if err := ws.sendMessage(msg); err != nil {
		if ws.config.OnError != nil {
			ws.config.OnError(fmt.Errorf("resubscribe failed: %w", err))
		}
		return
	}
	ws.config.Logger.Debug("resubscribed", zap.String("conn_id", ws.connID))
}
