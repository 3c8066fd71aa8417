package websocket

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/onewhat/server/domain/repositories"
	"github.com/onewhat/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

// ErrHubFull is returned when MAX_CONCURRENT_SESSIONS sessions are already open
var ErrHubFull = errors.New("too many concurrent sessions")

// StreamTranslator runs a streaming translation session
type StreamTranslator interface {
	TranslateStreaming(ctx context.Context, source usecase.AudioSource, cfg usecase.StreamConfig) (<-chan usecase.StreamResult, error)
	Config() usecase.PipelineConfig
}

// SessionInfo describes a connected streaming session
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	ClientID     string    `json:"client_id"`
	SourceLang   string    `json:"source_lang"`
	TargetLang   string    `json:"target_lang"`
	SampleRate   int       `json:"sample_rate"`
	Chunks       int       `json:"chunks"`
	FailedChunks int       `json:"failed_chunks"`
	ConnectedAt  time.Time `json:"connected_at"`
}

// Hub maintains the set of active streaming sessions.
type Hub struct {
	// Registered clients keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map and closing
	mu sync.RWMutex

	// Set by Shutdown; no session is admitted afterwards.
	closing bool

	// One token per admitted session; acquired before the upgrade.
	slots chan struct{}

	upgrader    websocket.Upgrader
	service     StreamTranslator
	sessionRepo repositories.SessionRepository
	validator   *MessageValidator

	// Cancelled on Shutdown; parent of every session context.
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub admitting at most maxSessions sessions
func NewHub(
	service StreamTranslator,
	sessionRepo repositories.SessionRepository,
	maxSessions int,
	logger *zap.Logger,
) *Hub {
	if maxSessions < 1 {
		maxSessions = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		slots:      make(chan struct{}, maxSessions),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		service:     service,
		sessionRepo: sessionRepo,
		validator:   NewMessageValidator(),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetCheckOrigin replaces the upgrader's origin check
func (h *Hub) SetCheckOrigin(check func(r *http.Request) bool) {
	h.upgrader.CheckOrigin = check
}

// Run starts the hub's main loop; it returns after Shutdown
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("sessionID", client.sessionID),
				zap.String("clientID", client.clientID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.sessionID]; ok {
				delete(h.clients, client.sessionID)
			}
			h.mu.Unlock()
			close(client.send)
			<-h.slots
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))

		case <-h.ctx.Done():
			return
		}
	}
}

// Shutdown stops admitting sessions, asks open ones to flush, and waits for
// them until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveSessions lists the connected sessions, oldest first
func (h *Hub) ActiveSessions() []SessionInfo {
	h.mu.RLock()
	infos := make([]SessionInfo, 0, len(h.clients))
	for _, client := range h.clients {
		infos = append(infos, client.Info())
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return infos
}

// ServeSession admits, upgrades and runs one streaming session. It returns
// ErrHubFull before upgrading when the hub is at capacity.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, clientID string) error {
	if !h.admit() {
		return ErrHubFull
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-h.slots
		h.sessions.Done()
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(h, conn, uuid.NewString(), clientID)

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		// Run has stopped; the session still runs so Shutdown can flush it
		h.mu.Lock()
		h.clients[client.sessionID] = client
		h.mu.Unlock()
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go func() {
		defer h.sessions.Done()
		client.serve(h.ctx)
	}()

	return nil
}

// admit reserves a slot and counts the session for Shutdown. Both happen under
// the lock Shutdown takes before waiting.
func (h *Hub) admit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}
	select {
	case h.slots <- struct{}{}:
	default:
		return false
	}
	h.sessions.Add(1)
	return true
}

func (h *Hub) release(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
		h.mu.Lock()
		delete(h.clients, c.sessionID)
		h.mu.Unlock()
		close(c.send)
		<-h.slots
	}
}
