package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/internal/audio"
	"github.com/onewhat/server/usecase"
)

const sessionStoreTimeout = 5 * time.Second

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Closed when writePump exits.
	writerDone chan struct{}

	sessionID string
	clientID  string

	logger *zap.Logger

	mu          sync.Mutex
	session     *entities.StreamingSession
	connectedAt time.Time
}

func newClient(hub *Hub, conn *websocket.Conn, sessionID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan WriteData, 256),
		writerDone:  make(chan struct{}),
		sessionID:   sessionID,
		clientID:    clientID,
		logger:      hub.logger.With(zap.String("sessionID", sessionID)),
		connectedAt: time.Now().UTC(),
	}
}

// Info snapshots the client's session for listings
func (c *Client) Info() SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := SessionInfo{
		SessionID:   c.sessionID,
		ClientID:    c.clientID,
		ConnectedAt: c.connectedAt,
	}
	if c.session != nil {
		info.SourceLang = c.session.SourceLang
		info.TargetLang = c.session.TargetLang
		info.SampleRate = c.session.SampleRate
		info.Chunks = c.session.Chunks
		info.FailedChunks = c.session.FailedChunks
	}
	return info
}

// serve runs the session protocol: config handshake, streaming, summary.
func (c *Client) serve(ctx context.Context) {
	defer c.hub.release(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// A session still waiting for its config has nothing to flush on shutdown
	stopConfigWait := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	cfg, err := c.readSessionConfig()
	stopConfigWait()
	if err != nil {
		c.logger.Warn("Rejected session config", zap.Error(err))
		c.enqueue(CreateErrorMessage(err, nil))
		return
	}

	session := entities.NewStreamingSession(c.sessionID, c.clientID, cfg.SourceLang, cfg.TargetLang, cfg.SampleRate)
	source := newSocketSource(c, c.hub.validator)
	results, err := c.hub.service.TranslateStreaming(ctx, source, usecase.StreamConfig{
		SessionID:  c.sessionID,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		SampleRate: cfg.SampleRate,
	})
	if err != nil {
		c.logger.Warn("Failed to start streaming session", zap.Error(err))
		c.enqueue(CreateErrorMessage(err, nil))
		return
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	c.storeSession(session, true)

	c.enqueue(&domain.SessionStartedMessage{
		Type:       domain.MessageTypeSessionStarted,
		SessionID:  c.sessionID,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		SampleRate: cfg.SampleRate,
		ChunkMs:    c.hub.service.Config().ChunkDuration.Milliseconds(),
	})
	c.logger.Info("Streaming session started",
		zap.String("clientID", c.clientID),
		zap.String("sourceLang", cfg.SourceLang),
		zap.String("targetLang", cfg.TargetLang),
		zap.Int("sampleRate", cfg.SampleRate))

	go source.readPump()

	var fatal error
	for result := range results {
		if result.Fatal {
			fatal = result.Err
		} else {
			c.mu.Lock()
			session.RecordChunk(result.Err != nil)
			c.mu.Unlock()
			c.storeSession(session, false)
		}
		if result.Err != nil {
			c.logger.Warn("Chunk failed",
				zap.Int("sequence", result.Sequence),
				zap.Bool("fatal", result.Fatal),
				zap.Error(result.Err))
		}
		c.enqueue(CreateResultMessage(result))
	}
	source.stop()

	c.mu.Lock()
	if fatal != nil {
		session.End(entities.SessionStatusFailed, fatal)
	} else {
		session.End(entities.SessionStatusCompleted, nil)
	}
	ended := CreateSessionEndedMessage(session)
	c.mu.Unlock()
	c.storeSession(session, false)

	c.enqueue(ended)
	c.logger.Info("Streaming session ended",
		zap.String("status", ended.Status),
		zap.Int("chunks", ended.Chunks),
		zap.Int("failedChunks", ended.FailedChunks))
}

func (c *Client) readSessionConfig() (*domain.SessionConfigMessage, error) {
	messageType, message, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read session config: %w", err)
	}
	if messageType != websocket.TextMessage {
		return nil, &domain.SessionProtocolError{Reason: "first message must be a session_config text message"}
	}
	return c.hub.validator.ParseSessionConfig(message)
}

// storeSession persists a snapshot; failures never affect the stream
func (c *Client) storeSession(session *entities.StreamingSession, create bool) {
	if c.hub.sessionRepo == nil {
		return
	}

	c.mu.Lock()
	snapshot := *session
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sessionStoreTimeout)
	defer cancel()

	var err error
	if create {
		err = c.hub.sessionRepo.Create(ctx, &snapshot)
	} else {
		err = c.hub.sessionRepo.Update(ctx, &snapshot)
	}
	if err != nil {
		c.logger.Error("Failed to store session", zap.Bool("create", create), zap.Error(err))
	}
}

// enqueue marshals msg and hands it to writePump
func (c *Client) enqueue(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	case <-c.writerDone:
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Error("Failed to write message", zap.Error(err))
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// socketSource adapts the connection's binary frames to usecase.AudioSource.
type socketSource struct {
	client    *Client
	validator *MessageValidator
	decoder   audio.FrameDecoder

	frames chan []float32
	// Terminal error, readable once frames is closed.
	err error

	done     chan struct{}
	stopOnce sync.Once
}

func newSocketSource(client *Client, validator *MessageValidator) *socketSource {
	return &socketSource{
		client:    client,
		validator: validator,
		frames:    make(chan []float32, 16),
		done:      make(chan struct{}),
	}
}

// Next implements usecase.AudioSource
func (s *socketSource) Next(ctx context.Context) ([]float32, error) {
	select {
	case samples, ok := <-s.frames:
		if !ok {
			return nil, s.err
		}
		return samples, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *socketSource) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// readPump pumps frames from the websocket connection into the source. After
// the input ends it keeps reading so control frames are still processed.
func (s *socketSource) readPump() {
	logger := s.client.logger
	ended := false
	finish := func(err error) {
		if !ended {
			ended = true
			s.err = err
			close(s.frames)
		}
	}

	for {
		messageType, message, err := s.client.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					logger.Warn("WebSocket closed unexpectedly", zap.Error(err))
				}
				finish(io.EOF)
			} else {
				finish(fmt.Errorf("read audio: %w", err))
			}
			return
		}
		if ended {
			continue
		}

		switch messageType {
		case websocket.BinaryMessage:
			samples := s.decoder.Decode(message)
			if len(samples) == 0 {
				continue
			}
			select {
			case s.frames <- samples:
			case <-s.done:
				finish(io.EOF)
			}

		case websocket.TextMessage:
			if _, err := s.validator.ParseControl(message); err != nil {
				finish(err)
				continue
			}
			if pending := s.decoder.Pending(); pending > 0 {
				logger.Warn("Dropping partial sample at end of stream", zap.Int("bytes", pending))
			}
			finish(io.EOF)
		}
	}
}
