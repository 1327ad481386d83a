// Package connect manages the live handover session with the contact-center
// participant API: credential exchange, the bidirectional streaming
// connection with subscribe/heartbeat frames, inbound frame classification,
// and the message/typing/transcript operations.
package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"connectchat/internal/domain"
)

// ErrNotConnected is returned by operations that require an active session.
var ErrNotConnected = errors.New("not connected")

const (
	defaultRegion            = "us-east-1"
	defaultHeartbeatInterval = 30 * time.Second
	defaultConnectTimeout    = 10 * time.Second
	defaultTranscriptMax     = 100

	eventBufferSize = 64
)

// Config configures the Connect client.
type Config struct {
	Region            string
	HeartbeatInterval time.Duration
	ConnectTimeout    time.Duration
	// EndpointOverride replaces the regional participant endpoint; used by
	// tests and non-production stacks.
	EndpointOverride string
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client implements domain.ConnectChat.
type Client struct {
	region            string
	heartbeatInterval time.Duration
	connectTimeout    time.Duration
	endpointOverride  string
	client            *http.Client
	logger            *slog.Logger

	events chan domain.ConnectEvent

	mu      sync.RWMutex
	state   domain.ConnectionState
	session *domain.ChatSession
	conn    *websocket.Conn
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	writeMu sync.Mutex
}

// NewClient creates a Connect client. Zero-value config fields get defaults.
func NewClient(cfg Config) *Client {
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.ConnectTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		region:            cfg.Region,
		heartbeatInterval: cfg.HeartbeatInterval,
		connectTimeout:    cfg.ConnectTimeout,
		endpointOverride:  cfg.EndpointOverride,
		client:            cfg.HTTPClient,
		logger:            cfg.Logger,
		events:            make(chan domain.ConnectEvent, eventBufferSize),
		state:             domain.StateDisconnected,
	}
}

// Events returns the event stream produced by the frame classifier.
func (c *Client) Events() <-chan domain.ConnectEvent { return c.events }

// State returns the current connection state.
func (c *Client) State() domain.ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Session returns a copy of the current chat session, or nil.
func (c *Client) Session() *domain.ChatSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// IsConnected reports whether a live session exists.
func (c *Client) IsConnected() bool {
	switch c.State() {
	case domain.StateConnected, domain.StateWaitingForAgent, domain.StateAgentConnected:
		return true
	}
	return false
}

func (c *Client) setState(state domain.ConnectionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// emit delivers an event without blocking the producer. A full buffer drops
// the event with a log line; consumers that lag lose events, not the
// connection.
func (c *Client) emit(event domain.ConnectEvent) {
	select {
	case c.events <- event:
	default:
		c.logger.Warn("event buffer full, dropping event", "event", fmt.Sprintf("%T", event))
	}
}

func (c *Client) endpoint() string {
	if c.endpointOverride != "" {
		return c.endpointOverride
	}
	return fmt.Sprintf("https://participant.connect.%s.amazonaws.com", c.region)
}

// StartHandover authenticates against the embedding application's auth API,
// connects with the returned participant token, and injects the prior
// transcript. Any failure sets the ERROR state, emits an Error event, and
// fails the whole call.
func (c *Client) StartHandover(ctx context.Context, authAPIURL string, hctx domain.HandoverContext) (*domain.ChatSession, error) {
	c.setState(domain.StateConnecting)
	c.logger.Info("starting handover", "customer", hctx.CustomerName, "intent", hctx.Intent)

	session, err := c.doHandover(ctx, authAPIURL, hctx)
	if err != nil {
		c.setState(domain.StateError)
		c.emit(domain.ErrorEvent{Message: "Handover failed: " + err.Error(), Cause: err})
		return nil, fmt.Errorf("handover failed: %w", err)
	}
	return session, nil
}

func (c *Client) doHandover(ctx context.Context, authAPIURL string, hctx domain.HandoverContext) (*domain.ChatSession, error) {
	attributes := map[string]string{
		"customerId":       hctx.CustomerID,
		"intent":           hctx.Intent,
		"summary":          hctx.Summary,
		"transcriptLength": strconv.Itoa(len(hctx.Transcript)),
	}
	for k, v := range hctx.Metadata {
		attributes[k] = v
	}

	var authResp startChatResponse
	err := c.postJSON(ctx, authAPIURL, "", startChatRequest{
		ParticipantDetails: participantDetails{DisplayName: hctx.CustomerName},
		Attributes:         attributes,
	}, &authResp)
	if err != nil {
		return nil, fmt.Errorf("auth API: %w", err)
	}

	result := authResp.Data.StartChatResult
	if result.ParticipantToken == "" {
		return nil, errors.New("auth API returned no participant token")
	}
	c.logger.Info("got participant token", "contactId", result.ContactID)

	session, err := c.ConnectWithToken(ctx, result.ParticipantToken, c.region)
	if err != nil {
		return nil, err
	}
	session.ContactID = result.ContactID
	c.mu.Lock()
	if c.session != nil {
		c.session.ContactID = result.ContactID
	}
	c.mu.Unlock()

	if len(hctx.Transcript) > 0 {
		if err := c.SendMessage(ctx, formatTranscript(hctx), ContentTypeText); err != nil {
			return nil, fmt.Errorf("inject transcript: %w", err)
		}
		c.logger.Info("transcript injected", "entries", len(hctx.Transcript))
	}

	return session, nil
}

// ConnectWithToken exchanges a participant token for a connection token plus
// streaming endpoint, opens the stream, subscribes, and starts the reader
// and heartbeat tasks.
func (c *Client) ConnectWithToken(ctx context.Context, participantToken, region string) (*domain.ChatSession, error) {
	if region != "" {
		c.mu.Lock()
		c.region = region
		c.mu.Unlock()
	}
	c.setState(domain.StateConnecting)

	session, err := c.doConnect(ctx, participantToken)
	if err != nil {
		c.setState(domain.StateError)
		c.emit(domain.ErrorEvent{Message: "Connection failed: " + err.Error(), Cause: err})
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	c.setState(domain.StateWaitingForAgent)
	c.emit(domain.Connected{})
	return session, nil
}

func (c *Client) doConnect(ctx context.Context, participantToken string) (*domain.ChatSession, error) {
	var connResp createConnectionResponse
	err := c.postJSON(ctx, c.endpoint()+"/participant/connection", participantToken, createConnectionRequest{
		Type: []string{"WEBSOCKET", "CONNECTION_CREDENTIALS"},
	}, &connResp)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	if connResp.ConnectionCredentials == nil || connResp.ConnectionCredentials.ConnectionToken == "" {
		return nil, errors.New("no connection token in response")
	}
	if connResp.Websocket == nil || connResp.Websocket.URL == "" {
		return nil, errors.New("no websocket URL in response")
	}

	session := domain.ChatSession{
		ParticipantToken: participantToken,
		ConnectionToken:  connResp.ConnectionCredentials.ConnectionToken,
		WebsocketURL:     connResp.Websocket.URL,
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.connectTimeout}
	conn, resp, err := dialer.DialContext(ctx, session.WebsocketURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	// Transitional: transport is open but the session is not yet waiting
	// for an agent.
	c.setState(domain.StateConnected)

	if err := c.writeFrame(conn, subscribeFrame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.session = &session
	c.conn = conn
	c.cancel = cancel
	c.wg.Add(2)
	c.mu.Unlock()

	go c.readLoop(runCtx, conn)
	go c.heartbeatLoop(runCtx, conn)

	out := session
	return &out, nil
}

func (c *Client) writeFrame(conn *websocket.Conn, payload string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

// readLoop consumes inbound frames until the transport closes. Stream end
// for any reason while not already disconnected transitions to DISCONNECTED
// and emits Disconnected.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	c.logger.Debug("frame reader started")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Debug("frame reader stopped")
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket read error", "error", err)
			}
			// The heartbeat task dies with the reader; a spontaneous
			// transport close must not leave it ticking.
			c.mu.Lock()
			cancel := c.cancel
			c.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			if c.State() != domain.StateDisconnected {
				c.setState(domain.StateDisconnected)
				c.emit(domain.Disconnected{})
			}
			return
		}
		c.handleFrame(data)
	}
}

// heartbeatLoop keeps the stream alive. Send failures are logged and the
// loop continues; it stops only with the connection tasks.
func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeFrame(conn, heartbeatFrame); err != nil {
				c.logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}

// connectionToken returns the active connection token or ErrNotConnected.
func (c *Client) connectionToken() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil || c.session.ConnectionToken == "" {
		return "", ErrNotConnected
	}
	return c.session.ConnectionToken, nil
}

// SendMessage sends a chat message on the active session.
func (c *Client) SendMessage(ctx context.Context, content, contentType string) error {
	if contentType == "" {
		contentType = ContentTypeText
	}
	token, err := c.connectionToken()
	if err != nil {
		return err
	}

	err = c.postJSON(ctx, c.endpoint()+"/participant/message", token, sendMessageRequest{
		ConnectionToken: token,
		Content:         content,
		ContentType:     contentType,
	}, nil)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendTypingIndicator tells the agent the customer is typing.
func (c *Client) SendTypingIndicator(ctx context.Context) error {
	token, err := c.connectionToken()
	if err != nil {
		return err
	}

	err = c.postJSON(ctx, c.endpoint()+"/participant/event", token, sendEventRequest{
		ContentType: contentTypeTyping,
	}, nil)
	if err != nil {
		return fmt.Errorf("send typing event: %w", err)
	}
	return nil
}

// GetTranscript fetches the contact transcript, oldest first.
func (c *Client) GetTranscript(ctx context.Context, maxResults int) ([]domain.TranscriptItem, error) {
	if maxResults <= 0 {
		maxResults = defaultTranscriptMax
	}
	token, err := c.connectionToken()
	if err != nil {
		return nil, err
	}

	var resp getTranscriptResponse
	err = c.postJSON(ctx, c.endpoint()+"/participant/transcript", token, getTranscriptRequest{
		MaxResults: maxResults,
		SortOrder:  "ASCENDING",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return resp.Transcript, nil
}

// Disconnect tears the session down. Every step is best-effort: a failing
// cleanup step never prevents the others or the final state reset.
func (c *Client) Disconnect(ctx context.Context) error {
	c.logger.Info("disconnecting")

	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	var token string
	if c.session != nil {
		token = c.session.ConnectionToken
	}
	c.cancel = nil
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if token != "" {
		if err := c.postJSON(ctx, c.endpoint()+"/participant/disconnect", token, struct{}{}, nil); err != nil {
			c.logger.Warn("disconnect API call failed", "error", err)
		}
	}

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		if err := conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "user disconnected"), deadline); err != nil {
			c.logger.Debug("websocket close frame failed", "error", err)
		}
		if err := conn.Close(); err != nil {
			c.logger.Debug("websocket close failed", "error", err)
		}
	}

	c.wg.Wait()

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	c.setState(domain.StateDisconnected)
	c.emit(domain.Disconnected{})
	return nil
}

// postJSON posts a JSON body, optionally authenticated with the bearer-style
// participant header, and decodes the response into out when non-nil.
func (c *Client) postJSON(ctx context.Context, url, bearerToken string, payload, out any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		req.Header.Set("X-Amz-Bearer", bearerToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, string(respBody))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
