// Package chatapi is a client for the remote chat service REST API.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Keys names the object keys the service uses in its wrapped responses.
type Keys struct {
	Send   string // POST /messages/send
	Delete string // DELETE /messages/delete
	Update string // POST /messages/update
	Room   string // POST /chatrooms/create
}

// DefaultKeys returns the keys the reference service responds with.
func DefaultKeys() Keys {
	return Keys{Send: "message", Delete: "msgId", Update: "message", Room: "roomId"}
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit is requests per second across all calls; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// BreakerFailures consecutive failures open the breaker; 0 disables it.
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	Keys       Keys
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues requests against the chat service. It holds no per-room state
// and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	keys    Keys
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates a client for the service at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
		transport.ResponseHeaderTimeout = timeout
		hc = &http.Client{Timeout: timeout, Transport: transport}
	}

	keys := opts.Keys
	defaults := DefaultKeys()
	if keys.Send == "" {
		keys.Send = defaults.Send
	}
	if keys.Delete == "" {
		keys.Delete = defaults.Delete
	}
	if keys.Update == "" {
		keys.Update = defaults.Update
	}
	if keys.Room == "" {
		keys.Room = defaults.Room
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL: base.String(),
		http:    hc,
		keys:    keys,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}

	if opts.BreakerFailures > 0 {
		failures := opts.BreakerFailures
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "chatapi",
			MaxRequests: 1,
			Timeout:     opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				// A caller giving up says nothing about the service.
				if errors.Is(err, context.Canceled) {
					return true
				}
				var apiErr *Error
				if errors.As(err, &apiErr) && apiErr.Kind == KindServer {
					return apiErr.StatusCode < 500
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state", zap.String("name", name),
					zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
	}

	return c, nil
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any

	// typing calls bypass the breaker; their failures are discarded by callers.
	typing bool
	// emptyOnNotFound maps 404 to an empty response instead of an error.
	emptyOnNotFound bool
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, req request) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transportError(req.op, err)
	}
	if c.breaker == nil || req.typing {
		return c.roundTrip(ctx, req)
	}
	out, err := c.breaker.Execute(func() (any, error) {
		return c.roundTrip(ctx, req)
	})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, transportError(req.op, err)
	}
	return out.(*response), nil
}

func (c *Client) roundTrip(ctx context.Context, req request) (*response, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", req.op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", req.op, err)
	}
	requestID := uuid.New().String()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", zap.String("op", req.op), zap.String("request_id", requestID), zap.Error(err))
		return nil, transportError(req.op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, transportError(req.op, err)
	}
	if len(data) > maxBodyBytes {
		return nil, &Error{Op: req.op, Kind: KindNetwork, Err: ErrResponseTooLarge}
	}

	c.logger.Debug("request done",
		zap.String("op", req.op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if req.emptyOnNotFound && resp.StatusCode == http.StatusNotFound {
		return &response{status: resp.StatusCode}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Op:         req.op,
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

// decode reads the first JSON value of body into v, ignoring surrounding
// whitespace and trailing content. It reports false for an empty or null body.
func decode(op string, body []byte, v any) (bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if err := json.NewDecoder(bytes.NewReader(trimmed)).Decode(v); err != nil {
		return false, &Error{Op: op, Kind: KindNetwork, Err: fmt.Errorf("decode response: %w", err)}
	}
	return true, nil
}

// decodeKey extracts obj[key] from a wrapped response into v.
func decodeKey(op string, body []byte, key string, v any) error {
	var obj map[string]json.RawMessage
	ok, err := decode(op, body, &obj)
	if err != nil {
		return err
	}
	raw, found := obj[key]
	if !ok || !found || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("%s: key %q: %w", op, key, ErrKeyNotFound)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Op: op, Kind: KindNetwork, Err: fmt.Errorf("decode %q: %w", key, err)}
	}
	return nil
}

// FetchMessages returns up to limit messages of a room created before cursor.
// An empty cursor requests the newest page. 404, 204 and a null body yield an
// empty page.
func (c *Client) FetchMessages(ctx context.Context, roomID, cursor string, limit int) ([]chat.Message, error) {
	q := url.Values{}
	q.Set("chatRoomId", roomID)
	if cursor != "" {
		q.Set("lastCreatedAt", cursor)
	}
	q.Set("limit", strconv.Itoa(limit))

	resp, err := c.do(ctx, request{
		op: "fetch messages", method: http.MethodGet, path: "/messages/getMessages",
		query: q, emptyOnNotFound: true,
	})
	if err != nil {
		return nil, err
	}
	msgs := []chat.Message{}
	if resp.status == http.StatusNoContent || resp.status == http.StatusNotFound {
		return msgs, nil
	}
	if _, err := decode("fetch messages", resp.body, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return msgs, nil
}

// SendMessage posts msg and returns it as stored by the server, with ID and
// CreatedAt assigned.
func (c *Client) SendMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	resp, err := c.do(ctx, request{
		op: "send message", method: http.MethodPost, path: "/messages/send", body: msg,
	})
	if err != nil {
		return chat.Message{}, err
	}
	var sent chat.Message
	if err := decodeKey("send message", resp.body, c.keys.Send, &sent); err != nil {
		return chat.Message{}, err
	}
	return sent, nil
}

// DeleteMessage deletes a message and returns the id the server confirmed.
func (c *Client) DeleteMessage(ctx context.Context, msgID, roomID string) (string, error) {
	q := url.Values{}
	q.Set("msgId", msgID)
	q.Set("chatroomId", roomID)

	resp, err := c.do(ctx, request{
		op: "delete message", method: http.MethodDelete, path: "/messages/delete", query: q,
	})
	if err != nil {
		return "", err
	}
	var deleted string
	if err := decodeKey("delete message", resp.body, c.keys.Delete, &deleted); err != nil {
		return "", err
	}
	return deleted, nil
}

// UpdateMessage replaces the content of a message and returns the updated message.
func (c *Client) UpdateMessage(ctx context.Context, msgID string, content chat.Content) (chat.Message, error) {
	q := url.Values{}
	q.Set("msgId", msgID)

	resp, err := c.do(ctx, request{
		op: "update message", method: http.MethodPost, path: "/messages/update", query: q, body: content,
	})
	if err != nil {
		return chat.Message{}, err
	}
	var updated chat.Message
	if err := decodeKey("update message", resp.body, c.keys.Update, &updated); err != nil {
		return chat.Message{}, err
	}
	return updated, nil
}

// SetTypingStatus reports whether userID is typing in a room.
func (c *Client) SetTypingStatus(ctx context.Context, roomID, userID string, typing bool) error {
	q := url.Values{}
	q.Set("chatRoomId", roomID)
	q.Set("userId", userID)
	q.Set("isTyping", strconv.FormatBool(typing))

	_, err := c.do(ctx, request{
		op: "set typing", method: http.MethodPost, path: "/messages/typing/set", query: q, typing: true,
	})
	return err
}

// FetchTypingStatus returns the typing flag of every user the service tracks in a room.
func (c *Client) FetchTypingStatus(ctx context.Context, roomID string) (map[string]bool, error) {
	q := url.Values{}
	q.Set("chatRoomId", roomID)

	resp, err := c.do(ctx, request{
		op: "get typing", method: http.MethodGet, path: "/messages/typing/get", query: q, typing: true,
	})
	if err != nil {
		return nil, err
	}
	statuses := map[string]bool{}
	if _, err := decode("get typing", resp.body, &statuses); err != nil {
		return nil, err
	}
	if statuses == nil {
		statuses = map[string]bool{}
	}
	return statuses, nil
}

// CreateChatRoom creates a room and returns its id.
func (c *Client) CreateChatRoom(ctx context.Context, title, creatorID string) (string, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("creatorId", creatorID)

	resp, err := c.do(ctx, request{
		op: "create room", method: http.MethodPost, path: "/chatrooms/create", query: q,
	})
	if err != nil {
		return "", err
	}
	var roomID string
	if err := decodeKey("create room", resp.body, c.keys.Room, &roomID); err != nil {
		return "", err
	}
	return roomID, nil
}

// AddParticipants adds users to a room. The response body is ignored.
func (c *Client) AddParticipants(ctx context.Context, roomID string, userIDs []string) error {
	q := url.Values{}
	q.Set("roomId", roomID)
	if userIDs == nil {
		userIDs = []string{}
	}

	_, err := c.do(ctx, request{
		op: "add participants", method: http.MethodPost, path: "/chatrooms/addParticipants", query: q, body: userIDs,
	})
	return err
}

// UserChatRooms lists the rooms a user participates in.
func (c *Client) UserChatRooms(ctx context.Context, userID string) ([]chat.ChatRoomInfo, error) {
	q := url.Values{}
	q.Set("userId", userID)

	resp, err := c.do(ctx, request{
		op: "list rooms", method: http.MethodGet, path: "/chatrooms/userRooms", query: q,
	})
	if err != nil {
		return nil, err
	}
	rooms := []chat.ChatRoomInfo{}
	if _, err := decode("list rooms", resp.body, &rooms); err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []chat.ChatRoomInfo{}
	}
	return rooms, nil
}

// Participants lists the user ids in a room.
func (c *Client) Participants(ctx context.Context, roomID string) ([]string, error) {
	q := url.Values{}
	q.Set("roomId", roomID)

	resp, err := c.do(ctx, request{
		op: "list participants", method: http.MethodGet, path: "/chatrooms/participants", query: q,
	})
	if err != nil {
		return nil, err
	}
	users := []string{}
	if _, err := decode("list participants", resp.body, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []string{}
	}
	return users, nil
}
