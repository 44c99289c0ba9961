package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mod ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts := Options{BaseURL: srv.URL, Timeout: 2 * time.Second}
	for _, m := range mod {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestFetchMessagesRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/messages/getMessages", r.URL.Path)
		assert.Equal(t, "r1", r.URL.Query().Get("chatRoomId"))
		assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("lastCreatedAt"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `[{"id":"1","chatRoomId":"r1","senderId":"a","content":{"content":"hi","contentType":"TEXT"},"createdAt":"T1"}]`)
	})

	msgs, err := c.FetchMessages(context.Background(), "r1", "2024-01-01T00:00:00Z", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, "hi", msgs[0].Content.Body)
}

func TestFetchMessagesOmitsEmptyCursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["lastCreatedAt"]
		assert.False(t, present, "lastCreatedAt sent for first page")
		_, _ = io.WriteString(w, `[]`)
	})

	msgs, err := c.FetchMessages(context.Background(), "r1", "", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestFetchMessagesEmptyResults(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":"no messages"}`},
		{"no content", http.StatusNoContent, ``},
		{"null body", http.StatusOK, `null`},
		{"empty body", http.StatusOK, ``},
		{"whitespace body", http.StatusOK, "  \n "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			msgs, err := c.FetchMessages(context.Background(), "r1", "", 10)
			require.NoError(t, err)
			assert.NotNil(t, msgs)
			assert.Empty(t, msgs)
		})
	}
}

func TestLenientDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "\n  [\"alice\", \"bob\"]  trailing garbage")
	})

	users, err := c.Participants(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestServerErrorCarriesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "database unavailable")
	})

	_, err := c.FetchMessages(context.Background(), "r1", "", 10)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Body)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestTimeoutClassified(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}, func(o *Options) { o.Timeout = 50 * time.Millisecond })
	defer close(block)

	_, err := c.FetchMessages(context.Background(), "r1", "", 10)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "err = %v", err)
	assert.Contains(t, err.Error(), "Request timeout")
}

func TestConnectionRefusedClassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.UserChatRooms(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, KindConnection, KindOf(err))
	assert.Contains(t, err.Error(), "Connection error")
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in chat.Message
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Empty(t, in.ID)
		in.ID = "srv-1"
		in.CreatedAt = "2024-01-01T10:00:00Z"
		in.Content.CreatedAt = in.CreatedAt
		_ = json.NewEncoder(w).Encode(map[string]any{"message": in})
	})

	sent, err := c.SendMessage(context.Background(), chat.Message{
		ChatRoomID: "r1", SenderID: "alice", Content: chat.NewText("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", sent.ID)
	assert.Equal(t, "hello", sent.Content.Body)
}

func TestUpdateMessageKeyMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "m1", r.URL.Query().Get("msgId"))
		_, _ = io.WriteString(w, `{"Message":{"id":"m1"}}`)
	})

	_, err := c.UpdateMessage(context.Background(), "m1", chat.NewText("edited"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestUpdateMessageConfiguredKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Message":{"id":"m1","edited":true,"content":{"content":"edited","contentType":"TEXT"}}}`)
	}, func(o *Options) { o.Keys.Update = "Message" })

	updated, err := c.UpdateMessage(context.Background(), "m1", chat.NewText("edited"))
	require.NoError(t, err)
	assert.True(t, updated.Edited)
	assert.Equal(t, "edited", updated.Content.Body)
}

func TestDeleteMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "m1", r.URL.Query().Get("msgId"))
		assert.Equal(t, "r1", r.URL.Query().Get("chatroomId"))
		_, _ = io.WriteString(w, `{"msgId":"m1"}`)
	})

	id, err := c.DeleteMessage(context.Background(), "m1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "m1", id)
}

func TestTypingCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/messages/typing/set":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "true", r.URL.Query().Get("isTyping"))
			assert.Equal(t, "alice", r.URL.Query().Get("userId"))
		case "/messages/typing/get":
			_, _ = io.WriteString(w, `{"alice":true,"bob":false}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	require.NoError(t, c.SetTypingStatus(context.Background(), "r1", "alice", true))
	statuses, err := c.FetchTypingStatus(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"alice": true, "bob": false}, statuses)
}

func TestRoomCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chatrooms/create":
			assert.Equal(t, "Room by alice", r.URL.Query().Get("title"))
			assert.Equal(t, "alice", r.URL.Query().Get("creatorId"))
			_, _ = io.WriteString(w, `{"roomId":"r9"}`)
		case "/chatrooms/addParticipants":
			assert.Equal(t, "r9", r.URL.Query().Get("roomId"))
			var ids []string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
			assert.Equal(t, []string{"alice", "demoUser"}, ids)
			_, _ = io.WriteString(w, `{"status":"ok"}`)
		case "/chatrooms/userRooms":
			_, _ = io.WriteString(w, `[{"id":"r9","title":"Room by alice","creator":"alice"}]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	roomID, err := c.CreateChatRoom(ctx, "Room by alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, "r9", roomID)

	require.NoError(t, c.AddParticipants(ctx, roomID, []string{"alice", "demoUser"}))

	rooms, err := c.UserChatRooms(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []chat.ChatRoomInfo{{ID: "r9", Title: "Room by alice", Creator: "alice"}}, rooms)
}

func TestBreakerOpensOnServerFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, func(o *Options) {
		o.BreakerFailures = 2
		o.BreakerTimeout = time.Minute
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.UserChatRooms(ctx, "alice")
		assert.Equal(t, KindServer, KindOf(err))
	}

	_, err := c.UserChatRooms(ctx, "alice")
	assert.Equal(t, KindConnection, KindOf(err))
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the server")

	// Typing calls bypass the breaker.
	_, _ = c.FetchTypingStatus(ctx, "r1")
	assert.Equal(t, int32(3), calls.Load())
}

func TestCancelledCallsDoNotOpenBreaker(t *testing.T) {
	var slow atomic.Bool
	slow.Store(true)
	arrived := make(chan struct{}, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			arrived <- struct{}{}
			<-r.Context().Done()
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}, func(o *Options) {
		o.BreakerFailures = 2
		o.BreakerTimeout = time.Minute
	})

	for i := 0; i < 4; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-arrived
			cancel()
		}()
		_, err := c.FetchMessages(ctx, "r1", "", 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		cancel()
	}

	slow.Store(false)
	msgs, err := c.FetchMessages(context.Background(), "r1", "", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestOversizedResponseRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(bytes.Repeat([]byte("x"), maxBodyBytes+1))
	})

	_, err := c.FetchMessages(context.Background(), "r1", "", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Contains(t, err.Error(), "response too large")
}
