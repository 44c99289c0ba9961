// Package chatapitest provides an in-memory chat service speaking the REST
// contract of the chat client, for use in tests.
package chatapitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/chat"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Server is a running in-memory chat service.
type Server struct {
	*httptest.Server

	// UpdateKey is the response key of the update endpoint.
	UpdateKey string

	mu           sync.Mutex
	seq          int
	messages     map[string][]chat.Message
	typing       map[string]map[string]bool
	rooms        map[string]chat.ChatRoomInfo
	participants map[string][]string
	failures     map[string]*failure
	calls        map[string]int
}

type failure struct {
	status    int
	remaining int
}

// NewServer starts a service. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		UpdateKey:    "message",
		messages:     make(map[string][]chat.Message),
		typing:       make(map[string]map[string]bool),
		rooms:        make(map[string]chat.ChatRoomInfo),
		participants: make(map[string][]string),
		failures:     make(map[string]*failure),
		calls:        make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/getMessages", s.getMessages)
	mux.HandleFunc("POST /messages/send", s.send)
	mux.HandleFunc("DELETE /messages/delete", s.delete)
	mux.HandleFunc("POST /messages/update", s.update)
	mux.HandleFunc("POST /messages/typing/set", s.setTyping)
	mux.HandleFunc("GET /messages/typing/get", s.getTyping)
	mux.HandleFunc("POST /chatrooms/create", s.createRoom)
	mux.HandleFunc("POST /chatrooms/addParticipants", s.addParticipants)
	mux.HandleFunc("GET /chatrooms/userRooms", s.userRooms)
	mux.HandleFunc("GET /chatrooms/participants", s.listParticipants)
	s.Server = httptest.NewServer(s.intercept(mux))
	return s
}

// Fail makes the next n requests to path answer with status.
func (s *Server) Fail(path string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = &failure{status: status, remaining: n}
}

// Calls returns how many requests path has received.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Seed stores a message as if senderID had sent text to roomID.
func (s *Server) Seed(roomID, senderID, text string) chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(chat.Message{ChatRoomID: roomID, SenderID: senderID, Content: chat.NewText(text)})
}

// Messages returns the messages of a room, oldest first.
func (s *Server) Messages(roomID string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages[roomID])
}

// SetTyping sets a typing flag directly.
func (s *Server) SetTyping(roomID, userID string, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTypingLocked(roomID, userID, typing)
}

// Typing returns the typing flags of a room.
func (s *Server) Typing(roomID string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.typing[roomID]))
	for k, v := range s.typing[roomID] {
		out[k] = v
	}
	return out
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		f := s.failures[r.URL.Path]
		fail := f != nil && f.remaining > 0
		if fail {
			f.remaining--
		}
		s.mu.Unlock()
		if fail {
			http.Error(w, "injected failure", f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// store assigns id and timestamps. Must hold s.mu.
func (s *Server) store(m chat.Message) chat.Message {
	s.seq++
	m.ID = "m" + strconv.Itoa(s.seq)
	m.CreatedAt = s.now()
	m.Content.CreatedAt = m.CreatedAt
	s.messages[m.ChatRoomID] = append(s.messages[m.ChatRoomID], m)
	return m
}

func (s *Server) now() string {
	return epoch.Add(time.Duration(s.seq) * time.Second).Format(time.RFC3339)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("chatRoomId")
	before := q.Get("lastCreatedAt")
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	var older []chat.Message
	for _, m := range s.messages[roomID] {
		if before == "" || m.CreatedAt < before {
			older = append(older, m)
		}
	}
	s.mu.Unlock()

	if len(older) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(older) > limit {
		older = older[len(older)-limit:]
	}
	// Newest first, as the service returns them.
	slices.Reverse(older)
	writeJSON(w, older)
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var m chat.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if m.ID != "" {
		http.Error(w, "id must be empty", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	m = s.store(m)
	s.mu.Unlock()
	writeJSON(w, map[string]chat.Message{"message": m})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	msgID := r.URL.Query().Get("msgId")
	roomID := r.URL.Query().Get("chatroomId")

	s.mu.Lock()
	msgs := s.messages[roomID]
	i := slices.IndexFunc(msgs, func(m chat.Message) bool { return m.ID == msgID })
	if i >= 0 {
		s.messages[roomID] = slices.Delete(msgs, i, i+1)
	}
	s.mu.Unlock()

	if i < 0 {
		http.Error(w, fmt.Sprintf("message %s not found", msgID), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"msgId": msgID})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	msgID := r.URL.Query().Get("msgId")
	var c chat.Content
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var updated chat.Message
	found := false
	for roomID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID != msgID {
				continue
			}
			s.seq++
			c.CreatedAt = s.now()
			msgs[i].Content = c
			msgs[i].Edited = true
			s.messages[roomID] = msgs
			updated, found = msgs[i], true
		}
	}
	key := s.UpdateKey
	s.mu.Unlock()

	if !found {
		http.Error(w, fmt.Sprintf("message %s not found", msgID), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]chat.Message{key: updated})
}

func (s *Server) setTyping(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typing, _ := strconv.ParseBool(q.Get("isTyping"))
	s.SetTyping(q.Get("chatRoomId"), q.Get("userId"), typing)
}

func (s *Server) setTypingLocked(roomID, userID string, typing bool) {
	if s.typing[roomID] == nil {
		s.typing[roomID] = make(map[string]bool)
	}
	s.typing[roomID][userID] = typing
}

func (s *Server) getTyping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Typing(r.URL.Query().Get("chatRoomId")))
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	s.seq++
	id := "room" + strconv.Itoa(s.seq)
	s.rooms[id] = chat.ChatRoomInfo{ID: id, Title: q.Get("title"), Creator: q.Get("creatorId")}
	s.mu.Unlock()
	writeJSON(w, map[string]string{"roomId": id})
}

func (s *Server) addParticipants(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	for _, id := range ids {
		if !slices.Contains(s.participants[roomID], id) {
			s.participants[roomID] = append(s.participants[roomID], id)
		}
	}
	s.mu.Unlock()
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) userRooms(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	s.mu.Lock()
	rooms := []chat.ChatRoomInfo{}
	for id, info := range s.rooms {
		if info.Creator == userID || slices.Contains(s.participants[id], userID) {
			rooms = append(rooms, info)
		}
	}
	s.mu.Unlock()
	slices.SortFunc(rooms, func(a, b chat.ChatRoomInfo) int { return strings.Compare(a.ID, b.ID) })
	writeJSON(w, rooms)
}

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	s.mu.Lock()
	ids := slices.Clone(s.participants[roomID])
	s.mu.Unlock()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, ids)
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
