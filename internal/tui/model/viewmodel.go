package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/avitalVissoky/ChatLibrary/internal/room"
	"github.com/avitalVissoky/ChatLibrary/internal/store"
	"go.uber.org/zap"
)

// DemoParticipant is invited to every room created from the room list so
// that a fresh room has someone to talk to.
const DemoParticipant = "demoUser"

// ErrNoUser is returned by operations that need a logged-in user.
var ErrNoUser = errors.New("not logged in")

// Client is the chat service as used by the terminal UI.
type Client interface {
	room.Client
	UserChatRooms(ctx context.Context, userID string) ([]chat.ChatRoomInfo, error)
	CreateChatRoom(ctx context.Context, title, creatorID string) (string, error)
	AddParticipants(ctx context.Context, roomID string, userIDs []string) error
	Participants(ctx context.Context, roomID string) ([]string, error)
}

// Store is the per-user local database.
type Store interface {
	MarkSeen(roomID, ts string) error
	ListReceipts() ([]store.Receipt, error)
	UpsertRooms(rooms []store.Room) error
	ListRooms() ([]store.Room, error)
}

// RoomRow is one line of the room list.
type RoomRow struct {
	chat.ChatRoomInfo
	LastSeen string // createdAt of the newest message seen, or ""
}

// ViewModel caches the room list of the logged-in user and keeps the local
// store in step with it.
type ViewModel struct {
	mu sync.RWMutex

	client  Client
	logger  *zap.Logger
	user    string
	store   Store
	rooms   []RoomRow
	offline bool
}

// NewViewModel creates a view model with nobody logged in.
func NewViewModel(c Client, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewModel{client: c, logger: logger}
}

// SetSession switches to user and their store, dropping cached rooms.
func (vm *ViewModel) SetSession(user string, s Store) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.user = user
	vm.store = s
	vm.rooms = nil
	vm.offline = false
}

// User returns the logged-in user, or "".
func (vm *ViewModel) User() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.user
}

// LoadRooms fetches the user's rooms. When the service cannot be reached
// the list is served from the store and the fetch error is still returned.
func (vm *ViewModel) LoadRooms(ctx context.Context) error {
	user, st := vm.session()
	if user == "" {
		return ErrNoUser
	}

	infos, fetchErr := vm.client.UserChatRooms(ctx, user)
	offline := fetchErr != nil
	if fetchErr == nil && st != nil {
		if err := st.UpsertRooms(toStoreRooms(infos)); err != nil {
			vm.logger.Warn("cache rooms failed", zap.Error(err))
		}
	}
	if offline {
		vm.logger.Warn("load rooms failed", zap.Error(fetchErr))
		infos = nil
		if st != nil {
			cached, err := st.ListRooms()
			if err != nil {
				vm.logger.Warn("read cached rooms failed", zap.Error(err))
			}
			infos = fromStoreRooms(cached)
		}
	}

	rows := vm.withReceipts(st, infos)

	vm.mu.Lock()
	if vm.user == user {
		vm.rooms = rows
		vm.offline = offline
	}
	vm.mu.Unlock()

	if fetchErr != nil {
		return fmt.Errorf("load rooms: %w", fetchErr)
	}
	return nil
}

// CreateRoom creates "Room by <user>", invites the user and DemoParticipant
// and adds the room to the list.
func (vm *ViewModel) CreateRoom(ctx context.Context) (chat.ChatRoomInfo, error) {
	user, st := vm.session()
	if user == "" {
		return chat.ChatRoomInfo{}, ErrNoUser
	}

	info := chat.ChatRoomInfo{Title: "Room by " + user, Creator: user}
	id, err := vm.client.CreateChatRoom(ctx, info.Title, user)
	if err != nil {
		return chat.ChatRoomInfo{}, fmt.Errorf("create room: %w", err)
	}
	info.ID = id
	if err := vm.client.AddParticipants(ctx, id, []string{user, DemoParticipant}); err != nil {
		return info, fmt.Errorf("add participants: %w", err)
	}
	vm.logger.Info("room created", zap.String("room_id", id))

	if st != nil {
		if err := st.UpsertRooms(toStoreRooms([]chat.ChatRoomInfo{info})); err != nil {
			vm.logger.Warn("cache room failed", zap.Error(err))
		}
	}

	vm.mu.Lock()
	if vm.user == user && vm.indexLocked(id) < 0 {
		vm.rooms = append(vm.rooms, RoomRow{ChatRoomInfo: info})
	}
	vm.mu.Unlock()
	return info, nil
}

// Participants returns the members of roomID.
func (vm *ViewModel) Participants(ctx context.Context, roomID string) ([]string, error) {
	ids, err := vm.client.Participants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("participants: %w", err)
	}
	return ids, nil
}

// MarkSeen records ts as the newest message seen in roomID. It has the
// shape of config.SeenListener.
func (vm *ViewModel) MarkSeen(roomID, ts string) {
	_, st := vm.session()
	if st != nil {
		if err := st.MarkSeen(roomID, ts); err != nil {
			vm.logger.Warn("mark seen failed", zap.String("room_id", roomID), zap.Error(err))
		}
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if i := vm.indexLocked(roomID); i >= 0 && ts > vm.rooms[i].LastSeen {
		vm.rooms[i].LastSeen = ts
	}
}

// Rooms returns a copy of the room list.
func (vm *ViewModel) Rooms() []RoomRow {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.rooms)
}

// Room returns the row of roomID.
func (vm *ViewModel) Room(roomID string) (RoomRow, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if i := vm.indexLocked(roomID); i >= 0 {
		return vm.rooms[i], true
	}
	return RoomRow{}, false
}

// Offline reports whether the room list came from the store.
func (vm *ViewModel) Offline() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.offline
}

func (vm *ViewModel) session() (string, Store) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.user, vm.store
}

func (vm *ViewModel) indexLocked(roomID string) int {
	return slices.IndexFunc(vm.rooms, func(r RoomRow) bool { return r.ID == roomID })
}

func (vm *ViewModel) withReceipts(st Store, infos []chat.ChatRoomInfo) []RoomRow {
	seen := make(map[string]string)
	if st != nil {
		receipts, err := st.ListReceipts()
		if err != nil {
			vm.logger.Warn("read receipts failed", zap.Error(err))
		}
		for _, r := range receipts {
			seen[r.RoomID] = r.LastSeenAt
		}
	}
	rows := make([]RoomRow, len(infos))
	for i, info := range infos {
		rows[i] = RoomRow{ChatRoomInfo: info, LastSeen: seen[info.ID]}
	}
	return rows
}

func toStoreRooms(infos []chat.ChatRoomInfo) []store.Room {
	rooms := make([]store.Room, len(infos))
	for i, info := range infos {
		rooms[i] = store.Room{RoomID: info.ID, Title: info.Title, Creator: info.Creator}
	}
	return rooms
}

func fromStoreRooms(rooms []store.Room) []chat.ChatRoomInfo {
	infos := make([]chat.ChatRoomInfo, len(rooms))
	for i, r := range rooms {
		infos[i] = chat.ChatRoomInfo{ID: r.RoomID, Title: r.Title, Creator: r.Creator}
	}
	return infos
}
