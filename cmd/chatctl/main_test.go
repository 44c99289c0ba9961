package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi/chatapitest"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/avitalVissoky/ChatLibrary/internal/session"
	"github.com/avitalVissoky/ChatLibrary/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *chatapitest.Server {
	t.Helper()
	srv := chatapitest.NewServer()
	t.Cleanup(srv.Close)
	t.Setenv(session.EnvHome, t.TempDir())
	t.Setenv(config.EnvBaseURL, srv.URL)
	t.Setenv(config.EnvUser, "")
	return srv
}

func runCtl(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsageErrors(t *testing.T) {
	setup(t)
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no command", nil, "usage: chatctl"},
		{"unknown command", []string{"bogus"}, "unknown command: bogus"},
		{"rooms without subcommand", []string{"rooms"}, "usage: chatctl rooms"},
		{"unknown rooms subcommand", []string{"rooms", "drop"}, "unknown rooms subcommand: drop"},
		{"create without title", []string{"--user", "alice", "rooms", "create"}, "usage: chatctl rooms create"},
		{"add without users", []string{"rooms", "add", "r1"}, "usage: chatctl rooms add"},
		{"list without user", []string{"rooms", "list"}, "no user"},
		{"messages list without room", []string{"messages", "list"}, "usage: chatctl messages list"},
		{"messages list bad limit", []string{"messages", "list", "r1", "--limit", "0"}, "usage: chatctl messages list"},
		{"messages list unknown flag", []string{"messages", "list", "r1", "--after", "x"}, "usage: chatctl messages list"},
		{"send without text", []string{"--user", "alice", "messages", "send", "r1"}, "usage: chatctl messages send"},
		{"send blank text", []string{"--user", "alice", "messages", "send", "r1", "  "}, "message text is empty"},
		{"delete without id", []string{"messages", "delete", "r1"}, "usage: chatctl messages delete"},
		{"typing without room", []string{"typing"}, "usage: chatctl typing"},
		{"seen bad subcommand", []string{"--user", "alice", "seen", "drop"}, "usage: chatctl seen"},
		{"invalid user", []string{"--user", "bad user!", "rooms", "list"}, "error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCtl(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestRoomCommands(t *testing.T) {
	srv := setup(t)

	code, stdout, stderr := runCtl(t, "--user", "alice", "rooms", "create", "Book", "club")
	require.Equal(t, 0, code, stderr)
	roomID := strings.TrimSpace(stdout)
	require.NotEmpty(t, roomID)

	code, stdout, _ = runCtl(t, "rooms", "add", roomID, "alice", "bob")
	require.Equal(t, 0, code)
	assert.Equal(t, "Added 2 participant(s) to "+roomID+"\n", stdout)

	code, stdout, _ = runCtl(t, "--json", "rooms", "participants", roomID)
	require.Equal(t, 0, code)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &ids))
	assert.Equal(t, []string{"alice", "bob"}, ids)

	code, stdout, _ = runCtl(t, "--user", "bob", "--json", "rooms", "list")
	require.Equal(t, 0, code)
	var rooms []chat.ChatRoomInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &rooms))
	assert.Equal(t, []chat.ChatRoomInfo{{ID: roomID, Title: "Book club", Creator: "alice"}}, rooms)

	code, stdout, _ = runCtl(t, "--user", "carol", "rooms", "list")
	require.Equal(t, 0, code)
	assert.Equal(t, "No rooms found.\n", stdout)

	assert.Equal(t, 1, srv.Calls("/chatrooms/create"))
}

func TestMessageCommands(t *testing.T) {
	srv := setup(t)
	srv.Seed("r1", "bob", "first")

	code, stdout, stderr := runCtl(t, "--user", "alice", "--json", "messages", "send", "r1", "hello", "there")
	require.Equal(t, 0, code, stderr)
	var sent chat.Message
	require.NoError(t, json.Unmarshal([]byte(stdout), &sent))
	assert.Equal(t, "alice", sent.SenderID)
	assert.Equal(t, "hello there", sent.Content.Body)

	code, stdout, _ = runCtl(t, "--json", "messages", "list", "r1", "--limit", "5")
	require.Equal(t, 0, code)
	var msgs []chat.Message
	require.NoError(t, json.Unmarshal([]byte(stdout), &msgs))
	assert.Len(t, msgs, 2)

	code, stdout, _ = runCtl(t, "messages", "list", "r1", "--before", sent.CreatedAt)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "first")
	assert.NotContains(t, stdout, "hello there")

	code, stdout, _ = runCtl(t, "messages", "edit", sent.ID, "hello again")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "hello again (edited)")

	code, stdout, _ = runCtl(t, "messages", "delete", "r1", sent.ID)
	require.Equal(t, 0, code)
	assert.Equal(t, "Deleted "+sent.ID+"\n", stdout)
	assert.Len(t, srv.Messages("r1"), 1)

	code, _, stderr = runCtl(t, "messages", "delete", "r1", sent.ID)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "404")
}

func TestTypingCommand(t *testing.T) {
	srv := setup(t)

	code, stdout, _ := runCtl(t, "--user", "alice", "typing", "r1")
	require.Equal(t, 0, code)
	assert.Equal(t, "Nobody is typing.\n", stdout)

	srv.SetTyping("r1", "alice", true)
	srv.SetTyping("r1", "carol", true)
	srv.SetTyping("r1", "bob", true)
	srv.SetTyping("r1", "dave", false)

	code, stdout, _ = runCtl(t, "--user", "alice", "typing", "r1")
	require.Equal(t, 0, code)
	assert.Equal(t, "bob, carol\n", stdout)
}

func TestSeenCommands(t *testing.T) {
	setup(t)

	code, stdout, stderr := runCtl(t, "--user", "alice", "seen")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "No read receipts.\n", stdout)

	db, err := store.OpenMigrated(session.DBPath("alice"))
	require.NoError(t, err)
	require.NoError(t, db.MarkSeen("r1", "2024-01-01T10:00:00Z"))
	require.NoError(t, db.Close())

	code, stdout, _ = runCtl(t, "--user", "alice", "--json", "seen")
	require.Equal(t, 0, code)
	var receipts []store.Receipt
	require.NoError(t, json.Unmarshal([]byte(stdout), &receipts))
	require.Len(t, receipts, 1)
	assert.Equal(t, "r1", receipts[0].RoomID)

	code, stdout, _ = runCtl(t, "--user", "alice", "seen", "clear")
	require.Equal(t, 0, code)
	assert.Equal(t, "Read receipts cleared.\n", stdout)

	code, stdout, _ = runCtl(t, "--user", "alice", "seen")
	require.Equal(t, 0, code)
	assert.Equal(t, "No read receipts.\n", stdout)
}
