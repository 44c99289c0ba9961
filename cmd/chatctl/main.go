package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/app"
	"github.com/avitalVissoky/ChatLibrary/internal/chat"
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/avitalVissoky/ChatLibrary/internal/logging"
	"github.com/avitalVissoky/ChatLibrary/internal/room"
	"github.com/avitalVissoky/ChatLibrary/internal/session"
	"github.com/avitalVissoky/ChatLibrary/internal/store"
	"go.uber.org/zap"
)

// usageError is a malformed command line; the message is the expected usage.
type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one chatctl command line and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("chatctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	userFlag := fs.String("user", "", "user id (overrides config default)")
	configFlag := fs.String("config", "", "config file (default ~/.librarychat/config.toml)")
	jsonFlag := fs.Bool("json", false, "output in JSON format")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 1
	}

	cli, err := newCtl(*userFlag, *configFlag, *jsonFlag, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = cli.logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cli.cfg.HTTP.Timeout.Duration+5*time.Second)
	defer cancel()

	if err := cli.dispatch(ctx, rest); err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(stderr, uerr.Error())
			return 1
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: chatctl [--user <id>] [--config <path>] [--json] <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  rooms list                                 List your rooms")
	fmt.Fprintln(w, "  rooms create <title>                       Create a room")
	fmt.Fprintln(w, "  rooms add <roomId> <userId...>             Add participants")
	fmt.Fprintln(w, "  rooms participants <roomId>                List participants")
	fmt.Fprintln(w, "  messages list <roomId> [--before ts] [--limit n]")
	fmt.Fprintln(w, "                                             Fetch one page of messages")
	fmt.Fprintln(w, "  messages send <roomId> <text>              Send a message")
	fmt.Fprintln(w, "  messages edit <msgId> <text>               Edit a message")
	fmt.Fprintln(w, "  messages delete <roomId> <msgId>           Delete a message")
	fmt.Fprintln(w, "  typing <roomId>                            Show who is typing")
	fmt.Fprintln(w, "  seen                                       Show local read receipts")
	fmt.Fprintln(w, "  seen clear                                 Drop local read receipts")
}

type ctl struct {
	c      *chatapi.Client
	user   string
	json   bool
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
}

func newCtl(userFlag, configPath string, jsonOut bool, out io.Writer) (*ctl, error) {
	if err := config.LoadEnvFile(session.EnvPath()); err != nil {
		return nil, err
	}
	if configPath == "" {
		configPath = session.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	user := session.Resolve(userFlag, cfg)
	if user != "" {
		if user, err = session.NormalizeUserID(user); err != nil {
			return nil, err
		}
	}

	logger, err := logging.New(session.HostLogPath("chatctl"), user, true, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}

	c, err := app.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &ctl{c: c, user: user, json: jsonOut, cfg: cfg, logger: logger, out: out}, nil
}

func (t *ctl) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "rooms":
		return t.rooms(ctx, args[1:])
	case "messages":
		return t.messages(ctx, args[1:])
	case "typing":
		if len(args) < 2 {
			return usageError("chatctl typing <roomId>")
		}
		return t.typing(ctx, args[1])
	case "seen":
		return t.seen(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (t *ctl) requireUser() error {
	if t.user == "" {
		return fmt.Errorf("no user: pass --user or set %s", config.EnvUser)
	}
	return nil
}

func (t *ctl) rooms(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("chatctl rooms <list|create|add|participants>")
	}
	switch args[0] {
	case "list":
		if err := t.requireUser(); err != nil {
			return err
		}
		rooms, err := t.c.UserChatRooms(ctx, t.user)
		if err != nil {
			return err
		}
		if t.json {
			return t.outputJSON(rooms)
		}
		if len(rooms) == 0 {
			fmt.Fprintln(t.out, "No rooms found.")
			return nil
		}
		for _, r := range rooms {
			fmt.Fprintf(t.out, "%-24s %-30s %s\n", r.ID, r.Title, r.Creator)
		}
	case "create":
		if len(args) < 2 {
			return usageError("chatctl rooms create <title>")
		}
		if err := t.requireUser(); err != nil {
			return err
		}
		id, err := t.c.CreateChatRoom(ctx, strings.Join(args[1:], " "), t.user)
		if err != nil {
			return err
		}
		t.logger.Info("room created", zap.String("room_id", id))
		if t.json {
			return t.outputJSON(map[string]string{"roomId": id})
		}
		fmt.Fprintln(t.out, id)
	case "add":
		if len(args) < 3 {
			return usageError("chatctl rooms add <roomId> <userId...>")
		}
		if err := t.c.AddParticipants(ctx, args[1], args[2:]); err != nil {
			return err
		}
		if !t.json {
			fmt.Fprintf(t.out, "Added %d participant(s) to %s\n", len(args)-2, args[1])
		}
	case "participants":
		if len(args) < 2 {
			return usageError("chatctl rooms participants <roomId>")
		}
		ids, err := t.c.Participants(ctx, args[1])
		if err != nil {
			return err
		}
		if t.json {
			return t.outputJSON(ids)
		}
		for _, id := range ids {
			fmt.Fprintln(t.out, id)
		}
	default:
		return fmt.Errorf("unknown rooms subcommand: %s", args[0])
	}
	return nil
}

func (t *ctl) messages(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("chatctl messages <list|send|edit|delete>")
	}
	switch args[0] {
	case "list":
		if len(args) < 2 {
			return usageError("chatctl messages list <roomId> [--before ts] [--limit n]")
		}
		fs := flag.NewFlagSet("messages list", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		before := fs.String("before", "", "createdAt cursor; only older messages are returned")
		limit := fs.Int("limit", t.cfg.Room.PageSize, "page size")
		roomID := args[1]
		if err := fs.Parse(args[2:]); err != nil || *limit < 1 {
			return usageError("chatctl messages list <roomId> [--before ts] [--limit n]")
		}

		msgs, err := t.c.FetchMessages(ctx, roomID, *before, *limit)
		if err != nil {
			return err
		}
		if t.json {
			return t.outputJSON(msgs)
		}
		if len(msgs) == 0 {
			fmt.Fprintln(t.out, "No messages.")
			return nil
		}
		for _, m := range msgs {
			t.printMessage(m)
		}
	case "send":
		if len(args) < 3 {
			return usageError("chatctl messages send <roomId> <text>")
		}
		if err := t.requireUser(); err != nil {
			return err
		}
		text := strings.TrimSpace(strings.Join(args[2:], " "))
		if text == "" {
			return fmt.Errorf("message text is empty")
		}
		sent, err := t.c.SendMessage(ctx, chat.Message{
			ChatRoomID: args[1],
			SenderID:   t.user,
			Content:    chat.NewText(text),
		})
		if err != nil {
			return err
		}
		if t.json {
			return t.outputJSON(sent)
		}
		t.printMessage(sent)
	case "edit":
		if len(args) < 3 {
			return usageError("chatctl messages edit <msgId> <text>")
		}
		updated, err := t.c.UpdateMessage(ctx, args[1], chat.NewText(strings.Join(args[2:], " ")))
		if err != nil {
			return err
		}
		if t.json {
			return t.outputJSON(updated)
		}
		t.printMessage(updated)
	case "delete":
		if len(args) < 3 {
			return usageError("chatctl messages delete <roomId> <msgId>")
		}
		id, err := t.c.DeleteMessage(ctx, args[2], args[1])
		if err != nil {
			return err
		}
		if t.json {
			return t.outputJSON(map[string]string{"msgId": id})
		}
		fmt.Fprintf(t.out, "Deleted %s\n", id)
	default:
		return fmt.Errorf("unknown messages subcommand: %s", args[0])
	}
	return nil
}

func (t *ctl) typing(ctx context.Context, roomID string) error {
	statuses, err := t.c.FetchTypingStatus(ctx, roomID)
	if err != nil {
		return err
	}
	users := []string{}
	for id, typing := range statuses {
		if typing && id != t.user {
			users = append(users, id)
		}
	}
	sort.Strings(users)
	if t.json {
		return t.outputJSON(users)
	}
	if len(users) == 0 {
		fmt.Fprintln(t.out, "Nobody is typing.")
		return nil
	}
	fmt.Fprintln(t.out, strings.Join(users, ", "))
	return nil
}

func (t *ctl) seen(args []string) error {
	if len(args) > 0 && args[0] != "clear" {
		return usageError("chatctl seen [clear]")
	}
	if err := t.requireUser(); err != nil {
		return err
	}
	db, err := store.OpenMigrated(session.DBPath(t.user))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if len(args) > 0 {
		if err := db.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(t.out, "Read receipts cleared.")
		return nil
	}

	receipts, err := db.ListReceipts()
	if err != nil {
		return err
	}
	if t.json {
		return t.outputJSON(receipts)
	}
	if len(receipts) == 0 {
		fmt.Fprintln(t.out, "No read receipts.")
		return nil
	}
	for _, r := range receipts {
		title := r.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(t.out, "%-24s %-30s %s\n", r.RoomID, title, room.FormatTimestamp(r.LastSeenAt))
	}
	return nil
}

func (t *ctl) printMessage(m chat.Message) {
	text, err := m.Content.Text()
	if err != nil {
		text = "<" + string(m.Content.Type) + " message>"
	}
	edited := ""
	if m.Edited {
		edited = " (edited)"
	}
	fmt.Fprintf(t.out, "%s  %-12s %s%s  [%s]\n", room.MessageTime(m), m.SenderID, text, edited, m.ID)
}

func (t *ctl) outputJSON(v any) error {
	enc := json.NewEncoder(t.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}
