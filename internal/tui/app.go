// Package tui is the terminal front end of the chat library: a login page,
// the user's room list and the chat room screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avitalVissoky/ChatLibrary/internal/bus"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/avitalVissoky/ChatLibrary/internal/presence"
	"github.com/avitalVissoky/ChatLibrary/internal/room"
	"github.com/avitalVissoky/ChatLibrary/internal/session"
	"github.com/avitalVissoky/ChatLibrary/internal/status"
	"github.com/avitalVissoky/ChatLibrary/internal/sync"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/keys"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/model"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/ui"
	"github.com/avitalVissoky/ChatLibrary/internal/tui/views"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names.
const (
	pageLogin   = "login"
	pageRooms   = "rooms"
	pageRoom    = "room"
	pageDetails = "details"
	pageHelp    = "help"
	pageConfirm = "confirm"
)

const (
	eventBuffer  = 256
	promptHeight = 3
)

// Sessions opens and releases the per-user resources behind a login.
type Sessions interface {
	Login(user string) (model.Store, error)
	Logout() error
}

// Deps are the collaborators of the UI.
type Deps struct {
	Client   model.Client
	Bus      *bus.Bus
	Sessions Sessions
	Logger   *zap.Logger
	Config   *config.Config
	// User logs in immediately when set; otherwise the login page is shown.
	User string
}

// openRoom is the room on screen together with its event subscription.
type openRoom struct {
	room   *room.Room
	title  string
	cancel context.CancelFunc
	unsub  func()
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	root     *tview.Flex
	pages    *ui.Pages
	crumbs   *ui.Crumbs
	menu     *ui.Menu
	info     *ui.SessionInfo
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	registry *keys.Registry
	vm       *model.ViewModel

	login    *views.LoginView
	rooms    *views.RoomList
	roomView *views.RoomView
	details  *views.RoomDetails
	help     *views.HelpView

	components map[string]ui.Component
	deps       Deps
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc

	// Owned by the tview event loop.
	current *openRoom
	editing string
}

// NewApp creates the TUI application.
func NewApp(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.NewTheme(deps.Config.Style)

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		pages:    ui.NewPages(),
		crumbs:   ui.NewCrumbs(theme),
		menu:     ui.NewMenu(theme),
		info:     ui.NewSessionInfo(theme),
		flash:    ui.NewFlashModel(),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		registry: keys.NewRegistry(),
		vm:       model.NewViewModel(deps.Client, deps.Logger),
		login:    views.NewLoginView(theme),
		rooms:    views.NewRoomList(theme),
		roomView: views.NewRoomView(theme),
		details:  views.NewRoomDetails(theme),
		help:     views.NewHelpView(theme),
		deps:     deps,
		logger:   deps.Logger.Named("tui"),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.components = map[string]ui.Component{
		pageLogin:   a.login,
		pageRooms:   a.rooms,
		pageRoom:    a.roomView,
		pageDetails: a.details,
		pageHelp:    a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: func() { a.pages.Push(pageHelp); a.focusCurrent() },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand, "") },
	})

	a.registry.AddView(pageRooms, &keys.Action{Key: tcell.KeyRune, Rune: 'c', Handler: a.createRoom})
	a.registry.AddView(pageRooms, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Handler: a.refreshRooms})
	a.registry.AddView(pageRooms, &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Handler: func() { a.showPrompt(ui.PromptFilter, a.rooms.Filter()) },
	})
	for n := 1; n <= 9; n++ {
		a.registry.AddView(pageRooms, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n),
			Handler: func() {
				if id := a.rooms.RoomByIndex(n); id != "" {
					a.openRoom(id)
				}
			},
		})
	}

	a.registry.AddView(pageRoom, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i',
		Handler: func() { a.app.SetFocus(a.roomView.Composer().Input()) },
	})
	a.registry.AddView(pageRoom, &keys.Action{Key: tcell.KeyRune, Rune: 'e', Handler: a.editSelected})
	a.registry.AddView(pageRoom, &keys.Action{Key: tcell.KeyRune, Rune: 'x', Handler: a.deleteSelected})
	a.registry.AddView(pageRoom, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Handler: a.retry})
	a.registry.AddView(pageRoom, &keys.Action{Key: tcell.KeyRune, Rune: 'd', Handler: a.showDetails})
}

func (a *App) setupCallbacks() {
	a.login.SetOnSubmit(a.doLogin)

	a.rooms.SetSelectedFunc(func(row, _ int) {
		if id := a.rooms.RoomByIndex(row); id != "" {
			a.openRoom(id)
		}
	})

	composer := a.roomView.Composer()
	composer.SetOnSend(a.send)
	composer.SetOnKeystroke(func() {
		if a.current != nil {
			a.current.room.Keystroke()
		}
	})
	a.roomView.SetOnScroll(a.scrolled)

	a.prompt.SetOnSubmit(a.submitPrompt)
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(func(top string, labels []string) {
		a.crumbs.Update(labels)
		var hints []ui.MenuHint
		if c, ok := a.components[top]; ok {
			hints = append(hints, c.Hints()...)
		}
		if top != pageLogin {
			hints = append(hints, a.registry.Hints(top)...)
		}
		a.menu.Update(hints)
	})
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageLogin, a.login, true, false)
	a.pages.AddPage(pageRooms, a.rooms, true, false)
	a.pages.AddPage(pageRoom, a.roomView, true, false)
	a.pages.AddPage(pageDetails, a.details, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	header := tview.NewFlex().
		AddItem(a.info, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 22, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	current := a.pages.Current()

	// Modal dialogs and the prompt handle their own keys.
	if front, _ := a.pages.GetFrontPage(); front == pageConfirm {
		return event
	}
	switch focused := a.app.GetFocus().(type) {
	case *ui.Prompt:
		return event
	case *tview.InputField:
		if event.Key() == tcell.KeyEscape && focused == a.roomView.Composer().Input() {
			a.app.SetFocus(a.roomView.Timeline())
			return nil
		}
		return event
	case *tview.Button:
		if event.Key() == tcell.KeyEscape {
			a.app.SetFocus(a.roomView.Timeline())
			return nil
		}
		return event
	}

	if event.Key() == tcell.KeyEscape {
		a.back()
		return nil
	}
	if current == pageLogin {
		return event
	}
	if a.registry.HandleEvent(current, event) {
		return nil
	}
	return event
}

// Run shows the UI and blocks until it stops.
func (a *App) Run() error {
	if a.deps.User != "" {
		a.doLogin(a.deps.User)
	} else {
		a.showLogin()
	}
	go a.watchFlash()
	err := a.app.Run()
	// The event loop is done; the open room can be closed from here.
	a.cancel()
	a.closeRoom(true)
	return err
}

// Stop ends Run. Safe to call from any goroutine, more than once.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) watchFlash() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.flash.Watch():
		case <-ticker.C:
		case <-a.ctx.Done():
			return
		}
		a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Get()) })
	}
}

func (a *App) showLogin() {
	a.login.Reset()
	a.pages.Reset(pageLogin)
	a.updateInfo()
	a.focusCurrent()
}

func (a *App) doLogin(raw string) {
	user, err := session.NormalizeUserID(raw)
	if err != nil {
		a.pages.Reset(pageLogin)
		a.login.ShowError(err)
		a.focusCurrent()
		return
	}
	a.login.ShowMessage("Logging in as " + user + "...")

	go func() {
		st, err := a.deps.Sessions.Login(user)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.logger.Warn("login failed", zap.String("user", user), zap.Error(err))
				a.pages.Reset(pageLogin)
				a.login.ShowError(err)
				a.focusCurrent()
				return
			}
			a.logger.Info("logged in", zap.String("user", user))
			a.vm.SetSession(user, st)
			a.rooms.Update(nil)
			a.pages.Reset(pageRooms)
			a.focusCurrent()
			a.updateInfo()
			a.refreshRooms()
		})
	}()
}

func (a *App) logout() {
	a.closeRoom(false)
	if err := a.deps.Sessions.Logout(); err != nil {
		a.logger.Warn("logout failed", zap.Error(err))
	}
	a.vm.SetSession("", nil)
	a.showLogin()
}

func (a *App) refreshRooms() {
	go func() {
		err := a.vm.LoadRooms(a.ctx)
		a.app.QueueUpdateDraw(func() {
			a.rooms.Update(a.vm.Rooms())
			a.updateInfo()
			switch {
			case errors.Is(err, model.ErrNoUser):
			case err != nil && a.vm.Offline():
				a.flash.Warn("Showing cached rooms: " + err.Error())
			case err != nil:
				a.flash.Err(err)
			}
		})
	}()
}

func (a *App) createRoom() {
	a.flash.Info("Creating room...")
	go func() {
		info, err := a.vm.CreateRoom(a.ctx)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash.Err(err)
				if info.ID == "" {
					return
				}
			} else {
				a.flash.Info("Created " + info.Title)
			}
			a.rooms.Update(a.vm.Rooms())
			a.updateInfo()
			a.openRoom(info.ID)
		})
	}()
}

// openRoom shows roomID, replacing any room on screen. Runs on the event loop.
func (a *App) openRoom(roomID string) {
	a.closeRoom(false)

	title := roomID
	if row, ok := a.vm.Room(roomID); ok && row.Title != "" {
		title = row.Title
	}
	user := a.vm.User()
	opts := config.Options{Style: a.deps.Config.Style, OnSeen: a.vm.MarkSeen}
	r := room.New(a.deps.Client, a.deps.Bus, a.deps.Logger, roomID, user, opts, a.deps.Config.Room)

	// Subscribe before opening so no event of the first load is missed.
	events, unsub := a.deps.Bus.SubscribeRoom("room.", roomID, eventBuffer)
	ctx, cancel := context.WithCancel(a.ctx)
	cur := &openRoom{room: r, title: title, cancel: cancel, unsub: unsub}
	a.current = cur

	a.roomView.Reset(user, title)
	a.pages.SetLabel(pageRoom, title)
	a.pages.Push(pageRoom)
	a.focusCurrent()
	a.updateInfo()

	go a.pump(ctx, cur, events)
	go func() {
		err := r.Open(ctx)
		a.app.QueueUpdateDraw(func() {
			if a.current != cur {
				return
			}
			if err != nil {
				a.logger.Warn("open room failed", zap.String("room_id", roomID), zap.Error(err))
				a.roomView.SetError(err)
			}
			a.roomView.Render(r.Snapshot())
			a.updateInfo()
		})
		if err == nil {
			r.Resume()
		}
	}()
}

// closeRoom stops the room on screen. With wait the room is closed before
// returning, otherwise in the background.
func (a *App) closeRoom(wait bool) {
	cur := a.current
	if cur == nil {
		return
	}
	a.current = nil
	cur.unsub()
	cur.cancel()
	if wait {
		cur.room.Close()
		return
	}
	go cur.room.Close()
}

func (a *App) pump(ctx context.Context, cur *openRoom, events <-chan bus.Event) {
	for {
		select {
		case evt := <-events:
			a.app.QueueUpdateDraw(func() { a.apply(cur, evt) })
		case <-ctx.Done():
			return
		}
	}
}

// apply renders one room event. Runs on the event loop.
func (a *App) apply(cur *openRoom, evt bus.Event) {
	if a.current != cur {
		return
	}
	switch evt.Kind {
	case bus.KindTimelineChanged:
		a.roomView.Render(cur.room.Snapshot())
	case bus.KindStateChanged:
		if change, ok := evt.Payload.(status.StatusChange); ok {
			a.roomView.SetState(change.To)
			a.updateInfo()
		}
	case bus.KindNotice:
		if n, ok := evt.Payload.(sync.Notice); ok {
			a.flash.Err(n.Err)
		}
	case bus.KindTyping:
		if t, ok := evt.Payload.(presence.Typing); ok {
			a.roomView.SetTyping(t.Users)
		}
	case bus.KindSent:
		a.roomView.Composer().Clear()
	}
}

func (a *App) send(text string) {
	cur := a.current
	if cur == nil {
		return
	}
	go func() {
		_, err := cur.room.Send(text)
		switch {
		case err == nil:
		case errors.Is(err, sync.ErrEmptyText):
			a.flash.Warn("Type a message first")
		default:
			a.flash.Err(fmt.Errorf("send: %w", err))
		}
	}()
}

func (a *App) scrolled(firstVisible, dy int) {
	cur := a.current
	if cur == nil {
		return
	}
	go func() {
		// Fetch failures arrive as notices.
		started, err := cur.room.OnScroll(firstVisible, 0, dy)
		if err != nil {
			a.logger.Debug("load older messages", zap.Bool("started", started), zap.Error(err))
		}
	}()
}

func (a *App) retry() {
	cur := a.current
	if cur == nil {
		return
	}
	switch a.roomView.State() {
	case status.Error, status.Empty:
		go func() {
			if err := cur.room.Retry(); err != nil {
				a.logger.Debug("retry", zap.Error(err))
			}
		}()
	case status.Loading:
	default:
		a.flash.Info("Move up past the first message to load older ones")
	}
}

func (a *App) ownSelected(action string) (string, string, bool) {
	if a.current == nil {
		return "", "", false
	}
	m, ok := a.roomView.SelectedMessage()
	if !ok {
		return "", "", false
	}
	if m.SenderID != a.current.room.UserID {
		a.flash.Warn("You can only " + action + " your own messages")
		return "", "", false
	}
	text, err := m.Content.Text()
	if err != nil {
		a.flash.Warn(err.Error())
		return "", "", false
	}
	return m.ID, text, true
}

func (a *App) editSelected() {
	id, text, ok := a.ownSelected("edit")
	if !ok {
		return
	}
	a.editing = id
	a.showPrompt(ui.PromptEdit, text)
}

func (a *App) deleteSelected() {
	id, text, ok := a.ownSelected("delete")
	if !ok {
		return
	}
	cur := a.current
	modal := tview.NewModal().
		SetText("Delete this message?\n\n" + tview.Escape(text)).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			a.pages.RemovePage(pageConfirm)
			a.focusCurrent()
			if label != "Delete" {
				return
			}
			go func() {
				if err := cur.room.Delete(id); err != nil {
					a.flash.Err(fmt.Errorf("delete: %w", err))
				}
			}()
		})
	a.pages.AddPage(pageConfirm, modal, true, true)
	a.app.SetFocus(modal)
}

func (a *App) showDetails() {
	cur := a.current
	if cur == nil {
		return
	}
	row, ok := a.vm.Room(cur.room.ID)
	if !ok {
		row = model.RoomRow{}
		row.ID, row.Title = cur.room.ID, cur.title
	}
	a.details.Update(row, nil)
	a.pages.Push(pageDetails)
	a.focusCurrent()

	go func() {
		ids, err := a.vm.Participants(a.ctx, row.ID)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.flash.Err(err)
				ids = []string{}
			}
			a.details.Update(row, ids)
		})
	}()
}

func (a *App) showPrompt(mode ui.PromptMode, text string) {
	a.prompt.ActivateWith(mode, text)
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.editing = ""
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusCurrent()
}

func (a *App) submitPrompt(mode ui.PromptMode, text string) {
	editing := a.editing
	a.hidePrompt()

	switch mode {
	case ui.PromptFilter:
		a.rooms.SetFilter(text)
	case ui.PromptEdit:
		cur := a.current
		if cur == nil || editing == "" {
			return
		}
		go func() {
			if _, err := cur.room.Edit(editing, text); err != nil {
				a.flash.Err(fmt.Errorf("edit: %w", err))
			}
		}()
	case ui.PromptCommand:
		a.runCommand(ParseCommand(text))
	}
}

func (a *App) runCommand(cmd Command) {
	loggedIn := a.vm.User() != ""
	switch cmd.Name {
	case CmdQuit:
		a.Stop()
	case CmdHelp:
		a.pages.Push(pageHelp)
		a.focusCurrent()
	case CmdCreate, CmdOpen, CmdRefresh, CmdLogout:
		if !loggedIn {
			a.flash.Warn("Log in first")
			return
		}
		switch cmd.Name {
		case CmdCreate:
			a.createRoom()
		case CmdOpen:
			if cmd.Arg(0) == "" {
				a.flash.Warn("usage: :open <roomId>")
				return
			}
			a.openRoom(cmd.Arg(0))
		case CmdRefresh:
			a.refreshRooms()
		case CmdLogout:
			a.logout()
		}
	case "":
	default:
		a.flash.Warn("Unknown command: " + cmd.Name)
	}
}

// back pops the current page. Leaving the room page closes the room;
// coming back to it reports the newest message as seen.
func (a *App) back() {
	switch a.pages.Current() {
	case pageRooms:
		if a.rooms.Filter() != "" {
			a.rooms.SetFilter("")
			return
		}
	case pageRoom:
		a.closeRoom(false)
		a.rooms.Update(a.vm.Rooms())
	}
	if a.pages.Pop() == "" {
		return
	}
	// Returning to the room counts as seeing it.
	if cur := a.current; cur != nil && a.pages.Current() == pageRoom {
		go cur.room.Resume()
	}
	a.focusCurrent()
	a.updateInfo()
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case pageLogin:
		a.app.SetFocus(a.login.Input())
	case pageRooms:
		a.app.SetFocus(a.rooms)
	case pageRoom:
		a.app.SetFocus(a.roomView.Timeline())
	case pageDetails:
		a.app.SetFocus(a.details)
	case pageHelp:
		a.app.SetFocus(a.help)
	}
}

func (a *App) updateInfo() {
	data := &ui.SessionData{
		User:    a.vm.User(),
		Server:  a.deps.Config.Server.BaseURL,
		Rooms:   len(a.vm.Rooms()),
		Offline: a.vm.Offline(),
	}
	if a.current != nil {
		data.Room = a.current.title
		data.State = string(a.roomView.State())
	}
	a.info.Update(data)
}
