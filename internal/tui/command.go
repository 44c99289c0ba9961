package tui

import "strings"

// Commands accepted by the ":" prompt.
const (
	CmdCreate  = "create"
	CmdOpen    = "open"
	CmdRefresh = "refresh"
	CmdLogout  = "logout"
	CmdHelp    = "help"
	CmdQuit    = "quit"
)

var commandAliases = map[string]string{
	"c":   CmdCreate,
	"new": CmdCreate,
	"o":   CmdOpen,
	"r":   CmdRefresh,
	"h":   CmdHelp,
	"q":   CmdQuit,
	"q!":  CmdQuit,
}

// Command is a parsed prompt line.
type Command struct {
	Name string
	Args []string
}

// Arg returns the i-th argument, or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// ParseCommand parses a prompt line without the leading ':'. Names are
// case-insensitive and aliases resolve to their full name.
func ParseCommand(input string) Command {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}
	}
	name := strings.ToLower(fields[0])
	if full, ok := commandAliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: fields[1:]}
}
