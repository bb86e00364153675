package core

import (
	"sort"
	"sync"

	"gosniff/protocol"
)

// CommandHandler handles the payload of one command message.
// Handlers send their own success response; a returned *protocol.CommandError
// is turned into an error response by the dispatcher.
type CommandHandler func(payload []byte) error

// Command represents a probe command
type Command struct {
	Type    protocol.MessageType
	Name    string
	Handler CommandHandler
}

// CommandRegistry holds all registered commands
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[protocol.MessageType]*Command
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[protocol.MessageType]*Command),
	}
}

// Register adds a command to the registry, replacing any handler already
// registered for the same type
func (r *CommandRegistry) Register(t protocol.MessageType, name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands[t] = &Command{
		Type:    t,
		Name:    name,
		Handler: handler,
	}
}

// GetCommand retrieves a command by type
func (r *CommandRegistry) GetCommand(t protocol.MessageType) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[t]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Commands returns the registered commands ordered by type
func (r *CommandRegistry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Type < cmds[j].Type })
	return cmds
}

// Dispatch calls the handler registered for t. Unregistered types fail with
// an unknown-command error.
func (r *CommandRegistry) Dispatch(t protocol.MessageType, payload []byte) error {
	cmd, ok := r.GetCommand(t)
	if !ok || cmd.Handler == nil {
		return &protocol.CommandError{Command: t, Code: protocol.ErrUnknownCommand}
	}

	return cmd.Handler(payload)
}
