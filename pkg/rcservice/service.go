package rcservice

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/core-tools/hsu-mdnsadvertise/pkg/errors"
	"github.com/core-tools/hsu-mdnsadvertise/pkg/logging"
)

// Action is a lifecycle command the init framework can send.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionReload  Action = "reload"
	ActionRestart Action = "restart"
	ActionStatus  Action = "status"
	ActionRCVar   Action = "rcvar"
	ActionVerify  Action = "verify"
)

// Prefixes accepted in front of any action, as in "onestart" or "quietreload".
var commandPrefixes = []string{"fast", "force", "one", "quiet"}

// Invocation is what a handler knows about the command that selected it.
type Invocation struct {
	Action Action
	Prefix string
	Out    io.Writer
}

// Quiet reports whether informational output should be suppressed.
func (inv Invocation) Quiet() bool { return inv.Prefix == "quiet" }

type Handler func(ctx context.Context, inv Invocation) error

type ServiceOptions struct {
	Name    string
	RCVar   string
	PIDFile string
	// Output receives user-facing messages such as status lines.
	Output io.Writer
}

// Service maps action names to handlers. Lookups go through the table only;
// there is no fallback to name conventions.
type Service struct {
	options  ServiceOptions
	handlers map[Action]Handler
	logger   logging.Logger
}

func NewService(options ServiceOptions, logger logging.Logger) *Service {
	if options.Output == nil {
		options.Output = io.Discard
	}
	return &Service{
		options:  options,
		handlers: make(map[Action]Handler),
		logger:   logger,
	}
}

func (s *Service) Name() string    { return s.options.Name }
func (s *Service) RCVar() string   { return s.options.RCVar }
func (s *Service) PIDFile() string { return s.options.PIDFile }

// Register binds handler to action, replacing any previous binding.
func (s *Service) Register(action Action, handler Handler) {
	s.handlers[action] = handler
}

// Actions lists the registered actions in sorted order.
func (s *Service) Actions() []Action {
	actions := make([]Action, 0, len(s.handlers))
	for action := range s.handlers {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Usage renders the one-line synopsis printed for unknown commands.
func (s *Service) Usage() string {
	names := make([]string, 0, len(s.handlers))
	for _, action := range s.Actions() {
		names = append(names, string(action))
	}
	return fmt.Sprintf("Usage: %s [%s](%s)",
		s.options.Name, strings.Join(commandPrefixes, "|"), strings.Join(names, " "))
}

// ParseCommand splits an optional prefix off command.
func ParseCommand(command string) (prefix string, action Action) {
	for _, p := range commandPrefixes {
		if rest := strings.TrimPrefix(command, p); rest != command && rest != "" {
			return p, Action(rest)
		}
	}
	return "", Action(command)
}

// Dispatch runs the handler selected by command. The returned error carries
// the exit status; see errors.ExitCode.
func (s *Service) Dispatch(ctx context.Context, command string) error {
	prefix, action := ParseCommand(command)

	handler, ok := s.handlers[action]
	if !ok {
		return errors.NewUsageError("unknown action: "+command, nil).
			WithContext("usage", s.Usage())
	}

	inv := Invocation{Action: action, Prefix: prefix, Out: s.options.Output}
	if inv.Quiet() {
		inv.Out = io.Discard
	}

	s.logger.Debugf("Dispatching action, service: %s, action: %s, prefix: %q", s.options.Name, action, prefix)

	err := handler(ctx, inv)
	if err != nil {
		s.logger.Debugf("Action failed, service: %s, action: %s, error: %v", s.options.Name, action, err)
		return err
	}

	s.logger.Debugf("Action done, service: %s, action: %s", s.options.Name, action)
	return nil
}
