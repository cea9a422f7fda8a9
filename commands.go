package f1bot

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const loadingMessage = "Telemetry can take up to 30s to load unless it is already cached. Stand by, your graph will be loaded shortly."

var commandCategories = []string{"Telemetry", "Race Analysis", "Info"}

// Command is a chat command. Run is called with the arguments following the
// command name once their count has been checked against MinArgs and MaxArgs.
type Command struct {
	Name        string
	Category    string
	Description string
	Usage       string
	Examples    []string
	Note        string

	MinArgs int
	// MaxArgs < 0 allows any number of arguments
	MaxArgs int

	// Slow commands load telemetry and are preceded by a loading notice.
	Slow bool

	Run func(ctx context.Context, r Responder, args []string) error
}

// Commands dispatches chat messages to registered commands.
type Commands struct {
	prefix  string
	timeout time.Duration

	commands map[string]*Command
	ordered  []*Command

	errors *errorHandler
}

func NewCommands(prefix string, timeout time.Duration, sentry *raven.Client) *Commands {
	return &Commands{
		prefix:   prefix,
		timeout:  timeout,
		commands: make(map[string]*Command),
		errors:   &errorHandler{prefix: prefix, sentry: sentry},
	}
}

func (c *Commands) Register(commands ...*Command) {
	for _, command := range commands {
		c.commands[command.Name] = command
		c.ordered = append(c.ordered, command)
	}
}

func (c *Commands) Lookup(name string) (*Command, bool) {
	command, ok := c.commands[strings.ToLower(name)]

	return command, ok
}

// All returns the commands in registration order.
func (c *Commands) All() []*Command {
	return c.ordered
}

// Handle runs the command in content, if it is one. It reports whether content
// was addressed to the bot.
func (c *Commands) Handle(ctx context.Context, r Responder, content string) bool {
	if !strings.HasPrefix(content, c.prefix) {
		return false
	}

	fields := splitArgs(strings.TrimPrefix(content, c.prefix))

	if len(fields) == 0 {
		return false
	}

	command, ok := c.Lookup(fields[0])

	if !ok {
		logrus.Debugf("Unknown command: %s", fields[0])

		if err := r.Send("Command not found. Use `" + c.prefix + "bhelp` to see available commands."); err != nil {
			logrus.WithError(err).Error("Could not send reply")
		}

		return true
	}

	c.run(ctx, r, command, fields[1:])

	return true
}

func (c *Commands) run(ctx context.Context, r Responder, command *Command, args []string) {
	started := time.Now()

	defer func() {
		commandDuration.WithLabelValues(command.Name).Observe(time.Since(started).Seconds())
	}()

	logrus.Infof("Running command %s %s", command.Name, strings.Join(args, " "))

	err := c.execute(ctx, r, command, args)

	switch {
	case err == nil:
		commandsTotal.WithLabelValues(command.Name, resultOK).Inc()
		return
	case errors.Is(err, context.DeadlineExceeded):
		commandsTotal.WithLabelValues(command.Name, resultTimeout).Inc()
	default:
		var argumentError *ArgumentError

		if errors.As(err, &argumentError) {
			commandsTotal.WithLabelValues(command.Name, resultUsage).Inc()
		} else {
			commandsTotal.WithLabelValues(command.Name, resultError).Inc()
		}
	}

	c.errors.handle(r, command, strings.Join(args, " "), err)
}

func (c *Commands) execute(ctx context.Context, r Responder, command *Command, args []string) error {
	if len(args) < command.MinArgs || (command.MaxArgs >= 0 && len(args) > command.MaxArgs) {
		return &ArgumentError{Command: command}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if command.Slow {
		if err := r.Send(loadingMessage); err != nil {
			logrus.WithError(err).Warn("Could not send loading message")
		}
	}

	if err := r.Typing(); err != nil {
		logrus.WithError(err).Debug("Could not send typing notification")
	}

	err := command.Run(ctx, r, args)

	// upstream errors caused by the deadline don't always wrap it, e.g. a
	// response body read that was cut short
	if err != nil && ctx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(context.DeadlineExceeded, err.Error())
	}

	return err
}

// splitArgs splits a message into whitespace separated arguments. Double quotes
// group words, so that event names such as "Saudi Arabia" stay one argument.
func splitArgs(s string) []string {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)

	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case unicode.IsSpace(r) && !quoted:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	if started {
		args = append(args, current.String())
	}

	return args
}

func parseYear(command *Command, arg string) (int, error) {
	year, err := strconv.Atoi(arg)

	if err != nil || year < 1950 {
		return 0, &ArgumentError{Command: command, Reason: "Invalid year: " + arg}
	}

	return year, nil
}
