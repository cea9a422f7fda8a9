package f1bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/f1bot/pkg/charts"
	"justapengu.in/f1bot/pkg/telemetry"
)

// ArgumentError is returned when a command is invoked with missing or invalid
// arguments. The user is shown the command's usage.
type ArgumentError struct {
	Command *Command
	Reason  string
}

func (e *ArgumentError) Error() string {
	if e.Reason == "" {
		return "f1bot: invalid arguments for " + e.Command.Name
	}

	return "f1bot: invalid arguments for " + e.Command.Name + ": " + e.Reason
}

// Usage is the message shown to the user.
func (e *ArgumentError) Usage(prefix string) string {
	var b strings.Builder

	if e.Reason != "" {
		b.WriteString(e.Reason + "\n")
	}

	fmt.Fprintf(&b, "Usage: `%s%s`", prefix, e.Command.Usage)

	if len(e.Command.Examples) > 0 {
		fmt.Fprintf(&b, "\nExample: `%s%s`", prefix, e.Command.Examples[0])
	}

	if e.Command.Note != "" {
		b.WriteString("\nNote: " + e.Command.Note)
	}

	return b.String()
}

// ErrUnavailable wraps failures of the standings and schedule sources, which are
// reported with the given message rather than as unexpected errors.
type ErrUnavailable struct {
	Message string
	Err     error
}

func (e *ErrUnavailable) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *ErrUnavailable) Unwrap() error {
	return e.Err
}

const (
	sessionNotFoundMessage = "Session not found. Please check the year, race, and session type."
	driverNotFoundMessage  = "Driver not found. Please check the driver code."
	noLapsMessage          = "No timed laps found for that session."
	noTelemetryMessage     = "No telemetry is available for that lap yet."
	noDataMessage          = "There is no data to plot for that session."
	timeoutMessage         = "Timed out loading data for this command. The data source may be slow right now, please try again later."
)

// errorHandler turns command errors into replies. Only unexpected errors are
// logged with their stack and reported.
type errorHandler struct {
	prefix string
	sentry *raven.Client
}

func (h *errorHandler) handle(r Responder, command *Command, content string, err error) {
	var (
		argumentError *ArgumentError
		unavailable   *ErrUnavailable
		reply         string
	)

	switch {
	case errors.As(err, &argumentError):
		reply = argumentError.Usage(h.prefix)
	case errors.Is(err, telemetry.ErrSessionNotFound):
		reply = sessionNotFoundMessage
	case errors.Is(err, telemetry.ErrDriverNotFound):
		reply = driverNotFoundMessage
	case errors.Is(err, telemetry.ErrNoLaps):
		reply = noLapsMessage
	case errors.Is(err, telemetry.ErrNoTelemetry):
		reply = noTelemetryMessage
	case errors.Is(err, charts.ErrNoData):
		reply = noDataMessage
	case errors.Is(err, context.DeadlineExceeded):
		logrus.WithError(err).Warnf("Command %s timed out", command.Name)
		reply = timeoutMessage
	case errors.As(err, &unavailable):
		logrus.WithError(unavailable.Err).Errorf("Command %s: %s", command.Name, unavailable.Message)
		reply = unavailable.Message + "."
	}

	if reply != "" {
		if err := r.Send(reply); err != nil {
			logrus.WithError(err).Error("Could not send error reply")
		}

		return
	}

	logrus.WithError(err).Errorf("Unhandled error in command %s: %+v", command.Name, err)

	if h.sentry != nil {
		h.sentry.CaptureError(err, map[string]string{"command": command.Name})
	}

	if err := r.SendEmbed(errorEmbed(command, content, err)); err != nil {
		logrus.WithError(err).Error("Could not send error embed")
	}
}
