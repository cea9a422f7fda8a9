package f1bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Schedule is the source of upcoming events, implemented by *ScheduleService.
type Schedule interface {
	NextEvent(now time.Time) (Event, bool, error)
	FlagURL(country string) string
}

// Standings is the source of championship standings, implemented by *StandingsService.
type Standings interface {
	Year(year int) int
	DriverStandings(ctx context.Context, year int) ([]Standing, error)
	ConstructorStandings(ctx context.Context, year int) ([]Standing, error)
}

var errNoStandings = errors.New("f1bot: no standings found")

type infoCommands struct {
	schedule  Schedule
	standings Standings
	commands  *Commands
	now       func() time.Time
}

func (i *infoCommands) nextEvent() *Command {
	return &Command{
		Name:        "f1",
		Category:    "Info",
		Description: "Show the next upcoming F1 event",
		Usage:       "f1",
		Examples:    []string{"f1"},
		MaxArgs:     0,
		Run: func(ctx context.Context, r Responder, args []string) error {
			now := i.now().UTC()

			event, ok, err := i.schedule.NextEvent(now)

			if err != nil {
				return &ErrUnavailable{Message: "Could not retrieve the schedule", Err: err}
			}

			if !ok {
				return r.Send("No upcoming F1 events found.")
			}

			return r.SendEmbed(eventEmbed(event, i.schedule.FlagURL(event.Country), now))
		},
	}
}

func (i *infoCommands) optionalYear(command *Command, args []string) (int, error) {
	if len(args) == 0 {
		return i.standings.Year(0), nil
	}

	return parseYear(command, args[0])
}

func (i *infoCommands) driverStandings() *Command {
	command := &Command{
		Name:        "drivers",
		Category:    "Info",
		Description: "Show driver standings for a season",
		Usage:       "drivers [year]",
		Examples:    []string{"drivers", "drivers 2023"},
		Note:        "Defaults to the current season.",
		MaxArgs:     1,
	}

	command.Run = func(ctx context.Context, r Responder, args []string) error {
		return i.sendStandings(ctx, r, command, args, i.standings.DriverStandings, driverStandingsEmbed, "Could not retrieve driver standings")
	}

	return command
}

func (i *infoCommands) constructorStandings() *Command {
	command := &Command{
		Name:        "constructors",
		Category:    "Info",
		Description: "Show constructor standings for a season",
		Usage:       "constructors [year]",
		Examples:    []string{"constructors", "constructors 2023"},
		Note:        "Defaults to the current season.",
		MaxArgs:     1,
	}

	command.Run = func(ctx context.Context, r Responder, args []string) error {
		return i.sendStandings(ctx, r, command, args, i.standings.ConstructorStandings, constructorStandingsEmbed, "Could not retrieve constructor standings")
	}

	return command
}

func (i *infoCommands) sendStandings(
	ctx context.Context,
	r Responder,
	command *Command,
	args []string,
	fetch func(ctx context.Context, year int) ([]Standing, error),
	build func(year int, standings []Standing) *discordgo.MessageEmbed,
	unavailable string,
) error {
	year, err := i.optionalYear(command, args)

	if err != nil {
		return err
	}

	standings, err := fetch(ctx, year)

	if errors.Is(err, context.DeadlineExceeded) {
		return err
	} else if err != nil {
		return &ErrUnavailable{Message: unavailable, Err: err}
	}

	if len(standings) == 0 {
		return &ErrUnavailable{Message: unavailable, Err: errors.Wrapf(errNoStandings, "%d", year)}
	}

	return r.SendEmbed(build(year, standings))
}

func (i *infoCommands) help() *Command {
	return &Command{
		Name:        "bhelp",
		Category:    "Info",
		Description: "Show this help message",
		Usage:       "bhelp [command]",
		Examples:    []string{"bhelp", "bhelp speedtrace"},
		MaxArgs:     1,
		Run: func(ctx context.Context, r Responder, args []string) error {
			if len(args) == 0 {
				return r.SendEmbed(helpEmbed(i.commands.prefix, i.commands.All()))
			}

			command, ok := i.commands.Lookup(args[0])

			if !ok {
				return r.SendEmbed(commandNotFoundEmbed(args[0]))
			}

			return r.SendEmbed(commandHelpEmbed(i.commands.prefix, command))
		},
	}
}
