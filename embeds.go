package f1bot

import (
	"fmt"
	"strings"
	"time"

	embed "github.com/Clinet/discordgo-embed"
	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"justapengu.in/f1bot/pkg/charts"
)

const (
	colourBlue  = 0x3498db
	colourGreen = 0x2ecc71
	colourRed   = 0xe74c3c

	embedFieldLimit = 1024
)

// fieldValue keeps a field within Discord's limits. Empty values are rejected by
// Discord, so they are replaced with a dash.
func fieldValue(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return "-"
	}

	// the limit counts characters, and the cut must not split one
	runes := 0

	for i := range s {
		if runes == embedFieldLimit {
			return s[:i]
		}

		runes++
	}

	return s
}

func timeToGo(d time.Duration) string {
	if d < time.Minute {
		return "Less than a minute"
	}

	return durafmt.Parse(d.Truncate(time.Minute)).LimitFirstN(3).String()
}

func eventEmbed(event Event, flagURL string, now time.Time) *discordgo.MessageEmbed {
	return embed.NewEmbed().
		SetTitle("Next F1 Event").
		SetColor(colourBlue).
		AddField("Race Name", fieldValue(event.RaceName)).
		AddField("Event Type", fieldValue(event.Type)).
		AddField("Location", fieldValue(event.Location)).
		AddField("Time to Go", timeToGo(event.Start.Sub(now))).
		SetThumbnail(flagURL).
		MessageEmbed
}

func driverStandingsEmbed(year int, standings []Standing) *discordgo.MessageEmbed {
	var names, teams, points strings.Builder

	for _, standing := range standings {
		fmt.Fprintf(&names, "%s %s\n", humanize.Ordinal(standing.Position), standing.Name)
		fmt.Fprintf(&teams, "%s\n", standing.Team)
		fmt.Fprintf(&points, "%s\n", humanize.Comma(int64(standing.Points)))
	}

	return embed.NewEmbed().
		SetTitle(fmt.Sprintf("Drivers' Standings %d", year)).
		SetColor(colourBlue).
		AddField("Driver", fieldValue(names.String())).
		AddField("Team", fieldValue(teams.String())).
		AddField("Points", fieldValue(points.String())).
		InlineAllFields().
		MessageEmbed
}

func constructorStandingsEmbed(year int, standings []Standing) *discordgo.MessageEmbed {
	var teams, points strings.Builder

	for _, standing := range standings {
		fmt.Fprintf(&teams, "%s %s\n", humanize.Ordinal(standing.Position), standing.Team)
		fmt.Fprintf(&points, "%s\n", humanize.Comma(int64(standing.Points)))
	}

	return embed.NewEmbed().
		SetTitle(fmt.Sprintf("Constructors' Standings %d", year)).
		SetColor(colourGreen).
		AddField("Team", fieldValue(teams.String())).
		AddField("Points", fieldValue(points.String())).
		InlineAllFields().
		MessageEmbed
}

func helpEmbed(prefix string, commands []*Command) *discordgo.MessageEmbed {
	e := embed.NewEmbed().
		SetTitle("F1 Discord Bot Help").
		SetDescription("Here are the available commands:").
		SetColor(colourBlue)

	for _, category := range commandCategories {
		var lines []string

		for _, command := range commands {
			if command.Category == category {
				lines = append(lines, fmt.Sprintf("`%s` - %s", command.Name, command.Description))
			}
		}

		if len(lines) > 0 {
			e.AddField(category+" Commands", fieldValue(strings.Join(lines, "\n")))
		}
	}

	e.AddField("Help", fmt.Sprintf("Use `%sbhelp [command]` to get detailed help for a specific command.", prefix))

	return e.MessageEmbed
}

func commandHelpEmbed(prefix string, command *Command) *discordgo.MessageEmbed {
	examples := make([]string, len(command.Examples))

	for i, example := range command.Examples {
		examples[i] = "`" + prefix + example + "`"
	}

	e := embed.NewEmbed().
		SetTitle("Help: " + command.Name).
		SetDescription(command.Description).
		SetColor(colourBlue).
		AddField("Usage", "`"+prefix+command.Usage+"`").
		AddField("Examples", fieldValue(strings.Join(examples, "\n")))

	if command.Note != "" {
		e.AddField("Note", fieldValue(command.Note))
	}

	return e.MessageEmbed
}

func commandNotFoundEmbed(name string) *discordgo.MessageEmbed {
	return embed.NewEmbed().
		SetTitle("Command Not Found").
		SetDescription(fmt.Sprintf("Command `%s` not found.", name)).
		SetColor(colourRed).
		MessageEmbed
}

// driverLapInfo describes the lap each driver was compared on.
type driverLapInfo struct {
	Code    string
	Number  int
	Sectors [3]time.Duration
}

func driverInfoEmbed(drivers []driverLapInfo) *discordgo.MessageEmbed {
	e := embed.NewEmbed().
		SetTitle("Driver Information").
		SetColor(colourBlue)

	for _, driver := range drivers {
		e.AddField(
			fmt.Sprintf("%s - %d", driver.Code, driver.Number),
			fmt.Sprintf("Sector 1: %s\nSector 2: %s\nSector 3: %s",
				charts.FormatLapTime(driver.Sectors[0]),
				charts.FormatLapTime(driver.Sectors[1]),
				charts.FormatLapTime(driver.Sectors[2]),
			),
		)
	}

	return e.InlineAllFields().MessageEmbed
}

func errorEmbed(command *Command, content string, err error) *discordgo.MessageEmbed {
	return embed.NewEmbed().
		SetTitle("An error occurred").
		SetDescription("An unexpected error occurred while processing your command.").
		SetColor(colourRed).
		AddField("Error", fieldValue(err.Error())).
		AddField("Command", fieldValue(command.Name+" "+content)).
		SetFooter("The error has been logged and will be investigated.").
		InlineAllFields().
		MessageEmbed
}
