package f1bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/f1bot/pkg/telemetry"
)

// Bot connects the command registry to Discord.
type Bot struct {
	session  *discordgo.Session
	commands *Commands
	status   string

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBot(config *Config, provider telemetry.Provider, schedule Schedule, standings Standings, artifacts *Artifacts, sentry *raven.Client) (*Bot, error) {
	token, err := config.Token()

	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("Bot " + token)

	if err != nil {
		return nil, errors.Wrap(err, "f1bot: could not create discord session")
	}

	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	ctx, cancel := context.WithCancel(context.Background())

	bot := &Bot{
		session:  session,
		commands: RegisterCommands(config, provider, schedule, standings, artifacts, sentry),
		status:   config.Discord.Status,
		ctx:      ctx,
		cancel:   cancel,
	}

	session.AddHandler(bot.ready)
	session.AddHandler(bot.guildCreate)
	session.AddHandler(bot.messageCreate)

	return bot, nil
}

// RegisterCommands builds the command registry with every command the bot serves.
func RegisterCommands(config *Config, provider telemetry.Provider, schedule Schedule, standings Standings, artifacts *Artifacts, sentry *raven.Client) *Commands {
	commands := NewCommands(config.Discord.CommandPrefix, config.CommandTimeout, sentry)

	analysis := &analysisCommands{
		provider:  provider,
		artifacts: artifacts,
		config:    config.Analysis,
	}

	info := &infoCommands{
		schedule:  schedule,
		standings: standings,
		commands:  commands,
		now:       time.Now,
	}

	commands.Register(
		analysis.speedTrace(),
		analysis.gearShifts(),
		analysis.trackDominance(),
		analysis.racePace(),
		analysis.teamPace(),
		analysis.lapSections(),
		info.nextEvent(),
		info.driverStandings(),
		info.constructorStandings(),
		info.help(),
	)

	return commands
}

func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "f1bot: could not connect to discord")
	}

	return nil
}

func (b *Bot) Close() error {
	b.cancel()

	return b.session.Close()
}

// Connected reports whether the gateway connection is up.
func (b *Bot) Connected() bool {
	return b.session.DataReady
}

func (b *Bot) ready(s *discordgo.Session, event *discordgo.Ready) {
	logrus.Infof("Logged in as %s#%s, connected to %d guilds", event.User.Username, event.User.Discriminator, len(event.Guilds))

	if err := s.UpdateWatchStatus(0, b.status); err != nil {
		logrus.WithError(err).Error("Could not update bot status")
	}
}

func (b *Bot) guildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Guild.Unavailable {
		return
	}

	logrus.Infof("Joined guild: %s (%s)", event.Guild.Name, event.Guild.ID)
}

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	b.commands.Handle(b.ctx, newDiscordResponder(s, m.ChannelID), m.Content)
}
