package f1bot

import (
	"io"

	"github.com/bwmarrin/discordgo"
)

// Responder sends replies to the channel a command was issued in.
type Responder interface {
	Send(content string) error
	SendEmbed(embed *discordgo.MessageEmbed) error
	SendFile(name string, r io.Reader) error
	Typing() error
}

type discordResponder struct {
	session   *discordgo.Session
	channelID string
}

func newDiscordResponder(session *discordgo.Session, channelID string) *discordResponder {
	return &discordResponder{session: session, channelID: channelID}
}

func (d *discordResponder) Send(content string) error {
	_, err := d.session.ChannelMessageSend(d.channelID, content)

	return err
}

func (d *discordResponder) SendEmbed(embed *discordgo.MessageEmbed) error {
	_, err := d.session.ChannelMessageSendEmbed(d.channelID, embed)

	return err
}

func (d *discordResponder) SendFile(name string, r io.Reader) error {
	_, err := d.session.ChannelFileSend(d.channelID, name, r)

	return err
}

func (d *discordResponder) Typing() error {
	return d.session.ChannelTyping(d.channelID)
}
