package platform

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// messenger adapts the discordgo session to the slice of the platform the
// ticket publisher needs.
type messenger struct {
	s *discordgo.Session
}

func (m *messenger) SendFile(channelID, name, content string) error {
	_, err := m.s.ChannelFileSend(channelID, name, strings.NewReader(content))
	return err
}

func (m *messenger) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return m.s.ChannelMessageSendEmbed(channelID, embed)
}

func (m *messenger) React(channelID, messageID, emoji string) error {
	return m.s.MessageReactionAdd(channelID, messageID, emoji)
}

func (m *messenger) Message(channelID, messageID string) (*discordgo.Message, error) {
	return m.s.ChannelMessage(channelID, messageID)
}

func (m *messenger) EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := m.s.ChannelMessageEditEmbed(channelID, messageID, embed)
	return err
}

func (m *messenger) DeleteMessage(channelID, messageID string) error {
	return m.s.ChannelMessageDelete(channelID, messageID)
}

func (m *messenger) Member(guildID, userID string) (*discordgo.Member, error) {
	if member, err := m.s.State.Member(guildID, userID); err == nil {
		return member, nil
	}
	return m.s.GuildMember(guildID, userID)
}

func (m *messenger) Permissions(userID, channelID string) (int64, error) {
	return m.s.UserChannelPermissions(userID, channelID)
}
