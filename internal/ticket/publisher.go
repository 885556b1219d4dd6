// Package ticket persists finished session transcripts and publishes
// reviewable ticket cards to the support channel.
package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"

	"voxdesk/internal/transcript"
)

const (
	// cardTitle marks ticket cards; the reaction handlers act on nothing
	// else.
	cardTitle = "Support Ticket"

	ClaimEmoji   = "🙋"
	DismissEmoji = "❌"

	claimedFieldName = "Claimed by"

	cardColor = 0x5865F2
)

// Summarizer condenses a finished conversation for the ticket card.
type Summarizer interface {
	Summarize(ctx context.Context, conv *transcript.Transcript) string
}

// Messenger is the slice of the chat platform the publisher needs.
type Messenger interface {
	SendFile(channelID, name, content string) error
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	React(channelID, messageID, emoji string) error
	Message(channelID, messageID string) (*discordgo.Message, error)
	EditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error
	DeleteMessage(channelID, messageID string) error
	Member(guildID, userID string) (*discordgo.Member, error)
	Permissions(userID, channelID string) (int64, error)
}

// Publisher flushes transcripts to a durable file plus a channel post, and
// owns the ticket-card reaction protocol.
type Publisher struct {
	msgr      Messenger
	summarize Summarizer
	channelID string
	dir       string
	log       *slog.Logger
}

func NewPublisher(msgr Messenger, summarizer Summarizer, reviewChannelID, transcriptDir string, log *slog.Logger) *Publisher {
	return &Publisher{
		msgr:      msgr,
		summarize: summarizer,
		channelID: reviewChannelID,
		dir:       transcriptDir,
		log:       log,
	}
}

// Flush serializes the transcript, writes it durably, posts it to the review
// channel and, when openTicket is set, posts a summary card with claim and
// dismiss affordances. The in-memory transcript is cleared afterwards.
func (p *Publisher) Flush(ctx context.Context, conv *transcript.Transcript, openTicket bool) error {
	if conv.Len() == 0 {
		p.log.Debug("nothing to flush")
		return nil
	}

	rendered := conv.Render()

	path := filepath.Join(p.dir, fmt.Sprintf("transcript_%d.txt", time.Now().UnixNano()))
	if err := os.WriteFile(path, []byte(rendered+"\n"), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	p.log.Info("transcript written", "path", path, "turns", conv.Len())

	if err := p.msgr.SendFile(p.channelID, "transcript.txt", rendered); err != nil {
		return fmt.Errorf("post transcript: %w", err)
	}

	if openTicket {
		if err := p.openTicket(ctx, conv); err != nil {
			return err
		}
	}

	conv.Reset()
	return nil
}

func (p *Publisher) openTicket(ctx context.Context, conv *transcript.Transcript) error {
	summary := p.summarize.Summarize(ctx, conv)

	msg, err := p.msgr.SendEmbed(p.channelID, &discordgo.MessageEmbed{
		Title:       cardTitle,
		Description: summary,
		Color:       cardColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s to claim, %s to dismiss", ClaimEmoji, DismissEmoji),
		},
	})
	if err != nil {
		return fmt.Errorf("post ticket card: %w", err)
	}

	for _, emoji := range []string{ClaimEmoji, DismissEmoji} {
		if err := p.msgr.React(p.channelID, msg.ID, emoji); err != nil {
			p.log.Warn("seeding reaction failed", "emoji", emoji, "err", err)
		}
	}

	p.log.Info("ticket opened", "message", msg.ID)
	return nil
}

// HandleReaction processes a reaction-added event. Reactions from automated
// accounts, outside the review channel or on anything but a ticket card are
// ignored.
func (p *Publisher) HandleReaction(botUserID string, r *discordgo.MessageReactionAdd) {
	if r == nil || r.UserID == botUserID || r.ChannelID != p.channelID {
		return
	}
	if r.Emoji.Name != ClaimEmoji && r.Emoji.Name != DismissEmoji {
		return
	}

	member, err := p.msgr.Member(r.GuildID, r.UserID)
	if err != nil {
		p.log.Warn("reacting member lookup failed", "err", err)
		return
	}
	if member.User == nil || member.User.Bot {
		return
	}

	msg, err := p.msgr.Message(r.ChannelID, r.MessageID)
	if err != nil {
		p.log.Warn("reacted message lookup failed", "err", err)
		return
	}
	if !isTicketCard(msg) {
		return
	}

	switch r.Emoji.Name {
	case ClaimEmoji:
		p.claim(r, msg, member)
	case DismissEmoji:
		p.dismiss(r)
	}
}

// claim annotates the card with the reviewer's display name. The first claim
// wins; later claims leave the card untouched.
func (p *Publisher) claim(r *discordgo.MessageReactionAdd, msg *discordgo.Message, member *discordgo.Member) {
	embed := msg.Embeds[0]
	for _, field := range embed.Fields {
		if field.Name == claimedFieldName {
			return
		}
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  claimedFieldName,
		Value: displayName(member),
	})

	if err := p.msgr.EditEmbed(r.ChannelID, r.MessageID, embed); err != nil {
		p.log.Warn("ticket claim edit failed", "err", err)
		return
	}
	p.log.Info("ticket claimed", "message", r.MessageID, "by", displayName(member))
}

// dismiss deletes the card, but only for members holding manage-messages.
func (p *Publisher) dismiss(r *discordgo.MessageReactionAdd) {
	perms, err := p.msgr.Permissions(r.UserID, r.ChannelID)
	if err != nil {
		p.log.Warn("permission lookup failed", "err", err)
		return
	}
	if perms&discordgo.PermissionManageMessages == 0 {
		p.log.Debug("dismiss ignored, insufficient permission", "user", r.UserID)
		return
	}

	if err := p.msgr.DeleteMessage(r.ChannelID, r.MessageID); err != nil {
		p.log.Warn("ticket dismiss failed", "err", err)
		return
	}
	p.log.Info("ticket dismissed", "message", r.MessageID)
}

func isTicketCard(msg *discordgo.Message) bool {
	return msg != nil && len(msg.Embeds) > 0 && msg.Embeds[0].Title == cardTitle
}

func displayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		if member.User.GlobalName != "" {
			return member.User.GlobalName
		}
		return member.User.Username
	}
	return "unknown reviewer"
}
