package discord

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/ticketbot/internal/chat"
)

const maxButtonsPerRow = 5

func toUser(u *discordgo.User) chat.User {
	if u == nil {
		return chat.User{}
	}
	return chat.User{ID: u.ID, Username: u.Username, DisplayName: u.GlobalName, Bot: u.Bot}
}

func toMember(m *discordgo.Member, fallback *discordgo.User) chat.Member {
	if m == nil {
		return chat.Member{User: toUser(fallback)}
	}
	member := chat.Member{User: toUser(m.User), Roles: slices.Clone(m.Roles)}
	if m.Nick != "" {
		member.DisplayName = m.Nick
	}
	return member
}

func toChannel(ch *discordgo.Channel) chat.Channel {
	out := chat.Channel{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		ParentID: ch.ParentID,
		Name:     ch.Name,
		Topic:    ch.Topic,
	}
	for _, o := range ch.PermissionOverwrites {
		if o.Type == discordgo.PermissionOverwriteTypeMember && o.Allow&discordgo.PermissionViewChannel != 0 {
			out.Members = append(out.Members, o.ID)
		}
	}
	return out
}

func toMessage(m *discordgo.Message) chat.Message {
	out := chat.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    toUser(m.Author),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Member != nil && m.Member.Nick != "" {
		out.Author.DisplayName = m.Member.Nick
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, chat.Attachment{URL: a.URL, Filename: a.Filename})
	}
	return out
}

// toChatInteraction converts command and component interactions; other
// interaction types report false.
func toChatInteraction(i *discordgo.Interaction) (*chat.Interaction, bool) {
	ix := &chat.Interaction{
		ID:        i.ID,
		AppID:     i.AppID,
		Token:     i.Token,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Member:    toMember(i.Member, i.User),
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		ix.Kind = chat.KindCommand
		ix.Name = data.Name
		ix.Options = make(map[string]string, len(data.Options))
		for _, opt := range data.Options {
			ix.Options[opt.Name] = optionValue(opt)
		}
	case discordgo.InteractionMessageComponent:
		ix.Kind = chat.KindComponent
		ix.Name = i.MessageComponentData().CustomID
	default:
		return nil, false
	}
	return ix, true
}

func optionValue(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch v := opt.Value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func toInteraction(ix *chat.Interaction) *discordgo.Interaction {
	return &discordgo.Interaction{ID: ix.ID, AppID: ix.AppID, Token: ix.Token}
}

func toMessageSend(msg chat.OutgoingMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Buttons),
	}
	for _, f := range msg.Files {
		send.Files = append(send.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return send
}

func toEmbeds(embeds []chat.Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		out = append(out, &discordgo.MessageEmbed{Title: e.Title, Description: e.Description, Color: e.Color})
	}
	return out
}

// toComponents lays buttons out in action rows of at most five.
func toComponents(buttons []chat.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for chunk := range slices.Chunk(buttons, maxButtonsPerRow) {
		row := discordgo.ActionsRow{}
		for _, b := range chunk {
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				CustomID: b.CustomID,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func buttonStyle(s chat.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case chat.ButtonSecondary:
		return discordgo.SecondaryButton
	case chat.ButtonSuccess:
		return discordgo.SuccessButton
	case chat.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func replyFlags(r chat.Reply) discordgo.MessageFlags {
	if r.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// overwrites hides the channel from @everyone and opens it to the listed
// members and roles.
func overwrites(guildID string, spec chat.ChannelSpec) []*discordgo.PermissionOverwrite {
	out := []*discordgo.PermissionOverwrite{{
		ID:   guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel,
	}}
	for _, id := range spec.Members {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberPermissions,
		})
	}
	for _, id := range spec.Roles {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberPermissions,
		})
	}
	return out
}

func toApplicationCommands(cmds []chat.Command) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, c := range cmds {
		ac := &discordgo.ApplicationCommand{Name: c.Name, Description: c.Description}
		for _, o := range c.Options {
			optType := discordgo.ApplicationCommandOptionString
			if o.Type == chat.OptionUser {
				optType = discordgo.ApplicationCommandOptionUser
			}
			ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
				Type:        optType,
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			})
		}
		out = append(out, ac)
	}
	return out
}

// sortOldestFirst orders messages by snowflake, which increases with time.
func sortOldestFirst(msgs []*discordgo.Message) {
	slices.SortFunc(msgs, func(a, b *discordgo.Message) int {
		return compareSnowflakes(a.ID, b.ID)
	})
}

func compareSnowflakes(a, b string) int {
	x, errA := strconv.ParseUint(a, 10, 64)
	y, errB := strconv.ParseUint(b, 10, 64)
	if errA != nil || errB != nil {
		return cmp.Compare(a, b)
	}
	return cmp.Compare(x, y)
}
