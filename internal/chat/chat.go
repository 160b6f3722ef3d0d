// Package chat defines the platform port used by the ticket logic and the
// command handlers. The Discord adapter implements Client; tests use the
// in-memory fake from the chattest package.
package chat

import (
	"context"
	"errors"
	"slices"
	"time"
)

// ErrNotFound is returned by a Client when the referenced channel, role or
// message does not exist on the platform.
var ErrNotFound = errors.New("not found")

// User is a platform account.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Bot         bool
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Mention returns the platform mention markup for the user.
func (u User) Mention() string {
	return MentionUser(u.ID)
}

// MentionUser formats a user mention from a raw user ID.
func MentionUser(id string) string {
	return "<@" + id + ">"
}

// Member is a user in the context of a guild, with its role IDs.
type Member struct {
	User
	Roles []string
}

// HasRole reports whether the member holds the given role.
func (m Member) HasRole(roleID string) bool {
	return roleID != "" && slices.Contains(m.Roles, roleID)
}

// Channel is a guild text channel.
type Channel struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
	Topic    string
	// Members lists the user IDs that hold a member permission overwrite.
	Members []string
}

// Mention returns the platform mention markup for the channel.
func (c Channel) Mention() string {
	return "<#" + c.ID + ">"
}

// HasMember reports whether the user holds a member overwrite on the channel.
func (c Channel) HasMember(userID string) bool {
	return slices.Contains(c.Members, userID)
}

// ChannelSpec describes a private channel to create. Everyone is hidden from
// the channel except the listed members and roles.
type ChannelSpec struct {
	Name     string
	ParentID string
	Topic    string
	Members  []string
	Roles    []string
}

// Attachment is a file attached to a message.
type Attachment struct {
	URL      string
	Filename string
}

// Message is a message read from channel history or received as an event.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	Author      User
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
}

// ButtonStyle selects the visual style of a button.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is an interactive button; pressing it delivers an interaction whose
// Name is CustomID.
type Button struct {
	Label    string
	CustomID string
	Style    ButtonStyle
}

// Embed is a rich message block.
type Embed struct {
	Title       string
	Description string
	Color       int
}

// File is an uploaded attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// OutgoingMessage is a message to post in a channel.
type OutgoingMessage struct {
	Content string
	Embeds  []Embed
	Buttons []Button
	Files   []File
}

// Reply is a response to an interaction. Ephemeral replies are visible only to
// the invoking user.
type Reply struct {
	Content   string
	Embeds    []Embed
	Buttons   []Button
	Ephemeral bool
}

// InteractionKind distinguishes slash commands from component presses.
type InteractionKind int

const (
	KindCommand InteractionKind = iota + 1
	KindComponent
)

func (k InteractionKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Interaction is an inbound command invocation or button press.
type Interaction struct {
	ID        string
	AppID     string
	Token     string
	GuildID   string
	ChannelID string
	Kind      InteractionKind
	// Name is the command name for commands and the custom ID for components.
	Name string
	// Options holds command option values; user options carry the user ID.
	Options map[string]string
	Member  Member
}

// Option returns the value of a command option, or "" when absent.
func (i *Interaction) Option(name string) string {
	if i.Options == nil {
		return ""
	}
	return i.Options[name]
}

// OptionType is the value type of a command option.
type OptionType int

const (
	OptionString OptionType = iota + 1
	OptionUser
)

// CommandOption describes one argument of a slash command.
type CommandOption struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
}

// Command describes a slash command registered with the platform.
type Command struct {
	Name        string
	Description string
	Options     []CommandOption
}

// InteractionHandler processes one interaction.
type InteractionHandler func(ctx context.Context, ix *Interaction)

// Middleware wraps an InteractionHandler.
type Middleware func(next InteractionHandler) InteractionHandler

// MessageHandler processes one inbound message.
type MessageHandler func(ctx context.Context, msg *Message)

// Client is the set of platform operations the bot relies on.
type Client interface {
	// Channel looks up a channel, returning ErrNotFound when it does not exist.
	Channel(ctx context.Context, channelID string) (*Channel, error)
	// RoleExists reports whether the guild has the role.
	RoleExists(ctx context.Context, guildID, roleID string) (bool, error)
	CreateChannel(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error)
	RenameChannel(ctx context.Context, channelID, name string) (*Channel, error)
	// GrantAccess sets a member overwrite allowing the user to view and write.
	GrantAccess(ctx context.Context, channelID, userID string) error
	// RevokeAccess removes the member overwrite of the user.
	RevokeAccess(ctx context.Context, channelID, userID string) error
	DeleteChannel(ctx context.Context, channelID string) error

	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (*Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// History returns up to limit messages, oldest first.
	History(ctx context.Context, channelID string, limit int) ([]Message, error)

	// Respond answers an interaction directly.
	Respond(ctx context.Context, ix *Interaction, reply Reply) error
	// Acknowledge defers the answer to a component interaction without
	// changing the message the component belongs to.
	Acknowledge(ctx context.Context, ix *Interaction) error
	// FollowUp sends an additional message after Respond or Acknowledge.
	FollowUp(ctx context.Context, ix *Interaction, reply Reply) error
}
