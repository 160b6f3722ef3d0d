// Package ticket implements the ticket channel manager and the lifecycle
// controller: open, close request, confirmation, transcript archival and
// channel deletion.
package ticket

import (
	"strings"

	"github.com/edgard/ticketbot/internal/chat"
)

// Interaction identifiers of the ticket buttons.
const (
	OpenButtonPrefix    = "open-"
	CloseButtonID       = "close-ticket"
	ConfirmButtonPrefix = "close-confirm:"
	CancelButtonPrefix  = "close-cancel:"

	topicPrefix = "ticket:"

	colorBlue  = 0x3498db
	colorGreen = 0x2ecc71
)

// Type is a kind of ticket users can open from the panel.
type Type struct {
	Key      string
	Label    string
	Guidance string
	Style    chat.ButtonStyle
}

// Types lists the ticket kinds in panel order.
var Types = []Type{
	{Key: "help", Label: "🎫 Help", Guidance: "A staff member will be with you shortly.", Style: chat.ButtonSuccess},
	{Key: "lft", Label: "📢 LFT", Guidance: "Please link your tracker here.", Style: chat.ButtonPrimary},
}

// LookupType returns the ticket type for key.
func LookupType(key string) (Type, bool) {
	for _, t := range Types {
		if t.Key == key {
			return t, true
		}
	}
	return Type{}, false
}

// Title is the heading of the ticket intro message.
func (t Type) Title() string {
	if t.Key == "" {
		return "🎫 Ticket"
	}
	return "🎫 " + strings.ToUpper(t.Key[:1]) + t.Key[1:] + " Ticket"
}

// ButtonID is the custom ID of the panel button opening this type.
func (t Type) ButtonID() string {
	return OpenButtonPrefix + t.Key
}

// Panel is the reply posted by the setup command.
func Panel() chat.Reply {
	buttons := make([]chat.Button, 0, len(Types))
	for _, t := range Types {
		buttons = append(buttons, chat.Button{Label: t.Label, CustomID: t.ButtonID(), Style: t.Style})
	}
	return chat.Reply{
		Embeds: []chat.Embed{{
			Title:       "Tickets",
			Description: "Click a button below to open a ticket.",
			Color:       colorGreen,
		}},
		Buttons: buttons,
	}
}

// Topic encodes the ticket type and opener into a channel topic.
func Topic(t Type, openerID string) string {
	return topicPrefix + t.Key + ":" + openerID
}

// ParseTopic decodes a topic written by Topic.
func ParseTopic(topic string) (typeKey, openerID string, ok bool) {
	rest, found := strings.CutPrefix(topic, topicPrefix)
	if !found {
		return "", "", false
	}
	typeKey, openerID, ok = strings.Cut(rest, ":")
	if !ok || typeKey == "" {
		return "", "", false
	}
	return typeKey, openerID, true
}
