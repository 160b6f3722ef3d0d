package handlers

import (
	"cmp"
	"slices"

	"github.com/edgard/ticketbot/internal/chat"
	"github.com/edgard/ticketbot/internal/ticket"
)

// MatchType controls how an interaction name is matched to a handler.
type MatchType int

const (
	MatchExact MatchType = iota
	MatchPrefix
)

// RegisteredHandler represents an interaction handler with its matching
// rule, middleware and, for slash commands, the definition registered with
// the platform.
type RegisteredHandler struct {
	Kind       chat.InteractionKind
	Pattern    string
	MatchType  MatchType
	Handler    chat.InteractionHandler
	Middleware []chat.Middleware
	// Command is set for slash commands.
	Command *chat.Command
}

// RegisterAllHandlers initializes and returns every command and button
// handler keyed by pattern.
func RegisterAllHandlers(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	for _, t := range ticket.Types {
		handlers[t.ButtonID()] = RegisteredHandler{
			Kind:    chat.KindComponent,
			Pattern: t.ButtonID(),
			Handler: NewOpenTicketHandler(deps, t.Key),
		}
	}
	handlers[ticket.CloseButtonID] = RegisteredHandler{
		Kind:    chat.KindComponent,
		Pattern: ticket.CloseButtonID,
		Handler: NewCloseHandler(deps),
	}
	handlers[ticket.ConfirmButtonPrefix] = RegisteredHandler{
		Kind:       chat.KindComponent,
		Pattern:    ticket.ConfirmButtonPrefix,
		MatchType:  MatchPrefix,
		Handler:    NewConfirmCloseHandler(deps),
		Middleware: []chat.Middleware{StaffOnly(deps, "close this ticket")},
	}
	handlers[ticket.CancelButtonPrefix] = RegisteredHandler{
		Kind:       chat.KindComponent,
		Pattern:    ticket.CancelButtonPrefix,
		MatchType:  MatchPrefix,
		Handler:    NewCancelCloseHandler(deps),
		Middleware: []chat.Middleware{StaffOnly(deps, "cancel this close request")},
	}

	handlers["setup-tickets"] = RegisteredHandler{
		Kind:       chat.KindCommand,
		Pattern:    "setup-tickets",
		Handler:    NewSetupHandler(deps),
		Middleware: []chat.Middleware{StaffOnly(deps, "setup tickets")},
		Command:    &chat.Command{Name: "setup-tickets", Description: "Setup the ticket panel"},
	}
	handlers["rename-ticket"] = RegisteredHandler{
		Kind:       chat.KindCommand,
		Pattern:    "rename-ticket",
		Handler:    NewRenameHandler(deps),
		Middleware: []chat.Middleware{StaffOnly(deps, "rename tickets")},
		Command: &chat.Command{
			Name:        "rename-ticket",
			Description: "Rename this ticket channel",
			Options: []chat.CommandOption{{
				Name: optionNewName, Description: "The new name for the ticket channel",
				Type: chat.OptionString, Required: true,
			}},
		},
	}
	handlers["add-user"] = RegisteredHandler{
		Kind:       chat.KindCommand,
		Pattern:    "add-user",
		Handler:    NewAddUserHandler(deps),
		Middleware: []chat.Middleware{StaffOnly(deps, "add users to tickets")},
		Command: &chat.Command{
			Name:        "add-user",
			Description: "Add a user to this ticket",
			Options: []chat.CommandOption{{
				Name: optionUser, Description: "The user to add to the ticket",
				Type: chat.OptionUser, Required: true,
			}},
		},
	}
	handlers["remove-user"] = RegisteredHandler{
		Kind:       chat.KindCommand,
		Pattern:    "remove-user",
		Handler:    NewRemoveUserHandler(deps),
		Middleware: []chat.Middleware{StaffOnly(deps, "remove users from tickets")},
		Command: &chat.Command{
			Name:        "remove-user",
			Description: "Remove a user from this ticket",
			Options: []chat.CommandOption{{
				Name: optionUser, Description: "The user to remove from the ticket",
				Type: chat.OptionUser, Required: true,
			}},
		},
	}
	handlers["transcripts"] = RegisteredHandler{
		Kind:       chat.KindCommand,
		Pattern:    "transcripts",
		Handler:    NewTranscriptsHandler(deps),
		Middleware: []chat.Middleware{StaffOnly(deps, "list transcripts")},
		Command:    &chat.Command{Name: "transcripts", Description: "List recently archived ticket transcripts"},
	}

	return handlers
}

// Commands returns the slash command definitions of the registered
// handlers, sorted by name.
func Commands(registered map[string]RegisteredHandler) []chat.Command {
	var cmds []chat.Command
	for _, h := range registered {
		if h.Command != nil {
			cmds = append(cmds, *h.Command)
		}
	}
	slices.SortFunc(cmds, func(a, b chat.Command) int { return cmp.Compare(a.Name, b.Name) })
	return cmds
}
