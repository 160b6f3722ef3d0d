// Package handlers contains the Discord command, button and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"log/slog"

	"github.com/edgard/ticketbot/internal/chat"
	"github.com/edgard/ticketbot/internal/config"
	"github.com/edgard/ticketbot/internal/database"
	"github.com/edgard/ticketbot/internal/keyword"
	"github.com/edgard/ticketbot/internal/ticket"
)

// HandlerDeps provides dependencies for interaction and message handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Client   chat.Client
	Tickets  *ticket.Controller
	Channels *ticket.Manager
	Keywords *keyword.Responder
	// Store is optional; without it the transcripts command reports an
	// empty ledger.
	Store database.Store
}
