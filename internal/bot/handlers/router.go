package handlers

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/edgard/ticketbot/internal/chat"
)

// Router dispatches interactions to registered handlers. Exact patterns win
// over prefixes; among prefixes the longest wins.
type Router struct {
	logger   *slog.Logger
	client   chat.Client
	exact    map[string]chat.InteractionHandler
	prefixes []prefixRoute
}

type prefixRoute struct {
	kind    chat.InteractionKind
	prefix  string
	handler chat.InteractionHandler
}

// NewRouter builds a router. Each handler is wrapped in its own middleware,
// then in global, with the first global middleware outermost.
func NewRouter(logger *slog.Logger, client chat.Client, registered map[string]RegisteredHandler, global ...chat.Middleware) *Router {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "handler_registry")

	r := &Router{
		logger: log,
		client: client,
		exact:  make(map[string]chat.InteractionHandler),
	}
	for _, reg := range registered {
		if reg.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", reg.Pattern)
			continue
		}
		h := applyMiddleware(applyMiddleware(reg.Handler, reg.Middleware), global)
		switch reg.MatchType {
		case MatchPrefix:
			r.prefixes = append(r.prefixes, prefixRoute{kind: reg.Kind, prefix: reg.Pattern, handler: h})
		default:
			r.exact[routeKey(reg.Kind, reg.Pattern)] = h
		}
		log.Debug("Registered handler", "pattern", reg.Pattern, "kind", reg.Kind.String(), "middleware_count", len(reg.Middleware))
	}
	slices.SortFunc(r.prefixes, func(a, b prefixRoute) int { return cmp.Compare(len(b.prefix), len(a.prefix)) })

	log.Info("Registered interaction handlers", "count", len(registered))
	return r
}

// Handle implements chat.InteractionHandler.
func (r *Router) Handle(ctx context.Context, ix *chat.Interaction) {
	if h, ok := r.lookup(ix); ok {
		h(ctx, ix)
		return
	}

	r.logger.WarnContext(ctx, "No handler for interaction", "name", ix.Name, "kind", ix.Kind.String())
	err := r.client.Respond(ctx, ix, chat.Reply{Content: "This action is no longer available.", Ephemeral: true})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to reply to unknown interaction", "error", err, "name", ix.Name)
	}
}

func (r *Router) lookup(ix *chat.Interaction) (chat.InteractionHandler, bool) {
	if h, ok := r.exact[routeKey(ix.Kind, ix.Name)]; ok {
		return h, true
	}
	for _, p := range r.prefixes {
		if p.kind == ix.Kind && strings.HasPrefix(ix.Name, p.prefix) {
			return p.handler, true
		}
	}
	return nil, false
}

func routeKey(kind chat.InteractionKind, name string) string {
	return kind.String() + "/" + name
}

// applyMiddleware wraps a handler so that the first middleware in the slice
// is the outermost.
func applyMiddleware(handler chat.InteractionHandler, mw []chat.Middleware) chat.InteractionHandler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}
