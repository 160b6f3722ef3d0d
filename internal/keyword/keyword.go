// Package keyword matches chat messages against configured trigger words and
// produces the automatic reply for the first matching rule.
package keyword

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/edgard/ticketbot/internal/chat"
)

// Rule maps a trigger substring to a text reply or a file upload. A rule with
// File set uploads that file instead of sending Reply.
type Rule struct {
	Trigger string `mapstructure:"trigger" validate:"required"`
	Reply   string `mapstructure:"reply"   validate:"required_without=File"`
	File    string `mapstructure:"file"    validate:"required_without=Reply"`
}

// DefaultRules are used when no keywords are configured.
var DefaultRules = []Rule{
	{Trigger: "shit", Reply: "💩"},
	{Trigger: "sporty", File: "deadfc.gif"},
}

// Responder answers messages that contain a trigger word.
type Responder struct {
	rules    []Rule
	readFile func(string) ([]byte, error)

	cooldown time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures a Responder.
type Option func(*Responder)

// WithCooldown allows at most one reply per channel every d. Zero disables
// the limit.
func WithCooldown(d time.Duration) Option {
	return func(r *Responder) { r.cooldown = d }
}

// New returns a responder for the given rules, in priority order.
func New(rules []Rule, opts ...Option) *Responder {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.Trigger = strings.ToLower(strings.TrimSpace(r.Trigger))
		if r.Trigger == "" {
			continue
		}
		normalized = append(normalized, r)
	}
	r := &Responder{
		rules:    normalized,
		readFile: os.ReadFile,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allow reports whether a reply may be sent to the channel now, consuming
// the channel's allowance when it does.
func (r *Responder) Allow(channelID string) bool {
	if r.cooldown <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[channelID]
	if !ok {
		l = rate.NewLimiter(rate.Every(r.cooldown), 1)
		r.limiters[channelID] = l
	}
	return l.Allow()
}

// Rules returns the active rules.
func (r *Responder) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Match returns the first rule whose trigger occurs in content, ignoring case.
func (r *Responder) Match(content string) (Rule, bool) {
	lower := strings.ToLower(content)
	for _, rule := range r.rules {
		if strings.Contains(lower, rule.Trigger) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Reply builds the outgoing message for content. It returns false when no
// rule matches, and an error when a rule's file cannot be read.
func (r *Responder) Reply(content string) (chat.OutgoingMessage, bool, error) {
	rule, ok := r.Match(content)
	if !ok {
		return chat.OutgoingMessage{}, false, nil
	}
	if rule.File == "" {
		return chat.OutgoingMessage{Content: rule.Reply}, true, nil
	}

	data, err := r.readFile(rule.File)
	if err != nil {
		return chat.OutgoingMessage{}, true, fmt.Errorf("read reply file for %q: %w", rule.Trigger, err)
	}
	return chat.OutgoingMessage{
		Content: rule.Reply,
		Files:   []chat.File{{Name: filepath.Base(rule.File), Data: data}},
	}, true, nil
}
