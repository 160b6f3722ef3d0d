// Package chattest provides an in-memory chat.Client for tests.
package chattest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/edgard/ticketbot/internal/chat"
)

// Operation names recorded in Events and accepted by FailOn.
const (
	OpChannel       = "channel"
	OpRole          = "role"
	OpCreate        = "create"
	OpRename        = "rename"
	OpGrant         = "grant"
	OpRevoke        = "revoke"
	OpDelete        = "delete"
	OpSend          = "send"
	OpDeleteMessage = "delete-message"
	OpHistory       = "history"
	OpRespond       = "respond"
	OpAcknowledge   = "ack"
	OpFollowUp      = "followup"
)

// Event is one recorded mutation or call.
type Event struct {
	Op        string
	ChannelID string
	Detail    string
}

// InteractionReply is a reply recorded for an interaction.
type InteractionReply struct {
	Op            string
	InteractionID string
	Reply         chat.Reply
}

// Fake is a thread-safe in-memory chat.Client.
type Fake struct {
	mu       sync.Mutex
	seq      int
	epoch    time.Time
	channels map[string]*chat.Channel
	roles    map[string]bool
	messages map[string][]chat.Message
	failures map[string]error
	files    map[string][]byte
	sent     map[string][]chat.OutgoingMessage
	events   []Event
	replies  []InteractionReply
	// BotUser is the author of messages sent through the fake.
	BotUser chat.User
}

var _ chat.Client = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		epoch:    time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC),
		channels: make(map[string]*chat.Channel),
		roles:    make(map[string]bool),
		messages: make(map[string][]chat.Message),
		failures: make(map[string]error),
		files:    make(map[string][]byte),
		sent:     make(map[string][]chat.OutgoingMessage),
		BotUser:  chat.User{ID: "bot", Username: "ticketbot", Bot: true},
	}
}

// AddChannel registers an existing channel.
func (f *Fake) AddChannel(ch chat.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := ch
	f.channels[ch.ID] = &c
}

// AddRole registers a guild role.
func (f *Fake) AddRole(guildID, roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[guildID+"/"+roleID] = true
}

// AddMessage appends a message to a channel's history.
func (f *Fake) AddMessage(channelID string, msg chat.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ChannelID = channelID
	if msg.ID == "" {
		msg.ID = f.nextID()
	}
	f.messages[channelID] = append(f.messages[channelID], msg)
}

// FailOn makes every later call of op fail with err. A key of the form
// "op:channelID" limits the failure to one channel.
func (f *Fake) FailOn(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = err
}

// Events returns a copy of the recorded events.
func (f *Fake) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.events)
}

// EventsFor returns the recorded events for one operation.
func (f *Fake) EventsFor(op string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, e := range f.events {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// Replies returns a copy of the recorded interaction replies.
func (f *Fake) Replies() []InteractionReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.replies)
}

// Messages returns a copy of a channel's history.
func (f *Fake) Messages(channelID string) []chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.messages[channelID])
}

// HasChannel reports whether the channel currently exists.
func (f *Fake) HasChannel(channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[channelID]
	return ok
}

// ChannelByName returns the first channel with the given name.
func (f *Fake) ChannelByName(name string) (chat.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		if ch.Name == name {
			return *ch, true
		}
	}
	return chat.Channel{}, false
}

func (f *Fake) nextID() string {
	f.seq++
	return strconv.Itoa(1000 + f.seq)
}

func (f *Fake) fail(op, channelID string) error {
	if err, ok := f.failures[op+":"+channelID]; ok {
		return err
	}
	return f.failures[op]
}

func (f *Fake) record(op, channelID, detail string) {
	f.events = append(f.events, Event{Op: op, ChannelID: channelID, Detail: detail})
}

func (f *Fake) Channel(ctx context.Context, channelID string) (*chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpChannel, channelID); err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, chat.ErrNotFound)
	}
	c := *ch
	c.Members = slices.Clone(ch.Members)
	return &c, nil
}

func (f *Fake) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpRole, ""); err != nil {
		return false, err
	}
	return f.roles[guildID+"/"+roleID], nil
}

func (f *Fake) CreateChannel(ctx context.Context, guildID string, spec chat.ChannelSpec) (*chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpCreate, ""); err != nil {
		return nil, err
	}
	ch := &chat.Channel{
		ID:       f.nextID(),
		GuildID:  guildID,
		ParentID: spec.ParentID,
		Name:     spec.Name,
		Topic:    spec.Topic,
		Members:  slices.Clone(spec.Members),
	}
	f.channels[ch.ID] = ch
	f.record(OpCreate, ch.ID, spec.Name)
	c := *ch
	return &c, nil
}

func (f *Fake) RenameChannel(ctx context.Context, channelID, name string) (*chat.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpRename, channelID); err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, chat.ErrNotFound)
	}
	ch.Name = name
	f.record(OpRename, channelID, name)
	c := *ch
	return &c, nil
}

func (f *Fake) GrantAccess(ctx context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpGrant, channelID); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s: %w", channelID, chat.ErrNotFound)
	}
	if !slices.Contains(ch.Members, userID) {
		ch.Members = append(ch.Members, userID)
	}
	f.record(OpGrant, channelID, userID)
	return nil
}

func (f *Fake) RevokeAccess(ctx context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpRevoke, channelID); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s: %w", channelID, chat.ErrNotFound)
	}
	ch.Members = slices.DeleteFunc(ch.Members, func(id string) bool { return id == userID })
	f.record(OpRevoke, channelID, userID)
	return nil
}

func (f *Fake) DeleteChannel(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpDelete, channelID); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return fmt.Errorf("channel %s: %w", channelID, chat.ErrNotFound)
	}
	delete(f.channels, channelID)
	delete(f.messages, channelID)
	f.record(OpDelete, channelID, "")
	return nil
}

func (f *Fake) SendMessage(ctx context.Context, channelID string, out chat.OutgoingMessage) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpSend, channelID); err != nil {
		return nil, err
	}
	if _, ok := f.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, chat.ErrNotFound)
	}
	msg := chat.Message{
		ID:        f.nextID(),
		ChannelID: channelID,
		Author:    f.BotUser,
		Content:   out.Content,
		Timestamp: f.epoch.Add(time.Duration(f.seq) * time.Second),
	}
	detail := out.Content
	for _, file := range out.Files {
		msg.Attachments = append(msg.Attachments, chat.Attachment{
			URL:      "https://cdn.example.com/" + msg.ID + "/" + file.Name,
			Filename: file.Name,
		})
		f.files[file.Name] = slices.Clone(file.Data)
		detail = file.Name
	}
	f.messages[channelID] = append(f.messages[channelID], msg)
	f.sent[channelID] = append(f.sent[channelID], out)
	f.record(OpSend, channelID, detail)
	return &msg, nil
}

// SentFiles returns the files uploaded to a channel, in order.
func (f *Fake) SentFiles(channelID string) []chat.Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Attachment
	for _, m := range f.messages[channelID] {
		out = append(out, m.Attachments...)
	}
	return out
}

// Sent returns the messages posted to a channel through SendMessage.
func (f *Fake) Sent(channelID string) []chat.OutgoingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent[channelID])
}

// FileContent returns the data of an uploaded file by name.
func (f *Fake) FileContent(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	return data, ok
}

func (f *Fake) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpDeleteMessage, channelID); err != nil {
		return err
	}
	msgs := f.messages[channelID]
	idx := slices.IndexFunc(msgs, func(m chat.Message) bool { return m.ID == messageID })
	if idx < 0 {
		return fmt.Errorf("message %s: %w", messageID, chat.ErrNotFound)
	}
	f.messages[channelID] = slices.Delete(msgs, idx, idx+1)
	f.record(OpDeleteMessage, channelID, messageID)
	return nil
}

func (f *Fake) History(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(OpHistory, channelID); err != nil {
		return nil, err
	}
	msgs := f.messages[channelID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	f.record(OpHistory, channelID, strconv.Itoa(limit))
	return slices.Clone(msgs), nil
}

func (f *Fake) reply(op string, ix *chat.Interaction, r chat.Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(op, ""); err != nil {
		return err
	}
	f.replies = append(f.replies, InteractionReply{Op: op, InteractionID: ix.ID, Reply: r})
	f.record(op, ix.ChannelID, r.Content)
	return nil
}

func (f *Fake) Respond(ctx context.Context, ix *chat.Interaction, r chat.Reply) error {
	return f.reply(OpRespond, ix, r)
}

func (f *Fake) Acknowledge(ctx context.Context, ix *chat.Interaction) error {
	return f.reply(OpAcknowledge, ix, chat.Reply{})
}

func (f *Fake) FollowUp(ctx context.Context, ix *chat.Interaction, r chat.Reply) error {
	return f.reply(OpFollowUp, ix, r)
}
