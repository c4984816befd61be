// Package membership validates join/leave/register/delete requests against
// the channel registry and the requester's credentials. Operations return
// sentinel errors; user-facing wording is the caller's job.
package membership

import (
	"errors"
	"fmt"

	"telechan/internal/channel"
	"telechan/internal/session"
)

var (
	// ErrNotFound: the handle did not resolve to any Telegram chat.
	ErrNotFound = errors.New("channel not found")
	// ErrAlreadyRegistered: the resolved chat id is already in the registry.
	ErrAlreadyRegistered = errors.New("channel already registered")
	// ErrInsufficientPermissions: the bot cannot both post and delete there.
	ErrInsufficientPermissions = errors.New("bot lacks posting or deletion rights")
	// ErrUnknownChannel: the resolved chat id is not in the registry.
	ErrUnknownChannel = errors.New("channel not in the registry")
	// ErrWrongPassword: the channel requires a password and it did not match.
	ErrWrongPassword = errors.New("wrong channel password")
	// ErrCannotLeaveDefault: the requester is already on the default channel.
	ErrCannotLeaveDefault = errors.New("cannot leave the default channel")
	// ErrCannotDeleteDefault: the default channel must survive; leaves land on it.
	ErrCannotDeleteDefault = errors.New("cannot delete the default channel")
	// ErrNotAuthor: only the registering author may delete a channel.
	ErrNotAuthor = errors.New("requester is not the channel author")
)

// ChatInfo is the resolved descriptor of a Telegram chat.
type ChatInfo struct {
	ID       int64
	Username string
	Title    string
}

// Resolver is the slice of the messaging platform the manager needs:
// handle resolution and bot-permission queries.
type Resolver interface {
	ResolveChannel(handle string) (ChatInfo, error)
	BotRights(chatID int64) (canPost, canDelete bool, err error)
}

type Manager struct {
	registry *channel.Registry
	sessions session.Store
	resolver Resolver
}

func NewManager(registry *channel.Registry, sessions session.Store, resolver Resolver) *Manager {
	return &Manager{registry: registry, sessions: sessions, resolver: resolver}
}

// Register adds a new channel owned by the requester and joins them to it.
// The registry is only touched after resolution, the duplicate check and the
// permission probe have all passed.
func (m *Manager) Register(requesterID int64, handle, password, description string) (channel.Channel, error) {
	info, err := m.resolver.ResolveChannel(handle)
	if err != nil {
		return channel.Channel{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if _, ok := m.registry.Get(info.ID); ok {
		return channel.Channel{}, ErrAlreadyRegistered
	}
	canPost, canDelete, err := m.resolver.BotRights(info.ID)
	if err != nil {
		return channel.Channel{}, fmt.Errorf("%w: %v", ErrInsufficientPermissions, err)
	}
	if !canPost || !canDelete {
		return channel.Channel{}, ErrInsufficientPermissions
	}
	ch := channel.Channel{ID: info.ID, Author: requesterID, Password: password, Description: description}
	if err := m.registry.Add(ch); err != nil {
		if errors.Is(err, channel.ErrAlreadyRegistered) {
			return channel.Channel{}, ErrAlreadyRegistered
		}
		return channel.Channel{}, fmt.Errorf("persist channel: %w", err)
	}
	if err := m.sessions.SetCurrentChannel(requesterID, ch.ID); err != nil {
		return channel.Channel{}, fmt.Errorf("join after register: %w", err)
	}
	return ch, nil
}

// Join switches the requester's current channel after a password check.
// The session is untouched on any failure.
func (m *Manager) Join(requesterID int64, handle, password string) (channel.Channel, error) {
	info, err := m.resolver.ResolveChannel(handle)
	if err != nil {
		return channel.Channel{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	ch, ok := m.registry.Get(info.ID)
	if !ok {
		return channel.Channel{}, ErrUnknownChannel
	}
	if !ch.Open() && ch.Password != password {
		return channel.Channel{}, ErrWrongPassword
	}
	if err := m.sessions.SetCurrentChannel(requesterID, ch.ID); err != nil {
		return channel.Channel{}, fmt.Errorf("persist session: %w", err)
	}
	return ch, nil
}

// Leave resets the requester to the default channel.
func (m *Manager) Leave(requesterID int64) (channel.Channel, error) {
	def := m.registry.Default()
	current, ok, err := m.sessions.CurrentChannel(requesterID)
	if err != nil {
		return channel.Channel{}, fmt.Errorf("load session: %w", err)
	}
	if !ok || current == def.ID {
		return channel.Channel{}, ErrCannotLeaveDefault
	}
	if err := m.sessions.SetCurrentChannel(requesterID, def.ID); err != nil {
		return channel.Channel{}, fmt.Errorf("persist session: %w", err)
	}
	return def, nil
}

// Delete removes a channel the requester registered. Relay state for the
// channel is deliberately left behind: re-registering continues the index
// sequence instead of restarting it.
func (m *Manager) Delete(requesterID int64, handle string) error {
	info, err := m.resolver.ResolveChannel(handle)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	ch, ok := m.registry.Get(info.ID)
	if !ok {
		return ErrUnknownChannel
	}
	if ch.Author != requesterID {
		return ErrNotAuthor
	}
	if err := m.registry.Remove(ch.ID); err != nil {
		if errors.Is(err, channel.ErrDefaultChannel) {
			return ErrCannotDeleteDefault
		}
		return fmt.Errorf("persist registry: %w", err)
	}
	return nil
}

// Reset puts the requester on the default channel, creating the session if
// needed. Backs the /start command.
func (m *Manager) Reset(requesterID int64) (channel.Channel, error) {
	def := m.registry.Default()
	if err := m.sessions.SetCurrentChannel(requesterID, def.ID); err != nil {
		return channel.Channel{}, fmt.Errorf("persist session: %w", err)
	}
	return def, nil
}

// Current returns the requester's channel, falling back to the default for
// users with no session yet.
func (m *Manager) Current(requesterID int64) (channel.Channel, error) {
	current, ok, err := m.sessions.CurrentChannel(requesterID)
	if err != nil {
		return channel.Channel{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return m.registry.Default(), nil
	}
	ch, ok := m.registry.Get(current)
	if !ok {
		// Channel was deleted from under the session.
		return m.registry.Default(), nil
	}
	return ch, nil
}

// List exposes the registry for channel listings.
func (m *Manager) List() []channel.Channel {
	return m.registry.List()
}
