package channel

import (
	"errors"
	"sync"

	"github.com/samber/lo"
)

// Channel is a single registry entry. Author owns delete rights; an empty
// Password means anyone may join.
type Channel struct {
	ID          int64  `json:"id"`
	Author      int64  `json:"author"`
	Password    string `json:"password,omitempty"`
	Description string `json:"description,omitempty"`
}

// Open reports whether the channel can be joined without a password.
func (c Channel) Open() bool { return c.Password == "" }

// Repository abstracts persistence of the channel list.
// Save must atomically replace the previous snapshot.
type Repository interface {
	Load() ([]Channel, error)
	Save(channels []Channel) error
}

var (
	ErrAlreadyRegistered = errors.New("channel already registered")
	ErrUnknownChannel    = errors.New("channel not registered")
	ErrDefaultChannel    = errors.New("default channel cannot be removed")
)

// Registry is the in-memory channel list backed by a Repository. The first
// entry at startup is the default channel. All mutations persist before
// returning; a coarse mutex serializes read-modify-persist cycles.
type Registry struct {
	mu       sync.Mutex
	repo     Repository
	channels []Channel
}

// NewRegistry loads the channel list from repo. An empty list is seeded with
// seed as the default channel and persisted immediately.
func NewRegistry(repo Repository, seed Channel) (*Registry, error) {
	channels, err := repo.Load()
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		channels = []Channel{seed}
		if err := repo.Save(channels); err != nil {
			return nil, err
		}
	}
	return &Registry{repo: repo, channels: channels}, nil
}

// Default returns the zero-index registry entry.
func (r *Registry) Default() Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels[0]
}

func (r *Registry) Get(id int64) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Find(r.channels, func(c Channel) bool { return c.ID == id })
}

func (r *Registry) List() []Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Channel{}, r.channels...)
}

// Add appends ch and persists. Fails with ErrAlreadyRegistered when the id
// is present; the in-memory list is untouched if persistence fails.
func (r *Registry) Add(ch Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lo.ContainsBy(r.channels, func(c Channel) bool { return c.ID == ch.ID }) {
		return ErrAlreadyRegistered
	}
	next := append(append([]Channel{}, r.channels...), ch)
	if err := r.repo.Save(next); err != nil {
		return err
	}
	r.channels = next
	return nil
}

// Remove deletes the entry with the given id and persists. The default
// channel is refused: every leave operation lands on it.
func (r *Registry) Remove(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[0].ID == id {
		return ErrDefaultChannel
	}
	if !lo.ContainsBy(r.channels, func(c Channel) bool { return c.ID == id }) {
		return ErrUnknownChannel
	}
	next := lo.Filter(r.channels, func(c Channel, _ int) bool { return c.ID != id })
	if err := r.repo.Save(next); err != nil {
		return err
	}
	r.channels = next
	return nil
}
