package session

import "sync"

// Memory is a map-backed Store for tests and other collaborators that do not
// need durability.
type Memory struct {
	mu       sync.RWMutex
	users    map[int64]int64
	channels map[int64]int64
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int64]int64),
		channels: make(map[int64]int64),
	}
}

func (m *Memory) CurrentChannel(userID int64) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.users[userID]
	return id, ok, nil
}

func (m *Memory) SetCurrentChannel(userID, channelID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = channelID
	return nil
}

func (m *Memory) LastIndex(channelID int64) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.channels[channelID]
	return idx, ok, nil
}

func (m *Memory) SetLastIndex(channelID, index int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[channelID] = index
	return nil
}
